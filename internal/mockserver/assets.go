package mockserver

// Smallest payloads that still sniff as mp4 and png.
var (
	mockMP4 = []byte("\x00\x00\x00\x20ftypisomiso2mp41" +
		"\x00\x00\x00\x08mdat" +
		"\x00\x00\x00\x10moov\x00\x00\x00\x00\x00\x00\x00\x00")

	mockPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01" +
		"\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89" +
		"\x00\x00\x00\x0bIDATx\x9cc``\x00\x00\x00\x02\x00\x01" +
		"\xe2!\xbc\x33\x00\x00\x00\x00IEND\xaeB`\x82")
)
