package hashutil

import (
	"crypto/md5"
	"encoding/hex"

	"lukechampine.com/blake3"
)

func Blake3Hash(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// MD5Hex returns the hex encoded md5 digest of data. Cached video names are
// derived from it, so changing the algorithm invalidates every cache entry.
func MD5Hex(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}
