package imagegen

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/genaker/agento/internal/utils/mediautil"
)

const maxFilenameLength = 100

var (
	variantSuffix  = regexp.MustCompile(`_[a-z]+_\d+$`)
	numberSuffix   = regexp.MustCompile(`_\d+$`)
	nonWord        = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	nonFilename    = regexp.MustCompile(`[^\p{L}\p{N}_\-]`)
	repeatedUnders = regexp.MustCompile(`_+`)
	promptWord     = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	genericBases = map[string]bool{"image": true, "photo": true, "pic": true}
	stopWords    = map[string]bool{
		"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "create": true, "make": true, "generate": true,
		"image": true, "photo": true, "picture": true,
	}
)

// DescriptiveFilename names a generated image after its inputs, e.g.
// "blue_dress_red_shoes_1700000000" for blue_dress_main_1.jpg and
// red-shoes_2.png. Short or generic names borrow up to two prompt words.
func DescriptiveFilename(image1, image2, prompt string, now time.Time) string {
	base := imageBaseName(image1)
	if image2 != "" {
		if base2 := imageBaseName(image2); base2 != "" && base2 != base {
			base = base + "_" + base2
		}
	}

	if utf8.RuneCountInString(base) < 5 || genericBases[base] {
		if words := meaningfulWords(prompt, 2); len(words) > 0 {
			base = base + "_" + strings.Join(words, "_")
		}
	}

	base = nonFilename.ReplaceAllString(base, "_")
	base = strings.Trim(repeatedUnders.ReplaceAllString(base, "_"), "_")

	timestamp := now.Unix()
	filename := fmt.Sprintf("%s_%d", base, timestamp)
	if runes := []rune(filename); len(runes) > maxFilenameLength {
		filename = fmt.Sprintf("%s_%d", string(runes[:maxFilenameLength-5]), timestamp)
	}

	return filename
}

func imageBaseName(ref string) string {
	name := mediautil.BaseName(ref)
	if name == "." || name == "/" {
		return ""
	}
	name = strings.TrimSuffix(name, path.Ext(name))

	name = variantSuffix.ReplaceAllString(name, "")
	name = numberSuffix.ReplaceAllString(name, "")
	name = nonWord.ReplaceAllString(name, "_")
	name = strings.Trim(repeatedUnders.ReplaceAllString(name, "_"), "_")

	return strings.ToLower(name)
}

func meaningfulWords(prompt string, limit int) []string {
	var words []string
	for _, word := range promptWord.FindAllString(strings.ToLower(prompt), -1) {
		if stopWords[word] || utf8.RuneCountInString(word) <= 2 {
			continue
		}

		words = append(words, word)
		if len(words) == limit {
			break
		}
	}

	return words
}
