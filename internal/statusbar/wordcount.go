package statusbar

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// CountWords counts words in text using Unicode word segmentation.
// Segments made up entirely of whitespace or punctuation are not counted.
func CountWords(text string) int {
	count := 0
	state := -1
	var word string
	for len(text) > 0 {
		word, text, state = uniseg.FirstWordInString(text, state)
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				count++
				break
			}
		}
	}
	return count
}
