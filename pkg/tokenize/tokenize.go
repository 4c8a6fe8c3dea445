// Package tokenize implements the character-fold tokenizer shared by the
// semantic encoder and semantic index: char → ord % vocab_size for
// alphanumerics, 0 for spaces, other runes dropped; truncated or
// zero-padded to a fixed length. Grounded on
// original_source/ml/utils/tokenizer.py — deliberately simple; richer
// tokenizer quality is out of scope here.
package tokenize

import "unicode"

// Encode folds text into exactly maxLen token ids in [0,vocabSize).
func Encode(text string, vocabSize, maxLen int) []int {
	ids := make([]int, 0, maxLen)
	for _, r := range text {
		if len(ids) >= maxLen {
			break
		}
		switch {
		case r == ' ':
			ids = append(ids, 0)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			ids = append(ids, int(r)%vocabSize)
		default:
			// dropped
		}
	}
	for len(ids) < maxLen {
		ids = append(ids, 0)
	}
	return ids
}
