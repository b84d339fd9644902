package rag

import "strings"

// SplitText splits text into overlapping windows of at most maxChars runes,
// each sharing overlap runes with its predecessor. The input is trimmed;
// empty input yields nil. The final window is truncated to the remaining
// length.
//
// Windows are measured in runes, not bytes: guideline text is frequently
// Arabic and a byte window would split multi-byte runes. Chunking is purely
// positional; deterministic spans keep citations stable across reindexing.
//
// Callers must guarantee overlap < maxChars; config.Validate enforces this
// at startup.
func SplitText(text string, maxChars, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(runes) {
		end := i + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end >= len(runes) {
			break
		}
		i = end - overlap
		if i < 0 {
			i = 0
		}
	}
	return chunks
}
