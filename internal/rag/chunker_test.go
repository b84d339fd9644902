package rag

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		overlap  int
		want     []string
	}{
		{
			name:     "empty input",
			text:     "",
			maxChars: 10,
			overlap:  2,
			want:     nil,
		},
		{
			name:     "whitespace only",
			text:     "   \n\t  ",
			maxChars: 10,
			overlap:  2,
			want:     nil,
		},
		{
			name:     "shorter than window",
			text:     "short text",
			maxChars: 100,
			overlap:  20,
			want:     []string{"short text"},
		},
		{
			name:     "exactly one window",
			text:     "abcdefghij",
			maxChars: 10,
			overlap:  3,
			want:     []string{"abcdefghij"},
		},
		{
			name:     "two windows with overlap",
			text:     "abcdefghijklmno",
			maxChars: 10,
			overlap:  3,
			want:     []string{"abcdefghij", "hijklmno"},
		},
		{
			name:     "input is trimmed before splitting",
			text:     "  abcdefghij  ",
			maxChars: 10,
			overlap:  3,
			want:     []string{"abcdefghij"},
		},
		{
			name:     "zero overlap",
			text:     "aaabbbccc",
			maxChars: 3,
			overlap:  0,
			want:     []string{"aaa", "bbb", "ccc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitText(tt.text, tt.maxChars, tt.overlap)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitText() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitTextCoversWholeInput(t *testing.T) {
	text := strings.Repeat("abcdefghij", 100)
	chunks := SplitText(text, 300, 100)

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	// Consecutive chunks share exactly the overlap, so dropping the first
	// overlap runes of every chunk after the first reconstructs the input.
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		runes := []rune(c)
		if len(runes) <= 100 {
			t.Fatalf("chunk shorter than overlap: %d runes", len(runes))
		}
		sb.WriteString(string(runes[100:]))
	}
	if sb.String() != text {
		t.Error("chunks do not reconstruct the input")
	}

	for i, c := range chunks {
		if n := len([]rune(c)); n > 300 {
			t.Errorf("chunk[%d] has %d runes, max 300", i, n)
		}
	}
}

func TestSplitTextRuneBoundaries(t *testing.T) {
	// Multi-byte text must never be split mid-rune.
	text := strings.Repeat("الارتداد الساحلي ", 40)
	chunks := SplitText(text, 50, 10)

	for i, c := range chunks {
		if n := len([]rune(c)); n > 50 {
			t.Errorf("chunk[%d] has %d runes, max 50", i, n)
		}
		for _, r := range c {
			if r == '�' {
				t.Fatalf("chunk[%d] contains a replacement rune, input was split mid-rune", i)
			}
		}
	}
}
