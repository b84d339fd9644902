package rag

import "testing"

func TestBM25ScoresRelevance(t *testing.T) {
	docs := [][]string{
		Tokenize("coastal setback is thirty five percent of plot depth"),
		Tokenize("maximum building height is four floors"),
		Tokenize("parking requirements for residential plots"),
	}
	b := newBM25(docs)

	scores := b.scores(Tokenize("coastal setback percent"))
	if len(scores) != 3 {
		t.Fatalf("len(scores) = %d, want 3", len(scores))
	}
	if scores[0] <= scores[1] || scores[0] <= scores[2] {
		t.Errorf("doc 0 should outrank the others: %v", scores)
	}
}

func TestBM25NoQueryOverlap(t *testing.T) {
	docs := [][]string{
		Tokenize("coastal setback rules"),
		Tokenize("height limits"),
	}
	scores := newBM25(docs).scores(Tokenize("unrelated question entirely"))
	for i, s := range scores {
		if s != 0 {
			t.Errorf("scores[%d] = %f, want 0 with no term overlap", i, s)
		}
	}
}

func TestBM25EmptyBatch(t *testing.T) {
	scores := newBM25(nil).scores(Tokenize("anything"))
	if len(scores) != 0 {
		t.Errorf("len(scores) = %d, want 0", len(scores))
	}
}

func TestBM25NegativeIDFFloor(t *testing.T) {
	// "setback" appears in every document, which gives it a negative raw
	// IDF. The epsilon floor replaces it with a small positive weight so a
	// ubiquitous query term still counts for, not against, a match.
	docs := [][]string{
		Tokenize("setback coastal plots zone"),
		Tokenize("setback height limits floors"),
		Tokenize("setback parking ratio basement"),
	}
	scores := newBM25(docs).scores(Tokenize("setback"))
	for i, s := range scores {
		if s <= 0 {
			t.Errorf("scores[%d] = %f, want a positive floored score", i, s)
		}
	}
}

func TestBM25LengthNormalization(t *testing.T) {
	// The same term frequency in a shorter document scores higher.
	docs := [][]string{
		Tokenize("setback rule"),
		Tokenize("setback rule with many additional surrounding filler words here"),
	}
	scores := newBM25(docs).scores(Tokenize("setback"))
	if scores[0] <= scores[1] {
		t.Errorf("shorter doc should outrank the longer: %v", scores)
	}
}
