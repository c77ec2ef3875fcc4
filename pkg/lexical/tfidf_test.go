package lexical

import (
	"math"
	"reflect"
	"testing"
)

var docs = []string{
	"itching",
	"skin rash",
	"nodal skin eruptions",
	"continuous sneezing",
	"shivering",
	"chills",
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Pain in-the CHEST, a b high_fever")
	want := []string{"pain", "in", "the", "chest", "high_fever"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestFitShape(t *testing.T) {
	idx := Fit(docs)
	if idx.Len() != len(docs) {
		t.Fatalf("expected %d docs, got %d", len(docs), idx.Len())
	}
	// itching skin rash nodal eruptions continuous sneezing shivering chills
	if idx.Terms() != 9 {
		t.Errorf("expected 9 terms, got %d", idx.Terms())
	}
}

func TestBest(t *testing.T) {
	idx := Fit(docs)

	testCases := []struct {
		query       string
		doc         int
		minScore    float64
		maxScore    float64
		description string
	}{
		{"rash on skin", 1, 0.999, 1, "Reordered words with an unknown filler"},
		{"sneezing", 3, 0.5, 0.99, "Single shared term"},
		{"skin", 1, 0.3, 0.99, "Shared term prefers the shorter document"},
		{"xyz123", 0, 0, 0, "No shared terms"},
		{"", 0, 0, 0, "Empty query"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			hit := idx.Best(tc.query)
			if hit.Doc != tc.doc {
				t.Errorf("Best(%q).Doc = %d, want %d", tc.query, hit.Doc, tc.doc)
			}
			if hit.Score < tc.minScore || hit.Score > tc.maxScore {
				t.Errorf("Best(%q).Score = %f, want in [%f, %f]", tc.query, hit.Score, tc.minScore, tc.maxScore)
			}
		})
	}
}

func TestDocumentsFindThemselves(t *testing.T) {
	idx := Fit(docs)
	for i, doc := range docs {
		hit := idx.Best(doc)
		if hit.Doc != i || math.Abs(hit.Score-1) > 1e-9 {
			t.Errorf("Best(%q) = %+v, want doc %d with score 1", doc, hit, i)
		}
	}
}

func TestBestIsDeterministic(t *testing.T) {
	idx := Fit(docs)
	first := idx.Best("skin eruptions rash")
	for i := 0; i < 50; i++ {
		if got := idx.Best("skin eruptions rash"); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}
