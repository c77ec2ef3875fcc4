// Package features projects matched symptoms onto the binary feature vector
// the classifier was trained on.
package features

import (
	"github.com/bastiangx/symptoserve/pkg/match"
	"github.com/bastiangx/symptoserve/pkg/vocab"
)

// Project returns a fresh vector of length v.Len() with a 1 at the index of
// every matched symptom. Symptoms outside the vocabulary are ignored.
func Project(v *vocab.Vocabulary, matched []match.Match) []float64 {
	x := make([]float64, v.Len())
	for _, m := range matched {
		if i, ok := v.Index(m.Symptom); ok {
			x[i] = 1
		}
	}
	return x
}

// Active returns the positions set in x, in ascending order.
func Active(x []float64) []int {
	var out []int
	for i, f := range x {
		if f != 0 {
			out = append(out, i)
		}
	}
	return out
}
