package classify

import (
	"fmt"
	"sort"

	"github.com/bastiangx/symptoserve/pkg/match"
	"github.com/bastiangx/symptoserve/pkg/vocab"
)

// Prediction is one ranked disease with the symptoms that produced it.
type Prediction struct {
	Disease     string        `msgpack:"disease"`
	Probability float64       `msgpack:"probability"`
	Symptoms    []match.Match `msgpack:"symptoms"`
}

// Ranker turns classifier output into ordered, thresholded predictions.
type Ranker struct {
	clf   Classifier
	codec *vocab.LabelCodec
}

// NewRanker fails when the classifier and codec disagree on the class count.
func NewRanker(clf Classifier, codec *vocab.LabelCodec) (*Ranker, error) {
	if clf.NumClasses() != codec.Len() {
		return nil, fmt.Errorf("%w: classifier has %d classes, codec has %d", ErrShape, clf.NumClasses(), codec.Len())
	}
	return &Ranker{clf: clf, codec: codec}, nil
}

// Rank scores x, keeps the topN most probable classes (ties by class index)
// and drops those below threshold. Every prediction carries its own copy of
// matched. An empty result is not an error.
func (r *Ranker) Rank(x []float64, matched []match.Match, topN int, threshold float64) ([]Prediction, error) {
	probs, err := r.clf.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(probs) != r.codec.Len() {
		return nil, fmt.Errorf("%w: got %d probabilities for %d classes", ErrShape, len(probs), r.codec.Len())
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	topN = max(0, min(topN, len(order)))
	out := make([]Prediction, 0, topN)
	for _, class := range order[:topN] {
		if probs[class] < threshold {
			continue
		}
		name, _ := r.codec.Decode(class)
		symptoms := make([]match.Match, len(matched))
		copy(symptoms, matched)
		out = append(out, Prediction{
			Disease:     name,
			Probability: probs[class],
			Symptoms:    symptoms,
		})
	}
	return out, nil
}
