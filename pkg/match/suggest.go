package match

import (
	"sort"

	"github.com/bastiangx/symptoserve/pkg/fuzzy"
)

// Suggest returns up to topN vocabulary entries whose partial ratio with
// partial is above the suggestion floor, best first, vocabulary order on
// ties. topN <= 0 means DefaultSuggestions.
func (m *Matcher) Suggest(partial string, topN int) []string {
	query := fuzzy.Process(partial)
	if query == "" {
		return []string{}
	}
	if topN <= 0 {
		topN = DefaultSuggestions
	}

	type scored struct {
		pos   int
		score int
	}
	hits := make([]scored, 0, len(m.suggest))
	for i, entry := range m.suggest {
		if s := fuzzy.PartialRatio(query, entry); float64(s) > m.opts.SuggestFloor {
			hits = append(hits, scored{pos: i, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]string, 0, min(topN, len(hits)))
	for _, h := range hits[:min(topN, len(hits))] {
		out = append(out, m.symptoms[h.pos])
	}
	return out
}

func processAll(symptoms []string) []string {
	out := make([]string, len(symptoms))
	for i, s := range symptoms {
		out[i] = fuzzy.Process(s)
	}
	return out
}
