package match

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/symptoserve/pkg/embed"
	"github.com/bastiangx/symptoserve/pkg/fuzzy"
	"github.com/bastiangx/symptoserve/pkg/lexical"
	"github.com/bastiangx/symptoserve/pkg/vocab"
)

const (
	StrategyExact    = "exact"
	StrategyFuzzy    = "fuzzy"
	StrategySemantic = "semantic"
	StrategyLexical  = "lexical"
)

// Strategy is one stage of the cascade. input is already lowercased and
// trimmed; threshold is the caller's base threshold on the 0-100 scale.
type Strategy interface {
	Name() string
	Match(ctx context.Context, input string, threshold float64) (Match, bool)
}

// Exact accepts inputs equal to a vocabulary entry.
type Exact struct {
	vocab *vocab.Vocabulary
}

func NewExact(v *vocab.Vocabulary) *Exact {
	return &Exact{vocab: v}
}

func (e *Exact) Name() string { return StrategyExact }

func (e *Exact) Match(_ context.Context, input string, _ float64) (Match, bool) {
	if !e.vocab.Contains(input) {
		return Match{}, false
	}
	return Match{Symptom: input, Score: 100, Strategy: StrategyExact}, true
}

// Fuzzy scores every entry with the token sort ratio and accepts the best one
// at or above the threshold. Sorted token keys are computed once. Input or
// entries with no ASCII word characters have an empty key and never match.
type Fuzzy struct {
	symptoms []string
	keys     []string
}

func NewFuzzy(v *vocab.Vocabulary) *Fuzzy {
	symptoms := v.Symptoms()
	keys := make([]string, len(symptoms))
	for i, s := range symptoms {
		keys[i] = fuzzy.SortTokens(s)
	}
	return &Fuzzy{symptoms: symptoms, keys: keys}
}

func (f *Fuzzy) Name() string { return StrategyFuzzy }

func (f *Fuzzy) Match(_ context.Context, input string, threshold float64) (Match, bool) {
	key := fuzzy.SortTokens(input)
	if key == "" {
		return Match{}, false
	}
	best, bestScore := -1, -1
	for i, k := range f.keys {
		if k == "" {
			continue
		}
		if s := fuzzy.Ratio(key, k); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || float64(bestScore) < threshold {
		return Match{}, false
	}
	return Match{Symptom: f.symptoms[best], Score: float64(bestScore), Strategy: StrategyFuzzy}, true
}

// Semantic compares the input embedding with embeddings of every entry,
// computed once at construction.
type Semantic struct {
	embedder embed.Embedder
	symptoms []string
	vectors  [][]float32
	scale    float64
}

// NewSemantic probes e and embeds the vocabulary. Any failure means the
// backend is unusable for this process.
func NewSemantic(ctx context.Context, v *vocab.Vocabulary, e embed.Embedder, scale float64) (*Semantic, error) {
	if err := embed.Probe(ctx, e); err != nil {
		return nil, err
	}
	symptoms := v.Symptoms()
	vectors, err := e.EmbedTexts(ctx, symptoms)
	if err != nil {
		return nil, fmt.Errorf("embed vocabulary: %w", err)
	}
	if len(vectors) != len(symptoms) {
		return nil, fmt.Errorf("embed vocabulary: got %d vectors for %d symptoms", len(vectors), len(symptoms))
	}
	return &Semantic{embedder: e, symptoms: symptoms, vectors: vectors, scale: scale}, nil
}

func (s *Semantic) Name() string { return StrategySemantic }

// Match skips the stage for this call when the backend fails.
func (s *Semantic) Match(ctx context.Context, input string, threshold float64) (Match, bool) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{input})
	if err != nil || len(vecs) != 1 {
		log.Debugf("semantic stage skipped for %q: %v", input, err)
		return Match{}, false
	}

	best, bestSim := -1, 0.0
	for i, v := range s.vectors {
		if sim := embed.Cosine(vecs[0], v); sim > bestSim {
			best, bestSim = i, sim
		}
	}
	if best < 0 {
		return Match{}, false
	}
	score := min(bestSim*100, 100)
	if score < s.scale*threshold {
		return Match{}, false
	}
	return Match{Symptom: s.symptoms[best], Score: score, Strategy: StrategySemantic}, true
}

// Lexical is the TF-IDF fallback.
type Lexical struct {
	index    *lexical.Index
	symptoms []string
	scale    float64
}

func NewLexical(v *vocab.Vocabulary, scale float64) *Lexical {
	symptoms := v.Symptoms()
	index := lexical.Fit(symptoms)
	log.Debugf("Lexical index: %d symptoms, %d terms", index.Len(), index.Terms())
	return &Lexical{index: index, symptoms: symptoms, scale: scale}
}

func (l *Lexical) Name() string { return StrategyLexical }

func (l *Lexical) Match(_ context.Context, input string, threshold float64) (Match, bool) {
	hit := l.index.Best(input)
	if hit.Score <= 0 {
		return Match{}, false
	}
	score := hit.Score * 100
	if score < l.scale*threshold {
		return Match{}, false
	}
	return Match{Symptom: l.symptoms[hit.Doc], Score: score, Strategy: StrategyLexical}, true
}
