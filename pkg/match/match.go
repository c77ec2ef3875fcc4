// Package match resolves free-text symptom descriptions against a closed
// vocabulary. Each input runs through an ordered cascade of strategies
// (exact, fuzzy, optionally semantic, lexical) and the first one whose score
// clears its floor wins.
package match

import (
	"context"
	"errors"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/bastiangx/symptoserve/pkg/embed"
	"github.com/bastiangx/symptoserve/pkg/vocab"
)

const (
	DefaultThreshold     = 80
	DefaultSemanticScale = 0.8
	DefaultLexicalScale  = 0.7
	DefaultSuggestFloor  = 60
	DefaultSuggestions   = 5
)

// Match is a vocabulary symptom resolved from one input. Strategy names the
// cascade stage that produced it and is informational only.
type Match struct {
	Symptom  string  `msgpack:"symptom"`
	Score    float64 `msgpack:"score"`
	Strategy string  `msgpack:"strategy"`
}

// Options tunes the cascade. Zero values take the defaults above.
type Options struct {
	SemanticScale float64
	LexicalScale  float64
	SuggestFloor  float64
	// Workers bounds MatchMany parallelism; 0 means GOMAXPROCS.
	Workers int
	// Embedder enables the semantic stage when it answers a probe.
	Embedder embed.Embedder
}

func (o *Options) applyDefaults() {
	if o.SemanticScale <= 0 {
		o.SemanticScale = DefaultSemanticScale
	}
	if o.LexicalScale <= 0 {
		o.LexicalScale = DefaultLexicalScale
	}
	if o.SuggestFloor <= 0 {
		o.SuggestFloor = DefaultSuggestFloor
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
}

// Matcher is immutable after New and safe for concurrent use.
type Matcher struct {
	vocab      *vocab.Vocabulary
	symptoms   []string
	strategies []Strategy
	suggest    []string
	opts       Options
}

// New builds the strategy cascade for v. The semantic stage is added only
// when opts.Embedder answers a probe and embeds the whole vocabulary; on
// failure a warning is logged and matching continues without it.
func New(ctx context.Context, v *vocab.Vocabulary, opts Options) (*Matcher, error) {
	if v == nil || v.Len() == 0 {
		return nil, errors.New("matcher needs a non-empty vocabulary")
	}
	opts.applyDefaults()

	strategies := []Strategy{
		NewExact(v),
		NewFuzzy(v),
	}
	if opts.Embedder != nil {
		sem, err := NewSemantic(ctx, v, opts.Embedder, opts.SemanticScale)
		if err != nil {
			log.Warn("semantic matching disabled", "model", opts.Embedder.ModelID(), "err", err)
		} else {
			strategies = append(strategies, sem)
		}
	}
	strategies = append(strategies, NewLexical(v, opts.LexicalScale))

	m := &Matcher{
		vocab:      v,
		symptoms:   v.Symptoms(),
		strategies: strategies,
		suggest:    processAll(v.Symptoms()),
		opts:       opts,
	}
	log.Debugf("matcher ready: %d symptoms, strategies=%v", v.Len(), m.Strategies())
	return m, nil
}

// Strategies lists the active cascade stages in order.
func (m *Matcher) Strategies() []string {
	names := make([]string, len(m.strategies))
	for i, s := range m.strategies {
		names[i] = s.Name()
	}
	return names
}

// Vocabulary returns the vocabulary the matcher resolves against.
func (m *Matcher) Vocabulary() *vocab.Vocabulary {
	return m.vocab
}

// MatchOne resolves a single input. It never fails: an input no stage
// accepts reports false.
func (m *Matcher) MatchOne(ctx context.Context, input string, threshold float64) (Match, bool) {
	normalized := normalize(input)
	if normalized == "" {
		return Match{}, false
	}
	for _, s := range m.strategies {
		if res, ok := s.Match(ctx, normalized, threshold); ok {
			return res, true
		}
	}
	log.Debugf("no match for %q", input)
	return Match{}, false
}

// MatchMany resolves inputs in parallel, drops misses and deduplicates by
// symptom. A symptom keeps the position of the first input that resolved to
// it and the highest score any input gave it; on equal scores the earlier
// strategy is kept. The only error is ctx being cancelled.
func (m *Matcher) MatchMany(ctx context.Context, inputs []string, threshold float64) ([]Match, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	results := make([]Match, len(inputs))
	found := make([]bool, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(m.opts.Workers, len(inputs)))
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], found[i] = m.MatchOne(gctx, input, threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupe(results, found), nil
}

func dedupe(results []Match, found []bool) []Match {
	out := make([]Match, 0, len(results))
	pos := make(map[string]int, len(results))
	for i, r := range results {
		if !found[i] {
			continue
		}
		if at, seen := pos[r.Symptom]; seen {
			if r.Score > out[at].Score {
				out[at] = r
			}
			continue
		}
		pos[r.Symptom] = len(out)
		out = append(out, r)
	}
	return out
}

// normalize lowercases and trims raw input before the cascade runs.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
