// Package predict composes symptom matching, feature projection and disease
// ranking into a single predictor.
package predict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/symptoserve/pkg/classify"
	"github.com/bastiangx/symptoserve/pkg/features"
	"github.com/bastiangx/symptoserve/pkg/match"
	"github.com/bastiangx/symptoserve/pkg/vocab"
)

const (
	DefaultTopN                = 3
	DefaultConfidenceThreshold = 0.3
	DefaultMatchThreshold      = 75
	DefaultSuggestLimit        = 10
)

const (
	OutcomeOK              = "ok"
	OutcomeNoMatch         = "no_match"
	OutcomeBelowConfidence = "below_confidence"
)

// ErrMisaligned means the classifier was trained on a different vocabulary
// or label set than the one supplied.
var ErrMisaligned = errors.New("vocabulary, labels and classifier are misaligned")

// Prediction is a ranked disease, the symptoms behind it and optional
// catalog information.
type Prediction struct {
	Disease     string        `msgpack:"disease"`
	Probability float64       `msgpack:"probability"`
	Symptoms    []match.Match `msgpack:"symptoms"`
	Info        *DiseaseInfo  `msgpack:"info,omitempty"`
}

// Result of one Predict call. Matched lists every resolved symptom even when
// no prediction clears the confidence threshold.
type Result struct {
	Predictions []Prediction  `msgpack:"predictions"`
	Matched     []match.Match `msgpack:"matched"`
}

// Outcome classifies the result: ok, no_match or below_confidence.
func (r Result) Outcome() string {
	switch {
	case len(r.Matched) == 0:
		return OutcomeNoMatch
	case len(r.Predictions) == 0:
		return OutcomeBelowConfidence
	default:
		return OutcomeOK
	}
}

type settings struct {
	topN                int
	confidenceThreshold float64
	matchThreshold      float64
	suggestLimit        int
	matcher             match.Options
	catalog             Catalog
}

func defaultSettings() settings {
	return settings{
		topN:                DefaultTopN,
		confidenceThreshold: DefaultConfidenceThreshold,
		matchThreshold:      DefaultMatchThreshold,
		suggestLimit:        DefaultSuggestLimit,
	}
}

// sanitize restores defaults for out of range values.
func (s *settings) sanitize() {
	if s.topN < 1 {
		s.topN = DefaultTopN
	}
	if s.confidenceThreshold < 0 || s.confidenceThreshold > 1 {
		s.confidenceThreshold = DefaultConfidenceThreshold
	}
	if s.matchThreshold <= 0 || s.matchThreshold > 100 {
		s.matchThreshold = DefaultMatchThreshold
	}
	if s.suggestLimit < 1 {
		s.suggestLimit = DefaultSuggestLimit
	}
}

// Option adjusts a Predictor at construction or a single Predict call.
// Matcher and catalog options only apply at construction.
type Option func(*settings)

func WithTopN(n int) Option {
	return func(s *settings) { s.topN = n }
}

func WithConfidenceThreshold(t float64) Option {
	return func(s *settings) { s.confidenceThreshold = t }
}

// WithMatchThreshold sets the base threshold handed to the matcher.
func WithMatchThreshold(t float64) Option {
	return func(s *settings) { s.matchThreshold = t }
}

func WithSuggestLimit(n int) Option {
	return func(s *settings) { s.suggestLimit = n }
}

func WithMatcherOptions(o match.Options) Option {
	return func(s *settings) { s.matcher = o }
}

// WithCatalog attaches disease information to predictions.
func WithCatalog(c Catalog) Option {
	return func(s *settings) { s.catalog = c }
}

// Predictor is immutable after New and safe for concurrent use.
type Predictor struct {
	vocab    *vocab.Vocabulary
	codec    *vocab.LabelCodec
	matcher  *match.Matcher
	ranker   *classify.Ranker
	settings settings
}

// New checks that clf was trained on v and codec and builds the matcher.
func New(ctx context.Context, v *vocab.Vocabulary, codec *vocab.LabelCodec, clf classify.Classifier, opts ...Option) (*Predictor, error) {
	if v == nil || codec == nil || clf == nil {
		return nil, fmt.Errorf("%w: vocabulary, codec and classifier are required", ErrMisaligned)
	}
	if clf.NumFeatures() != v.Len() {
		return nil, fmt.Errorf("%w: classifier expects %d features, vocabulary has %d", ErrMisaligned, clf.NumFeatures(), v.Len())
	}
	if clf.NumClasses() != codec.Len() {
		return nil, fmt.Errorf("%w: classifier has %d classes, codec has %d", ErrMisaligned, clf.NumClasses(), codec.Len())
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	s.sanitize()

	ranker, err := classify.NewRanker(clf, codec)
	if err != nil {
		return nil, err
	}
	matcher, err := match.New(ctx, v, s.matcher)
	if err != nil {
		return nil, err
	}

	return &Predictor{
		vocab:    v,
		codec:    codec,
		matcher:  matcher,
		ranker:   ranker,
		settings: s,
	}, nil
}

// Predict resolves symptoms, projects them and ranks diseases. Inputs that
// match nothing give an empty Result without consulting the classifier.
func (p *Predictor) Predict(ctx context.Context, symptoms []string, opts ...Option) (Result, error) {
	start := time.Now()
	s := p.settings
	for _, opt := range opts {
		opt(&s)
	}
	s.sanitize()

	matched, err := p.matcher.MatchMany(ctx, symptoms, s.matchThreshold)
	if err != nil {
		return Result{}, err
	}
	if len(matched) == 0 {
		log.Debugf("no symptoms matched from %d inputs", len(symptoms))
		return Result{}, nil
	}

	x := features.Project(p.vocab, matched)
	if log.GetLevel() <= log.DebugLevel {
		log.Debugf("active features %v", features.Active(x))
	}
	ranked, err := p.ranker.Rank(x, matched, s.topN, s.confidenceThreshold)
	if err != nil {
		return Result{}, fmt.Errorf("rank diseases: %w", err)
	}

	preds := make([]Prediction, len(ranked))
	for i, r := range ranked {
		preds[i] = Prediction{
			Disease:     r.Disease,
			Probability: r.Probability,
			Symptoms:    r.Symptoms,
			Info:        p.settings.catalog.Lookup(r.Disease),
		}
	}

	log.Debugf("predicted %d diseases from %d/%d matched symptoms in %v",
		len(preds), len(matched), len(symptoms), time.Since(start))
	return Result{Predictions: preds, Matched: matched}, nil
}

// Suggest returns up to n vocabulary symptoms resembling partial. n <= 0
// uses the configured limit.
func (p *Predictor) Suggest(partial string, n int) []string {
	if n <= 0 {
		n = p.settings.suggestLimit
	}
	return p.matcher.Suggest(partial, n)
}

func (p *Predictor) Vocabulary() *vocab.Vocabulary {
	return p.vocab
}

func (p *Predictor) Codec() *vocab.LabelCodec {
	return p.codec
}

// Strategies lists the active matching stages.
func (p *Predictor) Strategies() []string {
	return p.matcher.Strategies()
}
