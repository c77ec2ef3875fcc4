// Package embed turns short texts into dense vectors for semantic symptom
// matching. Backends implement Embedder; New picks one from a Config and
// wraps it with a query cache.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	BackendNone   = "none"
	BackendONNX   = "onnx"
	BackendOpenAI = "openai"
)

var (
	// ErrDisabled is returned by New when no backend is configured.
	ErrDisabled = errors.New("semantic backend disabled")
	// ErrUnavailable marks a backend that could not be built or did not answer.
	ErrUnavailable = errors.New("semantic backend unavailable")
)

// Embedder maps texts to vectors. Output i belongs to input i and every
// vector is l2-normalised.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string

	OrtLibrary        string
	ModelPath         string
	TokenizerPath     string
	MaxSeqLen         int
	InputIDsName      string
	AttentionMaskName string
	TokenTypeIDsName  string
	OutputName        string

	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIKey     string

	CacheTTL time.Duration
}

// New builds the configured backend. A zero CacheTTL disables the query cache.
func New(cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, ErrDisabled
	case BackendONNX:
		e, err = NewOrtEmbedder(cfg)
	case BackendOpenAI:
		e, err = NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTL > 0 {
		return NewCached(e, cfg.CacheTTL), nil
	}
	return e, nil
}

// Probe embeds one short text to check the backend answers.
func Probe(ctx context.Context, e Embedder) error {
	if e == nil {
		return ErrDisabled
	}
	vecs, err := e.EmbedTexts(ctx, []string{"fever"})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("%w: empty embedding", ErrUnavailable)
	}
	return nil
}

// Normalize applies NFKC, drops control characters and trims.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
