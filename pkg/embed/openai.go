package embed

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = string(openai.SmallEmbedding3)
	openAIBatchSize    = 512
)

// OpenAIEmbedder calls the embeddings endpoint of an OpenAI compatible API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder needs an API key; the base URL is optional.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrUnavailable)
	}
	clientConfig := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// ModelID returns the remote model name.
func (e *OpenAIEmbedder) ModelID() string {
	return e.model
}

// EmbedTexts sends texts in batches and orders the answers by input index.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += openAIBatchSize {
		end := min(start+openAIBatchSize, len(texts))
		batch := make([]string, 0, end-start)
		for _, t := range texts[start:end] {
			batch = append(batch, Normalize(t))
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(batch))
		}
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
			}
			vec := cloneVector(d.Embedding)
			l2normalize(vec)
			out[start+d.Index] = vec
		}
	}
	return out, nil
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
