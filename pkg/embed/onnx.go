package embed

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	defaultMaxSeqLen     = 128
	defaultInputIDs      = "input_ids"
	defaultAttentionMask = "attention_mask"
	defaultOutput        = "last_hidden_state"
)

var ortInit sync.Mutex

// OrtEmbedder runs a sentence encoder through ONNX Runtime and mean pools the
// token states into one vector per text.
type OrtEmbedder struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	tk      *tokenizer.Tokenizer
	cfg     Config
	modelID string
}

// NewOrtEmbedder loads the runtime library, the tokenizer and the model.
func NewOrtEmbedder(cfg Config) (*OrtEmbedder, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("%w: onnx backend needs model_path and tokenizer_path", ErrUnavailable)
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = defaultMaxSeqLen
	}
	if cfg.InputIDsName == "" {
		cfg.InputIDsName = defaultInputIDs
	}
	if cfg.AttentionMaskName == "" {
		cfg.AttentionMaskName = defaultAttentionMask
	}
	if cfg.OutputName == "" {
		cfg.OutputName = defaultOutput
	}

	if err := initRuntime(cfg.OrtLibrary); err != nil {
		return nil, err
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load tokenizer: %v", ErrUnavailable, err)
	}

	inputs := []string{cfg.InputIDsName, cfg.AttentionMaskName}
	if cfg.TokenTypeIDsName != "" {
		inputs = append(inputs, cfg.TokenTypeIDsName)
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputs, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrUnavailable, err)
	}

	log.Debugf("onnx embedder ready: model=%s maxSeqLen=%d", cfg.ModelPath, cfg.MaxSeqLen)
	return &OrtEmbedder{
		session: session,
		tk:      tk,
		cfg:     cfg,
		modelID: filepath.Base(cfg.ModelPath),
	}, nil
}

func initRuntime(library string) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if library != "" {
		ort.SetSharedLibraryPath(library)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("%w: init onnxruntime: %v", ErrUnavailable, err)
	}
	return nil
}

// ModelID returns the model file name.
func (o *OrtEmbedder) ModelID() string {
	return o.modelID
}

// EmbedTexts encodes texts one at a time. Sessions are not shared between
// goroutines, so calls are serialised.
func (o *OrtEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil, fmt.Errorf("%w: embedder closed", ErrUnavailable)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := o.encode(Normalize(text))
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (o *OrtEmbedder) encode(text string) ([]float32, error) {
	enc, err := o.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize %q: %w", text, err)
	}
	ids := truncate(enc.GetIds(), o.cfg.MaxSeqLen)
	mask := truncate(enc.GetAttentionMask(), o.cfg.MaxSeqLen)
	if len(ids) == 0 {
		return nil, fmt.Errorf("tokenize %q: no tokens", text)
	}

	shape := ort.NewShape(1, int64(len(ids)))
	var inputs []ort.Value
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, data := range [][]int{ids, mask} {
		t, err := ort.NewTensor(shape, toInt64(data))
		if err != nil {
			return nil, fmt.Errorf("input tensor: %w", err)
		}
		inputs = append(inputs, t)
	}
	if o.cfg.TokenTypeIDsName != "" {
		types := truncate(enc.GetTypeIds(), o.cfg.MaxSeqLen)
		t, err := ort.NewTensor(shape, toInt64(types))
		if err != nil {
			return nil, fmt.Errorf("input tensor: %w", err)
		}
		inputs = append(inputs, t)
	}

	outputs := []ort.Value{nil}
	if err := o.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	defer outputs[0].Destroy()

	states, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	vec, err := pool(states.GetData(), states.GetShape(), mask)
	if err != nil {
		return nil, err
	}
	l2normalize(vec)
	return vec, nil
}

// pool reduces the model output to one vector. Token states [1, n, h] are
// mean pooled over the attention mask; sentence outputs [1, h] are copied.
func pool(data []float32, shape ort.Shape, mask []int) ([]float32, error) {
	switch len(shape) {
	case 2:
		return cloneVector(data[:shape[1]]), nil
	case 3:
		n, h := int(shape[1]), int(shape[2])
		vec := make([]float32, h)
		var count float32
		for t := 0; t < n && t < len(mask); t++ {
			if mask[t] == 0 {
				continue
			}
			row := data[t*h : (t+1)*h]
			for j, x := range row {
				vec[j] += x
			}
			count++
		}
		if count == 0 {
			return nil, fmt.Errorf("empty attention mask")
		}
		for j := range vec {
			vec[j] /= count
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
}

// Close destroys the session. The runtime environment stays up for the
// life of the process.
func (o *OrtEmbedder) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	return err
}

func truncate(xs []int, n int) []int {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

func toInt64(xs []int) []int64 {
	out := make([]int64, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}
	return out
}
