// Package artifact reads and writes the trained files a predictor is built
// from: the symptom vocabulary with disease labels and the classifier
// weights, both msgpack encoded.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/symptoserve/pkg/classify"
	"github.com/bastiangx/symptoserve/pkg/vocab"
)

// ErrArtifact wraps every failure to load, validate or save an artifact.
var ErrArtifact = errors.New("invalid artifact")

const (
	ModelSoftmax = "softmax"

	DefaultVocabularyFile = "vocabulary.msgpack"
	DefaultModelFile      = "model.msgpack"
	DefaultCatalogFile    = "disease_info.yaml"
)

// VocabularyFile holds the ordered symptom list and the ordered disease
// labels the classifier was trained with.
type VocabularyFile struct {
	Symptoms []string `msgpack:"symptoms"`
	Diseases []string `msgpack:"diseases"`
}

// ModelFile holds a linear classifier: Weights is Classes x Features.
type ModelFile struct {
	Kind     string      `msgpack:"kind"`
	Classes  int         `msgpack:"classes"`
	Features int         `msgpack:"features"`
	Weights  [][]float64 `msgpack:"weights"`
	Bias     []float64   `msgpack:"bias"`
}

// Bundle is everything a predictor needs, built and cross-checked.
type Bundle struct {
	Vocabulary *vocab.Vocabulary
	Codec      *vocab.LabelCodec
	Classifier classify.Classifier
}

// LoadVocabulary decodes a vocabulary file.
func LoadVocabulary(path string) (*VocabularyFile, error) {
	var vf VocabularyFile
	if err := decodeFile(path, KindVocabulary, &vf); err != nil {
		return nil, err
	}
	log.Debugf("loaded vocabulary %s: %d symptoms, %d diseases", path, len(vf.Symptoms), len(vf.Diseases))
	return &vf, nil
}

// LoadModel decodes a model file and checks its declared shape.
func LoadModel(path string) (*ModelFile, error) {
	var mf ModelFile
	if err := decodeFile(path, KindModel, &mf); err != nil {
		return nil, err
	}
	if err := mf.check(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifact, path, err)
	}
	log.Debugf("loaded %s model %s: %d classes x %d features", mf.Kind, path, mf.Classes, mf.Features)
	return &mf, nil
}

func (mf *ModelFile) check() error {
	if mf.Kind != ModelSoftmax {
		return fmt.Errorf("unsupported model kind %q", mf.Kind)
	}
	if len(mf.Weights) != mf.Classes || len(mf.Bias) != mf.Classes {
		return fmt.Errorf("declared %d classes, found %d weight rows and %d bias terms",
			mf.Classes, len(mf.Weights), len(mf.Bias))
	}
	for i, row := range mf.Weights {
		if len(row) != mf.Features {
			return fmt.Errorf("row %d has %d weights, declared %d features", i, len(row), mf.Features)
		}
	}
	return nil
}

// Classifier builds the model described by mf.
func (mf *ModelFile) Classifier() (classify.Classifier, error) {
	m, err := classify.NewSoftmaxModel(mf.Weights, mf.Bias)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	return m, nil
}

// Load reads both files and checks that the classifier matches the
// vocabulary and the labels.
func Load(vocabPath, modelPath string) (*Bundle, error) {
	vf, err := LoadVocabulary(vocabPath)
	if err != nil {
		return nil, err
	}
	mf, err := LoadModel(modelPath)
	if err != nil {
		return nil, err
	}

	v, err := vocab.New(vf.Symptoms)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifact, vocabPath, err)
	}
	codec, err := vocab.NewLabelCodec(vf.Diseases)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifact, vocabPath, err)
	}
	if mf.Features != v.Len() || mf.Classes != codec.Len() {
		return nil, fmt.Errorf("%w: model is %d x %d, vocabulary has %d symptoms and %d diseases",
			ErrArtifact, mf.Classes, mf.Features, v.Len(), codec.Len())
	}
	clf, err := mf.Classifier()
	if err != nil {
		return nil, err
	}
	return &Bundle{Vocabulary: v, Codec: codec, Classifier: clf}, nil
}

func SaveVocabulary(path string, vf *VocabularyFile) error {
	return encodeFile(path, vf)
}

func SaveModel(path string, mf *ModelFile) error {
	if err := mf.check(); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	return encodeFile(path, mf)
}

func decodeFile(path string, kind FileKind, v any) error {
	if err := ValidateFile(path, kind); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrArtifact, path, err)
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrArtifact, path, err)
	}
	return nil
}

// encodeFile writes through a temp file so readers never see a partial file.
func encodeFile(path string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrArtifact, path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create dir for %s: %v", ErrArtifact, path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrArtifact, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrArtifact, tmp, err)
	}
	return nil
}
