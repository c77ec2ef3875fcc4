package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bastiangx/symptoserve/pkg/vocab"
)

func writeTestArtifacts(t *testing.T, dir string) {
	t.Helper()
	vf := &VocabularyFile{
		Symptoms: []string{"itching", "skin rash", "chills"},
		Diseases: []string{"Fungal infection", "Allergy"},
	}
	mf := &ModelFile{
		Kind:     ModelSoftmax,
		Classes:  2,
		Features: 3,
		Weights:  [][]float64{{2, 2, 0}, {0, 0, 2}},
		Bias:     []float64{0, 0},
	}
	if err := SaveVocabulary(filepath.Join(dir, DefaultVocabularyFile), vf); err != nil {
		t.Fatalf("SaveVocabulary: %v", err)
	}
	if err := SaveModel(filepath.Join(dir, DefaultModelFile), mf); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
}

func TestLoadDefaultNames(t *testing.T) {
	dir := t.TempDir()
	writeTestArtifacts(t, dir)

	b, err := Load(filepath.Join(dir, DefaultVocabularyFile), filepath.Join(dir, DefaultModelFile))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Vocabulary.Len() != 3 || b.Codec.Len() != 2 {
		t.Fatalf("unexpected sizes %d/%d", b.Vocabulary.Len(), b.Codec.Len())
	}
	if b.Classifier.NumFeatures() != 3 || b.Classifier.NumClasses() != 2 {
		t.Fatalf("unexpected classifier shape")
	}
	if name, _ := b.Codec.Decode(1); name != "Allergy" {
		t.Errorf("Decode(1) = %q", name)
	}

	probs, err := b.Classifier.PredictProba([]float64{1, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if probs[0] <= probs[1] {
		t.Errorf("expected Fungal infection to dominate, got %v", probs)
	}
}

func TestLoadVocabularyPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	writeTestArtifacts(t, dir)

	vf, err := LoadVocabulary(filepath.Join(dir, DefaultVocabularyFile))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vf.Symptoms, []string{"itching", "skin rash", "chills"}) {
		t.Errorf("symptoms = %v", vf.Symptoms)
	}
}

func TestLoadMismatchedBundle(t *testing.T) {
	dir := t.TempDir()
	writeTestArtifacts(t, dir)

	wide := &ModelFile{
		Kind:     ModelSoftmax,
		Classes:  2,
		Features: 4,
		Weights:  [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}},
		Bias:     []float64{0, 0},
	}
	path := filepath.Join(dir, "model_wide.msgpack")
	if err := SaveModel(path, wide); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(filepath.Join(dir, DefaultVocabularyFile), path); !errors.Is(err, ErrArtifact) {
		t.Errorf("expected ErrArtifact, got %v", err)
	}
}

func TestLoadBadVocabulary(t *testing.T) {
	dir := t.TempDir()
	writeTestArtifacts(t, dir)

	path := filepath.Join(dir, "vocab_dup.msgpack")
	if err := SaveVocabulary(path, &VocabularyFile{
		Symptoms: []string{"itching", "itching", "chills"},
		Diseases: []string{"Fungal infection", "Allergy"},
	}); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path, filepath.Join(dir, DefaultModelFile))
	if !errors.Is(err, ErrArtifact) || !errors.Is(err, vocab.ErrInvalidVocabulary) {
		t.Errorf("expected ErrArtifact wrapping ErrInvalidVocabulary, got %v", err)
	}
}

func TestModelShapeChecks(t *testing.T) {
	testCases := []struct {
		model       ModelFile
		description string
	}{
		{ModelFile{Kind: "forest", Classes: 1, Features: 1, Weights: [][]float64{{1}}, Bias: []float64{0}}, "Unsupported kind"},
		{ModelFile{Kind: ModelSoftmax, Classes: 2, Features: 1, Weights: [][]float64{{1}}, Bias: []float64{0}}, "Missing rows"},
		{ModelFile{Kind: ModelSoftmax, Classes: 1, Features: 2, Weights: [][]float64{{1}}, Bias: []float64{0}}, "Short row"},
		{ModelFile{Kind: ModelSoftmax, Classes: 1, Features: 1, Weights: [][]float64{{1}}}, "Missing bias"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.msgpack")
			if err := SaveModel(path, &tc.model); !errors.Is(err, ErrArtifact) {
				t.Errorf("SaveModel: expected ErrArtifact, got %v", err)
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	writeTestArtifacts(t, dir)

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	valid := filepath.Join(dir, DefaultVocabularyFile)
	if err := ValidateFile(valid, KindVocabulary); err != nil {
		t.Errorf("valid vocabulary rejected: %v", err)
	}

	testCases := []struct {
		path        string
		kind        FileKind
		description string
	}{
		{filepath.Join(dir, "missing.msgpack"), KindVocabulary, "Missing file"},
		{dir, KindVocabulary, "Directory"},
		{write("vocab.bin", []byte{0x82, 0, 0, 0, 0}), KindVocabulary, "Wrong extension"},
		{write("tiny.msgpack", []byte{0x82}), KindVocabulary, "Too small"},
		{write("array.msgpack", []byte{0x92, 0xa1, 'a', 0xa1, 'b'}), KindVocabulary, "Not a map"},
		{valid, KindUnknown, "Unknown kind"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if err := ValidateFile(tc.path, tc.kind); !errors.Is(err, ErrArtifact) {
				t.Errorf("expected ErrArtifact, got %v", err)
			}
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.msgpack")
	// fixmap with one entry whose key is a truncated string
	if err := os.WriteFile(path, []byte{0x81, 0xa8, 's', 'y', 'm'}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadVocabulary(path); !errors.Is(err, ErrArtifact) {
		t.Errorf("expected ErrArtifact, got %v", err)
	}
}

func TestDetectKind(t *testing.T) {
	testCases := map[string]FileKind{
		"data/vocabulary.msgpack": KindVocabulary,
		"vocab.mp":                KindVocabulary,
		"model.msgpack":           KindModel,
		"disease_info.yaml":       KindCatalog,
		"info.yml":                KindCatalog,
		"weights.msgpack":         KindUnknown,
		"dict_0001.bin":           KindUnknown,
	}
	for path, want := range testCases {
		if got := DetectKind(path); got != want {
			t.Errorf("DetectKind(%q) = %v, want %v", path, got, want)
		}
	}
}
