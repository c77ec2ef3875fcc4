package predict

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/symptoserve/pkg/classify"
	"github.com/bastiangx/symptoserve/pkg/match"
	"github.com/bastiangx/symptoserve/pkg/vocab"
)

var testSymptoms = []string{
	"itching", "skin rash", "nodal skin eruptions", "continuous sneezing",
	"shivering", "chills", "joint pain", "stomach pain", "acidity",
	"ulcers on tongue", "muscle wasting", "vomiting", "burning micturition",
	"fatigue", "weight gain", "anxiety", "cold hands and feets", "mood swings",
	"weight loss", "restlessness", "high fever", "headache", "chest pain",
	"skin peeling",
}

var testDiseases = []struct {
	name     string
	symptoms []string
}{
	{"Fungal infection", []string{"itching", "skin rash", "nodal skin eruptions", "skin peeling"}},
	{"Allergy", []string{"continuous sneezing", "shivering", "chills"}},
	{"GERD", []string{"stomach pain", "acidity", "ulcers on tongue", "vomiting", "chest pain"}},
	{"Malaria", []string{"chills", "vomiting", "high fever", "headache", "muscle wasting"}},
	{"Hypothyroidism", []string{"fatigue", "weight gain", "cold hands and feets", "mood swings", "restlessness", "anxiety"}},
}

type countingClassifier struct {
	classify.Classifier
	calls atomic.Int32
}

func (c *countingClassifier) PredictProba(x []float64) ([]float64, error) {
	c.calls.Add(1)
	return c.Classifier.PredictProba(x)
}

// testModel weighs every symptom associated with a disease by 3.
func testModel(t testing.TB) (*vocab.Vocabulary, *vocab.LabelCodec, *countingClassifier) {
	t.Helper()
	v, err := vocab.New(testSymptoms)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(testDiseases))
	weights := make([][]float64, len(testDiseases))
	for i, d := range testDiseases {
		names[i] = d.name
		weights[i] = make([]float64, v.Len())
		for _, s := range d.symptoms {
			j, _ := v.Index(s)
			weights[i][j] = 3
		}
	}
	codec, err := vocab.NewLabelCodec(names)
	if err != nil {
		t.Fatal(err)
	}
	model, err := classify.NewSoftmaxModel(weights, make([]float64, len(names)))
	if err != nil {
		t.Fatal(err)
	}
	return v, codec, &countingClassifier{Classifier: model}
}

func newTestPredictor(t testing.TB, opts ...Option) (*Predictor, *countingClassifier) {
	t.Helper()
	v, codec, clf := testModel(t)
	p, err := New(context.Background(), v, codec, clf, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, clf
}

func diseases(r Result) []string {
	out := make([]string, len(r.Predictions))
	for i, p := range r.Predictions {
		out[i] = p.Disease
	}
	return out
}

func TestPredict(t *testing.T) {
	p, _ := newTestPredictor(t)

	testCases := []struct {
		symptoms    []string
		opts        []Option
		diseases    []string
		matched     []string
		outcome     string
		description string
	}{
		{
			[]string{"itching", "skin rash", "nodal skin eruptions"},
			[]Option{WithConfidenceThreshold(0.05)},
			[]string{"Fungal infection"},
			[]string{"itching", "skin rash", "nodal skin eruptions"},
			OutcomeOK,
			"Three exact symptoms",
		},
		{
			[]string{"chills"},
			nil,
			[]string{"Allergy", "Malaria"},
			[]string{"chills"},
			OutcomeOK,
			"Tied diseases keep label order",
		},
		{
			[]string{"CHILLS", "vomitting", "fever"},
			nil,
			[]string{"Malaria"},
			[]string{"chills", "vomiting", "high fever"},
			OutcomeOK,
			"Exact, fuzzy and lexical matches combined",
		},
		{
			[]string{"joint pain"},
			nil,
			[]string{},
			[]string{"joint pain"},
			OutcomeBelowConfidence,
			"Uniform distribution under default threshold",
		},
		{
			[]string{"joint pain"},
			[]Option{WithConfidenceThreshold(0.1)},
			[]string{"Fungal infection", "Allergy", "GERD"},
			[]string{"joint pain"},
			OutcomeOK,
			"Uniform distribution capped at top three",
		},
		{
			[]string{"joint pain"},
			[]Option{WithConfidenceThreshold(0.1), WithTopN(5)},
			[]string{"Fungal infection", "Allergy", "GERD", "Malaria", "Hypothyroidism"},
			[]string{"joint pain"},
			OutcomeOK,
			"Per call topN",
		},
		{
			[]string{"joint pain"},
			[]Option{WithConfidenceThreshold(1.5), WithTopN(0)},
			[]string{},
			[]string{"joint pain"},
			OutcomeBelowConfidence,
			"Out of range options fall back to defaults",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			res, err := p.Predict(context.Background(), tc.symptoms, tc.opts...)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if got := diseases(res); !reflect.DeepEqual(got, tc.diseases) {
				t.Errorf("diseases = %v, want %v", got, tc.diseases)
			}
			matched := make([]string, len(res.Matched))
			for i, m := range res.Matched {
				matched[i] = m.Symptom
			}
			if !reflect.DeepEqual(matched, tc.matched) {
				t.Errorf("matched = %v, want %v", matched, tc.matched)
			}
			if res.Outcome() != tc.outcome {
				t.Errorf("outcome = %s, want %s", res.Outcome(), tc.outcome)
			}
			for _, pred := range res.Predictions {
				if !reflect.DeepEqual(pred.Symptoms, res.Matched) {
					t.Errorf("%s carries %v, want the matched set", pred.Disease, pred.Symptoms)
				}
			}
		})
	}
}

func TestActiveFeaturesLoggedOnlyAtDebug(t *testing.T) {
	p, _ := newTestPredictor(t)
	var buf bytes.Buffer
	level := log.GetLevel()
	log.SetOutput(&buf)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(level)
	})

	testCases := []struct {
		level       log.Level
		logged      bool
		description string
	}{
		{log.InfoLevel, false, "Info level"},
		{log.DebugLevel, true, "Debug level"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			buf.Reset()
			log.SetLevel(tc.level)
			if _, err := p.Predict(context.Background(), []string{"itching", "skin rash"}); err != nil {
				t.Fatal(err)
			}
			if got := strings.Contains(buf.String(), "active features"); got != tc.logged {
				t.Errorf("active features logged = %v, want %v:\n%s", got, tc.logged, buf.String())
			}
		})
	}
}

func TestPredictProbabilities(t *testing.T) {
	p, _ := newTestPredictor(t)
	res, err := p.Predict(context.Background(), []string{"chills", "vomiting", "high fever"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Predictions) != 1 {
		t.Fatalf("expected one prediction, got %+v", res.Predictions)
	}
	// exp(9) / (exp(9) + 2 exp(3) + 2)
	want := math.Exp(9) / (math.Exp(9) + 2*math.Exp(3) + 2)
	if got := res.Predictions[0].Probability; math.Abs(got-want) > 1e-12 {
		t.Errorf("probability = %v, want %v", got, want)
	}
}

func TestPredictNoMatch(t *testing.T) {
	p, clf := newTestPredictor(t)

	for _, input := range [][]string{nil, {}, {"xyz123", "notasymptom"}, {"", "  "}} {
		res, err := p.Predict(context.Background(), input)
		if err != nil {
			t.Fatalf("Predict(%v): %v", input, err)
		}
		if len(res.Predictions) != 0 || len(res.Matched) != 0 {
			t.Errorf("Predict(%v) = %+v, want empty", input, res)
		}
		if res.Outcome() != OutcomeNoMatch {
			t.Errorf("Predict(%v) outcome = %s", input, res.Outcome())
		}
	}
	if n := clf.calls.Load(); n != 0 {
		t.Errorf("classifier called %d times without matches", n)
	}
}

func TestPredictIsIdempotent(t *testing.T) {
	p, _ := newTestPredictor(t)
	input := []string{"rash skin", "itching", "fever", "stomach ache"}

	first, err := p.Predict(context.Background(), input, WithConfidenceThreshold(0.01))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := p.Predict(context.Background(), input, WithConfidenceThreshold(0.01))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestPredictConcurrent(t *testing.T) {
	p, _ := newTestPredictor(t)
	inputs := [][]string{
		{"itching", "skin rash"},
		{"chills", "vomitting", "fever"},
		{"fatigue", "weight gain", "mood"},
		{"xyz123"},
	}
	want := make([]Result, len(inputs))
	for i, in := range inputs {
		want[i], _ = p.Predict(context.Background(), in)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			i := g % len(inputs)
			got, err := p.Predict(context.Background(), inputs[i])
			if err != nil || !reflect.DeepEqual(got, want[i]) {
				errs <- inputs[i][0]
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for in := range errs {
		t.Errorf("concurrent result differs for input starting with %q", in)
	}
}

func TestPredictCancelled(t *testing.T) {
	p, _ := newTestPredictor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Predict(ctx, []string{"itching"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewMisaligned(t *testing.T) {
	v, codec, clf := testModel(t)

	short, _ := vocab.New(testSymptoms[:10])
	if _, err := New(context.Background(), short, codec, clf); !errors.Is(err, ErrMisaligned) {
		t.Errorf("feature mismatch: expected ErrMisaligned, got %v", err)
	}

	fewer, _ := vocab.NewLabelCodec([]string{"Allergy", "GERD"})
	if _, err := New(context.Background(), v, fewer, clf); !errors.Is(err, ErrMisaligned) {
		t.Errorf("class mismatch: expected ErrMisaligned, got %v", err)
	}

	if _, err := New(context.Background(), nil, codec, clf); !errors.Is(err, ErrMisaligned) {
		t.Errorf("nil vocabulary: expected ErrMisaligned, got %v", err)
	}
}

func TestSuggest(t *testing.T) {
	p, _ := newTestPredictor(t)

	if got := p.Suggest("skin", 0); len(got) != 5 {
		t.Errorf("default limit: got %v", got)
	}
	if got := p.Suggest("skin", 2); !reflect.DeepEqual(got, []string{"skin rash", "nodal skin eruptions"}) {
		t.Errorf("Suggest(skin, 2) = %v", got)
	}
	if got := p.Suggest("", 5); len(got) != 0 {
		t.Errorf("empty input: got %v", got)
	}

	limited, _ := newTestPredictor(t, WithSuggestLimit(1))
	if got := limited.Suggest("skin", 0); !reflect.DeepEqual(got, []string{"skin rash"}) {
		t.Errorf("configured limit: got %v", got)
	}
}

func TestMatcherOptionsReachMatcher(t *testing.T) {
	p, _ := newTestPredictor(t, WithMatcherOptions(match.Options{LexicalScale: 0.95}))
	res, _ := p.Predict(context.Background(), []string{"fever"})
	if res.Outcome() != OutcomeNoMatch {
		t.Errorf("lexical scale 0.95 should reject fever, got %+v", res.Matched)
	}
}

const testCatalog = `
Malaria:
  description: A disease caused by Plasmodium parasites.
  precautions: [Consult nearest hospital, Avoid oily food]
  medications: [Antimalarial drugs]
  workout: [Rest]
  diet: [Hydration]
Allergy:
  description: An immune response to a foreign substance.
`

func TestCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disease_info.yaml")
	if err := os.WriteFile(path, []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(c) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(c))
	}

	p, _ := newTestPredictor(t, WithCatalog(c))
	res, err := p.Predict(context.Background(), []string{"chills"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Predictions) != 2 {
		t.Fatalf("expected Allergy and Malaria, got %v", diseases(res))
	}
	for _, pred := range res.Predictions {
		if pred.Info == nil {
			t.Fatalf("%s has no info", pred.Disease)
		}
	}
	malaria := res.Predictions[1].Info
	if malaria.Description == "" || !reflect.DeepEqual(malaria.Precautions, []string{"Consult nearest hospital", "Avoid oily food"}) {
		t.Errorf("unexpected Malaria info %+v", malaria)
	}

	res, _ = p.Predict(context.Background(), []string{"fatigue"})
	if res.Predictions[0].Info != nil {
		t.Error("disease missing from catalog should have no info")
	}
}

func TestCatalogErrors(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrCatalog) {
		t.Errorf("missing file: expected ErrCatalog, got %v", err)
	}
	if _, err := ParseCatalog([]byte("Malaria: [unclosed")); !errors.Is(err, ErrCatalog) {
		t.Errorf("malformed yaml: expected ErrCatalog, got %v", err)
	}
	c, err := ParseCatalog(nil)
	if err != nil || c == nil || len(c) != 0 {
		t.Errorf("empty catalog = %v, %v", c, err)
	}
}

func BenchmarkPredict(b *testing.B) {
	p, _ := newTestPredictor(b)
	input := []string{"itching", "rash skin", "fever", "stomach ache"}
	for i := 0; i < b.N; i++ {
		p.Predict(context.Background(), input)
	}
}
