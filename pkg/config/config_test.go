package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Matcher.Threshold != 80 || c.Matcher.PredictThreshold != 75 {
		t.Errorf("unexpected thresholds %+v", c.Matcher)
	}
	if c.Ranker.TopN != 3 || c.Ranker.ConfidenceThreshold != 0.3 {
		t.Errorf("unexpected ranker %+v", c.Ranker)
	}
	if c.Suggest.Limit != 10 || c.Semantic.Backend != "none" {
		t.Errorf("unexpected suggest/semantic %+v %+v", c.Suggest, c.Semantic)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[matcher]
threshold = 85.0
lexical_scale = 0.6

[ranker]
top_n = 5

[semantic]
backend = "openai"
cache_ttl_seconds = 30
`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Matcher.Threshold != 85 || c.Matcher.LexicalScale != 0.6 {
		t.Errorf("matcher = %+v", c.Matcher)
	}
	if c.Matcher.PredictThreshold != 75 {
		t.Errorf("missing key should keep default, got %v", c.Matcher.PredictThreshold)
	}
	if c.Ranker.TopN != 5 || c.Ranker.ConfidenceThreshold != 0.3 {
		t.Errorf("ranker = %+v", c.Ranker)
	}
	if c.Semantic.Backend != "openai" || c.Semantic.CacheTTL() != 30*time.Second {
		t.Errorf("semantic = %+v", c.Semantic)
	}
}

func TestPartialRecovery(t *testing.T) {
	path := writeConfig(t, `
[matcher]
threshold = "high"
suggest_floor = 50

[ranker]
top_n = 4
confidence_threshold = 0.1

[server]
max_symptoms = 8
requests_per_second = 10

[log]
level = "debug"
`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		got, want   any
		description string
	}{
		{c.Matcher.Threshold, 80.0, "Mistyped key keeps default"},
		{c.Matcher.SuggestFloor, 50.0, "Integer read as float"},
		{c.Ranker.TopN, 4, "Integer key"},
		{c.Ranker.ConfidenceThreshold, 0.1, "Float key"},
		{c.Server.MaxSymptoms, 8, "Other section"},
		{c.Server.RequestsPerSecond, 10.0, "Integer rate"},
		{c.Log.Level, "debug", "String key"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}
}

func TestUnparseableFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "[matcher\nthreshold = = 3")
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if *c != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", c)
	}
}

func TestSanitize(t *testing.T) {
	c := DefaultConfig()
	c.Matcher.Threshold = 150
	c.Matcher.PredictThreshold = 0
	c.Matcher.LexicalScale = 2
	c.Matcher.Workers = -3
	c.Ranker.TopN = 0
	c.Ranker.ConfidenceThreshold = 1.5
	c.Suggest.Limit = -1
	c.Semantic.Backend = ""
	c.Server.Burst = 0
	c.Sanitize()

	d := DefaultConfig()
	if c.Matcher.Threshold != d.Matcher.Threshold || c.Matcher.PredictThreshold != d.Matcher.PredictThreshold {
		t.Errorf("thresholds not reset: %+v", c.Matcher)
	}
	if c.Matcher.LexicalScale != d.Matcher.LexicalScale || c.Matcher.Workers != 0 {
		t.Errorf("matcher not reset: %+v", c.Matcher)
	}
	if c.Ranker != d.Ranker || c.Suggest != d.Suggest {
		t.Errorf("ranker/suggest not reset: %+v %+v", c.Ranker, c.Suggest)
	}
	if c.Semantic.Backend != "none" || c.Server.Burst != d.Server.Burst {
		t.Errorf("semantic/server not reset: %+v %+v", c.Semantic, c.Server)
	}
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	c, err := InitConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if *c != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", c)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	c.Ranker.TopN = 7
	if err := SaveConfig(c, path); err != nil {
		t.Fatal(err)
	}
	reloaded, err := InitConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Ranker.TopN != 7 {
		t.Errorf("TopN = %d after reload", reloaded.Ranker.TopN)
	}
}

func TestArtifactPath(t *testing.T) {
	a := ArtifactsConfig{Dir: "data"}
	if got := a.ArtifactPath("model.msgpack"); got != filepath.Join("data", "model.msgpack") {
		t.Errorf("relative = %q", got)
	}
	if got := a.ArtifactPath("/srv/model.msgpack"); got != "/srv/model.msgpack" {
		t.Errorf("absolute = %q", got)
	}
	if got := a.ArtifactPath(""); got != "" {
		t.Errorf("empty = %q", got)
	}
}

func TestLoadConfigWithPriorityCustomPath(t *testing.T) {
	path := writeConfig(t, "[suggest]\nlimit = 4\n")
	c, used, err := LoadConfigWithPriority(path)
	if err != nil {
		t.Fatal(err)
	}
	if used != path || c.Suggest.Limit != 4 {
		t.Errorf("used %q, limit %d", used, c.Suggest.Limit)
	}
}
