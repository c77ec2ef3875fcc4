/*
Package config manages TOML config for SymptoServe services.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/symptoserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Matcher   MatcherConfig   `toml:"matcher"`
	Ranker    RankerConfig    `toml:"ranker"`
	Suggest   SuggestConfig   `toml:"suggest"`
	Semantic  SemanticConfig  `toml:"semantic"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// MatcherConfig holds symptom matching options.
type MatcherConfig struct {
	Threshold        float64 `toml:"threshold"`
	PredictThreshold float64 `toml:"predict_threshold"`
	SemanticScale    float64 `toml:"semantic_scale"`
	LexicalScale     float64 `toml:"lexical_scale"`
	SuggestFloor     float64 `toml:"suggest_floor"`
	Workers          int     `toml:"workers"`
}

// RankerConfig holds disease ranking options.
type RankerConfig struct {
	TopN                int     `toml:"top_n"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// SuggestConfig holds autocomplete options.
type SuggestConfig struct {
	Limit int `toml:"limit"`
}

// SemanticConfig selects and configures the optional embedding backend.
// The OpenAI key is never stored here, it is read from OPENAI_API_KEY.
type SemanticConfig struct {
	Backend           string `toml:"backend"`
	OrtLibrary        string `toml:"ort_library"`
	ModelPath         string `toml:"model_path"`
	TokenizerPath     string `toml:"tokenizer_path"`
	MaxSeqLen         int    `toml:"max_seq_len"`
	InputIDsName      string `toml:"input_ids_name"`
	AttentionMaskName string `toml:"attention_mask_name"`
	TokenTypeIDsName  string `toml:"token_type_ids_name"`
	OutputName        string `toml:"output_name"`
	OpenAIModel       string `toml:"openai_model"`
	OpenAIBaseURL     string `toml:"openai_base_url"`
	CacheTTLSeconds   int    `toml:"cache_ttl_seconds"`
}

// ArtifactsConfig names the trained files. Relative names resolve against Dir.
type ArtifactsConfig struct {
	Dir         string `toml:"dir"`
	Vocabulary  string `toml:"vocabulary"`
	Model       string `toml:"model"`
	DiseaseInfo string `toml:"disease_info"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxSymptoms       int     `toml:"max_symptoms"`
	MaxInputLen       int     `toml:"max_input_len"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `toml:"level"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "symptoserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "symptoserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/symptoserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Matcher: MatcherConfig{
			Threshold:        80,
			PredictThreshold: 75,
			SemanticScale:    0.8,
			LexicalScale:     0.7,
			SuggestFloor:     60,
			Workers:          0,
		},
		Ranker: RankerConfig{
			TopN:                3,
			ConfidenceThreshold: 0.3,
		},
		Suggest: SuggestConfig{
			Limit: 10,
		},
		Semantic: SemanticConfig{
			Backend:         "none",
			MaxSeqLen:       128,
			CacheTTLSeconds: 600,
		},
		Artifacts: ArtifactsConfig{
			Dir:         "data",
			Vocabulary:  "vocabulary.msgpack",
			Model:       "model.msgpack",
			DiseaseInfo: "disease_info.yaml",
		},
		Server: ServerConfig{
			MaxSymptoms:       32,
			MaxInputLen:       256,
			RequestsPerSecond: 200,
			Burst:             50,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	config.Sanitize()
	return config, nil
}

// tryPartialParse keeps every well-typed key of a file that failed strict
// decoding. Keys of the wrong type fall back to their defaults.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "matcher"); ok {
		extractMatcherConfig(section, &config.Matcher)
	}
	if section, ok := utils.ExtractSection(tempConfig, "ranker"); ok {
		extractRankerConfig(section, &config.Ranker)
	}
	if section, ok := utils.ExtractSection(tempConfig, "suggest"); ok {
		if val, ok := utils.ExtractInt64(section, "limit"); ok {
			config.Suggest.Limit = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "semantic"); ok {
		extractSemanticConfig(section, &config.Semantic)
	}
	if section, ok := utils.ExtractSection(tempConfig, "artifacts"); ok {
		extractArtifactsConfig(section, &config.Artifacts)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "log"); ok {
		if val, ok := utils.ExtractString(section, "level"); ok {
			config.Log.Level = val
		}
	}
	config.Sanitize()
	return config, nil
}

func extractMatcherConfig(data map[string]any, m *MatcherConfig) {
	if val, ok := utils.ExtractFloat(data, "threshold"); ok {
		m.Threshold = val
	}
	if val, ok := utils.ExtractFloat(data, "predict_threshold"); ok {
		m.PredictThreshold = val
	}
	if val, ok := utils.ExtractFloat(data, "semantic_scale"); ok {
		m.SemanticScale = val
	}
	if val, ok := utils.ExtractFloat(data, "lexical_scale"); ok {
		m.LexicalScale = val
	}
	if val, ok := utils.ExtractFloat(data, "suggest_floor"); ok {
		m.SuggestFloor = val
	}
	if val, ok := utils.ExtractInt64(data, "workers"); ok {
		m.Workers = val
	}
}

func extractRankerConfig(data map[string]any, r *RankerConfig) {
	if val, ok := utils.ExtractInt64(data, "top_n"); ok {
		r.TopN = val
	}
	if val, ok := utils.ExtractFloat(data, "confidence_threshold"); ok {
		r.ConfidenceThreshold = val
	}
}

func extractSemanticConfig(data map[string]any, s *SemanticConfig) {
	strs := map[string]*string{
		"backend":             &s.Backend,
		"ort_library":         &s.OrtLibrary,
		"model_path":          &s.ModelPath,
		"tokenizer_path":      &s.TokenizerPath,
		"input_ids_name":      &s.InputIDsName,
		"attention_mask_name": &s.AttentionMaskName,
		"token_type_ids_name": &s.TokenTypeIDsName,
		"output_name":         &s.OutputName,
		"openai_model":        &s.OpenAIModel,
		"openai_base_url":     &s.OpenAIBaseURL,
	}
	for key, dst := range strs {
		if val, ok := utils.ExtractString(data, key); ok {
			*dst = val
		}
	}
	if val, ok := utils.ExtractInt64(data, "max_seq_len"); ok {
		s.MaxSeqLen = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_ttl_seconds"); ok {
		s.CacheTTLSeconds = val
	}
}

func extractArtifactsConfig(data map[string]any, a *ArtifactsConfig) {
	if val, ok := utils.ExtractString(data, "dir"); ok {
		a.Dir = val
	}
	if val, ok := utils.ExtractString(data, "vocabulary"); ok {
		a.Vocabulary = val
	}
	if val, ok := utils.ExtractString(data, "model"); ok {
		a.Model = val
	}
	if val, ok := utils.ExtractString(data, "disease_info"); ok {
		a.DiseaseInfo = val
	}
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_symptoms"); ok {
		server.MaxSymptoms = val
	}
	if val, ok := utils.ExtractInt64(data, "max_input_len"); ok {
		server.MaxInputLen = val
	}
	if val, ok := utils.ExtractFloat(data, "requests_per_second"); ok {
		server.RequestsPerSecond = val
	}
	if val, ok := utils.ExtractInt64(data, "burst"); ok {
		server.Burst = val
	}
}

// Sanitize replaces out of range values with their defaults.
func (c *Config) Sanitize() {
	d := DefaultConfig()
	m := &c.Matcher
	if m.Threshold <= 0 || m.Threshold > 100 {
		log.Warnf("matcher.threshold %v out of range, using %v", m.Threshold, d.Matcher.Threshold)
		m.Threshold = d.Matcher.Threshold
	}
	if m.PredictThreshold <= 0 || m.PredictThreshold > 100 {
		log.Warnf("matcher.predict_threshold %v out of range, using %v", m.PredictThreshold, d.Matcher.PredictThreshold)
		m.PredictThreshold = d.Matcher.PredictThreshold
	}
	if m.SemanticScale <= 0 || m.SemanticScale > 1 {
		m.SemanticScale = d.Matcher.SemanticScale
	}
	if m.LexicalScale <= 0 || m.LexicalScale > 1 {
		m.LexicalScale = d.Matcher.LexicalScale
	}
	if m.SuggestFloor < 0 || m.SuggestFloor >= 100 {
		m.SuggestFloor = d.Matcher.SuggestFloor
	}
	if m.Workers < 0 {
		m.Workers = 0
	}
	if c.Ranker.TopN < 1 {
		c.Ranker.TopN = d.Ranker.TopN
	}
	if c.Ranker.ConfidenceThreshold < 0 || c.Ranker.ConfidenceThreshold > 1 {
		log.Warnf("ranker.confidence_threshold %v out of range, using %v",
			c.Ranker.ConfidenceThreshold, d.Ranker.ConfidenceThreshold)
		c.Ranker.ConfidenceThreshold = d.Ranker.ConfidenceThreshold
	}
	if c.Suggest.Limit < 1 {
		c.Suggest.Limit = d.Suggest.Limit
	}
	if c.Semantic.Backend == "" {
		c.Semantic.Backend = d.Semantic.Backend
	}
	if c.Semantic.CacheTTLSeconds < 0 {
		c.Semantic.CacheTTLSeconds = 0
	}
	if c.Server.MaxSymptoms < 1 {
		c.Server.MaxSymptoms = d.Server.MaxSymptoms
	}
	if c.Server.MaxInputLen < 1 {
		c.Server.MaxInputLen = d.Server.MaxInputLen
	}
	if c.Server.RequestsPerSecond < 0 {
		c.Server.RequestsPerSecond = 0
	}
	if c.Server.Burst < 1 {
		c.Server.Burst = d.Server.Burst
	}
}

// CacheTTL returns the embedding cache lifetime.
func (s SemanticConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// ArtifactPath resolves one of the artifact names against Dir.
func (a ArtifactsConfig) ArtifactPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.Dir, name)
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
