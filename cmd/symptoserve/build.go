package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/symptoserve/internal/utils"
	"github.com/bastiangx/symptoserve/pkg/artifact"
	"github.com/bastiangx/symptoserve/pkg/config"
	"github.com/bastiangx/symptoserve/pkg/embed"
	"github.com/bastiangx/symptoserve/pkg/match"
	"github.com/bastiangx/symptoserve/pkg/predict"
)

// artifactPaths resolves the data dir and the three artifact paths.
func artifactPaths(a config.ArtifactsConfig) (vocabPath, modelPath, catalogPath string) {
	if !filepath.IsAbs(a.Vocabulary) || !filepath.IsAbs(a.Model) {
		pr, err := utils.NewPathResolver(a.Vocabulary, a.Model)
		if err != nil {
			log.Warnf("Failed to initialize path resolver: %v", err)
		} else {
			a.Dir = pr.GetDataDir(a.Dir)
		}
	}
	log.Debugf("Using data dir at: %s", a.Dir)
	return a.ArtifactPath(a.Vocabulary), a.ArtifactPath(a.Model), a.ArtifactPath(a.DiseaseInfo)
}

// loadCatalog treats a missing or broken catalog as optional.
func loadCatalog(path string) predict.Catalog {
	if path == "" || !utils.FileExists(path) {
		log.Debugf("No disease catalog at %s", path)
		return nil
	}
	if err := artifact.ValidateFile(path, artifact.KindCatalog); err != nil {
		log.Warnf("Ignoring disease catalog: %v", err)
		return nil
	}
	c, err := predict.LoadCatalog(path)
	if err != nil {
		log.Warnf("Ignoring disease catalog: %v", err)
		return nil
	}
	log.Debugf("Loaded disease catalog %s: %d entries", path, len(c))
	return c
}

func embedConfig(s config.SemanticConfig) embed.Config {
	return embed.Config{
		Backend:           s.Backend,
		OrtLibrary:        s.OrtLibrary,
		ModelPath:         s.ModelPath,
		TokenizerPath:     s.TokenizerPath,
		MaxSeqLen:         s.MaxSeqLen,
		InputIDsName:      s.InputIDsName,
		AttentionMaskName: s.AttentionMaskName,
		TokenTypeIDsName:  s.TokenTypeIDsName,
		OutputName:        s.OutputName,
		OpenAIModel:       s.OpenAIModel,
		OpenAIBaseURL:     s.OpenAIBaseURL,
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		CacheTTL:          s.CacheTTL(),
	}
}

// newEmbedder returns nil when the semantic stage is off or cannot start.
func newEmbedder(s config.SemanticConfig) embed.Embedder {
	e, err := embed.New(embedConfig(s))
	switch {
	case errors.Is(err, embed.ErrDisabled):
		return nil
	case err != nil:
		log.Warn("semantic matching unavailable", "backend", s.Backend, "err", err)
		return nil
	}
	return e
}

func matcherOptions(cfg *config.Config, e embed.Embedder) match.Options {
	return match.Options{
		SemanticScale: cfg.Matcher.SemanticScale,
		LexicalScale:  cfg.Matcher.LexicalScale,
		SuggestFloor:  cfg.Matcher.SuggestFloor,
		Workers:       cfg.Matcher.Workers,
		Embedder:      e,
	}
}

func predictorOptions(cfg *config.Config, e embed.Embedder, catalog predict.Catalog) []predict.Option {
	return []predict.Option{
		predict.WithTopN(cfg.Ranker.TopN),
		predict.WithConfidenceThreshold(cfg.Ranker.ConfidenceThreshold),
		predict.WithMatchThreshold(cfg.Matcher.PredictThreshold),
		predict.WithSuggestLimit(cfg.Suggest.Limit),
		predict.WithMatcherOptions(matcherOptions(cfg, e)),
		predict.WithCatalog(catalog),
	}
}

// loadPredictor builds a predictor from cfg. The returned func releases the
// embedding backend and must be called once the predictor is no longer used.
func loadPredictor(ctx context.Context, cfg *config.Config) (*predict.Predictor, func(), error) {
	vocabPath, modelPath, catalogPath := artifactPaths(cfg.Artifacts)
	bundle, err := artifact.Load(vocabPath, modelPath)
	if err != nil {
		return nil, nil, err
	}
	catalog := loadCatalog(catalogPath)

	e := newEmbedder(cfg.Semantic)
	release := func() {
		if e == nil {
			return
		}
		if err := e.Close(); err != nil {
			log.Warnf("Closing embedder: %v", err)
		}
	}

	p, err := predict.New(ctx, bundle.Vocabulary, bundle.Codec, bundle.Classifier, predictorOptions(cfg, e, catalog)...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return p, release, nil
}
