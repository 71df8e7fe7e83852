package app

import (
	"context"
	"fmt"

	"github.com/yungbote/thinkbank-worker/internal/capability"
	"github.com/yungbote/thinkbank-worker/internal/clients/gcp"
	"github.com/yungbote/thinkbank-worker/internal/clients/inference"
	"github.com/yungbote/thinkbank-worker/internal/clients/llm"
	"github.com/yungbote/thinkbank-worker/internal/clients/objectstore"
	"github.com/yungbote/thinkbank-worker/internal/ingestion/pipeline"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

func wireStore(ctx context.Context, cfg Config, log *logger.Logger) (objectstore.Store, error) {
	switch cfg.ObjectStore {
	case StoreGCS:
		return objectstore.NewGCSStore(ctx, objectstore.GCSConfig{EmulatorHost: cfg.GCSEmulatorHost}, log)
	default:
		return objectstore.NewMinioStore(objectstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioUser,
			SecretKey: cfg.MinioPassword,
			Secure:    cfg.MinioSecure,
			Region:    cfg.MinioRegion,
		}, log)
	}
}

// wireCapabilities builds the model clients once. The inference service
// always backs image embedding and captioning; text embedding, generation and
// classification can be pointed elsewhere.
func wireCapabilities(ctx context.Context, cfg Config, log *logger.Logger) (capability.Set, []func() error, error) {
	log.Info("Wiring model clients...",
		"text_embed", cfg.TextEmbedProvider,
		"generate", cfg.GenerateProvider,
		"classifier", cfg.Classifier,
	)
	inf, err := inference.New(inference.Options{
		BaseURL:          cfg.InferenceBaseURL,
		APIKey:           cfg.InferenceAPIKey,
		TextModel:        cfg.TextModel,
		EmbedModel:       cfg.EmbedModel,
		ImageModel:       cfg.ImageModel,
		CaptionModel:     cfg.CaptionModel,
		ClassifyModel:    cfg.ClassifyModel,
		CaptionMaxTokens: cfg.CaptionMaxTokens,
		Timeout:          cfg.InferenceTimeout,
		MaxRetries:       cfg.InferenceMaxRetries,
	})
	if err != nil {
		return capability.Set{}, nil, fmt.Errorf("init inference client: %w", err)
	}
	set := capability.Set{
		Text:       inf,
		Image:      inf,
		Captioner:  inf,
		Classifier: inf,
		Generator:  inf,
	}
	var closers []func() error

	if cfg.TextEmbedProvider == ProviderOpenAI || cfg.GenerateProvider == ProviderOpenAI {
		lc, err := llm.New(llm.Config{
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			EmbedModel: cfg.OpenAIEmbedModel,
		}, log)
		if err != nil {
			return capability.Set{}, nil, fmt.Errorf("init openai-compatible client: %w", err)
		}
		if cfg.TextEmbedProvider == ProviderOpenAI {
			set.Text = lc
		}
		if cfg.GenerateProvider == ProviderOpenAI {
			set.Generator = lc
		}
	}
	if cfg.GenerateProvider == ProviderNone {
		set.Generator = nil
	}

	switch cfg.Classifier {
	case ClassifierGCPVision:
		vc, err := gcp.NewVisionClassifier(ctx, log)
		if err != nil {
			return capability.Set{}, nil, fmt.Errorf("init vision classifier: %w", err)
		}
		set.Classifier = vc
		closers = append(closers, vc.Close)
	case ProviderNone:
		set.Classifier = nil
	}
	return set, closers, nil
}

func wirePipeline(cfg Config, caps capability.Set, log *logger.Logger) (pipeline.Service, error) {
	keywords, err := pipeline.LoadKeywordTable(cfg.KeywordTablePath)
	if err != nil {
		return nil, err
	}
	pcfg := pipeline.DefaultConfig()
	pcfg.MaxImageSide = cfg.MaxImageSide
	pl, err := pipeline.New(caps, keywords, pcfg, log)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	return pl, nil
}
