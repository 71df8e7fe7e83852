// Package capability declares the model services the enrichment pipelines
// call. Implementations live under internal/clients.
package capability

import "context"

type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type ImageEmbedder interface {
	EmbedImage(ctx context.Context, img []byte, mimeType string) ([]float32, error)
}

type Captioner interface {
	Caption(ctx context.Context, img []byte, mimeType, instruction string) (string, error)
}

type Classifier interface {
	// Classify returns one of labels.
	Classify(ctx context.Context, img []byte, mimeType string, labels []string) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Set bundles the services one worker process uses.
type Set struct {
	Text       TextEmbedder
	Image      ImageEmbedder
	Captioner  Captioner
	Classifier Classifier
	Generator  Generator
}
