package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/yungbote/thinkbank-worker/internal/capability"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

// Config targets any OpenAI-compatible endpoint (vLLM, Ollama, TEI, OpenAI).
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
}

// Client serves text embedding and text generation through langchaingo.
type Client struct {
	log      *logger.Logger
	model    llms.Model
	embedder embeddings.Embedder
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("missing OPENAI_BASE_URL")
	}
	token := strings.TrimSpace(cfg.APIKey)
	if token == "" {
		// Local OpenAI-compatible servers ignore the token but the client requires one.
		token = "none"
	}

	opts := []openai.Option{
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithToken(token),
	}
	if m := strings.TrimSpace(cfg.Model); m != "" {
		opts = append(opts, openai.WithModel(m))
	}
	if m := strings.TrimSpace(cfg.EmbedModel); m != "" {
		opts = append(opts, openai.WithEmbeddingModel(m))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	return &Client{
		log:      log.With("service", "OpenAICompatLLM"),
		model:    client,
		embedder: embedder,
	}, nil
}

func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, errors.New("embedder returned empty result")
	}
	return vecs[0], nil
}

func (c *Client) Generate(ctx context.Context, prompt string, opts capability.GenerateOptions) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		callOpts = append(callOpts, llms.WithTopP(opts.TopP))
	}

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from model")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

var (
	_ capability.TextEmbedder = (*Client)(nil)
	_ capability.Generator    = (*Client)(nil)
)
