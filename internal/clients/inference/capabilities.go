package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/thinkbank-worker/internal/capability"
)

func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) EmbedTexts(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	req := embeddingsRequest{Model: c.embedModel, Inputs: normalizeStrings(inputs)}

	var resp embeddingsResponse
	if err := c.doJSON(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("embeddings missing index=%d", i)
		}
	}
	return out, nil
}

func (c *Client) EmbedImage(ctx context.Context, img []byte, mimeType string) ([]float32, error) {
	if len(img) == 0 {
		return nil, errors.New("image bytes required")
	}
	req := imageRequest{Model: c.imageModel, ImageBase64: encodeImage(img), MimeType: mimeType}

	var resp imageEmbeddingResponse
	if err := c.doJSON(ctx, "/v1/embeddings/image", req, &resp); err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("empty image embedding")
	}
	return resp.Embedding, nil
}

// Caption may legitimately return "".
func (c *Client) Caption(ctx context.Context, img []byte, mimeType, instruction string) (string, error) {
	if len(img) == 0 {
		return "", errors.New("image bytes required")
	}
	req := imageRequest{
		Model:       c.captionModel,
		ImageBase64: encodeImage(img),
		MimeType:    mimeType,
		Instruction: instruction,
		MaxTokens:   c.captionMaxTokens,
	}
	var resp captionResponse
	if err := c.doJSON(ctx, "/v1/vision/caption", req, &resp); err != nil {
		return "", fmt.Errorf("caption: %w", err)
	}
	return strings.TrimSpace(resp.Caption), nil
}

func (c *Client) Classify(ctx context.Context, img []byte, mimeType string, labels []string) (string, error) {
	if len(img) == 0 {
		return "", errors.New("image bytes required")
	}
	req := imageRequest{
		Model:       c.classifyModel,
		ImageBase64: encodeImage(img),
		MimeType:    mimeType,
		Labels:      labels,
	}
	var resp classifyResponse
	if err := c.doJSON(ctx, "/v1/vision/classify", req, &resp); err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	label := strings.TrimSpace(resp.Label)
	if label == "" {
		return "", errors.New("empty classification label")
	}
	return label, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, opts capability.GenerateOptions) (string, error) {
	req := textGenerateRequest{
		Model:       c.textModel,
		Messages:    []textGenerateMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
	var resp textGenerateResponse
	if err := c.doJSON(ctx, "/v1/text/generate", req, &resp); err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return strings.TrimSpace(resp.OutputText), nil
}

var (
	_ capability.TextEmbedder  = (*Client)(nil)
	_ capability.ImageEmbedder = (*Client)(nil)
	_ capability.Captioner     = (*Client)(nil)
	_ capability.Classifier    = (*Client)(nil)
	_ capability.Generator     = (*Client)(nil)
)
