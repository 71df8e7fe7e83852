package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/thinkbank-worker/internal/pkg/httpx"
)

type Options struct {
	BaseURL string
	APIKey  string

	TextModel     string
	EmbedModel    string
	ImageModel    string
	CaptionModel  string
	ClassifyModel string

	CaptionMaxTokens int

	Timeout    time.Duration
	MaxRetries int

	HTTPClient *http.Client
}

// Client talks to the model gateway that hosts the text embedder, the image
// embedder, the captioner, the classifier and the text generator.
type Client struct {
	baseURL string
	apiKey  string

	textModel     string
	embedModel    string
	imageModel    string
	captionModel  string
	classifyModel string

	captionMaxTokens int

	timeout    time.Duration
	maxRetries int

	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	captionMax := opts.CaptionMaxTokens
	if captionMax <= 0 {
		captionMax = 128
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:          baseURL,
		apiKey:           strings.TrimSpace(opts.APIKey),
		textModel:        strings.TrimSpace(opts.TextModel),
		embedModel:       strings.TrimSpace(opts.EmbedModel),
		imageModel:       strings.TrimSpace(opts.ImageModel),
		captionModel:     strings.TrimSpace(opts.CaptionModel),
		classifyModel:    strings.TrimSpace(opts.ClassifyModel),
		captionMaxTokens: captionMax,
		timeout:          timeout,
		maxRetries:       maxRetries,
		httpClient:       hc,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// ---------------- HTTP helpers ----------------

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doJSON posts body and decodes the response into out. Each attempt gets its
// own timeout; only retryable failures are repeated.
func (c *Client) doJSON(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = c.attempt(ctx, path, buf.Bytes(), out)
		if lastErr == nil {
			return nil
		}
		if !httpx.IsRetryableError(lastErr) || attempt == c.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(httpx.JitterSleep(backoff)):
		}
		backoff *= 2
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, path string, payload []byte, out any) error {
	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseHTTPError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func encodeImage(img []byte) string {
	return base64.StdEncoding.EncodeToString(img)
}

func normalizeStrings(inputs []string) []string {
	out := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		out[i] = s
	}
	return out
}
