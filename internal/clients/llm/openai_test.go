package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/thinkbank-worker/internal/capability"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"model":  "bge-m3",
				"data": []map[string]any{
					{"object": "embedding", "index": 0, "embedding": []float32{0.5, 0.25}},
				},
				"usage": map[string]any{"prompt_tokens": 1, "total_tokens": 1},
			})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var in map[string]any
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in["top_p"] != 0.9 {
				http.Error(w, `{"error":{"message":"top_p missing"}}`, http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   "qwen",
				"choices": []map[string]any{
					{
						"index":         0,
						"finish_reason": "stop",
						"message":       map[string]any{"role": "assistant", "content": " 桌子上的一只猫 "},
					},
				},
				"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientEmbedAndGenerate(t *testing.T) {
	srv := fakeOpenAI(t)
	c, err := New(Config{BaseURL: srv.URL, Model: "qwen", EmbedModel: "bge-m3"}, logger.Nop())
	require.NoError(t, err)

	vec, err := c.EmbedText(context.Background(), "a cat\non a table")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 0.25}, vec)

	out, err := c.Generate(context.Background(), "Translate", capability.GenerateOptions{
		MaxTokens:   96,
		Temperature: 0.2,
		TopP:        0.9,
	})
	require.NoError(t, err)
	require.Equal(t, "桌子上的一只猫", out)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, logger.Nop())
	require.Error(t, err)
}
