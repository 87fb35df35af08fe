package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

func completionJSON(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

func newTestOpenAI(url string) Provider {
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     url,
		TextModel:   "text-model",
		VisionModel: "vision-model",
		Timeout:     5 * time.Second,
	}, utils.NewDiscardLogger())
}

func TestOpenAIProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "extract items", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON("  {\"pagewise_line_items\": []}\n")))
	}))
	defer srv.Close()

	out, err := newTestOpenAI(srv.URL).Generate(context.Background(), "extract items")
	require.NoError(t, err)
	assert.Equal(t, `{"pagewise_line_items": []}`, out)
}

func TestOpenAIProvider_TranscribeSendsDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "vision-model", req.Model)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.Equal(t, "text", req.Messages[0].Content[0].Type)
		assert.Equal(t, "read it", req.Messages[0].Content[0].Text)
		assert.Equal(t, "image_url", req.Messages[0].Content[1].Type)
		assert.True(t, strings.HasPrefix(req.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON("Paracetamol 10 x 2")))
	}))
	defer srv.Close()

	out, err := newTestOpenAI(srv.URL).Transcribe(context.Background(), "read it", Image{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 10 x 2", out)
}

func TestOpenAIProvider_RateLimitIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		w.Write([]byte(completionJSON("done")))
	}))
	defer srv.Close()

	p := WithRetry(newTestOpenAI(srv.URL), fastPolicy, nil, utils.NewDiscardLogger())
	out, err := p.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIProvider_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	p := WithRetry(newTestOpenAI(srv.URL), fastPolicy, nil, utils.NewDiscardLogger())
	_, err := p.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestOpenAI(srv.URL).Generate(context.Background(), "hi")
	assert.ErrorContains(t, err, "no choices")
}

func TestImageDataURL(t *testing.T) {
	img := Image{MIMEType: "image/jpeg", Data: []byte("abc")}
	assert.Equal(t, "data:image/jpeg;base64,YWJj", img.DataURL())
}
