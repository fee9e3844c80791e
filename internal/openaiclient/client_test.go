// internal/openaiclient/client_test.go
package openaiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-insights/internal/aiquery"
	"pos-insights/internal/common/config"
	commonerrors "pos-insights/internal/common/errors"
	"pos-insights/internal/common/logger"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature    float32 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func newAPIStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return New(config.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL + "/v1",
		Model:   "gpt-4o",
	}, 5*time.Second, logger.NewTestLogger(t))
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var captured chatRequest
	api := newAPIStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": `{"sql": "SELECT 1"}`},
					"finish_reason": "stop",
				},
			},
		})
	})

	client := newTestClient(t, api.URL)
	content, err := client.Complete(context.Background(), "system rules", "user question",
		aiquery.CompletionOptions{JSONMode: true, Temperature: 0.1})

	require.NoError(t, err)
	assert.Equal(t, `{"sql": "SELECT 1"}`, content)
	assert.Equal(t, "gpt-4o", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "system rules", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestCompleteOmitsSystemMessageWhenEmpty(t *testing.T) {
	var captured chatRequest
	api := newAPIStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "insight text"}},
			},
		})
	})

	client := newTestClient(t, api.URL)
	content, err := client.Complete(context.Background(), "", "summarize this",
		aiquery.CompletionOptions{Temperature: 0.3, MaxTokens: 200})

	require.NoError(t, err)
	assert.Equal(t, "insight text", content)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, 200, captured.MaxTokens)
	assert.Nil(t, captured.ResponseFormat)
}

func TestCompleteWrapsUpstreamError(t *testing.T) {
	api := newAPIStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limit"}}`, http.StatusTooManyRequests)
	})

	client := newTestClient(t, api.URL)
	_, err := client.Complete(context.Background(), "", "question", aiquery.CompletionOptions{})

	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeUpstreamGenerationFailure))
}

func TestCompleteWrapsEmptyChoices(t *testing.T) {
	api := newAPIStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	client := newTestClient(t, api.URL)
	_, err := client.Complete(context.Background(), "", "question", aiquery.CompletionOptions{})

	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeUpstreamGenerationFailure))
}
