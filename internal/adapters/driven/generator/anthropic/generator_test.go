package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains both stream channels until they close.
func collect(t *testing.T, tokens <-chan string, errs <-chan error) ([]string, error) {
	t.Helper()
	var got []string
	var streamErr error
	for tokens != nil || errs != nil {
		select {
		case tok, ok := <-tokens:
			if !ok {
				tokens = nil
				continue
			}
			got = append(got, tok)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			streamErr = err
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stream to finish")
		}
	}
	return got, streamErr
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(Config{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestStreamRelaysTextDeltas(t *testing.T) {
	var got messagesRequest
	var apiKey, version string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		apiKey = r.Header.Get("x-api-key")
		version = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"The \"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"answer\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-ant-test", BaseURL: server.URL, Model: "claude-test"})
	require.NoError(t, err)

	tokens, errs, err := gen.Stream(context.Background(), "be brief", "what is the answer")
	require.NoError(t, err)

	texts, streamErr := collect(t, tokens, errs)

	require.NoError(t, streamErr)
	assert.Equal(t, []string{"The ", "answer"}, texts)
	assert.Equal(t, "sk-ant-test", apiKey)
	assert.Equal(t, anthropicVersion, version)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, "be brief", got.System)
	assert.True(t, got.Stream)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "what is the answer", got.Messages[0].Content)
}

func TestStreamRequestRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-ant-bad", BaseURL: server.URL})
	require.NoError(t, err)

	tokens, errs, err := gen.Stream(context.Background(), "", "question")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid x-api-key")
	assert.Nil(t, tokens)
	assert.Nil(t, errs)
}

func TestStreamMidStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"partial\"}}\n\n")
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"overloaded\"}}\n\n")
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-ant-test", BaseURL: server.URL})
	require.NoError(t, err)

	tokens, errs, err := gen.Stream(context.Background(), "", "question")
	require.NoError(t, err)

	texts, streamErr := collect(t, tokens, errs)

	assert.Equal(t, []string{"partial"}, texts)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "overloaded")
}

func TestStreamIgnoresNonTextDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: ping\ndata: {\"type\":\"ping\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{}\"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"only this\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-ant-test", BaseURL: server.URL})
	require.NoError(t, err)

	tokens, errs, err := gen.Stream(context.Background(), "", "question")
	require.NoError(t, err)

	texts, streamErr := collect(t, tokens, errs)

	require.NoError(t, streamErr)
	assert.Equal(t, []string{"only this"}, texts)
}

func TestPingSendsRequiredHeaders(t *testing.T) {
	var apiKey, version string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		apiKey = r.Header.Get("x-api-key")
		version = r.Header.Get("anthropic-version")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-ant-test", BaseURL: server.URL})
	require.NoError(t, err)

	require.NoError(t, gen.Ping(context.Background()))
	assert.Equal(t, "sk-ant-test", apiKey)
	assert.Equal(t, anthropicVersion, version)
}

func TestModelNameDefaults(t *testing.T) {
	gen, err := NewGenerator(Config{APIKey: "sk-ant-test"})

	require.NoError(t, err)
	assert.Equal(t, DefaultModel, gen.ModelName())
}
