package openai

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

func TestStreamRelaysDeltas(t *testing.T) {
	var got chatCompletionRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Maps \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"of Sicily\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-test"})
	require.NoError(t, err)

	tokens, errs, err := gen.Stream(context.Background(), "be brief", "who mapped sicily")
	require.NoError(t, err)

	texts, streamErr := collect(t, tokens, errs)

	require.NoError(t, streamErr)
	assert.Equal(t, []string{"Maps ", "of Sicily"}, texts)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-test", got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be brief", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "who mapped sicily", got.Messages[1].Content)
}

func TestStreamStopsAtDoneMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"before\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n\n")
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	tokens, errs, err := gen.Stream(context.Background(), "", "question")
	require.NoError(t, err)

	texts, streamErr := collect(t, tokens, errs)

	require.NoError(t, streamErr)
	assert.Equal(t, []string{"before"}, texts)
}

func TestStreamRequestRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-bad", BaseURL: server.URL})
	require.NoError(t, err)

	tokens, errs, err := gen.Stream(context.Background(), "", "question")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
	assert.Nil(t, tokens)
	assert.Nil(t, errs)
}

func TestStreamMidStreamErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"server overloaded\",\"type\":\"server_error\"}}\n\n")
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	tokens, errs, err := gen.Stream(context.Background(), "", "question")
	require.NoError(t, err)

	texts, streamErr := collect(t, tokens, errs)

	assert.Equal(t, []string{"partial"}, texts)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "server overloaded")
}

func TestPingSendsAuth(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gen, err := NewGenerator(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	require.NoError(t, gen.Ping(context.Background()))
	assert.Equal(t, "Bearer sk-test", auth)
}
