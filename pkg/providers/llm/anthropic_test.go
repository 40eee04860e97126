package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

const anthropicSSEFixture = "event: content_block_start\n" +
	"data: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n" +
	"event: content_block_delta\n" +
	"data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"hello\"}}\n\n" +
	"event: content_block_delta\n" +
	"data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\" world\"}}\n\n" +
	"event: message_stop\n" +
	"data: {\"type\":\"message_stop\"}\n\n"

func TestAnthropicLLMGenerateStreamYieldsTextDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, anthropicSSEFixture)
	}))
	defer server.Close()

	l := &AnthropicLLM{
		client: anthropic.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(server.URL)),
		model:  anthropic.ModelClaude3_5SonnetLatest,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chunks, err := l.GenerateStream(ctx, "hi")
	require.NoError(t, err)

	var got string
	for c := range chunks {
		require.NoError(t, c.Err)
		got += c.Text
	}
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "anthropic-llm", l.Name())
}

func TestAnthropicLLMGenerateStreamSurfacesBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	l := &AnthropicLLM{
		client: anthropic.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(server.URL), option.WithMaxRetries(0)),
		model:  anthropic.ModelClaude3_5SonnetLatest,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chunks, err := l.GenerateStream(ctx, "hi")
	require.NoError(t, err)

	sawErr := false
	for c := range chunks {
		if c.Err != nil {
			sawErr = true
			assert.ErrorIs(t, c.Err, orchestrator.ErrLLMFailed)
		}
	}
	assert.True(t, sawErr, "expected a chunk carrying the backend failure")
}
