package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

func newTestDeepgramServer(t *testing.T) (*httptest.Server, *DeepgramSTT) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "closing")

		ctx := r.Context()
		// drain one binary audio frame before replying, mirroring the
		// real API's feed-then-transcript cadence.
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}

		interim := map[string]interface{}{
			"is_final": false,
			"channel": map[string]interface{}{
				"alternatives": []map[string]interface{}{
					{"transcript": "hello wor"},
				},
			},
		}
		wsjson.Write(ctx, conn, interim)

		final := map[string]interface{}{
			"is_final": true,
			"channel": map[string]interface{}{
				"alternatives": []map[string]interface{}{
					{"transcript": "hello world."},
				},
			},
		}
		wsjson.Write(ctx, conn, final)

		<-ctx.Done()
	}))

	s := &DeepgramSTT{
		apiKey:  "test-key",
		host:    strings.TrimPrefix(server.URL, "http://"),
		scheme:  "ws",
		model:   "nova-2",
		finalCh: make(chan orchestrator.STTPartial, 1),
	}
	return server, s
}

func TestDeepgramSTTFeedAndStreamPartials(t *testing.T) {
	server, s := newTestDeepgramServer(t)
	defer server.Close()
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Feed(ctx, []byte{0, 1, 2, 3}, 16000))

	var partials []string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := s.StreamPartials(ctx)
		require.NoError(t, err)
		for _, p := range got {
			partials = append(partials, p.Text)
		}
		if len(partials) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotEmpty(t, partials, "expected at least one interim partial")

	finalCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	final, err := s.GetFinal(finalCtx)
	require.NoError(t, err)

	require.Equal(t, "hello world.", final.Text)
	require.Equal(t, "deepgram-stt", s.Name())
}

func TestDeepgramSTTGetFinalHonorsContextDeadline(t *testing.T) {
	s := NewDeepgramSTT("test-key")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// No connection and no final in flight: GetFinal must block until
	// the deadline rather than return an empty transcript early.
	start := time.Now()
	_, err := s.GetFinal(ctx)
	require.Error(t, err)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestEndsInSentenceBoundary(t *testing.T) {
	cases := map[string]bool{
		"hello world.": true,
		"really?":      true,
		"wow!":         true,
		"¿que tal?":    true,
		"hello wor":    false,
		"":             false,
	}
	for text, want := range cases {
		if got := endsInSentenceBoundary(text); got != want {
			t.Errorf("endsInSentenceBoundary(%q) = %v, want %v", text, got, want)
		}
	}
}
