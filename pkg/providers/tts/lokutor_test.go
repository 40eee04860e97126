package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

func newTestLokutorServer(handler func(ctx context.Context, conn *websocket.Conn)) (*httptest.Server, *LokutorTTS) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "closing")

		var req map[string]interface{}
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			return
		}
		handler(r.Context(), conn)
	}))

	tts := &LokutorTTS{
		apiKey: "test-key",
		host:   strings.TrimPrefix(server.URL, "http://"),
		scheme: "ws",
		voice:  orchestrator.VoiceF1,
		lang:   orchestrator.LanguageEn,
	}
	return server, tts
}

func TestLokutorTTSStreamsAudioUntilEOS(t *testing.T) {
	server, tts := newTestLokutorServer(func(ctx context.Context, conn *websocket.Conn) {
		conn.Write(ctx, websocket.MessageBinary, []byte{1, 2, 3})
		conn.Write(ctx, websocket.MessageBinary, []byte{4, 5, 6})
		conn.Write(ctx, websocket.MessageText, []byte("EOS"))
	})
	defer server.Close()

	chunks, err := tts.Stream(context.Background(), "hello")
	require.NoError(t, err)

	var audio []byte
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		audio = append(audio, chunk.Audio...)
	}

	assert.Len(t, audio, 6)
	assert.Equal(t, "lokutor-tts", tts.Name())
}

func TestLokutorTTSSurfacesBackendError(t *testing.T) {
	server, tts := newTestLokutorServer(func(ctx context.Context, conn *websocket.Conn) {
		conn.Write(ctx, websocket.MessageText, []byte("ERR:synthesis failed"))
	})
	defer server.Close()

	chunks, err := tts.Stream(context.Background(), "hello")
	require.NoError(t, err)

	var sawErr bool
	for chunk := range chunks {
		if chunk.Err != nil {
			sawErr = true
		}
	}
	assert.True(t, sawErr, "expected an error chunk")
}

func TestLokutorTTSStopIsIdempotent(t *testing.T) {
	server, tts := newTestLokutorServer(func(ctx context.Context, conn *websocket.Conn) {
		conn.Write(ctx, websocket.MessageText, []byte("EOS"))
	})
	defer server.Close()

	_, err := tts.Stream(context.Background(), "hi")
	require.NoError(t, err)
	assert.NoError(t, tts.Stop(), "first stop")
	assert.NoError(t, tts.Stop(), "second stop")
}
