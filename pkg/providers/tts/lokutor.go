// Package tts holds concrete orchestrator.TTS implementations.
package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

// LokutorTTS streams synthesized PCM over a websocket, implementing
// orchestrator.TTS. Stop is a fast idempotent abort:
// it closes the connection so any in-flight Stream's blocking read
// returns an error and the consumer's range loop ends.
type LokutorTTS struct {
	apiKey string
	host   string
	scheme string
	voice  orchestrator.Voice
	lang   orchestrator.Language

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewLokutorTTS builds a client for the given API key, voice and
// language.
func NewLokutorTTS(apiKey string, voice orchestrator.Voice, lang orchestrator.Language) *LokutorTTS {
	return &LokutorTTS{
		apiKey: apiKey,
		host:   "api.lokutor.com",
		scheme: "wss",
		voice:  voice,
		lang:   lang,
	}
}

func (t *LokutorTTS) Name() string { return "lokutor-tts" }

func (t *LokutorTTS) dial(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return t.conn, nil
	}

	u := url.URL{Scheme: t.scheme, Host: t.host, Path: "/ws", RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("lokutor dial: %w", err)
	}
	t.conn = conn
	return conn, nil
}

// Stream sends one synthesis request and yields PCM chunks on the
// returned channel until the backend signals end-of-stream, errors,
// or Stop closes the connection out from under it.
func (t *LokutorTTS) Stream(ctx context.Context, text string) (<-chan orchestrator.TTSChunk, error) {
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}

	req := map[string]interface{}{
		"text":    text,
		"voice":   string(t.voice),
		"lang":    string(t.lang),
		"speed":   1.05,
		"steps":   5,
		"version": "versa-1.0",
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.dropConn(conn)
		return nil, fmt.Errorf("%w: send synthesis request: %v", orchestrator.ErrTTSFailed, err)
	}

	out := make(chan orchestrator.TTSChunk, 4)
	go func() {
		defer close(out)
		for {
			messageType, payload, err := conn.Read(ctx)
			if err != nil {
				t.dropConn(conn)
				select {
				case out <- orchestrator.TTSChunk{Err: fmt.Errorf("%w: %v", orchestrator.ErrTTSFailed, err)}:
				case <-ctx.Done():
				}
				return
			}

			switch messageType {
			case websocket.MessageBinary:
				select {
				case out <- orchestrator.TTSChunk{Audio: payload}:
				case <-ctx.Done():
					return
				}
			case websocket.MessageText:
				msg := string(payload)
				if msg == "EOS" {
					return
				}
				if len(msg) >= 4 && msg[:4] == "ERR:" {
					select {
					case out <- orchestrator.TTSChunk{Err: fmt.Errorf("%w: %s", orchestrator.ErrTTSFailed, msg)}:
					case <-ctx.Done():
					}
					return
				}
			}
		}
	}()

	return out, nil
}

// Stop closes the current connection; the next Stream call dials a
// fresh one. Idempotent and fast.
func (t *LokutorTTS) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close(websocket.StatusNormalClosure, "barge-in")
	t.conn = nil
	return err
}

func (t *LokutorTTS) dropConn(stale *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == stale {
		t.conn = nil
	}
}
