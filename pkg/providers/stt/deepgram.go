// Package stt holds concrete orchestrator.STT implementations.
package stt

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

// DeepgramSTT streams PCM frames to Deepgram's realtime websocket API
// and decodes interim/final JSON transcripts into orchestrator.STTPartial,
// implementing the feed/stream_partials/get_final contract directly;
// Deepgram's wire protocol already speaks partial vs. final.
type DeepgramSTT struct {
	apiKey string
	host   string
	scheme string
	model  string

	mu       sync.Mutex
	conn     *websocket.Conn
	buffered []orchestrator.STTPartial
	finalCh  chan orchestrator.STTPartial
}

// NewDeepgramSTT builds a client for the given API key.
func NewDeepgramSTT(apiKey string) *DeepgramSTT {
	return &DeepgramSTT{
		apiKey:  apiKey,
		host:    "api.deepgram.com",
		scheme:  "wss",
		model:   "nova-2",
		finalCh: make(chan orchestrator.STTPartial, 1),
	}
}

func (s *DeepgramSTT) Name() string { return "deepgram-stt" }

type deepgramFrame struct {
	IsFinal bool `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (s *DeepgramSTT) dial(ctx context.Context, sampleRate int) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}

	u := url.URL{Scheme: s.scheme, Host: s.host, Path: "/v1/listen"}
	q := u.Query()
	q.Set("model", s.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: map[string][]string{"Authorization": {"Token " + s.apiKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram dial: %w", err)
	}
	s.conn = conn

	go s.readLoop(conn)
	return conn, nil
}

// readLoop decodes frames off conn until it closes, appending each
// interim transcript to the buffered slice StreamPartials drains and
// handing each final only to the channel GetFinal blocks on. A final that arrives before the previous
// one was collected supersedes it.
func (s *DeepgramSTT) readLoop(conn *websocket.Conn) {
	for {
		var frame deepgramFrame
		if err := wsjson.Read(context.Background(), conn, &frame); err != nil {
			return
		}
		if len(frame.Channel.Alternatives) == 0 {
			continue
		}
		text := frame.Channel.Alternatives[0].Transcript
		if text == "" {
			continue
		}
		p := orchestrator.STTPartial{
			Text:                  text,
			IsFinal:               frame.IsFinal,
			MaybeSentenceBoundary: endsInSentenceBoundary(text),
		}
		if frame.IsFinal {
			select {
			case <-s.finalCh:
			default:
			}
			s.finalCh <- p
		} else {
			s.mu.Lock()
			s.buffered = append(s.buffered, p)
			s.mu.Unlock()
		}
	}
}

// Feed sends one PCM frame over the websocket, dialing lazily on first
// use.
func (s *DeepgramSTT) Feed(ctx context.Context, pcm []byte, sampleRate int) error {
	conn, err := s.dial(ctx, sampleRate)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageBinary, pcm)
}

// StreamPartials drains whatever interim transcripts the read loop has
// buffered since the last call.
func (s *DeepgramSTT) StreamPartials(ctx context.Context) ([]orchestrator.STTPartial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buffered
	s.buffered = nil
	return out, nil
}

// GetFinal blocks until the read loop delivers the next final
// transcript over the websocket, or ctx is done. Each final is
// consumed exactly once, so a local endpoint decision that runs ahead
// of the server's waits for the matching final instead of returning
// empty and leaving the transcript to leak into the next turn.
func (s *DeepgramSTT) GetFinal(ctx context.Context) (orchestrator.STTPartial, error) {
	select {
	case final := <-s.finalCh:
		return final, nil
	case <-ctx.Done():
		return orchestrator.STTPartial{IsFinal: true}, ctx.Err()
	}
}

// Close releases the underlying websocket connection.
func (s *DeepgramSTT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(websocket.StatusNormalClosure, "")
	s.conn = nil
	return err
}

func endsInSentenceBoundary(text string) bool {
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '?', '!':
		return true
	}
	r := []rune(text)
	switch r[len(r)-1] {
	case '¡', '¿', '…':
		return true
	}
	return false
}
