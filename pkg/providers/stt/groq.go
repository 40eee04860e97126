package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/verbio-ai/verbio-orchestrator/pkg/audio"
	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

// GroqSTT accumulates fed PCM and transcribes the whole buffer through
// Groq's batch Whisper REST endpoint when GetFinal is called.
// StreamPartials yields nothing; this backend has no partial stream,
// which the orchestrator tolerates (a final needs no prior partials).
type GroqSTT struct {
	apiKey string
	url    string
	model  string

	mu         sync.Mutex
	buf        bytes.Buffer
	sampleRate int
}

// NewGroqSTT builds a client for the given API key and model; an
// empty model defaults to whisper-large-v3-turbo.
func NewGroqSTT(apiKey, model string) *GroqSTT {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &GroqSTT{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/audio/transcriptions",
		model:  model,
	}
}

func (s *GroqSTT) Name() string { return "groq-stt" }

// Feed appends pcm to the in-flight buffer; sampleRate is only used at
// GetFinal time to build the WAV header.
func (s *GroqSTT) Feed(ctx context.Context, pcm []byte, sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(pcm)
	s.sampleRate = sampleRate
	return nil
}

// StreamPartials always returns no partials for this backend.
func (s *GroqSTT) StreamPartials(ctx context.Context) ([]orchestrator.STTPartial, error) {
	return nil, nil
}

// GetFinal transcribes everything fed since the last call and clears
// the buffer.
func (s *GroqSTT) GetFinal(ctx context.Context) (orchestrator.STTPartial, error) {
	s.mu.Lock()
	pcm := make([]byte, s.buf.Len())
	copy(pcm, s.buf.Bytes())
	sampleRate := s.sampleRate
	s.buf.Reset()
	s.mu.Unlock()

	if len(pcm) == 0 {
		return orchestrator.STTPartial{IsFinal: true}, nil
	}
	if sampleRate == 0 {
		sampleRate = 16000
	}

	text, err := s.transcribe(ctx, pcm, sampleRate)
	if err != nil {
		return orchestrator.STTPartial{}, fmt.Errorf("%w: %v", orchestrator.ErrTranscriptionFailed, err)
	}
	return orchestrator.STTPartial{Text: text, IsFinal: true}, nil
}

func (s *GroqSTT) transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	wavData := audio.NewWavBuffer(pcm, sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", s.model); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("groq stt error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Text, nil
}
