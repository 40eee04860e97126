package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

// GroqLLM streams chat completions over Groq's OpenAI-compatible SSE
// endpoint: plain net/http + bufio.Scanner, no SDK, since Groq's wire
// format is plain OpenAI-compatible SSE.
type GroqLLM struct {
	apiKey string
	url    string
	model  string
}

// NewGroqLLM builds a client for the given API key and model; an
// empty model defaults to llama-3.3-70b-versatile.
func NewGroqLLM(apiKey, model string) *GroqLLM {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqLLM{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/chat/completions",
		model:  model,
	}
}

func (l *GroqLLM) Name() string { return "groq-llm" }

type groqSSEChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// GenerateStream issues one streamed chat-completions request and
// pumps text deltas onto the returned channel as the response body
// arrives.
func (l *GroqLLM) GenerateStream(ctx context.Context, prompt string) (<-chan orchestrator.LLMChunk, error) {
	payload := map[string]interface{}{
		"model": l.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: groq llm error (status %d)", orchestrator.ErrLLMFailed, resp.StatusCode)
	}

	out := make(chan orchestrator.LLMChunk, 4)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			var chunk groqSSEChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- orchestrator.LLMChunk{Text: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- orchestrator.LLMChunk{Err: fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}
