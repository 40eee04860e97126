// Package llm holds concrete orchestrator.LLM implementations.
package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

// OpenAILLM streams chat completions through the official openai-go
// SDK, implementing orchestrator.LLM directly against its
// server-sent-event stream.
type OpenAILLM struct {
	client openai.Client
	model  string
}

// NewOpenAILLM builds a client for the given API key and model; an
// empty model defaults to gpt-4o.
func NewOpenAILLM(apiKey, model string) *OpenAILLM {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAILLM{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (l *OpenAILLM) Name() string { return "openai-llm" }

// GenerateStream spawns a goroutine pumping SDK stream events onto the
// returned channel, closing it when the stream ends or ctx is done.
func (l *OpenAILLM) GenerateStream(ctx context.Context, prompt string) (<-chan orchestrator.LLMChunk, error) {
	out := make(chan orchestrator.LLMChunk, 4)

	stream := l.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})

	go func() {
		defer close(out)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			text := chunk.Choices[0].Delta.Content
			if text == "" {
				continue
			}
			select {
			case out <- orchestrator.LLMChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case out <- orchestrator.LLMChunk{Err: fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}
