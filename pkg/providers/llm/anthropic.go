package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
)

// AnthropicLLM streams messages through the official anthropic-sdk-go
// SDK, implementing orchestrator.LLM directly against its event
// stream.
type AnthropicLLM struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicLLM builds a client for the given API key and model; an
// empty model defaults to Claude 3.5 Sonnet.
func NewAnthropicLLM(apiKey, model string) *AnthropicLLM {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_5SonnetLatest
	}
	return &AnthropicLLM{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

func (l *AnthropicLLM) Name() string { return "anthropic-llm" }

// GenerateStream spawns a goroutine pumping SDK stream events onto the
// returned channel, closing it when the stream ends or ctx is done.
func (l *AnthropicLLM) GenerateStream(ctx context.Context, prompt string) (<-chan orchestrator.LLMChunk, error) {
	out := make(chan orchestrator.LLMChunk, 4)

	stream := l.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     l.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})

	go func() {
		defer close(out)
		var message anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				continue
			}
			switch delta := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if textDelta, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && textDelta.Text != "" {
					select {
					case out <- orchestrator.LLMChunk{Text: textDelta.Text}:
					case <-ctx.Done():
						return
					}
				}
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
