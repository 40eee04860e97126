package orchestrator

import (
	"context"
	"strings"
)

// systemPromptLLM decorates an LLM with a fixed system instruction,
// prepended to every prompt before it reaches the wrapped provider.
// The session's LLM contract takes a bare prompt string; this lives
// outside the core as construction-time wiring for callers (cmd/agent)
// that want a persona without teaching the session state machine about
// conversation history.
type systemPromptLLM struct {
	inner  LLM
	system string
}

// WithSystemPrompt wraps inner so every prompt is prefixed with system.
// An empty system string returns inner unchanged.
func WithSystemPrompt(inner LLM, system string) LLM {
	system = strings.TrimSpace(system)
	if system == "" {
		return inner
	}
	return &systemPromptLLM{inner: inner, system: system}
}

func (l *systemPromptLLM) GenerateStream(ctx context.Context, prompt string) (<-chan LLMChunk, error) {
	return l.inner.GenerateStream(ctx, l.system+"\n\nUser: "+prompt)
}
