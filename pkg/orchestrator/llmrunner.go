package orchestrator

import (
	"context"
	"strings"
)

type llmDecision int

const (
	llmSkip llmDecision = iota
	llmQueuePending
	llmStart
)

// decideLLM applies the prompt-gating policy under the session lock:
// prefix/duplicate suppression first, then coalesce-to-latest while a
// generation is in flight. When it returns llmQueuePending it has
// already mutated the pending buffer; the caller has nothing further
// to do in that case. When it returns llmStart it has already claimed
// the session for prompt (active/last prompt set, state THINKING), so
// a caller arriving before the generation goroutine runs is gated
// against it instead of starting a second generation.
func (s *Session) decideLLM(prompt string) llmDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A prompt that extends the active one is already being answered; a
	// prompt the active one extends carries no new information either.
	if s.hasActivePrompt &&
		(strings.HasPrefix(prompt, s.activePrompt) || strings.HasPrefix(s.activePrompt, prompt)) {
		return llmSkip
	}
	if !s.awaitingNewTurn && s.hasLastPromptText && prompt == s.lastPromptText {
		return llmSkip
	}
	if s.state == StateThinking || s.state == StateSpeaking {
		if !s.hasPending || s.pending != prompt {
			s.pending = prompt
			s.hasPending = true
		}
		return llmQueuePending
	}
	s.activePrompt, s.hasActivePrompt = prompt, true
	s.lastPromptText, s.hasLastPromptText = prompt, true
	s.awaitingNewTurn = false
	s.state = StateThinking
	return llmStart
}

// maybeStartLLM is the entry point the listen loop calls with every
// sentence-boundary partial and every final transcript.
func (s *Session) maybeStartLLM(ctx context.Context, text string) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return
	}
	if s.decideLLM(prompt) != llmStart {
		return
	}
	s.spawnLLMGeneration(ctx, prompt)
}

// spawnLLMGeneration runs the LLM activity body for prompt. When
// it completes with a coalesced prompt waiting, it keeps running the
// next one in the same goroutine rather than recursing through
// maybeStartLLM's gating a second time, which would otherwise requeue
// the popped prompt forever (state is not reset to LISTENING until
// just before this decision, see runOneGeneration).
func (s *Session) spawnLLMGeneration(ctx context.Context, prompt string) {
	genCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.llmCancel = cancel
	s.llmDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		p := prompt
		for {
			next, hasNext := s.runOneGeneration(genCtx, p)
			if !hasNext {
				break
			}
			p = next
		}

		s.mu.Lock()
		if s.llmDone == done {
			s.llmCancel = nil
			s.llmDone = nil
		}
		s.mu.Unlock()
	}()
}

// runOneGeneration drives exactly one LLM activity to completion and
// decides whether a coalesced pending prompt should run next.
func (s *Session) runOneGeneration(ctx context.Context, prompt string) (next string, hasNext bool) {
	s.mu.Lock()
	s.activePrompt = prompt
	s.hasActivePrompt = true
	s.lastPromptText = prompt
	s.hasLastPromptText = true
	s.awaitingNewTurn = false
	s.state = StateThinking
	s.mu.Unlock()

	chunks, err := s.llm.GenerateStream(ctx, prompt)
	if err != nil {
		s.log.Warn("llm generate_stream failed to start", "error", err)
	} else {
		firstChunk := true
		for chunk := range chunks {
			if s.stop.IsSet() {
				break
			}
			if chunk.Err != nil {
				s.log.Warn("llm generation chunk error", "error", chunk.Err)
				break
			}
			if firstChunk {
				s.tracer.MarkOnce("llm_first_token")
				s.mu.Lock()
				s.state = StateSpeaking
				s.mu.Unlock()
				firstChunk = false
			}
			if sendErr := s.emitStructured(ctx, AssistantTextEvent{
				Type: EventAssistantText,
				Text: chunk.Text,
			}); sendErr != nil {
				s.log.Error("assistant_text send failed", "error", sendErr)
				break
			}
			s.speechQ.push(chunk.Text)
		}
	}

	s.mu.Lock()
	s.hasActivePrompt = false
	s.activePrompt = ""
	s.mu.Unlock()
	s.stop.Clear()

	s.mu.Lock()
	pendingPrompt, hasPending := s.pending, s.hasPending
	if hasPending {
		s.pending, s.hasPending = "", false
		// Transitional: leave THINKING/SPEAKING so the coalesced
		// prompt's gating check (below) doesn't just re-queue itself.
		s.state = StateListening
	} else {
		s.state = StateListening
		s.awaitingNewTurn = true
	}
	s.mu.Unlock()

	if !hasPending {
		return "", false
	}
	if s.decideLLM(pendingPrompt) == llmStart {
		return pendingPrompt, true
	}
	return "", false
}
