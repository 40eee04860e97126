package orchestrator

import "context"

// listenLoop consumes inbound audio frames until audioIn is exhausted
// or a fatal error occurs. It is the session's single
// writer for VAD/STT-driven state transitions; the LLM runner mutates
// state too, but only under s.mu, so the two never race.
func (s *Session) listenLoop(ctx context.Context, audioIn <-chan []byte) error {
	defer s.cancelInFlightLLM()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-audioIn:
			if !ok {
				return nil // inbound audio source exhausted: normal termination
			}
			if err := s.handleFrame(ctx, frame); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, frame []byte) error {
	voice := s.vad.IsVoice(frame)

	s.mu.Lock()
	speaking := s.state == StateSpeaking
	s.mu.Unlock()

	if speaking && voice {
		s.bargeIn(ctx)
		s.mu.Lock()
		s.state = StateInterrupted
		s.mu.Unlock()
	}

	if voice {
		s.mu.Lock()
		if s.awaitingNewTurn {
			s.awaitingNewTurn = false
			s.lastPromptText, s.hasLastPromptText = "", false
		}
		// A generation in flight keeps THINKING/SPEAKING until it
		// completes, so a new prompt from this frame coalesces into
		// pending rather than starting a second generation.
		if s.state != StateThinking && s.state != StateSpeaking {
			s.state = StateListening
		}
		s.mu.Unlock()

		if err := s.stt.Feed(ctx, frame, s.cfg.SampleRate); err != nil {
			s.log.Warn("stt feed failed", "error", err)
		}

		partials, err := s.stt.StreamPartials(ctx)
		if err != nil {
			s.log.Warn("stt stream_partials failed", "error", err)
		}
		for _, p := range partials {
			s.tracer.MarkOnce("stt_first_partial")
			if err := s.emitStructured(ctx, STTPartialEvent{
				Type:    EventSTTPartial,
				Text:    p.Text,
				IsFinal: p.IsFinal,
			}); err != nil {
				return err
			}
			if p.MaybeSentenceBoundary {
				s.maybeStartLLM(ctx, p.Text)
			}
		}
	} else {
		if err := s.stt.Feed(ctx, frame, s.cfg.SampleRate); err != nil {
			s.log.Warn("stt feed failed", "error", err)
		}
	}

	if s.vad.Endpointed() {
		final, err := s.stt.GetFinal(ctx)
		if err != nil {
			s.log.Warn("stt get_final failed", "error", err)
			final = STTPartial{}
		}
		s.tracer.MarkOnce("stt_final")
		if err := s.emitStructured(ctx, STTFinalEvent{
			Type:    EventSTTFinal,
			Text:    final.Text,
			IsFinal: true,
		}); err != nil {
			return err
		}
		s.maybeStartLLM(ctx, final.Text)
		s.vad.Reset()
		s.mu.Lock()
		s.awaitingNewTurn = true
		s.mu.Unlock()
	}

	return nil
}

// cancelInFlightLLM cancels the currently running LLM activity, if
// any, and awaits its terminator. Run when the inbound audio source
// is exhausted.
func (s *Session) cancelInFlightLLM() {
	s.mu.Lock()
	cancel := s.llmCancel
	done := s.llmDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// emitStructured is the transport seam: any failure here is fatal to
// the session. It records the fatal error and cancels the session
// before returning it, so every activity observing the context
// unwinds promptly.
func (s *Session) emitStructured(ctx context.Context, event interface{}) error {
	if err := s.sendStructured(ctx, event); err != nil {
		s.failSession(err)
		return err
	}
	return nil
}

// emitBinary mirrors emitStructured for outbound audio frames.
func (s *Session) emitBinary(ctx context.Context, frame []byte) error {
	if err := s.sendBinary(ctx, frame); err != nil {
		s.failSession(err)
		return err
	}
	return nil
}
