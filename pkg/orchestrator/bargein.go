package orchestrator

import "context"

// bargeIn is the barge-in controller, invoked by the listen loop when
// it observes a voice frame while the session
// is SPEAKING. It never cancels the in-flight TTS consumer directly;
// that loop observes the stop-signal and exits on its own.
func (s *Session) bargeIn(ctx context.Context) {
	s.stop.Set()

	if err := s.tts.Stop(); err != nil {
		s.log.Warn("tts stop failed during barge-in", "error", err)
	}

	s.mu.Lock()
	s.pending, s.hasPending = "", false
	s.activePrompt, s.hasActivePrompt = "", false
	s.lastPromptText, s.hasLastPromptText = "", false
	s.awaitingNewTurn = false
	s.mu.Unlock()

	s.speechQ.drainUnstarted()
}
