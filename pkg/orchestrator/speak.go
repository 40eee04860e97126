package orchestrator

import "context"

// speakLoop runs for the session's lifetime, draining the speech
// queue until it is closed, the termination sentinel. After
// a fatal send error it keeps consuming, discarding and acking each
// remaining item, so the queue's drained predicate can still advance
// and a producer blocked on a full queue is never stranded.
func (s *Session) speakLoop(ctx context.Context) error {
	var firstErr error
	for text := range s.speechQ.ch {
		if firstErr == nil {
			firstErr = s.speakOne(ctx, text)
		}
		s.speechQ.ack()
	}
	return firstErr
}

func (s *Session) speakOne(ctx context.Context, text string) error {
	chunks, err := s.tts.Stream(ctx, text)
	if err != nil {
		s.log.Warn("tts stream failed to start", "error", err)
		return nil
	}

	for chunk := range chunks {
		if s.stop.IsSet() {
			break
		}
		if chunk.Err != nil {
			s.log.Warn("tts stream chunk error", "error", chunk.Err)
			break
		}
		s.tracer.MarkOnce("tts_first_audio")
		if err := s.emitBinary(ctx, chunk.Audio); err != nil {
			return err
		}
	}
	return nil
}
