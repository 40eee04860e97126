package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// HandleSession is the session driver. It consumes
// audioIn (a lazy sequence of raw PCM frames, closed by the caller on
// source exhaustion) and delivers structured/binary output through
// sendStructured/sendBinary, returning only once the speak loop has
// exited and the speech queue has been fully acknowledged.
//
// A Session must not be reused concurrently across two HandleSession
// calls, but may be reused sequentially: each call resets per-session
// state before running.
func (s *Session) HandleSession(ctx context.Context, audioIn <-chan []byte, sendStructured SendStructuredFunc, sendBinary SendBinaryFunc) error {
	s.sendStructured = sendStructured
	s.sendBinary = sendBinary
	s.resetForNewSession()

	sessionCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.sessionCancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.tracer = NewTracer(sessionCtx, s.ID)
	s.tracer.Mark("turn_start")

	g, gctx := errgroup.WithContext(sessionCtx)
	speakDone := make(chan error, 1)
	g.Go(func() error {
		speakDone <- s.speakLoop(gctx)
		return nil
	})

	listenErr := s.listenLoop(gctx, audioIn)
	if listenErr != nil {
		cancel()
	}

	s.speechQ.wait()
	s.speechQ.closeForTermination()

	speakErr := <-speakDone
	_ = g.Wait()

	s.mu.Lock()
	fatal := s.fatalErr
	s.mu.Unlock()

	s.tracer.Mark("turn_end")
	if metrics := s.tracer.Metrics(); !metrics.Empty() {
		if err := sendStructured(ctx, metrics); err != nil {
			s.log.Warn("metrics send failed", "error", err)
		}
	}
	s.tracer.Dump(s.log)

	if fatal != nil {
		return fatal
	}
	if listenErr != nil && listenErr != context.Canceled {
		return listenErr
	}
	if speakErr != nil && speakErr != context.Canceled {
		return speakErr
	}
	return nil
}
