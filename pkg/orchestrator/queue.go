package orchestrator

import (
	"sync"
	"sync/atomic"
)

// speechQueue is the bounded single-producer (LLM runner), single-
// consumer (speak loop) FIFO of text chunks awaiting synthesis.
// Closing ch is the termination sentinel: a range over a closed
// channel ends naturally instead of needing a special zero value.
type speechQueue struct {
	ch chan string
	wg sync.WaitGroup
}

func newSpeechQueue(depth int) *speechQueue {
	if depth <= 0 {
		depth = 8
	}
	return &speechQueue{ch: make(chan string, depth)}
}

// push enqueues text, blocking only on a full queue and never on the
// listen loop, which never calls push.
func (q *speechQueue) push(text string) {
	q.wg.Add(1)
	q.ch <- text
}

// ack marks one previously-pushed item as fully handled, whether it
// was consumed by the speak loop or drained unstarted by barge-in.
func (q *speechQueue) ack() {
	q.wg.Done()
}

// wait blocks until every pushed item so far has been acked: the
// queue's "all consumed" predicate.
func (q *speechQueue) wait() {
	q.wg.Wait()
}

// closeForTermination enqueues the termination sentinel by closing the
// channel. Must only be called once, after wait() has returned.
func (q *speechQueue) closeForTermination() {
	close(q.ch)
}

// drainUnstarted removes and acks every item currently buffered
// without blocking. Used by the barge-in controller to discard
// queued-but-unstarted chunks.
func (q *speechQueue) drainUnstarted() {
	for {
		select {
		case _, ok := <-q.ch:
			if !ok {
				return
			}
			q.ack()
		default:
			return
		}
	}
}

// stopSignal is a one-shot level-triggered flag: set by the barge-in
// controller, observed by the LLM runner and speak loop, cleared by
// the LLM runner's terminator.
type stopSignal struct {
	flag atomic.Bool
}

func (s *stopSignal) Set()        { s.flag.Store(true) }
func (s *stopSignal) Clear()      { s.flag.Store(false) }
func (s *stopSignal) IsSet() bool { return s.flag.Load() }
