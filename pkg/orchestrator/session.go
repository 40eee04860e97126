package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Session is the unit of work the orchestrator manages: it exists for
// the lifetime of one transport connection's audio stream and owns
// all per-session state. STT/LLM/TTS/VAD are owned externally by the
// caller for the session's lifetime; Session never closes them.
type Session struct {
	ID  string
	cfg Config
	log Logger

	stt STT
	llm LLM
	tts TTS
	vad VAD

	tracer *Tracer

	speechQ *speechQueue
	stop    *stopSignal

	mu                sync.Mutex
	state             SessionState
	pending           string
	hasPending        bool
	activePrompt      string
	hasActivePrompt   bool
	lastPromptText    string
	hasLastPromptText bool
	awaitingNewTurn   bool

	llmCancel context.CancelFunc
	llmDone   chan struct{}

	sendStructured SendStructuredFunc
	sendBinary     SendBinaryFunc

	sessionCancel context.CancelFunc
	fatalOnce     sync.Once
	fatalErr      error
}

// NewSession builds a Session around the four required collaborators.
// cfg may be the zero value, in which case DefaultConfig is used;
// logger may be nil, in which case a NoOpLogger is used.
func NewSession(stt STT, llm LLM, tts TTS, vad VAD, cfg Config, logger Logger) (*Session, error) {
	if stt == nil || llm == nil || tts == nil || vad == nil {
		return nil, fmt.Errorf("orchestrator: %w", ErrNilProvider)
	}
	if cfg.SampleRate == 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		log:     logger,
		stt:     stt,
		llm:     llm,
		tts:     tts,
		vad:     vad,
		speechQ: newSpeechQueue(cfg.SpeechQueueDepth),
		stop:    &stopSignal{},
		state:   StateListening,
	}, nil
}

// State returns the session's current state. Safe for concurrent use;
// intended for tests and diagnostics.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// resetForNewSession restores every per-session field to its initial
// value, so a Session reused across sequential HandleSession calls
// starts each one clean.
func (s *Session) resetForNewSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateListening
	s.pending, s.hasPending = "", false
	s.activePrompt, s.hasActivePrompt = "", false
	s.lastPromptText, s.hasLastPromptText = "", false
	s.awaitingNewTurn = false
	s.llmCancel = nil
	s.llmDone = nil
	s.speechQ = newSpeechQueue(s.cfg.SpeechQueueDepth)
	s.stop.Clear()
	s.fatalOnce = sync.Once{}
	s.fatalErr = nil
}

// failSession records the first fatal transport error and cancels the
// session context so every activity observing it unwinds promptly. A
// transport send failure is fatal to the session.
func (s *Session) failSession(err error) {
	s.fatalOnce.Do(func() {
		s.fatalErr = fmt.Errorf("%w: %v", ErrTransportFailed, err)
		if s.sessionCancel != nil {
			s.sessionCancel()
		}
	})
}
