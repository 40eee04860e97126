package orchestrator

import "context"

// STTPartial is a single transcription update, either interim or final.
//
// MaybeSentenceBoundary is true when the text ends with
// sentence-terminating punctuation (. ? ! ¡ ¿ …) or the producer
// otherwise asserts a clause boundary. It is the signal the listen
// loop uses to start the LLM before the VAD endpoint fires.
type STTPartial struct {
	Text                  string
	Tokens                []TokenTiming
	IsFinal               bool
	MaybeSentenceBoundary bool
}

// TokenTiming carries word-level timing for one recognized token.
type TokenTiming struct {
	Token    string
	StartSec float64
	EndSec   float64
}

// STT is the streaming speech-to-text contract. Implementations may be
// stateful across Feed calls.
type STT interface {
	// Feed ingests PCM audio non-blockingly at the given sample rate.
	Feed(ctx context.Context, pcm []byte, sampleRate int) error

	// StreamPartials drains whatever partials are currently buffered and
	// returns. It must not block waiting on audio that hasn't arrived
	// yet; callers re-invoke it on every listen step (a drained
	// iterator, restartable on demand).
	StreamPartials(ctx context.Context) ([]STTPartial, error)

	// GetFinal blocks until an endpoint-decoded final transcript is
	// available. Implementations may return an empty-text partial; they
	// must not error on malformed or empty audio.
	GetFinal(ctx context.Context) (STTPartial, error)
}

// LLM is the streaming large-language-model contract.
type LLM interface {
	// GenerateStream yields chunked text for prompt on the returned
	// channel, finite and cancellable by the caller abandoning the
	// context or ceasing to drain the channel. The channel is closed
	// when generation ends.
	GenerateStream(ctx context.Context, prompt string) (<-chan LLMChunk, error)
}

// LLMChunk is one item of a GenerateStream result: either a text delta
// or a terminal error (after which no further chunks follow).
type LLMChunk struct {
	Text string
	Err  error
}

// TTS is the streaming text-to-speech contract.
type TTS interface {
	// Stream synthesizes text into a finite sequence of PCM frames on
	// the returned channel, closed when synthesis ends.
	Stream(ctx context.Context, text string) (<-chan TTSChunk, error)

	// Stop is idempotent and fast; it causes any in-flight Stream to
	// terminate promptly.
	Stop() error
}

// TTSChunk is one item of a Stream result: either an audio frame or a
// terminal error.
type TTSChunk struct {
	Audio []byte
	Err   error
}

// VAD is the voice-activity-detection contract.
type VAD interface {
	// IsVoice reports whether chunk contains speech.
	IsVoice(pcm []byte) bool

	// Endpointed is consume-on-read: it reports true once per detected
	// endpoint, then resets that flag until the next one.
	Endpointed() bool

	// Reset clears endpointing state for a new turn.
	Reset()
}

// SessionState names the session's position in its turn lifecycle.
type SessionState string

const (
	StateIdle        SessionState = "IDLE"
	StateListening   SessionState = "LISTENING"
	StateThinking    SessionState = "THINKING"
	StateSpeaking    SessionState = "SPEAKING"
	StateInterrupted SessionState = "INTERRUPTED"
)

// Voice and Language are carried on the session so the concrete
// providers wired in pkg/providers have something to select on; the
// core itself is voice/language-agnostic beyond passing them through.
type Voice string

const (
	VoiceF1 Voice = "F1"
	VoiceF2 Voice = "F2"
	VoiceM1 Voice = "M1"
	VoiceM2 Voice = "M2"
)

type Language string

const (
	LanguageEn Language = "en"
	LanguageEs Language = "es"
	LanguageFr Language = "fr"
	LanguageDe Language = "de"
)

// Message is one role/content turn of conversational context, as
// recorded by the Conversation convenience wrapper. The LLM contract
// takes a bare prompt string; no provider here is handed a Message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EventType names the outbound structured event records.
type EventType string

const (
	EventSTTPartial    EventType = "stt_partial"
	EventSTTFinal      EventType = "stt_final"
	EventAssistantText EventType = "assistant_text"
	EventMetrics       EventType = "metrics"
)

// STTPartialEvent is the stt_partial structured event.
type STTPartialEvent struct {
	Type    EventType `json:"type"`
	Text    string    `json:"text"`
	IsFinal bool      `json:"is_final"`
}

// STTFinalEvent is the stt_final structured event.
type STTFinalEvent struct {
	Type    EventType `json:"type"`
	Text    string    `json:"text"`
	IsFinal bool      `json:"is_final"`
}

// AssistantTextEvent is the assistant_text structured event.
type AssistantTextEvent struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
}

// SendStructuredFunc delivers one JSON-shaped structured event to the
// transport collaborator.
type SendStructuredFunc func(ctx context.Context, event interface{}) error

// SendBinaryFunc delivers one opaque outbound audio frame in arrival
// order to the transport collaborator.
type SendBinaryFunc func(ctx context.Context, frame []byte) error
