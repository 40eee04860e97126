package orchestrator

import "errors"

var (
	// ErrEmptyTranscription marks a transcription that came back with
	// empty text. No provider in this module returns it: GroqSTT answers
	// an empty buffer with an empty-text final and a nil error.
	ErrEmptyTranscription = errors.New("transcription returned empty text")

	// ErrTranscriptionFailed wraps a transient STT backend failure.
	ErrTranscriptionFailed = errors.New("speech-to-text transcription failed")

	// ErrLLMFailed wraps a transient LLM backend failure.
	ErrLLMFailed = errors.New("language model generation failed")

	// ErrTTSFailed wraps a transient TTS backend failure.
	ErrTTSFailed = errors.New("text-to-speech synthesis failed")

	// ErrNilProvider is returned by NewSession when a required
	// collaborator is nil.
	ErrNilProvider = errors.New("required provider is nil")

	// ErrContextCancelled marks an operation that ended because its
	// context was cancelled, not because the work itself failed.
	ErrContextCancelled = errors.New("operation cancelled by context")

	// ErrTransportFailed marks a send_structured/send_binary failure.
	// Unlike the transient service errors above, this is fatal to the
	// session: HandleSession tears down and returns it.
	ErrTransportFailed = errors.New("transport send failed")
)
