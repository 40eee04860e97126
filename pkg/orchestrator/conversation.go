package orchestrator

import "sync"

// Conversation is an optional, additive bookkeeping wrapper around a
// Session, adapted from the batch-oriented Conversation type this
// package used to export: it keeps the running transcript and the
// active voice/language selection across turns for an embedder that
// wants them. HandleSession never consults it; the core's only input
// is the prompt text the listen loop extracts per turn.
type Conversation struct {
	mu              sync.RWMutex
	sess            *Session
	history         []Message
	maxMessages     int
	currentVoice    Voice
	currentLanguage Language
}

// NewConversation wraps sess with an empty transcript, seeded with
// sess's configured voice/language/context-length limit.
func NewConversation(sess *Session) *Conversation {
	return &Conversation{
		sess:            sess,
		maxMessages:     sess.cfg.MaxContextMessages,
		currentVoice:    sess.cfg.VoiceStyle,
		currentLanguage: sess.cfg.Language,
	}
}

// Session returns the wrapped Session.
func (c *Conversation) Session() *Session { return c.sess }

// RecordUser appends a user turn to the transcript.
func (c *Conversation) RecordUser(text string) { c.append(Message{Role: "user", Content: text}) }

// RecordAssistant appends an assistant turn to the transcript.
func (c *Conversation) RecordAssistant(text string) {
	c.append(Message{Role: "assistant", Content: text})
}

// RecordSystem appends a system prompt to the transcript.
func (c *Conversation) RecordSystem(text string) {
	c.append(Message{Role: "system", Content: text})
}

func (c *Conversation) append(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, m)
	if c.maxMessages > 0 && len(c.history) > c.maxMessages {
		c.history = c.history[len(c.history)-c.maxMessages:]
	}
}

// History returns a copy of the recorded transcript.
func (c *Conversation) History() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// ClearHistory drops every recorded transcript turn except system
// prompts.
func (c *Conversation) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.history[:0]
	for _, m := range c.history {
		if m.Role == "system" {
			kept = append(kept, m)
		}
	}
	c.history = kept
}

// Reset clears the transcript entirely and restores the default
// voice/language.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.currentVoice = VoiceF1
	c.currentLanguage = LanguageEn
}

// CurrentVoice and CurrentLanguage report the active selection; a
// caller wiring its own STT/TTS providers reads these to pick a voice
// or language, since the core itself never branches on either.
func (c *Conversation) CurrentVoice() Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentVoice
}

func (c *Conversation) CurrentLanguage() Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentLanguage
}

// SetVoice changes the active voice for subsequent turns.
func (c *Conversation) SetVoice(v Voice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentVoice = v
}

// SetLanguage changes the active language for subsequent turns.
func (c *Conversation) SetLanguage(l Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentLanguage = l
}

// SessionID returns the wrapped session's identifier.
func (c *Conversation) SessionID() string { return c.sess.ID }
