package orchestrator

import "testing"

func TestConversationRecordAndHistory(t *testing.T) {
	sess := newTestSession(newFakeSTT(), newFakeLLM("hi"), newFakeTTS(), newFakeVAD())
	conv := NewConversation(sess)

	conv.RecordSystem("be concise")
	conv.RecordUser("hello")
	conv.RecordAssistant("hi there")

	hist := conv.History()
	if len(hist) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(hist))
	}
	if hist[1].Role != "user" || hist[1].Content != "hello" {
		t.Errorf("unexpected second message: %+v", hist[1])
	}
	if conv.SessionID() != sess.ID {
		t.Errorf("expected SessionID to match wrapped session")
	}
}

func TestConversationHistoryTrimsToMaxMessages(t *testing.T) {
	sess := newTestSession(newFakeSTT(), newFakeLLM("hi"), newFakeTTS(), newFakeVAD())
	sess.cfg.MaxContextMessages = 2
	conv := NewConversation(sess)

	conv.RecordUser("one")
	conv.RecordAssistant("two")
	conv.RecordUser("three")

	hist := conv.History()
	if len(hist) != 2 {
		t.Fatalf("expected history trimmed to 2, got %d", len(hist))
	}
	if hist[0].Content != "two" || hist[1].Content != "three" {
		t.Errorf("expected oldest message dropped, got %+v", hist)
	}
}

func TestConversationClearHistoryKeepsSystemOnly(t *testing.T) {
	sess := newTestSession(newFakeSTT(), newFakeLLM("hi"), newFakeTTS(), newFakeVAD())
	conv := NewConversation(sess)

	conv.RecordSystem("persona")
	conv.RecordUser("hello")
	conv.ClearHistory()

	hist := conv.History()
	if len(hist) != 1 || hist[0].Role != "system" {
		t.Fatalf("expected only the system message to survive, got %+v", hist)
	}
}

func TestConversationResetClearsEverything(t *testing.T) {
	sess := newTestSession(newFakeSTT(), newFakeLLM("hi"), newFakeTTS(), newFakeVAD())
	conv := NewConversation(sess)

	conv.SetVoice(VoiceM1)
	conv.SetLanguage(LanguageFr)
	conv.RecordUser("hello")
	conv.Reset()

	if len(conv.History()) != 0 {
		t.Errorf("expected empty history after Reset")
	}
	if conv.CurrentVoice() != VoiceF1 {
		t.Errorf("expected Reset to restore default voice, got %s", conv.CurrentVoice())
	}
	if conv.CurrentLanguage() != LanguageEn {
		t.Errorf("expected Reset to restore default language, got %s", conv.CurrentLanguage())
	}
}

func TestConversationSetVoiceAndLanguage(t *testing.T) {
	sess := newTestSession(newFakeSTT(), newFakeLLM("hi"), newFakeTTS(), newFakeVAD())
	conv := NewConversation(sess)

	conv.SetVoice(VoiceM2)
	conv.SetLanguage(LanguageDe)

	if conv.CurrentVoice() != VoiceM2 {
		t.Errorf("expected VoiceM2, got %s", conv.CurrentVoice())
	}
	if conv.CurrentLanguage() != LanguageDe {
		t.Errorf("expected LanguageDe, got %s", conv.CurrentLanguage())
	}
}
