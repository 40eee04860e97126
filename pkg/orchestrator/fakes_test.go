package orchestrator

import (
	"context"
	"sync"
)

// fakeSTT is a scripted STT: Feed buffers nothing meaningful, partials
// and finals are queued up front by the test and drained in order.
type fakeSTT struct {
	mu       sync.Mutex
	fed      [][]byte
	partials [][]STTPartial
	finals   []STTPartial
	finalIdx int
}

func newFakeSTT() *fakeSTT { return &fakeSTT{} }

func (f *fakeSTT) Feed(ctx context.Context, pcm []byte, sampleRate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fed = append(f.fed, pcm)
	return nil
}

func (f *fakeSTT) StreamPartials(ctx context.Context) ([]STTPartial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.partials) == 0 {
		return nil, nil
	}
	next := f.partials[0]
	f.partials = f.partials[1:]
	return next, nil
}

func (f *fakeSTT) GetFinal(ctx context.Context) (STTPartial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalIdx >= len(f.finals) {
		return STTPartial{IsFinal: true}, nil
	}
	p := f.finals[f.finalIdx]
	f.finalIdx++
	return p, nil
}

// fakeLLM yields a fixed set of chunks for any prompt, recording the
// prompts it was asked to generate for.
type fakeLLM struct {
	mu      sync.Mutex
	chunks  []string
	prompts []string
	delay   chan struct{}
}

func newFakeLLM(chunks ...string) *fakeLLM {
	return &fakeLLM{chunks: chunks}
}

func (f *fakeLLM) GenerateStream(ctx context.Context, prompt string) (<-chan LLMChunk, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	out := make(chan LLMChunk, len(f.chunks)+1)
	go func() {
		defer close(out)
		if f.delay != nil {
			select {
			case <-f.delay:
			case <-ctx.Done():
				return
			}
		}
		for _, c := range f.chunks {
			select {
			case out <- LLMChunk{Text: c}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// fakeTTS streams one PCM frame per rune of the text handed to it, and
// honors Stop by halting mid-stream.
type fakeTTS struct {
	mu      sync.Mutex
	stopped bool
	synth   []string
}

func newFakeTTS() *fakeTTS { return &fakeTTS{} }

func (f *fakeTTS) Stream(ctx context.Context, text string) (<-chan TTSChunk, error) {
	f.mu.Lock()
	f.synth = append(f.synth, text)
	f.mu.Unlock()

	out := make(chan TTSChunk, len(text)+1)
	go func() {
		defer close(out)
		for i := 0; i < len(text); i++ {
			f.mu.Lock()
			stopped := f.stopped
			f.mu.Unlock()
			if stopped {
				return
			}
			select {
			case out <- TTSChunk{Audio: []byte{text[i]}}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *fakeTTS) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

// fakeVAD is a scripted VAD: the test pushes explicit IsVoice/Endpointed
// answers per call.
type fakeVAD struct {
	mu          sync.Mutex
	voice       bool
	endpointed  []bool
	resetCalled int
}

func newFakeVAD() *fakeVAD { return &fakeVAD{} }

func (v *fakeVAD) IsVoice(pcm []byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.voice
}

func (v *fakeVAD) Endpointed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.endpointed) == 0 {
		return false
	}
	next := v.endpointed[0]
	v.endpointed = v.endpointed[1:]
	return next
}

func (v *fakeVAD) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resetCalled++
}

func newTestSession(stt STT, llm LLM, tts TTS, vad VAD) *Session {
	sess, err := NewSession(stt, llm, tts, vad, DefaultConfig(), nil)
	if err != nil {
		panic(err)
	}
	return sess
}
