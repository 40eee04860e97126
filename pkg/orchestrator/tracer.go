package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"

type traceEventKind string

const (
	kindMark  traceEventKind = "mark"
	kindStart traceEventKind = "start"
	kindEnd   traceEventKind = "end"
)

type traceEvent struct {
	at   time.Time
	kind traceEventKind
	name string
}

// Tracer is a per-session event log with monotonic timestamps.
// Wall-clock is never used for metric differences: every timestamp
// comes from time.Now(), whose difference Go computes using the
// monotonic reading it carries.
type Tracer struct {
	mu        sync.Mutex
	sessionID string
	events    []traceEvent
	marked    map[string]bool

	span oteltrace.Span
}

// NewTracer starts a new per-session trace, additively bridged to an
// OpenTelemetry span. The OTel side is best-effort: if no SDK
// TracerProvider is configured, otel.Tracer returns a no-op and every
// call below is a cheap no-op too.
func NewTracer(ctx context.Context, sessionID string) *Tracer {
	_, span := otel.Tracer(tracerName).Start(ctx, "session_turn",
		oteltrace.WithAttributes(attribute.String("session.id", sessionID)))
	return &Tracer{
		sessionID: sessionID,
		marked:    make(map[string]bool),
		span:      span,
	}
}

// Mark records a named instant.
func (t *Tracer) Mark(name string) {
	t.mu.Lock()
	t.events = append(t.events, traceEvent{at: time.Now(), kind: kindMark, name: name})
	t.marked[name] = true
	t.mu.Unlock()
	t.span.AddEvent(name)
}

// MarkOnce records name only the first time it is ever called for this
// tracer. Used for "on the very first X in the session" marks like
// stt_first_partial, llm_first_token, and tts_first_audio.
func (t *Tracer) MarkOnce(name string) {
	t.mu.Lock()
	if t.marked[name] {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.Mark(name)
}

// Span starts a named span and returns a function that ends it.
func (t *Tracer) Span(name string) func() {
	t.mu.Lock()
	t.events = append(t.events, traceEvent{at: time.Now(), kind: kindStart, name: name})
	t.mu.Unlock()
	_, otelSpan := otel.Tracer(tracerName).Start(context.Background(), name)
	return func() {
		t.mu.Lock()
		t.events = append(t.events, traceEvent{at: time.Now(), kind: kindEnd, name: name})
		t.mu.Unlock()
		otelSpan.End()
	}
}

func (t *Tracer) markTime(name string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.events {
		if e.kind == kindMark && e.name == name {
			return e.at, true
		}
	}
	return time.Time{}, false
}

func diffMS(from, to time.Time, fromOK, toOK bool) (int64, bool) {
	if !fromOK || !toOK {
		return 0, false
	}
	return to.Sub(from).Milliseconds(), true
}

// MetricsEvent is the outbound metrics structured event: cumulative
// latencies from turn start, plus additive per-stage durations.
type MetricsEvent struct {
	Type            EventType `json:"type"`
	STTFirstPartial *int64    `json:"stt_first_partial_ms,omitempty"`
	STTFinal        *int64    `json:"stt_final_ms,omitempty"`
	LLMFirstToken   *int64    `json:"llm_first_token_ms,omitempty"`
	TTSFirstAudio   *int64    `json:"tts_first_audio_ms,omitempty"`
	TurnTotal       *int64    `json:"turn_total_ms,omitempty"`
	STTDurationMS   *int64    `json:"stt_duration_ms,omitempty"`
	LLMDurationMS   *int64    `json:"llm_duration_ms,omitempty"`
	TTSDurationMS   *int64    `json:"tts_duration_ms,omitempty"`
}

// Empty reports whether no metric could be derived at all.
func (m MetricsEvent) Empty() bool {
	return m.STTFirstPartial == nil && m.STTFinal == nil && m.LLMFirstToken == nil &&
		m.TTSFirstAudio == nil && m.TurnTotal == nil
}

// Metrics derives the turn's latency metrics from recorded marks,
// omitting any whose source mark was never recorded.
func (t *Tracer) Metrics() MetricsEvent {
	turnStart, turnStartOK := t.markTime("turn_start")
	turnEnd, turnEndOK := t.markTime("turn_end")
	sttFirstPartial, sttFirstPartialOK := t.markTime("stt_first_partial")
	sttFinal, sttFinalOK := t.markTime("stt_final")
	llmFirstToken, llmFirstTokenOK := t.markTime("llm_first_token")
	ttsFirstAudio, ttsFirstAudioOK := t.markTime("tts_first_audio")

	var ev MetricsEvent
	ev.Type = EventMetrics

	if ms, ok := diffMS(turnStart, sttFirstPartial, turnStartOK, sttFirstPartialOK); ok {
		ev.STTFirstPartial = &ms
	}
	if ms, ok := diffMS(turnStart, sttFinal, turnStartOK, sttFinalOK); ok {
		ev.STTFinal = &ms
	}
	if ms, ok := diffMS(turnStart, llmFirstToken, turnStartOK, llmFirstTokenOK); ok {
		ev.LLMFirstToken = &ms
	}
	if ms, ok := diffMS(turnStart, ttsFirstAudio, turnStartOK, ttsFirstAudioOK); ok {
		ev.TTSFirstAudio = &ms
	}
	if ms, ok := diffMS(turnStart, turnEnd, turnStartOK, turnEndOK); ok {
		ev.TurnTotal = &ms
	}

	// Per-stage durations: each anchors on the end of the previous
	// stage, falling back to turn_start when that stage produced no
	// partials at all (e.g. a batch STT backend with no interim
	// hypotheses).
	sttAnchor, sttAnchorOK := sttFirstPartial, sttFirstPartialOK
	if !sttAnchorOK {
		sttAnchor, sttAnchorOK = turnStart, turnStartOK
	}
	if ms, ok := diffMS(sttAnchor, sttFinal, sttAnchorOK, sttFinalOK); ok {
		ev.STTDurationMS = &ms
	}

	llmAnchor, llmAnchorOK := sttFinal, sttFinalOK
	if !llmAnchorOK {
		llmAnchor, llmAnchorOK = turnStart, turnStartOK
	}
	if ms, ok := diffMS(llmAnchor, llmFirstToken, llmAnchorOK, llmFirstTokenOK); ok {
		ev.LLMDurationMS = &ms
	}

	ttsAnchor, ttsAnchorOK := llmFirstToken, llmFirstTokenOK
	if !ttsAnchorOK {
		ttsAnchor, ttsAnchorOK = sttFinal, sttFinalOK
	}
	if !ttsAnchorOK {
		ttsAnchor, ttsAnchorOK = turnStart, turnStartOK
	}
	if ms, ok := diffMS(ttsAnchor, ttsFirstAudio, ttsAnchorOK, ttsFirstAudioOK); ok {
		ev.TTSDurationMS = &ms
	}

	return ev
}

// Dump logs a structured JSON snapshot of every recorded event,
// timestamped relative to the first event, and ends the bridged OTel
// span. Called once at session end.
func (t *Tracer) Dump(logger Logger) {
	t.mu.Lock()
	type dumpEvent struct {
		TMS  int64  `json:"t_ms"`
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	var first time.Time
	if len(t.events) > 0 {
		first = t.events[0].at
	}
	out := make([]dumpEvent, len(t.events))
	for i, e := range t.events {
		out[i] = dumpEvent{
			TMS:  e.at.Sub(first).Milliseconds(),
			Kind: string(e.kind),
			Name: e.name,
		}
	}
	sessionID := t.sessionID
	t.mu.Unlock()

	b, err := json.Marshal(out)
	if err != nil {
		logger.Warn("tracer dump marshal failed", "error", err, "session_id", sessionID)
	} else {
		logger.Info("tracer dump", "session_id", sessionID, "events", string(b))
	}
	t.span.End()
}
