package orchestrator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds construction-time tuning for a Session. Only SampleRate
// and SpeechQueueDepth are read by the core itself; the rest is passed
// through untouched so
// concrete STT/LLM/TTS providers have somewhere to read their own
// knobs from without every call site growing a bespoke options struct.
type Config struct {
	SampleRate         int      `yaml:"sample_rate"`
	Channels           int      `yaml:"channels"`
	BytesPerSample     int      `yaml:"bytes_per_sample"`
	FrameDurationMS    int      `yaml:"frame_duration_ms"`
	SpeechQueueDepth   int      `yaml:"speech_queue_depth"`
	MaxContextMessages int      `yaml:"max_context_messages"`
	VoiceStyle         Voice    `yaml:"voice_style"`
	Language           Language `yaml:"language"`
}

// DefaultConfig returns the configuration a session runs with when the
// caller supplies none: 16 kHz mono 16-bit PCM in 20 ms frames.
func DefaultConfig() Config {
	return Config{
		SampleRate:         16000,
		Channels:           1,
		BytesPerSample:     2,
		FrameDurationMS:    20,
		SpeechQueueDepth:   8,
		MaxContextMessages: 20,
		VoiceStyle:         VoiceF1,
		Language:           LanguageEn,
	}
}

// LoadConfigYAML reads a Config from path, starting from DefaultConfig
// so a deployment only needs to override the fields it cares about.
func LoadConfigYAML(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.SpeechQueueDepth <= 0 {
		cfg.SpeechQueueDepth = 8
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return cfg, nil
}
