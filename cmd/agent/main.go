// Command agent runs the orchestrator against the local microphone and
// speakers via malgo, wiring real STT/LLM/TTS providers chosen by
// environment variable.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/verbio-ai/verbio-orchestrator/pkg/orchestrator"
	llmProvider "github.com/verbio-ai/verbio-orchestrator/pkg/providers/llm"
	sttProvider "github.com/verbio-ai/verbio-orchestrator/pkg/providers/stt"
	ttsProvider "github.com/verbio-ai/verbio-orchestrator/pkg/providers/tts"
	"github.com/verbio-ai/verbio-orchestrator/pkg/vad"
)

const sampleRate = 16000

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: no .env file found, using system environment variables")
	}

	groqKey := os.Getenv("GROQ_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	lokutorKey := os.Getenv("LOKUTOR_API_KEY")

	sttProviderName := os.Getenv("STT_PROVIDER")
	if sttProviderName == "" {
		sttProviderName = "groq"
	}
	llmProviderName := os.Getenv("LLM_PROVIDER")
	if llmProviderName == "" {
		llmProviderName = "groq"
	}

	lang := orchestrator.Language(os.Getenv("AGENT_LANGUAGE"))
	if lang == "" {
		lang = orchestrator.LanguageEn
	}

	if lokutorKey == "" {
		log.Fatal("Error: LOKUTOR_API_KEY must be set")
	}

	var stt orchestrator.STT
	switch sttProviderName {
	case "deepgram":
		if deepgramKey == "" {
			log.Fatal("Error: DEEPGRAM_API_KEY must be set for deepgram STT")
		}
		stt = sttProvider.NewDeepgramSTT(deepgramKey)
	case "groq":
		fallthrough
	default:
		if groqKey == "" {
			log.Fatal("Error: GROQ_API_KEY must be set for groq STT")
		}
		groqModel := os.Getenv("GROQ_STT_MODEL")
		if groqModel == "" {
			groqModel = "whisper-large-v3-turbo"
		}
		stt = sttProvider.NewGroqSTT(groqKey, groqModel)
	}

	var llm orchestrator.LLM
	switch llmProviderName {
	case "openai":
		if openaiKey == "" {
			log.Fatal("Error: OPENAI_API_KEY must be set for openai LLM")
		}
		llm = llmProvider.NewOpenAILLM(openaiKey, "gpt-4o")
	case "anthropic":
		if anthropicKey == "" {
			log.Fatal("Error: ANTHROPIC_API_KEY must be set for anthropic LLM")
		}
		llm = llmProvider.NewAnthropicLLM(anthropicKey, "claude-3-5-sonnet-20241022")
	case "groq":
		fallthrough
	default:
		if groqKey == "" {
			log.Fatal("Error: GROQ_API_KEY must be set for groq LLM")
		}
		llm = llmProvider.NewGroqLLM(groqKey, "llama-3.3-70b-versatile")
	}

	systemPrompt := "You are a helpful and concise voice assistant. Use short sentences suitable for speech."
	if lang == orchestrator.LanguageEs {
		systemPrompt = "Eres un asistente de voz util y conciso. Usa frases cortas adecuadas para el habla."
	}
	llm = orchestrator.WithSystemPrompt(llm, systemPrompt)

	tts := ttsProvider.NewLokutorTTS(lokutorKey, orchestrator.VoiceF1, lang)

	baseVAD := vad.NewEnergyVAD(0.02, 3, 25)
	echoVAD := orchestrator.NewEchoAwareVAD(baseVAD)

	cfg := orchestrator.DefaultConfig()
	cfg.SampleRate = sampleRate
	cfg.Language = lang

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("zap init failed: %v", err)
	}
	defer zlog.Sync()
	logger := orchestrator.NewZapLogger(zlog)

	sess, err := orchestrator.NewSession(stt, llm, tts, echoVAD, cfg, logger)
	if err != nil {
		log.Fatalf("session init failed: %v", err)
	}

	fmt.Printf("Configured: STT=%s | LLM=%s | TTS=lokutor | Language=%s\n", sttProviderName, llmProviderName, lang)
	fmt.Println("Voice Agent Started! Listening to microphone...")
	fmt.Println("Press Ctrl+C to exit")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer mctx.Uninit()

	var playbackMu sync.Mutex
	var playbackBytes []byte

	var rmsMu sync.Mutex
	lastRMS := 0.0

	audioIn := make(chan []byte, 32)

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			rms := rmsOf(pInput)
			rmsMu.Lock()
			lastRMS = rms
			rmsMu.Unlock()

			frame := make([]byte, len(pInput))
			copy(frame, pInput)
			select {
			case audioIn <- frame:
			default:
			}
		}
		if pOutput != nil {
			playbackMu.Lock()
			n := copy(pOutput, playbackBytes)
			playbackBytes = playbackBytes[n:]
			played := make([]byte, n)
			copy(played, pOutput[:n])
			playbackMu.Unlock()

			if n > 0 {
				echoVAD.RecordPlayedAudio(played)
			}
			for i := n; i < len(pOutput); i++ {
				pOutput[i] = 0
			}
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = sampleRate
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.Fatal(err)
	}

	go meter(&rmsMu, &lastRMS)

	sendStructured := func(ctx context.Context, event interface{}) error {
		b, err := json.Marshal(event)
		if err != nil {
			return err
		}
		fmt.Printf("\r\033[K[EVENT] %s\n", string(b))
		return nil
	}

	sendBinary := func(ctx context.Context, frame []byte) error {
		playbackMu.Lock()
		playbackBytes = append(playbackBytes, frame...)
		playbackMu.Unlock()
		return nil
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		fmt.Printf("\nShutting down...\n")
		device.Stop()
		close(audioIn)
		cancel()
	}()

	if err := sess.HandleSession(ctx, audioIn, sendStructured, sendBinary); err != nil && err != context.Canceled {
		log.Printf("session ended with error: %v", err)
	}
}

func rmsOf(pcm []byte) float64 {
	var sum float64
	n := 0
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | (int16(pcm[i+1]) << 8)
		f := float64(sample) / 32768.0
		sum += f * f
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

func meter(mu *sync.Mutex, rms *float64) {
	for {
		mu.Lock()
		level := *rms
		mu.Unlock()

		dots := int(level * 500)
		if dots > 40 {
			dots = 40
		}
		if dots < 0 {
			dots = 0
		}
		bar := ""
		for i := 0; i < dots; i++ {
			bar += "|"
		}
		fmt.Printf("\r[MIC ENERGY: %-40s] RMS: %.5f", bar, level)
		time.Sleep(100 * time.Millisecond)
	}
}
