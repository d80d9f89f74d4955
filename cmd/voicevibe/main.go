// VoiceVibe is a terminal coach for English speaking practice.
//
// Usage:
//
//	voicevibe [-verbose] [-quiet] [-no-speech] [-no-ai] [-offline-quiz]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/voicevibe/internal/api"
	"github.com/hammamikhairi/voicevibe/internal/catalog"
	"github.com/hammamikhairi/voicevibe/internal/conversation"
	"github.com/hammamikhairi/voicevibe/internal/display"
	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/engine"
	"github.com/hammamikhairi/voicevibe/internal/fluency"
	"github.com/hammamikhairi/voicevibe/internal/gpt"
	"github.com/hammamikhairi/voicevibe/internal/journey"
	"github.com/hammamikhairi/voicevibe/internal/logger"
	"github.com/hammamikhairi/voicevibe/internal/speech"
	"github.com/hammamikhairi/voicevibe/internal/storage"
	"github.com/hammamikhairi/voicevibe/internal/timer"
)

// Environment variables.
const (
	envAPIURL      = "VOICEVIBE_API_URL"
	envAPIToken    = "VOICEVIBE_API_TOKEN"
	envGPTKey      = "GPT_CHAT_KEY"
	envGPTEndpoint = "GPT_CHAT_ENDPOINT"
	envGPTModel    = "GPT_CHAT_MODEL"
)

const defaultAPIURL = "http://localhost:8080"

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".voicevibe/voicevibe.log", "file to write logs to (use \"stderr\" to log to console)")
	dataDir := flag.String("data-dir", ".", "root directory of the local attempt cache")
	cacheDir := flag.String("cache-dir", ".voicevibe/tts-cache", "directory for the persistent TTS audio cache")
	diskCache := flag.Bool("disk-cache", true, "persist synthesized audio to the cache directory")
	clipDir := flag.String("clip-dir", "clips", "directory of pre-recorded conversation clips")
	recordDir := flag.String("record-dir", ".voicevibe/recordings", "directory for microphone recordings")
	speechRate := flag.String("speech-rate", "", "Azure prosody rate for the coach and dialogue, e.g. -15%")
	noSpeech := flag.Bool("no-speech", false, "disable audio output")
	noAI := flag.Bool("no-ai", false, "disable the AI tutor even if GPT keys are set")
	offlineQuiz := flag.Bool("offline-quiz", false, "generate quiz questions with the AI tutor instead of the backend")
	whisperBin := flag.String("whisper-bin", "", "path to the whisper-cpp CLI binary; enables the listen command")
	whisperModel := flag.String("whisper-model", "bin/ggml-small.bin", "path to the Whisper GGML model file")
	ledgerDriver := flag.String("ledger-driver", "sqlite3", "activity ledger driver: sqlite3 or postgres")
	ledgerDSN := flag.String("ledger-dsn", ".voicevibe/ledger.db", "activity ledger data source")
	remindHour := flag.Int("remind-hour", 19, "hour of the daily practice reminder, -1 to disable")
	feedbackDelay := flag.Duration("feedback-delay", time.Second, "how long quiz answer feedback stays up")
	flag.Parse()

	logLevel := logger.ParseLevel(*verbose, *quiet)

	// Logs go to a file by default so the prompt stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		if err := ensureParentDir(*logFile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Third-party libraries (whisper, gocron) log through the default
	// package; send that to the same sink.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Backend ──────────────────────────────────────────────────

	apiURL := os.Getenv(envAPIURL)
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	token := os.Getenv(envAPIToken)
	client := api.NewClient(apiURL, log.Named("api"), api.WithToken(token))

	topics := catalog.NewMemoryCatalog(log.Named("catalog"))
	store := storage.NewMemoryStore(log.Named("store"))
	attempts := storage.NewAttemptFiles(*dataDir, log.Named("attempts"))

	var ledger *storage.Ledger
	if *ledgerDriver == "sqlite3" {
		if err := ensureParentDir(*ledgerDSN); err != nil {
			log.Warn("%v", err)
		}
	}
	if l, err := storage.OpenLedger(*ledgerDriver, *ledgerDSN, log.Named("ledger")); err != nil {
		log.Error("activity ledger disabled: %v", err)
	} else {
		ledger = l
		defer ledger.Close()
	}

	j := journey.New(client, client, log.Named("journey"), journey.WithFallback(topics))
	if token != "" {
		if email, err := api.EmailFromToken(token); err == nil {
			j.SetUserKey(journey.UserKey(email, ""))
		} else {
			log.Debug("no user key in token: %v", err)
		}
	}

	// ── AI tutor ─────────────────────────────────────────────────

	var tutor *gpt.Tutor
	gptKey := os.Getenv(envGPTKey)
	gptEndpoint := os.Getenv(envGPTEndpoint)
	if gptKey != "" && gptEndpoint != "" && !*noAI {
		var opts []gpt.ClientOption
		if model := os.Getenv(envGPTModel); model != "" {
			opts = append(opts, gpt.WithModel(model))
		}
		tutor = gpt.NewTutor(gpt.NewClient(gptEndpoint, gptKey, log.Named("gpt"), opts...), log.Named("tutor"))
		log.Info("AI tutor enabled")
	} else if !*noAI {
		log.Info("AI tutor disabled: set %s and %s to enable", envGPTKey, envGPTEndpoint)
	}

	var practice domain.PracticeRepository = client
	if *offlineQuiz {
		if tutor == nil {
			fmt.Fprintln(os.Stderr, "error: -offline-quiz needs the AI tutor")
			os.Exit(1)
		}
		practice = gpt.NewQuizBank(tutor, journeyTopics{j}, 0, log.Named("quiz"))
		log.Info("quiz questions are generated locally")
	}

	// ── Audio ────────────────────────────────────────────────────

	var tts domain.Synthesizer = speech.NewNoOp(log)
	var player domain.AudioPlayer = speech.NewNoOp(log)
	audioOn := false
	if !*noSpeech {
		azureKey := os.Getenv(speech.EnvAzureSpeechKey)
		azureRegion := os.Getenv(speech.EnvAzureSpeechRegion)
		if azureKey != "" && azureRegion != "" {
			tts = speech.NewAzureClient(azureKey, azureRegion, log.Named("azure"), speech.WithRate(*speechRate))
			log.Info("TTS through Azure (region=%s)", azureRegion)
		} else {
			tts = client
			log.Info("TTS through the backend; set %s and %s to use Azure directly", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
		}
		if p, err := speech.NewPlayer(log.Named("player")); err != nil {
			log.Error("audio player init failed, audio disabled: %v", err)
		} else {
			player = p
			audioOn = true
		}
	}

	app := &cliApp{
		journey:      j,
		gamification: client,
		tutor:        tutor,
		history:      gpt.NewHistory(20),
		recordDir:    *recordDir,
		audioOn:      audioOn,
		ledger:       ledger,
		log:          log,
	}
	app.actions = &tutorActions{app: app}

	seq := speech.NewSequencer(tts, player, log.Named("speech"),
		speech.WithCacheDir(*cacheDir),
		speech.WithDiskWrite(*diskCache),
		speech.WithClipDir(*clipDir),
		speech.WithTurnCallbacks(speech.TurnCallbacks{
			OnStart: app.onTurnStart,
			OnDone:  app.onTurnDone,
			OnError: app.onTurnError,
		}),
	)
	seq.Start(ctx)
	app.seq = seq

	ui := display.NewUI(app.status)
	app.ui = ui

	textNotifier := conversation.NewCLINotifier(log, ui)
	var notifier domain.Notifier = textNotifier
	if audioOn {
		notifier = speech.NewSpeakingNotifier(textNotifier, seq, log)
	}
	app.notifier = notifier

	// ── Practice flows ───────────────────────────────────────────

	engineOpts := []engine.Option{
		engine.WithFeedbackDelay(*feedbackDelay),
		engine.WithUserKey(j.CurrentUserKey),
		engine.WithOnChange(app.onSessionChange),
	}
	flowOpts := []fluency.FlowOption{fluency.WithUserID(j.CurrentUserKey)}
	var rehearsalOpts []journey.RehearsalOption
	if ledger != nil {
		engineOpts = append(engineOpts, engine.WithLedger(ledger))
		flowOpts = append(flowOpts, fluency.WithLedger(ledger))
		rehearsalOpts = append(rehearsalOpts, journey.WithRehearsalLedger(ledger))
	}

	app.engine = engine.New(practice, client, store, log.Named("engine"), engineOpts...)
	app.flow = fluency.NewFlow(client, client, client, attempts, log.Named("fluency"), flowOpts...)
	mic := speech.NewMic(log.Named("mic"))
	app.recorder = fluency.NewRecorder(mic, log.Named("recorder"),
		fluency.OnAutoStop(app.onAutoStop),
	)
	app.take = fluency.NewTake(mic, app.recorder.Active)
	app.phrases = journey.NewPhraseFlow(j, client, attempts, log.Named("phrases"))
	app.turns = journey.NewConversationFlow(j, client, log.Named("conversation"))
	app.rehearsal = journey.NewRehearsal(j, client, log.Named("rehearsal"), rehearsalOpts...)

	var parserOpts []conversation.ParserOption
	if tutor != nil {
		parserOpts = append(parserOpts, conversation.WithClassifier(tutor))
	}
	app.parser = conversation.NewKeywordParser(log.Named("parser"), parserOpts...)

	if *whisperBin != "" {
		if _, err := os.Stat(*whisperModel); err != nil {
			fmt.Fprintf(os.Stderr, "error: whisper model not found at %s\n", *whisperModel)
			os.Exit(1)
		}
		app.ear = speech.NewWhisperRecorder(*whisperBin, *whisperModel, log.Named("whisper"),
			speech.WithInterrupt(seq.Stop),
		)
		log.Info("voice input enabled (bin=%s, model=%s)", *whisperBin, *whisperModel)
	}

	if ledger != nil && *remindHour >= 0 {
		reminder := timer.NewReminder(ledger, notifier, j.CurrentUserKey, log.Named("reminder"),
			timer.WithHour(*remindHour),
		)
		if err := reminder.Start(ctx); err != nil {
			log.Error("%v", err)
		} else {
			defer reminder.Stop()
		}
	}

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	app.shutdown()
	cancel()
}

// journeyTopics looks topics up among the loaded journey.
type journeyTopics struct{ j *journey.Journey }

func (t journeyTopics) Get(_ context.Context, id string) (*domain.Topic, error) {
	for _, topic := range t.j.Topics() {
		if topic.ID == id {
			return &topic, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ensureParentDir creates the directory holding file.
func ensureParentDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
