package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/orallm/voicebot/internal/audio"
	"github.com/orallm/voicebot/internal/config"
	"github.com/orallm/voicebot/internal/dispatch"
	"github.com/orallm/voicebot/internal/hotword"
	"github.com/orallm/voicebot/internal/llm"
	"github.com/orallm/voicebot/internal/logging"
	"github.com/orallm/voicebot/internal/mcp"
	"github.com/orallm/voicebot/internal/metrics"
	"github.com/orallm/voicebot/internal/notify"
	"github.com/orallm/voicebot/internal/search"
	"github.com/orallm/voicebot/internal/stt"
	"github.com/orallm/voicebot/internal/tts"
	"github.com/orallm/voicebot/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("info")
		logging.Errorw("config load failed", "err", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)
	defer logging.Sync()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				logging.Errorw("metrics server stopped", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logging.Errorw("discord session create failed", "err", err)
		os.Exit(1)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMessages

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher, cleanup, err := buildDispatcher(ctx, cfg, dg)
	if err != nil {
		logging.Errorw("backend setup failed", "backend", cfg.Backend, "err", err)
		os.Exit(1)
	}
	defer cleanup()

	pipe := voice.Pipeline{
		Transcribe: stt.New(cfg.STTURL, cfg.STTLanguage, cfg.STTMinConfidence, cfg.STTTimeout()),
		Respond:    dispatcher,
		Synthesize: tts.New(cfg.TTSBaseURL, cfg.TTSSpeakerID, cfg.TTSTimeout()),
		Detector: hotword.NewEnergyDetector(
			cfg.VADEnergyThreshold, cfg.HotwordWindowMs, cfg.HotwordVoiceMs, cfg.HotwordGapMs),
		Matcher: hotword.NewMatcher(cfg.WakePhraseList(), cfg.WakeWindowS),
	}
	base := voice.SessionConfig{
		VADThreshold:    cfg.VADEnergyThreshold,
		SilenceTimeout:  cfg.SilenceTimeout(),
		MaxUtterance:    cfg.MaxUtterance(),
		BufferSamples:   cfg.SpeakerBufferMs * audio.SampleRate / 1000,
		QueueCapacity:   cfg.QueueCapacity,
		PlaybackTimeout: cfg.PlaybackTimeout(),
	}
	manager := voice.NewManager(&voice.DiscordTransport{Session: dg}, base, pipe)

	if err := dg.Open(); err != nil {
		logging.Errorw("discord gateway open failed", "err", err)
		os.Exit(1)
	}
	defer dg.Close()
	logging.Infow("gateway connected", "user", dg.State.User.Username)

	if cfg.GuildID != "" && cfg.VoiceChannelID != "" {
		joinCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if _, err := manager.Join(joinCtx, cfg.GuildID, cfg.VoiceChannelID); err != nil {
			logging.Errorw("voice channel join failed",
				"guild_id", cfg.GuildID, "channel_id", cfg.VoiceChannelID, "err", err)
		} else {
			logging.Infow("listening in voice channel",
				"guild_id", cfg.GuildID, "channel_id", cfg.VoiceChannelID)
		}
		cancel()
	}

	<-ctx.Done()
	logging.Infow("shutting down")
	manager.CloseAll()
}

// buildDispatcher wires the answer backend the configuration selects.
func buildDispatcher(ctx context.Context, cfg *config.Config, dg *discordgo.Session) (*dispatch.Dispatcher, func(), error) {
	d := &dispatch.Dispatcher{
		SystemPrompt:  cfg.SystemPrompt,
		Timeout:       cfg.DispatchTimeout(),
		FallbackText:  cfg.FallbackText,
		SpeakFallback: cfg.SpeakFallback,
	}
	if cfg.NotifyEnabled {
		d.Notifier = &notify.DiscordNotifier{Session: dg}
	} else {
		d.Notifier = notify.Noop{}
	}

	cleanup := func() {}
	switch cfg.Backend {
	case config.BackendSearch:
		d.Search = search.New(cfg.SearchBaseURL, cfg.SearchAPIKey, cfg.SearchEngine, cfg.SearchLimit)
	case config.BackendMCP:
		client := mcp.NewSearchClient("voicebot", "0.1.0", cfg.MCPTool)
		// ctx is process-scoped; it also drives the session keepalive
		if err := client.Connect(ctx, cfg.MCPServerURL); err != nil {
			return nil, nil, err
		}
		d.Search = client
		cleanup = func() { _ = client.Close() }
	default:
		d.Chat = llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMFallbackModel)
	}
	return d, cleanup, nil
}
