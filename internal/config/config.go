package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Backend selects which answer backend the dispatcher routes queries to.
const (
	BackendChat   = "chat"
	BackendSearch = "search"
	BackendMCP    = "mcp"
)

// Config holds all configuration for the voice bot. Values are immutable
// after Load; sessions copy what they need at creation time.
type Config struct {
	// Discord
	DiscordToken   string `envconfig:"DISCORD_BOT_TOKEN" required:"true"`
	GuildID        string `envconfig:"GUILD_ID" default:""`
	VoiceChannelID string `envconfig:"VOICE_CHANNEL_ID" default:""`

	// Wake phrase and hotword scanning
	WakePhrases     string  `envconfig:"WAKE_PHRASES" default:"orallm"` // comma-separated
	WakeWindowS     int     `envconfig:"WAKE_WINDOW_S" default:"2"`     // head-of-transcript match window, seconds
	HotwordWindowMs int     `envconfig:"HOTWORD_WINDOW_MS" default:"1500"`
	HotwordVoiceMs  int     `envconfig:"HOTWORD_VOICE_MS" default:"300"` // min voiced run to treat as a spoken phrase
	HotwordGapMs    int     `envconfig:"HOTWORD_GAP_MS" default:"200"`   // quiet gap that ends the phrase

	// Utterance segmentation
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS threshold for speech energy
	SilenceTimeoutMs   int     `envconfig:"SILENCE_TIMEOUT_MS" default:"1000"`
	MaxUtteranceMs     int     `envconfig:"MAX_UTTERANCE_MS" default:"10000"`
	SpeakerBufferMs    int     `envconfig:"SPEAKER_BUFFER_MS" default:"5000"` // rolling pre-hotword buffer

	// STT backend (whisper-style HTTP endpoint)
	STTURL           string  `envconfig:"STT_URL" default:"http://127.0.0.1:9000/transcribe"`
	STTLanguage      string  `envconfig:"STT_LANGUAGE" default:"ja"`
	STTMinConfidence float64 `envconfig:"STT_MIN_CONFIDENCE" default:"0.4"`
	STTTimeoutMs     int     `envconfig:"STT_TIMEOUT_MS" default:"15000"`

	// Answer backend
	Backend           string `envconfig:"ANSWER_BACKEND" default:"chat"` // chat | search | mcp
	DispatchTimeoutMs int    `envconfig:"DISPATCH_TIMEOUT_MS" default:"30000"`
	FallbackText      string `envconfig:"FALLBACK_TEXT" default:"すみません、うまく応答できませんでした。"`
	SpeakFallback     bool   `envconfig:"SPEAK_FALLBACK" default:"true"` // false -> failed turns stay silent
	NotifyEnabled     bool   `envconfig:"NOTIFY_ENABLED" default:"true"` // DM the answer text out of band

	// Chat (OpenAI-compatible) backend
	SystemPrompt     string `envconfig:"SYSTEM_PROMPT" default:"あなたはボイスチャンネルのアシスタントです。簡潔に答えてください。"`
	LLMBaseURL       string `envconfig:"LLM_BASE_URL" default:"http://127.0.0.1:1234/v1"`
	LLMAPIKey        string `envconfig:"LLM_API_KEY" default:"lm-studio"`
	LLMModel         string `envconfig:"LLM_MODEL" default:"openai/gpt-oss-20b"`
	LLMFallbackModel string `envconfig:"LLM_FALLBACK_MODEL" default:""`

	// Search (SerpApi-style) backend
	SearchBaseURL string `envconfig:"SEARCH_BASE_URL" default:"https://serpapi.com/search.json"`
	SearchAPIKey  string `envconfig:"SEARCH_API_KEY" default:""`
	SearchEngine  string `envconfig:"SEARCH_ENGINE" default:"google"`
	SearchLimit   int    `envconfig:"SEARCH_LIMIT" default:"5"`

	// MCP search backend
	MCPServerURL string `envconfig:"MCP_SERVER_URL" default:""`
	MCPTool      string `envconfig:"MCP_TOOL" default:"web_search"`

	// TTS backend (VOICEVOX-style two-step HTTP endpoint)
	TTSBaseURL   string `envconfig:"TTS_BASE_URL" default:"http://127.0.0.1:50021"`
	TTSSpeakerID int    `envconfig:"TTS_SPEAKER_ID" default:"1"`
	TTSTimeoutMs int    `envconfig:"TTS_TIMEOUT_MS" default:"30000"`

	// Playback
	QueueCapacity     int `envconfig:"QUEUE_CAPACITY" default:"8"`
	PlaybackTimeoutMs int `envconfig:"PLAYBACK_TIMEOUT_MS" default:"60000"`

	// Observability
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9091"`
}

// Load reads configuration from the environment, first merging a .env file
// when one exists in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables without
// consulting a .env file (useful for containerized deployments and tests).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendChat, BackendSearch, BackendMCP:
	default:
		return fmt.Errorf("ANSWER_BACKEND must be one of chat, search, mcp; got %q", c.Backend)
	}
	if c.Backend == BackendSearch && c.SearchAPIKey == "" {
		return fmt.Errorf("SEARCH_API_KEY is required when ANSWER_BACKEND=search")
	}
	if c.Backend == BackendMCP && c.MCPServerURL == "" {
		return fmt.Errorf("MCP_SERVER_URL is required when ANSWER_BACKEND=mcp")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive; got %d", c.QueueCapacity)
	}
	if c.SilenceTimeoutMs <= 0 || c.MaxUtteranceMs <= 0 {
		return fmt.Errorf("SILENCE_TIMEOUT_MS and MAX_UTTERANCE_MS must be positive")
	}
	if len(c.WakePhraseList()) == 0 {
		return fmt.Errorf("WAKE_PHRASES must name at least one phrase")
	}
	return nil
}

// WakePhraseList returns the configured wake phrases, lower-cased and trimmed.
func (c *Config) WakePhraseList() []string {
	parts := strings.Split(c.WakePhrases, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToLower(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Per-stage timeout accessors. Each network-calling stage has an independent
// upper bound; exceeding it is that stage's failure, never a crash.

func (c *Config) STTTimeout() time.Duration      { return time.Duration(c.STTTimeoutMs) * time.Millisecond }
func (c *Config) DispatchTimeout() time.Duration { return time.Duration(c.DispatchTimeoutMs) * time.Millisecond }
func (c *Config) TTSTimeout() time.Duration      { return time.Duration(c.TTSTimeoutMs) * time.Millisecond }
func (c *Config) PlaybackTimeout() time.Duration { return time.Duration(c.PlaybackTimeoutMs) * time.Millisecond }
func (c *Config) SilenceTimeout() time.Duration  { return time.Duration(c.SilenceTimeoutMs) * time.Millisecond }
func (c *Config) MaxUtterance() time.Duration    { return time.Duration(c.MaxUtteranceMs) * time.Millisecond }
