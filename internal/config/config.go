// Package config provides centralized configuration for the kirbuk server.
// Values come from environment variables (optionally seeded from .env files)
// with an optional YAML file for pipeline tuning.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvFiles are loaded, in order, before reading the environment. Variables
// already set are never overwritten.
var EnvFiles = []string{".env.local", ".env"}

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string
	// BaseURL is the public URL of this server, used in emails and signed links.
	BaseURL string
	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string

	LogLevel  string
	LogFormat string

	// StorageBackend selects the artifact store: "sqlite" or "s3".
	StorageBackend string
	// StoragePrefix is the top-level key prefix for every submission.
	StoragePrefix string
	DBPath        string
	SigningSecret string
	// LinkTTL is how long status-page download links stay valid.
	LinkTTL    time.Duration
	S3Bucket   string
	S3Region   string
	S3Endpoint string

	// LLMProvider selects which LLM backend to use: "openai", "claude", "gemini", "ollama".
	LLMProvider    string
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	GeminiKey      string
	GeminiModel    string
	OllamaURL      string
	OllamaModel    string
	// HTTPTimeout is the timeout for outgoing HTTP requests (extract, LLM).
	HTTPTimeout time.Duration

	// AgentEndpoint is the base URL of the browser agent runtime. When empty
	// exploration falls back to page extraction plus the model.
	AgentEndpoint string
	AgentRuntime  string
	AgentToken    string
	AgentTimeout  time.Duration

	// TTSProvider selects speech synthesis: "polly" or "command".
	TTSProvider string
	Voice       string
	TTSCommand  string
	AWSRegion   string

	// QueueBackend selects the submission queue: "memory" or "redis".
	QueueBackend      string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	QueueKey          string
	QueueCapacity     int
	Workers           int
	WorkerInterval    time.Duration
	SubmissionTimeout time.Duration

	WorkRoot          string
	KeepWorkDir       bool
	Interpreter       string
	AutomationTimeout time.Duration
	FFmpegPath        string
	FFprobePath       string
	MusicPath         string
	VoiceVolume       float64
	MusicVolume       float64
	DefaultDuration   float64
	MaxActions        int
	// SSMLDenylist lists markup tags removed from generated voice scripts.
	SSMLDenylist []string
	// VideoAlternates are filenames tried when the expected recording is missing.
	VideoAlternates []string

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	MailFrom      string
	OperatorEmail string

	SentryDSN         string
	SentryEnvironment string
}

// Load reads .env files, the environment and the optional CONFIG_FILE
// overlay, applying defaults.
func Load() (Config, error) {
	for _, f := range EnvFiles {
		loadEnvFile(f)
	}

	port := envOr("PORT", "8080")
	cfg := Config{
		Port:       port,
		BaseURL:    strings.TrimRight(envOr("BASE_URL", "http://localhost:"+port), "/"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		LogLevel:   envOr("LOG_LEVEL", "info"),
		LogFormat:  envOr("LOG_FORMAT", "text"),

		StorageBackend: envOr("STORAGE_BACKEND", "sqlite"),
		StoragePrefix:  envOr("STORAGE_PREFIX", "staging_area"),
		DBPath:         envOr("DB_PATH", "kirbuk.db"),
		SigningSecret:  os.Getenv("SIGNING_SECRET"),
		LinkTTL:        envDuration("LINK_TTL", time.Hour),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       os.Getenv("S3_REGION"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),

		LLMProvider:    envOr("LLM_PROVIDER", "openai"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    envOr("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel: envOr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		OllamaURL:      envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:    envOr("OLLAMA_MODEL", "llama3"),
		HTTPTimeout:    envDuration("HTTP_TIMEOUT", 60*time.Second),

		AgentEndpoint: os.Getenv("AGENT_ENDPOINT"),
		AgentRuntime:  envOr("AGENT_RUNTIME", "kirbuk-explorer"),
		AgentToken:    os.Getenv("AGENT_TOKEN"),
		AgentTimeout:  envDuration("AGENT_TIMEOUT", 15*time.Minute),

		TTSProvider: envOr("TTS_PROVIDER", "polly"),
		Voice:       os.Getenv("TTS_VOICE"),
		TTSCommand:  envOr("TTS_COMMAND", "edge-tts"),
		AWSRegion:   os.Getenv("AWS_REGION"),

		QueueBackend:      envOr("QUEUE_BACKEND", "memory"),
		RedisAddr:         envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		QueueKey:          envOr("QUEUE_KEY", "kirbuk:submissions"),
		QueueCapacity:     envInt("QUEUE_CAPACITY", 32),
		Workers:           envInt("WORKERS", 2),
		WorkerInterval:    envDuration("WORKER_INTERVAL", 3*time.Second),
		SubmissionTimeout: envDuration("SUBMISSION_TIMEOUT", 30*time.Minute),

		WorkRoot:          os.Getenv("WORK_ROOT"),
		KeepWorkDir:       envBool("KEEP_WORK_DIR", false),
		Interpreter:       envOr("AUTOMATION_INTERPRETER", "python3"),
		AutomationTimeout: envDuration("AUTOMATION_TIMEOUT", 5*time.Minute),
		FFmpegPath:        envOr("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:       envOr("FFPROBE_PATH", "ffprobe"),
		MusicPath:         os.Getenv("MUSIC_PATH"),
		VoiceVolume:       envFloat("VOICE_VOLUME", 1.0),
		MusicVolume:       envFloat("MUSIC_VOLUME", 0.15),
		DefaultDuration:   envFloat("DEFAULT_DURATION", 120),
		MaxActions:        envInt("MAX_ACTIONS", 8),
		SSMLDenylist:      splitComma(os.Getenv("SSML_DENYLIST")),
		VideoAlternates:   splitComma(os.Getenv("VIDEO_ALTERNATES")),

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      envInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		MailFrom:      envOr("MAIL_FROM", "kirbuk@localhost"),
		OperatorEmail: os.Getenv("OPERATOR_EMAIL"),

		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SentryEnvironment: envOr("SENTRY_ENVIRONMENT", "development"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// UseStubs returns true when no LLM API key is configured for the selected provider.
func (c Config) UseStubs() bool {
	switch c.LLMProvider {
	case "claude":
		return c.AnthropicKey == ""
	case "gemini":
		return c.GeminiKey == ""
	case "ollama":
		return false // Ollama runs locally, no key needed
	default:
		return c.OpenAIKey == ""
	}
}

// Level maps LogLevel onto a slog level; unknown values mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Tuning is the YAML overlay read from CONFIG_FILE. Fields left out keep
// their environment values.
type Tuning struct {
	SSMLDenylist    []string `yaml:"ssml_denylist"`
	VideoAlternates []string `yaml:"video_alternates"`
	MaxActions      int      `yaml:"max_actions"`
	VoiceVolume     *float64 `yaml:"voice_volume"`
	MusicVolume     *float64 `yaml:"music_volume"`
	DefaultDuration float64  `yaml:"default_duration"`
	Voice           string   `yaml:"voice"`
	MusicPath       string   `yaml:"music_path"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.apply(t)
	return nil
}

func (c *Config) apply(t Tuning) {
	if len(t.SSMLDenylist) > 0 {
		c.SSMLDenylist = t.SSMLDenylist
	}
	if len(t.VideoAlternates) > 0 {
		c.VideoAlternates = t.VideoAlternates
	}
	if t.MaxActions > 0 {
		c.MaxActions = t.MaxActions
	}
	if t.VoiceVolume != nil {
		c.VoiceVolume = *t.VoiceVolume
	}
	if t.MusicVolume != nil {
		c.MusicVolume = *t.MusicVolume
	}
	if t.DefaultDuration > 0 {
		c.DefaultDuration = t.DefaultDuration
	}
	if t.Voice != "" {
		c.Voice = t.Voice
	}
	if t.MusicPath != "" {
		c.MusicPath = t.MusicPath
	}
}

// loadEnvFile seeds the environment from path. A missing file is ignored.
func loadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring env file", "path", path, "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
