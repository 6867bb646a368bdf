package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/yangwenmai/kirbuk/internal/agent"
	"github.com/yangwenmai/kirbuk/internal/config"
	"github.com/yangwenmai/kirbuk/internal/engine"
	"github.com/yangwenmai/kirbuk/internal/notify"
	"github.com/yangwenmai/kirbuk/internal/observe"
	"github.com/yangwenmai/kirbuk/internal/pipeline"
	"github.com/yangwenmai/kirbuk/internal/speech"
	"github.com/yangwenmai/kirbuk/internal/store"
	"github.com/yangwenmai/kirbuk/internal/worker"
)

// artifactStore is the configured store plus, for sqlite, what the API needs
// to serve signed links.
type artifactStore struct {
	store  store.ObjectStore
	blobs  *store.BlobStore
	signer *store.Signer
	close  func()
}

func openStore(ctx context.Context, cfg config.Config) (*artifactStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		s, err := store.NewS3Store(ctx, store.S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using S3 artifact store", "bucket", cfg.S3Bucket)
		return &artifactStore{store: s, close: func() {}}, nil
	case "sqlite", "":
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		secret := cfg.SigningSecret
		if secret == "" {
			secret = uuid.NewString()
			slog.Warn("SIGNING_SECRET not set, download links will not survive a restart")
		}
		signer := store.NewSigner(cfg.BaseURL, secret)
		s, err := store.New(db, signer)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init store: %w", err)
		}
		slog.Info("using sqlite artifact store", "path", cfg.DBPath)
		return &artifactStore{store: s, blobs: s, signer: signer, close: func() { db.Close() }}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

// newModelClient builds the client for cfg.LLMProvider. The returned func
// releases its resources.
func newModelClient(ctx context.Context, cfg config.Config) (engine.ModelClient, func(), error) {
	noop := func() {}
	if cfg.UseStubs() {
		slog.Warn("no API key for LLM provider, using stub model", "provider", cfg.LLMProvider)
		return &engine.StubModelClient{}, noop, nil
	}
	switch cfg.LLMProvider {
	case "claude":
		slog.Info("using Claude model client", "model", cfg.AnthropicModel)
		return engine.NewClaudeClient(cfg.AnthropicKey,
			engine.WithClaudeModel(cfg.AnthropicModel),
			engine.WithClaudeTimeout(cfg.HTTPTimeout),
		), noop, nil
	case "gemini":
		slog.Info("using Gemini model client", "model", cfg.GeminiModel)
		c, err := engine.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	case "ollama":
		slog.Info("using Ollama model client", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return engine.NewOllamaClient(cfg.OllamaURL, engine.WithOllamaModel(cfg.OllamaModel)), noop, nil
	case "openai", "":
		slog.Info("using OpenAI model client", "base_url", cfg.OpenAIBaseURL, "model", cfg.OpenAIModel)
		return engine.NewOpenAIClient(cfg.OpenAIKey,
			engine.WithModel(cfg.OpenAIModel),
			engine.WithBaseURL(cfg.OpenAIBaseURL),
			engine.WithRequestTimeout(cfg.HTTPTimeout),
		), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func newExplorer(cfg config.Config, mc engine.ModelClient) engine.Explorer {
	if cfg.AgentEndpoint != "" {
		slog.Info("exploring with agent runtime", "endpoint", cfg.AgentEndpoint, "runtime", cfg.AgentRuntime)
		client := agent.New(cfg.AgentEndpoint, cfg.AgentRuntime,
			agent.WithToken(cfg.AgentToken),
			agent.WithTimeout(cfg.AgentTimeout),
		)
		return engine.NewAgentExplorer(client)
	}
	var extractor engine.ContentExtractor = engine.NewHTTPExtractor(cfg.HTTPTimeout)
	if cfg.UseStubs() {
		extractor = &engine.StubExtractor{}
	}
	slog.Info("AGENT_ENDPOINT not set, exploring with page extraction")
	return engine.NewPageExplorer(extractor, mc)
}

func newSynthesizer(ctx context.Context, cfg config.Config) (speech.Synthesizer, error) {
	switch cfg.TTSProvider {
	case "command":
		slog.Info("using command speech synthesizer", "bin", cfg.TTSCommand)
		return speech.NewCommand(cfg.TTSCommand, cfg.Voice, 0), nil
	case "polly", "":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		slog.Info("using Polly speech synthesizer", "region", awsCfg.Region)
		return speech.NewPolly(awsCfg, cfg.Voice), nil
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q", cfg.TTSProvider)
	}
}

func newSender(cfg config.Config) (notify.Sender, error) {
	if cfg.SMTPHost == "" {
		slog.Warn("SMTP_HOST not set, notifications are only logged")
		return notify.LogSender{}, nil
	}
	m, err := notify.NewMailer(notify.MailerConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		Operator: cfg.OperatorEmail,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("sending notifications over SMTP", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	return m, nil
}

func newReporter(cfg config.Config) (pipeline.Reporter, func(), error) {
	if cfg.SentryDSN == "" {
		return observe.Log{}, func() {}, nil
	}
	s, err := observe.NewSentry(observe.SentryOptions{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     "kirbuk@" + version,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init sentry: %w", err)
	}
	slog.Info("reporting pipeline failures to Sentry", "environment", cfg.SentryEnvironment)
	return s, func() { s.Flush(5 * time.Second) }, nil
}

func newQueue(cfg config.Config) (worker.Queue, func(), error) {
	switch cfg.QueueBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		slog.Info("using redis submission queue", "addr", cfg.RedisAddr, "key", cfg.QueueKey, "capacity", cfg.QueueCapacity)
		return worker.NewRedisQueue(client, cfg.QueueKey, cfg.QueueCapacity), func() { client.Close() }, nil
	case "memory", "":
		return worker.NewMemoryQueue(cfg.QueueCapacity), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}
}
