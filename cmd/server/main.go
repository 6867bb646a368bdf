package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yangwenmai/kirbuk/internal/api"
	"github.com/yangwenmai/kirbuk/internal/config"
	"github.com/yangwenmai/kirbuk/internal/engine"
	"github.com/yangwenmai/kirbuk/internal/media"
	"github.com/yangwenmai/kirbuk/internal/model"
	"github.com/yangwenmai/kirbuk/internal/pipeline"
	"github.com/yangwenmai/kirbuk/internal/runner"
	"github.com/yangwenmai/kirbuk/internal/worker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	layout := model.NewLayout(cfg.StoragePrefix)

	objects, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer objects.close()

	modelClient, closeModel, err := newModelClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeModel()

	synth, err := newSynthesizer(ctx, cfg)
	if err != nil {
		return err
	}
	sender, err := newSender(cfg)
	if err != nil {
		return err
	}
	reporter, flush, err := newReporter(cfg)
	if err != nil {
		return err
	}
	defer flush()

	orch := pipeline.New(pipeline.Deps{
		Store:     objects.store,
		Explorer:  newExplorer(cfg, modelClient),
		Generator: engine.NewGenerator(modelClient, cfg.SSMLDenylist),
		Runner: runner.New(objects.store, layout,
			runner.WithInterpreter(cfg.Interpreter),
			runner.WithTimeout(cfg.AutomationTimeout),
			runner.WithAlternates(cfg.VideoAlternates),
		),
		Muxer:       media.New(media.WithBinaries(cfg.FFmpegPath, cfg.FFprobePath)),
		Synthesizer: synth,
		Sender:      sender,
		Reporter:    reporter,
	}, pipeline.Options{
		Layout:          layout,
		WorkRoot:        cfg.WorkRoot,
		KeepWorkDir:     cfg.KeepWorkDir,
		MusicPath:       cfg.MusicPath,
		VoiceVolume:     cfg.VoiceVolume,
		MusicVolume:     cfg.MusicVolume,
		DefaultDuration: cfg.DefaultDuration,
		MaxActions:      cfg.MaxActions,
		StatusURL: func(id string) string {
			return cfg.BaseURL + "/submission/" + id
		},
	})

	queue, closeQueue, err := newQueue(cfg)
	if err != nil {
		return err
	}
	defer closeQueue()
	pool := worker.New(queue, orch, cfg.Workers, cfg.SubmissionTimeout, cfg.WorkerInterval)

	apiOpts := []api.Option{
		api.WithLayout(layout),
		api.WithLinkTTL(cfg.LinkTTL),
		api.WithCORSOrigin(cfg.CORSOrigin),
	}
	if objects.blobs != nil {
		apiOpts = append(apiOpts, api.WithArtifacts(objects.blobs, objects.signer))
	}
	srv := api.New(pool, objects.store, apiOpts...)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Start(gctx)
	})
	g.Go(func() error {
		slog.Info("kirbuk server listening", "addr", httpServer.Addr, "base_url", cfg.BaseURL, "version", version)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
