package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hospitality-commands/internal/common/camunda"
	"hospitality-commands/internal/common/config"
	commonhttp "hospitality-commands/internal/common/http"
	"hospitality-commands/internal/common/observability"
	"hospitality-commands/internal/dispatch"
	"hospitality-commands/internal/notify"
	"hospitality-commands/internal/pipeline"
	"hospitality-commands/internal/render"
	"hospitality-commands/internal/scheduler"
	"hospitality-commands/internal/webhook"
	interpretcommand "hospitality-commands/internal/workers/interpret-command"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server, daily scheduler and optional Zeebe worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLog, log := newLogger(cfg)
	defer func() { _ = zapLog.Sync() }()

	log.Info("starting command server", map[string]interface{}{
		"version":   cfg.App.Version,
		"transport": cfg.Messaging.Transport,
		"llm":       cfg.LLM.Provider,
	})

	if err := render.ValidateCatalog(); err != nil {
		return fmt.Errorf("template catalog: %w", err)
	}

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	// --- Dispatch log ---
	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	sinks, err := buildSinks(ctx, cfg, stores)
	if err != nil {
		return err
	}
	dispatchLog := dispatch.NewLog(log, config.GetDuration(cfg.Dispatch.Timeout), sinks...)

	// --- Pipeline ---
	interpreter, err := buildInterpreter(ctx, cfg, true, log)
	if err != nil {
		return err
	}

	notifyTimeout := config.GetDuration(cfg.Messaging.Timeout)
	notifier, err := notify.New(ctx, cfg.Messaging, commonhttp.NewClient(notifyTimeout), log)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessor(interpreter, dispatchLog, render.NewRenderer(), notifier, log, pipeline.Options{
		NotifyTimeout: notifyTimeout,
		Observability: obs,
	})

	// --- Scheduler ---
	sched, err := scheduler.New(cfg.Scheduler, log)
	if err != nil {
		return err
	}
	if cfg.Scheduler.Enabled {
		sched.Start(ctx)
	}

	// --- Zeebe worker ---
	var zeebe *camunda.Client
	var jobWorker *camunda.Worker
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		if err != nil {
			sched.Stop()
			return err
		}
		handler := interpretcommand.NewHandler(interpretcommand.LoadConfig(cfg.Camunda), processor, log)
		jobWorker = camunda.NewWorker(zeebe.GetClient(), interpretcommand.TaskType, cfg.Camunda.MaxJobsActive, handler, log)
	}

	// --- HTTP ---
	deps := webhook.Deps{
		Processor:       processor,
		Scheduler:       sched,
		Stores:          stores,
		DatabaseEnabled: stores.Enabled(),
		ListLimit:       cfg.Dispatch.RecentLimit,
		RequestTimeout:  config.GetDuration(cfg.Server.WriteTimeout),
	}
	if lister, ok := dispatchLog.Lister(); ok {
		deps.Lister = lister
	}
	server := webhook.NewServer(cfg.Server, deps, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	// --- Graceful Shutdown ---
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case runErr = <-serverErr:
		if runErr != nil {
			log.Error("http server failed", map[string]interface{}{"error": runErr.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			log.Error("error closing zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}
	sched.Stop()
	if err := dispatchLog.Close(shutdownCtx); err != nil {
		log.Warn("dispatch writes still pending at shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("command server stopped", nil)
	return runErr
}
