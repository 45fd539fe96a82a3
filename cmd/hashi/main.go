package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alexanderramin/hashi/internal/audit"
	"github.com/alexanderramin/hashi/internal/clarify"
	"github.com/alexanderramin/hashi/internal/config"
	"github.com/alexanderramin/hashi/internal/db"
	"github.com/alexanderramin/hashi/internal/dedup"
	"github.com/alexanderramin/hashi/internal/dispatch"
	"github.com/alexanderramin/hashi/internal/extract"
	"github.com/alexanderramin/hashi/internal/llm"
	"github.com/alexanderramin/hashi/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "hashi",
		Short: "Natural-language to spreadsheet bridge",
		Long: "hashi accepts free-text task instructions over HTTP, normalizes them\n" +
			"into structured sheet commands via a language model, and forwards\n" +
			"completed commands to a spreadsheet-automation webhook.",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(verbose)
		},
	}
	root.AddCommand(serve)

	return root
}

func runServe(verbose bool) error {
	logCfg := zap.NewProductionConfig()
	if verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	cfg := config.Load()
	llmCfg := llm.LoadConfig()
	if missing := config.MissingEnv(); len(missing) > 0 {
		// Startup never fails on absent config; the health endpoint
		// reports it and the affected path errors at point of use.
		log.Warn("missing configuration", zap.Strings("env", missing))
	}

	client := llm.NewOpenAIClient(llmCfg, llm.NewZapObserver(log))
	extractor := extract.New(client, nil)
	store := clarify.NewMemoryStore(cfg.PendingTTL, nil)
	engine := clarify.NewEngine(extractor, store, nil)
	seen := dedup.NewStore(cfg.DedupTTL, nil)

	var dispatcher dispatch.Dispatcher
	if cfg.SinkURL != "" {
		dispatcher = dispatch.NewWebhook(cfg.SinkURL, cfg.SharedToken, cfg.SinkTimeout)
	}

	var journal audit.Recorder = audit.NoopRecorder{}
	if cfg.DBPath != "" {
		database, err := db.OpenDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening dispatch journal: %w", err)
		}
		defer database.Close()
		journal = audit.NewSQLiteJournal(database, nil)
	}

	srv := server.New(log, cfg.APIKey, engine, dispatcher, seen, journal)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(ctx)
	}
}
