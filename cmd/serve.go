package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohan/flashdeck/internal/auth"
	"github.com/rohan/flashdeck/internal/cardgen"
	"github.com/rohan/flashdeck/internal/config"
	"github.com/rohan/flashdeck/internal/contrib"
	"github.com/rohan/flashdeck/internal/grading"
	"github.com/rohan/flashdeck/internal/llm"
	"github.com/rohan/flashdeck/internal/logger"
	"github.com/rohan/flashdeck/internal/server"
	"github.com/rohan/flashdeck/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// runServe opens the store, builds dependencies, and serves until
// interrupted.
func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dsn, _ := cmd.Flags().GetString("db"); dsn != "" {
		cfg.DatabaseDSN = dsn
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cfg.JWTSecretGenerated {
		log.Warn("FLASHDECK_JWT_SECRET not set, using a generated development secret",
			"secret", cfg.JWTSecret,
		)
	}

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The provider is optional: without one, set creation and grading
	// degrade while studying and stats keep working.
	var grader *grading.Grader
	var generator *cardgen.Generator
	provider, err := llm.NewProvider(ctx, cfg.LLM, log)
	if err != nil {
		log.Warn("LLM provider not configured, AI features unavailable", "error", err)
		provider = llm.NewMockProvider()
	}
	grader = grading.New(provider, log)
	generator = cardgen.New(provider, log)

	contributions := st.Contributions()
	sets := st.Sets()
	aggregator := contrib.NewAggregator(contributions, sets, log)
	recorder := contrib.NewRecorder(contributions, log)

	srv := server.New(server.Options{
		Addr:        cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
		Verifier:    verifier,
		Sets:        sets,
		Aggregator:  aggregator,
		Recorder:    recorder,
		Grader:      grader,
		Generator:   generator,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
