package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/convergehq/converge/internal/account"
	"github.com/convergehq/converge/internal/api"
	"github.com/convergehq/converge/internal/config"
	"github.com/convergehq/converge/internal/crypto"
	"github.com/convergehq/converge/internal/metrics"
	"github.com/convergehq/converge/internal/notify"
	"github.com/convergehq/converge/internal/profile"
	"github.com/convergehq/converge/internal/project"
	"github.com/convergehq/converge/internal/ratelimit"
	"github.com/convergehq/converge/internal/registration"
	"github.com/convergehq/converge/internal/team"
	"github.com/convergehq/converge/internal/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Converge server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		stat := pool.Stat()
		return stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns()
	})

	cipher, err := crypto.NewCipher(cfg.Crypto.ProfileKey)
	if err != nil {
		return err
	}

	accountStore := account.NewStore(pool)
	profileStore := profile.NewStore(pool, cipher)
	projectStore := project.NewStore(pool)
	teamStore := team.NewStore(pool)

	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	extractor := profile.NewHTTPExtractor(cfg.Extractor.BaseURL, cfg.Extractor.APIKey, cfg.Extractor.Timeout)

	var publisher registration.Publisher
	var forwarder *notify.Forwarder
	if cfg.Notify.WebhookURL != "" {
		sender := notify.NewWebhookSender(cfg.Notify.WebhookURL)
		forwarder = notify.NewForwarder(sender, cfg.Notify.BatchSize, cfg.Notify.FlushInterval).WithStats(m.Forwarder())
		go forwarder.Start(ctx)
		publisher = forwarder
	}

	regService := registration.NewService(accountStore, profileStore, extractor, tokens, publisher).WithStats(m.Onboarding())
	projectService := project.NewService(projectStore)
	teamService := team.NewService(projectService, profileStore, teamStore, teamStore, logger)

	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)

	router := api.NewRouter(api.RouterDeps{
		Registration:   regService,
		Projects:       projectService,
		Teams:          teamService,
		Tokens:         tokens,
		Limiter:        limiter,
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if forwarder != nil {
		forwarder.Stop()
	}

	return srv.Shutdown(shutdownCtx)
}
