package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/api"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/config"
	sqlrepo "github.com/Roma7-7-7/vocabulary-trainer/internal/dal/sql"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/telegram"
)

var (
	// Version is set via -ldflags at build time
	Version = "dev" //nolint:gochecknoglobals // must be global to be replaced at build time
	// BuildTime is set via -ldflags at build time
	BuildTime = "unknown" //nolint:gochecknoglobals // must be global to be replaced at build time
)

const (
	exitCodeOK int = iota
	exitCodeConfigParse
	exitCodeDBConnect
	exitCodeInit
	exitCodeServerStart
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	go func() {
		<-sigs
		cancel()
	}()
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	conf, err := config.NewAPI(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get config", "error", err) //nolint:sloglint // app logger is not configured yet
		return exitCodeConfigParse
	}
	conf.BuildInfo.Version = Version
	conf.BuildInfo.BuildTime = BuildTime
	log := mustLogger(conf.Dev)

	db, err := sqlrepo.Open(ctx, conf.DB.Path)
	if err != nil {
		log.ErrorContext(ctx, "failed to open database", "error", err, "path", conf.DB.Path)
		return exitCodeDBConnect
	}
	defer db.Close()

	repo := sqlrepo.NewRepository(ctx, db, log)
	teleClient := telegram.NewClient(conf.Telegram.Token, log)
	service := review.NewService(repo, progression.MustNew(progression.DefaultConfig()), teleClient, conf.Learning.MustTimeLocation(), log)
	if err = service.SyncCatalog(ctx); err != nil {
		log.ErrorContext(ctx, "failed to sync badge catalog", "error", err)
		return exitCodeInit
	}

	router := api.NewRouter(ctx, conf, api.Dependencies{
		Repo:           repo,
		Service:        service,
		TelegramClient: teleClient,
		Logger:         log,
	})
	log.InfoContext(ctx, "starting api server",
		"version", Version,
		"build_time", BuildTime,
		"address", conf.Server.Addr,
	)

	server := &http.Server{
		ReadHeaderTimeout: conf.Server.ReadHeaderTimeout,
		Addr:              conf.Server.Addr,
		Handler:           router,
	}

	go func() {
		<-ctx.Done()
		cCtx, cCancel := context.WithTimeout(context.Background(), 15*time.Second) //nolint:mnd // ignore mnd
		defer cCancel()

		if sErr := server.Shutdown(cCtx); sErr != nil {
			log.ErrorContext(cCtx, "failed to shutdown api server", "error", sErr)
		}
	}()

	if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "failed to start api server", "error", err)
		return exitCodeServerStart
	}

	log.InfoContext(ctx, "api server is stopped")

	return exitCodeOK
}

func mustLogger(dev bool) *slog.Logger {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	if dev {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	return slog.New(handler)
}
