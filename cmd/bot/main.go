package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/config"
	sqlrepo "github.com/Roma7-7-7/vocabulary-trainer/internal/dal/sql"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/schedule"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/telegram"
	"github.com/Roma7-7-7/vocabulary-trainer/pkg/cache"
)

var (
	// Version is set via -ldflags at build time
	Version = "dev" //nolint:gochecknoglobals // must be global to be replaced at build time
	// BuildTime is set via -ldflags at build time
	BuildTime = "unknown" //nolint:gochecknoglobals // must be global to be replaced at build time
)

const cacheEvictionInterval = 10 * time.Minute

const (
	exitCodeOK int = iota
	exitCodeConfigParse
	exitCodeDBConnect
	exitCodeInit
	exitCodeBotCreate
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

	conf, err := config.GetBot(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get config", "error", err) //nolint:sloglint // app logger is not configured yet
		return exitCodeConfigParse
	}

	log := mustLogger(conf.Dev)
	loc := conf.Learning.MustTimeLocation()

	log.InfoContext(ctx, "starting bot",
		"version", Version,
		"build_time", BuildTime,
		"config", loggableConfig(conf),
		"current_time_in_location", time.Now().In(loc),
	)
	defer log.InfoContext(ctx, "bot is stopped")

	db, err := sqlrepo.Open(ctx, conf.DB.Path)
	if err != nil {
		log.ErrorContext(ctx, "failed to open database", "error", err, "path", conf.DB.Path)
		return exitCodeDBConnect
	}
	defer db.Close()

	repo := sqlrepo.NewRepository(ctx, db, log)
	teleClient := telegram.NewClient(conf.TelegramToken, log)
	service := review.NewService(repo, progression.MustNew(progression.DefaultConfig()), teleClient, loc, log)
	if err = service.SyncCatalog(ctx); err != nil {
		log.ErrorContext(ctx, "failed to sync badge catalog", "error", err)
		return exitCodeInit
	}

	memCache := cache.NewInMemory()
	go memCache.StartEviction(ctx, cacheEvictionInterval)

	bot, err := telegram.NewBot(conf.TelegramToken, repo, service, memCache, log,
		telegram.Recover(log), telegram.LogErrors(log), telegram.AllowedChats(conf.AllowedChatIDs))
	if err != nil {
		log.ErrorContext(ctx, "failed to create bot", "error", err)
		return exitCodeBotCreate
	}

	reminders := schedule.NewReminderJob(schedule.ReminderConfig{
		ChatIDs:  conf.AllowedChatIDs,
		Interval: conf.Reminder.Interval,
		HourFrom: conf.Reminder.HourFrom,
		HourTo:   conf.Reminder.HourTo,
		Location: loc,
	}, repo, teleClient, memCache, log)
	go reminders.Start(ctx)

	log.InfoContext(ctx, "starting bot")
	bot.Start(ctx)

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

func loggableConfig(conf *config.Bot) map[string]any {
	return map[string]any{
		"dev":              conf.Dev,
		"allowed-chat-ids": conf.AllowedChatIDs,
		"db-path":          conf.DB.Path,
		"location":         conf.Learning.Location,
		"reminder-schedule": map[string]any{
			"interval":  conf.Reminder.Interval.String(),
			"hour-from": conf.Reminder.HourFrom,
			"hour-to":   conf.Reminder.HourTo,
		},
	}
}
