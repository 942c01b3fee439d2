package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

const (
	publishTimeout = 1 * time.Minute
	dedupTTL       = 25 * time.Hour
)

type (
	Reminder interface {
		SendReminder(ctx context.Context, chatID int64, dueWords int) error
	}

	DueSummaryFinder interface {
		FindDueSummaries(ctx context.Context, chatIDs []int64, now time.Time) ([]dal.DueSummary, error)
	}

	// Deduplicator remembers which reminders were already sent.
	Deduplicator interface {
		SetIfAbsent(key, value string, ttl time.Duration) bool
		Delete(key string)
	}

	ReminderConfig struct {
		ChatIDs  []int64
		Interval time.Duration
		HourFrom int
		HourTo   int
		Location *time.Location
	}

	// ReminderJob tells every chat with due words about them, at most once per calendar day.
	ReminderJob struct {
		conf     ReminderConfig
		repo     DueSummaryFinder
		reminder Reminder
		dedup    Deduplicator
		now      func() time.Time
		log      *slog.Logger
	}
)

func NewReminderJob(conf ReminderConfig, repo DueSummaryFinder, reminder Reminder, dedup Deduplicator, log *slog.Logger) *ReminderJob {
	if conf.Location == nil {
		conf.Location = time.UTC
	}
	return &ReminderJob{
		conf:     conf,
		repo:     repo,
		reminder: reminder,
		dedup:    dedup,
		now:      time.Now,
		log:      log,
	}
}

// Start runs the job every interval until ctx is done.
func (j *ReminderJob) Start(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.log.ErrorContext(ctx, "panic", "error", r)
		}
	}()

	j.log.InfoContext(ctx, "reminder schedule started")
	defer j.log.InfoContext(ctx, "reminder schedule stopped")

	ticker := time.NewTicker(j.conf.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent := j.Run(ctx)
			j.log.DebugContext(ctx, "reminder execution finished", "sent", sent)
		}
	}
}

// Run sends pending reminders and returns how many were sent.
// Nothing is sent outside of the configured hours.
func (j *ReminderJob) Run(ctx context.Context) int {
	now := j.now().In(j.conf.Location)
	if now.Hour() < j.conf.HourFrom || now.Hour() > j.conf.HourTo {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	summaries, err := j.repo.FindDueSummaries(ctx, j.conf.ChatIDs, now)
	if err != nil {
		j.log.ErrorContext(ctx, "failed to find due summaries", "error", err)
		return 0
	}

	sent := 0
	for _, s := range summaries {
		if s.DueWords == 0 {
			continue
		}

		key := fmt.Sprintf("reminder#%d#%s", s.ChatID, now.Format(time.DateOnly))
		if !j.dedup.SetIfAbsent(key, "sent", dedupTTL) {
			continue
		}

		if err = j.reminder.SendReminder(ctx, s.ChatID, s.DueWords); err != nil {
			j.log.ErrorContext(ctx, "failed to send reminder", "error", err, "chat_id", s.ChatID)
			j.dedup.Delete(key)
			continue
		}
		sent++
	}

	return sent
}
