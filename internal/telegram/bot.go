package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"text/template"
	"time"

	tb "gopkg.in/telebot.v3"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/data"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
)

const (
	commandStart  = "/start"
	commandAdd    = "/add"
	commandStats  = "/stats"
	commandDue    = "/due"
	commandReview = "/review"
	commandBadges = "/badges"

	somethingWentWrongMsg = "something went wrong"

	cacheTTL       = 24 * time.Hour
	processTimeout = 10 * time.Second
	dueListLimit   = 20
)

//nolint:gochecknoglobals // parsed once
var (
	statsTemplate = template.Must(template.New("stats").Parse(`Level {{.Level}} · {{.TotalXP}} XP (next level at {{.NextLevelXP}} XP)
Streak: {{.CurrentStreak}} (longest {{.LongestStreak}})
Reviews: {{.TotalReviews}}
Learned: {{.WordsLearned}}, mastered: {{.WordsMastered}}
New: {{.Progress.New}} · learning: {{.Progress.Learning}} · reviewing: {{.Progress.Reviewing}}
Due now: {{.DueWords}}`))

	dueTemplate = template.Must(template.New("due").Parse(`Due for review:
{{- range .}}
- {{.Word.Word}}
{{- end}}`))

	badgesTemplate = template.Must(template.New("badges").Parse(`Badges:
{{- range .}}
{{if .EarnedAt}}{{.Icon}}{{else}}🔒{{end}} {{.Name}}: {{.Description}}
{{- end}}`))
)

type (
	Cache interface {
		Get(key string) (string, bool)
		Take(key string) (string, bool)
		Set(key, value string, ttl time.Duration)
		Delete(key string)
	}

	Bot struct {
		bot     *tb.Bot
		repo    dal.Repository
		service *review.Service
		cache   Cache
		now     func() time.Time

		middlewares []tb.MiddlewareFunc

		log *slog.Logger
	}
)

func NewBot(token string, repo dal.Repository, service *review.Service, cache Cache, log *slog.Logger, middlewares ...tb.MiddlewareFunc) (*Bot, error) {
	b, err := tb.NewBot(tb.Settings{
		Token: token,
		Poller: &tb.LongPoller{
			Timeout: 1 * time.Minute,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &Bot{
		bot:         b,
		repo:        repo,
		service:     service,
		cache:       cache,
		now:         time.Now,
		middlewares: middlewares,
		log:         log,
	}, nil
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.bot.Handle(commandStart, b.HandleStart, b.middlewares...)
	b.bot.Handle(commandAdd, b.HandleAdd, b.middlewares...)
	b.bot.Handle(commandStats, b.HandleStats, b.middlewares...)
	b.bot.Handle(commandDue, b.HandleDue, b.middlewares...)
	b.bot.Handle(commandReview, b.HandleReview, b.middlewares...)
	b.bot.Handle(commandBadges, b.HandleBadges, b.middlewares...)
	b.bot.Handle(tb.OnCallback, b.HandleCallback, b.middlewares...)

	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()

	b.bot.Start()
}

func (b *Bot) HandleStart(m tb.Context) error {
	return m.Reply(`Hello, I'm a vocabulary trainer.
/add word: translation[: description] adds a word and starts learning it
/review reviews the next due word
/due lists words due for review
/stats shows your progress
/badges shows your badges`)
}

func (b *Bot) HandleAdd(m tb.Context) error {
	ctx, cancel := processCtx()
	defer cancel()

	parsed, err := data.ParseWord(strings.TrimSpace(m.Message().Payload))
	if err != nil {
		b.log.DebugContext(ctx, "wrong message format", "message", m.Text(), "error", err)
		return m.Reply("wrong message format, it should be like: /add word: translation")
	}
	parsed.ChatID = m.Chat().ID

	wordID, err := b.repo.AddWord(ctx, parsed)
	if err != nil {
		if errors.Is(err, dal.ErrAlreadyExists) {
			return m.Reply("word already exists")
		}
		b.log.ErrorContext(ctx, "failed to add word", "error", err)
		return m.Reply("failed to add word")
	}

	if _, err = b.service.StartLearning(ctx, m.Chat().ID, wordID); err != nil {
		b.log.ErrorContext(ctx, "failed to start learning", "error", err)
		return m.Reply("word added, but failed to start learning it")
	}

	return m.Reply("word added")
}

func (b *Bot) HandleStats(m tb.Context) error {
	ctx, cancel := processCtx()
	defer cancel()

	stats, err := b.service.Stats(ctx, m.Chat().ID)
	if err != nil {
		b.log.ErrorContext(ctx, "failed to get stats", "error", err)
		return m.Reply("failed to get stats")
	}

	return b.replyTemplate(ctx, m, statsTemplate, stats)
}

func (b *Bot) HandleDue(m tb.Context) error {
	ctx, cancel := processCtx()
	defer cancel()

	words, err := b.service.DueWords(ctx, m.Chat().ID, dueListLimit)
	if err != nil {
		b.log.ErrorContext(ctx, "failed to get due words", "error", err)
		return m.Reply("failed to get due words")
	}
	if len(words) == 0 {
		return m.Reply("no words to review")
	}

	return b.replyTemplate(ctx, m, dueTemplate, words, startReviewMarkup())
}

func (b *Bot) HandleBadges(m tb.Context) error {
	ctx, cancel := processCtx()
	defer cancel()

	badges, err := b.service.Badges(ctx, m.Chat().ID)
	if err != nil {
		b.log.ErrorContext(ctx, "failed to get badges", "error", err)
		return m.Reply("failed to get badges")
	}

	return b.replyTemplate(ctx, m, badgesTemplate, badges)
}

func (b *Bot) HandleReview(m tb.Context) error {
	ctx, cancel := processCtx()
	defer cancel()

	return b.sendNextReview(ctx, m)
}

// sendNextReview sends the most overdue word as a flashcard.
func (b *Bot) sendNextReview(ctx context.Context, m tb.Context) error {
	chatID := m.Chat().ID
	words, err := b.service.DueWords(ctx, chatID, 1)
	if err != nil {
		b.log.ErrorContext(ctx, "failed to get due words", "error", err)
		return m.Send(somethingWentWrongMsg)
	}
	if len(words) == 0 {
		return m.Send("no words to review 🎉")
	}

	w := words[0]
	c := reviewCard{
		WordID:      w.ID,
		Word:        w.Word.Word,
		Translation: w.Translation,
		Description: w.Description,
		Morphemes:   w.Morphemes,
		SentAt:      b.now(),
	}
	encoded, err := c.encode()
	if err != nil {
		b.log.ErrorContext(ctx, "failed to encode review card", "error", err)
		return m.Send(somethingWentWrongMsg)
	}

	cacheID := callbackCacheID(chatID, b.now())
	b.cache.Set(cacheID, encoded, cacheTTL)

	return m.Send(fmt.Sprintf("<b>%s</b>", html.EscapeString(c.Word)), tb.ModeHTML, seeTranslationMarkup(cacheID))
}

func (b *Bot) replyTemplate(ctx context.Context, m tb.Context, tmpl *template.Template, v any, opts ...any) error {
	buff := &strings.Builder{}
	if err := tmpl.Execute(buff, v); err != nil {
		b.log.ErrorContext(ctx, "failed to render template", "template", tmpl.Name(), "error", err)
		return m.Reply(somethingWentWrongMsg)
	}
	return m.Reply(buff.String(), opts...)
}

func callbackCacheID(chatID int64, now time.Time) string {
	return fmt.Sprintf("%d#%d", chatID, now.UnixNano())
}

func processCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), processTimeout)
}
