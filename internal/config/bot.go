package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const maxHour = 23

type (
	ReminderSchedule struct {
		Interval time.Duration `default:"30m"`
		HourFrom int           `default:"9"`
		HourTo   int           `default:"21"`
	}

	Bot struct {
		Dev            bool    `default:"false"`
		TelegramToken  string  `envconfig:"TELEGRAM_TOKEN"`
		AllowedChatIDs []int64 `envconfig:"ALLOWED_CHAT_IDS"`
		DB             DB
		Learning       Learning
		Reminder       ReminderSchedule
	}
)

// GetBot reads the bot configuration from BOT_* environment variables (and .env in the working directory).
func GetBot(ctx context.Context) (*Bot, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	res := &Bot{}
	if err := envconfig.Process("BOT", res); err != nil {
		return nil, fmt.Errorf("parse bot environment: %w", err)
	}

	if !res.Dev {
		if err := setBotProdConfig(ctx, res); err != nil {
			return nil, fmt.Errorf("set bot prod config: %w", err)
		}
	}

	return validateBot(res)
}

func validateBot(conf *Bot) (*Bot, error) {
	errs := make([]string, 0, 10) //nolint:mnd // 10 is a reasonable default value
	if conf.TelegramToken == "" {
		errs = append(errs, "telegram token is required")
	}
	if len(conf.AllowedChatIDs) == 0 {
		errs = append(errs, "allowed chat ids are required")
	}
	if conf.DB.Path == "" {
		errs = append(errs, "db path is required")
	}
	if conf.Reminder.Interval <= 0 {
		errs = append(errs, "reminder interval is required")
	}
	if conf.Reminder.HourFrom < 0 || conf.Reminder.HourFrom > maxHour {
		errs = append(errs, fmt.Sprintf("hour from %d must be in range 0-23", conf.Reminder.HourFrom))
	}
	if conf.Reminder.HourTo < 0 || conf.Reminder.HourTo > maxHour {
		errs = append(errs, fmt.Sprintf("hour to %d must be in range 0-23", conf.Reminder.HourTo))
	}
	if conf.Reminder.HourFrom >= conf.Reminder.HourTo {
		errs = append(errs, fmt.Sprintf("hour from %d must be less than hour to %d", conf.Reminder.HourFrom, conf.Reminder.HourTo))
	}
	if _, err := conf.Learning.TimeLocation(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone: %s", err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, ", "))
	}

	return conf, nil
}

func setBotProdConfig(ctx context.Context, target *Bot) error {
	parameters, err := FetchAWSParams(ctx,
		ssmPrefix+"telegram-token",
		ssmPrefix+"allowed-chat-ids",
	)
	if err != nil {
		return fmt.Errorf("get parameters: %w", err)
	}

	for name, value := range parameters {
		switch strings.TrimPrefix(name, ssmPrefix) {
		case "telegram-token":
			target.TelegramToken = value
		case "allowed-chat-ids":
			target.AllowedChatIDs, err = parseChatIDs(value)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
