package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type (
	CORS struct {
		AllowOrigins []string `envconfig:"ALLOW_ORIGINS" default:"http://localhost:5173"`
	}

	JWT struct {
		Issuer   string   `envconfig:"ISSUER" default:"vocabulary-trainer-api"`
		Audience []string `envconfig:"AUDIENCE" default:"http://localhost:8080"`
		Secret   string   `envconfig:"SECRET"`
	}

	Cookie struct {
		Path            string        `envconfig:"CPATH" default:"/"` // not using PATH here because it may conflict with os.Path
		Domain          string        `envconfig:"DOMAIN" default:"localhost"`
		AuthExpiresIn   time.Duration `envconfig:"AUTH_EXPIRES_IN" default:"15m"`
		AccessExpiresIn time.Duration `envconfig:"ACCESS_EXPIRES_IN" default:"24h"`
	}

	HTTP struct {
		ProcessTimeout time.Duration `envconfig:"PROCESS_TIMEOUT" default:"10s"`
		RateLimit      float64       `envconfig:"RATE_LIMIT" default:"25"`
		CORS           CORS
		Cookie         Cookie
		JWT            JWT
	}

	Server struct {
		ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"10s"`
		Addr              string        `envconfig:"ADDR" default:":8080"`
	}

	Telegram struct {
		Token string `envconfig:"TOKEN"`
	}

	BuildInfo struct {
		Version   string
		BuildTime string
	}

	API struct {
		Dev            bool    `envconfig:"DEV" default:"false"`
		AllowedChatIDs []int64 `envconfig:"ALLOWED_CHAT_IDS"`
		DB             DB
		HTTP           HTTP
		Telegram       Telegram
		Server         Server
		Learning       Learning
		BuildInfo      BuildInfo `ignored:"true"`
	}
)

// NewAPI reads the API configuration from API_* environment variables (and .env in the working directory).
// Secrets of the prod environment come from SSM.
func NewAPI(ctx context.Context) (*API, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	res := &API{}
	if err := envconfig.Process("API", res); err != nil {
		return nil, fmt.Errorf("parse api environment: %w", err)
	}

	if !res.Dev {
		if err := setAPIProdConfig(ctx, res); err != nil {
			return nil, fmt.Errorf("set api prod config: %w", err)
		}
	}

	return validateAPI(res)
}

func validateAPI(conf *API) (*API, error) {
	errs := make([]string, 0, 5) //nolint:mnd // enough for all checks
	if conf.DB.Path == "" {
		errs = append(errs, "db path is required")
	}
	if conf.HTTP.JWT.Secret == "" {
		errs = append(errs, "jwt secret is required")
	}
	if conf.Telegram.Token == "" {
		errs = append(errs, "telegram token is required")
	}
	if len(conf.AllowedChatIDs) == 0 {
		errs = append(errs, "allowed chat ids are required")
	}
	if _, err := conf.Learning.TimeLocation(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone: %s", err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, ", "))
	}

	return conf, nil
}

func setAPIProdConfig(ctx context.Context, target *API) error {
	parameters, err := FetchAWSParams(ctx,
		ssmPrefix+"telegram-token",
		ssmPrefix+"jwt-secret",
		ssmPrefix+"allowed-chat-ids",
	)
	if err != nil {
		return fmt.Errorf("get parameters: %w", err)
	}

	for name, value := range parameters {
		switch strings.TrimPrefix(name, ssmPrefix) {
		case "telegram-token":
			target.Telegram.Token = value
		case "jwt-secret":
			target.HTTP.JWT.Secret = value
		case "allowed-chat-ids":
			target.AllowedChatIDs, err = parseChatIDs(value)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
