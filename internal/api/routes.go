package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/config"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
)

type (
	Dependencies struct {
		Repo           dal.Repository
		Service        *review.Service
		TelegramClient TelegramClient
		Logger         *slog.Logger
	}
)

func NewRouter(ctx context.Context, conf *config.API, deps Dependencies) http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()

	e.Use(middleware.RequestID())
	e.Use(loggingMiddleware(ctx, deps.Logger))
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(conf.HTTP.RateLimit))))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.HTTP.CORS.AllowOrigins,
		AllowCredentials: true,
	}))
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: conf.HTTP.ProcessTimeout,
	}))
	e.Use(middleware.Secure())

	e.HTTPErrorHandler = HTTPErrorHandler(deps.Logger)

	jwtProcessor := NewJWTProcessor(conf.HTTP.JWT, conf.HTTP.Cookie.AuthExpiresIn, conf.HTTP.Cookie.AccessExpiresIn)
	cookiesProcessor := NewCookiesProcessor(conf.HTTP.Cookie, !conf.Dev)

	auth := NewAuthHandler(AuthDependencies{
		Repo:             deps.Repo,
		JWTProcessor:     jwtProcessor,
		CookiesProcessor: cookiesProcessor,
		TelegramClient:   deps.TelegramClient,
		AllowedChatIDs:   conf.AllowedChatIDs,
		Logger:           deps.Logger,
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":     "ok",
			"version":    conf.BuildInfo.Version,
			"build_time": conf.BuildInfo.BuildTime,
		})
	})

	e.POST("/auth/login", auth.Login)
	e.GET("/auth/status", auth.Status)
	e.POST("/auth/logout", auth.LogOut)

	secured := e.Group("", AuthMiddleware(cookiesProcessor, jwtProcessor, deps.Logger))
	registerSecuredRoutes(secured, auth, deps)

	return e
}

func registerSecuredRoutes(g *echo.Group, auth *AuthHandler, deps Dependencies) {
	g.GET("/auth/info", auth.Info)

	words := NewWordsHandler(deps.Repo, deps.Service, deps.Logger)
	g.GET("/words", words.FindWords)
	g.POST("/words", words.CreateWord)
	g.GET("/words/:id", words.GetWord)
	g.PUT("/words/:id", words.UpdateWord)
	g.DELETE("/words/:id", words.DeleteWord)
	g.POST("/words/:id/learn", words.StartLearning)
	g.DELETE("/words/:id/progress", words.ResetProgress)

	reviews := NewReviewsHandler(deps.Service, deps.Logger)
	g.GET("/reviews/due", reviews.Due)
	g.POST("/reviews", reviews.Submit)

	stats := NewStatsHandler(deps.Service, deps.Logger)
	g.GET("/stats", stats.Stats)
	g.GET("/stats/reviews", stats.Reviews)
	g.GET("/badges", stats.Badges)
}
