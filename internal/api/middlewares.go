package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	appctx "github.com/Roma7-7-7/vocabulary-trainer/internal/context"
)

// AuthMiddleware puts the chat ID of a valid access token into the request context.
func AuthMiddleware(cookieProc *CookiesProcessor, jwtProc *JWTProcessor, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := cookieProc.GetAccessToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, UnauthorizedError)
			}

			chatID, err := jwtProc.ParseAccessToken(token)
			if err != nil {
				log.WarnContext(c.Request().Context(), "parse access token", "error", err)
				return c.JSON(http.StatusUnauthorized, UnauthorizedError)
			}

			c.SetRequest(c.Request().WithContext(appctx.WithChatID(c.Request().Context(), chatID)))

			return next(c)
		}
	}
}

func loggingMiddleware(ctx context.Context, log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true, // forwards error to the global error handler, so it can decide appropriate status code
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}
			if v.Error == nil {
				log.LogAttrs(ctx, slog.LevelInfo, "REQUEST", attrs...)
			} else {
				log.LogAttrs(ctx, slog.LevelError, "REQUEST_ERROR", append(attrs, slog.String("err", v.Error.Error()))...)
			}
			return nil
		},
	})
}
