package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/srs"
)

type ErrorResponse struct {
	Message string `json:"error"`
}

var (
	InternalServerError = ErrorResponse{"Internal server error"} //nolint:gochecknoglobals // this is a constant response for internal server error
	BadRequestError     = ErrorResponse{"Bad request"}           //nolint:gochecknoglobals // this is a constant response for bad request
	NotFoundError       = ErrorResponse{"Not found"}             //nolint:gochecknoglobals // this is a constant response for not found
	UnauthorizedError   = ErrorResponse{"Unauthorized"}          //nolint:gochecknoglobals // this is a constant response for unauthorized access
)

// domainError writes the response for an error returned by the review service or the repository.
// Errors that are not caused by the request are logged and reported as internal.
func domainError(c echo.Context, log *slog.Logger, msg string, err error) error {
	ctx := c.Request().Context()

	var ratingErr *srs.InvalidRatingError
	switch {
	case errors.As(err, &ratingErr),
		errors.Is(err, progression.ErrUnknownMode),
		errors.Is(err, review.ErrInvalidRange):
		log.DebugContext(ctx, msg, "error", err)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	case errors.Is(err, dal.ErrNotFound):
		log.DebugContext(ctx, msg, "error", err)
		return c.JSON(http.StatusNotFound, NotFoundError)
	case errors.Is(err, review.ErrNotStarted):
		log.DebugContext(ctx, msg, "error", err)
		return c.JSON(http.StatusConflict, ErrorResponse{Message: "word is not being learned"})
	case errors.Is(err, dal.ErrAlreadyExists):
		log.DebugContext(ctx, msg, "error", err)
		return c.JSON(http.StatusConflict, ErrorResponse{Message: "word already exists"})
	case errors.Is(err, dal.ErrInUse):
		log.DebugContext(ctx, msg, "error", err)
		return c.JSON(http.StatusConflict, ErrorResponse{Message: "word is in use"})
	default:
		log.ErrorContext(ctx, msg, "error", err)
		return c.JSON(http.StatusInternalServerError, InternalServerError)
	}
}

//nolint:gocognit // no more changes are needed
func HTTPErrorHandler(log *slog.Logger) func(err error, c echo.Context) {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var echoError *echo.HTTPError
		if !errors.As(err, &echoError) {
			log.ErrorContext(c.Request().Context(), "failed to process request", "error", err)
			if err := c.JSON(http.StatusInternalServerError, InternalServerError); err != nil { //nolint:govet // ignore shadow declaration
				log.ErrorContext(c.Request().Context(), "failed to write error response", "error", err)
			}
			return
		}

		if echoError.Code >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "failed to process request", "error", err)
		}

		if message, ok := echoError.Message.(string); ok {
			if message == "" || echoError.Code == http.StatusInternalServerError {
				message = InternalServerError.Message
			}
			if err := c.JSON(echoError.Code, ErrorResponse{Message: message}); err != nil { //nolint:govet // ignore shadow declaration
				log.ErrorContext(c.Request().Context(), "failed to write error response", "error", err)
			}

			return
		}

		if bytes, err := json.Marshal(echoError.Message); err != nil { //nolint:govet // ignore shadow declaration
			log.ErrorContext(c.Request().Context(), "failed to marshal error message", "error", err)
			if err := c.JSON(echoError.Code, InternalServerError); err != nil { //nolint:govet // ignore shadow declaration
				log.ErrorContext(c.Request().Context(), "failed to write error response", "error", err)
			}
		} else {
			c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if err := c.String(echoError.Code, string(bytes)); err != nil { //nolint:govet // ignore shadow declaration
				log.ErrorContext(c.Request().Context(), "failed to write error response", "error", err)
			}
		}
	}
}
