package diagnostics

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Capture records every handler error that ends in a 5xx response. The error
// is returned untouched so echo's error handler still renders it. Failing to
// record is logged and otherwise ignored.
func Capture(sink Sink, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			status, cause := classify(err)
			if status < http.StatusInternalServerError {
				return err
			}

			req := c.Request()
			rid, _ := c.Get("request_id").(string)
			ev := ServerError{
				Timestamp: time.Now().UTC(),
				RequestID: rid,
				Method:    req.Method,
				Path:      req.URL.Path,
				Query:     req.URL.RawQuery,
				Status:    status,
				ErrorType: errorType(cause),
				Message:   cause.Error(),
			}
			if rerr := sink.RecordServerError(req.Context(), ev); rerr != nil {
				logger.Error().Err(rerr).Str("request_id", rid).Msg("record server error failed")
			}
			return err
		}
	}
}

// classify returns the response status for err and the error that caused it.
func classify(err error) (int, error) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			return he.Code, he.Internal
		}
		return he.Code, err
	}
	return http.StatusInternalServerError, err
}

// errorType names the innermost wrapped error's type, e.g. "*pgconn.PgError".
func errorType(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return fmt.Sprintf("%T", err)
}

type Handler struct {
	sink   Sink
	logger zerolog.Logger
}

func NewHandler(sink Sink, logger zerolog.Logger) *Handler {
	return &Handler{sink: sink, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/diagnostics/client_error", h.ReportClientError)
}

type clientErrorRequest struct {
	Screen    string         `json:"screen"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	Stack     string         `json:"stack"`
	Platform  string         `json:"platform"`
	Extra     map[string]any `json:"extra"`
}

func (h *Handler) ReportClientError(c echo.Context) error {
	var req clientErrorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Screen) == "" || strings.TrimSpace(req.ErrorType) == "" || strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "screen, error_type and message are required")
	}
	if req.Platform == "" {
		req.Platform = "unknown"
	}

	ev := ClientError{
		Timestamp: time.Now().UTC(),
		Screen:    req.Screen,
		ErrorType: req.ErrorType,
		Message:   req.Message,
		Stack:     req.Stack,
		Platform:  req.Platform,
		Extra:     req.Extra,
		Source:    "client_report",
	}
	if err := h.sink.RecordClientError(c.Request().Context(), ev); err != nil {
		h.logger.Error().Err(err).Msg("record client error failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save error log")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "recorded",
		"id":     ev.Timestamp.Format(time.RFC3339Nano),
	})
}
