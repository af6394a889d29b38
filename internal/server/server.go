// Package server exposes the build orchestrator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/headlinedeck/internal/build"
)

// Builder is the orchestrator as seen by the HTTP layer.
type Builder interface {
	Build(ctx context.Context, urls []string) (build.Result, error)
}

// Options configures New.
type Options struct {
	// PublicDir is served at / when non-empty.
	PublicDir string
	// BuildTimeout bounds one build request. Zero means no limit.
	BuildTimeout time.Duration
}

// Handler serves /build. Builds are serialised so the presentation has a
// single writer per process. Waiting for the slot counts against the build
// timeout.
type Handler struct {
	builder Builder
	timeout time.Duration
	slot    chan struct{}
}

// NewHandler returns a Handler around b.
func NewHandler(b Builder, timeout time.Duration) *Handler {
	return &Handler{builder: b, timeout: timeout, slot: make(chan struct{}, 1)}
}

// New builds the echo instance with routes and middleware registered.
func New(b Builder, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	h := NewHandler(b, opts.BuildTimeout)
	e.GET("/health", Health)
	e.POST("/build", h.Build)
	if dir := strings.TrimSpace(opts.PublicDir); dir != "" {
		e.Static("/", dir)
	}
	return e
}

// Health reports liveness.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

type buildResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Items   []build.Article `json:"articles,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	URL   string `json:"url,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// Build accepts {"urls": [...]} or {"urls": "one\nper\nline"} (also under
// "links"), as JSON or as a form post from the operator page.
func (h *Handler) Build(c echo.Context) error {
	raw, err := bindURLs(c)
	if err != nil {
		log.Warn().Err(err).Msg("unreadable build request")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No valid URLs provided"})
	}
	urls, err := build.NormalizeURLs(raw)
	if err != nil {
		log.Warn().Msg("no valid URLs received")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No valid URLs provided"})
	}
	log.Info().Int("count", len(urls)).Msg("articles received")

	ctx := c.Request().Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	select {
	case h.slot <- struct{}{}:
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("gave up waiting for a running build")
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "another build is in progress"})
	}
	defer func() { <-h.slot }()
	res, err := h.builder.Build(ctx, urls)
	if err != nil {
		return c.JSON(statusFor(err), errorBody(err))
	}
	return c.JSON(http.StatusOK, buildResponse{Success: true, Count: res.Count, Items: res.Articles})
}

func statusFor(err error) int {
	if errors.Is(err, build.ErrNoURLs) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorBody(err error) errorResponse {
	body := errorResponse{Error: err.Error()}
	var se *build.StageError
	if errors.As(err, &se) {
		body.URL = se.URL
		body.Stage = string(se.Stage)
	}
	return body
}

// bindURLs returns the raw "urls" (or "links") value of a JSON or form body.
func bindURLs(c echo.Context) (any, error) {
	req := c.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		if v := body["urls"]; !blank(v) {
			return v, nil
		}
		return body["links"], nil
	}
	params, err := c.FormParams()
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"urls", "links"} {
		vals := params[key]
		if blank(vals) {
			continue
		}
		if len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil
	}
	return nil, nil
}

// blank reports whether v carries no non-whitespace text, so an empty "urls"
// does not hide a populated "links".
func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				return false
			}
		}
		return true
	case []any:
		for _, e := range t {
			if !blank(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
