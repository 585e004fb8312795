package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/output"
	"github.com/mrz1836/custodian/internal/token"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// observe records request metrics and writes one structured log line per
// request. Bodies are never logged.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}

		req := c.Request()
		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.RecordRequest(req.Method, route, status, elapsed)

		zl := s.logger.Zerolog()
		ev := zl.Debug()
		if status >= http.StatusInternalServerError {
			ev = zl.Error()
		}
		ev.Str("method", req.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", elapsed).
			Str("remote", c.RealIP()).
			Msg("request")
		return nil
	}
}

func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.Allow(c.RealIP(), s.now()) {
			return custerr.ErrRateLimited
		}
		return next(c)
	}
}

// apiTokenFrom reads the API token from X-KMD-API-Token or a bearer
// Authorization header.
func apiTokenFrom(r *http.Request) string {
	if tok := r.Header.Get(api.HeaderAPIToken); tok != "" {
		return strings.TrimSpace(tok)
	}
	if h := r.Header.Get(api.HeaderAuthorization); strings.HasPrefix(h, api.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, api.BearerPrefix))
	}
	return ""
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tok := apiTokenFrom(c.Request())
		if tok == "" || !token.Equal(tok, s.apiToken) {
			s.logger.Debug("rejected request from %s: bad api token", c.RealIP())
			return custerr.ErrInvalidAPIKey
		}
		return next(c)
	}
}

// handleError renders every failure as an output.ErrorOutput envelope with
// the status code of its kind.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	err = normalize(err, c)
	status := custerr.HTTPStatus(err)
	if errors.Is(err, custerr.ErrRateLimited) {
		status = http.StatusTooManyRequests
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request().Method, c.Path(), err)
	}

	body := output.ErrorOutput{Error: output.DetailOf(err)}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Error("writing error response: %v", err)
	}
}

// normalize turns echo's own errors into custodian errors.
func normalize(err error, c echo.Context) error {
	var ce *custerr.CustodianError
	if errors.As(err, &ce) {
		return err
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	if he.Internal != nil && errors.As(he.Internal, &ce) {
		return he.Internal
	}

	msg := fmt.Sprint(he.Message)
	switch he.Code {
	case http.StatusNotFound:
		return custerr.WithDetails(custerr.ErrNotFound, map[string]string{"path": c.Request().URL.Path})
	case http.StatusMethodNotAllowed:
		return custerr.WithDetails(custerr.ErrInvalidInput, map[string]string{"method": c.Request().Method})
	case http.StatusUnauthorized:
		return custerr.ErrInvalidAPIKey
	case http.StatusTooManyRequests:
		return custerr.ErrRateLimited
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return custerr.Wrap(custerr.ErrInvalidInput, "%s", msg)
	}
	return custerr.Wrap(err, "%s", msg)
}
