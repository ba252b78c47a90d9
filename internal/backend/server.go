package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jo-hoe/animal-pictures/internal/backend/response"
	"github.com/jo-hoe/animal-pictures/internal/common"
	"github.com/jo-hoe/animal-pictures/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	basePathContextKey    = "basePath"
	forwardedPrefixHeader = "X-Forwarded-Prefix"
)

// NewServer builds the echo instance shared by the API and the frontend.
func NewServer(config *core.ServiceConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// fixed paths match literally, so no trailing slash normalization
	e.Pre(BasePathMiddleware(config.BasePath))

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	// Configure request logger to skip the probe endpoint
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/probe"
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogUserAgent: true,
		LogRoutePath: true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				slog.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.Validator = common.NewGenericEchoValidator()
	e.HTTPErrorHandler = httpErrorHandler

	return e
}

// BasePathMiddleware strips the mount prefix before routing. A configured prefix wins; otherwise
// the prefix announced by a reverse proxy in X-Forwarded-Prefix is used. Paths outside the prefix
// pass through unchanged.
func BasePathMiddleware(configured string) echo.MiddlewareFunc {
	configured = core.NormalizeBasePath(configured)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			basePath := configured
			if basePath == "" {
				basePath = core.NormalizeBasePath(c.Request().Header.Get(forwardedPrefixHeader))
			}
			c.Set(basePathContextKey, basePath)

			u := c.Request().URL
			u.Path = StripBasePath(u.Path, basePath)
			if u.RawPath != "" {
				u.RawPath = StripBasePath(u.RawPath, basePath)
			}
			return next(c)
		}
	}
}

// BasePath returns the mount prefix of the current request ("" when served from the root).
func BasePath(c echo.Context) string {
	basePath, _ := c.Get(basePathContextKey).(string)
	return basePath
}

func StripBasePath(path, basePath string) string {
	if basePath == "" {
		return path
	}
	if path == basePath {
		return "/"
	}
	if strings.HasPrefix(path, basePath+"/") {
		return path[len(basePath):]
	}
	return path
}

// httpErrorHandler renders errors that handlers did not answer themselves. Unknown routes and
// wrong methods are both reported as 404: JSON below /api/, plain text elsewhere.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := msgInternalError
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok && code < http.StatusInternalServerError {
			message = m
		}
	}
	if code == http.StatusMethodNotAllowed {
		code = http.StatusNotFound
	}

	var writeErr error
	switch {
	case code == http.StatusNotFound && strings.HasPrefix(c.Request().URL.Path, "/api/"):
		writeErr = response.Error(c, code, http.StatusText(code))
	case code == http.StatusNotFound:
		writeErr = response.NotFound(c)
	case code >= http.StatusInternalServerError:
		slog.Error("unhandled request error", "status", code, "path", c.Request().URL.Path, "error", err)
		writeErr = response.Error(c, code, msgInternalError)
	default:
		writeErr = response.Error(c, code, message)
	}
	if writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}
