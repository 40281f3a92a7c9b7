package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/observability"
)

// unmatchedPath labels requests that matched no route.
const unmatchedPath = "unmatched"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// statusFor maps an error category to an HTTP status.
func statusFor(category errors.ErrorCategory) int {
	switch category {
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConfiguration:
		return http.StatusServiceUnavailable
	case errors.CategoryNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// categoryOf returns the category of an enhanced error, or http-request.
func categoryOf(err error) errors.ErrorCategory {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return errors.CategoryHTTP
}

// handleError renders err as an ErrorResponse. Internal details are logged,
// not returned, for 5xx responses.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := ErrorResponse{CorrelationID: uuid.NewString()[:8]}
	var he *echo.HTTPError
	var ee *errors.EnhancedError
	switch {
	case errors.As(err, &he):
		resp.Code = he.Code
		resp.Message = http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			resp.Message = msg
		}
		resp.Error = resp.Message
	case errors.As(err, &ee):
		resp.Code = statusFor(ee.Category)
		resp.Message = http.StatusText(resp.Code)
		resp.Error = err.Error()
	default:
		resp.Code = http.StatusInternalServerError
		resp.Message = http.StatusText(resp.Code)
		resp.Error = err.Error()
	}

	if resp.Code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			logger.String("correlation_id", resp.CorrelationID),
			logger.String("method", c.Request().Method),
			logger.String("uri", c.Request().RequestURI),
			logger.Error(err))
		resp.Error = resp.Message
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(resp.Code)
	} else {
		writeErr = c.JSON(resp.Code, resp)
	}
	if writeErr != nil {
		s.log.Debug("write error response", logger.Error(writeErr))
	}
}

// requestMetrics records count, latency and error category per route.
func requestMetrics(m *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil && !c.Response().Committed {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = unmatchedPath
			}
			method := c.Request().Method
			m.HTTP.RecordHTTPRequest(method, path, c.Response().Status, time.Since(start).Seconds())
			if err != nil {
				m.HTTP.RecordHTTPRequestError(method, path, string(categoryOf(err)))
			}
			return nil
		}
	}
}

// requestLogger logs one line per request through the module logger.
func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}
			log.WithContext(c.Request().Context()).Debug("request", fields...)
			return nil
		},
	})
}
