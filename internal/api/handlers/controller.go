// Package handlers implements the bearwatch JSON API endpoints.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/logger"
)

// User-facing error messages. Clients match on these strings.
const (
	MsgMissingKeys             = "Missing API Keys. Please configure .env or settings."
	MsgScanTimeout             = "Scan timed out"
	MsgVerificationUnavailable = "Verification unavailable, please try again later"
	MsgRouteNotFound           = "API Route Not Found"
	MsgInvalidRequest          = "Invalid request body"
	MsgInternal                = "Internal Server Error"
)

// Controller holds the dependencies shared by the handlers
type Controller struct {
	app *app.App
	log logger.Logger
	now func() time.Time
}

// Option configures a Controller
type Option func(*Controller)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a controller on top of application services
func New(application *app.App, opts ...Option) *Controller {
	c := &Controller{
		app: application,
		log: logger.Global().Module("api"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register mounts the API routes on g. scanMiddleware wraps POST /scan only.
func (c *Controller) Register(g *echo.Group, scanMiddleware ...echo.MiddlewareFunc) {
	g.GET("/health", c.Health)
	g.GET("/sightings", c.GetSightings)
	g.POST("/scan", c.Scan, scanMiddleware...)
	g.POST("/verify", c.VerifyProbe)
	g.POST("/report", c.Report)
	g.POST("/analyze-species", c.AnalyzeSpecies)
	g.POST("/risk", c.Risk)
	g.Any("/*", c.NotFound)
}

// ErrorResponse is the body of every API error
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs err under the request id and writes message with code.
// err is never echoed to the client.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	correlationID := ctx.Response().Header().Get(echo.HeaderXRequestID)
	if correlationID == "" {
		correlationID = ctx.Request().Header.Get(echo.HeaderXRequestID)
	}

	fields := []logger.Field{
		logger.String("correlation_id", correlationID),
		logger.String("path", ctx.Path()),
		logger.String("ip", ctx.RealIP()),
		logger.Int("status", code),
		logger.String("message", message),
	}
	if err != nil {
		fields = append(fields, logger.String("error", logger.RedactSensitiveData(err.Error())))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Warn("API error", fields...)
	}

	return ctx.JSON(code, ErrorResponse{
		Error:         message,
		Code:          code,
		CorrelationID: correlationID,
	})
}

// NotFound answers unmatched /api routes
func (c *Controller) NotFound(ctx echo.Context) error {
	return c.HandleError(ctx, nil, MsgRouteNotFound, http.StatusNotFound)
}

// validationMessage returns the message of a validation error, or fallback
func validationMessage(err error, fallback string) string {
	if errors.IsCategory(err, errors.CategoryValidation) {
		return err.Error()
	}
	return fallback
}

// HTTPErrorHandler renders errors that escape the handlers, such as
// binder, body limit and routing failures, in the API error format.
func (c *Controller) HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := MsgInternal
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}
	if code == http.StatusNotFound && strings.HasPrefix(ctx.Request().URL.Path, "/api/") {
		message = MsgRouteNotFound
	}

	if ctx.Request().Method == http.MethodHead {
		_ = ctx.NoContent(code)
		return
	}
	_ = c.HandleError(ctx, err, message, code)
}
