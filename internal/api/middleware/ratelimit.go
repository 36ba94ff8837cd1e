package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// CooldownResponse is returned when a client triggers an endpoint again
// before its cooldown has elapsed.
type CooldownResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

// NewCooldown allows one request per client IP every cooldown. Rejected
// requests get 429 with a Retry-After header. A non-positive cooldown
// disables the limiter.
func NewCooldown(cooldown time.Duration) echo.MiddlewareFunc {
	if cooldown <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	retryAfter := int(math.Ceil(cooldown.Seconds()))
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(cooldown),
		Burst:     1,
		ExpiresIn: 2 * cooldown,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.JSON(http.StatusTooManyRequests, CooldownResponse{
				Error:             "Scan cooldown active, please wait before scanning again",
				RetryAfterSeconds: retryAfter,
			})
		},
	})
}
