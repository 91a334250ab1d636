package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"drone-fleet/internal/pkg/apperrors"
)

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen // one trial request in flight
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	}
	return "closed"
}

type circuitBreaker struct {
	mu          sync.Mutex
	state       circuitState
	failures    int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	now         func() time.Time
}

func newCircuitBreaker(threshold int, cooldown time.Duration, now func() time.Time) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, cooldown: cooldown, now: now}
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateOpen:
		if cb.now().Sub(cb.lastFailure) > cb.cooldown {
			cb.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		return false
	}
	return true
}

// record returns the state before and after the outcome.
func (cb *circuitBreaker) record(failed bool) (from, to circuitState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from = cb.state
	if !failed {
		cb.failures = 0
		cb.state = stateClosed
		return from, cb.state
	}
	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == stateHalfOpen || cb.failures >= cb.threshold {
		cb.state = stateOpen
	}
	return from, cb.state
}

// CircuitBreaker tracks 5xx responses per route and short-circuits a route
// with 503 after threshold consecutive failures, probing again once
// cooldown has passed. Store outages surface as INTERNAL errors, so this
// keeps a failing database from being hammered.
func CircuitBreaker(threshold int, cooldown time.Duration) gin.HandlerFunc {
	return circuitBreakerWithClock(threshold, cooldown, time.Now)
}

func circuitBreakerWithClock(threshold int, cooldown time.Duration, now func() time.Time) gin.HandlerFunc {
	breakers := &sync.Map{}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		val, _ := breakers.LoadOrStore(route, newCircuitBreaker(threshold, cooldown, now))
		cb := val.(*circuitBreaker)

		if !cb.allow() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, apperrors.ErrorResponse{
				Error: apperrors.ErrorBody{
					Code:    "CIRCUIT_OPEN",
					Message: "service temporarily unavailable",
				},
			})
			return
		}

		c.Next()

		from, to := cb.record(c.Writer.Status() >= http.StatusInternalServerError)
		if from != to {
			slog.WarnContext(c.Request.Context(), "circuit state changed",
				slog.String("route", route),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		}
	}
}
