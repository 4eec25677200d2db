// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adiadia/app-builder/internal/auth"
	"github.com/adiadia/app-builder/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	HeaderSessionID          = "X-Session-Id"
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRetryAfter         = "Retry-After"

	limiterIdleTTL = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client. Buckets idle for longer
// than limiterIdleTTL are dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	perMinute int
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		limiters:  make(map[string]*clientLimiter, 32),
		perMinute: perMinute,
		limit:     rate.Limit(float64(perMinute) / 60.0),
		burst:     perMinute,
		now:       time.Now,
	}
}

type rateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func (rl *RateLimiter) allow(clientID string) rateLimitDecision {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > limiterIdleTTL {
		for id, cl := range rl.limiters {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(rl.limiters, id)
			}
		}
		rl.lastSweep = now
	}

	cl, ok := rl.limiters[clientID]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[clientID] = cl
	}
	cl.lastSeen = now

	if cl.limiter.AllowN(now, 1) {
		return rateLimitDecision{
			Allowed:   true,
			Remaining: int(math.Floor(cl.limiter.TokensAt(now))),
		}
	}

	reservation := cl.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return rateLimitDecision{RetryAfter: delay}
}

// ExecuteRateLimit throttles workflow execution per remote host. The
// caller-chosen X-Session-Id is only logged, so rotating it does not reset
// the bucket.
func ExecuteRateLimit(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	if limiter == nil {
		panic("middleware.ExecuteRateLimit requires a limiter")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIdentity(r)
			decision := limiter.allow(clientID)

			w.Header().Set(headerRateLimitLimit, strconv.Itoa(limiter.perMinute))
			w.Header().Set(headerRateLimitRemaining, strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				metrics.IncRateLimited()
				logger.Warn("execute request rate limited",
					"client_id", clientID,
					"session_id", strings.TrimSpace(r.Header.Get(HeaderSessionID)),
					"path", r.URL.Path,
					"retry_after_s", retryAfter,
				)
				w.Header().Set(headerRetryAfter, strconv.Itoa(retryAfter))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			// Keep the identity on the current request pointer so outer
			// middleware (request logging) can read it after next returns.
			*r = *r.WithContext(auth.WithClientID(r.Context(), clientID))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
