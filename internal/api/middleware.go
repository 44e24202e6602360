package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"professional-onboarding/internal/auth"
	"professional-onboarding/internal/domain"
)

type ctxKey string

const profileIDKey ctxKey = "profile_id"

func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileIDKey, profileID)
}

func ProfileIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(profileIDKey).(string)
	return v
}

// Authenticate resolves the bearer token to a profile id. Requests without a
// valid token are rejected before any handler runs.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				writeError(w, http.StatusUnauthorized, domain.MessageUnauthenticated, nil)
				return
			}
			claims, err := auth.ValidateToken(secret, strings.TrimSpace(tokenStr))
			if err != nil {
				writeError(w, http.StatusUnauthorized, domain.MessageUnauthenticated, nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithProfileID(r.Context(), claims.ProfileID())))
		})
	}
}

// profileRateLimiter keeps one token bucket per profile. A profile's entry is
// dropped once it has been idle long enough for its bucket to refill, so a
// recreated limiter allows exactly what the old one would have.
type profileRateLimiter struct {
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	now       func() time.Time

	limiters sync.Map // profile id -> *limiterEntry

	pruneMu   sync.Mutex
	lastPrune time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func newProfileRateLimiter(perMinute int, burst int) *profileRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	refill := time.Duration(float64(burst) * float64(time.Minute) / float64(perMinute))
	return &profileRateLimiter{
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     burst,
		idleAfter: refill,
		now:       time.Now,
	}
}

func (l *profileRateLimiter) allow(profileID string) bool {
	now := l.now()
	l.pruneIdle(now)

	v, ok := l.limiters.Load(profileID)
	if !ok {
		v, _ = l.limiters.LoadOrStore(profileID, &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)})
	}
	entry := v.(*limiterEntry)
	entry.lastSeen.Store(now.UnixNano())
	return entry.limiter.AllowN(now, 1)
}

// pruneIdle sweeps the map at most once per idle window.
func (l *profileRateLimiter) pruneIdle(now time.Time) {
	l.pruneMu.Lock()
	if now.Sub(l.lastPrune) < l.idleAfter {
		l.pruneMu.Unlock()
		return
	}
	l.lastPrune = now
	l.pruneMu.Unlock()

	cutoff := now.Add(-l.idleAfter).UnixNano()
	l.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastSeen.Load() <= cutoff {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *profileRateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(ProfileIDFromContext(r.Context())) {
			w.Header().Set("Retry-After", "10")
			writeError(w, http.StatusTooManyRequests, "Too many submissions. Please wait a moment and try again.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
