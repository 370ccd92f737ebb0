package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logctx "github.com/pribylovaa/authguard/internal/pkg/log"
	apierrors "github.com/pribylovaa/authguard/internal/transport/http/errors"
)

const limiterIdleTTL = 5 * time.Minute

// RateLimit - token bucket на IP клиента (RemoteAddr).
// rps <= 0 делает мидлвар no-op. Корзины, не использовавшиеся limiterIdleTTL,
// удаляются при очередном обращении, без фоновой горутины.
func RateLimit(rps float64, burst int) Middleware {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}

		if burst < 1 {
			burst = 1
		}

		l := &ipLimiter{
			rps:     rate.Limit(rps),
			burst:   burst,
			buckets: make(map[string]*bucket),
			now:     time.Now,
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				logctx.From(r.Context()).Warn("rate_limited", slog.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				apierrors.WriteError(w, r, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type ipLimiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > limiterIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now

	return b.lim.AllowN(now, 1)
}

// clientIP - хост из RemoteAddr. X-Forwarded-For не учитывается: его
// подделка позволила бы обойти лимит.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}

	return host
}
