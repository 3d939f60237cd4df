package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apierrors "github.com/pribylovaa/agora/internal/errors"
	"github.com/pribylovaa/agora/internal/metrics"
	"github.com/pribylovaa/agora/internal/models"
	logctx "github.com/pribylovaa/agora/pkg/log"
)

// idleTTL — через сколько простоя лимитер клиента забывается.
const idleTTL = 10 * time.Minute

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiters — token bucket на каждый IP клиента.
type limiters struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
	swept    time.Time
}

func (l *limiters) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > idleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.seen) > idleTTL {
				delete(l.visitors, k)
			}
		}
		l.swept = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.seen = now

	return v.lim.AllowN(now, 1)
}

// RateLimit ограничивает частоту запросов с одного IP (rps, burst) и отвечает
// 429 при превышении. rps <= 0 делает мидлвар no-op. IP берётся из
// RemoteAddr; за обратным прокси его должен выставить сам прокси.
func RateLimit(rps float64, burst int) Middleware {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}

		l := &limiters{rps: rate.Limit(rps), burst: burst, visitors: make(map[string]*visitor)}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.allow(ip, time.Now()) {
				metrics.RateLimited.Inc()
				logctx.From(r.Context()).Warn("rate_limited", "ip", ip)

				w.Header().Set("Retry-After", "1")
				apierrors.WriteError(w, r, fmt.Errorf("middleware/RateLimit: %w", models.ErrRateLimited))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
