package http

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ipLimiter tracks a token bucket per client IP. Entries that have been idle
// longer than staleAfter are evicted by a background sweep so the map does not
// grow without bound.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perMinute int
	log       *zap.Logger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	staleAfter    = 10 * time.Minute
	sweepInterval = time.Minute
)

func newIPLimiter(perMinute int, log *zap.Logger) *ipLimiter {
	l := &ipLimiter{
		visitors:  make(map[string]*visitor),
		perMinute: perMinute,
		log:       log,
	}
	go l.sweep()
	return l
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
		}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (l *ipLimiter) sweep() {
	for range time.Tick(sweepInterval) {
		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > staleAfter {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

// limit wraps a handler with a per-IP rate limit.
func (l *ipLimiter) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			l.log.Debug("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many requests. Please try again later."}`))
			return
		}
		next.ServeHTTP(w, r)
	}
}
