package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/juju/ratelimit"
)

// Limiter hands out one token bucket per client address.
type Limiter struct {
	rate       float64
	capacity   int64
	trustProxy bool

	mu      sync.Mutex
	buckets map[string]*ratelimit.Bucket
}

// NewLimiter allows rate requests per second per client with bursts of up
// to capacity. Clients are told apart by the connection's remote address,
// so without trustProxy every client behind a reverse proxy shares one
// bucket. With trustProxy the last X-Forwarded-For hop is used instead;
// only set it when a proxy that appends that header fronts every request.
func NewLimiter(rate float64, capacity int64, trustProxy bool) *Limiter {
	return &Limiter{
		rate:       rate,
		capacity:   capacity,
		trustProxy: trustProxy,
		buckets:    make(map[string]*ratelimit.Bucket),
	}
}

// Key identifies the client behind r.
func (l *Limiter) Key(r *http.Request) string {
	if l.trustProxy {
		if ip := lastForwardedFor(r.Header.Values("X-Forwarded-For")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// lastForwardedFor returns the address appended by the nearest proxy. Earlier
// entries are supplied by the client and can be forged.
func lastForwardedFor(values []string) string {
	if len(values) == 0 {
		return ""
	}
	hops := strings.Split(values[len(values)-1], ",")
	return strings.TrimSpace(hops[len(hops)-1])
}

func (l *Limiter) bucket(key string) *ratelimit.Bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = ratelimit.NewBucketWithRate(l.rate, l.capacity)
		l.buckets[key] = b
	}
	return b
}

// Allow takes a token for r's client and reports whether one was available.
func (l *Limiter) Allow(r *http.Request) bool {
	return l.bucket(l.Key(r)).TakeAvailable(1) > 0
}

// Prune forgets clients whose bucket has refilled.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, b := range l.buckets {
		if b.Available() >= l.capacity {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// RateLimiter rejects requests from clients that have used up their bucket.
func RateLimiter(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r) {
				http.Error(w, "Too many requests, try again shortly", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
