package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client key
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*client
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time

	limit           rate.Limit
	burst           int
	cleanupInterval time.Duration
	idleTimeout     time.Duration

	rejected atomic.Int64
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
	IdleTimeout       time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             20,
		CleanupInterval:   5 * time.Minute,
		IdleTimeout:       10 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its cleanup goroutine. Call Stop
// to release it.
func NewLimiter(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}

	rl := &Limiter{
		clients:         make(map[string]*client),
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
		limit:           rate.Limit(config.RequestsPerSecond),
		burst:           config.Burst,
		cleanupInterval: config.CleanupInterval,
		idleTimeout:     config.IdleTimeout,
	}
	go rl.startCleanup()
	return rl
}

// Allow reports whether a request for key may proceed now
func (rl *Limiter) Allow(key string) bool {
	ok, _ := rl.reserve(key)
	return ok
}

// reserve takes a token for key, or reports how long until one is available.
func (rl *Limiter) reserve(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	c, exists := rl.clients[key]
	if !exists {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	if c.limiter.AllowN(now, 1) {
		return true, 0
	}
	rl.rejected.Add(1)

	r := c.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := rl.cleanupStaleEntries(); removed > 0 {
				slog.Debug("Rate limiter cleanup completed", "clients_removed", removed)
			}
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries forgets clients idle for longer than the idle timeout.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTimeout)
	removed := 0
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Rejected returns how many requests were refused since start
func (rl *Limiter) Rejected() int64 {
	return rl.rejected.Load()
}

// Stop shuts down the cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Middleware refuses requests over the limit with 429 and a Retry-After
// header. onLimit, when set, writes the response body.
func (rl *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractKey(r)

			ok, wait := rl.reserve(key)
			if !ok {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", key,
					"method", r.Method,
					"path", r.URL.Path)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(wait time.Duration) int {
	s := int(math.Ceil(wait.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
