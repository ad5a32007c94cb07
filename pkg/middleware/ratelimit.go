package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// Requests is the budget per client within Window
	Requests int
	// Window is the period over which the budget refills
	Window time.Duration
	// Message is returned with 429 responses
	Message string
}

// Rate limit tiers
const (
	TierAPI  = "api"
	TierAuth = "auth"
)

// APIRateLimitConfig returns the budget applied to every route
func APIRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: 100,
		Window:   15 * time.Minute,
		Message:  "too many requests from this IP, please try again later",
	}
}

// AuthRateLimitConfig returns the budget applied to login and registration
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: 5,
		Window:   15 * time.Minute,
		Message:  "too many authentication attempts, please try again later",
	}
}

func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.Requests <= 0 {
		c.Requests = 1
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.Message == "" {
		c.Message = "rate limit exceeded"
	}
	return c
}

// Result describes a single rate limit decision
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// Limiter decides whether the client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
	Config() RateLimitConfig
}

// DefaultMaxKeys bounds the number of clients tracked by a RateLimiter
const DefaultMaxKeys = 10000

// RateLimiter is an in-process token bucket limiter keyed by client.
// The least recently seen clients are evicted once maxKeys is reached.
type RateLimiter struct {
	config   RateLimitConfig
	interval time.Duration

	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]

	now func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimitConfig, maxKeys int) (*RateLimiter, error) {
	config = config.normalized()
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	buckets, err := lru.New[string, *rate.Limiter](maxKeys)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		config:   config,
		interval: config.Window / time.Duration(config.Requests),
		buckets:  buckets,
		now:      time.Now,
	}, nil
}

// Config returns the limiter configuration
func (rl *RateLimiter) Config() RateLimitConfig {
	return rl.config
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(rate.Every(rl.interval), rl.config.Requests)
	rl.buckets.Add(key, b)
	return b
}

// Allow takes a token for key if one is available
func (rl *RateLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := rl.now()
	b := rl.bucket(key)

	res := Result{Limit: rl.config.Requests}

	reservation := b.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		res.RetryAfter = delay
	} else {
		res.Allowed = true
	}

	tokens := b.TokensAt(now)
	res.Remaining = max(int(math.Floor(tokens)), 0)
	missing := float64(rl.config.Requests) - tokens
	res.ResetAfter = time.Duration(math.Ceil(missing * float64(rl.interval)))

	return res, nil
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	return rl.buckets.Len()
}

// RateLimitMiddleware applies a Limiter per client IP
type RateLimitMiddleware struct {
	limiter Limiter
	tier    string
	metrics *observability.Metrics
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter Limiter, tier string, metrics *observability.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		tier:    tier,
		metrics: metrics,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.tier + ":" + httputil.ClientIP(r)

		res, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			// Fail open
			observability.FromContext(r.Context()).WithError(err).WithField("tier", m.tier).
				Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, res)

		if !res.Allowed {
			m.metrics.RecordRateLimited(m.tier)
			w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(res.RetryAfter)))
			httputil.WriteTooManyRequests(w, m.limiter.Config().Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, res Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(res.ResetAfter)))
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
