package middleware

import (
    "crypto/sha1"
    "fmt"
    "math"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "github.com/iliyamo/credits-api/internal/config"
    "github.com/iliyamo/credits-api/internal/response"
)

var limiterScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of one token-bucket draw.
type decision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

type bucket interface {
    take(c echo.Context, key string) (decision, error)
}

// NewRateLimiter returns a token-bucket limiter keyed per caller. With a
// Redis client the bucket state is shared between instances; without one
// each process keeps its own buckets in memory. Redis errors let the request
// through.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    var b bucket = &redisBucket{cfg: cfg, rdb: rdb}
    if rdb == nil {
        b = newMemoryBucket(cfg)
    }
    log = log.WithField("component", "ratelimit")

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            d, err := b.take(c, key)
            if err != nil {
                log.WithError(err).WithField("key", key).Warn("limiter unavailable, allowing request")
                return next(c)
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if !d.allowed {
                secs := int(math.Ceil(d.retry.Seconds()))
                if secs < 0 {
                    secs = 0
                }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Info("request throttled")
                }
                return response.RateLimited(c)
            }
            return next(c)
        }
    }
}

type redisBucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

func (b *redisBucket) take(c echo.Context, key string) (decision, error) {
    args := []interface{}{
        time.Now().UnixMilli(),
        b.cfg.Capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        int64(b.cfg.TTL / time.Second),
    }
    vals, err := limiterScript.Run(c.Request().Context(), b.rdb, []string{key}, args...).Result()
    if err != nil {
        return decision{}, err
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 3 {
        return decision{}, fmt.Errorf("unexpected limiter result %#v", vals)
    }
    return decision{
        allowed:   asInt64(arr[0]) == 1,
        remaining: asInt64(arr[1]),
        retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
    }, nil
}

// memoryBucket keeps one x/time/rate limiter per key. Idle keys are dropped
// once they have been unused for the configured TTL.
type memoryBucket struct {
    cfg   config.RateLimitConfig
    mu    sync.Mutex
    items map[string]*memoryEntry
    sweep time.Time
}

type memoryEntry struct {
    lim  *rate.Limiter
    seen time.Time
}

func newMemoryBucket(cfg config.RateLimitConfig) *memoryBucket {
    return &memoryBucket{cfg: cfg, items: map[string]*memoryEntry{}, sweep: time.Now()}
}

func (b *memoryBucket) take(_ echo.Context, key string) (decision, error) {
    now := time.Now()
    b.mu.Lock()
    defer b.mu.Unlock()

    if now.Sub(b.sweep) > b.cfg.TTL {
        for k, e := range b.items {
            if now.Sub(e.seen) > b.cfg.TTL {
                delete(b.items, k)
            }
        }
        b.sweep = now
    }
    e, ok := b.items[key]
    if !ok {
        e = &memoryEntry{lim: rate.NewLimiter(rate.Limit(b.cfg.PerSecond()), b.cfg.Capacity)}
        b.items[key] = e
    }
    e.seen = now

    r := e.lim.ReserveN(now, 1)
    if delay := r.DelayFrom(now); delay > 0 {
        r.CancelAt(now)
        return decision{allowed: false, retry: delay}, nil
    }
    remaining := int64(e.lim.TokensAt(now))
    if remaining < 0 {
        remaining = 0
    }
    return decision{allowed: true, remaining: remaining}, nil
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

// buildRateKey identifies the caller. The authorization header is hashed so
// API keys and tokens never end up in Redis key names.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    caller := "ip:" + ip
    if h := c.Request().Header.Get(cfg.Header); h != "" {
        caller = fmt.Sprintf("auth:%x", sha1.Sum([]byte(h)))
    }
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "route":
        parts = append(parts, "route", route)
    case "auth_route":
        parts = append(parts, caller, "route", route)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    default: // "auth"
        parts = append(parts, caller)
    }
    return strings.Join(parts, ":")
}
