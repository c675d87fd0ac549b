package queue

import (
    "context"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

// Limiter is the token bucket protecting downstream provider APIs from job
// bursts.  With a Redis client the bucket is shared by every worker process;
// without one (or when Redis errors) it falls back to an in-process bucket
// so a Redis outage never stalls the pipeline.
type Limiter struct {
    rdb    *redis.Client
    key    string
    rate   int // tokens added per second, also the bucket capacity
    script *redis.Script

    mu         sync.Mutex
    tokens     float64
    lastRefill time.Time
}

// NewLimiter builds a limiter allowing rate jobs per second.  rdb may be nil.
func NewLimiter(rdb *redis.Client, key string, rate int) *Limiter {
    if rate < 1 {
        rate = 1
    }
    return &Limiter{
        rdb:        rdb,
        key:        "workerrl:" + key,
        rate:       rate,
        tokens:     float64(rate),
        lastRefill: time.Now(),
        script: redis.NewScript(`
            local key = KEYS[1]
            local now_ms = tonumber(ARGV[1])
            local capacity = tonumber(ARGV[2])
            local refill_per_ms = capacity / 1000.0

            local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
            local tokens = tonumber(state[1])
            local last_refill = tonumber(state[2])

            if tokens == nil or last_refill == nil then
                tokens = capacity
                last_refill = now_ms
            end

            local elapsed = math.max(0, now_ms - last_refill)
            tokens = math.min(capacity, tokens + elapsed * refill_per_ms)

            local allowed = 0
            local retry_after_ms = 0
            if tokens >= 1 then
                allowed = 1
                tokens = tokens - 1
            else
                retry_after_ms = math.ceil((1 - tokens) / refill_per_ms)
            end

            redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', now_ms)
            redis.call('EXPIRE', key, 60)

            return { allowed, retry_after_ms }
        `),
    }
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
    for {
        allowed, retryAfter := l.allow(ctx)
        if allowed {
            return nil
        }
        if retryAfter <= 0 {
            retryAfter = 50 * time.Millisecond
        }
        timer := time.NewTimer(retryAfter)
        select {
        case <-ctx.Done():
            timer.Stop()
            return ctx.Err()
        case <-timer.C:
        }
    }
}

func (l *Limiter) allow(ctx context.Context) (bool, time.Duration) {
    if l.rdb != nil {
        vals, err := l.script.Run(ctx, l.rdb, []string{l.key},
            time.Now().UnixMilli(), l.rate).Result()
        if err == nil {
            if arr, ok := vals.([]interface{}); ok && len(arr) == 2 {
                allowed := asInt64(arr[0]) == 1
                return allowed, time.Duration(asInt64(arr[1])) * time.Millisecond
            }
        }
        // fall through to the local bucket on any Redis failure
    }
    return l.allowLocal()
}

func (l *Limiter) allowLocal() (bool, time.Duration) {
    l.mu.Lock()
    defer l.mu.Unlock()
    now := time.Now()
    elapsed := now.Sub(l.lastRefill)
    l.lastRefill = now
    l.tokens += elapsed.Seconds() * float64(l.rate)
    if l.tokens > float64(l.rate) {
        l.tokens = float64(l.rate)
    }
    if l.tokens >= 1 {
        l.tokens--
        return true, 0
    }
    missing := 1 - l.tokens
    wait := time.Duration(missing / float64(l.rate) * float64(time.Second))
    return false, wait
}

func asInt64(v interface{}) int64 {
    switch n := v.(type) {
    case int64:
        return n
    case int:
        return int64(n)
    case string:
        // redis returns Lua numbers as integers; strings should not occur
        return 0
    default:
        return 0
    }
}
