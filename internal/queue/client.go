package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "strconv"
    "sync"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/redis/go-redis/v9"

    "hostel-pms/internal/config"
)

// Message header keys used to track a job across retries.
const (
    headerJobID       = "x-job-id"
    headerJobType     = "x-job-type"
    headerAttempt     = "x-attempt"
    headerMaxAttempts = "x-max-attempts"
    headerDedupKey    = "x-dedup-key"
    headerLastError   = "x-last-error"
)

const (
    maxPriority   = 9
    failedRetention = 7 * 24 * time.Hour
)

// dedupStore reserves and frees dedup keys.  Redis backs it in production;
// a nil store disables deduplication.
type dedupStore interface {
    Reserve(ctx context.Context, key, jobID string, ttl time.Duration) (bool, error)
    Release(ctx context.Context, key string) error
}

type redisDedup struct{ rdb *redis.Client }

func (r redisDedup) Reserve(ctx context.Context, key, jobID string, ttl time.Duration) (bool, error) {
    return r.rdb.SetNX(ctx, key, jobID, ttl).Result()
}

func (r redisDedup) Release(ctx context.Context, key string) error {
    return r.rdb.Del(ctx, key).Err()
}

// Client owns the broker connection for publishing and topology management.
// It is constructed once at startup behind an explicit Connect/Close
// lifecycle; there are no lazily initialized globals.  All methods are safe
// for concurrent use.
type Client struct {
    url   string
    cfg   config.QueueConfig
    dedup dedupStore // nil disables deduplication

    mu       sync.Mutex
    conn     *amqp.Connection
    ch       *amqp.Channel
    declared map[string]bool
}

// NewClient builds a Client.  rdb may be nil, in which case duplicate
// submissions are not coalesced (the orchestrator's idempotency check still
// prevents duplicate sends).
func NewClient(url string, cfg config.QueueConfig, rdb *redis.Client) *Client {
    c := &Client{url: url, cfg: cfg, declared: make(map[string]bool)}
    if rdb != nil {
        c.dedup = redisDedup{rdb}
    }
    return c
}

// Connect dials the broker and opens the publish channel.  Call Close when
// the process shuts down, after workers have stopped.
func (c *Client) Connect() error {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.connectLocked()
}

func (c *Client) connectLocked() error {
    if c.conn != nil && !c.conn.IsClosed() && c.ch != nil && !c.ch.IsClosed() {
        return nil
    }
    conn, err := amqp.Dial(c.url)
    if err != nil {
        return fmt.Errorf("queue: dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("queue: open channel: %w", err)
    }
    c.conn = conn
    c.ch = ch
    c.declared = make(map[string]bool) // re-declare after reconnect
    return nil
}

// Close shuts the publish channel and the broker connection.  Safe to call
// when Connect never succeeded.
func (c *Client) Close() error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.ch != nil {
        _ = c.ch.Close()
        c.ch = nil
    }
    if c.conn != nil && !c.conn.IsClosed() {
        if err := c.conn.Close(); err != nil {
            return err
        }
    }
    c.conn = nil
    return nil
}

// HealthCheck reports whether the broker is reachable, attempting a lazy
// reconnect first.  It returns false instead of an error so call sites can
// use it directly to choose queue-vs-inline execution.
func (c *Client) HealthCheck() bool {
    c.mu.Lock()
    defer c.mu.Unlock()
    if err := c.connectLocked(); err != nil {
        if c.cfg.Enabled {
            log.Printf("queue: health check failed: %v", err)
        }
        return false
    }
    return true
}

// Connection hands the live broker connection to the worker pool so each
// consumer can open its own channel.  It reconnects if necessary.
func (c *Client) Connection() (*amqp.Connection, error) {
    c.mu.Lock()
    defer c.mu.Unlock()
    if err := c.connectLocked(); err != nil {
        return nil, err
    }
    return c.conn, nil
}

// declareTopology creates the three durable queues backing one logical
// queue: the work queue itself, a retry queue whose expired messages
// dead-letter back into the work queue, and a failed queue retaining
// terminally failed jobs for inspection.
func (c *Client) declareTopology(ch *amqp.Channel, queue string) error {
    if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
        "x-max-priority": int32(maxPriority),
    }); err != nil {
        return fmt.Errorf("declare %s: %w", queue, err)
    }
    if _, err := ch.QueueDeclare(queue+".retry", true, false, false, false, amqp.Table{
        "x-dead-letter-exchange":    "",
        "x-dead-letter-routing-key": queue,
    }); err != nil {
        return fmt.Errorf("declare %s.retry: %w", queue, err)
    }
    if _, err := ch.QueueDeclare(queue+".failed", true, false, false, false, amqp.Table{
        "x-message-ttl": int32(failedRetention / time.Millisecond),
    }); err != nil {
        return fmt.Errorf("declare %s.failed: %w", queue, err)
    }
    return nil
}

// EnqueueOptions tune a single submission.
type EnqueueOptions struct {
    Priority    uint8  // 0 (lowest) .. 9 (highest)
    DedupKey    string // required; at most one pending job per key
    MaxAttempts int    // 0 means the configured default
}

// JobHandle describes the outcome of an Enqueue call.
type JobHandle struct {
    ID           string
    Queue        string
    Deduplicated bool // true when an equal-keyed job was already pending
}

// Enqueue submits a job.  Jobs with a dedup key equal to one that is still
// pending are coalesced: no second message is published and the returned
// handle has Deduplicated set.  Messages are persistent JSON so they
// survive broker restarts.
func (c *Client) Enqueue(ctx context.Context, queue, jobType string, payload any, opts EnqueueOptions) (*JobHandle, error) {
    body, err := json.Marshal(payload)
    if err != nil {
        return nil, fmt.Errorf("queue: marshal payload: %w", err)
    }
    maxAttempts := opts.MaxAttempts
    if maxAttempts <= 0 {
        maxAttempts = c.cfg.MaxAttempts
    }
    jobID := opts.DedupKey
    if jobID == "" {
        jobID = uuid.NewString()
    }

    // A reserved dedup key must be freed on every failed path below, or it
    // lingers for DedupTTL and later submissions coalesce against a job
    // that was never published.
    reserved := false
    if opts.DedupKey != "" && c.dedup != nil {
        ok, err := c.dedup.Reserve(ctx, dedupRedisKey(queue, opts.DedupKey), jobID, c.cfg.DedupTTL)
        if err != nil {
            // Dedup degrades to pass-through when Redis is unavailable.
            log.Printf("queue: dedup check failed for %s: %v", opts.DedupKey, err)
        } else if !ok {
            return &JobHandle{ID: jobID, Queue: queue, Deduplicated: true}, nil
        } else {
            reserved = true
        }
    }

    c.mu.Lock()
    defer c.mu.Unlock()
    if err := c.connectLocked(); err != nil {
        if reserved {
            c.releaseDedup(ctx, queue, opts.DedupKey)
        }
        return nil, err
    }
    if !c.declared[queue] {
        if err := c.declareTopology(c.ch, queue); err != nil {
            if reserved {
                c.releaseDedup(ctx, queue, opts.DedupKey)
            }
            return nil, err
        }
        c.declared[queue] = true
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Priority:     opts.Priority,
        Body:         body,
        Headers: amqp.Table{
            headerJobID:       jobID,
            headerJobType:     jobType,
            headerAttempt:     int32(1),
            headerMaxAttempts: int32(maxAttempts),
            headerDedupKey:    opts.DedupKey,
        },
    }
    if err := c.ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
        if reserved {
            c.releaseDedup(ctx, queue, opts.DedupKey)
        }
        return nil, fmt.Errorf("queue: publish: %w", err)
    }
    return &JobHandle{ID: jobID, Queue: queue}, nil
}

// publishRetry re-submits a failed delivery to the retry queue with a
// per-message TTL equal to the backoff delay; expiry dead-letters it back
// into the work queue for the next attempt.
func (c *Client) publishRetry(ctx context.Context, queue string, d amqp.Delivery, nextAttempt int, delay time.Duration, cause error) error {
    headers := cloneHeaders(d.Headers)
    headers[headerAttempt] = int32(nextAttempt)
    headers[headerLastError] = cause.Error()

    c.mu.Lock()
    defer c.mu.Unlock()
    if err := c.connectLocked(); err != nil {
        return err
    }
    return c.ch.PublishWithContext(ctx, "", queue+".retry", false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Priority:     d.Priority,
        Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
        Body:         d.Body,
        Headers:      headers,
    })
}

// publishFailed parks a terminally failed delivery on the failed queue,
// where it is retained for inspection instead of being dropped.
func (c *Client) publishFailed(ctx context.Context, queue string, d amqp.Delivery, cause error) error {
    headers := cloneHeaders(d.Headers)
    headers[headerLastError] = cause.Error()

    c.mu.Lock()
    defer c.mu.Unlock()
    if err := c.connectLocked(); err != nil {
        return err
    }
    return c.ch.PublishWithContext(ctx, "", queue+".failed", false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         d.Body,
        Headers:      headers,
    })
}

// releaseDedup frees the dedup key once a job reaches a terminal outcome so
// a later mutation can enqueue a fresh job with the same key.
func (c *Client) releaseDedup(ctx context.Context, queue, dedupKey string) {
    if dedupKey == "" || c.dedup == nil {
        return
    }
    if err := c.dedup.Release(ctx, dedupRedisKey(queue, dedupKey)); err != nil {
        log.Printf("queue: release dedup key %s: %v", dedupKey, err)
    }
}

func dedupRedisKey(queue, key string) string {
    return "dedup:" + queue + ":" + key
}

func cloneHeaders(h amqp.Table) amqp.Table {
    out := amqp.Table{}
    for k, v := range h {
        out[k] = v
    }
    return out
}
