package queue

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "hostel-pms/internal/config"
)

// HandlerFunc processes one job.  Returning an error requeues the job with
// backoff until its attempts are exhausted; handlers must never swallow an
// error they want retried.
type HandlerFunc func(ctx context.Context, job *Job) error

// Terminal marks an error as non-retryable.  The pool parks the job on the
// failed queue immediately instead of burning the remaining attempts.
type Terminal struct{ Err error }

func (t Terminal) Error() string { return t.Err.Error() }
func (t Terminal) Unwrap() error { return t.Err }

// Pool consumes jobs from a set of queues with bounded concurrency and a
// shared rate limit.  One consumer goroutine runs per queue; each dispatches
// deliveries to at most cfg.Concurrency handler goroutines.
type Pool struct {
    client   *Client
    cfg      config.QueueConfig
    limiter  *Limiter
    handlers map[string]HandlerFunc

    cancel   context.CancelFunc
    loops    sync.WaitGroup // consumer reconnect loops
    inflight sync.WaitGroup // running handlers
}

// NewPool builds a worker pool over the given client.
func NewPool(client *Client, cfg config.QueueConfig, limiter *Limiter) *Pool {
    return &Pool{
        client:   client,
        cfg:      cfg,
        limiter:  limiter,
        handlers: make(map[string]HandlerFunc),
    }
}

// Handle registers the handler for a queue.  Must be called before Start.
func (p *Pool) Handle(queue string, fn HandlerFunc) {
    p.handlers[queue] = fn
}

// Start launches one consumer loop per registered queue.  Each loop
// reconnects with backoff for as long as the pool is running.
func (p *Pool) Start() {
    ctx, cancel := context.WithCancel(context.Background())
    p.cancel = cancel
    for queue, fn := range p.handlers {
        p.loops.Add(1)
        go p.consumeLoop(ctx, queue, fn)
    }
}

// Stop shuts down the pool gracefully: consumers stop claiming new jobs and
// in-flight handlers are awaited until ctx expires.  In-flight jobs are
// never dropped silently; on timeout the remainder is logged and their
// unacked deliveries return to the queue for redelivery.
func (p *Pool) Stop(ctx context.Context) error {
    if p.cancel != nil {
        p.cancel()
    }
    done := make(chan struct{})
    go func() {
        p.loops.Wait()
        p.inflight.Wait()
        close(done)
    }()
    select {
    case <-done:
        return nil
    case <-ctx.Done():
        log.Printf("worker: shutdown grace period expired with jobs still in flight")
        return ctx.Err()
    }
}

// consumeLoop keeps one queue consumed until ctx is cancelled, redialing
// the broker with exponential backoff after connection loss.
func (p *Pool) consumeLoop(ctx context.Context, queue string, fn HandlerFunc) {
    defer p.loops.Done()
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return
        }
        err := p.consume(ctx, queue, fn)
        if ctx.Err() != nil {
            return
        }
        log.Printf("worker: consume loop for %s ended: %v; reconnecting in %s", queue, err, backoff)
        select {
        case <-ctx.Done():
            return
        case <-time.After(backoff):
        }
        if backoff < 30*time.Second {
            backoff *= 2
        }
    }
}

func (p *Pool) consume(ctx context.Context, queue string, fn HandlerFunc) error {
    conn, err := p.client.Connection()
    if err != nil {
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := p.client.declareTopology(ch, queue); err != nil {
        return err
    }
    // Prefetch no more than we can run concurrently.
    if err := ch.Qos(p.cfg.Concurrency, 0, false); err != nil {
        return fmt.Errorf("set qos: %w", err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    log.Printf("worker: consuming %s (concurrency=%d)", queue, p.cfg.Concurrency)

    sem := make(chan struct{}, p.cfg.Concurrency)
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            sem <- struct{}{}
            p.inflight.Add(1)
            go func(d amqp.Delivery) {
                defer func() {
                    <-sem
                    p.inflight.Done()
                }()
                p.handleDelivery(ctx, queue, d, fn)
            }(d)
        }
    }
}

// settler settles one delivery after its handler ran: acknowledge it,
// return it to the queue, schedule a retry, or park it on the failed queue.
// It exists so settle decisions can be exercised without a live broker.
type settler interface {
    Ack() error
    Requeue() error
    Retry(ctx context.Context, nextAttempt int, delay time.Duration, cause error) error
    Park(ctx context.Context, cause error) error
    Release(ctx context.Context, dedupKey string)
}

// brokerSettler settles against the real broker delivery.
type brokerSettler struct {
    client *Client
    queue  string
    d      amqp.Delivery
}

func (s brokerSettler) Ack() error     { return s.d.Ack(false) }
func (s brokerSettler) Requeue() error { return s.d.Nack(false, true) }

func (s brokerSettler) Retry(ctx context.Context, nextAttempt int, delay time.Duration, cause error) error {
    return s.client.publishRetry(ctx, s.queue, s.d, nextAttempt, delay, cause)
}

func (s brokerSettler) Park(ctx context.Context, cause error) error {
    return s.client.publishFailed(ctx, s.queue, s.d, cause)
}

func (s brokerSettler) Release(ctx context.Context, dedupKey string) {
    s.client.releaseDedup(ctx, s.queue, dedupKey)
}

func (p *Pool) handleDelivery(ctx context.Context, queue string, d amqp.Delivery, fn HandlerFunc) {
    if err := p.limiter.Wait(ctx); err != nil {
        // Shutting down before the job started: return it to the queue.
        _ = d.Nack(false, true)
        return
    }
    runJob(p.cfg.BackoffBase, jobFromDelivery(queue, d), fn, brokerSettler{p.client, queue, d})
}

// runJob executes one job and settles its delivery.  Outcomes: success ->
// ack + dedup release; retryable failure with attempts left -> republish to
// the retry queue and ack the original; terminal failure (Terminal error or
// attempts exhausted) -> park on the failed queue, ack, release dedup.
func runJob(backoffBase time.Duration, job *Job, fn HandlerFunc, s settler) {
    start := time.Now()
    err := fn(context.Background(), job)
    if err == nil {
        _ = s.Ack()
        s.Release(context.Background(), job.DedupKey)
        log.Printf("worker: job %s (%s) completed in %s [attempt %d/%d]",
            job.ID, job.Type, time.Since(start).Round(time.Millisecond), job.Attempt, job.MaxAttempts)
        return
    }

    var term Terminal
    terminal := errors.As(err, &term) || job.Attempt >= job.MaxAttempts

    if !terminal {
        delay := Backoff(backoffBase, job.Attempt)
        if pubErr := s.Retry(context.Background(), job.Attempt+1, delay, err); pubErr != nil {
            // Could not schedule the retry; leave the message unacked for
            // broker redelivery rather than losing it.
            log.Printf("worker: job %s retry publish failed: %v", job.ID, pubErr)
            _ = s.Requeue()
            return
        }
        _ = s.Ack()
        log.Printf("worker: job %s (%s) failed on attempt %d/%d, retrying in %s: %v",
            job.ID, job.Type, job.Attempt, job.MaxAttempts, delay, err)
        return
    }

    if pubErr := s.Park(context.Background(), err); pubErr != nil {
        log.Printf("worker: job %s failed-queue publish failed: %v", job.ID, pubErr)
        _ = s.Requeue()
        return
    }
    _ = s.Ack()
    s.Release(context.Background(), job.DedupKey)
    log.Printf("worker: job %s (%s) failed terminally after attempt %d/%d: %v",
        job.ID, job.Type, job.Attempt, job.MaxAttempts, err)
}

func jobFromDelivery(queue string, d amqp.Delivery) *Job {
    job := &Job{
        Queue:       queue,
        Payload:     d.Body,
        Attempt:     1,
        MaxAttempts: 1,
    }
    if v, ok := d.Headers[headerJobID].(string); ok {
        job.ID = v
    }
    if v, ok := d.Headers[headerJobType].(string); ok {
        job.Type = v
    }
    if v, ok := d.Headers[headerDedupKey].(string); ok {
        job.DedupKey = v
    }
    if v, ok := d.Headers[headerAttempt].(int32); ok {
        job.Attempt = int(v)
    }
    if v, ok := d.Headers[headerMaxAttempts].(int32); ok {
        job.MaxAttempts = int(v)
    }
    return job
}
