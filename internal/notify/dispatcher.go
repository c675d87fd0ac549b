package notify

import (
    "context"
    "errors"
    "fmt"
    "log"

    "hostel-pms/internal/config"
    "hostel-pms/internal/model"
    "hostel-pms/internal/queue"
)

// Enqueuer is the slice of the queue client the dispatcher uses.
type Enqueuer interface {
    HealthCheck() bool
    Enqueue(ctx context.Context, queueName, jobType string, payload any, opts queue.EnqueueOptions) (*queue.JobHandle, error)
}

// DispatchOutcome reports whether a request was queued or ran inline.  When
// Queued is false, Result holds the inline pipeline's result.
type DispatchOutcome struct {
    Queued       bool    `json:"queued"`
    Deduplicated bool    `json:"deduplicated,omitempty"`
    JobID        string  `json:"job_id,omitempty"`
    Result       *Result `json:"result,omitempty"`
}

// Dispatcher is the gate in front of the pipeline.  Each dispatch decides
// between asynchronous (queued) and synchronous (inline) execution based on
// configuration and a live broker health probe; a broker outage degrades to
// inline processing instead of dropping the notification.
type Dispatcher struct {
    orchestrator *Orchestrator
    enqueuer     Enqueuer
    cfg          config.QueueConfig
}

// NewDispatcher builds the gate over the orchestrator and queue client.
func NewDispatcher(orchestrator *Orchestrator, enqueuer Enqueuer, cfg config.QueueConfig) *Dispatcher {
    return &Dispatcher{orchestrator: orchestrator, enqueuer: enqueuer, cfg: cfg}
}

// DispatchNotification routes a reservation-created notification.
func (d *Dispatcher) DispatchNotification(ctx context.Context, res *model.Reservation) (*DispatchOutcome, error) {
    return d.dispatch(ctx, res, queue.QueueReservation, queue.JobTypeNotify,
        fmt.Sprintf("notify-%d", res.ID))
}

// DispatchGuestContactUpdate routes the notification triggered by a guest
// contact update.  The dedup key keeps rapid successive updates for the same
// reservation from fanning out into duplicate messages.
func (d *Dispatcher) DispatchGuestContactUpdate(ctx context.Context, res *model.Reservation, contactType string) (*DispatchOutcome, error) {
    return d.dispatch(ctx, res, queue.QueueGuestContact, queue.JobTypeGuestContactUpdate,
        fmt.Sprintf("guest-contact-%d", res.ID), contactType)
}

func (d *Dispatcher) dispatch(ctx context.Context, res *model.Reservation, queueName, jobType, dedupKey string, contactType ...string) (*DispatchOutcome, error) {
    if d.useQueue() {
        job := queue.NotificationJob{
            ReservationID:  res.ID,
            OrganizationID: res.OrganizationID,
            BranchID:       res.BranchID,
            GuestName:      res.GuestName,
            AmountCents:    res.AmountCents,
            Currency:       res.Currency,
        }
        if res.GuestPhone != nil {
            job.GuestPhone = *res.GuestPhone
        }
        if len(contactType) > 0 {
            job.ContactType = contactType[0]
        }
        handle, err := d.enqueuer.Enqueue(ctx, queueName, jobType, job, queue.EnqueueOptions{
            DedupKey: dedupKey,
        })
        if err == nil {
            return &DispatchOutcome{Queued: true, Deduplicated: handle.Deduplicated, JobID: handle.ID}, nil
        }
        // Publish failed after the health probe passed; fall back to
        // inline processing rather than losing the notification.
        log.Printf("notify: enqueue on %s failed, processing inline: %v", queueName, err)
    }

    result, err := d.orchestrator.ProcessReservationNotification(ctx, res.ID)
    if err != nil {
        return nil, err
    }
    return &DispatchOutcome{Queued: false, Result: result}, nil
}

// useQueue evaluates the gate: queueing must be enabled and the broker must
// answer a health probe at dispatch time.
func (d *Dispatcher) useQueue() bool {
    if !d.cfg.Enabled || d.enqueuer == nil {
        return false
    }
    if !d.enqueuer.HealthCheck() {
        log.Printf("notify: queue unhealthy, processing inline")
        return false
    }
    return true
}

// HandleJob is the worker-side entry point for both notification queues.
// Errors that a retry cannot fix are wrapped as terminal so the pool parks
// the job immediately instead of burning attempts.
func (o *Orchestrator) HandleJob(ctx context.Context, job *queue.Job) error {
    var payload queue.NotificationJob
    if err := job.DecodePayload(&payload); err != nil {
        return queue.Terminal{Err: err}
    }
    if payload.ReservationID == 0 {
        return queue.Terminal{Err: errors.New("job payload has no reservation id")}
    }

    result, err := o.ProcessReservationNotification(ctx, payload.ReservationID)
    if err != nil {
        if Retryable(err) {
            return err
        }
        return queue.Terminal{Err: err}
    }
    if result.Skipped {
        log.Printf("notify: job %s skipped, reservation %d already processed", job.ID, payload.ReservationID)
    }
    return nil
}
