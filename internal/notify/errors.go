package notify

import "errors"

// Pipeline error taxonomy.  Terminal errors must not be retried by the job
// queue; retryable ones propagate so the queue's backoff policy applies.
var (
    // ErrNotFound: the reservation does not exist.  Terminal.
    ErrNotFound = errors.New("notify: reservation not found")
    // ErrValidation: the reservation cannot be notified (e.g. no guest
    // phone).  Terminal, never retried.
    ErrValidation = errors.New("notify: invalid input")
    // ErrConfigMissing: the tenant has no messaging/payment credentials
    // configured.  Terminal, surfaced to the operator.
    ErrConfigMissing = errors.New("notify: configuration missing")
    // ErrUpstream: a collaborator (payment service, datastore) failed.
    // Retryable.
    ErrUpstream = errors.New("notify: upstream service error")
    // ErrDeliveryFailed: both delivery tiers failed.  Retryable, a later
    // attempt may find the session window open.
    ErrDeliveryFailed = errors.New("notify: message delivery failed")
)

// Retryable reports whether a pipeline error should be retried by the job
// queue.
func Retryable(err error) bool {
    return errors.Is(err, ErrUpstream) || errors.Is(err, ErrDeliveryFailed)
}
