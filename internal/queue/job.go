// Package queue implements the durable job queue and its worker pool on top
// of RabbitMQ, with Redis-backed deduplication keys and rate limiting.
package queue

import (
    "encoding/json"
    "fmt"
    "time"
)

// Queue names.  One worker pool consumer runs per queue.
const (
    // QueueReservation carries jobs triggered by reservation creation.
    QueueReservation = "reservation"
    // QueueGuestContact carries jobs triggered by guest contact updates.
    QueueGuestContact = "guest-contact"
)

// Job types carried in message headers.
const (
    JobTypeNotify             = "reservation.notify"
    JobTypeGuestContactUpdate = "guest-contact.update"
)

// NotificationJob is the payload for both notification job types.  It
// denormalizes the fields a worker needs to log meaningfully before the
// reservation row is re-read; the orchestrator always reloads the
// reservation so stale payloads cannot leak into the message.
type NotificationJob struct {
    ReservationID  uint64  `json:"reservation_id"`
    OrganizationID uint64  `json:"organization_id"`
    BranchID       *uint64 `json:"branch_id,omitempty"`
    ContactType    string  `json:"contact_type"`
    GuestPhone     string  `json:"guest_phone,omitempty"`
    GuestName      string  `json:"guest_name"`
    AmountCents    int64   `json:"amount_cents"`
    Currency       string  `json:"currency"`
}

// Job is what a worker handler receives: the raw payload plus the delivery
// metadata the queue tracks across retries.
type Job struct {
    ID          string // caller-supplied id, doubles as the dedup key
    Queue       string
    Type        string
    DedupKey    string
    Attempt     int // 1-based
    MaxAttempts int
    Payload     []byte
}

// DecodePayload unmarshals the job payload into out.
func (j *Job) DecodePayload(out any) error {
    if err := json.Unmarshal(j.Payload, out); err != nil {
        return fmt.Errorf("decode job payload: %w", err)
    }
    return nil
}

// Backoff returns the delay before retry number attempt (1-based counting
// of the attempt that just failed): base, 2*base, 4*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
    if attempt < 1 {
        attempt = 1
    }
    d := base
    for i := 1; i < attempt; i++ {
        d *= 2
    }
    return d
}
