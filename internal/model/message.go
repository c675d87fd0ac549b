package model

import "time"

// Message directions.  Incoming records are created from provider webhooks,
// outgoing records on every successful send.
const (
    MessageDirectionIncoming = "incoming"
    MessageDirectionOutgoing = "outgoing"
)

// MessageRecord is the audit trail of guest chat traffic.  Records are
// insert-only and never mutated; the delivery engine queries recent
// incoming records to decide whether an active session window exists.
//
// Fields:
//  ID                – primary key identifier.
//  Direction         – "incoming" or "outgoing".
//  Phone             – normalized phone number (+ prefix, no separators).
//  Body              – message text.
//  ProviderMessageID – message id reported by the delivery provider.
//  Status            – provider-reported status ("sent", "delivered", ...).
//  BranchID          – branch the conversation belongs to, if known.
//  SentAt            – when the message was sent or received.
type MessageRecord struct {
    ID                uint64    // messages.id
    Direction         string    // messages.direction
    Phone             string    // messages.phone
    Body              string    // messages.body
    ProviderMessageID string    // messages.provider_message_id
    Status            string    // messages.status
    BranchID          *uint64   // messages.branch_id (nullable)
    SentAt            time.Time // messages.sent_at
}
