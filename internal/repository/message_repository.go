package repository

import (
    "context"
    "database/sql"
    "time"

    "hostel-pms/internal/model"
)

// MessageRepo provides access to the messages audit table.  Records are
// insert-only; the delivery engine reads recent incoming records to decide
// whether an active session window exists for a phone number.
type MessageRepo struct {
    db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create inserts a message record and populates the generated ID.
func (r *MessageRepo) Create(ctx context.Context, m *model.MessageRecord) error {
    const q = `INSERT INTO messages
        (direction, phone, body, provider_message_id, status, branch_id, sent_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q,
        m.Direction, m.Phone, m.Body, m.ProviderMessageID, m.Status, m.BranchID, m.SentAt.UTC(),
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    m.ID = uint64(id)
    return nil
}

// HasIncomingSince reports whether at least one incoming message from the
// given phone number exists at or after the cutoff.  The phone number must
// already be normalized.
func (r *MessageRepo) HasIncomingSince(ctx context.Context, phone string, since time.Time) (bool, error) {
    const q = `SELECT EXISTS(
        SELECT 1 FROM messages
        WHERE phone = ? AND direction = ? AND sent_at >= ?
    )`
    var exists bool
    err := r.db.QueryRowContext(ctx, q, phone, model.MessageDirectionIncoming, since.UTC()).Scan(&exists)
    if err != nil {
        return false, err
    }
    return exists, nil
}
