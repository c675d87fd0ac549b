package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "hostel-pms/internal/model"
)

// ReservationRepo provides access to the reservations table.  All timestamp
// fields are assumed to be stored in UTC.  Result fields written by the
// notification pipeline are updated through UpdateNotificationResult so a
// successful delivery persists in a single statement.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for transaction management by callers.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, organization_id, branch_id, external_booking_id,
    guest_name, guest_phone, guest_email, check_in, check_out,
    status, payment_status, amount_cents, currency,
    payment_link, sent_message, sent_message_at,
    door_pin, door_lock_id, door_lock_password,
    created_at, updated_at`

// Create inserts a new reservation and populates the generated ID and
// timestamps on the provided model.  Status and PaymentStatus must be valid
// enumeration values.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    const q = `INSERT INTO reservations
        (organization_id, branch_id, external_booking_id, guest_name, guest_phone, guest_email,
         check_in, check_out, status, payment_status, amount_cents, currency)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q,
        res.OrganizationID, res.BranchID, res.ExternalBookingID,
        res.GuestName, res.GuestPhone, res.GuestEmail,
        res.CheckIn.UTC(), res.CheckOut.UTC(),
        res.Status, res.PaymentStatus, res.AmountCents, res.Currency,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    created, err := r.GetByID(ctx, uint64(id))
    if err != nil {
        return err
    }
    *res = *created
    return nil
}

// GetByID returns a single reservation.  When no reservation with the
// specified ID exists, ErrReservationNotFound is returned.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// UpdateGuestContact stores the updated contact field and marks the
// reservation as notified.  Exactly one of phone/email is set depending on
// how the contact string was classified by the handler.
func (r *ReservationRepo) UpdateGuestContact(ctx context.Context, id uint64, phone, email *string) error {
    const q = `UPDATE reservations
        SET guest_phone = COALESCE(?, guest_phone),
            guest_email = COALESCE(?, guest_email),
            status = ?
        WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, phone, email, model.ReservationStatusNotificationSent, id)
    return err
}

// NotificationResult carries every field the pipeline persists after a
// successful delivery.  Nil pointers leave the stored value untouched.
type NotificationResult struct {
    PaymentLink      *string
    SentMessage      *string
    SentMessageAt    *time.Time
    DoorPin          *string
    DoorLockID       *int64
    DoorLockPassword *string
}

// UpdateNotificationResult writes the pipeline's result fields in one
// statement.  COALESCE keeps previously stored values when a field was not
// produced on this run (e.g. door provisioning failed).
func (r *ReservationRepo) UpdateNotificationResult(ctx context.Context, id uint64, res NotificationResult) error {
    const q = `UPDATE reservations
        SET payment_link = COALESCE(?, payment_link),
            sent_message = COALESCE(?, sent_message),
            sent_message_at = COALESCE(?, sent_message_at),
            door_pin = COALESCE(?, door_pin),
            door_lock_id = COALESCE(?, door_lock_id),
            door_lock_password = COALESCE(?, door_lock_password)
        WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q,
        res.PaymentLink, res.SentMessage, res.SentMessageAt,
        res.DoorPin, res.DoorLockID, res.DoorLockPassword, id,
    )
    return err
}

// UpdatePaymentLink persists only the payment link.  Used so a link created
// before a failed delivery survives the job retry and is not recreated.
func (r *ReservationRepo) UpdatePaymentLink(ctx context.Context, id uint64, link string) error {
    const q = `UPDATE reservations SET payment_link = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, link, id)
    return err
}

// UpdateDoorFields persists the door passcode fields on their own.  The
// synchronous generate-pin endpoint stores the passcode even when the
// subsequent message delivery fails.
func (r *ReservationRepo) UpdateDoorFields(ctx context.Context, id uint64, pin string, lockID int64) error {
    const q = `UPDATE reservations SET door_pin = ?, door_lock_id = ?, door_lock_password = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, pin, lockID, pin, id)
    return err
}

func (r *ReservationRepo) scanOne(row *sql.Row) (*model.Reservation, error) {
    var (
        res       model.Reservation
        branchID  sql.NullInt64
        extID     sql.NullString
        phone     sql.NullString
        email     sql.NullString
        payLink   sql.NullString
        sentMsg   sql.NullString
        sentAt    sql.NullTime
        doorPin   sql.NullString
        doorLock  sql.NullInt64
        doorPass  sql.NullString
    )
    err := row.Scan(
        &res.ID, &res.OrganizationID, &branchID, &extID,
        &res.GuestName, &phone, &email, &res.CheckIn, &res.CheckOut,
        &res.Status, &res.PaymentStatus, &res.AmountCents, &res.Currency,
        &payLink, &sentMsg, &sentAt,
        &doorPin, &doorLock, &doorPass,
        &res.CreatedAt, &res.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    if err != nil {
        return nil, err
    }
    if branchID.Valid {
        v := uint64(branchID.Int64)
        res.BranchID = &v
    }
    res.ExternalBookingID = nullStr(extID)
    res.GuestPhone = nullStr(phone)
    res.GuestEmail = nullStr(email)
    res.PaymentLink = nullStr(payLink)
    res.SentMessage = nullStr(sentMsg)
    if sentAt.Valid {
        t := sentAt.Time
        res.SentMessageAt = &t
    }
    res.DoorPin = nullStr(doorPin)
    if doorLock.Valid {
        v := doorLock.Int64
        res.DoorLockID = &v
    }
    res.DoorLockPassword = nullStr(doorPass)
    return &res, nil
}

func nullStr(ns sql.NullString) *string {
    if !ns.Valid {
        return nil
    }
    s := ns.String
    return &s
}
