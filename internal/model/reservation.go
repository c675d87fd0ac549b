package model

import "time"

// Reservation statuses.  NOTIFICATION_SENT is set when a guest contact
// update is stored, alongside dispatching the notification; delivery itself
// is recorded through the sent_message result fields.
const (
    ReservationStatusPending          = "PENDING"
    ReservationStatusConfirmed        = "CONFIRMED"
    ReservationStatusNotificationSent = "NOTIFICATION_SENT"
    ReservationStatusCheckedIn        = "CHECKED_IN"
    ReservationStatusCancelled        = "CANCELLED"
)

// Payment statuses tracked on the reservation itself.
const (
    PaymentStatusPending = "PENDING"
    PaymentStatusPaid    = "PAID"
    PaymentStatusFailed  = "FAILED"
)

// Reservation records a guest's stay at a hostel branch.  Amounts are kept
// in integer minor units (cents) to avoid rounding drift.
//
// Fields:
//  ID                – primary key identifier.
//  OrganizationID    – owning organization.
//  BranchID          – optional branch within the organization.
//  ExternalBookingID – booking id from an external channel, if any.
//  GuestName         – full name of the guest.
//  GuestPhone        – guest phone in international format (nullable).
//  GuestEmail        – guest email address (nullable).
//  CheckIn           – check-in timestamp (UTC).
//  CheckOut          – check-out timestamp (UTC), strictly after CheckIn.
//  Status            – reservation state (see constants above).
//  PaymentStatus     – payment state (see constants above).
//  AmountCents       – total price in minor units.
//  Currency          – ISO 4217 currency code (e.g. "COP").
//
// Result fields written by the notification pipeline:
//  PaymentLink       – payment URL created for this reservation.
//  SentMessage       – body of the guest message that was delivered.
//  SentMessageAt     – when the message was delivered.
//  DoorPin           – temporary door passcode, if provisioned.
//  DoorLockID        – lock the passcode was provisioned on.
//  DoorLockPassword  – raw passcode stored for the door vendor app.
type Reservation struct {
    ID                uint64     // reservations.id
    OrganizationID    uint64     // reservations.organization_id
    BranchID          *uint64    // reservations.branch_id (nullable)
    ExternalBookingID *string    // reservations.external_booking_id (nullable)
    GuestName         string     // reservations.guest_name
    GuestPhone        *string    // reservations.guest_phone (nullable)
    GuestEmail        *string    // reservations.guest_email (nullable)
    CheckIn           time.Time  // reservations.check_in
    CheckOut          time.Time  // reservations.check_out
    Status            string     // reservations.status
    PaymentStatus     string     // reservations.payment_status
    AmountCents       int64      // reservations.amount_cents
    Currency          string     // reservations.currency
    PaymentLink       *string    // reservations.payment_link (nullable)
    SentMessage       *string    // reservations.sent_message (nullable)
    SentMessageAt     *time.Time // reservations.sent_message_at (nullable)
    DoorPin           *string    // reservations.door_pin (nullable)
    DoorLockID        *int64     // reservations.door_lock_id (nullable)
    DoorLockPassword  *string    // reservations.door_lock_password (nullable)
    CreatedAt         time.Time  // reservations.created_at
    UpdatedAt         time.Time  // reservations.updated_at
}

// Processed reports whether the notification pipeline already ran to
// completion for this reservation.  Both the payment link and the sent
// message must be present; reprocessing such a reservation is a skip,
// not an error.
func (r *Reservation) Processed() bool {
    return r.SentMessage != nil && *r.SentMessage != "" &&
        r.PaymentLink != nil && *r.PaymentLink != ""
}
