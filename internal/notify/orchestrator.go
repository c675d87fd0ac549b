// Package notify contains the business logic of the guest-notification
// pipeline: the orchestrator run by workers (or inline) and the gate that
// decides between queued and inline execution.
package notify

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "hostel-pms/internal/model"
    "hostel-pms/internal/payment"
    "hostel-pms/internal/repository"
    "hostel-pms/internal/whatsapp"
)

// ReservationStore is the slice of the reservation repository the pipeline
// needs.
type ReservationStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    UpdatePaymentLink(ctx context.Context, id uint64, link string) error
    UpdateDoorFields(ctx context.Context, id uint64, pin string, lockID int64) error
    UpdateNotificationResult(ctx context.Context, id uint64, res repository.NotificationResult) error
}

// SettingsSource resolves effective tenant settings for a reservation.
type SettingsSource interface {
    ForReservation(ctx context.Context, organizationID uint64, branchID *uint64) (*model.Settings, error)
}

// PaymentService creates payment links.
type PaymentService interface {
    CreateLink(ctx context.Context, cfg model.PaymentSettings, req payment.LinkRequest) (string, error)
}

// LockService provisions temporary door passcodes.
type LockService interface {
    CreateTemporaryPasscode(ctx context.Context, cfg model.DoorSystemSettings, lockID int64, from, to time.Time, label string) (string, error)
}

// Deliverer is the delivery engine surface.
type Deliverer interface {
    Send(ctx context.Context, cfg model.WhatsAppSettings, d whatsapp.Delivery) error
}

// Result is what the pipeline reports back to HTTP handlers and workers.
type Result struct {
    Success     bool   `json:"success"`
    Skipped     bool   `json:"skipped,omitempty"`
    PaymentLink string `json:"payment_link,omitempty"`
    MessageSent bool   `json:"message_sent"`
    DoorPin     string `json:"door_pin,omitempty"`
}

// Orchestrator runs the notification pipeline for one reservation at a
// time.  It is stateless and safe for concurrent use.
type Orchestrator struct {
    reservations ReservationStore
    settings     SettingsSource
    payments     PaymentService
    locks        LockService
    deliverer    Deliverer
    frontendURL  string
    templateID   string
}

// NewOrchestrator wires the pipeline's collaborators.
func NewOrchestrator(
    reservations ReservationStore,
    settings SettingsSource,
    payments PaymentService,
    locks LockService,
    deliverer Deliverer,
    frontendURL string,
    templateID string,
) *Orchestrator {
    return &Orchestrator{
        reservations: reservations,
        settings:     settings,
        payments:     payments,
        locks:        locks,
        deliverer:    deliverer,
        frontendURL:  frontendURL,
        templateID:   templateID,
    }
}

// ProcessReservationNotification runs the full pipeline: payment link, door
// passcode (best effort), message composition and two-tier delivery, then
// persists every result field in one update.  An already-processed
// reservation short-circuits to a skipped success without side effects.
func (o *Orchestrator) ProcessReservationNotification(ctx context.Context, reservationID uint64) (*Result, error) {
    res, err := o.reservations.GetByID(ctx, reservationID)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return nil, fmt.Errorf("%w: id %d", ErrNotFound, reservationID)
        }
        return nil, fmt.Errorf("%w: load reservation: %v", ErrUpstream, err)
    }

    if res.Processed() {
        log.Printf("notify: reservation %d already processed, skipping", res.ID)
        return &Result{Success: true, Skipped: true, PaymentLink: *res.PaymentLink, MessageSent: true}, nil
    }

    if res.GuestPhone == nil || *res.GuestPhone == "" {
        return nil, fmt.Errorf("%w: reservation %d has no guest phone", ErrValidation, res.ID)
    }

    settings, err := o.settings.ForReservation(ctx, res.OrganizationID, res.BranchID)
    if err != nil {
        if errors.Is(err, repository.ErrOrganizationNotFound) {
            return nil, fmt.Errorf("%w: organization %d", ErrConfigMissing, res.OrganizationID)
        }
        return nil, fmt.Errorf("%w: load settings: %v", ErrUpstream, err)
    }
    if settings.WhatsApp == nil || settings.WhatsApp.APIKey == "" || settings.WhatsApp.PhoneNumberID == "" {
        return nil, fmt.Errorf("%w: no messaging credentials for organization %d", ErrConfigMissing, res.OrganizationID)
    }

    paymentLink, err := o.ensurePaymentLink(ctx, res, settings)
    if err != nil {
        return nil, err
    }

    doorPin, doorLockID := o.provisionDoorPasscode(ctx, res, settings)

    doorApp := ""
    if settings.DoorSystem != nil {
        doorApp = settings.DoorSystem.AppName
    }
    body := composeGuestMessage(res, paymentLink, doorPin, doorApp)
    checkInLink := CheckInLink(o.frontendURL, res.ID)

    err = o.deliverer.Send(ctx, *settings.WhatsApp, whatsapp.Delivery{
        To:         *res.GuestPhone,
        Body:       body,
        TemplateID: o.templateID,
        Params:     []string{res.GuestName, checkInLink, paymentLink},
        BranchID:   res.BranchID,
    })
    if err != nil {
        // The payment link is already persisted, so a retry will not
        // create a second one.
        return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
    }

    now := time.Now().UTC()
    update := repository.NotificationResult{
        PaymentLink:   &paymentLink,
        SentMessage:   &body,
        SentMessageAt: &now,
    }
    if doorPin != "" {
        update.DoorPin = &doorPin
        update.DoorLockID = &doorLockID
        update.DoorLockPassword = &doorPin
    }
    if err := o.reservations.UpdateNotificationResult(ctx, res.ID, update); err != nil {
        return nil, fmt.Errorf("%w: persist notification result: %v", ErrUpstream, err)
    }

    log.Printf("notify: reservation %d notified (payment link + message%s)",
        res.ID, doorSuffix(doorPin))
    return &Result{Success: true, PaymentLink: paymentLink, MessageSent: true, DoorPin: doorPin}, nil
}

// ensurePaymentLink returns the reservation's payment link, creating and
// persisting one only when none exists yet.  Persisting immediately keeps
// delivery retries from charging the guest with a second link.
func (o *Orchestrator) ensurePaymentLink(ctx context.Context, res *model.Reservation, settings *model.Settings) (string, error) {
    if res.PaymentLink != nil && *res.PaymentLink != "" {
        return *res.PaymentLink, nil
    }
    if settings.Payment == nil || settings.Payment.APIKey == "" {
        return "", fmt.Errorf("%w: no payment credentials for organization %d", ErrConfigMissing, res.OrganizationID)
    }
    link, err := o.payments.CreateLink(ctx, *settings.Payment, payment.LinkRequest{
        OrderRef:    payment.NewOrderRef(res.ID),
        AmountCents: res.AmountCents,
        Currency:    res.Currency,
        Description: fmt.Sprintf("Reserva %s", res.GuestName),
    })
    if err != nil {
        return "", fmt.Errorf("%w: create payment link: %v", ErrUpstream, err)
    }
    if err := o.reservations.UpdatePaymentLink(ctx, res.ID, link); err != nil {
        return "", fmt.Errorf("%w: persist payment link: %v", ErrUpstream, err)
    }
    log.Printf("notify: payment link created for reservation %d", res.ID)
    return link, nil
}

// provisionDoorPasscode requests a temporary passcode when a lock is
// configured.  This step is best effort: every failure is logged and the
// pipeline continues without a passcode.
func (o *Orchestrator) provisionDoorPasscode(ctx context.Context, res *model.Reservation, settings *model.Settings) (pin string, lockID int64) {
    if res.DoorPin != nil && *res.DoorPin != "" {
        if res.DoorLockID != nil {
            return *res.DoorPin, *res.DoorLockID
        }
        return *res.DoorPin, 0
    }
    ds := settings.DoorSystem
    if ds == nil || len(ds.LockIDs) == 0 {
        return "", 0
    }
    lockID = ds.LockIDs[0]
    pin, err := o.locks.CreateTemporaryPasscode(ctx, *ds, lockID,
        res.CheckIn, res.CheckOut, fmt.Sprintf("Guest: %s", res.GuestName))
    if err != nil {
        log.Printf("notify: door passcode provisioning failed for reservation %d: %v", res.ID, err)
        return "", 0
    }
    if err := o.reservations.UpdateDoorFields(ctx, res.ID, pin, lockID); err != nil {
        log.Printf("notify: persist door passcode for reservation %d: %v", res.ID, err)
    }
    log.Printf("notify: door passcode provisioned for reservation %d on lock %d", res.ID, lockID)
    return pin, lockID
}

// SendPasscode delivers the already-provisioned passcode message for the
// send-passcode endpoint.  It does not create payment links.
func (o *Orchestrator) SendPasscode(ctx context.Context, reservationID uint64) (*Result, error) {
    res, err := o.reservations.GetByID(ctx, reservationID)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return nil, fmt.Errorf("%w: id %d", ErrNotFound, reservationID)
        }
        return nil, fmt.Errorf("%w: load reservation: %v", ErrUpstream, err)
    }
    if res.GuestPhone == nil || *res.GuestPhone == "" {
        return nil, fmt.Errorf("%w: reservation %d has no guest phone", ErrValidation, res.ID)
    }
    if res.DoorPin == nil || *res.DoorPin == "" {
        return nil, fmt.Errorf("%w: reservation %d has no door passcode", ErrNotFound, res.ID)
    }

    settings, err := o.settings.ForReservation(ctx, res.OrganizationID, res.BranchID)
    if err != nil {
        return nil, fmt.Errorf("%w: load settings: %v", ErrUpstream, err)
    }
    if settings.WhatsApp == nil || settings.WhatsApp.APIKey == "" {
        return nil, fmt.Errorf("%w: no messaging credentials for organization %d", ErrConfigMissing, res.OrganizationID)
    }
    doorApp := ""
    if settings.DoorSystem != nil {
        doorApp = settings.DoorSystem.AppName
    }
    body := composePasscodeMessage(res, *res.DoorPin, doorApp)
    err = o.deliverer.Send(ctx, *settings.WhatsApp, whatsapp.Delivery{
        To:         *res.GuestPhone,
        Body:       body,
        TemplateID: whatsapp.TemplatePasscode,
        Params:     []string{res.GuestName, *res.DoorPin},
        BranchID:   res.BranchID,
    })
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
    }
    return &Result{Success: true, MessageSent: true, DoorPin: *res.DoorPin}, nil
}

// GeneratePinAndNotify provisions a fresh door passcode and sends it to the
// guest, for the generate-pin-and-send endpoint.  Unlike the standard
// pipeline, provisioning here is the whole point of the call, so a lock
// vendor failure is surfaced instead of swallowed.
func (o *Orchestrator) GeneratePinAndNotify(ctx context.Context, reservationID uint64) (*Result, error) {
    res, err := o.reservations.GetByID(ctx, reservationID)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return nil, fmt.Errorf("%w: id %d", ErrNotFound, reservationID)
        }
        return nil, fmt.Errorf("%w: load reservation: %v", ErrUpstream, err)
    }
    if res.GuestPhone == nil || *res.GuestPhone == "" {
        return nil, fmt.Errorf("%w: reservation %d has no guest phone", ErrValidation, res.ID)
    }

    settings, err := o.settings.ForReservation(ctx, res.OrganizationID, res.BranchID)
    if err != nil {
        return nil, fmt.Errorf("%w: load settings: %v", ErrUpstream, err)
    }
    if settings.WhatsApp == nil || settings.WhatsApp.APIKey == "" {
        return nil, fmt.Errorf("%w: no messaging credentials for organization %d", ErrConfigMissing, res.OrganizationID)
    }
    ds := settings.DoorSystem
    if ds == nil || len(ds.LockIDs) == 0 {
        return nil, fmt.Errorf("%w: no door system configured for organization %d", ErrConfigMissing, res.OrganizationID)
    }

    lockID := ds.LockIDs[0]
    pin, err := o.locks.CreateTemporaryPasscode(ctx, *ds, lockID,
        res.CheckIn, res.CheckOut, fmt.Sprintf("Guest: %s", res.GuestName))
    if err != nil {
        return nil, fmt.Errorf("%w: provision door passcode: %v", ErrUpstream, err)
    }
    if err := o.reservations.UpdateDoorFields(ctx, res.ID, pin, lockID); err != nil {
        return nil, fmt.Errorf("%w: persist door passcode: %v", ErrUpstream, err)
    }

    body := composePasscodeMessage(res, pin, ds.AppName)
    err = o.deliverer.Send(ctx, *settings.WhatsApp, whatsapp.Delivery{
        To:         *res.GuestPhone,
        Body:       body,
        TemplateID: whatsapp.TemplatePasscode,
        Params:     []string{res.GuestName, pin},
        BranchID:   res.BranchID,
    })
    if err != nil {
        // The passcode is already provisioned and persisted; the caller
        // can retry delivery with send-passcode.
        return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
    }
    log.Printf("notify: fresh passcode sent for reservation %d on lock %d", res.ID, lockID)
    return &Result{Success: true, MessageSent: true, DoorPin: pin}, nil
}

func doorSuffix(pin string) string {
    if pin == "" {
        return ""
    }
    return " + door passcode"
}
