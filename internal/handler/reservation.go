package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "hostel-pms/internal/model"
    "hostel-pms/internal/notify"
    "hostel-pms/internal/repository"
    "hostel-pms/internal/utils"
)

// ReservationStore is the repository surface the handler needs.
type ReservationStore interface {
    Create(ctx context.Context, res *model.Reservation) error
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    UpdateGuestContact(ctx context.Context, id uint64, phone, email *string) error
}

// Gate routes notifications through the queue or inline.
type Gate interface {
    DispatchNotification(ctx context.Context, res *model.Reservation) (*notify.DispatchOutcome, error)
    DispatchGuestContactUpdate(ctx context.Context, res *model.Reservation, contactType string) (*notify.DispatchOutcome, error)
}

// Pipeline is the inline orchestrator surface behind the trigger endpoints.
type Pipeline interface {
    ProcessReservationNotification(ctx context.Context, id uint64) (*notify.Result, error)
    GeneratePinAndNotify(ctx context.Context, id uint64) (*notify.Result, error)
    SendPasscode(ctx context.Context, id uint64) (*notify.Result, error)
}

// ReservationHandler bundles dependencies for reservation endpoints.
type ReservationHandler struct {
    Reservations ReservationStore
    Dispatcher   Gate
    Orchestrator Pipeline
    Validate     *validator.Validate
}

func NewReservationHandler(r ReservationStore, d Gate, o Pipeline) *ReservationHandler {
    return &ReservationHandler{
        Reservations: r,
        Dispatcher:   d,
        Orchestrator: o,
        Validate:     validator.New(),
    }
}

// ----- DTOs -----

type createReservationReq struct {
    OrganizationID    uint64    `json:"organization_id" validate:"required"`
    BranchID          *uint64   `json:"branch_id"`
    ExternalBookingID *string   `json:"external_booking_id"`
    GuestName         string    `json:"guest_name" validate:"required"`
    GuestPhone        *string   `json:"guest_phone"`
    GuestEmail        *string   `json:"guest_email,omitempty" validate:"omitempty,email"`
    CheckIn           time.Time `json:"check_in" validate:"required"`
    CheckOut          time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
    AmountCents       int64     `json:"amount_cents" validate:"gte=0"`
    Currency          string    `json:"currency" validate:"required,len=3"`
}

type guestContactReq struct {
    Contact string `json:"contact" validate:"required"`
}

type reservationResp struct {
    Reservation  *model.Reservation       `json:"reservation"`
    Notification *notify.DispatchOutcome  `json:"notification,omitempty"`
    Message      string                   `json:"message,omitempty"`
}

// Create inserts a reservation and pushes it through the notification gate.
// The reservation is created regardless of how notification dispatch goes;
// a dispatch failure is reported in the body, not as a failed create.
func (h *ReservationHandler) Create(c echo.Context) error {
    var req createReservationReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := h.Validate.Struct(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res := &model.Reservation{
        OrganizationID:    req.OrganizationID,
        BranchID:          req.BranchID,
        ExternalBookingID: req.ExternalBookingID,
        GuestName:         req.GuestName,
        GuestPhone:        req.GuestPhone,
        GuestEmail:        req.GuestEmail,
        CheckIn:           req.CheckIn.UTC(),
        CheckOut:          req.CheckOut.UTC(),
        Status:            model.ReservationStatusConfirmed,
        PaymentStatus:     model.PaymentStatusPending,
        AmountCents:       req.AmountCents,
        Currency:          req.Currency,
    }
    if err := h.Reservations.Create(ctx, res); err != nil {
        c.Logger().Errorf("create reservation: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create reservation"})
    }

    resp := reservationResp{Reservation: res}
    if res.GuestPhone == nil || *res.GuestPhone == "" {
        resp.Message = "reservation created; notification skipped, no guest phone"
        return c.JSON(http.StatusCreated, resp)
    }

    // Dispatch may run the whole pipeline inline, so give it room beyond
    // the DB timeout used above.
    dctx, dcancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
    defer dcancel()
    outcome, err := h.Dispatcher.DispatchNotification(dctx, res)
    if err != nil {
        c.Logger().Errorf("dispatch notification for reservation %d: %v", res.ID, err)
        resp.Message = "reservation created; notification failed: " + err.Error()
        return c.JSON(http.StatusCreated, resp)
    }
    resp.Notification = outcome
    if outcome.Queued {
        resp.Message = "reservation created; notification is being processed in background"
    }
    return c.JSON(http.StatusCreated, resp)
}

// Get returns a single reservation.  The frontend polls this after an async
// dispatch to pick up the payment link and sent-message fields.
func (h *ReservationHandler) Get(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Reservations.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        }
        c.Logger().Errorf("get reservation %d: %v", id, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load reservation"})
    }
    return c.JSON(http.StatusOK, reservationResp{Reservation: res})
}

// UpdateGuestContact classifies the submitted contact string, stores it and
// routes a notification through the gate when the contact is a phone number.
func (h *ReservationHandler) UpdateGuestContact(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req guestContactReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := h.Validate.Struct(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    contactType := utils.ClassifyContact(req.Contact)
    if contactType == utils.ContactTypeUnknown {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact is neither a phone number nor an email"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    var phone, email *string
    if contactType == utils.ContactTypePhone {
        phone = &req.Contact
    } else {
        email = &req.Contact
    }
    if err := h.Reservations.UpdateGuestContact(ctx, id, phone, email); err != nil {
        c.Logger().Errorf("update guest contact for reservation %d: %v", id, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update contact"})
    }
    res, err := h.Reservations.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        }
        c.Logger().Errorf("get reservation %d: %v", id, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load reservation"})
    }

    resp := reservationResp{Reservation: res}
    if contactType != utils.ContactTypePhone {
        resp.Message = "contact updated; notifications are only sent to phone numbers"
        return c.JSON(http.StatusOK, resp)
    }

    dctx, dcancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
    defer dcancel()
    outcome, err := h.Dispatcher.DispatchGuestContactUpdate(dctx, res, contactType)
    if err != nil {
        return h.pipelineError(c, err, resp)
    }
    resp.Notification = outcome
    if outcome.Queued {
        resp.Message = "contact updated; notification is being processed in background"
    }
    return c.JSON(http.StatusOK, resp)
}

// SendInvitation runs the notification pipeline inline for one reservation.
func (h *ReservationHandler) SendInvitation(c echo.Context) error {
    return h.runInline(c, h.Orchestrator.ProcessReservationNotification)
}

// GeneratePinAndSend provisions a door passcode and runs the pipeline inline.
func (h *ReservationHandler) GeneratePinAndSend(c echo.Context) error {
    return h.runInline(c, h.Orchestrator.GeneratePinAndNotify)
}

// SendPasscode delivers the already-provisioned passcode message inline.
func (h *ReservationHandler) SendPasscode(c echo.Context) error {
    return h.runInline(c, h.Orchestrator.SendPasscode)
}

func (h *ReservationHandler) runInline(c echo.Context, run func(context.Context, uint64) (*notify.Result, error)) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
    defer cancel()

    result, err := run(ctx, id)
    if err != nil {
        return h.pipelineError(c, err, nil)
    }
    return c.JSON(http.StatusOK, result)
}

// pipelineError maps the notify error taxonomy onto HTTP statuses.  A
// delivery failure after the reservation was already mutated (payment link
// and possibly door pin persisted) is reported as 207 so the caller knows
// partial work happened.
func (h *ReservationHandler) pipelineError(c echo.Context, err error, partial any) error {
    c.Logger().Errorf("notification pipeline: %v", err)
    switch {
    case errors.Is(err, notify.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, notify.ErrValidation), errors.Is(err, notify.ErrConfigMissing):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, notify.ErrDeliveryFailed):
        body := echo.Map{"success": false, "message_sent": false, "error": err.Error()}
        if partial != nil {
            body["partial"] = partial
        }
        return c.JSON(http.StatusMultiStatus, body)
    default:
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
    }
}

func parseID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}
