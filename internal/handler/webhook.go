package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "hostel-pms/internal/model"
    "hostel-pms/internal/whatsapp"
)

// MessageStore persists inbound message records.
type MessageStore interface {
    Create(ctx context.Context, m *model.MessageRecord) error
}

// WebhookHandler records inbound provider events.  Incoming guest messages
// feed the 24-hour session window check of the delivery engine, so the
// webhook must be registered with the provider for session messages to ever
// be chosen over templates.
type WebhookHandler struct {
    Messages MessageStore
}

func NewWebhookHandler(m MessageStore) *WebhookHandler {
    return &WebhookHandler{Messages: m}
}

// ----- provider payload (Cloud API webhook format) -----

type webhookPayload struct {
    Entry []struct {
        Changes []struct {
            Value struct {
                Messages []struct {
                    From      string `json:"from"`
                    ID        string `json:"id"`
                    Timestamp string `json:"timestamp"`
                    Text      struct {
                        Body string `json:"body"`
                    } `json:"text"`
                } `json:"messages"`
            } `json:"value"`
        } `json:"changes"`
    } `json:"entry"`
}

// Receive stores every inbound text message as an incoming record.  The
// provider retries on non-2xx responses, so storage errors return 500 to get
// a redelivery instead of silently losing the window-opening event.
func (h *WebhookHandler) Receive(c echo.Context) error {
    var payload webhookPayload
    if err := c.Bind(&payload); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    stored := 0
    for _, entry := range payload.Entry {
        for _, change := range entry.Changes {
            for _, msg := range change.Value.Messages {
                if msg.From == "" {
                    continue
                }
                rec := &model.MessageRecord{
                    Direction:         model.MessageDirectionIncoming,
                    Phone:             whatsapp.NormalizePhone(msg.From),
                    Body:              msg.Text.Body,
                    ProviderMessageID: msg.ID,
                    Status:            "received",
                    SentAt:            webhookTime(msg.Timestamp),
                }
                if err := h.Messages.Create(ctx, rec); err != nil {
                    c.Logger().Errorf("store incoming message %s: %v", msg.ID, err)
                    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not store message"})
                }
                stored++
            }
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"received": stored})
}

// webhookTime parses the provider's unix-seconds timestamp, falling back to
// now when it is absent or malformed.
func webhookTime(ts string) time.Time {
    if secs, err := strconv.ParseInt(ts, 10, 64); err == nil && secs > 0 {
        return time.Unix(secs, 0).UTC()
    }
    return time.Now().UTC()
}
