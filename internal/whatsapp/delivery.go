package whatsapp

import (
    "context"
    "fmt"
    "log"
    "time"

    "hostel-pms/internal/model"
)

// sessionWindow is how far back an incoming message keeps the provider's
// free-form session open.
const sessionWindow = 24 * time.Hour

// MessengerAPI is the provider surface the engine drives.  *Client
// implements it; tests substitute fakes.
type MessengerAPI interface {
    SendSessionMessage(ctx context.Context, cfg model.WhatsAppSettings, to, body string) (*SendResult, error)
    SendTemplateMessage(ctx context.Context, cfg model.WhatsAppSettings, to, templateName, languageCode string, params []string) (*SendResult, error)
}

// MessageStore persists the message audit trail the window check reads.
type MessageStore interface {
    HasIncomingSince(ctx context.Context, phone string, since time.Time) (bool, error)
    Create(ctx context.Context, m *model.MessageRecord) error
}

// Delivery describes one outbound guest message.
type Delivery struct {
    To         string   // guest phone, any formatting
    Body       string   // free-form session body
    TemplateID string   // template id for the fallback tier; empty disables it
    Params     []string // ordered template parameters
    BranchID   *uint64  // branch to attribute the message record to
}

// Engine implements the two-tier delivery state machine: check the session
// window, try a session message when it is open, and fall back to a
// template message otherwise.  Successful sends append an outgoing message
// record so future window checks see this conversation.
type Engine struct {
    api         MessengerAPI
    messages    MessageStore
    defaultLang string
    now         func() time.Time
}

// NewEngine builds an Engine.  defaultLang is the process-wide template
// language used when a tenant has no default of its own.
func NewEngine(api MessengerAPI, messages MessageStore, defaultLang string) *Engine {
    if defaultLang == "" {
        defaultLang = FallbackLanguage
    }
    return &Engine{api: api, messages: messages, defaultLang: defaultLang, now: time.Now}
}

// Send delivers d using cfg's credentials.  The returned error is nil as
// soon as either tier succeeds.
func (e *Engine) Send(ctx context.Context, cfg model.WhatsAppSettings, d Delivery) error {
    phone := NormalizePhone(d.To)
    if phone == "" {
        return fmt.Errorf("whatsapp: empty recipient phone")
    }

    // CHECK_WINDOW: without a recent incoming message a session send is
    // guaranteed to fail, so skip the wasted round trip.
    windowOpen, err := e.messages.HasIncomingSince(ctx, phone, e.now().Add(-sessionWindow))
    if err != nil {
        log.Printf("whatsapp: window check failed for %s, using template tier: %v", phone, err)
        windowOpen = false
    }

    var sessionErr error
    if windowOpen {
        res, err := e.api.SendSessionMessage(ctx, cfg, phone, d.Body)
        if err == nil {
            e.record(ctx, phone, d, res)
            return nil
        }
        sessionErr = err
        if d.TemplateID == "" {
            // No fallback configured; surface the original failure.
            return sessionErr
        }
        if IsWindowExpired(sessionErr) {
            log.Printf("whatsapp: session window closed for %s, falling back to template", phone)
        } else {
            // The provider may still accept a template even when the
            // session send failed for an unrelated reason, so the
            // fallback is attempted for any failure.
            log.Printf("whatsapp: session send failed for %s (%v), attempting template fallback", phone, sessionErr)
        }
    }

    if d.TemplateID == "" {
        return fmt.Errorf("whatsapp: no open session for %s and no template configured", phone)
    }

    tenantLang := cfg.DefaultLanguage
    if tenantLang == "" {
        tenantLang = e.defaultLang
    }
    language := ResolveLanguage(phone, tenantLang)
    templateName, err := ResolveTemplate(d.TemplateID, language)
    if err != nil {
        return err
    }
    res, err := e.api.SendTemplateMessage(ctx, cfg, phone, templateName, language, d.Params)
    if err != nil {
        if sessionErr != nil {
            return fmt.Errorf("template send failed after session failure (%v): %w", sessionErr, err)
        }
        return err
    }
    e.record(ctx, phone, d, res)
    return nil
}

// record appends the outgoing message to the audit trail.  A store failure
// here is logged, not surfaced: the guest already has the message.
func (e *Engine) record(ctx context.Context, phone string, d Delivery, res *SendResult) {
    rec := &model.MessageRecord{
        Direction:         model.MessageDirectionOutgoing,
        Phone:             phone,
        Body:              d.Body,
        ProviderMessageID: res.MessageID,
        Status:            "sent",
        BranchID:          d.BranchID,
        SentAt:            e.now().UTC(),
    }
    if err := e.messages.Create(ctx, rec); err != nil {
        log.Printf("whatsapp: record outgoing message for %s: %v", phone, err)
    }
}
