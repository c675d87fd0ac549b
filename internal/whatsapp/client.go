// Package whatsapp implements the chat-messaging provider client and the
// two-tier delivery engine (session message with template fallback).
package whatsapp

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "hostel-pms/internal/model"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// Client talks to the provider's message endpoint.  Credentials are
// resolved per tenant and passed in on every call; the Client only holds
// the transport and is safe for concurrent use by all workers.
type Client struct {
    http    *http.Client
    baseURL string
}

// NewClient builds a Client against the production provider endpoint.
func NewClient() *Client {
    return &Client{http: &http.Client{Timeout: 30 * time.Second}, baseURL: defaultBaseURL}
}

// NewClientWithBaseURL builds a Client against a custom endpoint (tests).
func NewClientWithBaseURL(baseURL string) *Client {
    return &Client{http: &http.Client{Timeout: 30 * time.Second}, baseURL: baseURL}
}

// SendResult carries what the engine needs from a successful provider call.
type SendResult struct {
    MessageID string
}

// APIError is a structured provider failure.  The provider may report it
// with a non-2xx status or embedded in a 200 body; both end up here so the
// window classifier can inspect code/subcode/message uniformly.
type APIError struct {
    StatusCode int
    Code       int
    Subcode    int
    Message    string
}

func (e *APIError) Error() string {
    return fmt.Sprintf("whatsapp: provider error (status=%d code=%d subcode=%d): %s",
        e.StatusCode, e.Code, e.Subcode, e.Message)
}

type sendPayload struct {
    MessagingProduct string           `json:"messaging_product"`
    To               string           `json:"to"`
    Type             string           `json:"type"`
    Text             *textPayload     `json:"text,omitempty"`
    Template         *templatePayload `json:"template,omitempty"`
}

type textPayload struct {
    Body string `json:"body"`
}

type templatePayload struct {
    Name       string              `json:"name"`
    Language   templateLanguage    `json:"language"`
    Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
    Code string `json:"code"`
}

type templateComponent struct {
    Type       string              `json:"type"`
    Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
    Type string `json:"type"`
    Text string `json:"text"`
}

type sendResponse struct {
    Messages []struct {
        ID string `json:"id"`
    } `json:"messages"`
    Error *struct {
        Code    int    `json:"code"`
        Subcode int    `json:"error_subcode"`
        Message string `json:"message"`
    } `json:"error"`
}

// SendSessionMessage delivers a free-form message.  Session messages only
// succeed inside the provider's active conversation window.
func (c *Client) SendSessionMessage(ctx context.Context, cfg model.WhatsAppSettings, to, body string) (*SendResult, error) {
    return c.send(ctx, cfg, sendPayload{
        MessagingProduct: "whatsapp",
        To:               to,
        Type:             "text",
        Text:             &textPayload{Body: body},
    })
}

// SendTemplateMessage delivers a pre-approved template with ordered text
// parameters.  Templates are accepted regardless of window state.
func (c *Client) SendTemplateMessage(ctx context.Context, cfg model.WhatsAppSettings, to, templateName, languageCode string, params []string) (*SendResult, error) {
    tpl := &templatePayload{
        Name:     templateName,
        Language: templateLanguage{Code: languageCode},
    }
    if len(params) > 0 {
        formatted := make([]templateParameter, 0, len(params))
        for _, p := range params {
            formatted = append(formatted, templateParameter{Type: "text", Text: p})
        }
        tpl.Components = []templateComponent{{Type: "body", Parameters: formatted}}
    }
    return c.send(ctx, cfg, sendPayload{
        MessagingProduct: "whatsapp",
        To:               to,
        Type:             "template",
        Template:         tpl,
    })
}

func (c *Client) send(ctx context.Context, cfg model.WhatsAppSettings, payload sendPayload) (*SendResult, error) {
    if cfg.APIKey == "" || cfg.PhoneNumberID == "" {
        return nil, fmt.Errorf("whatsapp: provider not configured")
    }
    body, err := json.Marshal(payload)
    if err != nil {
        return nil, err
    }
    url := fmt.Sprintf("%s/%s/messages", c.baseURL, cfg.PhoneNumberID)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
    if err != nil {
        return nil, err
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

    resp, err := c.http.Do(req)
    if err != nil {
        return nil, fmt.Errorf("whatsapp: request failed: %w", err)
    }
    defer resp.Body.Close()
    raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
    if err != nil {
        return nil, fmt.Errorf("whatsapp: read response: %w", err)
    }

    var out sendResponse
    if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
        return nil, fmt.Errorf("whatsapp: decode response: %w", err)
    }
    // A 200 with an embedded error object is still a failure.
    if out.Error != nil {
        return nil, &APIError{
            StatusCode: resp.StatusCode,
            Code:       out.Error.Code,
            Subcode:    out.Error.Subcode,
            Message:    out.Error.Message,
        }
    }
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
    }
    res := &SendResult{}
    if len(out.Messages) > 0 {
        res.MessageID = out.Messages[0].ID
    }
    return res, nil
}

// NormalizePhone strips spaces and dashes and ensures a leading "+".
func NormalizePhone(phone string) string {
    normalized := strings.NewReplacer(" ", "", "-", "").Replace(phone)
    if normalized != "" && !strings.HasPrefix(normalized, "+") {
        normalized = "+" + normalized
    }
    return normalized
}
