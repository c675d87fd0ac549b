// Package payment is the narrow client for the external payment-link
// provider.  Credentials are resolved per branch or organization and passed
// in on every call; the client itself holds only the HTTP transport and is
// safe for concurrent use.
package payment

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/google/uuid"

    "hostel-pms/internal/model"
)

// Client talks to the payment provider's link API.
type Client struct {
    http *http.Client
}

// NewClient builds a Client with the standard 30s provider timeout.
func NewClient() *Client {
    return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// LinkRequest describes one payment link to create.
type LinkRequest struct {
    OrderRef    string `json:"order_ref"`
    AmountCents int64  `json:"amount_cents"`
    Currency    string `json:"currency"`
    Description string `json:"description"`
}

type linkResponse struct {
    URL   string `json:"url"`
    Error string `json:"error"`
}

// NewOrderRef produces a unique order reference for a reservation's link.
func NewOrderRef(reservationID uint64) string {
    return fmt.Sprintf("res-%d-%s", reservationID, uuid.NewString()[:8])
}

// CreateLink creates a payment link and returns its URL.
func (c *Client) CreateLink(ctx context.Context, cfg model.PaymentSettings, req LinkRequest) (string, error) {
    if cfg.BaseURL == "" || cfg.APIKey == "" {
        return "", fmt.Errorf("payment: provider not configured")
    }
    body, err := json.Marshal(req)
    if err != nil {
        return "", err
    }
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/v1/payment-links", bytes.NewReader(body))
    if err != nil {
        return "", err
    }
    httpReq.Header.Set("Content-Type", "application/json")
    httpReq.Header.Set("Authorization", "x-api-key "+cfg.APIKey)

    resp, err := c.http.Do(httpReq)
    if err != nil {
        return "", fmt.Errorf("payment: request failed: %w", err)
    }
    defer resp.Body.Close()
    raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
    if err != nil {
        return "", fmt.Errorf("payment: read response: %w", err)
    }
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return "", fmt.Errorf("payment: provider returned %d: %s", resp.StatusCode, truncate(raw, 256))
    }
    var out linkResponse
    if err := json.Unmarshal(raw, &out); err != nil {
        return "", fmt.Errorf("payment: decode response: %w", err)
    }
    if out.Error != "" {
        return "", fmt.Errorf("payment: provider error: %s", out.Error)
    }
    if out.URL == "" {
        return "", fmt.Errorf("payment: provider returned no link URL")
    }
    return out.URL, nil
}

func truncate(b []byte, n int) string {
    if len(b) > n {
        return string(b[:n]) + "..."
    }
    return string(b)
}
