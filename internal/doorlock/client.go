// Package doorlock is the narrow client for the door-lock vendor.  The
// pipeline treats passcode provisioning as a best-effort side channel, so
// callers log and continue on any error returned here.
package doorlock

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "hostel-pms/internal/model"
)

// Client talks to the lock vendor's passcode API.
type Client struct {
    http *http.Client
}

// NewClient builds a Client with the standard 30s provider timeout.
func NewClient() *Client {
    return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

type passcodeRequest struct {
    LockID    int64  `json:"lock_id"`
    StartDate int64  `json:"start_date"` // unix millis
    EndDate   int64  `json:"end_date"`   // unix millis
    Name      string `json:"name"`
}

type passcodeResponse struct {
    Passcode string `json:"passcode"`
    ErrCode  int    `json:"errcode"`
    ErrMsg   string `json:"errmsg"`
}

// CreateTemporaryPasscode provisions a passcode valid between from and to
// on the given lock and returns it.  The label shows up in the vendor app.
func (c *Client) CreateTemporaryPasscode(ctx context.Context, cfg model.DoorSystemSettings, lockID int64, from, to time.Time, label string) (string, error) {
    if cfg.BaseURL == "" || cfg.APIKey == "" {
        return "", fmt.Errorf("doorlock: vendor not configured")
    }
    body, err := json.Marshal(passcodeRequest{
        LockID:    lockID,
        StartDate: from.UnixMilli(),
        EndDate:   to.UnixMilli(),
        Name:      label,
    })
    if err != nil {
        return "", err
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/v3/keyboardPwd/add", bytes.NewReader(body))
    if err != nil {
        return "", err
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

    resp, err := c.http.Do(req)
    if err != nil {
        return "", fmt.Errorf("doorlock: request failed: %w", err)
    }
    defer resp.Body.Close()
    raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
    if err != nil {
        return "", fmt.Errorf("doorlock: read response: %w", err)
    }
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return "", fmt.Errorf("doorlock: vendor returned %d", resp.StatusCode)
    }
    var out passcodeResponse
    if err := json.Unmarshal(raw, &out); err != nil {
        return "", fmt.Errorf("doorlock: decode response: %w", err)
    }
    // The vendor reports failures inside a 200 body.
    if out.ErrCode != 0 {
        return "", fmt.Errorf("doorlock: vendor error %d: %s", out.ErrCode, out.ErrMsg)
    }
    if out.Passcode == "" {
        return "", fmt.Errorf("doorlock: vendor returned no passcode")
    }
    return out.Passcode, nil
}
