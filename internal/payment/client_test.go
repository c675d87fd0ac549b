package payment

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "hostel-pms/internal/model"
)

func TestCreateLink(t *testing.T) {
    var gotAuth string
    var gotReq LinkRequest
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        gotAuth = r.Header.Get("Authorization")
        _ = json.NewDecoder(r.Body).Decode(&gotReq)
        _ = json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example.com/l/abc"})
    }))
    defer srv.Close()

    c := NewClient()
    link, err := c.CreateLink(context.Background(),
        model.PaymentSettings{APIKey: "pk", BaseURL: srv.URL},
        LinkRequest{OrderRef: "res-42-deadbeef", AmountCents: 150000, Currency: "COP", Description: "Reserva Ana"})
    require.NoError(t, err)

    assert.Equal(t, "https://pay.example.com/l/abc", link)
    assert.Equal(t, "x-api-key pk", gotAuth)
    assert.Equal(t, int64(150000), gotReq.AmountCents)
    assert.Equal(t, "COP", gotReq.Currency)
}

func TestCreateLinkEmbeddedError(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _ = json.NewEncoder(w).Encode(map[string]string{"error": "merchant suspended"})
    }))
    defer srv.Close()

    c := NewClient()
    _, err := c.CreateLink(context.Background(),
        model.PaymentSettings{APIKey: "pk", BaseURL: srv.URL}, LinkRequest{})
    require.Error(t, err)
    assert.Contains(t, err.Error(), "merchant suspended")
}

func TestCreateLinkNon2xx(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "bad request", http.StatusBadRequest)
    }))
    defer srv.Close()

    c := NewClient()
    _, err := c.CreateLink(context.Background(),
        model.PaymentSettings{APIKey: "pk", BaseURL: srv.URL}, LinkRequest{})
    require.Error(t, err)
    assert.Contains(t, err.Error(), "400")
}

func TestCreateLinkRequiresConfig(t *testing.T) {
    c := NewClient()
    _, err := c.CreateLink(context.Background(), model.PaymentSettings{}, LinkRequest{})
    assert.Error(t, err)
}

func TestNewOrderRef(t *testing.T) {
    ref := NewOrderRef(42)
    assert.True(t, strings.HasPrefix(ref, "res-42-"))
    assert.NotEqual(t, ref, NewOrderRef(42), "order refs must be unique per call")
}
