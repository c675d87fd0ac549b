package doorlock

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "hostel-pms/internal/model"
)

func vendorSettings(baseURL string) model.DoorSystemSettings {
    return model.DoorSystemSettings{AppName: "TTLock", BaseURL: baseURL, APIKey: "dk", LockIDs: []int64{901}}
}

func TestCreateTemporaryPasscode(t *testing.T) {
    var gotReq passcodeRequest
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "/v3/keyboardPwd/add", r.URL.Path)
        assert.Equal(t, "Bearer dk", r.Header.Get("Authorization"))
        _ = json.NewDecoder(r.Body).Decode(&gotReq)
        _ = json.NewEncoder(w).Encode(map[string]any{"passcode": "4821"})
    }))
    defer srv.Close()

    from := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
    to := time.Date(2026, 9, 12, 11, 0, 0, 0, time.UTC)

    c := NewClient()
    pin, err := c.CreateTemporaryPasscode(context.Background(), vendorSettings(srv.URL), 901, from, to, "Guest: Ana")
    require.NoError(t, err)

    assert.Equal(t, "4821", pin)
    assert.Equal(t, int64(901), gotReq.LockID)
    assert.Equal(t, from.UnixMilli(), gotReq.StartDate)
    assert.Equal(t, to.UnixMilli(), gotReq.EndDate)
    assert.Equal(t, "Guest: Ana", gotReq.Name)
}

func TestCreateTemporaryPasscodeVendorErrorIn200(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _ = json.NewEncoder(w).Encode(map[string]any{"errcode": -3, "errmsg": "invalid lock"})
    }))
    defer srv.Close()

    c := NewClient()
    _, err := c.CreateTemporaryPasscode(context.Background(), vendorSettings(srv.URL), 901, time.Now(), time.Now().Add(time.Hour), "x")
    require.Error(t, err)
    assert.Contains(t, err.Error(), "invalid lock")
}

func TestCreateTemporaryPasscodeRequiresConfig(t *testing.T) {
    c := NewClient()
    _, err := c.CreateTemporaryPasscode(context.Background(), model.DoorSystemSettings{}, 1, time.Now(), time.Now(), "x")
    assert.Error(t, err)
}
