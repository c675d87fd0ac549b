package whatsapp

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "hostel-pms/internal/model"
)

func TestSendSessionMessageSuccess(t *testing.T) {
    var gotPath, gotAuth string
    var gotBody map[string]any
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        gotPath = r.URL.Path
        gotAuth = r.Header.Get("Authorization")
        _ = json.NewDecoder(r.Body).Decode(&gotBody)
        _ = json.NewEncoder(w).Encode(map[string]any{
            "messages": []map[string]string{{"id": "wamid.abc"}},
        })
    }))
    defer srv.Close()

    c := NewClientWithBaseURL(srv.URL)
    res, err := c.SendSessionMessage(context.Background(),
        model.WhatsAppSettings{APIKey: "token", PhoneNumberID: "555"},
        "+573001234567", "hola")
    require.NoError(t, err)
    assert.Equal(t, "wamid.abc", res.MessageID)
    assert.Equal(t, "/555/messages", gotPath)
    assert.Equal(t, "Bearer token", gotAuth)
    assert.Equal(t, "text", gotBody["type"])
}

func TestSendEmbeddedErrorIn200Body(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _ = json.NewEncoder(w).Encode(map[string]any{
            "error": map[string]any{
                "code":          131047,
                "error_subcode": 131047,
                "message":       "Re-engagement message required",
            },
        })
    }))
    defer srv.Close()

    c := NewClientWithBaseURL(srv.URL)
    _, err := c.SendSessionMessage(context.Background(),
        model.WhatsAppSettings{APIKey: "token", PhoneNumberID: "555"},
        "+573001234567", "hola")
    require.Error(t, err)

    var apiErr *APIError
    require.ErrorAs(t, err, &apiErr)
    assert.Equal(t, http.StatusOK, apiErr.StatusCode)
    assert.Equal(t, 131047, apiErr.Code)
    assert.True(t, IsWindowExpired(err))
}

func TestSendNon2xxStatus(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "unauthorized", http.StatusUnauthorized)
    }))
    defer srv.Close()

    c := NewClientWithBaseURL(srv.URL)
    _, err := c.SendTemplateMessage(context.Background(),
        model.WhatsAppSettings{APIKey: "bad", PhoneNumberID: "555"},
        "+573001234567", "reservation_checkin_invitation", "es", nil)
    require.Error(t, err)

    var apiErr *APIError
    require.ErrorAs(t, err, &apiErr)
    assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestSendRequiresCredentials(t *testing.T) {
    c := NewClient()
    _, err := c.SendSessionMessage(context.Background(), model.WhatsAppSettings{}, "+57", "hola")
    assert.Error(t, err)
}

func TestSendTemplateMessagePayload(t *testing.T) {
    var gotBody sendPayload
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _ = json.NewDecoder(r.Body).Decode(&gotBody)
        _ = json.NewEncoder(w).Encode(map[string]any{
            "messages": []map[string]string{{"id": "wamid.tpl"}},
        })
    }))
    defer srv.Close()

    c := NewClientWithBaseURL(srv.URL)
    _, err := c.SendTemplateMessage(context.Background(),
        model.WhatsAppSettings{APIKey: "token", PhoneNumberID: "555"},
        "+14155550123", "reservation_checkin_invitation_", "en", []string{"Ana", "link"})
    require.NoError(t, err)

    assert.Equal(t, "template", gotBody.Type)
    require.NotNil(t, gotBody.Template)
    assert.Equal(t, "reservation_checkin_invitation_", gotBody.Template.Name)
    assert.Equal(t, "en", gotBody.Template.Language.Code)
    require.Len(t, gotBody.Template.Components, 1)
    assert.Len(t, gotBody.Template.Components[0].Parameters, 2)
}
