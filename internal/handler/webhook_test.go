package handler

import (
    "context"
    "net/http"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "hostel-pms/internal/model"
)

type fakeMessageStore struct {
    created []*model.MessageRecord
    err     error
}

func (f *fakeMessageStore) Create(ctx context.Context, m *model.MessageRecord) error {
    if f.err != nil {
        return f.err
    }
    f.created = append(f.created, m)
    return nil
}

const webhookBody = `{
  "entry": [{
    "changes": [{
      "value": {
        "messages": [{
          "from": "573001234567",
          "id": "wamid.incoming1",
          "timestamp": "1756500000",
          "text": {"body": "Hola, llego a las 3"}
        }]
      }
    }]
  }]
}`

func TestWebhookStoresIncomingMessage(t *testing.T) {
    store := &fakeMessageStore{}
    h := NewWebhookHandler(store)

    c, rec := doJSON(http.MethodPost, "/v1/webhooks/whatsapp", webhookBody)
    require.NoError(t, h.Receive(c))

    assert.Equal(t, http.StatusOK, rec.Code)
    require.Len(t, store.created, 1)
    msg := store.created[0]
    assert.Equal(t, model.MessageDirectionIncoming, msg.Direction)
    assert.Equal(t, "+573001234567", msg.Phone, "provider numbers are normalized with a + prefix")
    assert.Equal(t, "Hola, llego a las 3", msg.Body)
    assert.Equal(t, "wamid.incoming1", msg.ProviderMessageID)
    assert.Equal(t, int64(1756500000), msg.SentAt.Unix())
}

func TestWebhookIgnoresStatusOnlyPayload(t *testing.T) {
    store := &fakeMessageStore{}
    h := NewWebhookHandler(store)

    c, rec := doJSON(http.MethodPost, "/v1/webhooks/whatsapp",
        `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.x","status":"delivered"}]}}]}]}`)
    require.NoError(t, h.Receive(c))

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, store.created)
}

func TestWebhookStorageFailureReturns500(t *testing.T) {
    store := &fakeMessageStore{err: assert.AnError}
    h := NewWebhookHandler(store)

    c, rec := doJSON(http.MethodPost, "/v1/webhooks/whatsapp", webhookBody)
    require.NoError(t, h.Receive(c))

    // The provider retries on 5xx, so the window-opening event is not lost.
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookTimeFallsBackToNow(t *testing.T) {
    ts := webhookTime("not-a-number")
    assert.False(t, ts.IsZero())
}
