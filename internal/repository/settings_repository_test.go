package repository

import (
    "database/sql"
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "hostel-pms/internal/model"
    "hostel-pms/internal/secrets"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testRepo(t *testing.T) (*SettingsRepo, *secrets.Box) {
    t.Helper()
    box, err := secrets.NewBox(testKeyHex)
    require.NoError(t, err)
    return NewSettingsRepo(nil, box), box
}

func TestDecodeUnsealsCredentials(t *testing.T) {
    repo, box := testRepo(t)

    sealed, err := box.Seal("real-token")
    require.NoError(t, err)
    raw, err := json.Marshal(model.Settings{
        WhatsApp: &model.WhatsAppSettings{Provider: "meta", APIKey: sealed, PhoneNumberID: "555"},
        Payment:  &model.PaymentSettings{APIKey: "plain-dev-key", BaseURL: "https://pay"},
    })
    require.NoError(t, err)

    s, err := repo.decode(sql.NullString{String: string(raw), Valid: true})
    require.NoError(t, err)

    assert.Equal(t, "real-token", s.WhatsApp.APIKey)
    assert.Equal(t, "plain-dev-key", s.Payment.APIKey, "unsealed dev values pass through")
    assert.Nil(t, s.DoorSystem)
}

func TestDecodeEmptySettings(t *testing.T) {
    repo, _ := testRepo(t)

    s, err := repo.decode(sql.NullString{})
    require.NoError(t, err)
    assert.Nil(t, s.WhatsApp)
    assert.Nil(t, s.Payment)
}

func TestDecodeRejectsBadJSON(t *testing.T) {
    repo, _ := testRepo(t)

    _, err := repo.decode(sql.NullString{String: "{broken", Valid: true})
    assert.Error(t, err)
}

func TestMergeBranchOverridesBlockWise(t *testing.T) {
    org := &model.Settings{
        WhatsApp: &model.WhatsAppSettings{Provider: "meta", APIKey: "org-key", PhoneNumberID: "111"},
        Payment:  &model.PaymentSettings{APIKey: "org-pay", BaseURL: "https://pay"},
    }
    branch := &model.Settings{
        WhatsApp: &model.WhatsAppSettings{Provider: "meta", APIKey: "branch-key", PhoneNumberID: "222"},
    }

    merged := merge(org, branch)

    assert.Equal(t, "branch-key", merged.WhatsApp.APIKey, "branch block replaces the org block wholesale")
    assert.Equal(t, "222", merged.WhatsApp.PhoneNumberID)
    assert.Equal(t, "org-pay", merged.Payment.APIKey, "blocks the branch does not define fall through")
}
