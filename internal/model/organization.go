package model

import "time"

// Organization is the tenant that owns reservations and branches.  Its
// Settings column stores provider configuration as JSON; credential fields
// inside it are sealed at rest (see internal/secrets).
type Organization struct {
    ID          uint64    // organizations.id
    Name        string    // organizations.name
    DisplayName string    // organizations.display_name
    SettingsRaw []byte    // organizations.settings (JSON)
    CreatedAt   time.Time // organizations.created_at
}

// Branch is an optional physical location of an organization.  Branch
// settings override the organization's settings field-group-wise: a branch
// that configures its own whatsapp block uses it wholesale, otherwise the
// organization's block applies.
type Branch struct {
    ID             uint64  // branches.id
    OrganizationID uint64  // branches.organization_id
    Name           string  // branches.name
    SettingsRaw    []byte  // branches.settings (JSON, nullable)
}

// WhatsAppSettings configures the chat-messaging provider for one tenant.
// APIKey is sealed at rest and unsealed by the settings repository.
type WhatsAppSettings struct {
    Provider        string `json:"provider"`
    APIKey          string `json:"apiKey"`
    PhoneNumberID   string `json:"phoneNumberId"`
    DefaultLanguage string `json:"defaultLanguage"`
}

// PaymentSettings configures the payment-link provider for one tenant.
type PaymentSettings struct {
    APIKey  string `json:"apiKey"`
    BaseURL string `json:"baseUrl"`
}

// DoorSystemSettings configures the door-lock vendor.  The first lock id is
// used when provisioning guest passcodes.  APIKey is sealed at rest.
type DoorSystemSettings struct {
    AppName string  `json:"appName"`
    BaseURL string  `json:"baseUrl"`
    APIKey  string  `json:"apiKey"`
    LockIDs []int64 `json:"lockIds"`
}

// Settings is the decoded settings JSON of an organization or branch.
// Nil sub-structs mean the corresponding integration is not configured.
type Settings struct {
    WhatsApp   *WhatsAppSettings   `json:"whatsapp,omitempty"`
    Payment    *PaymentSettings    `json:"payment,omitempty"`
    DoorSystem *DoorSystemSettings `json:"doorSystem,omitempty"`
}
