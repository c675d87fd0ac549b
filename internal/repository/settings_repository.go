package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"

    "hostel-pms/internal/model"
    "hostel-pms/internal/secrets"
)

// SettingsRepo loads provider configuration for organizations and branches.
// Settings live in a JSON column; credential fields inside the JSON are
// sealed at rest and unsealed here so every consumer receives plaintext
// credentials through one code path.
type SettingsRepo struct {
    db  *sql.DB
    box *secrets.Box
}

// NewSettingsRepo returns a new SettingsRepo bound to the given database
// and secret box.
func NewSettingsRepo(db *sql.DB, box *secrets.Box) *SettingsRepo {
    return &SettingsRepo{db: db, box: box}
}

// ForReservation resolves the effective settings for a reservation: branch
// settings override organization settings per integration block.  A branch
// that has no settings row or a NULL settings column contributes nothing.
func (r *SettingsRepo) ForReservation(ctx context.Context, organizationID uint64, branchID *uint64) (*model.Settings, error) {
    orgSettings, err := r.organization(ctx, organizationID)
    if err != nil {
        return nil, err
    }
    if branchID == nil {
        return orgSettings, nil
    }
    branchSettings, err := r.branch(ctx, *branchID)
    if err != nil {
        if errors.Is(err, ErrBranchNotFound) {
            return orgSettings, nil
        }
        return nil, err
    }
    return merge(orgSettings, branchSettings), nil
}

func (r *SettingsRepo) organization(ctx context.Context, id uint64) (*model.Settings, error) {
    const q = `SELECT settings FROM organizations WHERE id = ?`
    var raw sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).Scan(&raw)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrOrganizationNotFound
    }
    if err != nil {
        return nil, err
    }
    return r.decode(raw)
}

func (r *SettingsRepo) branch(ctx context.Context, id uint64) (*model.Settings, error) {
    const q = `SELECT settings FROM branches WHERE id = ?`
    var raw sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).Scan(&raw)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrBranchNotFound
    }
    if err != nil {
        return nil, err
    }
    return r.decode(raw)
}

// decode parses the settings JSON and unseals every credential field.
func (r *SettingsRepo) decode(raw sql.NullString) (*model.Settings, error) {
    s := &model.Settings{}
    if !raw.Valid || raw.String == "" {
        return s, nil
    }
    if err := json.Unmarshal([]byte(raw.String), s); err != nil {
        return nil, fmt.Errorf("decode settings: %w", err)
    }
    if s.WhatsApp != nil {
        key, err := r.box.Open(s.WhatsApp.APIKey)
        if err != nil {
            return nil, fmt.Errorf("unseal whatsapp api key: %w", err)
        }
        s.WhatsApp.APIKey = key
    }
    if s.Payment != nil {
        key, err := r.box.Open(s.Payment.APIKey)
        if err != nil {
            return nil, fmt.Errorf("unseal payment api key: %w", err)
        }
        s.Payment.APIKey = key
    }
    if s.DoorSystem != nil {
        key, err := r.box.Open(s.DoorSystem.APIKey)
        if err != nil {
            return nil, fmt.Errorf("unseal door system api key: %w", err)
        }
        s.DoorSystem.APIKey = key
    }
    return s, nil
}

// merge applies branch overrides on top of organization settings.  Blocks
// are replaced wholesale, never field-by-field.
func merge(org, branch *model.Settings) *model.Settings {
    out := *org
    if branch.WhatsApp != nil {
        out.WhatsApp = branch.WhatsApp
    }
    if branch.Payment != nil {
        out.Payment = branch.Payment
    }
    if branch.DoorSystem != nil {
        out.DoorSystem = branch.DoorSystem
    }
    return &out
}
