package whatsapp

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestResolveTemplate(t *testing.T) {
    name, err := ResolveTemplate(TemplateCheckInInvitation, "es")
    require.NoError(t, err)
    assert.Equal(t, "reservation_checkin_invitation", name)

    name, err = ResolveTemplate(TemplateCheckInInvitation, "en")
    require.NoError(t, err)
    assert.Equal(t, "reservation_checkin_invitation_", name, "english variants carry the trailing underscore they were approved with")

    _, err = ResolveTemplate(TemplateCheckInInvitation, "fr")
    assert.ErrorIs(t, err, ErrUnknownTemplate)

    _, err = ResolveTemplate("nonexistent", "es")
    assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestValidateTemplates(t *testing.T) {
    assert.NoError(t, ValidateTemplates())
}
