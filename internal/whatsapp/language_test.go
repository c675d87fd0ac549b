package whatsapp

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestResolveLanguage(t *testing.T) {
    cases := []struct {
        name          string
        phone         string
        tenantDefault string
        want          string
    }{
        {"colombian number", "+573001234567", "", "es"},
        {"spanish number", "+34911234567", "", "es"},
        {"dominican 1809 prefix", "+18095551234", "", "es"},
        {"mexican number", "+525512345678", "en", "es"},
        {"us number", "+14155550123", "es", "en"},
        {"uk number", "+447911123456", "", "en"},
        {"german number falls back to tenant", "+4915123456789", "en", "en"},
        {"german number without tenant default", "+4915123456789", "", "es"},
        {"brazilian number falls back to tenant", "+5511987654321", "es", "es"},
        {"unparseable falls back to tenant", "12", "en", "en"},
        {"unparseable without tenant default", "12", "", "es"},
        {"formatting stripped before lookup", "+57 300 123-4567", "", "es"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            assert.Equal(t, tc.want, ResolveLanguage(tc.phone, tc.tenantDefault))
        })
    }
}

func TestNormalizePhone(t *testing.T) {
    assert.Equal(t, "+573001234567", NormalizePhone("+57 300 123-4567"))
    assert.Equal(t, "+573001234567", NormalizePhone("573001234567"))
    assert.Equal(t, "", NormalizePhone("   "))
}
