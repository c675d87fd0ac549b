package notify

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCheckInLink(t *testing.T) {
    assert.Equal(t, "https://app.example.com/check-in/42",
        CheckInLink("https://app.example.com", 42))
}

func TestComposeGuestMessage(t *testing.T) {
    res := baseReservation(42)

    msg := composeGuestMessage(res, "https://pay/l", "", "")
    assert.Contains(t, msg, "Ana Torres")
    assert.Contains(t, msg, "10/09/2026")
    assert.Contains(t, msg, "12/09/2026")
    assert.Contains(t, msg, "https://pay/l")
    assert.NotContains(t, msg, "código de acceso")

    withPin := composeGuestMessage(res, "https://pay/l", "4821", "TTLock")
    assert.Contains(t, withPin, "4821")
    assert.Contains(t, withPin, "TTLock")
}

func TestComposePasscodeMessage(t *testing.T) {
    res := baseReservation(42)
    msg := composePasscodeMessage(res, "9944", "")
    assert.Contains(t, msg, "9944")
    assert.Contains(t, msg, "la puerta")
    assert.Contains(t, msg, "10/09/2026")
}
