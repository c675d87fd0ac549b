package notify

import (
    "fmt"

    "hostel-pms/internal/model"
)

// guestDateLayout renders check-in/check-out dates the way guests in the
// hostels' market read them.
const guestDateLayout = "02/01/2006"

// CheckInLink builds the online check-in URL for a reservation.
func CheckInLink(frontendURL string, reservationID uint64) string {
    return fmt.Sprintf("%s/check-in/%d", frontendURL, reservationID)
}

// composeGuestMessage renders the confirmation message sent after a
// reservation is created or its contact updated.  The passcode block is
// only included when door provisioning succeeded.
func composeGuestMessage(res *model.Reservation, paymentLink, doorPin, doorApp string) string {
    passcodeBlock := ""
    if doorPin != "" {
        if doorApp == "" {
            doorApp = "la puerta"
        }
        passcodeBlock = fmt.Sprintf("Tu código de acceso (%s):\n%s\n\n", doorApp, doorPin)
    }
    return fmt.Sprintf(`Hola %s,

¡Bienvenido! Tu reserva ha sido confirmada:
- Entrada: %s
- Salida: %s

Por favor, realiza el pago:
%s

%s¡Te esperamos!`,
        res.GuestName,
        res.CheckIn.Format(guestDateLayout),
        res.CheckOut.Format(guestDateLayout),
        paymentLink,
        passcodeBlock,
    )
}

// composePasscodeMessage renders the standalone door-passcode message used
// by the send-passcode endpoint.
func composePasscodeMessage(res *model.Reservation, doorPin, doorApp string) string {
    if doorApp == "" {
        doorApp = "la puerta"
    }
    return fmt.Sprintf(`Hola %s,

Tu código de acceso (%s):
%s

Válido desde el %s hasta el %s.

¡Buena estancia!`,
        res.GuestName,
        doorApp,
        doorPin,
        res.CheckIn.Format(guestDateLayout),
        res.CheckOut.Format(guestDateLayout),
    )
}
