package whatsapp

import (
    "errors"
    "strings"
)

// Known provider error identifiers for "session message outside the active
// 24-hour window".  This table is configuration, not logic: extend it when
// the provider documents new identifiers (the taxonomy below matches the
// provider's published codes, 131047 = re-engagement required and 131026 =
// message undeliverable/template required).
var (
    windowErrorCodes    = map[int]bool{131047: true, 131026: true}
    windowErrorSubcodes = map[int]bool{131047: true}
    windowErrorPhrases  = []string{
        "24 hour",
        "outside the 24 hour",
        "outside window",
        "template required",
        "re-engagement message",
    }
)

// IsWindowExpired reports whether err is the provider telling us the
// recipient's active session window is closed, meaning a session message
// can never succeed and the template tier must be used.
func IsWindowExpired(err error) bool {
    var apiErr *APIError
    if !errors.As(err, &apiErr) {
        return false
    }
    if windowErrorCodes[apiErr.Code] || windowErrorSubcodes[apiErr.Subcode] {
        return true
    }
    msg := strings.ToLower(apiErr.Message)
    for _, phrase := range windowErrorPhrases {
        if strings.Contains(msg, phrase) {
            return true
        }
    }
    return false
}
