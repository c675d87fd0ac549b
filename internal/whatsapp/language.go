package whatsapp

import "strings"

// FallbackLanguage is the hard default when neither the phone number nor
// the tenant configuration yields a language.  The hostels this system was
// built for operate in Colombia, so Spanish wins ties.
const FallbackLanguage = "es"

// spanishDialCodes lists international dialing prefixes of predominantly
// Spanish-speaking countries.  Longer prefixes are matched first.
var spanishDialCodes = []string{
    "+1809", "+1829", "+1849", // Dominican Republic
    "+502", // Guatemala
    "+503", // El Salvador
    "+504", // Honduras
    "+505", // Nicaragua
    "+506", // Costa Rica
    "+507", // Panama
    "+591", // Bolivia
    "+593", // Ecuador
    "+595", // Paraguay
    "+598", // Uruguay
    "+34",  // Spain
    "+51",  // Peru
    "+52",  // Mexico
    "+53",  // Cuba
    "+54",  // Argentina
    "+56",  // Chile
    "+57",  // Colombia
    "+58",  // Venezuela
}

// englishDialCodes lists prefixes of predominantly English-speaking
// countries.  Dominican prefixes under +1 are claimed by the Spanish list,
// which is consulted first.
var englishDialCodes = []string{
    "+1",   // US and Canada
    "+44",  // United Kingdom
    "+353", // Ireland
    "+61",  // Australia
    "+64",  // New Zealand
}

// ResolveLanguage picks the template language for a guest.  Precedence:
// phone country-code lookup, then the tenant default, then the hard
// fallback.  Phones with a country code in neither list fall through to
// the tenant default rather than guessing.
func ResolveLanguage(phone, tenantDefault string) string {
    p := NormalizePhone(phone)
    if strings.HasPrefix(p, "+") && len(p) >= 8 {
        for _, code := range spanishDialCodes {
            if strings.HasPrefix(p, code) {
                return "es"
            }
        }
        for _, code := range englishDialCodes {
            if strings.HasPrefix(p, code) {
                return "en"
            }
        }
    }
    if tenantDefault != "" {
        return tenantDefault
    }
    return FallbackLanguage
}
