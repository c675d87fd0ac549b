package whatsapp

import (
    "errors"
    "fmt"
)

// Template ids used by the notification pipeline.
const (
    TemplateCheckInInvitation = "reservation_checkin_invitation"
    TemplatePasscode          = "reservation_passcode"
)

// supportedLanguages is the set every template id must cover.
var supportedLanguages = []string{"es", "en"}

// templateNames maps (template id, language) to the name registered with
// the provider.  The provider allows the same name in multiple languages
// for some templates while others were registered with a language suffix;
// this lookup keeps that convention in one place instead of string
// concatenation at call sites.  English variants carry a trailing
// underscore because that is how they were approved.
var templateNames = map[templateKey]string{
    {TemplateCheckInInvitation, "es"}: "reservation_checkin_invitation",
    {TemplateCheckInInvitation, "en"}: "reservation_checkin_invitation_",
    {TemplatePasscode, "es"}:          "reservation_passcode",
    {TemplatePasscode, "en"}:          "reservation_passcode_",
}

type templateKey struct {
    ID       string
    Language string
}

// ErrUnknownTemplate is returned when no provider name exists for a
// template id and language pair.
var ErrUnknownTemplate = errors.New("whatsapp: unknown template")

// ResolveTemplate returns the provider template name for a template id and
// language.
func ResolveTemplate(id, language string) (string, error) {
    name, ok := templateNames[templateKey{ID: id, Language: language}]
    if !ok {
        return "", fmt.Errorf("%w: %s (%s)", ErrUnknownTemplate, id, language)
    }
    return name, nil
}

// ValidateTemplates verifies at startup that every template id covers every
// supported language, so a missing pair fails the process instead of a
// guest message.
func ValidateTemplates() error {
    ids := map[string]bool{}
    for k := range templateNames {
        ids[k.ID] = true
    }
    for id := range ids {
        for _, lang := range supportedLanguages {
            name, ok := templateNames[templateKey{ID: id, Language: lang}]
            if !ok || name == "" {
                return fmt.Errorf("whatsapp: template %s missing language %s", id, lang)
            }
        }
    }
    return nil
}
