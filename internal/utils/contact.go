// Package utils holds small helpers shared across handlers and services.
package utils

import (
    "regexp"
    "strings"
)

// Contact types as classified from a guest contact update.
const (
    ContactTypePhone   = "phone"
    ContactTypeEmail   = "email"
    ContactTypeUnknown = "unknown"
)

var (
    emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
    phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\s-]{6,}$`)
)

// ClassifyContact decides whether a raw contact string is a phone number or
// an email address.  Phone strings may carry spaces and dashes; those are
// normalized later by the delivery layer.
func ClassifyContact(value string) string {
    v := strings.TrimSpace(value)
    switch {
    case v == "":
        return ContactTypeUnknown
    case emailRe.MatchString(v):
        return ContactTypeEmail
    case phoneRe.MatchString(v):
        return ContactTypePhone
    default:
        return ContactTypeUnknown
    }
}
