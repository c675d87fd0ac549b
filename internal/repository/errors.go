package repository

import "errors"

// Sentinel errors returned by repositories.  Handlers and the notification
// pipeline compare against these with errors.Is to map database outcomes to
// HTTP statuses and retry decisions.
var (
    // ErrReservationNotFound is returned when a reservation lookup matches no row.
    ErrReservationNotFound = errors.New("reservation not found")
    // ErrOrganizationNotFound is returned when an organization lookup matches no row.
    ErrOrganizationNotFound = errors.New("organization not found")
    // ErrBranchNotFound is returned when a branch lookup matches no row.
    ErrBranchNotFound = errors.New("branch not found")
)
