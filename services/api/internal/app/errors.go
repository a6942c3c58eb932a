package app

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The same message covers unknown emails so login cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")

	ErrUserNotFound             = errors.New("User not found!")
	ErrResearchBookNotFound     = errors.New("ResearchBook not found.")
	ErrLegalInformationNotFound = errors.New("LegalInformation not found.")
	ErrDocumentNotFound         = errors.New("No document is attached to this legal information.")
	ErrInvalidResetToken        = errors.New("Invalid or expired password reset token.")
	ErrPasswordMismatch         = errors.New("The password and confirm password do not match.")

	// ErrForbidden is returned when a grantee attempts an owner-only operation.
	ErrForbidden = errors.New("Only the owner of this research book can do that.")

	ErrStorageDisabled = errors.New("document storage not configured")
)

// ValidationError carries every problem found with caller input.
type ValidationError struct {
	Problems []string
	cause    error
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, " ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func invalid(problems ...string) error {
	return &ValidationError{Problems: problems}
}

// problems collects validation messages.
type problems []string

func (p *problems) add(ok bool, msg string) {
	if !ok {
		*p = append(*p, msg)
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}
