package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated           = errors.New("unauthenticated")
	ErrForbidden                 = errors.New("forbidden")
	ErrNotFound                  = errors.New("not found")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrVerificationRequired      = errors.New("please verify your email address before logging in")
	ErrInvalidToken              = errors.New("invalid or expired verification link")
	ErrAlreadyVerified           = errors.New("email is already verified")
	ErrAdminNoVerificationNeeded = errors.New("admin accounts do not require verification")
)

// VerificationRequiredError carries the id of the unverified account so the
// client can offer a resend. errors.Is(err, ErrVerificationRequired) holds.
type VerificationRequiredError struct {
	UserID uuid.UUID
}

func (e *VerificationRequiredError) Error() string {
	return ErrVerificationRequired.Error()
}

func (e *VerificationRequiredError) Is(target error) bool {
	return target == ErrVerificationRequired
}

// ValidationError collects per-field messages. It maps to 422.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// FieldError is a shortcut for a validation error on a single field.
func FieldError(field, msg string) *ValidationError {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = map[string][]string{}
	}
	v.Fields[field] = append(v.Fields[field], msg)
}

func (v *ValidationError) Empty() bool {
	return len(v.Fields) == 0
}

// OrNil returns nil when nothing was collected, so callers can return it directly.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Fields))
	for f := range v.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}
