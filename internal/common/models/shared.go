package models

import (
	"errors"
	"fmt"
	"time"
)

type ContextKey string

const (
	ClientIDKey ContextKey = "client_id"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionLogin      AuditAction = "LOGIN"
	AuditActionAutomation AuditAction = "AUTOMATION"
	AuditActionPromotion  AuditAction = "PROMOTION"
)

// ErrDuplicateWaitlist marks the "already waiting" case so callers can
// distinguish it from other validation failures with errors.Is.
var ErrDuplicateWaitlist = errors.New("client already has a waiting entry for this slot")

// ValidationError reports user input that failed a domain check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports a malformed rule definition caught at load time.
// Unrecognized field, operator and action names are rejected here instead of
// being tolerated during evaluation.
type ConfigurationError struct {
	Rule   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid rule configuration %q: %s", e.Rule, e.Reason)
}

// StoreError wraps an I/O failure against a collaborator. It is surfaced to
// the caller, never retried internally.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Log is the record shape written by the async logger sink.
type Log struct {
	Message      string    `bson:"message"`
	Caller       string    `bson:"caller"`
	LogLevelId   int       `bson:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc"`
}
