package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a structured API error response
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
	Details string `json:"details,omitempty"`
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Code:    code,
		Message: message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// Token service errors. Crypto/signature details never leak past these.
var (
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrUnknownRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	ErrForbidden           = errors.New("forbidden: admin access required")
)

// ConnectionError means a ledger session could not be established:
// unresolvable connection profile, unreachable network, or an identity
// the membership service rejected.
type ConnectionError struct {
	Label string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ledger connection failed for %q: %v", e.Label, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// GatewayError is a submit/evaluate rejected by the ledger. RawMessage is
// the untouched remote error text; interpretation belongs to the
// orchestrator, not here.
type GatewayError struct {
	Op         string
	Code       int
	RawMessage string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("ledger rejected %s: %s", e.Op, e.RawMessage)
}

// CAError is a structured certificate-authority failure. Code 74 is the
// CA's "identity already exists" signal.
type CAError struct {
	Code    int
	Message string
}

func (e *CAError) Error() string {
	return fmt.Sprintf("ca error %d: %s", e.Code, e.Message)
}

const caCodeAlreadyExists = 74

// Identity lifecycle errors.
type EnrollmentError struct {
	ID  string
	Err error
}

func (e *EnrollmentError) Error() string {
	return fmt.Sprintf("enrollment failed for %q: %v", e.ID, e.Err)
}

func (e *EnrollmentError) Unwrap() error { return e.Err }

type RegistrationError struct {
	ID  string
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration failed for %q: %v", e.ID, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

type DuplicateVoterError struct{ ID string }

func (e *DuplicateVoterError) Error() string {
	return fmt.Sprintf("voter %q already exists", e.ID)
}

type VoterNotEnrolledError struct{ ID string }

func (e *VoterNotEnrolledError) Error() string {
	return fmt.Sprintf("voter %q not enrolled", e.ID)
}

type LedgerDeleteError struct {
	ID  string
	Err error
}

func (e *LedgerDeleteError) Error() string {
	return fmt.Sprintf("failed to delete voter %q from ledger: %v", e.ID, e.Err)
}

func (e *LedgerDeleteError) Unwrap() error { return e.Err }

var ErrMissingAdminIdentity = errors.New("admin identity missing from wallet")
