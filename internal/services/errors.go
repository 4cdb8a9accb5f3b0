package services

import (
	"errors"
	"sort"
	"strings"
)

// Credential store
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Document registry and ingestion
var (
	ErrUnknownOwner         = errors.New("document owner does not exist")
	ErrDuplicateLocation    = errors.New("storage location already registered")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrStagedUploadNotFound = errors.New("staged upload not found")
	ErrStorageIO            = errors.New("content storage failure")
	ErrExtractionFailed     = errors.New("text extraction failed")
)

// Assistant gateway
var (
	ErrGateway        = errors.New("assistant gateway failure")
	ErrGatewayTimeout = errors.New("assistant gateway timed out")
)

// ValidationError lists every field that failed, keyed by its JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}
