package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// ValidationError содержит ошибки по полям запроса
type ValidationError struct {
	Fields map[string]string
	Cause  error
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// NewTransitionError - недопустимый переход статуса отдаётся клиенту как ошибка поля status
func NewTransitionError(from, to IncidentStatus) *ValidationError {
	return &ValidationError{
		Fields: map[string]string{"status": fmt.Sprintf("cannot change status from %s to %s", from, to)},
		Cause:  ErrInvalidTransition,
	}
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
