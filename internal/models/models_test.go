package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIncidentStatus_CanTransitionTo(t *testing.T) {
	all := []IncidentStatus{StatusReported, StatusAssigned, StatusInProgress, StatusResolved, StatusCancelled}
	allowed := map[IncidentStatus][]IncidentStatus{
		StatusReported:   {StatusAssigned, StatusInProgress, StatusResolved, StatusCancelled},
		StatusAssigned:   {StatusInProgress, StatusResolved, StatusCancelled},
		StatusInProgress: {StatusResolved, StatusCancelled},
		StatusResolved:   nil,
		StatusCancelled:  nil,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, StatusReported.CanTransitionTo("closed"))
	assert.False(t, IncidentStatus("closed").CanTransitionTo(StatusResolved))
}

func TestIncidentStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusResolved.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
}

func TestIncident_ApplyStatus(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	inc := &Incident{Status: StatusInProgress}

	inc.ApplyStatus(StatusResolved, now)
	assert.Equal(t, StatusResolved, inc.Status)
	if assert.NotNil(t, inc.ResolvedAt) {
		assert.Equal(t, now, *inc.ResolvedAt)
	}

	inc.ApplyStatus(StatusCancelled, now)
	assert.Nil(t, inc.ResolvedAt)
}

func TestWithLocationFallback(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		lat, lon float64
		want     string
	}{
		{"real coordinates keep address", "Rizal St.", 12.5, 124.6, "Rizal St."},
		{"zero latitude only is a real point", "Equator", 0, 124.6, "Equator"},
		{"no gps and no address", "  ", 0, 0, GPSUnavailableMarker},
		{"no gps appends marker", "Near the church", 0, 0, "Near the church " + GPSUnavailableMarker},
		{"marker is not duplicated", "Near the church " + GPSUnavailableMarker, 0, 0, "Near the church " + GPSUnavailableMarker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithLocationFallback(tt.address, tt.lat, tt.lon))
		})
	}
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, IncidentNaturalDisaster.IsValid())
	assert.False(t, IncidentType("flood").IsValid())
	assert.True(t, UrgencyCritical.IsValid())
	assert.False(t, Urgency("extreme").IsValid())
	assert.True(t, RoleResponder.IsValid())
	assert.False(t, Role("mayor").IsValid())
	assert.True(t, VerificationRejected.IsValid())
	assert.False(t, VerificationStatus("").IsValid())
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "is required", "latitude": "is required"}}
	assert.Equal(t, "validation failed: latitude: is required; title: is required", err.Error())

	transition := NewTransitionError(StatusResolved, StatusReported)
	wrapped := fmt.Errorf("service: update status: %w", transition)
	assert.ErrorIs(t, wrapped, ErrInvalidTransition)

	var verr *ValidationError
	if assert.True(t, errors.As(wrapped, &verr)) {
		assert.Equal(t, "cannot change status from resolved to reported", verr.Fields["status"])
	}
}
