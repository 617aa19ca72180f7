package models

import (
	"time"

	"github.com/google/uuid"
)

// Role определяет роль пользователя в системе реагирования
type Role string

const (
	RoleSuperAdmin       Role = "super_admin"
	RoleMunicipalAdmin   Role = "municipal_admin"
	RoleAdmin            Role = "admin"
	RoleMDRRMO           Role = "mdrrmo"
	RoleBarangayOfficial Role = "barangay_official"
	RoleResident         Role = "resident"
	// RoleResponder is the legacy assignment-based role.
	RoleResponder Role = "responder"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleMunicipalAdmin, RoleAdmin, RoleMDRRMO,
		RoleBarangayOfficial, RoleResident, RoleResponder:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// VerificationStatus применим только к жителям (resident)
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

type User struct {
	ID                 uuid.UUID          `json:"id"`
	Email              string             `json:"email"`
	PasswordHash       string             `json:"-"`
	FullName           string             `json:"full_name"`
	Role               Role               `json:"role"`
	MunicipalityID     *uuid.UUID         `json:"municipality_id,omitempty"`
	BarangayID         *uuid.UUID         `json:"barangay_id,omitempty"`
	PhoneNumber        *string            `json:"phone_number,omitempty"`
	IsActive           bool               `json:"is_active"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`
	VerifiedBy         *uuid.UUID         `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	VerificationNotes  *string            `json:"verification_notes,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// UserFilter фильтр для административного списка пользователей
type UserFilter struct {
	Role           *Role
	MunicipalityID *uuid.UUID
	BarangayID     *uuid.UUID
	IsActive       *bool
}
