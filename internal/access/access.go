// Package access содержит правила видимости и авторизации.
//
// Все функции чистые: они не обращаются к хранилищу, поэтому одни и те же правила
// используются и при построении SQL-запросов, и при фильтрации событий realtime.
package access

import (
	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/models"
)

// Actor - текущий пользователь, извлечённый из токена
type Actor struct {
	ID                 uuid.UUID
	Role               models.Role
	MunicipalityID     *uuid.UUID
	BarangayID         *uuid.UUID
	VerificationStatus models.VerificationStatus
	IsActive           bool
}

func ActorFromUser(u *models.User) Actor {
	return Actor{
		ID:                 u.ID,
		Role:               u.Role,
		MunicipalityID:     u.MunicipalityID,
		BarangayID:         u.BarangayID,
		VerificationStatus: u.VerificationStatus,
		IsActive:           u.IsActive,
	}
}

type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	ScopeReporter
	ScopeAssignee
	ScopeBarangay
	ScopeMunicipality
	ScopeAll
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeReporter:
		return "reporter"
	case ScopeAssignee:
		return "assignee"
	case ScopeBarangay:
		return "barangay"
	case ScopeMunicipality:
		return "municipality"
	case ScopeAll:
		return "all"
	}
	return "none"
}

// Scope - предикат видимости строк incidents.
// ID интерпретируется в зависимости от Kind: пользователь, барангай или муниципалитет.
type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID
}

// IncidentRef - минимальный набор полей инцидента, нужный для проверки видимости
type IncidentRef struct {
	ReporterID     uuid.UUID
	MunicipalityID *uuid.UUID
	BarangayID     *uuid.UUID
	AssigneeIDs    []uuid.UUID
}

func RefOf(inc *models.Incident, assignees []uuid.UUID) IncidentRef {
	return IncidentRef{
		ReporterID:     inc.ReporterID,
		MunicipalityID: inc.MunicipalityID,
		BarangayID:     inc.BarangayID,
		AssigneeIDs:    assignees,
	}
}

// ReadScope возвращает область видимости инцидентов для роли и территории пользователя
func ReadScope(a Actor) Scope {
	switch a.Role {
	case models.RoleResident:
		return Scope{Kind: ScopeReporter, ID: a.ID}
	case models.RoleResponder:
		return Scope{Kind: ScopeAssignee, ID: a.ID}
	case models.RoleBarangayOfficial:
		if a.BarangayID == nil {
			return Scope{Kind: ScopeNone}
		}
		return Scope{Kind: ScopeBarangay, ID: *a.BarangayID}
	case models.RoleMunicipalAdmin:
		if a.MunicipalityID == nil {
			return Scope{Kind: ScopeNone}
		}
		return Scope{Kind: ScopeMunicipality, ID: *a.MunicipalityID}
	case models.RoleMDRRMO:
		if a.MunicipalityID != nil {
			return Scope{Kind: ScopeMunicipality, ID: *a.MunicipalityID}
		}
		return Scope{Kind: ScopeAll}
	case models.RoleAdmin, models.RoleSuperAdmin:
		return Scope{Kind: ScopeAll}
	}
	return Scope{Kind: ScopeNone}
}

// Allows - тот же предикат, что и SQL-фильтр репозитория
func (s Scope) Allows(ref IncidentRef) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeReporter:
		return ref.ReporterID == s.ID
	case ScopeAssignee:
		for _, id := range ref.AssigneeIDs {
			if id == s.ID {
				return true
			}
		}
		return false
	case ScopeBarangay:
		return ref.BarangayID != nil && *ref.BarangayID == s.ID
	case ScopeMunicipality:
		return ref.MunicipalityID != nil && *ref.MunicipalityID == s.ID
	}
	return false
}

func CanRead(a Actor, ref IncidentRef) bool {
	return ReadScope(a).Allows(ref)
}
