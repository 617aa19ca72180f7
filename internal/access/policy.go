package access

import (
	"fmt"

	"github.com/shenikar/emergency_response_system/internal/models"
)

func hasRole(role models.Role, allowed ...models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", models.ErrForbidden, reason)
}

// CanCreateIncident - сообщать об инцидентах могут только верифицированные жители
func CanCreateIncident(a Actor) error {
	if a.Role != models.RoleResident {
		return forbidden("only residents can report incidents")
	}
	if a.VerificationStatus != models.VerificationVerified {
		return forbidden("account must be verified before reporting incidents")
	}
	return nil
}

func CanUpdateStatus(a Actor, inc *models.Incident) error {
	if hasRole(a.Role, models.RoleAdmin, models.RoleMDRRMO, models.RoleBarangayOfficial, models.RoleMunicipalAdmin) {
		return nil
	}
	if inc.ReporterID == a.ID {
		return nil
	}
	return forbidden("not allowed to update this incident")
}

func CanAssign(a Actor) error {
	if hasRole(a.Role, models.RoleAdmin, models.RoleMDRRMO, models.RoleMunicipalAdmin) {
		return nil
	}
	return forbidden("not allowed to assign responders")
}

// IsResponderCapable - роли, которые могут быть назначены на инцидент
func IsResponderCapable(role models.Role) bool {
	return role == models.RoleResponder
}

// CanEscalate - запрос помощи муниципалитета доступен только официальным лицам барангая
// и только для незавершённых инцидентов
func CanEscalate(a Actor, inc *models.Incident) error {
	if a.Role != models.RoleBarangayOfficial {
		return forbidden("only barangay officials can request municipal assistance")
	}
	if inc.Status.IsTerminal() {
		return models.NewValidationError("status", fmt.Sprintf("cannot escalate a %s incident", inc.Status))
	}
	return nil
}

func CanVerifyResident(a Actor, resident *models.User) error {
	if !hasRole(a.Role, models.RoleSuperAdmin, models.RoleMunicipalAdmin, models.RoleAdmin, models.RoleMDRRMO) {
		return forbidden("not allowed to verify residents")
	}
	if resident.Role != models.RoleResident {
		return models.NewValidationError("user_id", "only resident accounts require verification")
	}
	if hasRole(a.Role, models.RoleMunicipalAdmin, models.RoleMDRRMO) && a.MunicipalityID != nil {
		if resident.MunicipalityID == nil || *resident.MunicipalityID != *a.MunicipalityID {
			return forbidden("resident belongs to another municipality")
		}
	}
	return nil
}

// CreatableRoles - роли учётных записей, которые может создать пользователь с ролью creator
func CreatableRoles(creator models.Role) []models.Role {
	emergency := []models.Role{models.RoleMDRRMO, models.RoleBarangayOfficial, models.RoleResident}
	switch creator {
	case models.RoleSuperAdmin:
		return []models.Role{models.RoleMunicipalAdmin}
	case models.RoleMunicipalAdmin:
		return emergency
	case models.RoleAdmin:
		return append(emergency, models.RoleAdmin, models.RoleResponder)
	}
	return nil
}

// CanCreateUser проверяет роль создаваемого пользователя и, для municipal_admin, его муниципалитет
func CanCreateUser(a Actor, target *models.User) error {
	if !hasRole(target.Role, CreatableRoles(a.Role)...) {
		return forbidden(fmt.Sprintf("role %s cannot create %s accounts", a.Role, target.Role))
	}
	if a.Role == models.RoleMunicipalAdmin {
		if a.MunicipalityID == nil || target.MunicipalityID == nil || *target.MunicipalityID != *a.MunicipalityID {
			return forbidden("accounts must belong to your municipality")
		}
	}
	return nil
}

// UserListScope ограничивает административный список пользователей.
// ScopeNone означает, что пользователю без муниципалитета список недоступен.
func UserListScope(a Actor) (*Scope, error) {
	switch a.Role {
	case models.RoleSuperAdmin, models.RoleAdmin:
		return &Scope{Kind: ScopeAll}, nil
	case models.RoleMunicipalAdmin, models.RoleMDRRMO:
		if a.MunicipalityID == nil {
			return &Scope{Kind: ScopeNone}, nil
		}
		return &Scope{Kind: ScopeMunicipality, ID: *a.MunicipalityID}, nil
	}
	return nil, forbidden("not allowed to list users")
}
