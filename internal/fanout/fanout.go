// Package fanout вычисляет получателей уведомлений для событий жизненного цикла инцидента.
// Функции не пишут в хранилище: они возвращают строки notifications, которые сервис
// сохраняет в той же транзакции, что и само изменение.
package fanout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/models"
)

// recipients собирает уведомления одного события без повторов получателей
type recipients struct {
	incident *models.Incident
	seen     map[uuid.UUID]struct{}
	out      []*models.Notification
}

func newRecipients(inc *models.Incident) *recipients {
	return &recipients{incident: inc, seen: make(map[uuid.UUID]struct{})}
}

func (r *recipients) add(userID uuid.UUID, typ models.NotificationType, prio models.NotificationPriority, title, message string) {
	if _, dup := r.seen[userID]; dup {
		return
	}
	r.seen[userID] = struct{}{}
	incidentID := r.incident.ID
	r.out = append(r.out, &models.Notification{
		UserID:     userID,
		IncidentID: &incidentID,
		Type:       typ,
		Priority:   prio,
		Title:      title,
		Message:    message,
	})
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

// ForCreation - активные сотрудники MDRRMO муниципалитета инцидента и официальные лица его барангая.
// Вышестоящие муниципальные роли уведомляются только через эскалацию.
func ForCreation(inc *models.Incident, candidates []*models.User) []*models.Notification {
	r := newRecipients(inc)
	for _, u := range candidates {
		if u == nil || !u.IsActive {
			continue
		}
		switch {
		case u.Role == models.RoleMDRRMO && sameID(u.MunicipalityID, inc.MunicipalityID):
			r.add(u.ID, models.NotificationNewIncident, models.PriorityNormal,
				"New Incident Reported",
				fmt.Sprintf("New %s incident reported: %s", inc.Type, inc.Title))
		case u.Role == models.RoleBarangayOfficial && sameID(u.BarangayID, inc.BarangayID):
			r.add(u.ID, models.NotificationNewIncident, models.PriorityNormal,
				"New Incident in Your Area",
				fmt.Sprintf("New incident reported in your barangay: %s", inc.Title))
		}
	}
	return r.out
}

// ForAssignment - уведомляется только назначенный ответственный
func ForAssignment(inc *models.Incident, assignee *models.User) []*models.Notification {
	r := newRecipients(inc)
	r.add(assignee.ID, models.NotificationIncidentAssigned, models.PriorityNormal,
		"New Incident Assignment",
		fmt.Sprintf("You have been assigned to incident: %s", inc.Title))
	return r.out
}

// ForStatusChange - автор инцидента и все назначенные ответственные, каждый ровно один раз
func ForStatusChange(inc *models.Incident, responderIDs []uuid.UUID) []*models.Notification {
	r := newRecipients(inc)
	r.add(inc.ReporterID, models.NotificationStatusUpdate, models.PriorityNormal,
		"Incident Status Updated",
		fmt.Sprintf("Your incident status has been updated to: %s", inc.Status))
	for _, id := range responderIDs {
		r.add(id, models.NotificationStatusUpdate, models.PriorityNormal,
			"Incident Status Updated",
			fmt.Sprintf("Incident status updated to: %s", inc.Status))
	}
	return r.out
}

// ForEscalation - срочное уведомление MDRRMO муниципалитета инцидента
func ForEscalation(inc *models.Incident, reason string, candidates []*models.User) []*models.Notification {
	r := newRecipients(inc)
	for _, u := range candidates {
		if u == nil || !u.IsActive || u.Role != models.RoleMDRRMO || !sameID(u.MunicipalityID, inc.MunicipalityID) {
			continue
		}
		r.add(u.ID, models.NotificationEscalationRequest, models.PriorityUrgent,
			"Municipal Assistance Requested",
			fmt.Sprintf("Barangay requested assistance for %q: %s", inc.Title, reason))
	}
	return r.out
}
