package service

import "time"

// SetClock подменяет часы сервиса в тестах
func SetClock(svc any, now func() time.Time) {
	switch s := svc.(type) {
	case *incidentService:
		s.now = now
	case *notificationService:
		s.now = now
	case *userService:
		s.now = now
	case *authService:
		s.now = now
	}
}

// SetHashCost ускоряет bcrypt в тестах
func SetHashCost(svc any, cost int) {
	switch s := svc.(type) {
	case *userService:
		s.hashCost = cost
	case *authService:
		s.hashCost = cost
	}
}
