package repository

import (
	"fmt"
	"strings"

	"github.com/shenikar/emergency_response_system/internal/access"
)

// whereBuilder собирает WHERE с позиционными параметрами $n
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

// next резервирует позицию под аргумент, который добавится после условий (LIMIT, OFFSET)
func (w *whereBuilder) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// applyIncidentScope переводит access.Scope в условие над таблицей incidents с алиасом i.
// Это тот же предикат, что и Scope.Allows.
func applyIncidentScope(w *whereBuilder, s access.Scope) {
	switch s.Kind {
	case access.ScopeAll:
	case access.ScopeReporter:
		w.add("i.reporter_id = $%d", s.ID)
	case access.ScopeAssignee:
		w.add("EXISTS (SELECT 1 FROM assignments a WHERE a.incident_id = i.id AND a.responder_id = $%d AND a.status <> 'withdrawn')", s.ID)
	case access.ScopeBarangay:
		w.add("i.barangay_id = $%d", s.ID)
	case access.ScopeMunicipality:
		w.add("i.municipality_id = $%d", s.ID)
	default:
		w.addRaw("FALSE")
	}
}

// applyUserScope ограничивает административный список пользователей (алиас u)
func applyUserScope(w *whereBuilder, s access.Scope) {
	switch s.Kind {
	case access.ScopeAll:
	case access.ScopeMunicipality:
		w.add("u.municipality_id = $%d", s.ID)
	default:
		w.addRaw("FALSE")
	}
}
