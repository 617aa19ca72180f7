package service_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
	"github.com/sirupsen/logrus"
)

// memDB - хранилище в памяти с семантикой репозиториев Postgres
type memDB struct {
	mu             sync.Mutex
	txMu           sync.Mutex
	users          map[uuid.UUID]models.User
	municipalities map[uuid.UUID]models.Municipality
	barangays      map[uuid.UUID]models.Barangay
	incidents      map[uuid.UUID]models.Incident
	updates        []models.IncidentUpdate
	media          []models.IncidentMedia
	assignments    []models.Assignment
	notifications  []models.Notification
	acks           map[[2]uuid.UUID]time.Time
	revoked        map[string]time.Duration
	tick           time.Time
}

func newMemDB() *memDB {
	return &memDB{
		users:          map[uuid.UUID]models.User{},
		municipalities: map[uuid.UUID]models.Municipality{},
		barangays:      map[uuid.UUID]models.Barangay{},
		incidents:      map[uuid.UUID]models.Incident{},
		acks:           map[[2]uuid.UUID]time.Time{},
		revoked:        map[string]time.Duration{},
		tick:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// stamp выдаёт строго возрастающее время created_at
func (db *memDB) stamp() time.Time {
	db.tick = db.tick.Add(time.Millisecond)
	return db.tick
}

type memSnapshot struct {
	users          map[uuid.UUID]models.User
	incidents      map[uuid.UUID]models.Incident
	updates        []models.IncidentUpdate
	media          []models.IncidentMedia
	assignments    []models.Assignment
	notifications  []models.Notification
	acks           map[[2]uuid.UUID]time.Time
	municipalities map[uuid.UUID]models.Municipality
	barangays      map[uuid.UUID]models.Barangay
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return memSnapshot{
		users:          copyMap(db.users),
		incidents:      copyMap(db.incidents),
		updates:        append([]models.IncidentUpdate(nil), db.updates...),
		media:          append([]models.IncidentMedia(nil), db.media...),
		assignments:    append([]models.Assignment(nil), db.assignments...),
		notifications:  append([]models.Notification(nil), db.notifications...),
		acks:           copyMap(db.acks),
		municipalities: copyMap(db.municipalities),
		barangays:      copyMap(db.barangays),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = s.users
	db.incidents = s.incidents
	db.updates = s.updates
	db.media = s.media
	db.assignments = s.assignments
	db.notifications = s.notifications
	db.acks = s.acks
	db.municipalities = s.municipalities
	db.barangays = s.barangays
}

// fakeTx сериализует транзакции (аналог FOR UPDATE) и откатывает состояние при ошибке
type fakeTx struct{ db *memDB }

func (t fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()
	snap := t.db.snapshot()
	if err := fn(ctx); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
}

// --- incidents ---

type fakeIncidents struct {
	db    *memDB
	cache map[uuid.UUID]models.Incident
}

func newFakeIncidents(db *memDB) *fakeIncidents {
	return &fakeIncidents{db: db, cache: map[uuid.UUID]models.Incident{}}
}

var _ service.IncidentRepository = (*fakeIncidents)(nil)

func (r *fakeIncidents) Create(_ context.Context, inc *models.Incident) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inc.ID = uuid.New()
	inc.CreatedAt = r.db.stamp()
	inc.UpdatedAt = inc.CreatedAt
	r.db.incidents[inc.ID] = *inc
	return nil
}

func (r *fakeIncidents) GetByID(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inc, ok := r.db.incidents[id]
	if !ok {
		return nil, notFound("incident", id)
	}
	return &inc, nil
}

func (r *fakeIncidents) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeIncidents) UpdateStatus(_ context.Context, inc *models.Incident) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.incidents[inc.ID]
	if !ok {
		return notFound("incident", inc.ID)
	}
	if (inc.Status == models.StatusResolved) != (inc.ResolvedAt != nil) {
		return fmt.Errorf("check constraint resolved_at_iff_resolved violated")
	}
	stored.Status = inc.Status
	stored.ResolvedAt = inc.ResolvedAt
	stored.UpdatedAt = r.db.stamp()
	inc.UpdatedAt = stored.UpdatedAt
	r.db.incidents[inc.ID] = stored
	return nil
}

func (r *fakeIncidents) assigneesLocked(id uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for _, a := range r.db.assignments {
		if a.IncidentID == id && a.Status != models.AssignmentWithdrawn {
			ids = append(ids, a.ResponderID)
		}
	}
	return ids
}

func matchesFilter(inc models.Incident, f models.IncidentFilter) bool {
	switch {
	case f.Status != nil && inc.Status != *f.Status:
		return false
	case f.Type != nil && inc.Type != *f.Type:
		return false
	case f.Urgency != nil && inc.Urgency != *f.Urgency:
		return false
	case f.MunicipalityID != nil && (inc.MunicipalityID == nil || *inc.MunicipalityID != *f.MunicipalityID):
		return false
	case f.BarangayID != nil && (inc.BarangayID == nil || *inc.BarangayID != *f.BarangayID):
		return false
	case f.DateFrom != nil && inc.CreatedAt.Before(*f.DateFrom):
		return false
	case f.DateTo != nil && !inc.CreatedAt.Before(*f.DateTo):
		return false
	}
	return true
}

func (r *fakeIncidents) List(_ context.Context, scope access.Scope, filter models.IncidentFilter, page, perPage int) ([]*models.Incident, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*models.Incident
	for _, inc := range r.db.incidents {
		if !scope.Allows(access.RefOf(&inc, r.assigneesLocked(inc.ID))) || !matchesFilter(inc, filter) {
			continue
		}
		c := inc
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	start := (page - 1) * perPage
	if start >= total {
		return []*models.Incident{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *fakeIncidents) CountByMonth(_ context.Context, scope access.Scope, since time.Time) ([]models.IncidentCount, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	type key struct {
		month   time.Time
		typ     models.IncidentType
		status  models.IncidentStatus
		urgency models.Urgency
	}
	counts := map[key]int{}
	for _, inc := range r.db.incidents {
		if inc.CreatedAt.Before(since) || !scope.Allows(access.RefOf(&inc, r.assigneesLocked(inc.ID))) {
			continue
		}
		m := time.Date(inc.CreatedAt.Year(), inc.CreatedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		counts[key{m, inc.Type, inc.Status, inc.Urgency}]++
	}
	out := make([]models.IncidentCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.IncidentCount{Month: k.month, Type: k.typ, Status: k.status, Urgency: k.urgency, Count: n})
	}
	return out, nil
}

func (r *fakeIncidents) AddUpdate(_ context.Context, u *models.IncidentUpdate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u.ID = uuid.New()
	u.CreatedAt = r.db.stamp()
	r.db.updates = append(r.db.updates, *u)
	return nil
}

func (r *fakeIncidents) ListUpdates(_ context.Context, incidentID uuid.UUID) ([]*models.IncidentUpdate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.IncidentUpdate, 0)
	for _, u := range r.db.updates {
		if u.IncidentID == incidentID {
			c := u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeIncidents) AddMedia(_ context.Context, m *models.IncidentMedia) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = r.db.stamp()
	r.db.media = append(r.db.media, *m)
	return nil
}

func (r *fakeIncidents) ListMedia(_ context.Context, incidentID uuid.UUID) ([]*models.IncidentMedia, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.IncidentMedia, 0)
	for _, m := range r.db.media {
		if m.IncidentID == incidentID {
			c := m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeIncidents) AddAssignment(_ context.Context, a *models.Assignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = r.db.stamp()
	r.db.assignments = append(r.db.assignments, *a)
	return nil
}

func (r *fakeIncidents) ListAssignments(_ context.Context, incidentID uuid.UUID) ([]*models.Assignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Assignment, 0)
	for _, a := range r.db.assignments {
		if a.IncidentID == incidentID {
			c := a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeIncidents) Acknowledge(_ context.Context, incidentID, userID uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := [2]uuid.UUID{incidentID, userID}
	if _, ok := r.db.acks[k]; !ok {
		r.db.acks[k] = at
	}
	return nil
}

func (r *fakeIncidents) IsAcknowledged(_ context.Context, incidentID, userID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.acks[[2]uuid.UUID{incidentID, userID}]
	return ok, nil
}

func (r *fakeIncidents) GetIncidentFromCache(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inc, ok := r.cache[id]
	if !ok {
		return nil, nil
	}
	return &inc, nil
}

func (r *fakeIncidents) SetIncidentCache(_ context.Context, inc *models.Incident) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if cur, ok := r.cache[inc.ID]; ok && cur.UpdatedAt.After(inc.UpdatedAt) {
		return nil
	}
	r.cache[inc.ID] = *inc
	return nil
}

func (r *fakeIncidents) InvalidateIncidentCache(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.cache, id)
	return nil
}

// --- users ---

type fakeUsers struct{ db *memDB }

var _ service.UserRepository = fakeUsers{}

func (r fakeUsers) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("user with email %s: %w", u.Email, models.ErrConflict)
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = r.db.stamp()
	u.UpdatedAt = u.CreatedAt
	r.db.users[u.ID] = *u
	return nil
}

func (r fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			c := u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user: %w", models.ErrNotFound)
}

func (r fakeUsers) List(_ context.Context, scope access.Scope, f models.UserFilter, page, perPage int) ([]*models.User, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*models.User
	for _, u := range r.db.users {
		switch scope.Kind {
		case access.ScopeAll:
		case access.ScopeMunicipality:
			if u.MunicipalityID == nil || *u.MunicipalityID != scope.ID {
				continue
			}
		default:
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		if f.MunicipalityID != nil && (u.MunicipalityID == nil || *u.MunicipalityID != *f.MunicipalityID) {
			continue
		}
		if f.BarangayID != nil && (u.BarangayID == nil || *u.BarangayID != *f.BarangayID) {
			continue
		}
		c := u
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	start := (page - 1) * perPage
	if start >= total {
		return []*models.User{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r fakeUsers) ListActiveByRole(_ context.Context, role models.Role, municipalityID, barangayID *uuid.UUID) ([]*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.User
	for _, u := range r.db.users {
		if !u.IsActive || u.Role != role {
			continue
		}
		if municipalityID != nil && (u.MunicipalityID == nil || *u.MunicipalityID != *municipalityID) {
			continue
		}
		if barangayID != nil && (u.BarangayID == nil || *u.BarangayID != *barangayID) {
			continue
		}
		c := u
		out = append(out, &c)
	}
	return out, nil
}

func (r fakeUsers) UpdateVerification(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.users[u.ID]
	if !ok {
		return notFound("user", u.ID)
	}
	stored.VerificationStatus = u.VerificationStatus
	stored.VerifiedBy = u.VerifiedBy
	stored.VerifiedAt = u.VerifiedAt
	stored.VerificationNotes = u.VerificationNotes
	r.db.users[u.ID] = stored
	return nil
}

// --- notifications ---

type fakeNotifications struct{ db *memDB }

var _ service.NotificationRepository = fakeNotifications{}

func (r fakeNotifications) CreateBatch(_ context.Context, ns []*models.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, n := range ns {
		n.ID = uuid.New()
		n.CreatedAt = r.db.stamp()
		r.db.notifications = append(r.db.notifications, *n)
	}
	return nil
}

func (r fakeNotifications) List(_ context.Context, userID uuid.UUID, unreadOnly bool, page, perPage int) ([]*models.Notification, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*models.Notification
	for i := len(r.db.notifications) - 1; i >= 0; i-- {
		n := r.db.notifications[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		all = append(all, &n)
	}
	total := len(all)
	start := (page - 1) * perPage
	if start >= total {
		return []*models.Notification{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r fakeNotifications) MarkRead(_ context.Context, id, userID uuid.UUID, at time.Time) (*models.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.notifications {
		n := &r.db.notifications[i]
		if n.ID != id || n.UserID != userID {
			continue
		}
		n.IsRead = true
		if n.ReadAt == nil {
			t := at
			n.ReadAt = &t
		}
		c := *n
		return &c, nil
	}
	return nil, notFound("notification", id)
}

func (r fakeNotifications) markWhere(match func(models.Notification) bool, at time.Time) int64 {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for i := range r.db.notifications {
		row := &r.db.notifications[i]
		if row.IsRead || !match(*row) {
			continue
		}
		t := at
		row.IsRead = true
		row.ReadAt = &t
		n++
	}
	return n
}

func (r fakeNotifications) MarkAllRead(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	return r.markWhere(func(n models.Notification) bool { return n.UserID == userID }, at), nil
}

func (r fakeNotifications) MarkIncidentRead(_ context.Context, userID, incidentID uuid.UUID, at time.Time) (int64, error) {
	return r.markWhere(func(n models.Notification) bool {
		return n.UserID == userID && n.IncidentID != nil && *n.IncidentID == incidentID
	}, at), nil
}

func (r fakeNotifications) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	count := 0
	for _, n := range r.db.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// --- geography ---

type fakeGeography struct{ db *memDB }

var _ service.GeographyRepository = fakeGeography{}

func (r fakeGeography) ListMunicipalities(_ context.Context) ([]*models.Municipality, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Municipality, 0)
	for _, m := range r.db.municipalities {
		c := m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeGeography) GetMunicipality(_ context.Context, id uuid.UUID) (*models.Municipality, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.municipalities[id]
	if !ok {
		return nil, notFound("municipality", id)
	}
	return &m, nil
}

func (r fakeGeography) ListBarangays(_ context.Context, municipalityID uuid.UUID) ([]*models.Barangay, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Barangay, 0)
	for _, b := range r.db.barangays {
		if b.MunicipalityID == municipalityID {
			c := b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeGeography) GetBarangay(_ context.Context, id uuid.UUID) (*models.Barangay, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.barangays[id]
	if !ok {
		return nil, notFound("barangay", id)
	}
	return &b, nil
}

func (r fakeGeography) UpsertMunicipality(_ context.Context, m *models.Municipality) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, existing := range r.db.municipalities {
		if existing.Code == m.Code {
			existing.Name = m.Name
			r.db.municipalities[id] = existing
			m.ID, m.CreatedAt = existing.ID, existing.CreatedAt
			return nil
		}
	}
	m.ID = uuid.New()
	m.CreatedAt = r.db.stamp()
	r.db.municipalities[m.ID] = *m
	return nil
}

func (r fakeGeography) UpsertBarangay(_ context.Context, b *models.Barangay) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.barangays {
		if existing.MunicipalityID == b.MunicipalityID && existing.Name == b.Name {
			b.ID, b.CreatedAt = existing.ID, existing.CreatedAt
			return nil
		}
	}
	b.ID = uuid.New()
	b.CreatedAt = r.db.stamp()
	r.db.barangays[b.ID] = *b
	return nil
}

// --- sessions ---

type fakeSessions struct {
	db  *memDB
	err error
}

func (s *fakeSessions) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.revoked[jti] = ttl
	return nil
}

func (s *fakeSessions) IsRevoked(_ context.Context, jti string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.revoked[jti]
	return ok, nil
}

// --- fixtures ---

func (db *memDB) addMunicipality(name, code string) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	m := models.Municipality{ID: uuid.New(), Name: name, Code: code, CreatedAt: db.stamp()}
	db.municipalities[m.ID] = m
	return m.ID
}

func (db *memDB) addBarangay(municipalityID uuid.UUID, name string) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	b := models.Barangay{ID: uuid.New(), MunicipalityID: municipalityID, Name: name, CreatedAt: db.stamp()}
	db.barangays[b.ID] = b
	return b.ID
}

func (db *memDB) addUser(u models.User) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Email == "" {
		u.Email = u.ID.String() + "@example.test"
	}
	u.CreatedAt = db.stamp()
	db.users[u.ID] = u
	return &u
}

func (db *memDB) notificationsFor(userID uuid.UUID) []models.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Notification
	for _, n := range db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (db *memDB) allNotifications() []models.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]models.Notification(nil), db.notifications...)
}

func (db *memDB) updatesOf(incidentID uuid.UUID) []models.IncidentUpdate {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.IncidentUpdate
	for _, u := range db.updates {
		if u.IncidentID == incidentID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (db *memDB) incident(id uuid.UUID) models.Incident {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.incidents[id]
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
