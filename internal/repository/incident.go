package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

const incidentColumns = `
	i.id,
	i.reporter_id,
	i.incident_type,
	i.title,
	i.description,
	i.location_address,
	i.latitude,
	i.longitude,
	i.barangay_id,
	i.municipality_id,
	i.urgency_level,
	i.status,
	i.contact_number,
	i.resolved_at,
	i.created_at,
	i.updated_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.ReporterID,
		&incident.Type,
		&incident.Title,
		&incident.Description,
		&incident.LocationAddress,
		&incident.Latitude,
		&incident.Longitude,
		&incident.BarangayID,
		&incident.MunicipalityID,
		&incident.Urgency,
		&incident.Status,
		&incident.ContactNumber,
		&incident.ResolvedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (
			reporter_id, incident_type, title, description, location_address,
			latitude, longitude, barangay_id, municipality_id, urgency_level,
			status, contact_number, resolved_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at;
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		incident.ReporterID,
		incident.Type,
		incident.Title,
		incident.Description,
		incident.LocationAddress,
		incident.Latitude,
		incident.Longitude,
		incident.BarangayID,
		incident.MunicipalityID,
		incident.Urgency,
		incident.Status,
		incident.ContactNumber,
		incident.ResolvedAt,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents i WHERE i.id = $1;`
	incident, err := scanIncident(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get incident by id: %w", mapNotFound(err, "incident "+id.String()))
	}
	return incident, nil
}

// GetForUpdate читает инцидент с блокировкой строки до конца транзакции
func (r *IncidentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents i WHERE i.id = $1 FOR UPDATE;`
	incident, err := scanIncident(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock incident: %w", mapNotFound(err, "incident "+id.String()))
	}
	return incident, nil
}

// UpdateStatus сохраняет status и resolved_at
func (r *IncidentRepository) UpdateStatus(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			status = $1,
			resolved_at = $2,
			updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
		WHERE id = $3
		RETURNING updated_at;
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		incident.Status,
		incident.ResolvedAt,
		incident.ID,
	).Scan(&incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update incident status: %w", mapNotFound(err, "incident "+incident.ID.String()))
	}
	return nil
}

func applyIncidentFilter(w *whereBuilder, f models.IncidentFilter) {
	if f.Status != nil {
		w.add("i.status = $%d", *f.Status)
	}
	if f.Type != nil {
		w.add("i.incident_type = $%d", *f.Type)
	}
	if f.MunicipalityID != nil {
		w.add("i.municipality_id = $%d", *f.MunicipalityID)
	}
	if f.BarangayID != nil {
		w.add("i.barangay_id = $%d", *f.BarangayID)
	}
	if f.Urgency != nil {
		w.add("i.urgency_level = $%d", *f.Urgency)
	}
	if f.DateFrom != nil {
		w.add("i.created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("i.created_at < $%d", *f.DateTo)
	}
}

// List возвращает страницу инцидентов в области видимости и общее число подходящих строк
func (r *IncidentRepository) List(ctx context.Context, scope access.Scope, filter models.IncidentFilter, page, perPage int) ([]*models.Incident, int, error) {
	w := &whereBuilder{}
	applyIncidentScope(w, scope)
	applyIncidentFilter(w, filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM incidents i ` + w.sql() + `;`
	if err := conn(ctx, r.db).QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count incidents: %w", err)
	}

	// рассчитываем смещение
	offset := (page - 1) * perPage
	query := `SELECT ` + incidentColumns + ` FROM incidents i ` + w.sql() +
		` ORDER BY i.created_at DESC, i.id LIMIT ` + w.next(perPage) + ` OFFSET ` + w.next(offset) + `;`

	rows, err := conn(ctx, r.db).Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, total, nil
}

// CountByMonth агрегирует инциденты по месяцу, типу, статусу и срочности начиная с since
func (r *IncidentRepository) CountByMonth(ctx context.Context, scope access.Scope, since time.Time) ([]models.IncidentCount, error) {
	w := &whereBuilder{}
	applyIncidentScope(w, scope)
	w.add("i.created_at >= $%d", since)

	query := `
		SELECT date_trunc('month', i.created_at) AS month, i.incident_type, i.status, i.urgency_level, COUNT(*)
		FROM incidents i ` + w.sql() + `
		GROUP BY 1, 2, 3, 4
		ORDER BY 1;
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate incidents: %w", err)
	}
	defer rows.Close()

	counts := make([]models.IncidentCount, 0)
	for rows.Next() {
		var c models.IncidentCount
		if err := rows.Scan(&c.Month, &c.Type, &c.Status, &c.Urgency, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error aggregate iteration: %w", err)
	}
	return counts, nil
}

// AddUpdate дописывает запись в журнал инцидента
func (r *IncidentRepository) AddUpdate(ctx context.Context, update *models.IncidentUpdate) error {
	query := `
		INSERT INTO incident_updates (incident_id, updated_by, kind, update_message, previous_status, new_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at;
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		update.IncidentID,
		update.UpdatedBy,
		update.Kind,
		update.Message,
		update.PreviousStatus,
		update.NewStatus,
	).Scan(&update.ID, &update.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append incident update: %w", err)
	}
	return nil
}

func (r *IncidentRepository) ListUpdates(ctx context.Context, incidentID uuid.UUID) ([]*models.IncidentUpdate, error) {
	query := `
		SELECT id, incident_id, updated_by, kind, update_message, previous_status, new_status, created_at
		FROM incident_updates
		WHERE incident_id = $1
		ORDER BY created_at, id;
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incident updates: %w", err)
	}
	defer rows.Close()

	updates := make([]*models.IncidentUpdate, 0)
	for rows.Next() {
		u := &models.IncidentUpdate{}
		var prev, next *string
		if err := rows.Scan(&u.ID, &u.IncidentID, &u.UpdatedBy, &u.Kind, &u.Message, &prev, &next, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident update: %w", err)
		}
		if prev != nil {
			u.PreviousStatus = models.StatusPtr(models.IncidentStatus(*prev))
		}
		if next != nil {
			u.NewStatus = models.StatusPtr(models.IncidentStatus(*next))
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error updates iteration: %w", err)
	}
	return updates, nil
}

func (r *IncidentRepository) AddMedia(ctx context.Context, media *models.IncidentMedia) error {
	query := `
		INSERT INTO incident_media (incident_id, file_path, file_name, file_type, file_size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at;
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		media.IncidentID,
		media.FilePath,
		media.FileName,
		media.FileType,
		media.FileSize,
		media.MimeType,
	).Scan(&media.ID, &media.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save incident media: %w", err)
	}
	return nil
}

func (r *IncidentRepository) ListMedia(ctx context.Context, incidentID uuid.UUID) ([]*models.IncidentMedia, error) {
	query := `
		SELECT id, incident_id, file_path, file_name, file_type, file_size, mime_type, created_at
		FROM incident_media
		WHERE incident_id = $1
		ORDER BY created_at;
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incident media: %w", err)
	}
	defer rows.Close()

	media := make([]*models.IncidentMedia, 0)
	for rows.Next() {
		m := &models.IncidentMedia{}
		if err := rows.Scan(&m.ID, &m.IncidentID, &m.FilePath, &m.FileName, &m.FileType, &m.FileSize, &m.MimeType, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident media: %w", err)
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error media iteration: %w", err)
	}
	return media, nil
}

func (r *IncidentRepository) AddAssignment(ctx context.Context, assignment *models.Assignment) error {
	query := `
		INSERT INTO assignments (incident_id, responder_id, assigned_by, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at;
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		assignment.IncidentID,
		assignment.ResponderID,
		assignment.AssignedBy,
		assignment.Status,
		assignment.Notes,
	).Scan(&assignment.ID, &assignment.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to create assignment: %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *IncidentRepository) ListAssignments(ctx context.Context, incidentID uuid.UUID) ([]*models.Assignment, error) {
	query := `
		SELECT id, incident_id, responder_id, assigned_by, status, notes, created_at
		FROM assignments
		WHERE incident_id = $1
		ORDER BY created_at;
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]*models.Assignment, 0)
	for rows.Next() {
		a := &models.Assignment{}
		if err := rows.Scan(&a.ID, &a.IncidentID, &a.ResponderID, &a.AssignedBy, &a.Status, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error assignments iteration: %w", err)
	}
	return assignments, nil
}

// Acknowledge отмечает, что пользователь просмотрел инцидент; повторный вызов не меняет время
func (r *IncidentRepository) Acknowledge(ctx context.Context, incidentID, userID uuid.UUID, at time.Time) error {
	query := `
		INSERT INTO incident_acknowledgements (incident_id, user_id, acknowledged_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (incident_id, user_id) DO NOTHING;
	`
	if _, err := conn(ctx, r.db).Exec(ctx, query, incidentID, userID, at); err != nil {
		return fmt.Errorf("failed to acknowledge incident: %w", err)
	}
	return nil
}

func (r *IncidentRepository) IsAcknowledged(ctx context.Context, incidentID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM incident_acknowledgements WHERE incident_id = $1 AND user_id = $2);`
	var ok bool
	if err := conn(ctx, r.db).QueryRow(ctx, query, incidentID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check acknowledgement: %w", err)
	}
	return ok, nil
}

// setIncidentIfNewer пишет версию инцидента (updated_at в микросекундах) и JSON в хэш,
// если в кэше нет более новой версии. ARGV: версия, данные, TTL в миллисекундах.
var setIncidentIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

func incidentCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id.String())
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	val, err := r.redisClient.HGet(ctx, incidentCacheKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis. Запись с более старым updated_at, чем уже лежащая в кэше, пропускается.
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	args := []any{incident.UpdatedAt.UnixMicro(), val, r.cacheTTL.Milliseconds()}
	if err := setIncidentIfNewer.Run(ctx, r.redisClient, []string{incidentCacheKey(incident.ID)}, args...).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	if err := r.redisClient.Del(ctx, incidentCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
