package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

type GeographyRepository struct {
	db *pgxpool.Pool
}

func NewGeographyRepository(db *pgxpool.Pool) service.GeographyRepository {
	return &GeographyRepository{db: db}
}

func (r *GeographyRepository) ListMunicipalities(ctx context.Context) ([]*models.Municipality, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, name, code, created_at FROM municipalities ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list municipalities: %w", err)
	}
	defer rows.Close()

	municipalities := make([]*models.Municipality, 0)
	for rows.Next() {
		m := &models.Municipality{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Code, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan municipality: %w", err)
		}
		municipalities = append(municipalities, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error municipalities iteration: %w", err)
	}
	return municipalities, nil
}

func (r *GeographyRepository) GetMunicipality(ctx context.Context, id uuid.UUID) (*models.Municipality, error) {
	m := &models.Municipality{}
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, name, code, created_at FROM municipalities WHERE id = $1;`, id,
	).Scan(&m.ID, &m.Name, &m.Code, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get municipality: %w", mapNotFound(err, "municipality "+id.String()))
	}
	return m, nil
}

func (r *GeographyRepository) ListBarangays(ctx context.Context, municipalityID uuid.UUID) ([]*models.Barangay, error) {
	query := `
		SELECT id, municipality_id, name, code, created_at
		FROM barangays
		WHERE municipality_id = $1
		ORDER BY name;
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, municipalityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list barangays: %w", err)
	}
	defer rows.Close()

	barangays := make([]*models.Barangay, 0)
	for rows.Next() {
		b := &models.Barangay{}
		if err := rows.Scan(&b.ID, &b.MunicipalityID, &b.Name, &b.Code, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan barangay: %w", err)
		}
		barangays = append(barangays, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error barangays iteration: %w", err)
	}
	return barangays, nil
}

func (r *GeographyRepository) GetBarangay(ctx context.Context, id uuid.UUID) (*models.Barangay, error) {
	b := &models.Barangay{}
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, municipality_id, name, code, created_at FROM barangays WHERE id = $1;`, id,
	).Scan(&b.ID, &b.MunicipalityID, &b.Name, &b.Code, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get barangay: %w", mapNotFound(err, "barangay "+id.String()))
	}
	return b, nil
}

// UpsertMunicipality добавляет муниципалитет или обновляет имя по коду
func (r *GeographyRepository) UpsertMunicipality(ctx context.Context, municipality *models.Municipality) error {
	query := `
		INSERT INTO municipalities (name, code)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at;
	`
	if err := conn(ctx, r.db).QueryRow(ctx, query, municipality.Name, municipality.Code).Scan(&municipality.ID, &municipality.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert municipality %s: %w", municipality.Code, err)
	}
	return nil
}

// UpsertBarangay идемпотентен по паре (municipality_id, name)
func (r *GeographyRepository) UpsertBarangay(ctx context.Context, b *models.Barangay) error {
	query := `
		INSERT INTO barangays (municipality_id, name, code)
		VALUES ($1, $2, $3)
		ON CONFLICT (municipality_id, name) DO UPDATE SET code = EXCLUDED.code
		RETURNING id, created_at;
	`
	if err := conn(ctx, r.db).QueryRow(ctx, query, b.MunicipalityID, b.Name, b.Code).Scan(&b.ID, &b.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert barangay %s: %w", b.Name, err)
	}
	return nil
}
