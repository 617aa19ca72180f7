package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

const userColumns = `
	u.id,
	u.email,
	u.password_hash,
	u.full_name,
	u.role,
	u.municipality_id,
	u.barangay_id,
	u.phone_number,
	u.is_active,
	u.verification_status,
	u.verified_by,
	u.verified_at,
	u.verification_notes,
	u.created_at,
	u.updated_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) service.UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	var verification *string
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.MunicipalityID,
		&u.BarangayID,
		&u.PhoneNumber,
		&u.IsActive,
		&verification,
		&u.VerifiedBy,
		&u.VerifiedAt,
		&u.VerificationNotes,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if verification != nil {
		u.VerificationStatus = models.VerificationStatus(*verification)
	}
	return u, nil
}

// verificationValue - у сотрудников verification_status хранится как NULL
func verificationValue(s models.VerificationStatus) *string {
	if s == "" {
		return nil
	}
	v := string(s)
	return &v
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			email, password_hash, full_name, role, municipality_id, barangay_id,
			phone_number, is_active, verification_status, verified_by, verified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at;
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.MunicipalityID,
		user.BarangayID,
		user.PhoneNumber,
		user.IsActive,
		verificationValue(user.VerificationStatus),
		user.VerifiedBy,
		user.VerifiedAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with email %s: %w", user.Email, models.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1;`
	user, err := scanUser(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", mapNotFound(err, "user "+id.String()))
	}
	return user, nil
}

// GetByEmail ищет пользователя без учёта регистра
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE lower(u.email) = lower($1);`
	user, err := scanUser(conn(ctx, r.db).QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", mapNotFound(err, "user"))
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, scope access.Scope, filter models.UserFilter, page, perPage int) ([]*models.User, int, error) {
	w := &whereBuilder{}
	applyUserScope(w, scope)
	if filter.Role != nil {
		w.add("u.role = $%d", *filter.Role)
	}
	if filter.MunicipalityID != nil {
		w.add("u.municipality_id = $%d", *filter.MunicipalityID)
	}
	if filter.BarangayID != nil {
		w.add("u.barangay_id = $%d", *filter.BarangayID)
	}
	if filter.IsActive != nil {
		w.add("u.is_active = $%d", *filter.IsActive)
	}

	var total int
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM users u `+w.sql()+`;`, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	offset := (page - 1) * perPage
	query := `SELECT ` + userColumns + ` FROM users u ` + w.sql() +
		` ORDER BY u.created_at DESC, u.id LIMIT ` + w.next(perPage) + ` OFFSET ` + w.next(offset) + `;`
	users, err := r.collect(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListActiveByRole возвращает активных пользователей роли с указанной территорией.
// nil в municipalityID или barangayID означает отсутствие ограничения по этому полю.
func (r *UserRepository) ListActiveByRole(ctx context.Context, role models.Role, municipalityID, barangayID *uuid.UUID) ([]*models.User, error) {
	w := &whereBuilder{}
	w.addRaw("u.is_active")
	w.add("u.role = $%d", role)
	if municipalityID != nil {
		w.add("u.municipality_id = $%d", *municipalityID)
	}
	if barangayID != nil {
		w.add("u.barangay_id = $%d", *barangayID)
	}
	query := `SELECT ` + userColumns + ` FROM users u ` + w.sql() + ` ORDER BY u.created_at;`
	return r.collect(ctx, query, w.args...)
}

func (r *UserRepository) collect(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error users iteration: %w", err)
	}
	return users, nil
}

// UpdateVerification сохраняет решение по верификации жителя
func (r *UserRepository) UpdateVerification(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			verification_status = $1,
			verified_by = $2,
			verified_at = $3,
			verification_notes = $4,
			updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at;
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		verificationValue(user.VerificationStatus),
		user.VerifiedBy,
		user.VerifiedAt,
		user.VerificationNotes,
		user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update verification: %w", mapNotFound(err, "user "+user.ID.String()))
	}
	return nil
}
