package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=user.go -destination=mocks/mock_user.go -package=mocks

// UserRepository определяет контракт для работы с бд пользователей
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, scope access.Scope, filter models.UserFilter, page, perPage int) ([]*models.User, int, error)
	ListActiveByRole(ctx context.Context, role models.Role, municipalityID, barangayID *uuid.UUID) ([]*models.User, error)
	UpdateVerification(ctx context.Context, user *models.User) error
}

type UserService interface {
	Me(ctx context.Context, actor access.Actor) (*models.User, error)
	CreateUser(ctx context.Context, actor access.Actor, input CreateUserInput) (*models.User, error)
	ListUsers(ctx context.Context, actor access.Actor, filter models.UserFilter, page, perPage int) ([]*models.User, int, error)
	VerifyResident(ctx context.Context, actor access.Actor, userID uuid.UUID, status models.VerificationStatus, notes *string) (*models.User, error)
}

// CreateUserInput - учётная запись, создаваемая администратором
type CreateUserInput struct {
	Email          string
	Password       string
	FullName       string
	Role           models.Role
	MunicipalityID *uuid.UUID
	BarangayID     *uuid.UUID
	PhoneNumber    *string
}

type userService struct {
	repo      UserRepository
	geography GeographyRepository
	logger    *logrus.Logger
	hashCost  int
	now       func() time.Time
}

func NewUserService(repo UserRepository, geography GeographyRepository, logger *logrus.Logger) UserService {
	return &userService{
		repo:      repo,
		geography: geography,
		logger:    logger,
		hashCost:  bcrypt.DefaultCost,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewValidationError("password", "may not be greater than 72 bytes")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// emailTaken переводит конфликт уникальности в ошибку поля email
func emailTaken(err error) error {
	if errors.Is(err, models.ErrConflict) {
		return models.NewValidationError("email", "the email has already been taken")
	}
	return err
}

func (s *userService) Me(ctx context.Context, actor access.Actor) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service": "user",
			"method":  "Me",
			"user_id": actor.ID,
		}).WithError(err).Error("Failed to load profile")
		return nil, fmt.Errorf("service: could not get user: %w", err)
	}
	return user, nil
}

// CreateUser создает учётную запись с учётом ролей, доступных создателю
func (s *userService) CreateUser(ctx context.Context, actor access.Actor, input CreateUserInput) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "CreateUser",
		"user_id": actor.ID,
		"role":    input.Role,
	})
	log.Info("Attempting to create user")

	if !input.Role.IsValid() {
		return nil, models.NewValidationError("role", "the selected role is invalid")
	}
	municipalityID, barangayID, err := resolveTerritory(ctx, s.geography, input.MunicipalityID, input.BarangayID)
	if err != nil {
		logFailure(log, err, "Failed to resolve territory")
		return nil, fmt.Errorf("service: could not create user: %w", err)
	}
	if input.Role == models.RoleMunicipalAdmin && municipalityID == nil {
		return nil, models.NewValidationError("municipality_id", "a municipal admin must belong to a municipality")
	}
	if input.Role == models.RoleBarangayOfficial && barangayID == nil {
		return nil, models.NewValidationError("barangay_id", "a barangay official must belong to a barangay")
	}

	user := &models.User{
		Email:          normalizeEmail(input.Email),
		FullName:       strings.TrimSpace(input.FullName),
		Role:           input.Role,
		MunicipalityID: municipalityID,
		BarangayID:     barangayID,
		PhoneNumber:    input.PhoneNumber,
		IsActive:       true,
	}
	if err := access.CanCreateUser(actor, user); err != nil {
		log.WithError(err).Warn("User creation rejected")
		return nil, fmt.Errorf("service: could not create user: %w", err)
	}
	// жители, заведённые администратором, сразу верифицированы
	if user.Role == models.RoleResident {
		now := s.now()
		user.VerificationStatus = models.VerificationVerified
		user.VerifiedBy = &actor.ID
		user.VerifiedAt = &now
	}

	if user.PasswordHash, err = hashPassword(input.Password, s.hashCost); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		err = emailTaken(err)
		logFailure(log, err, "Failed to create user in repository")
		return nil, fmt.Errorf("service: could not create user: %w", err)
	}

	log.WithField("new_user_id", user.ID).Info("User created successfully")
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, actor access.Actor, filter models.UserFilter, page, perPage int) ([]*models.User, int, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "ListUsers",
		"user_id": actor.ID,
	})

	scope, err := access.UserListScope(actor)
	if err != nil {
		log.WithError(err).Warn("User listing rejected")
		return nil, 0, fmt.Errorf("service: could not list users: %w", err)
	}
	if filter.Role != nil && !filter.Role.IsValid() {
		return nil, 0, models.NewValidationError("role", "the selected role is invalid")
	}

	page, perPage = NormalizePage(page, perPage, DefaultUsersPerPage)
	users, total, err := s.repo.List(ctx, *scope, filter, page, perPage)
	if err != nil {
		log.WithError(err).Error("Failed to list users")
		return nil, 0, fmt.Errorf("service: could not list users: %w", err)
	}
	return users, total, nil
}

// VerifyResident фиксирует решение по верификации жителя
func (s *userService) VerifyResident(ctx context.Context, actor access.Actor, userID uuid.UUID, status models.VerificationStatus, notes *string) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "user",
		"method":    "VerifyResident",
		"user_id":   actor.ID,
		"target_id": userID,
		"status":    status,
	})
	log.Info("Attempting to verify resident")

	if status != models.VerificationVerified && status != models.VerificationRejected {
		return nil, models.NewValidationError("status", "must be verified or rejected")
	}

	resident, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		logFailure(log, err, "Failed to load resident")
		return nil, fmt.Errorf("service: could not verify resident: %w", err)
	}
	if err := access.CanVerifyResident(actor, resident); err != nil {
		logFailure(log, err, "Verification rejected")
		return nil, fmt.Errorf("service: could not verify resident: %w", err)
	}

	now := s.now()
	resident.VerificationStatus = status
	resident.VerifiedBy = &actor.ID
	resident.VerifiedAt = &now
	resident.VerificationNotes = notes
	if err := s.repo.UpdateVerification(ctx, resident); err != nil {
		log.WithError(err).Error("Failed to save verification")
		return nil, fmt.Errorf("service: could not verify resident: %w", err)
	}

	log.Info("Resident verification saved")
	return resident, nil
}
