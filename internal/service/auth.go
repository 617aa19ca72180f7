package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=auth.go -destination=mocks/mock_auth.go -package=mocks

// SessionStore хранит отозванные при logout токены
type SessionStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, *Token, error)
	Login(ctx context.Context, email, password string) (*models.User, *Token, error)
	Logout(ctx context.Context, claims *TokenClaims) error
	Authenticate(ctx context.Context, token string) (access.Actor, *TokenClaims, error)
}

// RegisterInput - самостоятельная регистрация жителя
type RegisterInput struct {
	Email          string
	Password       string
	FullName       string
	MunicipalityID *uuid.UUID
	BarangayID     *uuid.UUID
	PhoneNumber    *string
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenClaims несут минимальную личность актора на случай недоступности профиля
type TokenClaims struct {
	Role               models.Role               `json:"role"`
	MunicipalityID     *uuid.UUID                `json:"mid,omitempty"`
	BarangayID         *uuid.UUID                `json:"bid,omitempty"`
	VerificationStatus models.VerificationStatus `json:"vst,omitempty"`
	jwt.RegisteredClaims
}

// Actor восстанавливает актора только по данным токена
func (c *TokenClaims) Actor() (access.Actor, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return access.Actor{}, fmt.Errorf("invalid subject: %w", models.ErrUnauthorized)
	}
	return access.Actor{
		ID:                 id,
		Role:               c.Role,
		MunicipalityID:     c.MunicipalityID,
		BarangayID:         c.BarangayID,
		VerificationStatus: c.VerificationStatus,
		IsActive:           true,
	}, nil
}

type AuthConfig struct {
	Secret         []byte
	TTL            time.Duration
	ProfileTimeout time.Duration
}

type authService struct {
	users     UserRepository
	geography GeographyRepository
	sessions  SessionStore
	cfg       AuthConfig
	logger    *logrus.Logger
	hashCost  int
	now       func() time.Time
}

func NewAuthService(users UserRepository, geography GeographyRepository, sessions SessionStore, cfg AuthConfig, logger *logrus.Logger) AuthService {
	return &authService{
		users:     users,
		geography: geography,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
		hashCost:  bcrypt.DefaultCost,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) issueToken(user *models.User) (*Token, error) {
	now := s.now()
	expires := now.Add(s.cfg.TTL)
	claims := TokenClaims{
		Role:               user.Role,
		MunicipalityID:     user.MunicipalityID,
		BarangayID:         user.BarangayID,
		VerificationStatus: user.VerificationStatus,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires}, nil
}

// Register создает жителя со статусом верификации pending и сразу выдаёт токен
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, *Token, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Register",
	})
	log.Info("Attempting to register a resident")

	municipalityID, barangayID, err := resolveTerritory(ctx, s.geography, input.MunicipalityID, input.BarangayID)
	if err != nil {
		logFailure(log, err, "Failed to resolve territory")
		return nil, nil, fmt.Errorf("service: could not register: %w", err)
	}

	user := &models.User{
		Email:              normalizeEmail(input.Email),
		FullName:           strings.TrimSpace(input.FullName),
		Role:               models.RoleResident,
		MunicipalityID:     municipalityID,
		BarangayID:         barangayID,
		PhoneNumber:        input.PhoneNumber,
		IsActive:           true,
		VerificationStatus: models.VerificationPending,
	}
	if user.PasswordHash, err = hashPassword(input.Password, s.hashCost); err != nil {
		return nil, nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		err = emailTaken(err)
		logFailure(log, err, "Failed to create user in repository")
		return nil, nil, fmt.Errorf("service: could not register: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		log.WithError(err).Error("Failed to issue token")
		return nil, nil, fmt.Errorf("service: could not register: %w", err)
	}
	log.WithField("user_id", user.ID).Info("Resident registered")
	return user, token, nil
}

// Login проверяет пароль; деактивированный пользователь получает ErrForbidden
func (s *authService) Login(ctx context.Context, email, password string) (*models.User, *Token, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Login",
	})

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Warn("Login with unknown email")
			return nil, nil, models.ErrInvalidCredentials
		}
		log.WithError(err).Error("Failed to load user")
		return nil, nil, fmt.Errorf("service: could not login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.WithField("user_id", user.ID).Warn("Login with wrong password")
		return nil, nil, models.ErrInvalidCredentials
	}
	if !user.IsActive {
		log.WithField("user_id", user.ID).Warn("Login of deactivated account")
		return nil, nil, fmt.Errorf("%w: account is deactivated", models.ErrForbidden)
	}

	token, err := s.issueToken(user)
	if err != nil {
		log.WithError(err).Error("Failed to issue token")
		return nil, nil, fmt.Errorf("service: could not login: %w", err)
	}
	log.WithField("user_id", user.ID).Info("User logged in")
	return user, token, nil
}

// Logout отзывает токен до истечения его срока
func (s *authService) Logout(ctx context.Context, claims *TokenClaims) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Logout",
		"user_id": claims.Subject,
	})

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if err := s.sessions.Revoke(ctx, claims.ID, ttl); err != nil {
		log.WithError(err).Error("Failed to revoke token")
		return fmt.Errorf("service: could not logout: %w", err)
	}
	log.Info("User logged out")
	return nil
}

func (s *authService) parse(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	return claims, nil
}

// Authenticate разбирает токен и загружает актуальный профиль.
// При сбое хранилища используется личность из токена.
func (s *authService) Authenticate(ctx context.Context, raw string) (access.Actor, *TokenClaims, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Authenticate",
	})

	claims, err := s.parse(raw)
	if err != nil {
		return access.Actor{}, nil, err
	}
	fallback, err := claims.Actor()
	if err != nil {
		return access.Actor{}, nil, err
	}
	log = log.WithField("user_id", fallback.ID)

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.WithError(err).Warn("Failed to check token revocation")
	}
	if revoked {
		return access.Actor{}, nil, fmt.Errorf("%w: token revoked", models.ErrUnauthorized)
	}

	profileCtx := ctx
	if s.cfg.ProfileTimeout > 0 {
		var cancel context.CancelFunc
		profileCtx, cancel = context.WithTimeout(ctx, s.cfg.ProfileTimeout)
		defer cancel()
	}
	user, err := s.users.GetByID(profileCtx, fallback.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return access.Actor{}, nil, fmt.Errorf("%w: user no longer exists", models.ErrUnauthorized)
		}
		log.WithError(err).Warn("Profile unavailable, using token identity")
		return fallback, claims, nil
	}
	if !user.IsActive {
		return access.Actor{}, nil, fmt.Errorf("%w: account is deactivated", models.ErrUnauthorized)
	}
	return access.ActorFromUser(user), claims, nil
}
