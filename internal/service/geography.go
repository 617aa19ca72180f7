package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=geography.go -destination=mocks/mock_geography.go -package=mocks

// GeographyRepository определяет контракт для справочников муниципалитетов и барангаев
type GeographyRepository interface {
	ListMunicipalities(ctx context.Context) ([]*models.Municipality, error)
	GetMunicipality(ctx context.Context, id uuid.UUID) (*models.Municipality, error)
	ListBarangays(ctx context.Context, municipalityID uuid.UUID) ([]*models.Barangay, error)
	GetBarangay(ctx context.Context, id uuid.UUID) (*models.Barangay, error)
	UpsertMunicipality(ctx context.Context, municipality *models.Municipality) error
	UpsertBarangay(ctx context.Context, barangay *models.Barangay) error
}

type GeographyService interface {
	ListMunicipalities(ctx context.Context) ([]*models.Municipality, error)
	ListBarangays(ctx context.Context, municipalityID uuid.UUID) ([]*models.Barangay, error)
	Seed(ctx context.Context, seed GeographySeed) (int, int, error)
}

// GeographySeed - исходные данные для начального заполнения справочников
type GeographySeed struct {
	Municipalities []MunicipalitySeed `yaml:"municipalities"`
}

type MunicipalitySeed struct {
	Name      string   `yaml:"name"`
	Code      string   `yaml:"code"`
	Barangays []string `yaml:"barangays"`
}

type geographyService struct {
	tx     TxManager
	repo   GeographyRepository
	logger *logrus.Logger
}

func NewGeographyService(tx TxManager, repo GeographyRepository, logger *logrus.Logger) GeographyService {
	return &geographyService{
		tx:     tx,
		repo:   repo,
		logger: logger,
	}
}

func (s *geographyService) ListMunicipalities(ctx context.Context) ([]*models.Municipality, error) {
	municipalities, err := s.repo.ListMunicipalities(ctx)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service": "geography",
			"method":  "ListMunicipalities",
		}).WithError(err).Error("Failed to list municipalities")
		return nil, fmt.Errorf("service: could not list municipalities: %w", err)
	}
	return municipalities, nil
}

// ListBarangays возвращает 404, если муниципалитета нет
func (s *geographyService) ListBarangays(ctx context.Context, municipalityID uuid.UUID) ([]*models.Barangay, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":         "geography",
		"method":          "ListBarangays",
		"municipality_id": municipalityID,
	})
	if _, err := s.repo.GetMunicipality(ctx, municipalityID); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.WithError(err).Error("Failed to get municipality")
		}
		return nil, fmt.Errorf("service: could not get municipality: %w", err)
	}
	barangays, err := s.repo.ListBarangays(ctx, municipalityID)
	if err != nil {
		log.WithError(err).Error("Failed to list barangays")
		return nil, fmt.Errorf("service: could not list barangays: %w", err)
	}
	return barangays, nil
}

// Seed идемпотентно загружает справочник; возвращает число муниципалитетов и барангаев
func (s *geographyService) Seed(ctx context.Context, seed GeographySeed) (int, int, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "geography",
		"method":  "Seed",
	})

	var municipalities, barangays int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, ms := range seed.Municipalities {
			if ms.Name == "" || ms.Code == "" {
				return models.NewValidationError("municipalities", "name and code are required")
			}
			m := &models.Municipality{Name: ms.Name, Code: ms.Code}
			if err := s.repo.UpsertMunicipality(ctx, m); err != nil {
				return err
			}
			municipalities++
			for _, name := range ms.Barangays {
				b := &models.Barangay{MunicipalityID: m.ID, Name: name}
				if err := s.repo.UpsertBarangay(ctx, b); err != nil {
					return err
				}
				barangays++
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to seed geography")
		return 0, 0, fmt.Errorf("service: could not seed geography: %w", err)
	}

	log.WithFields(logrus.Fields{
		"municipalities": municipalities,
		"barangays":      barangays,
	}).Info("Geography seeded")
	return municipalities, barangays, nil
}

// resolveTerritory проверяет пару муниципалитет/барангай и выводит муниципалитет из барангая.
// Неизвестные или несогласованные идентификаторы - ошибка валидации.
func resolveTerritory(ctx context.Context, repo GeographyRepository, municipalityID, barangayID *uuid.UUID) (*uuid.UUID, *uuid.UUID, error) {
	if barangayID != nil {
		b, err := repo.GetBarangay(ctx, *barangayID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, nil, models.NewValidationError("barangay_id", "the selected barangay is invalid")
			}
			return nil, nil, err
		}
		if municipalityID != nil && *municipalityID != b.MunicipalityID {
			return nil, nil, models.NewValidationError("barangay_id", "barangay does not belong to the selected municipality")
		}
		mid := b.MunicipalityID
		bid := b.ID
		return &mid, &bid, nil
	}
	if municipalityID != nil {
		if _, err := repo.GetMunicipality(ctx, *municipalityID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, nil, models.NewValidationError("municipality_id", "the selected municipality is invalid")
			}
			return nil, nil, err
		}
	}
	return municipalityID, nil, nil
}
