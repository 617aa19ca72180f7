package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
	"github.com/shenikar/emergency_response_system/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGeographyService_SeedIsIdempotent(t *testing.T) {
	db := newMemDB()
	svc := service.NewGeographyService(fakeTx{db: db}, fakeGeography{db: db}, quietLogger())
	seed := service.GeographySeed{Municipalities: []service.MunicipalitySeed{
		{Name: "San Isidro", Code: "SI", Barangays: []string{"Alegria", "Balite", "Poblacion"}},
		{Name: "Victoria", Code: "VIC", Barangays: []string{"Acedillo", "Poblacion"}},
	}}

	for i := 0; i < 2; i++ {
		municipalities, barangays, err := svc.Seed(context.Background(), seed)
		require.NoError(t, err)
		assert.Equal(t, 2, municipalities)
		assert.Equal(t, 5, barangays)
	}
	assert.Len(t, db.municipalities, 2)
	assert.Len(t, db.barangays, 5)

	list, err := svc.ListMunicipalities(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "San Isidro", list[0].Name)

	barangays, err := svc.ListBarangays(context.Background(), list[1].ID)
	require.NoError(t, err)
	require.Len(t, barangays, 2)
	for _, b := range barangays {
		assert.Equal(t, list[1].ID, b.MunicipalityID)
	}
}

func TestGeographyService_SeedRollsBackOnInvalidEntry(t *testing.T) {
	db := newMemDB()
	svc := service.NewGeographyService(fakeTx{db: db}, fakeGeography{db: db}, quietLogger())

	_, _, err := svc.Seed(context.Background(), service.GeographySeed{Municipalities: []service.MunicipalitySeed{
		{Name: "San Isidro", Code: "SI", Barangays: []string{"Alegria"}},
		{Name: "", Code: "X"},
	}})
	requireValidation(t, err, "municipalities")
	assert.Empty(t, db.municipalities)
	assert.Empty(t, db.barangays)
}

func TestGeographyService_ListBarangaysUnknownMunicipality(t *testing.T) {
	db := newMemDB()
	svc := service.NewGeographyService(fakeTx{db: db}, fakeGeography{db: db}, quietLogger())

	_, err := svc.ListBarangays(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestGeographyService_SeedStopsOnRepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := mocks.NewMockTxManager(ctrl)
	repo := mocks.NewMockGeographyRepository(ctrl)
	svc := service.NewGeographyService(tx, repo, quietLogger())

	tx.EXPECT().WithinTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) })
	municipalityID := uuid.New()
	repo.EXPECT().UpsertMunicipality(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, municipality *models.Municipality) error {
			assert.Equal(t, "SI", municipality.Code)
			municipality.ID = municipalityID
			return nil
		})
	dbErr := errors.New("connection reset")
	repo.EXPECT().UpsertBarangay(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, barangay *models.Barangay) error {
			assert.Equal(t, municipalityID, barangay.MunicipalityID)
			return dbErr
		})

	municipalities, barangays, err := svc.Seed(context.Background(), service.GeographySeed{Municipalities: []service.MunicipalitySeed{
		{Name: "San Isidro", Code: "SI", Barangays: []string{"Alegria", "Balite"}},
	}})
	require.ErrorIs(t, err, dbErr)
	assert.Zero(t, municipalities)
	assert.Zero(t, barangays)
}
