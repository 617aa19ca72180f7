package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
	"github.com/shenikar/emergency_response_system/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestNotificationService(t *testing.T) (service.NotificationService, *memDB, access.Actor, access.Actor) {
	t.Helper()
	db := newMemDB()
	svc := service.NewNotificationService(fakeNotifications{db: db}, quietLogger())

	owner := access.Actor{ID: uuid.New(), Role: models.RoleMDRRMO, IsActive: true}
	stranger := access.Actor{ID: uuid.New(), Role: models.RoleMDRRMO, IsActive: true}
	return svc, db, owner, stranger
}

func seedNotifications(t *testing.T, db *memDB, userID, incidentID uuid.UUID, n int) []*models.Notification {
	t.Helper()
	batch := make([]*models.Notification, 0, n)
	for i := 0; i < n; i++ {
		id := incidentID
		batch = append(batch, &models.Notification{
			UserID:     userID,
			IncidentID: &id,
			Type:       models.NotificationNewIncident,
			Priority:   models.PriorityNormal,
			Title:      "New Incident Reported",
			Message:    "New fire incident reported",
		})
	}
	require.NoError(t, fakeNotifications{db: db}.CreateBatch(context.Background(), batch))
	return batch
}

func TestNotificationService_MarkReadIsIdempotent(t *testing.T) {
	svc, db, owner, _ := newTestNotificationService(t)
	ctx := context.Background()
	n := seedNotifications(t, db, owner.ID, uuid.New(), 1)[0]

	first := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	service.SetClock(svc, func() time.Time { return first })
	got, err := svc.MarkRead(ctx, owner, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)
	assert.Equal(t, first, *got.ReadAt)

	service.SetClock(svc, func() time.Time { return first.Add(time.Hour) })
	again, err := svc.MarkRead(ctx, owner, n.ID)
	require.NoError(t, err)
	assert.True(t, again.IsRead)
	assert.Equal(t, first, *again.ReadAt)
}

func TestNotificationService_ForeignNotificationIsNotFound(t *testing.T) {
	svc, db, owner, stranger := newTestNotificationService(t)
	n := seedNotifications(t, db, owner.ID, uuid.New(), 1)[0]

	_, err := svc.MarkRead(context.Background(), stranger, n.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.False(t, db.notificationsFor(owner.ID)[0].IsRead)

	items, total, err := svc.List(context.Background(), stranger, false, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestNotificationService_ListUnreadAndCounts(t *testing.T) {
	svc, db, owner, stranger := newTestNotificationService(t)
	ctx := context.Background()
	incidentA, incidentB := uuid.New(), uuid.New()
	seedNotifications(t, db, owner.ID, incidentA, 3)
	seedNotifications(t, db, owner.ID, incidentB, 2)
	seedNotifications(t, db, stranger.ID, incidentA, 4)

	count, err := svc.UnreadCount(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	updated, err := svc.MarkIncidentRead(ctx, owner, incidentA)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	unread, total, err := svc.List(ctx, owner, true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, n := range unread {
		assert.Equal(t, incidentB, *n.IncidentID)
	}

	updated, err = svc.MarkAllRead(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	updated, err = svc.MarkAllRead(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, updated)

	count, err = svc.UnreadCount(ctx, stranger)
	require.NoError(t, err)
	assert.Equal(t, 4, count, "other user's notifications must stay unread")
}

func TestNotificationService_ListPaging(t *testing.T) {
	svc, db, owner, _ := newTestNotificationService(t)
	seedNotifications(t, db, owner.ID, uuid.New(), 25)

	items, total, err := svc.List(context.Background(), owner, false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, items, 20)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt), "newest first")

	items, _, err = svc.List(context.Background(), owner, false, 2, 20)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestNotificationService_RepositoryErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockNotificationRepository(ctrl)
	svc := service.NewNotificationService(repo, quietLogger())
	actor := access.Actor{ID: uuid.New(), Role: models.RoleResident}
	dbErr := errors.New("connection refused")

	repo.EXPECT().List(gomock.Any(), actor.ID, false, 1, 100).Return(nil, 0, dbErr)
	repo.EXPECT().UnreadCount(gomock.Any(), actor.ID).Return(0, dbErr)

	_, _, err := svc.List(context.Background(), actor, false, 1, 500)
	assert.ErrorIs(t, err, dbErr)

	_, err = svc.UnreadCount(context.Background(), actor)
	assert.ErrorIs(t, err, dbErr)
}
