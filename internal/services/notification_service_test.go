package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gobear/internal/models"
	"gobear/internal/storage"
)

// fakePusher records pushed payloads per user.
type fakePusher struct {
	mu     sync.Mutex
	pushed map[uint][][]byte
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushed: make(map[uint][][]byte)}
}

func (f *fakePusher) Push(userID uint, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed[userID] = append(f.pushed[userID], data)
}

func TestProcessNotificationEvent(t *testing.T) {
	db := newTestDB(t)
	pusher := newFakePusher()
	repo := storage.NewGormNotificationRepository(db)
	service := NewNotificationService(repo, pusher)
	ctx := context.Background()

	event := NotificationEvent{
		UserID:    7,
		Kind:      models.NotificationFriendRequest,
		Payload:   map[string]interface{}{"requestId": 3},
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, service.ProcessNotificationEvent(ctx, []byte("7"), data))

	// Persisted for later listing.
	notifications, err := service.ListNotifications(ctx, 7, 0, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, models.NotificationFriendRequest, notifications[0].Kind)
	require.False(t, notifications[0].Read)
	require.Contains(t, notifications[0].Payload, "requestId")

	// Pushed to the connected client.
	require.Len(t, pusher.pushed[7], 1)
}

func TestProcessNotificationEventDropsMalformed(t *testing.T) {
	db := newTestDB(t)
	service := NewNotificationService(storage.NewGormNotificationRepository(db), nil)
	ctx := context.Background()

	// Poison messages are dropped, not retried forever.
	require.NoError(t, service.ProcessNotificationEvent(ctx, []byte("k"), []byte("{not json")))
	require.NoError(t, service.ProcessNotificationEvent(ctx, []byte("k"), []byte(`{"userId":0,"kind":""}`)))

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	service := NewNotificationService(storage.NewGormNotificationRepository(db), nil)
	ctx := context.Background()

	notification := &models.Notification{UserID: 1, Kind: models.NotificationTeamInvite}
	require.NoError(t, db.Create(notification).Error)

	// Someone else's mark attempt leaves the row untouched.
	require.NoError(t, service.MarkRead(ctx, 2, notification.ID))
	var got models.Notification
	require.NoError(t, db.First(&got, notification.ID).Error)
	require.False(t, got.Read)

	require.NoError(t, service.MarkRead(ctx, 1, notification.ID))
	require.NoError(t, db.First(&got, notification.ID).Error)
	require.True(t, got.Read)

	// Marking again stays a no-op.
	require.NoError(t, service.MarkRead(ctx, 1, notification.ID))
}
