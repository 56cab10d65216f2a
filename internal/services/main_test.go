package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gobear/internal/models"
	"gobear/internal/storage"
)

// newTestDB opens a fresh in-memory database with the full schema. The pool
// is pinned to one connection so every session sees the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, storage.AutoMigrateTables(db))
	return db
}

// createUser inserts a user directly, bypassing registration.
func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		PasswordHash: "x",
		Email:        username + "@example.com",
		EmailLower:   strings.ToLower(username) + "@example.com",
		Nickname:     username,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type dispatchedEvent struct {
	userID  uint
	kind    models.NotificationKind
	payload map[string]interface{}
}

// fakeDispatcher records dispatched notification events in memory.
type fakeDispatcher struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (f *fakeDispatcher) Dispatch(_ context.Context, userID uint, kind models.NotificationKind, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, dispatchedEvent{userID: userID, kind: kind, payload: payload})
	return nil
}

func (f *fakeDispatcher) kindsFor(userID uint) []models.NotificationKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kinds []models.NotificationKind
	for _, e := range f.events {
		if e.userID == userID {
			kinds = append(kinds, e.kind)
		}
	}
	return kinds
}
