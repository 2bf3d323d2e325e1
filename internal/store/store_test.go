package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parkbot/internal/model"
)

// newSQLiteDB opens a private in-memory database with the schema applied.
func newSQLiteDB(t *testing.T) *gorm.DB {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.AutoMigrate(&model.UserLocation{}, &model.PushSubscription{}))
	return gormDB
}

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_LocationRoundTrip(t *testing.T) {
	ctx := context.Background()
	gormDB := newSQLiteDB(t)
	s := NewGormStore(gormDB)

	_, err := s.GetLocation(ctx, "U1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.PutLocation(ctx, &model.UserLocation{UserID: "U1", OriginLat: 1, OriginLng: 2, DestLat: 3, DestLng: 4}))
	require.NoError(t, s.PutLocation(ctx, &model.UserLocation{UserID: "U1", OriginLat: 5, OriginLng: 6, DestLat: 7, DestLng: 8}))

	loc, err := s.GetLocation(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, loc.OriginLat)
	assert.Equal(t, 8.0, loc.DestLng)

	var count int64
	gormDB.Model(&model.UserLocation{}).Count(&count)
	assert.Equal(t, int64(1), count)

	require.NoError(t, s.DeleteLocation(ctx, "U1"))
	assert.True(t, errors.Is(s.DeleteLocation(ctx, "U1"), ErrNotFound))
}

func TestGormStore_Subscriptions(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newSQLiteDB(t))

	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/a", UserID: "U1", P256DH: "k1", Auth: "a1"}))
	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/b", UserID: "U1", P256DH: "k2", Auth: "a2"}))
	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/c", UserID: "U2", P256DH: "k3", Auth: "a3"}))

	// Re-registering an endpoint moves it to the new user.
	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/b", UserID: "U2", P256DH: "k4", Auth: "a4"}))

	subs, err := s.SubscriptionsForUser(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push/a", subs[0].Endpoint)

	sub, err := s.GetSubscription(ctx, "https://push/b")
	require.NoError(t, err)
	assert.Equal(t, "U2", sub.UserID)
	assert.Equal(t, "k4", sub.P256DH)

	require.NoError(t, s.DeleteSubscription(ctx, "https://push/b"))
	_, err = s.GetSubscription(ctx, "https://push/b")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGormStore_GetLocationDatabaseError(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "user_locations"`).
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetLocation(context.Background(), "U1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
