package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkbot/config"
	"parkbot/internal/model"
)

func TestDialector(t *testing.T) {
	assert.Equal(t, "postgres", Dialector("postgres://u:p@localhost:5432/parkbot").Name())
	assert.Equal(t, "postgres", Dialector("host=localhost user=parkbot dbname=parkbot").Name())
	assert.Equal(t, "sqlite", Dialector("parkbot.db").Name())
	assert.Equal(t, "sqlite", Dialector("file::memory:").Name())
}

func TestInit_SQLiteMemory(t *testing.T) {
	gormDB, err := Init(&config.DatabaseConfig{DSN: "file::memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	assert.True(t, gormDB.Migrator().HasTable(&model.UserLocation{}))
	assert.True(t, gormDB.Migrator().HasTable(&model.PushSubscription{}))
}
