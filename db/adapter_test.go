package db_test

import (
	"path/filepath"
	"testing"

	"github.com/kasuganosora/matchd/config"
	"github.com/kasuganosora/matchd/db"
	"github.com/kasuganosora/matchd/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteFile(t *testing.T) {
	gdb, err := db.Open(config.DatabaseConfig{
		Mode:         db.ModeSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "matchd.db"),
		LockTimeoutS: 1,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, model.AutoMigrate(gdb))
	assert.True(t, gdb.Migrator().HasTable(&model.Interaction{}))
	assert.True(t, gdb.Migrator().HasIndex(&model.Interaction{}, "idx_interaction_pair"))
	assert.True(t, gdb.Migrator().HasIndex(&model.Channel{}, "idx_channel_pair"))
}

func TestOpen_UnknownMode(t *testing.T) {
	_, err := db.Open(config.DatabaseConfig{Mode: "postgres"})
	assert.Error(t, err)
}
