package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kasuganosora/matchd/cache"
	"github.com/kasuganosora/matchd/config"
	dbadapter "github.com/kasuganosora/matchd/db"
	"github.com/kasuganosora/matchd/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an isolated in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestPubSub creates an in-process PubSub (no Redis required).
func SetupTestPubSub(t *testing.T) cache.PubSub {
	t.Helper()
	ps, err := cache.NewPubSub(cache.Config{}) // empty RedisAddr → local bus
	require.NoError(t, err, "SetupTestPubSub: NewPubSub")
	return ps
}

// CreateAccount inserts an active account of the given kind with a unique
// username.
func CreateAccount(t *testing.T, db *gorm.DB, kind string) *model.Account {
	t.Helper()
	acc := &model.Account{
		Username: kind + "_" + uuid.NewString()[:8],
		Kind:     kind,
		Active:   true,
		Status:   model.StatusNormal,
	}
	require.NoError(t, db.Create(acc).Error, "CreateAccount")
	return acc
}

// ReloadAccount re-reads an account, counters included.
func ReloadAccount(t *testing.T, db *gorm.DB, id int64) *model.Account {
	t.Helper()
	var acc model.Account
	require.NoError(t, db.First(&acc, id).Error, "ReloadAccount")
	return &acc
}
