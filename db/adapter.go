package db

import (
	"fmt"

	"github.com/kasuganosora/matchd/config"
	dbmysql "github.com/kasuganosora/matchd/db/mysql"
	dbsqlite "github.com/kasuganosora/matchd/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath, cfg.LockTimeoutS)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife, cfg.LockTimeoutS)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
