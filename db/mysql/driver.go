package mysql

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a GORM *DB backed by MySQL with a connection pool.
// lockWaitS is applied per session as innodb_lock_wait_timeout so a blocked
// FOR UPDATE fails fast instead of hanging the request.
func Open(dsn string, maxOpen, maxIdle int, maxLife time.Duration, lockWaitS int) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(withLockWait(dsn, lockWaitS)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLife)

	return db, nil
}

func withLockWait(dsn string, lockWaitS int) string {
	if lockWaitS <= 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sinnodb_lock_wait_timeout=%d", dsn, sep, lockWaitS)
}
