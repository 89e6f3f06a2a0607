package db

import (
	"fmt"
	"strings"

	"github.com/monocle-dev/monocle/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a postgres database, or sqlite for file: DSNs and *.db paths.
func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	if isSQLite(dsn) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	} else {
		dialector = postgres.Open(dsn)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if isSQLite(dsn) {
		// sqlite allows a single writer
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return conn, nil
}

func MigrateDatabase(conn *gorm.DB) error {
	models := []interface{}{
		&models.Monitor{},
		&models.CheckResult{},
		&models.Incident{},
		&models.NotificationChannel{},
		&models.Notification{},
	}

	if err := conn.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") ||
		strings.HasPrefix(dsn, "sqlite://") ||
		strings.HasSuffix(dsn, ".db")
}
