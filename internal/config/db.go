package config

import (
	"fmt"
	"log"
	"time"

	"chatdesk-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func ConnectDB(cfg *Config) error {
	level := logger.Warn
	if cfg.SQLDebug {
		level = logger.Info
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres", "":
		dialector = postgres.Open(cfg.DBURL)
	case "sqlite":
		dsn := cfg.DBURL
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pool settings
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Printf("✅ Database connected successfully (%s)", dialector.Name())
	return nil
}

// AllModels lists every table the server owns
func AllModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Chat{},
		&models.Message{},
		&models.Setting{},
		&models.Admin{},
		&models.Session{},
		&models.ChangeLog{},
	}
}

func MigrateAllModels(db *gorm.DB, run bool) error {
	if !run {
		log.Println("skipping migration")
		return nil
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

func CloseDB() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
