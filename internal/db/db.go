package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portal/internal/config"
	"portal/internal/models"
	console "portal/internal/utils/logger"
)

var DB *gorm.DB
var log = console.New("DB")

const maxRetries = 5

func Connect(cfg *config.Config) error {
	log.Info("Connecting to database %s@%s:%d/%s...", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger:                                   logger.Default.LogMode(gormLogLevel(cfg.Log.Level)),
			DisableForeignKeyConstraintWhenMigrating: true,
			PrepareStmt:                              true,
			AllowGlobalUpdate:                        false,
			TranslateError:                           true,
		})
		if err == nil {
			log.Success("Connected to database")

			// Configure connection pool
			sqlDB, err := DB.DB()
			if err != nil {
				return log.Error("Failed to get underlying *sql.DB instance", err)
			}

			sqlDB.SetMaxOpenConns(50)
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetConnMaxLifetime(time.Hour)
			sqlDB.SetConnMaxIdleTime(time.Minute * 30)

			if err := Migrate(DB); err != nil {
				return log.Error("Failed to run migrations", err)
			}

			log.Success("Migrations completed")
			return nil
		}
		log.Warn("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Second * 5)
	}
	return log.Error("Failed to connect to database", fmt.Errorf("gave up after %d attempts: %w", maxRetries, err))
}

// Migrate creates or updates every portal table in one transaction.
func Migrate(db *gorm.DB) error {
	log.Info("Running migrations...")
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.AutoMigrate(
		// Tables without foreign keys first
		&models.Company{},
		&models.User{},

		&models.Project{},
		&models.DigitalAudit{},
		&models.AccessRequest{},
		&models.ActivityLog{},
		&models.File{},
		&models.PasswordReset{},
	); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "info", "warn", "warning":
		return logger.Warn
	case "silent", "off":
		return logger.Silent
	default:
		return logger.Error
	}
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return DB
}
