package database

import (
	"log"

	"github.com/ms-slunicko/rotation-api/internal/config"
	"github.com/ms-slunicko/rotation-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto Migrate
	err = db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Child{},
		&models.GuardianLink{},
		&models.DailySchedule{},
		&models.AttendanceStatus{},
		&models.ActivityLogEntry{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}
