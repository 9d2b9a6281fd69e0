package db

import (
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/botworks/zohobridge/internal/db/models"
)

// Init opens the SQLite database and runs migrations.
func Init(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Credential{}); err != nil {
		return nil, err
	}

	log.Printf("📦 Database ready at %s", dbPath)
	return db, nil
}
