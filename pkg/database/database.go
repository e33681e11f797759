package database

import (
	"examhub_backend/internal/config"
	"examhub_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// duplicate keys surface as gorm.ErrDuplicatedKey for CreateOrFetchSubmission
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")
	return db, nil
}

// Migrate creates or updates the exam tables, including the
// (exam_id, student_id, attempt) unique index on submissions.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Exam{},
		&model.Question{},
		&model.Submission{},
	); err != nil {
		return err
	}
	log.Println("Database migration completed")
	return nil
}
