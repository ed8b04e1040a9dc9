package database

import (
	"errors"
	"fmt"
	"log"
	"os"

	"lms/config"
	"lms/models"
	courseModels "lms/models/course"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb opens the configured database, migrates it and seeds the reference rows
func ConnectDb() {
	cfg := config.AppConfig

	level := logger.Warn
	if cfg.DBDebug {
		level = logger.Info
	}

	db, err := Open(cfg, config.NewGormLogger(level))
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", cfg.DBDriver, err)
		os.Exit(2)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(0)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := Seed(db, config.DefaultGradeWeights()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	Database = DbInstance{Db: db}
}

// Open picks the gorm dialector from DB_DRIVER
func Open(cfg *config.Config, gormLogger logger.Interface) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: gormLogger}

	switch cfg.DBDriver {
	case "postgres", "":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		)
		return gorm.Open(postgres.Open(dsn), gormConfig)
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		)
		return gorm.Open(mysql.Open(dsn), gormConfig)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DBName), gormConfig)
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// OpenInMemory returns a migrated and seeded SQLite database living in memory.
// A single connection keeps every statement on the same in-memory database.
func OpenInMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := Seed(db, config.DefaultGradeWeights()); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	log.Println("Running Migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&courseModels.Course{},
		&courseModels.Module{},
		&courseModels.ModuleCompletion{},
		&courseModels.Lesson{},
		&courseModels.LessonCompletion{},
		&courseModels.ActivityType{},
		&courseModels.Activity{},
		&courseModels.Quiz{},
		&courseModels.Assignment{},
		&courseModels.Question{},
		&courseModels.QuestionOption{},
		&courseModels.StudentActivity{},
		&courseModels.StudentActivityProgress{},
		&courseModels.StudentAnswer{},
		&courseModels.GradeSetting{},
		&courseModels.CourseGradeSetting{},
		&courseModels.CourseEnrollment{},
		&courseModels.Document{},
		&courseModels.CourseDocument{},
		&courseModels.ModuleDocument{},
		&courseModels.LessonDocument{},
		&courseModels.ActivityDocument{},
		&courseModels.CertificateRequest{},
		&courseModels.Certificate{},
	)
	if err != nil {
		return err
	}

	log.Println("Migrations completed successfully.")
	return nil
}

// Seed inserts the activity types and the global grade weights when they are missing.
// Existing rows are never overwritten.
func Seed(db *gorm.DB, weights config.GradeWeights) error {
	for _, name := range courseModels.ActivityTypeNames {
		var activityType courseModels.ActivityType
		err := db.Where("name = ?", name).First(&activityType).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&courseModels.ActivityType{Name: name}).Error; err != nil {
			return err
		}
	}

	for scheme, values := range weights {
		var count int64
		if err := db.Model(&courseModels.GradeSetting{}).Where("scheme = ?", scheme).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		for key, weight := range values {
			row := courseModels.GradeSetting{Scheme: scheme, Key: key, Weight: weight}
			if err := db.Create(&row).Error; err != nil {
				return err
			}
		}
		log.Printf("[SEED] Global %s weights seeded", scheme)
	}
	return nil
}
