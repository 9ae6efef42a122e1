package config

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"transfer-credit-api/models"
)

var DB *gorm.DB

func InitDB() {
	var err error

	// Get database credentials from environment variables
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbDatabase := os.Getenv("DB_DATABASE")
	dbUsername := os.Getenv("DB_USERNAME")
	dbPassword := os.Getenv("DB_PASSWORD")

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbUsername,
		dbPassword,
		dbHost,
		dbPort,
		dbDatabase,
	)

	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	debugSQL := strings.ToLower(os.Getenv("DEBUG_SQL"))

	// In production, suppress SQL logs unless explicitly re-enabled via
	// DEBUG_SQL=true.
	logLevel := logger.Info
	if environment == "production" && debugSQL != "true" {
		logLevel = logger.Warn
	}

	cfg := &gorm.Config{
		Logger: logger.New(
			stdlog.New(LogWriter, "\r\n", stdlog.LstdFlags),
			logger.Config{LogLevel: logLevel},
		),
	}

	DB, err = gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	log.Info().Str("host", dbHost).Str("database", dbDatabase).Msg("database connected")
}

// MigrateDB creates or updates the schema for every model. Parents come
// first so foreign keys resolve.
func MigrateDB() {
	err := DB.AutoMigrate(
		&models.User{},
		&models.TargetCourse{},
		&models.Submission{},
		&models.SubmissionStatusHistory{},
		&models.ExtractedCourse{},
		&models.CourseMatch{},
		&models.Evaluation{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database schema")
	}
}
