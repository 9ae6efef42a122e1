package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogWriter is a plain writer shared with the SQL logger so database
// statements land in the same file as application logs.
var LogWriter io.Writer = os.Stdout

// LogFilePath returns the path to the backend log file.
func LogFilePath() string {
	return filepath.Join("logs", "transfer-api.log")
}

// InitLogging configures the global zerolog logger: console output in
// development, bare JSON in production, both mirrored to the log file.
// The returned file is nil when it could not be opened.
func InitLogging() *os.File {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stdout
	if strings.ToLower(os.Getenv("ENVIRONMENT")) != "production" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if err := os.MkdirAll(filepath.Dir(LogFilePath()), os.ModePerm); err != nil {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		log.Warn().Err(err).Msg("failed to create logs directory")
		return nil
	}

	logFile, err := os.OpenFile(LogFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		log.Warn().Err(err).Msg("failed to open log file")
		return nil
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, logFile)).With().Timestamp().Logger()
	return logFile
}
