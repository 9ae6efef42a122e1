package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultRankingModel    = "claude-sonnet-4-5-20250929"
	DefaultTopNMatches     = 5
	DefaultMaxUploadSize   = 10 * 1024 * 1024
	DefaultUploadPath      = "./uploads"
	DefaultJanitorSchedule = "*/10 * * * *"
)

// App carries the settings the pipeline components need. It is built once
// in main and handed to services explicitly, so none of the core code
// reads environment variables on its own.
type App struct {
	// AnthropicAPIKey toggles real ranking. Empty means the synthetic
	// ranking client is used instead.
	AnthropicAPIKey string
	RankingModel    string
	TopNMatches     int
	UploadPath      string
	MaxUploadSize   int64
	// StaleAfter is how long a submission may sit in processing before
	// the janitor marks it failed. Zero disables the janitor.
	StaleAfter time.Duration
	// JanitorSchedule is the cron expression for the stale sweep.
	JanitorSchedule string
}

// LoadApp reads the application settings from the environment.
func LoadApp() App {
	app := App{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		RankingModel:    os.Getenv("RANKING_MODEL"),
		TopNMatches:     DefaultTopNMatches,
		UploadPath:      os.Getenv("UPLOAD_PATH"),
		MaxUploadSize:   DefaultMaxUploadSize,
	}

	if app.RankingModel == "" {
		app.RankingModel = DefaultRankingModel
	}
	if app.UploadPath == "" {
		app.UploadPath = DefaultUploadPath
	}
	if n, err := strconv.Atoi(os.Getenv("MATCH_TOP_N")); err == nil && n > 0 {
		app.TopNMatches = n
	}
	if n, err := strconv.ParseInt(os.Getenv("MAX_UPLOAD_SIZE"), 10, 64); err == nil && n > 0 {
		app.MaxUploadSize = n
	}
	if d, err := time.ParseDuration(os.Getenv("STALE_PROCESSING_AFTER")); err == nil && d > 0 {
		app.StaleAfter = d
	}
	app.JanitorSchedule = os.Getenv("JANITOR_SCHEDULE")
	if app.JanitorSchedule == "" {
		app.JanitorSchedule = DefaultJanitorSchedule
	}

	return app
}
