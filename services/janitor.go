package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
)

// Janitor fails submissions stuck in processing, typically after a crash
// mid-pipeline left no goroutine behind to finish them.
type Janitor struct {
	db         *gorm.DB
	staleAfter time.Duration
}

func NewJanitor(db *gorm.DB, staleAfter time.Duration) *Janitor {
	if db == nil {
		db = config.DB
	}
	return &Janitor{db: db, staleAfter: staleAfter}
}

// Start runs SweepStale on the given cron schedule (standard 5-field
// expression) in a background goroutine. A zero stale threshold or a bad
// schedule disables the janitor.
func (j *Janitor) Start(schedule string) {
	if j.staleAfter <= 0 {
		log.Info().Msg("stale submission janitor disabled (STALE_PROCESSING_AFTER not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Error().Err(err).Str("schedule", schedule).Msg("invalid janitor schedule, janitor disabled")
		return
	}

	log.Info().Str("schedule", schedule).Dur("stale_after", j.staleAfter).Msg("stale submission janitor scheduled")

	go func() {
		for {
			now := time.Now()
			time.Sleep(sched.Next(now).Sub(now))
			j.SweepStale()
		}
	}()
}

// SweepStale marks every submission that has sat in processing beyond
// the configured age as failed and reports how many it touched.
func (j *Janitor) SweepStale() int {
	if j.staleAfter <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-j.staleAfter)

	var stuck []models.Submission
	if err := j.db.Where("status = ? AND update_at < ?", models.StatusProcessing, cutoff).
		Find(&stuck).Error; err != nil {
		log.Error().Err(err).Msg("stale submission sweep failed")
		return 0
	}

	failed := 0
	for i := range stuck {
		if err := MarkFailed(j.db, &stuck[i], "processing timed out"); err != nil {
			log.Error().Err(err).Int("submission_id", stuck[i].SubmissionID).Msg("cannot fail stale submission")
			continue
		}
		failed++
	}
	if failed > 0 {
		log.Warn().Int("count", failed).Dur("stale_after", j.staleAfter).Msg("failed stale submissions")
	}
	return failed
}
