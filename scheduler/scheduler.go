// Package scheduler runs the periodic maintenance jobs:
// expired-session cleanup and the daily stock-listing reload.
package scheduler

import (
	"log"
	"time"

	"stockwatch_backend/models"
	"stockwatch_backend/services/stocklist"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron   *gocron.Scheduler
	db     *gorm.DB
	stocks *stocklist.Service
}

// NewScheduler creates a new scheduler instance
func NewScheduler(db *gorm.DB, stocks *stocklist.Service) *Scheduler {
	return &Scheduler{
		cron:   gocron.NewScheduler(time.UTC),
		db:     db,
		stocks: stocks,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Purge expired sessions hourly
	s.cron.Every(1).Hour().Do(func() {
		s.cleanupExpiredSessions()
	})

	// Reload the stock listing file daily at 06:00
	s.cron.Every(1).Day().At("06:00").Do(func() {
		if err := s.stocks.Reload(); err != nil {
			log.Printf("Stock listing reload failed: %v", err)
		}
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// cleanupExpiredSessions removes sessions past their expiry
func (s *Scheduler) cleanupExpiredSessions() {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.UserSession{})
	if result.Error != nil {
		log.Printf("Session cleanup failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Removed %d expired sessions", result.RowsAffected)
	}
}
