// internal/cron/cron.go
package cron

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kor4soft/teamsync/internal/server/tablestore"
	"github.com/robfig/cron/v3"
)

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron  *cron.Cron
	pool  *pgxpool.Pool
	store *tablestore.Store

	mu       sync.Mutex
	reminded map[string]bool // meeting ids already reminded
}

// NewScheduler creates a new scheduler
func NewScheduler(pool *pgxpool.Pool, store *tablestore.Store) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		pool:     pool,
		store:    store,
		reminded: make(map[string]bool),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Run every 10 minutes - meeting reminders
	s.cron.AddFunc("*/10 * * * *", func() {
		log.Println("[Cron] Running meeting reminder check...")
		s.checkUpcomingMeetings()
	})

	// Clean up old notifications - Run every Sunday at midnight
	s.cron.AddFunc("0 0 * * 0", func() {
		log.Println("[Cron] Running notification cleanup...")
		s.cleanupOldNotifications()
	})

	// Auto-complete expired sprints - Run every hour
	s.cron.AddFunc("0 * * * *", func() {
		log.Println("[Cron] Running auto-complete expired sprints...")
		s.autoCompleteExpiredSprints()
	})

	s.cron.Start()
	log.Println("[Cron] Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

// checkUpcomingMeetings notifies participants of meetings starting within
// the hour, once per meeting.
func (s *Scheduler) checkUpcomingMeetings() {
	ctx := context.Background()

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, starts_at, participants FROM meetings
		 WHERE starts_at > NOW() AND starts_at <= NOW() + INTERVAL '1 hour'`)
	if err != nil {
		log.Printf("[Cron] Error finding upcoming meetings: %v", err)
		return
	}
	defer rows.Close()

	type upcoming struct {
		id           string
		title        string
		startsAt     time.Time
		participants []string
	}
	var meetings []upcoming
	for rows.Next() {
		var m upcoming
		if err := rows.Scan(&m.id, &m.title, &m.startsAt, &m.participants); err != nil {
			log.Printf("[Cron] Error scanning meeting: %v", err)
			return
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[Cron] Error reading meetings: %v", err)
		return
	}

	for _, m := range meetings {
		s.mu.Lock()
		seen := s.reminded[m.id]
		s.reminded[m.id] = true
		s.mu.Unlock()
		if seen {
			continue
		}

		minutes := int(time.Until(m.startsAt).Minutes())
		for _, userID := range m.participants {
			if userID == "" {
				continue
			}
			_, err := s.store.Insert(ctx, "notifications", tablestore.Row{
				"user_id": userID,
				"type":    "mention",
				"title":   "Meeting starting soon",
				"message": fmt.Sprintf("'%s' starts in %d minutes", m.title, minutes),
				"read":    false,
			})
			if err != nil {
				log.Printf("[Cron] Error sending meeting reminder to %s: %v", userID, err)
			}
		}
		log.Printf("[Cron] Sent reminders for meeting %s (starts in %d minutes)", m.id, minutes)
	}
}

// cleanupOldNotifications removes read notifications older than 30 days.
func (s *Scheduler) cleanupOldNotifications() {
	ctx := context.Background()

	tag, err := s.pool.Exec(ctx,
		"DELETE FROM notifications WHERE read = TRUE AND created_at < NOW() - INTERVAL '30 days'")
	if err != nil {
		log.Printf("[Cron] Error cleaning up notifications: %v", err)
		return
	}
	log.Printf("[Cron] Removed %d old notifications", tag.RowsAffected())
}

// autoCompleteExpiredSprints completes active sprints past their end date.
func (s *Scheduler) autoCompleteExpiredSprints() {
	ctx := context.Background()

	tag, err := s.pool.Exec(ctx,
		"UPDATE sprints SET status = 'completed' WHERE status = 'active' AND end_date < NOW()")
	if err != nil {
		log.Printf("[Cron] Error completing expired sprints: %v", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Printf("[Cron] Auto-completed %d expired sprints", n)
	}
}

// ManualTrigger allows manual triggering of scheduled checks (for testing)
func (s *Scheduler) ManualTrigger(checkType string) {
	switch checkType {
	case "meetings":
		s.checkUpcomingMeetings()
	case "cleanup":
		s.cleanupOldNotifications()
	case "sprints":
		s.autoCompleteExpiredSprints()
	case "all":
		s.checkUpcomingMeetings()
		s.cleanupOldNotifications()
		s.autoCompleteExpiredSprints()
	}
}
