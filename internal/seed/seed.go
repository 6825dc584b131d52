// internal/seed/seed.go
package seed

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// SeedData loads the development fixtures: three teammates, the default
// channels, expense categories and a handful of sample rows. Safe to call
// more than once.
func SeedData(pool *pgxpool.Pool) {
	ctx := context.Background()

	var userCount int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
		log.Printf("[Seed] Error checking users: %v", err)
		return
	}
	if userCount > 0 {
		log.Println("[Seed] Data already exists, skipping...")
		return
	}

	log.Println("[Seed] 🌱 Creating development data...")

	password, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	// ============================================
	// USERS
	// ============================================
	users := []struct {
		id, email, name, role string
	}{
		{"demo-user-1", "carlos@demo.team", "Carlos Mendoza", "admin"},
		{"demo-user-2", "ana@demo.team", "Ana Torres", "developer"},
		{"demo-user-3", "luis@demo.team", "Luis Romero", "developer"},
	}
	for _, u := range users {
		_, err := pool.Exec(ctx,
			"INSERT INTO users (id, email, full_name, role, password_hash) VALUES ($1, $2, $3, $4, $5)",
			u.id, u.email, u.name, u.role, string(password))
		if err != nil {
			log.Printf("[Seed] Error creating user %s: %v", u.email, err)
			return
		}
	}
	log.Println("✅ Created 3 users: Carlos (admin), Ana, Luis")

	// ============================================
	// CHAT CHANNELS
	// ============================================
	channels := []struct {
		id, name, description, createdBy string
	}{
		{"demo-channel-1", "general", "Team-wide announcements and chatter", "demo-user-1"},
		{"demo-channel-2", "dev", "Engineering discussion", "demo-user-1"},
		{"demo-channel-3", "random", "Everything else", "demo-user-2"},
	}
	for _, ch := range channels {
		_, err := pool.Exec(ctx,
			"INSERT INTO chat_channels (id, name, description, type, created_by) VALUES ($1, $2, $3, 'public', $4)",
			ch.id, ch.name, ch.description, ch.createdBy)
		if err != nil {
			log.Printf("[Seed] Error creating channel %s: %v", ch.name, err)
			return
		}
	}
	pool.Exec(ctx,
		`INSERT INTO chat_messages (id, channel_id, user_id, content, message_type)
		 VALUES ('demo-msg-1', 'demo-channel-1', 'demo-user-1', 'Welcome to the team workspace!', 'text')`)
	log.Println("✅ Created channels: general, dev, random")

	// ============================================
	// EXPENSE CATEGORIES
	// ============================================
	categories := []struct {
		id, name, color string
	}{
		{"demo-cat-1", "Software", "#6366f1"},
		{"demo-cat-2", "Travel", "#f59e0b"},
		{"demo-cat-3", "Office", "#10b981"},
	}
	for _, c := range categories {
		pool.Exec(ctx,
			"INSERT INTO expense_categories (id, name, color) VALUES ($1, $2, $3)",
			c.id, c.name, c.color)
	}
	log.Println("✅ Created expense categories")

	// ============================================
	// SAMPLE WORK ITEMS
	// ============================================
	pool.Exec(ctx,
		`INSERT INTO notes (id, title, content, type, status, priority, assigned_to, created_by, tags, due_date)
		 VALUES ('demo-note-1', 'Ship the onboarding flow', 'Blocking the beta invite wave.',
		         'task', 'in_progress', 'high', ARRAY['demo-user-2'], 'demo-user-1', ARRAY['beta'], $1)`,
		time.Now().Add(3*24*time.Hour))

	pool.Exec(ctx,
		`INSERT INTO comments (id, note_id, user_id, content)
		 VALUES ('demo-comment-1', 'demo-note-1', 'demo-user-2', 'Copy for the invite email is ready.')`)

	pool.Exec(ctx,
		`INSERT INTO sprints (id, name, goal, status, start_date, end_date, created_by)
		 VALUES ('demo-sprint-1', 'Sprint 12', 'Beta readiness', 'active', $1, $2, 'demo-user-1')`,
		time.Now().Add(-7*24*time.Hour), time.Now().Add(7*24*time.Hour))

	pool.Exec(ctx,
		`INSERT INTO meetings (id, title, description, starts_at, duration_min, room_url, participants, created_by)
		 VALUES ('demo-meet-1', 'Sprint review', 'Demo the onboarding flow', $1, 45,
		         'https://meet.demo.team/sprint-review',
		         ARRAY['demo-user-1', 'demo-user-2', 'demo-user-3'], 'demo-user-1')`,
		time.Now().Add(26*time.Hour))

	log.Println("✅ Created sample notes, sprint and meeting")
	log.Println("[Seed] Done. Login: carlos@demo.team / password123")
}
