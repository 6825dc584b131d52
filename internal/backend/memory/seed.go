// internal/backend/memory/seed.go
package memory

import (
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
)

// Fixture ids are stable so demo sessions and tests can reference them.
const (
	UserCarlos = "demo-user-1"
	UserAna    = "demo-user-2"
	UserLuis   = "demo-user-3"

	ChannelGeneral = "demo-channel-1"
	ChannelDev     = "demo-channel-2"
	ChannelRandom  = "demo-channel-3"
)

// seed loads the demo fixtures: three teammates, the default channels with a
// welcome message, expense categories and a handful of sample rows.
func (p *Provider) seed() {
	now := time.Now().UTC()
	stamp := func(d time.Duration) string {
		return now.Add(d).Format(time.RFC3339Nano)
	}

	p.put(backend.TableUsers,
		backend.Row{"id": UserCarlos, "email": "carlos@demo.team", "full_name": "Carlos Mendoza", "role": "admin", "created_at": stamp(-90 * 24 * time.Hour)},
		backend.Row{"id": UserAna, "email": "ana@demo.team", "full_name": "Ana Torres", "role": "developer", "created_at": stamp(-80 * 24 * time.Hour)},
		backend.Row{"id": UserLuis, "email": "luis@demo.team", "full_name": "Luis Romero", "role": "developer", "created_at": stamp(-70 * 24 * time.Hour)},
	)

	p.put(backend.TableChatChannels,
		backend.Row{"id": ChannelGeneral, "name": "general", "description": "Team-wide announcements and chatter", "type": "public", "created_by": UserCarlos, "created_at": stamp(-60 * 24 * time.Hour), "updated_at": stamp(-60 * 24 * time.Hour)},
		backend.Row{"id": ChannelDev, "name": "dev", "description": "Engineering discussion", "type": "public", "created_by": UserCarlos, "created_at": stamp(-60 * 24 * time.Hour), "updated_at": stamp(-60 * 24 * time.Hour)},
		backend.Row{"id": ChannelRandom, "name": "random", "description": "Everything else", "type": "public", "created_by": UserAna, "created_at": stamp(-59 * 24 * time.Hour), "updated_at": stamp(-59 * 24 * time.Hour)},
	)

	p.put(backend.TableChatMessages,
		backend.Row{"id": "demo-msg-1", "channel_id": ChannelGeneral, "user_id": UserCarlos, "content": "Welcome to the team workspace!", "message_type": "text", "created_at": stamp(-59 * 24 * time.Hour)},
		backend.Row{"id": "demo-msg-2", "channel_id": ChannelDev, "user_id": UserAna, "content": "fmt.Println(\"hello\")", "message_type": "code", "code_language": "go", "created_at": stamp(-2 * time.Hour)},
	)

	p.put(backend.TableExpenseCategories,
		backend.Row{"id": "demo-cat-1", "name": "Software", "color": "#6366f1"},
		backend.Row{"id": "demo-cat-2", "name": "Travel", "color": "#f59e0b"},
		backend.Row{"id": "demo-cat-3", "name": "Office", "color": "#10b981"},
	)

	p.put(backend.TableExpenses,
		backend.Row{"id": "demo-exp-1", "description": "CI minutes", "amount": "49.00", "incurred_on": stamp(-10 * 24 * time.Hour), "category_id": "demo-cat-1", "created_by": UserCarlos, "created_at": stamp(-10 * 24 * time.Hour), "updated_at": stamp(-10 * 24 * time.Hour)},
	)

	p.put(backend.TableNotes,
		backend.Row{"id": "demo-note-1", "title": "Ship the onboarding flow", "content": "Blocking the beta invite wave.", "type": "task", "status": "in_progress", "priority": "high", "assigned_to": []interface{}{UserAna}, "created_by": UserCarlos, "tags": []interface{}{"beta"}, "due_date": stamp(3 * 24 * time.Hour), "created_at": stamp(-5 * 24 * time.Hour), "updated_at": stamp(-24 * time.Hour)},
		backend.Row{"id": "demo-note-2", "title": "Login page 500 on bad email", "content": "Repro: submit an empty email.", "type": "bug", "status": "pending", "priority": "urgent", "assigned_to": []interface{}{UserLuis}, "created_by": UserAna, "tags": []interface{}{}, "due_date": stamp(24 * time.Hour), "created_at": stamp(-2 * 24 * time.Hour), "updated_at": stamp(-2 * 24 * time.Hour)},
	)

	p.put(backend.TableComments,
		backend.Row{"id": "demo-comment-1", "note_id": "demo-note-1", "user_id": UserAna, "content": "Copy for the invite email is ready.", "created_at": stamp(-20 * time.Hour), "updated_at": stamp(-20 * time.Hour)},
	)

	p.put(backend.TableSprints,
		backend.Row{"id": "demo-sprint-1", "name": "Sprint 12", "goal": "Beta readiness", "status": "active", "start_date": stamp(-7 * 24 * time.Hour), "end_date": stamp(7 * 24 * time.Hour), "created_by": UserCarlos, "created_at": stamp(-7 * 24 * time.Hour), "updated_at": stamp(-7 * 24 * time.Hour)},
	)

	p.put(backend.TableMeetings,
		backend.Row{"id": "demo-meet-1", "title": "Sprint review", "description": "Demo the onboarding flow", "starts_at": stamp(26 * time.Hour), "duration_min": 45, "room_url": "https://meet.demo.team/sprint-review", "participants": []interface{}{UserCarlos, UserAna, UserLuis}, "created_by": UserCarlos, "created_at": stamp(-24 * time.Hour), "updated_at": stamp(-24 * time.Hour)},
	)
}

// put stores rows directly, without events; only used while seeding.
func (p *Provider) put(table string, rows ...backend.Row) {
	for _, r := range rows {
		id := r.ID()
		p.tables[table][id] = r
		p.order[table] = append(p.order[table], id)
	}
}
