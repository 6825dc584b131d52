// internal/realtime/unread.go
package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/store"
)

// UnreadCounter tracks chat messages written by others since the persisted
// last-read mark. It is a local heuristic, not a read receipt.
type UnreadCounter struct {
	provider backend.Provider
	session  *session.Session
	guard    store.Guard

	mu    sync.Mutex
	count int
}

func NewUnreadCounter(provider backend.Provider, sess *session.Session) *UnreadCounter {
	return &UnreadCounter{provider: provider, session: sess}
}

// Watch subscribes to every channel's inserts, counting messages whose
// author isn't the current user.
func (u *UnreadCounter) Watch(ctx context.Context) backend.StopFunc {
	stop, err := u.provider.Subscribe(ctx, backend.TableChatMessages,
		[]backend.EventType{backend.EventInsert}, backend.Filter{},
		func(ev backend.Event) {
			if ev.Row.String("user_id") == u.session.UserID() {
				return
			}
			u.mu.Lock()
			u.count++
			u.mu.Unlock()
		})
	if err != nil {
		log.Printf("[Realtime] unread watch unavailable: %v", err)
		return backend.NopStop
	}
	return stop
}

// Check seeds the counter from the backend: messages by others newer than
// the last-read mark. Deduplicated like a store fetch.
func (u *UnreadCounter) Check(ctx context.Context, force bool) error {
	if !u.guard.Begin(force) {
		return nil
	}
	defer u.guard.Done()

	q := backend.Query{
		Conds: []backend.Cond{backend.Neq("user_id", u.session.UserID())},
	}
	if lastRead := u.session.LastRead(); !lastRead.IsZero() {
		q.Conds = append(q.Conds, backend.Gt("created_at", lastRead))
	}

	n, err := u.provider.Count(ctx, backend.TableChatMessages, q)
	if err != nil {
		return err
	}

	u.mu.Lock()
	u.count = n
	u.mu.Unlock()
	return nil
}

// MarkAsRead persists the last-read mark and zeroes the counter.
func (u *UnreadCounter) MarkAsRead(ctx context.Context) error {
	if err := u.session.SetLastRead(time.Now().UTC()); err != nil {
		return err
	}
	u.mu.Lock()
	u.count = 0
	u.mu.Unlock()
	return nil
}

// Unread returns the current count.
func (u *UnreadCounter) Unread() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}

// HasUnread reports whether anything is waiting.
func (u *UnreadCounter) HasUnread() bool { return u.Unread() > 0 }
