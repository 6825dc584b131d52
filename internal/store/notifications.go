// internal/store/notifications.go
package store

import (
	"context"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

// notificationHistoryLimit caps how many notifications a fetch pulls in.
const notificationHistoryLimit = 50

// NotificationsStore caches the user's notifications, newest first.
type NotificationsStore struct {
	*Store[types.Notification]
}

func NewNotificationsStore(provider backend.Provider, sess *session.Session) *NotificationsStore {
	ns := &NotificationsStore{}
	ns.Store = New[types.Notification](provider, sess, Config{
		Table:         backend.TableNotifications,
		CreatorColumn: "user_id",
		Query: func() backend.Query {
			return backend.Query{
				Conds:   []backend.Cond{backend.Eq("user_id", sess.UserID())},
				OrderBy: "created_at",
				Desc:    true,
				Limit:   notificationHistoryLimit,
			}
		},
	})
	return ns
}

// UnreadCount counts the cached unread notifications.
func (ns *NotificationsStore) UnreadCount() int {
	count := 0
	for _, n := range ns.Items() {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags one notification as read.
func (ns *NotificationsStore) MarkRead(ctx context.Context, id string) error {
	_, err := ns.Update(ctx, id, backend.Row{"read": true})
	return err
}

// MarkAllRead flags every cached unread notification as read.
func (ns *NotificationsStore) MarkAllRead(ctx context.Context) error {
	for _, n := range ns.Items() {
		if n.Read {
			continue
		}
		if err := ns.MarkRead(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes a notification. The recipient owns their notifications, so
// the creator gate doesn't apply here.
func (ns *NotificationsStore) Remove(ctx context.Context, id string) error {
	if err := ns.Session().Require(); err != nil {
		return err
	}
	if err := ns.Provider().Delete(ctx, backend.TableNotifications, id); err != nil {
		return err
	}
	ns.MergeRemove(id)
	return nil
}
