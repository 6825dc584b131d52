// internal/realtime/bridge.go
//
// Package realtime wires provider change-feed subscriptions into store
// caches. Inserted and updated rows are re-fetched so the cache gets the
// joined display fields the raw event lacks; deletes are applied
// unconditionally. A feed that can't be established degrades silently:
// callers get a no-op stop and keep working off manual fetches.
package realtime

import (
	"context"
	"log"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/store"
	"github.com/kor4soft/teamsync/internal/types"
)

// Watch subscribes a store to its table's change feed, scoped by filter.
func Watch[T store.Item](ctx context.Context, provider backend.Provider, s *store.Store[T], table string, filter backend.Filter) backend.StopFunc {
	events := []backend.EventType{backend.EventInsert, backend.EventUpdate, backend.EventDelete}

	stop, err := provider.Subscribe(ctx, table, events, filter, func(ev backend.Event) {
		switch ev.Type {
		case backend.EventInsert:
			if item, ok := refetch[T](ctx, provider, table, ev.Row.ID()); ok {
				s.MergeInsert(item)
			}
		case backend.EventUpdate:
			if item, ok := refetch[T](ctx, provider, table, ev.Row.ID()); ok {
				s.MergeUpdate(item)
			}
		case backend.EventDelete:
			s.MergeRemove(ev.Row.ID())
		}
	})
	if err != nil {
		log.Printf("[Realtime] subscribe %s failed, falling back to manual fetch: %v", table, err)
		return backend.NopStop
	}
	return stop
}

// WatchChannelMessages follows one channel's messages into the chat cache.
func WatchChannelMessages(ctx context.Context, provider backend.Provider, chat *store.ChatStore, channelID string) backend.StopFunc {
	return Watch[types.ChatMessage](ctx, provider, chat.MessagesStore(), backend.TableChatMessages,
		backend.Filter{Column: "channel_id", Equals: channelID})
}

// WatchNotifications follows a user's incoming notifications.
func WatchNotifications(ctx context.Context, provider backend.Provider, ns *store.NotificationsStore, userID string) backend.StopFunc {
	return Watch[types.Notification](ctx, provider, ns.Store, backend.TableNotifications,
		backend.Filter{Column: "user_id", Equals: userID})
}

// refetch pulls the authoritative row, with joins, for a pushed change.
// A row already gone by the time we ask is simply skipped.
func refetch[T store.Item](ctx context.Context, provider backend.Provider, table, id string) (T, bool) {
	var zero T
	if id == "" {
		return zero, false
	}

	rows, err := provider.Select(ctx, table, backend.Query{
		Conds: []backend.Cond{backend.Eq("id", id)},
		Limit: 1,
	})
	if err != nil || len(rows) == 0 {
		return zero, false
	}

	item, err := backend.DecodeRow[T](rows[0])
	if err != nil {
		log.Printf("[Realtime] bad %s row %s: %v", table, id, err)
		return zero, false
	}
	return item, true
}
