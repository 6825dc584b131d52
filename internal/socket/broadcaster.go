// internal/socket/broadcaster.go
package socket

// Broadcaster publishes table change events to the hub. The table store
// calls it after every successful write.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// BroadcastChange pushes an insert/update/delete event to every client
// subscribed to the table's feed.
func (b *Broadcaster) BroadcastChange(table, event string, row map[string]interface{}) {
	b.hub.SendToRoom(TableRoom(table), MessageChange, map[string]interface{}{
		"table": table,
		"event": event,
		"row":   row,
	}, "")
}

// SendToUser pushes a change event at one user's personal room regardless
// of table subscriptions (notifications land even before the client
// subscribes to the table).
func (b *Broadcaster) SendToUser(userID, table, event string, row map[string]interface{}) {
	b.hub.SendToUser(userID, MessageChange, map[string]interface{}{
		"table": table,
		"event": event,
		"row":   row,
	})
}
