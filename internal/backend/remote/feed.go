// internal/backend/remote/feed.go
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kor4soft/teamsync/internal/backend"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// feedFrame is an outgoing control frame on the change-feed socket.
type feedFrame struct {
	Action string `json:"action"`
	Table  string `json:"table,omitempty"`
}

// changeFrame is one pushed change from the server.
type changeFrame struct {
	Type    string `json:"type"`
	Payload struct {
		Table string      `json:"table"`
		Event string      `json:"event"`
		Row   backend.Row `json:"row"`
	} `json:"payload"`
}

type feedSub struct {
	id     int
	table  string
	events map[backend.EventType]bool
	filter backend.Filter
	h      backend.Handler
}

// feed owns the single websocket connection a provider keeps to the server
// and fans pushed changes out to subscribers.
type feed struct {
	provider *Provider

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    map[int]*feedSub
	tables  map[string]int // subscribed table -> refcount
	nextSub int
	done    chan struct{}
}

func newFeed(p *Provider) *feed {
	return &feed{
		provider: p,
		subs:     make(map[int]*feedSub),
		tables:   make(map[string]int),
	}
}

func (f *feed) subscribe(ctx context.Context, table string, events []backend.EventType, filter backend.Filter, h backend.Handler) (backend.StopFunc, error) {
	if h == nil {
		return backend.NopStop, fmt.Errorf("nil handler")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureConnLocked(ctx); err != nil {
		return backend.NopStop, fmt.Errorf("%w: %v", backend.ErrFeedUnavailable, err)
	}

	if f.tables[table] == 0 {
		if err := f.writeLocked(feedFrame{Action: "subscribe", Table: table}); err != nil {
			return backend.NopStop, fmt.Errorf("%w: %v", backend.ErrFeedUnavailable, err)
		}
	}
	f.tables[table]++

	f.nextSub++
	sub := &feedSub{
		id:     f.nextSub,
		table:  table,
		events: make(map[backend.EventType]bool, len(events)),
		filter: filter,
		h:      h,
	}
	for _, e := range events {
		sub.events[e] = true
	}
	f.subs[sub.id] = sub

	var once sync.Once
	return func() {
		once.Do(func() { f.unsubscribe(sub) })
	}, nil
}

func (f *feed) unsubscribe(sub *feedSub) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subs[sub.id]; !ok {
		return
	}
	delete(f.subs, sub.id)
	f.tables[sub.table]--
	if f.tables[sub.table] <= 0 {
		delete(f.tables, sub.table)
		if f.conn != nil {
			f.writeLocked(feedFrame{Action: "unsubscribe", Table: sub.table})
		}
	}
}

// ensureConnLocked dials the feed socket on first use.
func (f *feed) ensureConnLocked(ctx context.Context) error {
	if f.conn != nil {
		return nil
	}

	wsURL := strings.Replace(f.provider.baseURL, "http", "ws", 1) + "/api/ws"
	header := http.Header{}
	if t := f.provider.Token(); t != "" {
		header.Set("Authorization", "Bearer "+t)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return err
	}

	f.conn = conn
	f.done = make(chan struct{})
	go f.readPump(conn, f.done)
	go f.pingPump(conn, f.done)
	return nil
}

func (f *feed) writeLocked(frame feedFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return f.conn.WriteMessage(websocket.TextMessage, data)
}

// readPump dispatches pushed changes until the connection dies. A dead feed
// is not reconnected here; callers degrade to manual fetches.
func (f *feed) readPump(conn *websocket.Conn, done chan struct{}) {
	defer f.teardown(conn, done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Feed] connection error: %v", err)
			}
			return
		}

		var frame changeFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Printf("[Feed] bad frame: %v", err)
			continue
		}
		if frame.Type != "change" {
			continue
		}

		ev := backend.Event{
			Type:  backend.EventType(frame.Payload.Event),
			Table: frame.Payload.Table,
			Row:   frame.Payload.Row,
		}

		f.mu.Lock()
		var targets []*feedSub
		for _, s := range f.subs {
			if s.table == ev.Table && s.events[ev.Type] && s.filter.Matches(ev.Row) {
				targets = append(targets, s)
			}
		}
		f.mu.Unlock()

		for _, s := range targets {
			s.h(ev)
		}
	}
}

func (f *feed) pingPump(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			f.mu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (f *feed) teardown(conn *websocket.Conn, done chan struct{}) {
	conn.Close()
	f.mu.Lock()
	if f.conn == conn {
		f.conn = nil
		f.tables = make(map[string]int)
		close(done)
	}
	f.mu.Unlock()
}

func (f *feed) close() {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
	}
}
