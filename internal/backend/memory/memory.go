// internal/backend/memory/memory.go
//
// In-process backend used in demo mode and by the tests. Tables live in
// maps, ids come from uuid, and a small event bus makes subscriptions work
// for local mutations so the realtime path behaves the same offline.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kor4soft/teamsync/internal/backend"
)

const tokenPrefix = "demo-token:"

type subscription struct {
	id     int
	table  string
	events map[backend.EventType]bool
	filter backend.Filter
	h      backend.Handler
}

type Provider struct {
	mu       sync.RWMutex
	tables   map[string]map[string]backend.Row
	order    map[string][]string // insertion order per table
	subs     map[int]*subscription
	nextSub  int
	identity *backend.Identity
	token    string
}

var knownTables = []string{
	backend.TableUsers,
	backend.TableNotes,
	backend.TableComments,
	backend.TableMeetings,
	backend.TableExpenses,
	backend.TableExpenseCategories,
	backend.TablePersonalNotes,
	backend.TableSprints,
	backend.TableChatChannels,
	backend.TableChatMessages,
	backend.TableDeleteRequests,
	backend.TableNotifications,
}

// NewBare creates a provider with empty tables.
func NewBare() *Provider {
	p := &Provider{
		tables: make(map[string]map[string]backend.Row),
		order:  make(map[string][]string),
		subs:   make(map[int]*subscription),
	}
	for _, t := range knownTables {
		p.tables[t] = make(map[string]backend.Row)
	}
	return p
}

// New creates a provider pre-seeded with the demo fixtures.
func New() *Provider {
	p := NewBare()
	p.seed()
	return p
}

// ============================================
// Queries
// ============================================

func (p *Provider) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	p.mu.RLock()
	rows, err := p.selectLocked(table, q)
	p.mu.RUnlock()
	return rows, err
}

func (p *Provider) selectLocked(table string, q backend.Query) ([]backend.Row, error) {
	t, ok := p.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownTable, table)
	}

	var out []backend.Row
	for _, id := range p.order[table] {
		row, ok := t[id]
		if !ok {
			continue
		}
		if !matches(row, q) {
			continue
		}
		out = append(out, p.withJoins(table, cloneRow(row)))
	}

	if q.OrderBy != "" {
		col, desc := q.OrderBy, q.Desc
		sort.SliceStable(out, func(i, j int) bool {
			cmp := compareValues(out[i][col], out[j][col])
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (p *Provider) Count(ctx context.Context, table string, q backend.Query) (int, error) {
	q.Limit = 0
	rows, err := p.Select(ctx, table, q)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ============================================
// Mutations
// ============================================

func (p *Provider) Insert(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	p.mu.Lock()
	t, ok := p.tables[table]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownTable, table)
	}

	stored := cloneRow(row)
	if stored.ID() == "" {
		stored["id"] = uuid.New().String()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if stored.String("created_at") == "" {
		stored["created_at"] = now
	}
	if _, hasUpdated := stored["updated_at"]; hasUpdated && stored.String("updated_at") == "" {
		stored["updated_at"] = now
	}

	id := stored.ID()
	t[id] = stored
	p.order[table] = append(p.order[table], id)
	result := p.withJoins(table, cloneRow(stored))
	p.mu.Unlock()

	p.publish(backend.Event{Type: backend.EventInsert, Table: table, Row: cloneRow(stored)})
	return result, nil
}

func (p *Provider) Update(ctx context.Context, table string, id string, patch backend.Row) (backend.Row, error) {
	p.mu.Lock()
	t, ok := p.tables[table]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownTable, table)
	}
	row, ok := t[id]
	if !ok {
		p.mu.Unlock()
		return nil, backend.ErrNotFound
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		row[k] = v
	}
	result := p.withJoins(table, cloneRow(row))
	changed := cloneRow(row)
	p.mu.Unlock()

	p.publish(backend.Event{Type: backend.EventUpdate, Table: table, Row: changed})
	return result, nil
}

func (p *Provider) Delete(ctx context.Context, table string, id string) error {
	p.mu.Lock()
	t, ok := p.tables[table]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", backend.ErrUnknownTable, table)
	}
	row, ok := t[id]
	if !ok {
		p.mu.Unlock()
		return backend.ErrNotFound
	}
	delete(t, id)
	gone := cloneRow(row)
	p.mu.Unlock()

	p.publish(backend.Event{Type: backend.EventDelete, Table: table, Row: gone})
	return nil
}

// ============================================
// Change feed
// ============================================

func (p *Provider) Subscribe(ctx context.Context, table string, events []backend.EventType, filter backend.Filter, h backend.Handler) (backend.StopFunc, error) {
	if h == nil {
		return backend.NopStop, fmt.Errorf("nil handler")
	}
	p.mu.Lock()
	if _, ok := p.tables[table]; !ok {
		p.mu.Unlock()
		return backend.NopStop, fmt.Errorf("%w: %s", backend.ErrUnknownTable, table)
	}
	p.nextSub++
	sub := &subscription{
		id:     p.nextSub,
		table:  table,
		events: make(map[backend.EventType]bool, len(events)),
		filter: filter,
		h:      h,
	}
	for _, e := range events {
		sub.events[e] = true
	}
	p.subs[sub.id] = sub
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, sub.id)
			p.mu.Unlock()
		})
	}, nil
}

// publish delivers synchronously, outside the table lock, so handlers can
// call back into the provider.
func (p *Provider) publish(ev backend.Event) {
	p.mu.RLock()
	var targets []*subscription
	for _, s := range p.subs {
		if s.table == ev.Table && s.events[ev.Type] && s.filter.Matches(ev.Row) {
			targets = append(targets, s)
		}
	}
	p.mu.RUnlock()

	for _, s := range targets {
		s.h(ev)
	}
}

// ============================================
// Identity
// ============================================

// SignIn accepts any password, mirroring demo mode: the account either
// exists in the fixtures or is created on the fly from the email.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*backend.Identity, error) {
	rows, err := p.Select(ctx, backend.TableUsers, backend.Query{
		Conds: []backend.Cond{backend.Eq("email", email)},
	})
	if err != nil {
		return nil, err
	}

	var user backend.Row
	if len(rows) > 0 {
		user = rows[0]
	} else {
		name := email
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		}
		user, err = p.Insert(ctx, backend.TableUsers, backend.Row{
			"email":     email,
			"full_name": name,
			"role":      "developer",
		})
		if err != nil {
			return nil, err
		}
	}

	ident := &backend.Identity{ID: user.ID(), Email: email}
	p.mu.Lock()
	p.identity = ident
	p.token = tokenPrefix + ident.ID
	p.mu.Unlock()
	return ident, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password, fullName string) (*backend.Identity, error) {
	rows, err := p.Select(ctx, backend.TableUsers, backend.Query{
		Conds: []backend.Cond{backend.Eq("email", email)},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return nil, backend.ErrEmailTaken
	}
	user, err := p.Insert(ctx, backend.TableUsers, backend.Row{
		"email":     email,
		"full_name": fullName,
		"role":      "developer",
	})
	if err != nil {
		return nil, err
	}
	ident := &backend.Identity{ID: user.ID(), Email: email}
	p.mu.Lock()
	p.identity = ident
	p.token = tokenPrefix + ident.ID
	p.mu.Unlock()
	return ident, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.identity = nil
	p.token = ""
	p.mu.Unlock()
	return nil
}

func (p *Provider) Resume(ctx context.Context, token string) (*backend.Identity, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, backend.ErrInvalidLogin
	}
	id := strings.TrimPrefix(token, tokenPrefix)

	p.mu.RLock()
	row, ok := p.tables[backend.TableUsers][id]
	p.mu.RUnlock()
	if !ok {
		return nil, backend.ErrInvalidLogin
	}

	ident := &backend.Identity{ID: id, Email: row.String("email")}
	p.mu.Lock()
	p.identity = ident
	p.token = token
	p.mu.Unlock()
	return ident, nil
}

func (p *Provider) CurrentIdentity() *backend.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identity
}

func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Upload keeps the bytes in memory and hands back a pseudo URL.
func (p *Provider) Upload(ctx context.Context, bucket, key string, data []byte) (string, error) {
	return fmt.Sprintf("memory://%s/%s", bucket, key), nil
}

// ============================================
// Helpers
// ============================================

func (p *Provider) withJoins(table string, row backend.Row) backend.Row {
	switch table {
	case backend.TableChatMessages, backend.TableComments:
		if u := p.userRef(row.String("user_id")); u != nil {
			row["user"] = u
		}
	case backend.TableNotifications:
		if u := p.userRef(row.String("from_user_id")); u != nil {
			row["from_user"] = u
		}
	}
	return row
}

func (p *Provider) userRef(id string) backend.Row {
	if id == "" {
		return nil
	}
	u, ok := p.tables[backend.TableUsers][id]
	if !ok {
		return nil
	}
	ref := backend.Row{
		"id":        u.ID(),
		"full_name": u.String("full_name"),
		"email":     u.String("email"),
	}
	if av, ok := u["avatar_url"]; ok {
		ref["avatar_url"] = av
	}
	return ref
}

func matches(row backend.Row, q backend.Query) bool {
	for _, c := range q.Conds {
		if !matchCond(row, c) {
			return false
		}
	}
	if q.SearchColumn != "" && q.SearchTerm != "" {
		hay := strings.ToLower(row.String(q.SearchColumn))
		if !strings.Contains(hay, strings.ToLower(q.SearchTerm)) {
			return false
		}
	}
	return true
}

func matchCond(row backend.Row, c backend.Cond) bool {
	want := stringValue(c.Value)
	switch c.Op {
	case backend.OpEq:
		return stringValue(row[c.Column]) == want
	case backend.OpNeq:
		return stringValue(row[c.Column]) != want
	case backend.OpGt:
		return compareValues(row[c.Column], c.Value) > 0
	case backend.OpContains:
		for _, it := range sliceValue(row[c.Column]) {
			if stringValue(it) == want {
				return true
			}
		}
		return false
	}
	return false
}

func sliceValue(v interface{}) []interface{} {
	switch x := v.(type) {
	case []interface{}:
		return x
	case []string:
		out := make([]interface{}, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	}
	return nil
}

// compareValues orders two column values. Timestamps are compared as
// instants: in RFC3339Nano text a fraction-less second sorts after a
// fractional one, which would break created_at ordering.
func compareValues(a, b interface{}) int {
	as, bs := stringValue(a), stringValue(b)
	if at, errA := time.Parse(time.RFC3339Nano, as); errA == nil {
		if bt, errB := time.Parse(time.RFC3339Nano, bs); errB == nil {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			}
			return 0
		}
	}
	return strings.Compare(as, bs)
}

func stringValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func cloneRow(r backend.Row) backend.Row {
	out := make(backend.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
