// internal/backend/backend.go
//
// Package backend defines the capability surface every store talks through:
// filtered queries, row mutations, change-feed subscriptions, authentication
// and blob upload. Two implementations exist: backend/remote speaks to a
// syncd server, backend/memory runs fully in-process on fixture data. A
// provider is chosen once at startup; stores never branch on connectivity.
package backend

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound        = errors.New("row not found")
	ErrUnknownTable    = errors.New("unknown table")
	ErrNotSignedIn     = errors.New("not signed in")
	ErrInvalidLogin    = errors.New("invalid credentials")
	ErrEmailTaken      = errors.New("email already registered")
	ErrFeedUnavailable = errors.New("change feed unavailable")
)

// Table names understood by every provider.
const (
	TableUsers             = "users"
	TableNotes             = "notes"
	TableComments          = "comments"
	TableMeetings          = "meetings"
	TableExpenses          = "expenses"
	TableExpenseCategories = "expense_categories"
	TablePersonalNotes     = "personal_notes"
	TableSprints           = "sprints"
	TableChatChannels      = "chat_channels"
	TableChatMessages      = "chat_messages"
	TableDeleteRequests    = "channel_delete_requests"
	TableNotifications     = "notifications"
)

// Row is a single record in its wire form (snake_case keys, JSON values).
type Row map[string]interface{}

// ID returns the row id, or "" when absent.
func (r Row) ID() string {
	id, _ := r["id"].(string)
	return id
}

// String returns a string column, or "" when absent or not a string.
func (r Row) String(column string) string {
	s, _ := r[column].(string)
	return s
}

// ============================================
// Queries
// ============================================

type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpContains Op = "contains" // array column membership
)

type Cond struct {
	Column string
	Op     Op
	Value  interface{}
}

func Eq(column string, value interface{}) Cond  { return Cond{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value interface{}) Cond { return Cond{Column: column, Op: OpNeq, Value: value} }
func Gt(column string, value interface{}) Cond  { return Cond{Column: column, Op: OpGt, Value: value} }
func Contains(column string, value interface{}) Cond {
	return Cond{Column: column, Op: OpContains, Value: value}
}

// Query is the filter/order/limit set applied to a Select or Count.
type Query struct {
	Conds        []Cond
	SearchColumn string // case-insensitive contains
	SearchTerm   string
	OrderBy      string
	Desc         bool
	Limit        int
}

// ============================================
// Change feed
// ============================================

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is one change pushed by the feed. Delete events carry at least the
// row id; insert/update events carry the raw column values without joins.
type Event struct {
	Type  EventType
	Table string
	Row   Row
}

type Handler func(Event)

// Filter scopes a subscription to rows whose Column equals Equals.
// The zero Filter matches every row.
type Filter struct {
	Column string
	Equals string
}

func (f Filter) Matches(row Row) bool {
	if f.Column == "" {
		return true
	}
	return row.String(f.Column) == f.Equals
}

// StopFunc tears down a subscription. Safe to call more than once.
type StopFunc func()

// NopStop is returned when a subscription could not be established.
func NopStop() {}

// ============================================
// Identity
// ============================================

type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ============================================
// Provider
// ============================================

// Provider is the full backend capability surface. Every method is safe for
// concurrent use.
type Provider interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Count(ctx context.Context, table string, q Query) (int, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, id string, patch Row) (Row, error)
	Delete(ctx context.Context, table string, id string) error

	// Subscribe registers h for matching events on table. On failure the
	// returned stop is NopStop and the error is non-nil; the caller degrades
	// to manual fetches.
	Subscribe(ctx context.Context, table string, events []EventType, filter Filter, h Handler) (StopFunc, error)

	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password, fullName string) (*Identity, error)
	SignOut(ctx context.Context) error
	// Resume restores a previously issued token, returning the identity it
	// belongs to, or an error when the token is no longer valid.
	Resume(ctx context.Context, token string) (*Identity, error)
	CurrentIdentity() *Identity
	Token() string

	Upload(ctx context.Context, bucket, key string, data []byte) (string, error)
}

// ============================================
// Row codecs
// ============================================

// DecodeRow converts a wire row into a typed entity via its JSON tags.
func DecodeRow[T any](r Row) (T, error) {
	var v T
	data, err := json.Marshal(r)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(data, &v)
	return v, err
}

// DecodeRows converts a result set, preserving order.
func DecodeRows[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := DecodeRow[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeRow converts a typed entity into its wire row.
func EncodeRow(v interface{}) (Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Row
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}
