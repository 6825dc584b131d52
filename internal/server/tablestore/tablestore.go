// internal/server/tablestore/tablestore.go
//
// Package tablestore is the generic storage layer behind /api/tables: every
// table the server exposes goes through the same filtered select, insert,
// update, delete and count paths. Writes invalidate the redis cache for the
// table and publish a change event to the websocket hub.
package tablestore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kor4soft/teamsync/internal/db"
	"github.com/kor4soft/teamsync/internal/socket"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotFound      = errors.New("row not found")
	ErrForbidden     = errors.New("not allowed")
)

const cacheTTL = 30 * time.Second

// Row is a record in wire form.
type Row map[string]interface{}

// Op is a filter operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpContains Op = "contains"
)

type Cond struct {
	Column string
	Op     Op
	Value  string
}

// Query is the parsed filter set for a select or count.
type Query struct {
	Conds        []Cond
	SearchColumn string
	SearchTerm   string
	OrderBy      string
	Desc         bool
	Limit        int
}

// Table describes one exposed table: its column allowlist and behavior.
type Table struct {
	Name string
	// Writable columns; id/created_at are always readable.
	Columns map[string]bool
	// Columns stored as text[] (filterable with contains)
	ArrayColumns map[string]bool
	// Column referencing users(id) whose profile gets embedded, and the
	// field it is embedded under
	UserJoinColumn string
	UserJoinField  string
	// Column that must match the acting user for deletes; empty disables
	// the check
	OwnerColumn string
}

// Store runs generic table access over pgx.
type Store struct {
	pool        *pgxpool.Pool
	cache       *db.RedisDB
	broadcaster *socket.Broadcaster
	tables      map[string]Table
}

func New(pool *pgxpool.Pool, cache *db.RedisDB, broadcaster *socket.Broadcaster) *Store {
	return &Store{
		pool:        pool,
		cache:       cache,
		broadcaster: broadcaster,
		tables:      registry(),
	}
}

// Lookup resolves a table by name.
func (s *Store) Lookup(name string) (Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// ============================================
// Reads
// ============================================

func (s *Store) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	t, err := s.Lookup(table)
	if err != nil {
		return nil, err
	}

	cacheKey := queryCacheKey(q)
	if s.cache != nil {
		var cached []Row
		if err := s.cache.GetCache(ctx, table, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	where, args, err := buildWhere(t, q)
	if err != nil {
		return nil, err
	}

	sql := "SELECT * FROM " + t.Name + where
	if q.OrderBy != "" {
		if !t.readable(q.OrderBy) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, q.OrderBy)
		}
		sql += " ORDER BY " + q.OrderBy
		if q.Desc {
			sql += " DESC"
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachJoins(ctx, t, out); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetCache(ctx, table, cacheKey, out, cacheTTL); err != nil {
			log.Printf("[TableStore] cache write failed for %s: %v", table, err)
		}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, table string, q Query) (int, error) {
	t, err := s.Lookup(table)
	if err != nil {
		return 0, err
	}

	where, args, err := buildWhere(t, q)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+t.Name+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Get fetches one row by id, with joins.
func (s *Store) Get(ctx context.Context, table, id string) (Row, error) {
	rows, err := s.Select(ctx, table, Query{
		Conds: []Cond{{Column: "id", Op: OpEq, Value: id}},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// ============================================
// Writes
// ============================================

func (s *Store) Insert(ctx context.Context, table string, values Row) (Row, error) {
	t, err := s.Lookup(table)
	if err != nil {
		return nil, err
	}

	cols := []string{"id"}
	args := []interface{}{uuid.New().String()}
	if id, ok := values["id"].(string); ok && id != "" {
		args[0] = id
	}

	for col, val := range values {
		if col == "id" {
			continue
		}
		if !t.Columns[col] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
		cols = append(cols, col)
		args = append(args, normalizeArg(t, col, val))
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		t.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	row, err := s.queryOne(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}

	s.afterWrite(ctx, t, "insert", row)
	if err := s.attachJoins(ctx, t, []Row{row}); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Store) Update(ctx context.Context, table, id string, values Row) (Row, error) {
	t, err := s.Lookup(table)
	if err != nil {
		return nil, err
	}

	if t.Name == "channel_delete_requests" {
		if err := s.checkDeleteRequestPatch(ctx, id, values); err != nil {
			return nil, err
		}
	}

	sets := []string{}
	args := []interface{}{}
	for col, val := range values {
		if col == "id" {
			continue
		}
		if !t.Columns[col] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
		args = append(args, normalizeArg(t, col, val))
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return s.Get(ctx, table, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *",
		t.Name, strings.Join(sets, ", "), len(args))

	row, err := s.queryOne(ctx, sql, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update %s: %w", table, err)
	}

	s.afterWrite(ctx, t, "update", row)
	if err := s.attachJoins(ctx, t, []Row{row}); err != nil {
		return nil, err
	}
	return row, nil
}

// Delete removes a row. When the table has an owner column the acting user
// must match it; this re-enforces the client-side check.
func (s *Store) Delete(ctx context.Context, table, id, actingUserID string) error {
	t, err := s.Lookup(table)
	if err != nil {
		return err
	}

	if t.OwnerColumn != "" {
		row, err := s.Get(ctx, table, id)
		if err != nil {
			return err
		}
		if owner, _ := row[t.OwnerColumn].(string); owner != actingUserID {
			return ErrForbidden
		}
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", t.Name), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.afterWrite(ctx, t, "delete", Row{"id": id})
	return nil
}

func (s *Store) afterWrite(ctx context.Context, t Table, event string, row Row) {
	if s.cache != nil {
		if err := s.cache.InvalidateTable(ctx, t.Name); err != nil {
			log.Printf("[TableStore] cache invalidate failed for %s: %v", t.Name, err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastChange(t.Name, event, row)
		// notifications are also pushed at the recipient directly
		if t.Name == "notifications" && event == "insert" {
			if userID, _ := row["user_id"].(string); userID != "" {
				s.broadcaster.SendToUser(userID, t.Name, event, row)
			}
		}
	}
}

// ============================================
// SQL helpers
// ============================================

func buildWhere(t Table, q Query) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	for _, c := range q.Conds {
		if !t.readable(c.Column) {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, c.Column)
		}
		args = append(args, c.Value)
		n := len(args)
		switch c.Op {
		case OpEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", c.Column, n))
		case OpNeq:
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", c.Column, n))
		case OpGt:
			clauses = append(clauses, fmt.Sprintf("%s > $%d", c.Column, n))
		case OpContains:
			if !t.ArrayColumns[c.Column] {
				return "", nil, fmt.Errorf("contains needs an array column, %s.%s is not", t.Name, c.Column)
			}
			clauses = append(clauses, fmt.Sprintf("%s @> ARRAY[$%d]::text[]", c.Column, n))
		default:
			return "", nil, fmt.Errorf("unknown operator %q", c.Op)
		}
	}

	if q.SearchColumn != "" && q.SearchTerm != "" {
		if !t.readable(q.SearchColumn) {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, q.SearchColumn)
		}
		args = append(args, "%"+q.SearchTerm+"%")
		clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", q.SearchColumn, len(args)))
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (s *Store) queryOne(ctx context.Context, sql string, args ...interface{}) (Row, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, pgx.ErrNoRows
	}
	return out[0], nil
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	fields := rows.FieldDescriptions()
	out := []Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			if f.Name == "password_hash" {
				continue
			}
			row[f.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeValue turns pgx scan values into JSON-friendly ones.
func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil, string, bool, int, int32, int64, float64, time.Time:
		return x
	case []string:
		return x
	case []interface{}:
		strs := make([]string, 0, len(x))
		for _, it := range x {
			strs = append(strs, fmt.Sprintf("%v", it))
		}
		return strs
	case driver.Valuer:
		val, err := x.Value()
		if err != nil {
			return nil
		}
		return normalizeValue(val)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// normalizeArg converts JSON payload values into bindable arguments.
func normalizeArg(t Table, col string, val interface{}) interface{} {
	if t.ArrayColumns[col] {
		switch x := val.(type) {
		case []string:
			return x
		case []interface{}:
			strs := make([]string, 0, len(x))
			for _, it := range x {
				strs = append(strs, fmt.Sprintf("%v", it))
			}
			return strs
		case nil:
			return []string{}
		}
	}
	return val
}

// attachJoins embeds the referenced user profile under the table's join
// field.
func (s *Store) attachJoins(ctx context.Context, t Table, rows []Row) error {
	if t.UserJoinColumn == "" || len(rows) == 0 {
		return nil
	}

	ids := map[string]bool{}
	for _, r := range rows {
		if id, _ := r[t.UserJoinColumn].(string); id != "" {
			ids[id] = true
		}
	}
	if len(ids) == 0 {
		return nil
	}

	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	userRows, err := s.pool.Query(ctx,
		"SELECT id, full_name, email, avatar_url FROM users WHERE id = ANY($1)", list)
	if err != nil {
		return fmt.Errorf("join users: %w", err)
	}
	defer userRows.Close()

	users := map[string]Row{}
	for userRows.Next() {
		var id, fullName, email string
		var avatarURL *string
		if err := userRows.Scan(&id, &fullName, &email, &avatarURL); err != nil {
			return err
		}
		u := Row{"id": id, "full_name": fullName, "email": email}
		if avatarURL != nil {
			u["avatar_url"] = *avatarURL
		}
		users[id] = u
	}
	if err := userRows.Err(); err != nil {
		return err
	}

	for _, r := range rows {
		if id, _ := r[t.UserJoinColumn].(string); id != "" {
			if u, ok := users[id]; ok {
				r[t.UserJoinField] = u
			}
		}
	}
	return nil
}

func (t Table) readable(col string) bool {
	return col == "id" || col == "created_at" || t.Columns[col]
}

func queryCacheKey(q Query) string {
	var b strings.Builder
	for _, c := range q.Conds {
		fmt.Fprintf(&b, "%s.%s.%s|", c.Column, c.Op, c.Value)
	}
	fmt.Fprintf(&b, "s:%s:%s|o:%s:%t|l:%d", q.SearchColumn, q.SearchTerm, q.OrderBy, q.Desc, q.Limit)
	return b.String()
}
