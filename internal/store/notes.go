// internal/store/notes.go
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

var ErrNestedSubtask = errors.New("subtasks cannot have subtasks")

// NotesFilter is the active filter set for the notes collection. Zero
// fields are inactive.
type NotesFilter struct {
	Type     types.NoteType
	Status   types.NoteStatus
	Priority types.Priority
	Project  string
	Assignee string
	Search   string
}

// FilterPatch updates part of the filter; nil fields are untouched.
type FilterPatch struct {
	Type     *types.NoteType
	Status   *types.NoteStatus
	Priority *types.Priority
	Project  *string
	Assignee *string
	Search   *string
}

// NotesStore caches the team's notes (tasks, bugs, features, plain notes)
// with filtering, subtask support, and assignment notifications.
type NotesStore struct {
	*Store[types.Note]
	notify *notify.Service

	fmu    sync.RWMutex
	filter NotesFilter
}

func NewNotesStore(provider backend.Provider, sess *session.Session, notifier *notify.Service) *NotesStore {
	ns := &NotesStore{notify: notifier}
	ns.Store = New[types.Note](provider, sess, Config{
		Table:          backend.TableNotes,
		Query:          ns.buildQuery,
		TouchUpdatedAt: true,
	})
	return ns
}

func (ns *NotesStore) buildQuery() backend.Query {
	ns.fmu.RLock()
	f := ns.filter
	ns.fmu.RUnlock()

	q := backend.Query{OrderBy: "created_at", Desc: true}
	if f.Type != "" {
		q.Conds = append(q.Conds, backend.Eq("type", string(f.Type)))
	}
	if f.Status != "" {
		q.Conds = append(q.Conds, backend.Eq("status", string(f.Status)))
	}
	if f.Priority != "" {
		q.Conds = append(q.Conds, backend.Eq("priority", string(f.Priority)))
	}
	if f.Project != "" {
		q.Conds = append(q.Conds, backend.Eq("project", f.Project))
	}
	if f.Assignee != "" {
		q.Conds = append(q.Conds, backend.Contains("assigned_to", f.Assignee))
	}
	if f.Search != "" {
		q.SearchColumn, q.SearchTerm = "title", f.Search
	}
	return q
}

// Filter returns the active filter set.
func (ns *NotesStore) Filter() NotesFilter {
	ns.fmu.RLock()
	defer ns.fmu.RUnlock()
	return ns.filter
}

// SetFilter merges the patch into the active filters and re-fetches.
func (ns *NotesStore) SetFilter(ctx context.Context, patch FilterPatch) error {
	ns.fmu.Lock()
	if patch.Type != nil {
		ns.filter.Type = *patch.Type
	}
	if patch.Status != nil {
		ns.filter.Status = *patch.Status
	}
	if patch.Priority != nil {
		ns.filter.Priority = *patch.Priority
	}
	if patch.Project != nil {
		ns.filter.Project = *patch.Project
	}
	if patch.Assignee != nil {
		ns.filter.Assignee = *patch.Assignee
	}
	if patch.Search != nil {
		ns.filter.Search = *patch.Search
	}
	ns.fmu.Unlock()

	return ns.Fetch(ctx, true)
}

// ClearFilter resets every filter and re-fetches.
func (ns *NotesStore) ClearFilter(ctx context.Context) error {
	ns.fmu.Lock()
	ns.filter = NotesFilter{}
	ns.fmu.Unlock()
	return ns.Fetch(ctx, true)
}

// Create inserts a note, filling the defaults a bare payload omits: type
// note, status pending, priority medium, due date today. Newly assigned
// users other than the actor get a notification.
func (ns *NotesStore) Create(ctx context.Context, row backend.Row) (types.Note, error) {
	if row.String("type") == "" {
		row["type"] = string(types.NotePlain)
	}
	if row.String("status") == "" {
		row["status"] = string(types.StatusPending)
	}
	if row.String("priority") == "" {
		row["priority"] = string(types.PriorityMedium)
	}
	if row.String("due_date") == "" {
		row["due_date"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if _, ok := row["assigned_to"]; !ok {
		row["assigned_to"] = []string{}
	}
	if _, ok := row["tags"]; !ok {
		row["tags"] = []string{}
	}

	if parent := row.String("parent_id"); parent != "" {
		if err := ns.checkParent(parent); err != nil {
			return types.Note{}, err
		}
	}

	note, err := ns.Store.Create(ctx, row)
	if err != nil {
		return types.Note{}, err
	}

	ns.notify.SendAssigned(ctx, note.AssignedTo, note.ID, note.Title)
	return note, nil
}

// Update patches a note. Only assignees added by this patch are notified;
// a status change notifies the remaining assignees.
func (ns *NotesStore) Update(ctx context.Context, id string, patch backend.Row) (types.Note, error) {
	if parent := patch.String("parent_id"); parent != "" {
		if err := ns.checkParent(parent); err != nil {
			return types.Note{}, err
		}
	}

	before, _ := ns.Get(id)

	note, err := ns.Store.Update(ctx, id, patch)
	if err != nil {
		return types.Note{}, err
	}

	if _, changed := patch["assigned_to"]; changed {
		added := diffIDs(before.AssignedTo, note.AssignedTo)
		ns.notify.SendAssigned(ctx, added, note.ID, note.Title)
	}
	if status := patch.String("status"); status != "" && status != string(before.Status) {
		ns.notify.SendStatusChanged(ctx, note.AssignedTo, note.ID, note.Title, note.Status)
	}
	return note, nil
}

// TopLevel returns the cached notes without a parent.
func (ns *NotesStore) TopLevel() []types.Note {
	var out []types.Note
	for _, n := range ns.Items() {
		if n.ParentID == nil {
			out = append(out, n)
		}
	}
	return out
}

// Subtasks returns the cached children of a note.
func (ns *NotesStore) Subtasks(parentID string) []types.Note {
	var out []types.Note
	for _, n := range ns.Items() {
		if n.ParentID != nil && *n.ParentID == parentID {
			out = append(out, n)
		}
	}
	return out
}

// checkParent rejects a parent that is itself a subtask; nesting is capped
// at one level, which also rules out cycles.
func (ns *NotesStore) checkParent(parentID string) error {
	if parent, ok := ns.Get(parentID); ok && parent.ParentID != nil {
		return ErrNestedSubtask
	}
	return nil
}

// diffIDs returns the ids in after that are missing from before.
func diffIDs(before, after []string) []string {
	known := make(map[string]bool, len(before))
	for _, id := range before {
		known[id] = true
	}
	var added []string
	for _, id := range after {
		if !known[id] {
			added = append(added, id)
		}
	}
	return added
}
