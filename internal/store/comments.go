// internal/store/comments.go
package store

import (
	"context"
	"sync"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

// CommentsStore caches the discussion thread of the note currently in view,
// oldest-first with author join data.
type CommentsStore struct {
	*Store[types.Comment]
	notes  *NotesStore
	notify *notify.Service

	mu      sync.RWMutex
	current string
}

func NewCommentsStore(provider backend.Provider, sess *session.Session, notes *NotesStore, notifier *notify.Service) *CommentsStore {
	cs := &CommentsStore{notes: notes, notify: notifier}
	cs.Store = New[types.Comment](provider, sess, Config{
		Table:          backend.TableComments,
		Append:         true,
		CreatorColumn:  "user_id",
		TouchUpdatedAt: true,
		Query: func() backend.Query {
			return backend.Query{
				Conds:   []backend.Cond{backend.Eq("note_id", cs.NoteID())},
				OrderBy: "created_at",
			}
		},
	})
	return cs
}

// NoteID returns the note whose thread is loaded, or "".
func (cs *CommentsStore) NoteID() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.current
}

// FetchFor loads the thread of a note, replacing whatever was in view.
func (cs *CommentsStore) FetchFor(ctx context.Context, noteID string) error {
	cs.mu.Lock()
	if cs.current == noteID {
		cs.mu.Unlock()
		return cs.Fetch(ctx, false)
	}
	cs.current = noteID
	cs.mu.Unlock()

	cs.Replace(nil)
	return cs.Fetch(ctx, true)
}

// Clear drops the loaded thread, e.g. when the note editor closes.
func (cs *CommentsStore) Clear() {
	cs.mu.Lock()
	cs.current = ""
	cs.mu.Unlock()
	cs.Replace(nil)
	cs.Invalidate()
}

// Add posts a comment to the loaded note. The note's creator and assignees,
// minus the commenter, get a notification.
func (cs *CommentsStore) Add(ctx context.Context, content string) (types.Comment, error) {
	noteID := cs.NoteID()
	if noteID == "" {
		return types.Comment{}, backend.ErrNotFound
	}

	comment, err := cs.Create(ctx, backend.Row{
		"note_id": noteID,
		"content": content,
	})
	if err != nil {
		return types.Comment{}, err
	}

	if note, ok := cs.notes.Get(noteID); ok {
		recipients := append([]string{note.CreatedBy}, note.AssignedTo...)
		cs.notify.SendComment(ctx, recipients, note.ID, note.Title)
	}
	return comment, nil
}

// Edit rewrites a comment's content.
func (cs *CommentsStore) Edit(ctx context.Context, id, content string) (types.Comment, error) {
	return cs.Update(ctx, id, backend.Row{"content": content})
}

// Remove deletes the user's own comment.
func (cs *CommentsStore) Remove(ctx context.Context, id string) error {
	return cs.Delete(ctx, id)
}
