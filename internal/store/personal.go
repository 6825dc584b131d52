// internal/store/personal.go
package store

import (
	"context"
	"sort"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

// PersonalStore caches the private notes the user owns plus the ones shared
// with them. The backend has no OR filter, so the fetch is two selects
// merged and deduped by id.
type PersonalStore struct {
	*Store[types.PersonalNote]
	notify *notify.Service
}

func NewPersonalStore(provider backend.Provider, sess *session.Session, notifier *notify.Service) *PersonalStore {
	return &PersonalStore{
		Store: New[types.PersonalNote](provider, sess, Config{
			Table:          backend.TablePersonalNotes,
			TouchUpdatedAt: true,
		}),
		notify: notifier,
	}
}

func (ps *PersonalStore) Fetch(ctx context.Context, force bool) error {
	return ps.FetchWith(ctx, force, func(ctx context.Context) ([]types.PersonalNote, error) {
		me := ps.Session().UserID()
		if me == "" {
			return nil, backend.ErrNotSignedIn
		}

		mine, err := ps.Provider().Select(ctx, backend.TablePersonalNotes, backend.Query{
			Conds: []backend.Cond{backend.Eq("created_by", me)},
		})
		if err != nil {
			return nil, err
		}
		shared, err := ps.Provider().Select(ctx, backend.TablePersonalNotes, backend.Query{
			Conds: []backend.Cond{backend.Contains("shared_with", me)},
		})
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool, len(mine)+len(shared))
		var rows []backend.Row
		for _, r := range append(mine, shared...) {
			if id := r.ID(); !seen[id] {
				seen[id] = true
				rows = append(rows, r)
			}
		}

		notes, err := backend.DecodeRows[types.PersonalNote](rows)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(notes, func(i, j int) bool {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		})
		return notes, nil
	})
}

func (ps *PersonalStore) Create(ctx context.Context, row backend.Row) (types.PersonalNote, error) {
	if _, ok := row["shared_with"]; !ok {
		row["shared_with"] = []string{}
	}
	note, err := ps.Store.Create(ctx, row)
	if err != nil {
		return types.PersonalNote{}, err
	}
	ps.notify.SendShared(ctx, note.SharedWith, note.Title)
	return note, nil
}

// Share adds users to the note's share list, notifying only the new ones.
func (ps *PersonalStore) Share(ctx context.Context, id string, userIDs []string) (types.PersonalNote, error) {
	before, ok := ps.Get(id)
	if !ok {
		return types.PersonalNote{}, backend.ErrNotFound
	}

	merged := append([]string{}, before.SharedWith...)
	for _, uid := range diffIDs(before.SharedWith, userIDs) {
		merged = append(merged, uid)
	}

	note, err := ps.Store.Update(ctx, id, backend.Row{"shared_with": merged})
	if err != nil {
		return types.PersonalNote{}, err
	}
	ps.notify.SendShared(ctx, diffIDs(before.SharedWith, note.SharedWith), note.Title)
	return note, nil
}
