// internal/store/sprints.go
package store

import (
	"context"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

// SprintsStore caches the team's sprints, newest first.
type SprintsStore struct {
	*Store[types.Sprint]
}

func NewSprintsStore(provider backend.Provider, sess *session.Session) *SprintsStore {
	return &SprintsStore{
		Store: New[types.Sprint](provider, sess, Config{
			Table: backend.TableSprints,
			Query: func() backend.Query {
				return backend.Query{OrderBy: "start_date", Desc: true}
			},
			TouchUpdatedAt: true,
		}),
	}
}

func (ss *SprintsStore) Create(ctx context.Context, row backend.Row) (types.Sprint, error) {
	if row.String("status") == "" {
		row["status"] = string(types.SprintPlanning)
	}
	return ss.Store.Create(ctx, row)
}

// Active returns the cached sprint currently marked active, if any.
func (ss *SprintsStore) Active() (types.Sprint, bool) {
	for _, s := range ss.Items() {
		if s.Status == types.SprintActive {
			return s, true
		}
	}
	return types.Sprint{}, false
}

// Start marks a sprint active.
func (ss *SprintsStore) Start(ctx context.Context, id string) (types.Sprint, error) {
	return ss.Update(ctx, id, backend.Row{"status": string(types.SprintActive)})
}

// Complete marks a sprint completed, stamping its end date when the sprint
// runs over.
func (ss *SprintsStore) Complete(ctx context.Context, id string) (types.Sprint, error) {
	patch := backend.Row{"status": string(types.SprintCompleted)}
	if s, ok := ss.Get(id); ok && s.EndDate.Before(time.Now()) {
		patch["end_date"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return ss.Update(ctx, id, patch)
}
