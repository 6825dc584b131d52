// internal/store/meetings.go
package store

import (
	"context"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

// MeetingsStore caches scheduled meetings, ordered soonest-first, and
// notifies newly invited participants.
type MeetingsStore struct {
	*Store[types.Meeting]
	notify *notify.Service
}

func NewMeetingsStore(provider backend.Provider, sess *session.Session, notifier *notify.Service) *MeetingsStore {
	return &MeetingsStore{
		Store: New[types.Meeting](provider, sess, Config{
			Table: backend.TableMeetings,
			Query: func() backend.Query {
				return backend.Query{OrderBy: "starts_at"}
			},
			TouchUpdatedAt: true,
		}),
		notify: notifier,
	}
}

func (ms *MeetingsStore) Create(ctx context.Context, row backend.Row) (types.Meeting, error) {
	if _, ok := row["participants"]; !ok {
		row["participants"] = []string{}
	}
	meeting, err := ms.Store.Create(ctx, row)
	if err != nil {
		return types.Meeting{}, err
	}
	ms.notify.SendMeetingInvite(ctx, meeting.Participants, meeting.Title)
	return meeting, nil
}

func (ms *MeetingsStore) Update(ctx context.Context, id string, patch backend.Row) (types.Meeting, error) {
	before, _ := ms.Get(id)

	meeting, err := ms.Store.Update(ctx, id, patch)
	if err != nil {
		return types.Meeting{}, err
	}

	if _, changed := patch["participants"]; changed {
		added := diffIDs(before.Participants, meeting.Participants)
		ms.notify.SendMeetingInvite(ctx, added, meeting.Title)
	}
	return meeting, nil
}

// Upcoming returns cached meetings starting at or after now.
func (ms *MeetingsStore) Upcoming(now time.Time) []types.Meeting {
	var out []types.Meeting
	for _, m := range ms.Items() {
		if !m.StartsAt.Before(now) {
			out = append(out, m)
		}
	}
	return out
}
