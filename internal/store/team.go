// internal/store/team.go
package store

import (
	"context"
	"fmt"
	"path"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

// TeamStore caches the member directory.
type TeamStore struct {
	*Store[types.User]
}

func NewTeamStore(provider backend.Provider, sess *session.Session) *TeamStore {
	return &TeamStore{
		Store: New[types.User](provider, sess, Config{
			Table: backend.TableUsers,
			Query: func() backend.Query {
				return backend.Query{OrderBy: "full_name"}
			},
		}),
	}
}

// Size returns the current team size, the denominator for channel-delete
// unanimity.
func (ts *TeamStore) Size() int { return ts.Len() }

// MemberIDs returns every cached member id.
func (ts *TeamStore) MemberIDs() []string {
	items := ts.Items()
	ids := make([]string, len(items))
	for i, u := range items {
		ids[i] = u.ID
	}
	return ids
}

// DisplayName resolves a member id to a name, falling back to the id when
// the member is unknown.
func (ts *TeamStore) DisplayName(id string) string {
	if u, ok := ts.Get(id); ok {
		return u.FullName
	}
	return id
}

// SetAvatar uploads an avatar image and points the member's profile at it.
func (ts *TeamStore) SetAvatar(ctx context.Context, userID, filename string, data []byte) (types.User, error) {
	if err := ts.Session().Require(); err != nil {
		return types.User{}, err
	}

	key := fmt.Sprintf("%s%s", userID, path.Ext(filename))
	url, err := ts.Provider().Upload(ctx, "avatars", key, data)
	if err != nil {
		return types.User{}, err
	}
	return ts.Update(ctx, userID, backend.Row{"avatar_url": url})
}
