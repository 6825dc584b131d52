// internal/store/team_test.go
package store

import (
	"context"
	"testing"

	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamDirectory(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")
	team := NewTeamStore(provider, sess)

	require.NoError(t, team.Fetch(ctx, false))
	assert.Equal(t, 3, team.Size())
	assert.Len(t, team.MemberIDs(), 3)
	assert.Equal(t, "Ana Torres", team.DisplayName(memory.UserAna))
	assert.Equal(t, "ghost-id", team.DisplayName("ghost-id"), "unknown ids fall back to the id")
}

func TestSetAvatar(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")
	team := NewTeamStore(provider, sess)
	require.NoError(t, team.Fetch(ctx, false))

	user, err := team.SetAvatar(ctx, memory.UserCarlos, "face.png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	require.NotNil(t, user.AvatarURL)
	assert.Contains(t, *user.AvatarURL, "avatars/"+memory.UserCarlos+".png")
}
