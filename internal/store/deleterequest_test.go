// internal/store/deleterequest_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// voter bundles one member's view of the shared backend.
type voter struct {
	sess     *session.Session
	chat     *ChatStore
	requests *DeleteRequestsStore
}

func newVoter(t *testing.T, provider backend.Provider, email string) *voter {
	t.Helper()
	ctx := context.Background()

	sess := signedInSession(t, provider, email)
	team := NewTeamStore(provider, sess)
	chat := NewChatStore(provider, sess)
	require.NoError(t, team.Fetch(ctx, false))
	require.NoError(t, chat.FetchChannels(ctx, false))

	requests := NewDeleteRequestsStore(provider, sess, chat, team)
	require.NoError(t, requests.Fetch(ctx, false))
	return &voter{sess: sess, chat: chat, requests: requests}
}

func channelExists(t *testing.T, provider backend.Provider, id string) bool {
	t.Helper()
	rows, err := provider.Select(context.Background(), backend.TableChatChannels, backend.Query{
		Conds: []backend.Cond{backend.Eq("id", id)},
	})
	require.NoError(t, err)
	return len(rows) > 0
}

func TestUnanimousApprovalDeletesChannel(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := newVoter(t, provider, "carlos@demo.team")
	req, err := carlos.requests.Request(ctx, memory.ChannelRandom)
	require.NoError(t, err)
	assert.Equal(t, types.DeleteRequestPending, req.Status)
	assert.Equal(t, []string{memory.UserCarlos}, req.Approvals, "the requester's approval is counted immediately")

	ana := newVoter(t, provider, "ana@demo.team")
	req, err = ana.requests.Vote(ctx, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, types.DeleteRequestPending, req.Status, "2 of 3 is not unanimity")
	assert.True(t, channelExists(t, provider, memory.ChannelRandom))

	luis := newVoter(t, provider, "luis@demo.team")
	req, err = luis.requests.Vote(ctx, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, types.DeleteRequestApproved, req.Status)
	assert.False(t, channelExists(t, provider, memory.ChannelRandom), "unanimous approval cascades to the channel")
	_, ok := luis.chat.Channel(memory.ChannelRandom)
	assert.False(t, ok)
}

func TestSingleRejectionIsFinal(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := newVoter(t, provider, "carlos@demo.team")
	req, err := carlos.requests.Request(ctx, memory.ChannelDev)
	require.NoError(t, err)

	ana := newVoter(t, provider, "ana@demo.team")
	req, err = ana.requests.Vote(ctx, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, types.DeleteRequestRejected, req.Status)
	assert.True(t, channelExists(t, provider, memory.ChannelDev), "a rejected request never deletes")

	luis := newVoter(t, provider, "luis@demo.team")
	_, err = luis.requests.Vote(ctx, req.ID, true)
	assert.ErrorIs(t, err, ErrVoteClosed)
}

func TestOneVotePerMember(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := newVoter(t, provider, "carlos@demo.team")
	req, err := carlos.requests.Request(ctx, memory.ChannelDev)
	require.NoError(t, err)

	_, err = carlos.requests.Vote(ctx, req.ID, true)
	assert.ErrorIs(t, err, ErrAlreadyVoted, "the requester already voted by requesting")

	ana := newVoter(t, provider, "ana@demo.team")
	_, err = ana.requests.Vote(ctx, req.ID, true)
	require.NoError(t, err)
	_, err = ana.requests.Vote(ctx, req.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}

func TestOnePendingRequestPerChannel(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := newVoter(t, provider, "carlos@demo.team")
	_, err := carlos.requests.Request(ctx, memory.ChannelDev)
	require.NoError(t, err)

	_, err = carlos.requests.Request(ctx, memory.ChannelDev)
	assert.ErrorIs(t, err, ErrRequestExists)
}

func TestOnePersonTeamResolvesImmediately(t *testing.T) {
	ctx := context.Background()
	provider := memory.NewBare()

	sess, err := session.New(provider, filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	_, err = sess.SignUp(ctx, "solo@demo.team", "password", "Solo Dev", false)
	require.NoError(t, err)

	team := NewTeamStore(provider, sess)
	chat := NewChatStore(provider, sess)
	require.NoError(t, team.Fetch(ctx, false))

	ch, err := chat.CreateChannel(ctx, "scratch", "", types.ChannelPublic)
	require.NoError(t, err)

	requests := NewDeleteRequestsStore(provider, sess, chat, team)
	req, err := requests.Request(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DeleteRequestApproved, req.Status)
	assert.False(t, channelExists(t, provider, ch.ID))
}

func TestResolveMath(t *testing.T) {
	pending := types.ChannelDeleteRequest{Status: types.DeleteRequestPending}

	pending.Approvals = []string{"a"}
	assert.Equal(t, types.DeleteRequestPending, resolve(pending, 3))

	pending.Approvals = []string{"a", "b", "c"}
	assert.Equal(t, types.DeleteRequestApproved, resolve(pending, 3))

	pending.Rejections = []string{"d"}
	assert.Equal(t, types.DeleteRequestRejected, resolve(pending, 3), "any rejection wins")

	// Unknown team size never auto-approves.
	assert.Equal(t, types.DeleteRequestPending,
		resolve(types.ChannelDeleteRequest{Status: types.DeleteRequestPending, Approvals: []string{"a"}}, 0))
}
