// internal/store/store_test.go
package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider wraps a provider and counts selects per table.
type countingProvider struct {
	backend.Provider

	mu      sync.Mutex
	selects map[string]int
	failing map[string]bool
}

func newCountingProvider(inner backend.Provider) *countingProvider {
	return &countingProvider{
		Provider: inner,
		selects:  make(map[string]int),
		failing:  make(map[string]bool),
	}
}

func (c *countingProvider) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	c.mu.Lock()
	c.selects[table]++
	fail := c.failing[table]
	c.mu.Unlock()
	if fail {
		return nil, errors.New("backend down")
	}
	return c.Provider.Select(ctx, table, q)
}

func (c *countingProvider) selectCount(table string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selects[table]
}

func (c *countingProvider) setFailing(table string, v bool) {
	c.mu.Lock()
	c.failing[table] = v
	c.mu.Unlock()
}

func signedInSession(t *testing.T, provider backend.Provider, email string) *session.Session {
	t.Helper()
	sess, err := session.New(provider, filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	_, err = sess.SignIn(context.Background(), email, "password", false)
	require.NoError(t, err)
	return sess
}

func TestFetchDeduplicates(t *testing.T) {
	ctx := context.Background()
	provider := newCountingProvider(memory.New())
	sess := signedInSession(t, provider, "carlos@demo.team")

	s := New[types.Sprint](provider, sess, Config{Table: backend.TableSprints})

	require.NoError(t, s.Fetch(ctx, false))
	require.NoError(t, s.Fetch(ctx, false))
	require.NoError(t, s.Fetch(ctx, false))
	assert.Equal(t, 1, provider.selectCount(backend.TableSprints), "repeat fetches should be deduplicated")

	require.NoError(t, s.Fetch(ctx, true))
	assert.Equal(t, 2, provider.selectCount(backend.TableSprints), "force should hit the provider")

	s.Invalidate()
	require.NoError(t, s.Fetch(ctx, false))
	assert.Equal(t, 3, provider.selectCount(backend.TableSprints), "invalidate should make the next fetch real")
}

func TestFetchFailureKeepsCacheAndCounts(t *testing.T) {
	ctx := context.Background()
	provider := newCountingProvider(memory.New())
	sess := signedInSession(t, provider, "carlos@demo.team")

	s := New[types.Sprint](provider, sess, Config{Table: backend.TableSprints})
	require.NoError(t, s.Fetch(ctx, false))
	require.Equal(t, 1, s.Len())

	provider.setFailing(backend.TableSprints, true)
	err := s.Fetch(ctx, true)
	require.Error(t, err)
	assert.Equal(t, 1, s.Len(), "failed fetch must not clobber the cache")

	// A failed attempt still counts as fetched.
	require.NoError(t, s.Fetch(ctx, false))
	assert.Equal(t, 2, provider.selectCount(backend.TableSprints))
}

func TestCreateStampsCreator(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")

	s := New[types.Sprint](provider, sess, Config{Table: backend.TableSprints})
	sprint, err := s.Create(ctx, backend.Row{
		"name":       "Sprint 13",
		"status":     "planning",
		"start_date": "2026-09-01T00:00:00Z",
		"end_date":   "2026-09-14T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, memory.UserCarlos, sprint.CreatedBy)
	assert.NotEmpty(t, sprint.ID)

	got, ok := s.Get(sprint.ID)
	require.True(t, ok)
	assert.Equal(t, "Sprint 13", got.Name)
}

func TestMutationsRequireSignIn(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess, err := session.New(provider, filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	s := New[types.Sprint](provider, sess, Config{Table: backend.TableSprints})

	_, err = s.Create(ctx, backend.Row{"name": "nope"})
	assert.ErrorIs(t, err, backend.ErrNotSignedIn)

	_, err = s.Update(ctx, "demo-sprint-1", backend.Row{"name": "nope"})
	assert.ErrorIs(t, err, backend.ErrNotSignedIn)

	assert.ErrorIs(t, s.Delete(ctx, "demo-sprint-1"), backend.ErrNotSignedIn)
}

func TestDeleteOnlyByCreator(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess := signedInSession(t, provider, "ana@demo.team")

	s := New[types.ChatChannel](provider, sess, Config{Table: backend.TableChatChannels})
	require.NoError(t, s.Fetch(ctx, false))

	// #general was created by Carlos; Ana may not delete it.
	err := s.Delete(ctx, memory.ChannelGeneral)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, ok := s.Get(memory.ChannelGeneral)
	assert.True(t, ok)

	// #random is hers.
	require.NoError(t, s.Delete(ctx, memory.ChannelRandom))
	_, ok = s.Get(memory.ChannelRandom)
	assert.False(t, ok)
}

func TestMergeHelpersAreIdempotent(t *testing.T) {
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")

	s := New[types.Sprint](provider, sess, Config{Table: backend.TableSprints})
	sprint := types.Sprint{ID: "s1", Name: "one"}

	s.MergeInsert(sprint)
	s.MergeInsert(sprint)
	assert.Equal(t, 1, s.Len())

	s.MergeUpdate(types.Sprint{ID: "missing", Name: "ghost"})
	assert.Equal(t, 1, s.Len())

	s.MergeUpdate(types.Sprint{ID: "s1", Name: "renamed"})
	got, _ := s.Get("s1")
	assert.Equal(t, "renamed", got.Name)

	s.MergeRemove("missing")
	assert.Equal(t, 1, s.Len())

	s.Select("s1")
	s.MergeRemove("s1")
	assert.Equal(t, 0, s.Len())
	_, ok := s.Selected()
	assert.False(t, ok, "removing the selected item clears the selection")
}

func TestReplaceKeepsValidSelection(t *testing.T) {
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")
	s := New[types.Sprint](provider, sess, Config{Table: backend.TableSprints})

	s.Replace([]types.Sprint{{ID: "a"}, {ID: "b"}})
	s.Select("b")

	s.Replace([]types.Sprint{{ID: "b"}})
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", sel.ID)

	s.Replace([]types.Sprint{{ID: "c"}})
	_, ok = s.Selected()
	assert.False(t, ok)
}

// ============================================
// Server column compatibility
// ============================================

// recordingProvider captures the last update patch per table.
type recordingProvider struct {
	backend.Provider

	mu      sync.Mutex
	patches map[string]backend.Row
}

func newRecordingProvider(inner backend.Provider) *recordingProvider {
	return &recordingProvider{Provider: inner, patches: make(map[string]backend.Row)}
}

func (r *recordingProvider) Update(ctx context.Context, table, id string, patch backend.Row) (backend.Row, error) {
	clone := make(backend.Row, len(patch))
	for k, v := range patch {
		clone[k] = v
	}
	r.mu.Lock()
	r.patches[table] = clone
	r.mu.Unlock()
	return r.Provider.Update(ctx, table, id, patch)
}

func (r *recordingProvider) patch(table string) backend.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.patches[table]
}

// Tables without an updated_at column reject patches that stamp it, so the
// stamp must stay scoped to the tables that carry the column.
func TestUpdateStampsOnlyTimestampedTables(t *testing.T) {
	ctx := context.Background()
	provider := newRecordingProvider(memory.New())

	carlos := signedInSession(t, provider, "carlos@demo.team")
	notifier := notify.NewService(provider, carlos)
	notes := NewNotesStore(provider, carlos, notifier)
	require.NoError(t, notes.Fetch(ctx, false))
	_, err := notes.Update(ctx, "demo-note-1", backend.Row{"status": string(types.StatusCompleted)})
	require.NoError(t, err)
	assert.Contains(t, provider.patch(backend.TableNotes), "updated_at")

	team := NewTeamStore(provider, carlos)
	require.NoError(t, team.Fetch(ctx, false))
	_, err = team.SetAvatar(ctx, memory.UserCarlos, "face.png", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, backend.Row{"avatar_url": "memory://avatars/demo-user-1.png"},
		provider.patch(backend.TableUsers), "users carries no updated_at column")

	chat := NewChatStore(provider, carlos)
	require.NoError(t, chat.FetchChannels(ctx, false))
	require.NoError(t, chat.SelectChannel(ctx, memory.ChannelGeneral))
	msg, err := chat.SendMessage(ctx, "draft", types.MessageText, "")
	require.NoError(t, err)
	_, err = chat.EditMessage(ctx, msg.ID, "final")
	require.NoError(t, err)
	msgPatch := provider.patch(backend.TableChatMessages)
	assert.Contains(t, msgPatch, "edited_at")
	assert.NotContains(t, msgPatch, "updated_at", "chat_messages stamps edited_at instead")

	carlosVoter := newVoter(t, provider, "carlos@demo.team")
	req, err := carlosVoter.requests.Request(ctx, memory.ChannelRandom)
	require.NoError(t, err)
	ana := newVoter(t, provider, "ana@demo.team")
	_, err = ana.requests.Vote(ctx, req.ID, true)
	require.NoError(t, err)
	votePatch := provider.patch(backend.TableDeleteRequests)
	assert.ElementsMatch(t, []string{"approvals", "rejections"}, rowKeys(votePatch))

	inbox := NewNotificationsStore(provider, ana.sess)
	require.NoError(t, inbox.Fetch(ctx, false))
	require.NotZero(t, inbox.Len(), "the status change above notified Ana")
	require.NoError(t, inbox.MarkRead(ctx, inbox.Items()[0].ID))
	assert.Equal(t, backend.Row{"read": true}, provider.patch(backend.TableNotifications))
}

func rowKeys(r backend.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}
