// internal/store/chat.go
package store

import (
	"context"
	"sync"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

// messageHistoryLimit caps how much channel history a fetch pulls in.
const messageHistoryLimit = 100

// ChatStore caches the channel list and the message history of the channel
// currently in view. Messages read oldest-first.
type ChatStore struct {
	channels *Store[types.ChatChannel]
	messages *Store[types.ChatMessage]
	session  *session.Session

	mu      sync.RWMutex
	current string
}

func NewChatStore(provider backend.Provider, sess *session.Session) *ChatStore {
	cs := &ChatStore{session: sess}
	cs.channels = New[types.ChatChannel](provider, sess, Config{
		Table: backend.TableChatChannels,
		Query: func() backend.Query {
			return backend.Query{OrderBy: "created_at"}
		},
		TouchUpdatedAt: true,
	})
	cs.messages = New[types.ChatMessage](provider, sess, Config{
		Table:         backend.TableChatMessages,
		Append:        true,
		CreatorColumn: "user_id",
		Query: func() backend.Query {
			return backend.Query{
				Conds:   []backend.Cond{backend.Eq("channel_id", cs.CurrentChannelID())},
				OrderBy: "created_at",
				Limit:   messageHistoryLimit,
			}
		},
	})
	return cs
}

// ============================================
// Channels
// ============================================

// FetchChannels loads the channel list. When nothing is selected yet the
// first channel becomes current.
func (cs *ChatStore) FetchChannels(ctx context.Context, force bool) error {
	if err := cs.channels.Fetch(ctx, force); err != nil {
		return err
	}

	cs.mu.Lock()
	if cs.current == "" {
		if chans := cs.channels.Items(); len(chans) > 0 {
			cs.current = chans[0].ID
		}
	}
	cs.mu.Unlock()
	return nil
}

func (cs *ChatStore) Channels() []types.ChatChannel { return cs.channels.Items() }

func (cs *ChatStore) Channel(id string) (types.ChatChannel, bool) { return cs.channels.Get(id) }

// CurrentChannelID returns the id of the channel in view, or "".
func (cs *ChatStore) CurrentChannelID() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.current
}

// CurrentChannel returns the channel in view.
func (cs *ChatStore) CurrentChannel() (types.ChatChannel, bool) {
	return cs.channels.Get(cs.CurrentChannelID())
}

// SelectChannel switches the view to another channel and loads its history.
func (cs *ChatStore) SelectChannel(ctx context.Context, id string) error {
	cs.mu.Lock()
	if cs.current == id {
		cs.mu.Unlock()
		return cs.messages.Fetch(ctx, false)
	}
	cs.current = id
	cs.mu.Unlock()

	cs.messages.Replace(nil)
	return cs.messages.Fetch(ctx, true)
}

// CreateChannel inserts a channel and appends the authoritative row.
func (cs *ChatStore) CreateChannel(ctx context.Context, name, description string, kind types.ChannelType) (types.ChatChannel, error) {
	if kind == "" {
		kind = types.ChannelPublic
	}
	row := backend.Row{
		"name":        name,
		"description": description,
		"type":        string(kind),
	}
	ch, err := cs.channels.Create(ctx, row)
	if err != nil {
		return types.ChatChannel{}, err
	}
	// channels list reads oldest-first; move the new row to the end
	cs.channels.MergeRemove(ch.ID)
	items := append(cs.channels.Items(), ch)
	cs.channels.Replace(items)
	return ch, nil
}

// RemoveChannel drops a channel from the cache (used by the delete-request
// cascade and realtime deletes), moving the view off it if needed.
func (cs *ChatStore) RemoveChannel(id string) {
	cs.channels.MergeRemove(id)

	cs.mu.Lock()
	if cs.current == id {
		cs.current = ""
		if chans := cs.channels.Items(); len(chans) > 0 {
			cs.current = chans[0].ID
		}
	}
	cs.mu.Unlock()
}

// ============================================
// Messages
// ============================================

func (cs *ChatStore) FetchMessages(ctx context.Context, force bool) error {
	return cs.messages.Fetch(ctx, force)
}

func (cs *ChatStore) Messages() []types.ChatMessage { return cs.messages.Items() }

// MessagesStore exposes the message cache for the realtime bridge.
func (cs *ChatStore) MessagesStore() *Store[types.ChatMessage] { return cs.messages }

// SendMessage posts to the current channel and appends the result locally.
func (cs *ChatStore) SendMessage(ctx context.Context, content string, kind types.MessageType, codeLanguage string) (types.ChatMessage, error) {
	channelID := cs.CurrentChannelID()
	if channelID == "" {
		return types.ChatMessage{}, backend.ErrNotFound
	}
	if kind == "" {
		kind = types.MessageText
	}

	row := backend.Row{
		"channel_id":   channelID,
		"user_id":      cs.session.UserID(),
		"content":      content,
		"message_type": string(kind),
	}
	if codeLanguage != "" {
		row["code_language"] = codeLanguage
	}
	return cs.messages.Create(ctx, row)
}

// EditMessage rewrites a message's content, stamping edited_at.
func (cs *ChatStore) EditMessage(ctx context.Context, id, content string) (types.ChatMessage, error) {
	return cs.messages.Update(ctx, id, backend.Row{
		"content":   content,
		"edited_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// DeleteMessage removes the user's own message.
func (cs *ChatStore) DeleteMessage(ctx context.Context, id string) error {
	return cs.messages.Delete(ctx, id)
}
