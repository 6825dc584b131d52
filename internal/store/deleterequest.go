// internal/store/deleterequest.go
//
// Channel deletion is consensual: a member files a request, every current
// team member gets one vote, a single rejection kills it, and only
// unanimous approval deletes the channel.
package store

import (
	"context"
	"errors"
	"log"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

var (
	ErrVoteClosed    = errors.New("delete request is no longer pending")
	ErrAlreadyVoted  = errors.New("member already voted on this request")
	ErrRequestExists = errors.New("channel already has a pending delete request")
)

// DeleteRequestsStore caches channel delete requests and runs the vote.
type DeleteRequestsStore struct {
	*Store[types.ChannelDeleteRequest]
	chat *ChatStore
	team *TeamStore
}

func NewDeleteRequestsStore(provider backend.Provider, sess *session.Session, chat *ChatStore, team *TeamStore) *DeleteRequestsStore {
	return &DeleteRequestsStore{
		Store: New[types.ChannelDeleteRequest](provider, sess, Config{
			Table:         backend.TableDeleteRequests,
			CreatorColumn: "requested_by",
		}),
		chat: chat,
		team: team,
	}
}

// Request files a delete request for a channel. The requester's approval is
// counted immediately, so on a one-person team the request resolves at once.
func (ds *DeleteRequestsStore) Request(ctx context.Context, channelID string) (types.ChannelDeleteRequest, error) {
	if err := ds.Session().Require(); err != nil {
		return types.ChannelDeleteRequest{}, err
	}
	if _, ok := ds.PendingFor(channelID); ok {
		return types.ChannelDeleteRequest{}, ErrRequestExists
	}

	me := ds.Session().UserID()
	req, err := ds.Create(ctx, backend.Row{
		"channel_id": channelID,
		"approvals":  []string{me},
		"rejections": []string{},
		"status":     string(types.DeleteRequestPending),
	})
	if err != nil {
		return types.ChannelDeleteRequest{}, err
	}
	return ds.finalize(ctx, req)
}

// Vote records one member's decision and applies the resulting transition.
func (ds *DeleteRequestsStore) Vote(ctx context.Context, requestID string, approve bool) (types.ChannelDeleteRequest, error) {
	if err := ds.Session().Require(); err != nil {
		return types.ChannelDeleteRequest{}, err
	}

	req, ok := ds.Get(requestID)
	if !ok {
		return types.ChannelDeleteRequest{}, backend.ErrNotFound
	}

	voted, err := applyVote(req, ds.Session().UserID(), approve)
	if err != nil {
		return types.ChannelDeleteRequest{}, err
	}

	updated, err := ds.Update(ctx, requestID, backend.Row{
		"approvals":  voted.Approvals,
		"rejections": voted.Rejections,
	})
	if err != nil {
		return types.ChannelDeleteRequest{}, err
	}
	return ds.finalize(ctx, updated)
}

// PendingFor returns the open request for a channel, if any.
func (ds *DeleteRequestsStore) PendingFor(channelID string) (types.ChannelDeleteRequest, bool) {
	for _, r := range ds.Items() {
		if r.ChannelID == channelID && r.Status == types.DeleteRequestPending {
			return r, true
		}
	}
	return types.ChannelDeleteRequest{}, false
}

// finalize resolves a pending request against the current team size: any
// rejection is final, unanimous approval deletes the channel.
func (ds *DeleteRequestsStore) finalize(ctx context.Context, req types.ChannelDeleteRequest) (types.ChannelDeleteRequest, error) {
	if req.Status != types.DeleteRequestPending {
		return req, nil
	}

	status := resolve(req, ds.team.Size())
	if status == types.DeleteRequestPending {
		return req, nil
	}

	updated, err := ds.Update(ctx, req.ID, backend.Row{"status": string(status)})
	if err != nil {
		return types.ChannelDeleteRequest{}, err
	}

	if status == types.DeleteRequestApproved {
		if err := ds.Provider().Delete(ctx, backend.TableChatChannels, req.ChannelID); err != nil {
			log.Printf("[DeleteRequest] channel %s approved but delete failed: %v", req.ChannelID, err)
			return updated, err
		}
		ds.chat.RemoveChannel(req.ChannelID)
	}
	return updated, nil
}

// applyVote appends one member's vote. It fails on a closed request or a
// repeat voter; it never decides the outcome, resolve does.
func applyVote(req types.ChannelDeleteRequest, voter string, approve bool) (types.ChannelDeleteRequest, error) {
	if req.Status != types.DeleteRequestPending {
		return req, ErrVoteClosed
	}
	for _, id := range req.Approvals {
		if id == voter {
			return req, ErrAlreadyVoted
		}
	}
	for _, id := range req.Rejections {
		if id == voter {
			return req, ErrAlreadyVoted
		}
	}

	if approve {
		req.Approvals = append(append([]string{}, req.Approvals...), voter)
	} else {
		req.Rejections = append(append([]string{}, req.Rejections...), voter)
	}
	return req, nil
}

// resolve computes the state a pending request should be in.
func resolve(req types.ChannelDeleteRequest, teamSize int) types.DeleteRequestStatus {
	if len(req.Rejections) > 0 {
		return types.DeleteRequestRejected
	}
	if teamSize > 0 && len(req.Approvals) >= teamSize {
		return types.DeleteRequestApproved
	}
	return types.DeleteRequestPending
}
