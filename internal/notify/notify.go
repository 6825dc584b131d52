// internal/notify/notify.go
//
// Package notify fans notification rows out to teammates affected by a
// change. Delivery is best effort: a failed insert never fails the
// operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
)

// Service writes notification rows through the provider.
type Service struct {
	provider backend.Provider
	session  *session.Session
}

func NewService(provider backend.Provider, sess *session.Session) *Service {
	return &Service{provider: provider, session: sess}
}

// SendAssigned notifies each newly assigned user about a note, skipping the
// acting user and empty ids.
func (s *Service) SendAssigned(ctx context.Context, userIDs []string, noteID, noteTitle string) {
	s.sendToUsers(ctx, userIDs, types.NotifyAssignment,
		"New assignment",
		fmt.Sprintf("You have been assigned to: %s", noteTitle),
		&noteID)
}

// SendStatusChanged notifies the note's assignees about a status change.
func (s *Service) SendStatusChanged(ctx context.Context, userIDs []string, noteID, noteTitle string, status types.NoteStatus) {
	s.sendToUsers(ctx, userIDs, types.NotifyStatusChange,
		"Status changed",
		fmt.Sprintf("'%s' moved to %s", noteTitle, formatStatus(status)),
		&noteID)
}

// SendComment notifies the people on a note that someone commented on it.
func (s *Service) SendComment(ctx context.Context, userIDs []string, noteID, noteTitle string) {
	s.sendToUsers(ctx, userIDs, types.NotifyComment,
		"New comment",
		fmt.Sprintf("New comment on: %s", noteTitle),
		&noteID)
}

// SendMeetingInvite notifies newly added participants of a meeting.
func (s *Service) SendMeetingInvite(ctx context.Context, userIDs []string, meetingTitle string) {
	s.sendToUsers(ctx, userIDs, types.NotifyMention,
		"Meeting invitation",
		fmt.Sprintf("You were added to the meeting: %s", meetingTitle),
		nil)
}

// SendShared notifies users a personal note was shared with.
func (s *Service) SendShared(ctx context.Context, userIDs []string, noteTitle string) {
	s.sendToUsers(ctx, userIDs, types.NotifyMention,
		"Note shared with you",
		fmt.Sprintf("A note was shared with you: %s", noteTitle),
		nil)
}

func (s *Service) sendToUsers(ctx context.Context, userIDs []string, kind types.NotificationType, title, message string, noteID *string) {
	actor := s.session.UserID()
	seen := make(map[string]bool)

	for _, userID := range userIDs {
		if userID == "" || userID == actor || seen[userID] {
			continue
		}
		seen[userID] = true

		row := backend.Row{
			"user_id": userID,
			"type":    string(kind),
			"title":   title,
			"message": message,
			"read":    false,
		}
		if noteID != nil {
			row["note_id"] = *noteID
		}
		if actor != "" {
			row["from_user_id"] = actor
		}

		if _, err := s.provider.Insert(ctx, backend.TableNotifications, row); err != nil {
			log.Printf("[Notify] failed to notify user %s: %v", userID, err)
		}
	}
}

func formatStatus(status types.NoteStatus) string {
	switch status {
	case types.StatusPending:
		return "Pending"
	case types.StatusInProgress:
		return "In Progress"
	case types.StatusCompleted:
		return "Completed"
	case types.StatusCancelled:
		return "Cancelled"
	}
	return string(status)
}
