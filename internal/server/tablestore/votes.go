// internal/server/tablestore/votes.go
package tablestore

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrVoteClosed    = errors.New("delete request is no longer pending")
	ErrDoubleVote    = errors.New("member already voted on this request")
	ErrVoteShrunk    = errors.New("votes cannot be removed")
	ErrBadTransition = errors.New("invalid status transition")
)

// checkDeleteRequestPatch re-enforces the vote rules server-side so a buggy
// client cannot rewrite history: votes only grow, nobody votes twice, and
// status moves pending -> approved/rejected exactly once.
func (s *Store) checkDeleteRequestPatch(ctx context.Context, id string, patch Row) error {
	existing, err := s.Get(ctx, "channel_delete_requests", id)
	if err != nil {
		return err
	}
	return validateVotePatch(existing, patch)
}

func validateVotePatch(existing, patch Row) error {
	status, _ := existing["status"].(string)
	if status != "pending" {
		return ErrVoteClosed
	}

	if next, ok := patch["status"].(string); ok {
		if next != "pending" && next != "approved" && next != "rejected" {
			return fmt.Errorf("%w: %s -> %s", ErrBadTransition, status, next)
		}
	}

	oldApprovals := stringSlice(existing["approvals"])
	oldRejections := stringSlice(existing["rejections"])
	newApprovals := oldApprovals
	newRejections := oldRejections
	if v, ok := patch["approvals"]; ok {
		newApprovals = stringSlice(v)
	}
	if v, ok := patch["rejections"]; ok {
		newRejections = stringSlice(v)
	}

	if !isPrefix(oldApprovals, newApprovals) || !isPrefix(oldRejections, newRejections) {
		return ErrVoteShrunk
	}

	seen := map[string]bool{}
	for _, id := range append(append([]string{}, newApprovals...), newRejections...) {
		if seen[id] {
			return ErrDoubleVote
		}
		seen[id] = true
	}
	return nil
}

func stringSlice(v interface{}) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, it := range x {
			out = append(out, fmt.Sprintf("%v", it))
		}
		return out
	}
	return nil
}

func isPrefix(before, after []string) bool {
	if len(after) < len(before) {
		return false
	}
	for i, id := range before {
		if after[i] != id {
			return false
		}
	}
	return true
}
