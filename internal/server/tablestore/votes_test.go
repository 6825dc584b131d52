// internal/server/tablestore/votes_test.go
package tablestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pendingRequest() Row {
	return Row{
		"id":         "req-1",
		"status":     "pending",
		"approvals":  []interface{}{"u1"},
		"rejections": []interface{}{},
	}
}

func TestValidateVotePatchGrowth(t *testing.T) {
	assert.NoError(t, validateVotePatch(pendingRequest(), Row{
		"approvals": []string{"u1", "u2"},
	}))

	assert.ErrorIs(t, validateVotePatch(pendingRequest(), Row{
		"approvals": []string{},
	}), ErrVoteShrunk, "votes cannot be removed")

	assert.ErrorIs(t, validateVotePatch(pendingRequest(), Row{
		"approvals": []string{"u2", "u1"},
	}), ErrVoteShrunk, "existing votes cannot be reordered")
}

func TestValidateVotePatchDoubleVote(t *testing.T) {
	assert.ErrorIs(t, validateVotePatch(pendingRequest(), Row{
		"approvals": []string{"u1", "u2"},
		"rejections": []string{
			"u2",
		},
	}), ErrDoubleVote)

	assert.ErrorIs(t, validateVotePatch(pendingRequest(), Row{
		"approvals": []string{"u1", "u2", "u2"},
	}), ErrDoubleVote)
}

func TestValidateVotePatchClosedAndStatus(t *testing.T) {
	closed := pendingRequest()
	closed["status"] = "rejected"
	assert.ErrorIs(t, validateVotePatch(closed, Row{
		"approvals": []string{"u1", "u2"},
	}), ErrVoteClosed)

	assert.ErrorIs(t, validateVotePatch(pendingRequest(), Row{
		"status": "cancelled",
	}), ErrBadTransition)

	assert.NoError(t, validateVotePatch(pendingRequest(), Row{"status": "approved"}))
	assert.NoError(t, validateVotePatch(pendingRequest(), Row{"status": "rejected"}))
}

func TestIsPrefix(t *testing.T) {
	assert.True(t, isPrefix(nil, []string{"a"}))
	assert.True(t, isPrefix([]string{"a"}, []string{"a"}))
	assert.True(t, isPrefix([]string{"a"}, []string{"a", "b"}))
	assert.False(t, isPrefix([]string{"a", "b"}, []string{"a"}))
	assert.False(t, isPrefix([]string{"a"}, []string{"b", "a"}))
}
