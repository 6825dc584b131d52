// internal/store/guard_test.go
package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardDedup(t *testing.T) {
	var g Guard

	assert.True(t, g.Begin(false), "first fetch runs")
	assert.False(t, g.Begin(false), "no second fetch while one is in flight")
	assert.False(t, g.Begin(true), "not even a forced one")
	g.Done()

	assert.False(t, g.Begin(false), "already fetched")
	assert.True(t, g.Fetched())

	assert.True(t, g.Begin(true), "force bypasses the fetched mark")
	g.Done()

	g.Invalidate()
	assert.False(t, g.Fetched())
	assert.True(t, g.Begin(false))
	g.Done()
}
