// internal/server/tablestore/registry_test.go
package tablestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The client refreshes updated_at when patching these tables; the allowlist
// must accept it there and only there, mirroring the schema.
func TestRegistryUpdatedAtMatchesSchema(t *testing.T) {
	reg := registry()

	withColumn := []string{"notes", "comments", "meetings", "expenses",
		"personal_notes", "sprints", "chat_channels"}
	for _, name := range withColumn {
		assert.True(t, reg[name].Columns["updated_at"], "%s accepts updated_at", name)
	}

	withoutColumn := []string{"users", "chat_messages", "channel_delete_requests",
		"notifications", "expense_categories"}
	for _, name := range withoutColumn {
		assert.False(t, reg[name].Columns["updated_at"], "%s has no updated_at column", name)
	}
}

// Every column the client writes in an update must be on the allowlist, or
// the whole patch is rejected with an unknown-column error.
func TestRegistryAcceptsClientPatches(t *testing.T) {
	reg := registry()

	patches := map[string][]string{
		"users":                   {"avatar_url"},
		"notes":                   {"status", "assigned_to", "parent_id", "updated_at"},
		"comments":                {"content", "updated_at"},
		"meetings":                {"participants", "updated_at"},
		"personal_notes":          {"shared_with", "updated_at"},
		"sprints":                 {"status", "end_date", "updated_at"},
		"chat_messages":           {"content", "edited_at"},
		"channel_delete_requests": {"approvals", "rejections", "status"},
		"notifications":           {"read"},
	}
	for table, columns := range patches {
		tbl, ok := reg[table]
		assert.True(t, ok, "table %s is exposed", table)
		for _, col := range columns {
			assert.True(t, tbl.Columns[col], "%s.%s is writable", table, col)
		}
	}
}
