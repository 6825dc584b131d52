// internal/server/tablestore/registry.go
package tablestore

func cols(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// registry lists every table the server exposes, with its writable columns.
// A table or column missing here does not exist as far as the API is
// concerned.
func registry() map[string]Table {
	tables := []Table{
		{
			Name:    "users",
			Columns: cols("email", "full_name", "avatar_url", "role"),
		},
		{
			Name: "notes",
			Columns: cols("title", "content", "type", "status", "priority",
				"project", "assigned_to", "created_by", "tags", "parent_id",
				"due_date", "updated_at"),
			ArrayColumns: cols("assigned_to", "tags"),
			OwnerColumn:  "created_by",
		},
		{
			Name:           "comments",
			Columns:        cols("note_id", "user_id", "content", "updated_at"),
			UserJoinColumn: "user_id",
			UserJoinField:  "user",
			OwnerColumn:    "user_id",
		},
		{
			Name: "meetings",
			Columns: cols("title", "description", "starts_at", "duration_min",
				"room_url", "participants", "created_by", "updated_at"),
			ArrayColumns: cols("participants"),
			OwnerColumn:  "created_by",
		},
		{
			Name: "expenses",
			Columns: cols("description", "amount", "incurred_on", "category_id",
				"created_by", "updated_at"),
			OwnerColumn: "created_by",
		},
		{
			Name:    "expense_categories",
			Columns: cols("name", "color"),
		},
		{
			Name: "personal_notes",
			Columns: cols("title", "content", "shared_with", "created_by",
				"updated_at"),
			ArrayColumns: cols("shared_with"),
			OwnerColumn:  "created_by",
		},
		{
			Name: "sprints",
			Columns: cols("name", "goal", "status", "start_date", "end_date",
				"created_by", "updated_at"),
			OwnerColumn: "created_by",
		},
		{
			Name:        "chat_channels",
			Columns:     cols("name", "description", "type", "created_by", "updated_at"),
			OwnerColumn: "",
		},
		{
			Name: "chat_messages",
			Columns: cols("channel_id", "user_id", "content", "message_type",
				"code_language", "edited_at"),
			UserJoinColumn: "user_id",
			UserJoinField:  "user",
			OwnerColumn:    "user_id",
		},
		{
			Name: "channel_delete_requests",
			Columns: cols("channel_id", "requested_by", "approvals",
				"rejections", "status"),
			ArrayColumns: cols("approvals", "rejections"),
		},
		{
			Name: "notifications",
			Columns: cols("user_id", "type", "title", "message", "note_id",
				"from_user_id", "read"),
			UserJoinColumn: "from_user_id",
			UserJoinField:  "from_user",
		},
	}

	m := make(map[string]Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}
