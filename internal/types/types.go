// internal/types/types.go
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================
// Users
// ============================================

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) GetID() string        { return u.ID }
func (u User) GetCreatedBy() string { return u.ID }

// UserRef is the joined display profile embedded in rows that reference a user.
type UserRef struct {
	ID        string  `json:"id,omitempty"`
	FullName  string  `json:"full_name"`
	Email     string  `json:"email,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// ============================================
// Notes (tasks, bugs, features, plain notes)
// ============================================

type NoteType string

const (
	NoteTask    NoteType = "task"
	NoteChange  NoteType = "change"
	NoteBug     NoteType = "bug"
	NoteFeature NoteType = "feature"
	NotePlain   NoteType = "note"
)

type NoteStatus string

const (
	StatusPending    NoteStatus = "pending"
	StatusInProgress NoteStatus = "in_progress"
	StatusCompleted  NoteStatus = "completed"
	StatusCancelled  NoteStatus = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Note struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Type       NoteType   `json:"type"`
	Status     NoteStatus `json:"status"`
	Priority   Priority   `json:"priority"`
	Project    *string    `json:"project,omitempty"`
	AssignedTo []string   `json:"assigned_to"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Tags       []string   `json:"tags"`
	ParentID   *string    `json:"parent_id,omitempty"`
	DueDate    time.Time  `json:"due_date"`
}

func (n Note) GetID() string        { return n.ID }
func (n Note) GetCreatedBy() string { return n.CreatedBy }

// Comment is a discussion entry under a note.
type Comment struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *UserRef  `json:"user,omitempty"`
}

func (c Comment) GetID() string        { return c.ID }
func (c Comment) GetCreatedBy() string { return c.UserID }

// ============================================
// Meetings
// ============================================

type Meeting struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartsAt     time.Time `json:"starts_at"`
	DurationMin  int       `json:"duration_min"`
	RoomURL      string    `json:"room_url"`
	Participants []string  `json:"participants"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (m Meeting) GetID() string        { return m.ID }
func (m Meeting) GetCreatedBy() string { return m.CreatedBy }

// ============================================
// Expenses
// ============================================

type ExpenseCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Expense struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	IncurredOn  time.Time        `json:"incurred_on"`
	CategoryID  string           `json:"category_id"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Category    *ExpenseCategory `json:"category,omitempty"`
}

func (e Expense) GetID() string        { return e.ID }
func (e Expense) GetCreatedBy() string { return e.CreatedBy }

// ============================================
// Personal notes
// ============================================

type PersonalNote struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	SharedWith []string  `json:"shared_with"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p PersonalNote) GetID() string        { return p.ID }
func (p PersonalNote) GetCreatedBy() string { return p.CreatedBy }

// ============================================
// Sprints
// ============================================

type SprintStatus string

const (
	SprintPlanning  SprintStatus = "planning"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

type Sprint struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Goal      *string      `json:"goal,omitempty"`
	Status    SprintStatus `json:"status"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	CreatedBy string       `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (s Sprint) GetID() string        { return s.ID }
func (s Sprint) GetCreatedBy() string { return s.CreatedBy }

// ============================================
// Chat
// ============================================

type ChannelType string

const (
	ChannelPublic  ChannelType = "public"
	ChannelPrivate ChannelType = "private"
	ChannelDirect  ChannelType = "direct"
)

type ChatChannel struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        ChannelType `json:"type"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (c ChatChannel) GetID() string        { return c.ID }
func (c ChatChannel) GetCreatedBy() string { return c.CreatedBy }

type MessageType string

const (
	MessageText MessageType = "text"
	MessageCode MessageType = "code"
)

type ChatMessage struct {
	ID           string      `json:"id"`
	ChannelID    string      `json:"channel_id"`
	UserID       string      `json:"user_id"`
	Content      string      `json:"content"`
	MessageType  MessageType `json:"message_type"`
	CodeLanguage *string     `json:"code_language,omitempty"`
	EditedAt     *time.Time  `json:"edited_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	User         *UserRef    `json:"user,omitempty"`
}

func (m ChatMessage) GetID() string        { return m.ID }
func (m ChatMessage) GetCreatedBy() string { return m.UserID }

// ============================================
// Channel delete requests
// ============================================

type DeleteRequestStatus string

const (
	DeleteRequestPending  DeleteRequestStatus = "pending"
	DeleteRequestApproved DeleteRequestStatus = "approved"
	DeleteRequestRejected DeleteRequestStatus = "rejected"
)

type ChannelDeleteRequest struct {
	ID          string              `json:"id"`
	ChannelID   string              `json:"channel_id"`
	RequestedBy string              `json:"requested_by"`
	Approvals   []string            `json:"approvals"`
	Rejections  []string            `json:"rejections"`
	Status      DeleteRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

func (r ChannelDeleteRequest) GetID() string        { return r.ID }
func (r ChannelDeleteRequest) GetCreatedBy() string { return r.RequestedBy }

// ============================================
// Notifications
// ============================================

type NotificationType string

const (
	NotifyComment      NotificationType = "comment"
	NotifyAssignment   NotificationType = "assignment"
	NotifyStatusChange NotificationType = "status_change"
	NotifyMention      NotificationType = "mention"
)

type Notification struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	NoteID     *string          `json:"note_id,omitempty"`
	FromUserID *string          `json:"from_user_id,omitempty"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"created_at"`
	FromUser   *UserRef         `json:"from_user,omitempty"`
}

func (n Notification) GetID() string { return n.ID }
func (n Notification) GetCreatedBy() string {
	if n.FromUserID != nil {
		return *n.FromUserID
	}
	return n.UserID
}
