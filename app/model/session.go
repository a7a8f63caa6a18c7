package model

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Entries are never mutated once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is one PRD-building conversation.
type Session struct {
	ID   string
	Name string
	// Messages in insertion order
	Messages []Message
	// LastResponseID is the continuation handle of the latest successful provider call,
	// empty when absent
	LastResponseID string
	// Document is the latest compiled PRD markdown
	Document string
}

// Summary is the listing projection of a session.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionUpdate carries the fields to replace. Nil fields are left untouched.
type SessionUpdate struct {
	Name           *string
	Messages       []Message
	LastResponseID *string
	Document       *string
}

func (u SessionUpdate) IsEmpty() bool {
	return u.Name == nil && u.Messages == nil && u.LastResponseID == nil && u.Document == nil
}
