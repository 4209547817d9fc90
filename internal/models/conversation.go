package models

import "time"

// Conversation represents a chat session stored in the 'conversations' table.
type Conversation struct {
	ID        int64     `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMessage represents one exchange turn stored in the 'messages' table.
type ChatMessage struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	Role           string    `db:"role" json:"role"` // "user" or "assistant"
	Content        string    `db:"content" json:"content"`
	Blocked        bool      `db:"blocked" json:"blocked"`
	BlockReason    *string   `db:"block_reason" json:"block_reason,omitempty"`
	Escalated      bool      `db:"escalated" json:"escalated"`
	EscalationType *string   `db:"escalation_type" json:"escalation_type,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
