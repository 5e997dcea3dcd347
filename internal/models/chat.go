package models

import "time"

// Conversation is a 1-1 chat channel between two users.
type Conversation struct {
	ID        string    `db:"id" json:"id"`
	UserA     string    `db:"user_a" json:"user_a"`
	UserB     string    `db:"user_b" json:"user_b"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Message is one chat message within a conversation.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Type           string    `db:"type" json:"type"`
	FileURL        *string   `db:"file_url" json:"file_url,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ChatContact is one entry in a user's contact list.
type ChatContact struct {
	UserID   string     `db:"user_id" json:"user_id"`
	Name     string     `db:"name" json:"name"`
	Role     UserRole   `db:"role" json:"role"`
	LastSeen *time.Time `db:"last_seen" json:"last_seen,omitempty"`
}

// ConversationSummary is one row of the admin chat monitor.
type ConversationSummary struct {
	Conversation
	UserAName   string     `db:"user_a_name" json:"user_a_name"`
	UserBName   string     `db:"user_b_name" json:"user_b_name"`
	LastMessage *string    `db:"last_message" json:"last_message,omitempty"`
	LastSentAt  *time.Time `db:"last_sent_at" json:"last_sent_at,omitempty"`
}

// SendMessageRequest posts a chat message; the conversation is created on
// first contact.
type SendMessageRequest struct {
	SenderID    string  `json:"sender_id" validate:"required"`
	RecipientID string  `json:"recipient_id" validate:"required"`
	Content     string  `json:"content" validate:"required"`
	Type        string  `json:"type"`
	FileURL     *string `json:"file_url,omitempty"`
}
