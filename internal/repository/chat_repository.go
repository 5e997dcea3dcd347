package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tejaskp/portal-api/internal/models"
)

// ChatRepository manages persistence for 1:1 conversations and messages.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository constructs a ChatRepository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// FindConversation returns the conversation between two users regardless of
// which side initiated it.
func (r *ChatRepository) FindConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	const query = `SELECT id, user_a, user_b, created_at, updated_at FROM conversations
        WHERE (user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1) LIMIT 1`
	var conversation models.Conversation
	if err := r.db.GetContext(ctx, &conversation, query, userA, userB); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conversation, nil
}

// FindConversationByID returns a conversation by identifier.
func (r *ChatRepository) FindConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	const query = `SELECT id, user_a, user_b, created_at, updated_at FROM conversations WHERE id = $1 LIMIT 1`
	var conversation models.Conversation
	if err := r.db.GetContext(ctx, &conversation, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conversation by id: %w", err)
	}
	return &conversation, nil
}

// CreateConversation opens a conversation between two users.
func (r *ChatRepository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	conversation.UpdatedAt = now
	const query = `INSERT INTO conversations (id, user_a, user_b, created_at, updated_at)
        VALUES (:id, :user_a, :user_b, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, conversation); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// CreateMessage appends a message and bumps the conversation timestamp.
func (r *ChatRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, conversation_id, sender_id, content, type, file_url, created_at)
        VALUES (:id, :conversation_id, :sender_id, :content, :type, :file_url, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	const bump = `UPDATE conversations SET updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, bump, message.ConversationID, message.CreatedAt); err != nil {
		return fmt.Errorf("bump conversation: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (r *ChatRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, conversation_id, sender_id, content, type, file_url, created_at
        FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC LIMIT %d`, limit)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// ListContacts returns the active users a given user may chat with.
func (r *ChatRepository) ListContacts(ctx context.Context, excludeUserID string) ([]models.ChatContact, error) {
	const query = `SELECT id AS user_id, name, role, last_login AS last_seen FROM users
        WHERE id <> $1 AND status = $2 ORDER BY name ASC`
	var contacts []models.ChatContact
	if err := r.db.SelectContext(ctx, &contacts, query, excludeUserID, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// ListAllConversations returns every conversation with the latest message
// preview, most recently active first, for admin monitoring.
func (r *ChatRepository) ListAllConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	const query = `SELECT c.id, c.user_a, c.user_b, c.created_at, c.updated_at,
        ua.name AS user_a_name, ub.name AS user_b_name,
        lm.content AS last_message, lm.created_at AS last_sent_at
        FROM conversations c
        JOIN users ua ON ua.id = c.user_a
        JOIN users ub ON ub.id = c.user_b
        LEFT JOIN LATERAL (
            SELECT content, created_at FROM messages
            WHERE conversation_id = c.id ORDER BY created_at DESC LIMIT 1
        ) lm ON true
        ORDER BY c.updated_at DESC`
	var summaries []models.ConversationSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("list all conversations: %w", err)
	}
	return summaries, nil
}

// ListConversations returns a user's conversations with the latest message
// preview, most recently active first.
func (r *ChatRepository) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	const query = `SELECT c.id, c.user_a, c.user_b, c.created_at, c.updated_at,
        ua.name AS user_a_name, ub.name AS user_b_name,
        lm.content AS last_message, lm.created_at AS last_sent_at
        FROM conversations c
        JOIN users ua ON ua.id = c.user_a
        JOIN users ub ON ub.id = c.user_b
        LEFT JOIN LATERAL (
            SELECT content, created_at FROM messages
            WHERE conversation_id = c.id ORDER BY created_at DESC LIMIT 1
        ) lm ON true
        WHERE c.user_a = $1 OR c.user_b = $1
        ORDER BY c.updated_at DESC`
	var summaries []models.ConversationSummary
	if err := r.db.SelectContext(ctx, &summaries, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return summaries, nil
}
