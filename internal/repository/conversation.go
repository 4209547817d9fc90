package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/models"
)

type ConversationRepository interface {
	GetOrCreateConversation(ctx context.Context, sessionID string) (*models.Conversation, error)
	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	GetRecentMessages(ctx context.Context, conversationID int64, limit int) ([]*models.ChatMessage, error)
}

type conversationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewConversationRepository(db *sqlx.DB, logger *zap.Logger) ConversationRepository {
	return &conversationRepository{db: db, logger: logger}
}

func (r *conversationRepository) GetOrCreateConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	var conv models.Conversation
	query := `SELECT id, session_id, created_at FROM conversations WHERE session_id = $1`
	err := r.db.GetContext(ctx, &conv, query, sessionID)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	insert := `INSERT INTO conversations (session_id) VALUES ($1) RETURNING id, session_id, created_at`
	if err := r.db.QueryRowxContext(ctx, insert, sessionID).StructScan(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `INSERT INTO messages (conversation_id, role, content, blocked, block_reason, escalated, escalation_type)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, query, msg.ConversationID, msg.Role, msg.Content,
		msg.Blocked, msg.BlockReason, msg.Escalated, msg.EscalationType).StructScan(msg)
}

func (r *conversationRepository) GetRecentMessages(ctx context.Context, conversationID int64, limit int) ([]*models.ChatMessage, error) {
	var messages []*models.ChatMessage
	query := `SELECT id, conversation_id, role, content, blocked, block_reason, escalated, escalation_type, created_at
	          FROM (
	              SELECT * FROM messages WHERE conversation_id = $1 AND blocked = false
	              ORDER BY created_at DESC LIMIT $2
	          ) recent ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &messages, query, conversationID, limit); err != nil {
		return nil, err
	}
	return messages, nil
}
