package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nearu/nearu-backend/internal/models"
)

// MessageRepository handles the messages collection
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row rowScanner) (models.Message, error) {
	var (
		m         models.Message
		createdAt int64
	)
	if err := row.Scan(&m.ID, &m.Participants, &m.SenderID, &m.Text, &createdAt); err != nil {
		return m, err
	}
	m.CreatedAt = time.UnixMilli(createdAt)
	return m, nil
}

// Create inserts a message between userA and userB
func (r *MessageRepository) Create(ctx context.Context, m *models.Message, userA, userB string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, participants, user_a, user_b, sender_id, text, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Participants, userA, userB, m.SenderID, m.Text, m.CreatedAt.UnixMilli())
	if err != nil {
		return storageErr("create message", err)
	}
	return nil
}

// ListByParticipants returns a pair's messages, oldest first
func (r *MessageRepository) ListByParticipants(ctx context.Context, participants string) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, participants, sender_id, text, created_at FROM messages
		 WHERE participants = ? ORDER BY created_at ASC, rowid ASC`, participants)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, storageErr("scan message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list messages", err)
	}
	return messages, nil
}

// ListConversations returns the latest message of every pair userID belongs to, newest first
func (r *MessageRepository) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, participants, sender_id, text, created_at, user_a, user_b FROM messages
		 WHERE user_a = ? OR user_b = ? ORDER BY created_at DESC, rowid DESC`, userID, userID)
	if err != nil {
		return nil, storageErr("list conversations", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	conversations := []models.Conversation{}
	for rows.Next() {
		var (
			m            models.Message
			createdAt    int64
			userA, userB string
		)
		if err := rows.Scan(&m.ID, &m.Participants, &m.SenderID, &m.Text, &createdAt, &userA, &userB); err != nil {
			return nil, storageErr("scan conversation", err)
		}
		if seen[m.Participants] {
			continue
		}
		seen[m.Participants] = true
		m.CreatedAt = time.UnixMilli(createdAt)

		other := userA
		if other == userID {
			other = userB
		}
		conversations = append(conversations, models.Conversation{OtherUserID: other, LastMessage: m})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list conversations", err)
	}
	return conversations, nil
}
