// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for conversations
// and their messages.
//
// Conversation resolution is find-or-create against the unique
// (merchant_id, customer_phone) index: a concurrent duplicate insert resolves
// to the row the other writer created.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// GetConversation fetches the conversation for (merchant, phone).
func GetConversation(ctx context.Context, db *gorm.DB, merchantID, phone string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND customer_phone = ?", merchantID, phone).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindOrCreateConversation returns the existing conversation for
// (merchant, phone) or creates an active one. The customer name is refreshed
// when a non-empty one is supplied.
func FindOrCreateConversation(ctx context.Context, db *gorm.DB, merchantID, phone, name string) (*domain.Conversation, error) {
	c, err := GetConversation(ctx, db, merchantID, phone)
	if err == nil {
		if name != "" && c.CustomerName != name {
			if err := db.WithContext(ctx).Model(c).Update("customer_name", name).Error; err != nil {
				return nil, err
			}
		}
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	c = &domain.Conversation{
		ID:            uuid.NewString(),
		MerchantID:    merchantID,
		CustomerPhone: phone,
		CustomerName:  name,
		Status:        domain.ConversationActive,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := create(db.WithContext(ctx), c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return GetConversation(ctx, db, merchantID, phone)
		}
		return nil, err
	}
	return c, nil
}

// TouchConversation bumps last_message_at and reactivates a closed thread.
func TouchConversation(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_message_at": at, "status": domain.ConversationActive}).Error
}

// NewMessage describes a message row to insert.
type NewMessage struct {
	ConversationID    string
	Direction         string
	Type              string
	Content           string
	MediaURL          string
	ProviderMessageID string
	Processed         bool
}

// CreateMessage inserts a message row. A redelivered inbound message with the
// same provider id returns ErrDuplicate.
func CreateMessage(ctx context.Context, db *gorm.DB, in NewMessage) (*domain.Message, error) {
	now := time.Now().UTC()
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		Direction:      in.Direction,
		Type:           in.Type,
		Content:        in.Content,
		MediaURL:       in.MediaURL,
		IsProcessed:    in.Processed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.ProviderMessageID != "" {
		pid := in.ProviderMessageID
		m.ProviderMessageID = &pid
	}
	if err := create(db.WithContext(ctx), m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetMessageContent fills in the content of a voice placeholder.
func SetMessageContent(ctx context.Context, db *gorm.DB, id, content string) error {
	res := db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ? AND type = ?", id, domain.MessageVoice).
		Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkMessageProcessed sets the processed flag.
func MarkMessageProcessed(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ?", id).
		Update("is_processed", true).Error
}

// ListMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
func ListMessages(ctx context.Context, db *gorm.DB, conversationID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).Where("conversation_id = ?", conversationID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
