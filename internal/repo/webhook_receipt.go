// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for WebhookReceipt,
// the database record behind at-least-once webhook deduplication.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// ClaimReceipt records (instanceID, messageID) as being processed until
// now+ttl. An unexpired receipt for the same pair returns ErrDuplicate; an
// expired one is removed first so the message can be claimed again.
func ClaimReceipt(ctx context.Context, db *gorm.DB, instanceID, messageID string, ttl time.Duration, now time.Time) (*domain.WebhookReceipt, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, ErrNotFound
	}
	if err := db.WithContext(ctx).
		Where("instance_id = ? AND message_id = ? AND expires_at <= ?", instanceID, messageID, now).
		Delete(&domain.WebhookReceipt{}).Error; err != nil {
		return nil, err
	}

	rec := &domain.WebhookReceipt{
		ID:         uuid.NewString(),
		InstanceID: instanceID,
		MessageID:  messageID,
		Status:     domain.ReceiptProcessing,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := create(db.WithContext(ctx), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ReleaseReceipt deletes a claim so a redelivery is processed again.
func ReleaseReceipt(ctx context.Context, db *gorm.DB, instanceID, messageID string) error {
	return db.WithContext(ctx).
		Where("instance_id = ? AND message_id = ?", instanceID, messageID).
		Delete(&domain.WebhookReceipt{}).Error
}

// CompleteReceipt marks a claim as done.
func CompleteReceipt(ctx context.Context, db *gorm.DB, instanceID, messageID string) error {
	return db.WithContext(ctx).Model(&domain.WebhookReceipt{}).
		Where("instance_id = ? AND message_id = ?", instanceID, messageID).
		Update("status", domain.ReceiptDone).Error
}
