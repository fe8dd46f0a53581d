// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for notification
// templates and the order-notification audit trail.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// GetTemplate returns the merchant's template for a status (enabled or not).
func GetTemplate(ctx context.Context, db *gorm.DB, merchantID, status string) (*domain.NotificationTemplate, error) {
	var t domain.NotificationTemplate
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND status = ?", merchantID, status).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTemplateIfMissing inserts an enabled template unless the merchant
// already has one for the status. It reports whether a row was created.
func CreateTemplateIfMissing(ctx context.Context, db *gorm.DB, merchantID, status, body string) (bool, error) {
	now := time.Now().UTC()
	t := &domain.NotificationTemplate{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		Status:     status,
		Template:   body,
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := create(db.WithContext(ctx), t); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateOrderNotification writes the audit row before a send.
func CreateOrderNotification(ctx context.Context, db *gorm.DB, n *domain.OrderNotification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	return create(db.WithContext(ctx), n)
}

// RecordNotificationOutcome stores the send result. Only a row that has not
// been marked sent is updated, so the audit trail is written once.
func RecordNotificationOutcome(ctx context.Context, db *gorm.DB, id string, sendErr error) error {
	updates := map[string]any{}
	if sendErr == nil {
		now := time.Now().UTC()
		updates["sent"] = true
		updates["sent_at"] = now
	} else {
		updates["error"] = sendErr.Error()
	}
	return db.WithContext(ctx).Model(&domain.OrderNotification{}).
		Where("id = ? AND sent = ?", id, false).
		Updates(updates).Error
}

// ListOrderNotifications returns an order's audit rows, oldest first.
func ListOrderNotifications(ctx context.Context, db *gorm.DB, orderID string) ([]domain.OrderNotification, error) {
	var out []domain.OrderNotification
	err := db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}
