// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for abandoned carts.
//
// A cart is "open" while open_key is set. Reminding or recovering a cart clears
// the key in the same UPDATE, which frees the (merchant, phone) slot for a
// new cart.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// CreateCart inserts an open cart. A concurrent open cart for the same
// (merchant, phone) returns ErrDuplicate.
func CreateCart(ctx context.Context, db *gorm.DB, c *domain.AbandonedCart) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	key := domain.CartOpenKey(c.MerchantID, c.CustomerPhone)
	c.OpenKey = &key
	c.ReminderSent, c.Recovered = false, false
	c.CreatedAt, c.UpdatedAt = now, now
	return create(db.WithContext(ctx), c)
}

// GetOpenCart returns the open cart for (merchant, phone), or ErrNotFound.
func GetOpenCart(ctx context.Context, db *gorm.DB, merchantID, phone string) (*domain.AbandonedCart, error) {
	var c domain.AbandonedCart
	err := db.WithContext(ctx).
		Where("open_key = ?", domain.CartOpenKey(merchantID, phone)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCart fetches a cart by ID.
func GetCart(ctx context.Context, db *gorm.DB, id string) (*domain.AbandonedCart, error) {
	var c domain.AbandonedCart
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListPendingCarts returns carts created at or before cutoff that were neither
// reminded nor recovered, oldest first (created_at, id) so a sweep can resume.
func ListPendingCarts(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.AbandonedCart, error) {
	var out []domain.AbandonedCart
	q := db.WithContext(ctx).
		Where("reminder_sent = ? AND recovered = ? AND created_at <= ?", false, false, cutoff).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// MarkCartReminded flips reminder_sent for a still-open cart and records the
// recovery code. It returns false when another sweep got there first or the
// cart was recovered meanwhile.
func MarkCartReminded(ctx context.Context, db *gorm.DB, id, code string) (bool, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.AbandonedCart{}).
		Where("id = ? AND reminder_sent = ? AND recovered = ?", id, false, false).
		Updates(map[string]any{
			"reminder_sent": true,
			"reminder_at":   now,
			"discount_code": code,
			"open_key":      gorm.Expr("NULL"),
			"updated_at":    now,
		})
	return res.RowsAffected == 1, res.Error
}

// MarkCartsRecovered closes every unrecovered cart of (merchant, phone),
// reminded or not. It returns the number of carts closed.
func MarkCartsRecovered(ctx context.Context, db *gorm.DB, merchantID, phone string) (int64, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.AbandonedCart{}).
		Where("merchant_id = ? AND customer_phone = ? AND recovered = ?", merchantID, phone, false).
		Updates(map[string]any{
			"recovered":    true,
			"recovered_at": now,
			"open_key":     gorm.Expr("NULL"),
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}
