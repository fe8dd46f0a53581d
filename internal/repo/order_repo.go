// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for orders and
// their payment records.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// CreateOrder inserts o, assigning an ID and timestamps when missing.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	now := time.Now().UTC()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = domain.OrderPending
	}
	o.CreatedAt, o.UpdatedAt = now, now
	return create(db.WithContext(ctx), o)
}

// GetOrder fetches an order by ID, or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderPaymentURL replaces the payment URL of an order.
func UpdateOrderPaymentURL(ctx context.Context, db *gorm.DB, id, url string) error {
	return db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", id).
		Update("payment_url", url).Error
}

// TransitionOrderStatus moves an order from one status to another with a
// compare-and-set on the current status. A tracking number is stored when
// non-empty. Returns ErrNotFound when the order is no longer in status from.
func TransitionOrderStatus(ctx context.Context, db *gorm.DB, id, from, to, tracking string) error {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	if tracking != "" {
		updates["tracking_number"] = tracking
	}
	res := db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDeliveredOrders counts the customer's delivered orders with a merchant.
func CountDeliveredOrders(ctx context.Context, db *gorm.DB, merchantID, phone string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Order{}).
		Where("merchant_id = ? AND customer_phone = ? AND status = ?", merchantID, phone, domain.OrderDelivered).
		Count(&n).Error
	return n, err
}

// CreateOrderPayment records a gateway charge for an order.
func CreateOrderPayment(ctx context.Context, db *gorm.DB, p *domain.OrderPayment) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return create(db.WithContext(ctx), p)
}
