// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for discount codes.
//
// Codes are looked up globally (the code column is unique across merchants);
// merchant scoping is applied by the caller so a foreign code is reported the
// same way as a missing one.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// CreateDiscountCode inserts d. A code already taken by any merchant returns
// ErrDuplicate.
func CreateDiscountCode(ctx context.Context, db *gorm.DB, d *domain.DiscountCode) error {
	now := time.Now().UTC()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt, d.UpdatedAt = now, now
	return create(db.WithContext(ctx), d)
}

// GetDiscountCode fetches a code by its text, or ErrNotFound.
func GetDiscountCode(ctx context.Context, db *gorm.DB, code string) (*domain.DiscountCode, error) {
	var d domain.DiscountCode
	if err := db.WithContext(ctx).Where("code = ?", code).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// IncrementDiscountUsage atomically consumes one use of an active code. It is
// the only path that touches used_count. Returns false when no use was left.
func IncrementDiscountUsage(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.DiscountCode{}).
		Where("code = ? AND is_active = ? AND used_count < max_uses", code, true).
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeactivateDiscountCode clears is_active for a merchant's code.
func DeactivateDiscountCode(ctx context.Context, db *gorm.DB, merchantID, code string) error {
	res := db.WithContext(ctx).Model(&domain.DiscountCode{}).
		Where("merchant_id = ? AND code = ?", merchantID, code).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
