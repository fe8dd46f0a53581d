// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for referral codes
// and the referrals they produce.
//
// Every mutation that guards an invariant is a conditional UPDATE whose
// RowsAffected tells the caller whether it won:
//
//   - CompleteReferral: order_completed false → true
//   - IncrementReferralCount: referral_count + 1
//   - ClaimReferralReward: reward_given false → true, only at count ≥ threshold
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// CreateReferralCode inserts rc. A second code for the same (merchant, phone),
// or a code text already in use, returns ErrDuplicate.
func CreateReferralCode(ctx context.Context, db *gorm.DB, rc *domain.ReferralCode) error {
	now := time.Now().UTC()
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}
	rc.IsActive = true
	rc.CreatedAt, rc.UpdatedAt = now, now
	return create(db.WithContext(ctx), rc)
}

// GetReferralCodeForPhone returns the referrer's code within a merchant.
func GetReferralCodeForPhone(ctx context.Context, db *gorm.DB, merchantID, phone string) (*domain.ReferralCode, error) {
	var rc domain.ReferralCode
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND referrer_phone = ?", merchantID, phone).
		First(&rc).Error
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// GetReferralCodeByCode fetches a code by its text.
func GetReferralCodeByCode(ctx context.Context, db *gorm.DB, code string) (*domain.ReferralCode, error) {
	var rc domain.ReferralCode
	if err := db.WithContext(ctx).Where("code = ?", code).First(&rc).Error; err != nil {
		return nil, err
	}
	return &rc, nil
}

// GetReferralCode fetches a code by ID.
func GetReferralCode(ctx context.Context, db *gorm.DB, id string) (*domain.ReferralCode, error) {
	var rc domain.ReferralCode
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rc).Error; err != nil {
		return nil, err
	}
	return &rc, nil
}

// CreateReferral inserts a pending referral. A second row for the same
// (code, referred phone) returns ErrDuplicate.
func CreateReferral(ctx context.Context, db *gorm.DB, r *domain.Referral) error {
	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.OrderCompleted = false
	r.CreatedAt, r.UpdatedAt = now, now
	return create(db.WithContext(ctx), r)
}

// ListPendingReferrals returns the incomplete referrals of a referred phone
// under codes owned by merchantID.
func ListPendingReferrals(ctx context.Context, db *gorm.DB, merchantID, referredPhone string) ([]domain.Referral, error) {
	var out []domain.Referral
	err := db.WithContext(ctx).
		Joins("JOIN referral_codes ON referral_codes.id = referrals.referral_code_id").
		Where("referral_codes.merchant_id = ? AND referrals.referred_phone = ? AND referrals.order_completed = ?",
			merchantID, referredPhone, false).
		Order("referrals.created_at ASC, referrals.id ASC").
		Find(&out).Error
	return out, err
}

// CompleteReferral marks a pending referral completed. It returns false when
// another caller completed it first.
func CompleteReferral(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Referral{}).
		Where("id = ? AND order_completed = ?", id, false).
		Updates(map[string]any{"order_completed": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

// IncrementReferralCount atomically adds one to a code's referral count.
func IncrementReferralCount(ctx context.Context, db *gorm.DB, codeID string) error {
	res := db.WithContext(ctx).Model(&domain.ReferralCode{}).
		Where("id = ?", codeID).
		Updates(map[string]any{
			"referral_count": gorm.Expr("referral_count + 1"),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimReferralReward flips reward_given false → true for a code owned by
// (merchant, phone) whose count reached threshold. It returns false when the
// reward was already claimed or the threshold is not met.
func ClaimReferralReward(ctx context.Context, db *gorm.DB, merchantID, referrerPhone, codeID string, threshold int) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.ReferralCode{}).
		Where("id = ? AND merchant_id = ? AND referrer_phone = ? AND reward_given = ? AND referral_count >= ?",
			codeID, merchantID, referrerPhone, false, threshold).
		Updates(map[string]any{"reward_given": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}
