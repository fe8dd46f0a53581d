// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to merchants, their channel
// and platform credentials, and their product catalog.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// GetMerchant fetches a merchant by ID, or ErrNotFound.
func GetMerchant(ctx context.Context, db *gorm.DB, id string) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindConnectionByPhone returns the connected WhatsApp connection that owns
// the receiving phone number.
func FindConnectionByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.WhatsAppConnection, error) {
	var c domain.WhatsAppConnection
	err := db.WithContext(ctx).
		Where("phone_number = ? AND status = ?", phone, domain.ConnectionConnected).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindConnectionByInstance returns the connected WhatsApp connection for a
// provider instance id.
func FindConnectionByInstance(ctx context.Context, db *gorm.DB, instanceID string) (*domain.WhatsAppConnection, error) {
	var c domain.WhatsAppConnection
	err := db.WithContext(ctx).
		Where("instance_id = ? AND status = ?", instanceID, domain.ConnectionConnected).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConnectionForMerchant returns the merchant's connected WhatsApp
// connection, used for merchant-initiated sends (reminders, notifications).
func GetConnectionForMerchant(ctx context.Context, db *gorm.DB, merchantID string) (*domain.WhatsAppConnection, error) {
	var c domain.WhatsAppConnection
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND status = ?", merchantID, domain.ConnectionConnected).
		Order("created_at ASC, id ASC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCommerceConnection returns the merchant's commerce-platform credentials.
func GetCommerceConnection(ctx context.Context, db *gorm.DB, merchantID string) (*domain.CommerceConnection, error) {
	var c domain.CommerceConnection
	if err := db.WithContext(ctx).Where("merchant_id = ?", merchantID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetPaymentSettings returns the merchant's payment settings, or ErrNotFound.
func GetPaymentSettings(ctx context.Context, db *gorm.DB, merchantID string) (*domain.PaymentSettings, error) {
	var s domain.PaymentSettings
	if err := db.WithContext(ctx).Where("merchant_id = ?", merchantID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActiveProducts returns the merchant's active catalog ordered by name, id.
func ListActiveProducts(ctx context.Context, db *gorm.DB, merchantID string) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND is_active = ?", merchantID, true).
		Order("name ASC, id ASC").
		Find(&out).Error
	return out, err
}
