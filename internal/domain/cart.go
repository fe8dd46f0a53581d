package domain

import (
	"time"

	"gorm.io/datatypes"
)

// AbandonedCart records product interest that has not turned into an order.
//
// OpenKey is "merchantID:phone" while the cart is open (not reminded, not
// recovered) and NULL afterwards. The unique index on it is what keeps at most
// one open cart per (merchant, phone) under concurrent tracking calls.
type AbandonedCart struct {
	ID            string                         `json:"id"             gorm:"type:char(36);primaryKey"`
	MerchantID    string                         `json:"merchant_id"    gorm:"type:char(36);not null;index"`
	CustomerPhone string                         `json:"customer_phone" gorm:"type:varchar(32);not null"`
	CustomerName  string                         `json:"customer_name"  gorm:"type:varchar(255)"`
	Items         datatypes.JSONSlice[OrderItem] `json:"items"          gorm:"not null"`
	TotalAmount   int64                          `json:"total_amount"   gorm:"not null"`
	ReminderSent  bool                           `json:"reminder_sent"  gorm:"not null;default:false;index:idx_cart_pending,priority:1"`
	ReminderAt    *time.Time                     `json:"reminder_at,omitempty"`
	Recovered     bool                           `json:"recovered"      gorm:"not null;default:false;index:idx_cart_pending,priority:2"`
	RecoveredAt   *time.Time                     `json:"recovered_at,omitempty"`
	DiscountCode  string                         `json:"discount_code,omitempty" gorm:"type:varchar(32)"`
	OpenKey       *string                        `json:"-"              gorm:"type:varchar(128);uniqueIndex:ux_cart_open"`
	CreatedAt     time.Time                      `json:"created_at"     gorm:"index:idx_cart_pending,priority:3"`
	UpdatedAt     time.Time                      `json:"updated_at"`
}

// TableName returns the database table name for AbandonedCart.
func (AbandonedCart) TableName() string { return "abandoned_carts" }

// CartOpenKey builds the natural key of an open cart.
func CartOpenKey(merchantID, phone string) string { return merchantID + ":" + phone }
