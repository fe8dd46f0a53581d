package domain

import "time"

// Discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// DiscountCode is a promotional code owned by a merchant.
//
// Codes are unique across all merchants. UsedCount never exceeds MaxUses; the
// only increment path is a conditional UPDATE (see repo.IncrementDiscountUsage).
// Codes are never deleted, only deactivated.
type DiscountCode struct {
	ID             string     `json:"id"                     gorm:"type:char(36);primaryKey"`
	MerchantID     string     `json:"merchant_id"            gorm:"type:char(36);not null;index"`
	Code           string     `json:"code"                   gorm:"type:varchar(32);not null;uniqueIndex:ux_discount_code"`
	Type           string     `json:"type"                   gorm:"type:varchar(16);not null;check:type IN ('percentage','fixed')"`
	Value          int64      `json:"value"                  gorm:"not null"`
	MinOrderAmount int64      `json:"min_order_amount"       gorm:"not null;default:0"`
	MaxDiscount    int64      `json:"max_discount,omitempty" gorm:"not null;default:0"`
	MaxUses        int        `json:"max_uses"               gorm:"not null;default:1"`
	UsedCount      int        `json:"used_count"             gorm:"not null;default:0"`
	IsActive       bool       `json:"is_active"              gorm:"not null;default:true"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Description    string     `json:"description,omitempty"  gorm:"type:varchar(255)"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for DiscountCode.
func (DiscountCode) TableName() string { return "discount_codes" }

// ReferralCode is the referral code of a single customer (referrer) within a
// merchant. A phone holds at most one code per merchant.
type ReferralCode struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	MerchantID    string    `json:"merchant_id"    gorm:"type:char(36);not null;uniqueIndex:ux_referral_merchant_phone,priority:1"`
	Code          string    `json:"code"           gorm:"type:varchar(16);not null;uniqueIndex:ux_referral_code"`
	ReferrerPhone string    `json:"referrer_phone" gorm:"type:varchar(32);not null;uniqueIndex:ux_referral_merchant_phone,priority:2"`
	ReferrerName  string    `json:"referrer_name"  gorm:"type:varchar(255)"`
	ReferralCount int       `json:"referral_count" gorm:"not null;default:0"`
	RewardGiven   bool      `json:"reward_given"   gorm:"not null;default:false"`
	IsActive      bool      `json:"is_active"      gorm:"not null;default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for ReferralCode.
func (ReferralCode) TableName() string { return "referral_codes" }

// Referral links a referred phone to the code that referred it.
type Referral struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	ReferralCodeID string    `json:"referral_code_id" gorm:"type:char(36);not null;uniqueIndex:ux_referral_code_phone,priority:1"`
	ReferredPhone  string    `json:"referred_phone"   gorm:"type:varchar(32);not null;uniqueIndex:ux_referral_code_phone,priority:2;index"`
	ReferredName   string    `json:"referred_name"    gorm:"type:varchar(255)"`
	OrderCompleted bool      `json:"order_completed"  gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	ReferralCode ReferralCode `json:"-" gorm:"foreignKey:ReferralCodeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Referral.
func (Referral) TableName() string { return "referrals" }
