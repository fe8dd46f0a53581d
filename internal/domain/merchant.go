// Package domain defines the persistence models of the order pipeline:
// merchants and their channel credentials, conversations, orders, promotion
// codes, abandoned carts, and notification audit rows. These types are mapped
// with GORM and shared by the repository and service layers.
package domain

import "time"

// Merchant is an independent store served by the bot. Everything else in the
// model hangs off a merchant.
type Merchant struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	BusinessName string    `json:"business_name" gorm:"type:varchar(255);not null"`
	StoreURL     string    `json:"store_url"     gorm:"type:varchar(512)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Merchant.
func (Merchant) TableName() string { return "merchants" }

// Connection statuses for WhatsAppConnection.
const (
	ConnectionConnected    = "connected"
	ConnectionDisconnected = "disconnected"
)

// WhatsAppConnection holds the messaging-provider credentials of a single
// merchant number. Inbound webhooks are routed to a merchant through this row
// (by receiving phone number, falling back to the provider instance id), and
// every outbound message is sent with the credentials stored here.
//
// Fields:
//   - PhoneNumber: receiving number in digits-only international form.
//   - InstanceID / APIToken / APIURL: provider instance credentials.
//   - Status: "connected" or "disconnected"; only connected rows route traffic.
type WhatsAppConnection struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	MerchantID  string    `json:"merchant_id"  gorm:"type:char(36);not null;index"`
	PhoneNumber string    `json:"phone_number" gorm:"type:varchar(32);not null;uniqueIndex:ux_wa_phone"`
	InstanceID  string    `json:"instance_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_wa_instance"`
	APIToken    string    `json:"-"            gorm:"type:varchar(255);not null"`
	APIURL      string    `json:"api_url"      gorm:"type:varchar(255)"`
	Status      string    `json:"status"       gorm:"type:varchar(16);not null;default:'connected'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for WhatsAppConnection.
func (WhatsAppConnection) TableName() string { return "whatsapp_connections" }

// CommerceConnection stores the commerce-platform access token used to create
// orders on behalf of a merchant.
type CommerceConnection struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	MerchantID  string    `json:"merchant_id" gorm:"type:char(36);not null;uniqueIndex:ux_commerce_merchant"`
	AccessToken string    `json:"-"           gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for CommerceConnection.
func (CommerceConnection) TableName() string { return "commerce_connections" }

// PaymentSettings holds the merchant's own payment-gateway keys. A disabled
// gateway or an empty secret key means orders fall back to the commerce
// platform's payment link.
type PaymentSettings struct {
	MerchantID      string    `json:"merchant_id"      gorm:"type:char(36);primaryKey"`
	TapEnabled      bool      `json:"tap_enabled"      gorm:"not null;default:false"`
	TapSecretKey    string    `json:"-"                gorm:"type:varchar(255)"`
	DefaultCurrency string    `json:"default_currency" gorm:"type:varchar(8);not null;default:'SAR'"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for PaymentSettings.
func (PaymentSettings) TableName() string { return "payment_settings" }

// Product is a catalog entry. Price is in the smallest currency unit.
type Product struct {
	ID                string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	MerchantID        string    `json:"merchant_id"         gorm:"type:char(36);not null;index:idx_products_merchant"`
	ExternalProductID string    `json:"external_product_id" gorm:"type:varchar(64)"`
	Name              string    `json:"name"                gorm:"type:varchar(255);not null"`
	Description       string    `json:"description"         gorm:"type:text"`
	Price             int64     `json:"price"               gorm:"not null"`
	Stock             int       `json:"stock"               gorm:"not null;default:0"`
	IsActive          bool      `json:"is_active"           gorm:"not null;default:true"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }
