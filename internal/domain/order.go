package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Order statuses. Status only moves forward (see services.OrderStatusService).
const (
	OrderPending    = "pending"
	OrderPaid       = "paid"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// OrderItem is one resolved line of an order or an abandoned cart.
// Price is the unit price in the smallest currency unit.
type OrderItem struct {
	ProductID         string `json:"product_id"`
	ExternalProductID string `json:"external_product_id,omitempty"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	Price             int64  `json:"price"`
}

// LineTotal returns Price × Quantity.
func (i OrderItem) LineTotal() int64 { return i.Price * int64(i.Quantity) }

// Order is the local record of an order created on the commerce platform.
//
// TotalAmount is the post-discount total. An Order row only exists when the
// platform order was created first, so ExternalOrderID is always populated.
type Order struct {
	ID                string                         `json:"id"                           gorm:"type:char(36);primaryKey"`
	MerchantID        string                         `json:"merchant_id"                  gorm:"type:char(36);not null;index:idx_orders_merchant_phone,priority:1"`
	ExternalOrderID   string                         `json:"external_order_id"            gorm:"type:varchar(64);not null"`
	OrderNumber       string                         `json:"order_number"                 gorm:"type:varchar(64);not null"`
	CustomerPhone     string                         `json:"customer_phone"               gorm:"type:varchar(32);not null;index:idx_orders_merchant_phone,priority:2"`
	CustomerName      string                         `json:"customer_name"                gorm:"type:varchar(255)"`
	Address           string                         `json:"address"                      gorm:"type:text"`
	City              string                         `json:"city"                         gorm:"type:varchar(128)"`
	Items             datatypes.JSONSlice[OrderItem] `json:"items"                        gorm:"not null"`
	TotalAmount       int64                          `json:"total_amount"                 gorm:"not null"`
	Status            string                         `json:"status"                       gorm:"type:varchar(16);not null;default:'pending'"`
	PaymentURL        string                         `json:"payment_url,omitempty"        gorm:"type:text"`
	IsGift            bool                           `json:"is_gift"                      gorm:"not null;default:false"`
	GiftRecipientName string                         `json:"gift_recipient_name,omitempty" gorm:"type:varchar(255)"`
	GiftMessage       string                         `json:"gift_message,omitempty"       gorm:"type:text"`
	DiscountCode      string                         `json:"discount_code,omitempty"      gorm:"type:varchar(32)"`
	TrackingNumber    string                         `json:"tracking_number,omitempty"    gorm:"type:varchar(64)"`
	CreatedAt         time.Time                      `json:"created_at"`
	UpdatedAt         time.Time                      `json:"updated_at"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// Payment statuses for OrderPayment.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// OrderPayment records a payment-gateway charge created for an order.
type OrderPayment struct {
	ID         string            `json:"id"          gorm:"type:char(36);primaryKey"`
	OrderID    string            `json:"order_id"    gorm:"type:char(36);not null;index"`
	MerchantID string            `json:"merchant_id" gorm:"type:char(36);not null;index"`
	Amount     int64             `json:"amount"      gorm:"not null"`
	Currency   string            `json:"currency"    gorm:"type:varchar(8);not null"`
	ChargeID   string            `json:"charge_id"   gorm:"type:varchar(128)"`
	PaymentURL string            `json:"payment_url" gorm:"type:text"`
	Status     string            `json:"status"      gorm:"type:varchar(16);not null;default:'pending'"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// TableName returns the database table name for OrderPayment.
func (OrderPayment) TableName() string { return "order_payments" }
