package domain

import "time"

// Notification statuses a merchant can attach a template to.
const (
	NotifyPending   = "pending"
	NotifyConfirmed = "confirmed"
	NotifyShipped   = "shipped"
	NotifyDelivered = "delivered"
	NotifyCancelled = "cancelled"
)

// NotificationStatuses lists every status with a built-in default template.
var NotificationStatuses = []string{NotifyPending, NotifyConfirmed, NotifyShipped, NotifyDelivered, NotifyCancelled}

// NotificationTemplate is a merchant's custom message for an order status.
// A present but disabled template silences that status for the merchant.
type NotificationTemplate struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	MerchantID string    `json:"merchant_id" gorm:"type:char(36);not null;uniqueIndex:ux_template_merchant_status,priority:1"`
	Status     string    `json:"status"      gorm:"type:varchar(16);not null;uniqueIndex:ux_template_merchant_status,priority:2"`
	Template   string    `json:"template"    gorm:"type:text;not null"`
	Enabled    bool      `json:"enabled"     gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for NotificationTemplate.
func (NotificationTemplate) TableName() string { return "notification_templates" }

// OrderNotification is the audit row of one outbound order message. It is
// written before the send and updated once with the outcome.
type OrderNotification struct {
	ID            string     `json:"id"             gorm:"type:char(36);primaryKey"`
	OrderID       string     `json:"order_id"       gorm:"type:char(36);not null;index"`
	MerchantID    string     `json:"merchant_id"    gorm:"type:char(36);not null;index"`
	CustomerPhone string     `json:"customer_phone" gorm:"type:varchar(32);not null"`
	Status        string     `json:"status"         gorm:"type:varchar(16);not null"`
	Message       string     `json:"message"        gorm:"type:text;not null"`
	Sent          bool       `json:"sent"           gorm:"not null;default:false"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	Error         string     `json:"error,omitempty" gorm:"type:text"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName returns the database table name for OrderNotification.
func (OrderNotification) TableName() string { return "order_notifications" }
