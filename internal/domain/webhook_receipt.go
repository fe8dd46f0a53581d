package domain

import "time"

// Receipt statuses.
const (
	ReceiptProcessing = "processing"
	ReceiptDone       = "done"
)

// WebhookReceipt records that a provider message was claimed for processing,
// keyed by (instance_id, message_id). It backs the database delivery guard so
// redelivered webhooks are recognised without in-memory state. Rows past
// ExpiresAt may be reclaimed.
type WebhookReceipt struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	InstanceID string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_receipt_instance_msg,priority:1"`
	MessageID  string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_receipt_instance_msg,priority:2"`
	Status     string    `gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (WebhookReceipt) TableName() string { return "webhook_receipts" }
