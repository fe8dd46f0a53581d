// Package events publishes domain events (orders created, status changes,
// cart reminders) to a message broker. Publishing is best-effort: callers log
// failures and carry on.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	CartReminded       = "cart.reminded"
	ReferralRewarded   = "referral.rewarded"
)

// Event is the JSON envelope written to the broker. Key is the merchant id so
// a merchant's events stay ordered within a partition.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	MerchantID string         `json:"merchant_id"`
	OrderID    string         `json:"order_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
