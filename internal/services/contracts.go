package services

import (
	"context"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/events"
)

// Collaborator contracts. Concrete clients live in internal/integrations and
// are wired in cmd/sari; tests use fakes. Every call carries the
// merchant-scoped credentials it needs; nothing is read from global state.

// Messenger sends WhatsApp messages from a merchant's connected number.
// The returned string is the provider message id.
type Messenger interface {
	SendText(ctx context.Context, conn domain.WhatsAppConnection, phone, text string) (string, error)
	SendFile(ctx context.Context, conn domain.WhatsAppConnection, phone, fileURL, fileName, caption string) (string, error)
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, language string) (string, error)
}

// CompletionRequest is a strict JSON-schema completion call.
type CompletionRequest struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

// Completer returns the raw JSON document produced by a language model for a
// CompletionRequest. The caller validates it.
type Completer interface {
	CompleteJSON(ctx context.Context, req CompletionRequest) ([]byte, error)
}

// ReplyRequest is the context handed to a conversational Responder.
type ReplyRequest struct {
	MerchantID   string
	StoreName    string
	CustomerName string
	Message      string
	Catalog      []domain.Product
	History      []domain.Message
}

// Responder produces the general (non-order) reply to a customer message.
type Responder interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// PlatformItem is one line of a commerce-platform order.
type PlatformItem struct {
	ProductID string
	Quantity  int
	Price     int64
}

// PlatformOrderRequest is the commerce-platform order creation payload.
type PlatformOrderRequest struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Address       string
	City          string
	Items         []PlatformItem
	Notes         string
	CouponCode    string
}

// PlatformOrder is the commerce-platform response. Success=false means the
// order does not exist on the platform.
type PlatformOrder struct {
	Success         bool
	ExternalOrderID string
	OrderNumber     string
	PaymentURL      string
}

// CommercePlatform creates orders on the merchant's store.
type CommercePlatform interface {
	CreateOrder(ctx context.Context, accessToken string, req PlatformOrderRequest) (*PlatformOrder, error)
}

// ChargeRequest is a payment-gateway charge. Amount is in the smallest unit;
// clients convert to the major unit on the wire.
type ChargeRequest struct {
	Amount        int64
	Currency      string
	CustomerName  string
	CustomerPhone string
	RedirectURL   string
	Description   string
	Metadata      map[string]string
}

// Charge is a created charge with the URL the customer pays at.
type Charge struct {
	ID  string
	URL string
}

// PaymentGateway creates charges with a merchant's own secret key.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, secretKey string, req ChargeRequest) (*Charge, error)
}

// DeliveryGuard remembers which provider messages are being, or have been,
// processed. Claim returns false for a message already claimed.
type DeliveryGuard interface {
	Claim(ctx context.Context, instanceID, messageID string) (bool, error)
	Release(ctx context.Context, instanceID, messageID string) error
}

// EventPublisher publishes domain events; see events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}
