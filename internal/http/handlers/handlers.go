// Package handlers implements the Green API webhook endpoint and the operator
// API. Handlers are transport-thin: they bind input, call a service and map
// its sentinel errors onto HTTP statuses.
package handlers

import (
	"context"
	"sync/atomic"

	"github.com/ingaz2013/sari-sub001/internal/services"
	"github.com/ingaz2013/sari-sub001/internal/webhook"
)

// WebhookPipeline processes one decoded webhook event.
type WebhookPipeline interface {
	Handle(ctx context.Context, ev *webhook.Event) (services.Outcome, error)
}

// CartSweeper runs one abandoned-cart sweep.
type CartSweeper interface {
	Sweep(ctx context.Context) (services.SweepResult, error)
}

// OrderStatusUpdater advances orders through their lifecycle.
type OrderStatusUpdater interface {
	Advance(ctx context.Context, orderID, status, tracking string) (*services.AdvanceResult, error)
}

// ReferralInviter issues referral codes with their invite text.
type ReferralInviter interface {
	Invite(ctx context.Context, merchantID, phone, name string) (*services.ReferralInvite, error)
}

// TemplateInitializer copies the built-in notification templates to a merchant.
type TemplateInitializer interface {
	InitializeDefaults(ctx context.Context, merchantID string) (int, error)
}

// DiscountDeactivator turns a merchant's discount code off.
type DiscountDeactivator interface {
	Deactivate(ctx context.Context, merchantID, code string) error
}

// Services are the application services the handlers call.
type Services struct {
	Pipeline  WebhookPipeline
	Carts     CartSweeper
	Orders    OrderStatusUpdater
	Referrals ReferralInviter
	Templates TemplateInitializer
	Discounts DiscountDeactivator
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	svc Services

	// base scopes background work started by a request, such as a sweep,
	// to the server's lifetime instead of the request's.
	base     context.Context
	sweeping atomic.Bool
}

// New returns Handlers bound to svc. Background work stops when base is done.
func New(base context.Context, svc Services) *Handlers {
	if base == nil {
		base = context.Background()
	}
	return &Handlers{svc: svc, base: base}
}
