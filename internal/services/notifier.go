// Package services – Notifier
//
// Notifier renders and sends order-status messages. A merchant template
// overrides the built-in default for its status; a merchant template that is
// present but disabled silences the status. Every order message is written to
// the order_notifications audit table before it is sent, and the outcome is
// recorded on that row exactly once.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/money"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

// TemplateVars are the values substituted into a notification template.
type TemplateVars struct {
	CustomerName   string
	StoreName      string
	OrderNumber    string
	Total          int64
	TrackingNumber string
}

// VarsFor builds the template values of an order.
func VarsFor(o *domain.Order, m *domain.Merchant) TemplateVars {
	v := TemplateVars{
		CustomerName:   o.CustomerName,
		OrderNumber:    o.OrderNumber,
		Total:          o.TotalAmount,
		TrackingNumber: o.TrackingNumber,
	}
	if m != nil {
		v.StoreName = m.BusinessName
	}
	return v
}

// Render substitutes every placeholder occurrence in tmpl. A missing
// tracking number renders as "غير متوفر".
func Render(tmpl string, v TemplateVars) string {
	tracking := v.TrackingNumber
	if tracking == "" {
		tracking = trackingFallback
	}
	return strings.NewReplacer(
		"{{customerName}}", v.CustomerName,
		"{{storeName}}", v.StoreName,
		"{{orderNumber}}", v.OrderNumber,
		"{{total}}", money.Format(v.Total),
		"{{trackingNumber}}", tracking,
	).Replace(tmpl)
}

// Notifier sends order notifications from the merchant's WhatsApp number.
type Notifier struct {
	DB        *gorm.DB
	Messenger Messenger
}

// ResolveTemplate returns the template for a status and whether the status
// is enabled for the merchant.
func (n *Notifier) ResolveTemplate(ctx context.Context, merchantID, status string) (string, bool, error) {
	t, err := repo.GetTemplate(ctx, n.DB, merchantID, status)
	switch {
	case err == nil:
		if !t.Enabled {
			return "", false, nil
		}
		return t.Template, true, nil
	case errors.Is(err, repo.ErrNotFound):
		def, ok := defaultTemplates[status]
		return def, ok, nil
	default:
		return "", false, err
	}
}

// Send renders the status template for order and sends it. It returns false
// without error when the status is disabled or has no template. A send
// failure is recorded on the audit row and returned.
func (n *Notifier) Send(ctx context.Context, order *domain.Order, status string, vars TemplateVars) (bool, error) {
	tr := otel.Tracer("services/Notifier")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("notification.status", status),
		),
	)
	defer span.End()

	tmpl, ok, err := n.ResolveTemplate(ctx, order.MerchantID, status)
	if err != nil || !ok {
		return false, err
	}
	return n.deliver(ctx, order, status, Render(tmpl, vars))
}

// SendText sends pre-rendered text for order through the same audited path.
func (n *Notifier) SendText(ctx context.Context, order *domain.Order, status, text string) (bool, error) {
	tr := otel.Tracer("services/Notifier")
	ctx, span := tr.Start(ctx, "SendText",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("notification.status", status),
		),
	)
	defer span.End()

	return n.deliver(ctx, order, status, text)
}

func (n *Notifier) deliver(ctx context.Context, order *domain.Order, status, text string) (bool, error) {
	conn, err := repo.GetConnectionForMerchant(ctx, n.DB, order.MerchantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrNoConnection
		}
		return false, err
	}

	row := &domain.OrderNotification{
		OrderID:       order.ID,
		MerchantID:    order.MerchantID,
		CustomerPhone: order.CustomerPhone,
		Status:        status,
		Message:       text,
	}
	if err := repo.CreateOrderNotification(ctx, n.DB, row); err != nil {
		return false, err
	}

	_, sendErr := n.Messenger.SendText(ctx, *conn, order.CustomerPhone, text)
	if err := repo.RecordNotificationOutcome(ctx, n.DB, row.ID, sendErr); err != nil {
		loggerFrom(ctx).Error().Err(err).Str("notification_id", row.ID).Msg("record notification outcome failed")
	}
	if sendErr != nil {
		return false, fmt.Errorf("send %s notification: %w", status, sendErr)
	}
	return true, nil
}

// Message sends an unaudited text (promotion codes, referral progress) from
// the merchant's number.
func (n *Notifier) Message(ctx context.Context, merchantID, phone, text string) error {
	conn, err := repo.GetConnectionForMerchant(ctx, n.DB, merchantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoConnection
		}
		return err
	}
	_, err = n.Messenger.SendText(ctx, *conn, phone, text)
	return err
}

// InitializeDefaults gives the merchant an editable copy of every built-in
// template it does not have yet and returns how many were created.
func (n *Notifier) InitializeDefaults(ctx context.Context, merchantID string) (int, error) {
	tr := otel.Tracer("services/Notifier")
	ctx, span := tr.Start(ctx, "InitializeDefaults",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)),
	)
	defer span.End()

	if _, err := repo.GetMerchant(ctx, n.DB, merchantID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrMerchantNotFound
		}
		return 0, err
	}

	created := 0
	for _, status := range domain.NotificationStatuses {
		ok, err := repo.CreateTemplateIfMissing(ctx, n.DB, merchantID, status, defaultTemplates[status])
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}
