// Package services – OrderComposer
//
// OrderComposer turns a parsed order into a real one. The steps run strictly
// in this order, and each failure stops the ones after it:
//
//  1. resolve items against the active catalog and compute the original total
//  2. validate a discount code from the message (usage is deferred), or track
//     a referral code when there is no discount code
//  3. create the order on the commerce platform; nothing is stored locally if
//     this fails
//  4. persist the local order row
//  5. consume the discount use
//  6. best-effort: gateway charge (falls back to the platform payment link),
//     confirmation message, cart recovery, order.created event
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
	"github.com/ingaz2013/sari-sub001/internal/events"
	"github.com/ingaz2013/sari-sub001/internal/observability"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

// ComposeRequest carries a parsed order and the message it came from.
type ComposeRequest struct {
	MerchantID    string
	CustomerPhone string
	CustomerName  string
	Parsed        *ParsedOrder
	Message       string
}

// ComposeResult describes the created order.
type ComposeResult struct {
	Order            *domain.Order
	PaymentURL       string
	OriginalAmount   int64
	Discount         int64
	DiscountCode     string
	ReferralCode     string
	RejectedCode     string
	RejectedReason   DiscountReason
	RejectedMessage  string
	ConfirmationSent bool
}

// OrderComposer creates orders on the commerce platform and locally.
type OrderComposer struct {
	DB        *gorm.DB
	Discounts *DiscountService
	Referrals *ReferralService
	Carts     *CartService
	Notifier  *Notifier
	Platform  CommercePlatform
	Gateway   PaymentGateway
	Events    EventPublisher

	// AppURL is the public base URL used for the gateway redirect.
	AppURL string
}

// Compose runs the order steps described in the file comment.
func (c *OrderComposer) Compose(ctx context.Context, req ComposeRequest) (*ComposeResult, error) {
	tr := otel.Tracer("services/OrderComposer")
	ctx, span := tr.Start(ctx, "Compose",
		trace.WithAttributes(attribute.String("merchant.id", req.MerchantID)),
	)
	defer span.End()
	log := loggerFrom(ctx)

	items, original, err := c.resolveItems(ctx, req.MerchantID, req.Parsed)
	if err != nil {
		observability.OrderFailures.WithLabelValues("no_products").Inc()
		return nil, err
	}
	res := &ComposeResult{OriginalAmount: original}
	final := original

	var validated *DiscountValidation
	if code := ExtractDiscountCode(req.Message); code != "" {
		v, err := c.Discounts.Validate(ctx, req.MerchantID, code, original)
		if err != nil {
			return nil, err
		}
		if v.Valid {
			validated = &v
			final = v.FinalAmount
			res.Discount, res.DiscountCode = v.Discount, v.Code.Code
		} else {
			res.RejectedCode, res.RejectedReason, res.RejectedMessage = code, v.Reason, v.Message
		}
	} else if code := ExtractReferralCode(req.Message); code != "" && c.Referrals != nil {
		if _, err := c.Referrals.Track(ctx, req.MerchantID, code, req.CustomerPhone, req.CustomerName); err != nil {
			log.Info().Err(err).Str("code", code).Msg("referral not tracked")
		} else {
			res.ReferralCode = code
		}
	}

	name := req.CustomerName
	if name == "" {
		name = req.Parsed.CustomerName
	}

	conn, err := repo.GetCommerceConnection(ctx, c.DB, req.MerchantID)
	if err != nil {
		observability.OrderFailures.WithLabelValues("platform").Inc()
		return nil, fmt.Errorf("%w: commerce connection: %v", ErrPlatformOrderFailed, err)
	}
	ext, err := c.createPlatformOrder(ctx, conn.AccessToken, name, req, items)
	if err != nil {
		observability.OrderFailures.WithLabelValues("platform").Inc()
		return nil, err
	}
	// The platform order exists now; the remaining steps must not be cut short.
	ctx = context.WithoutCancel(ctx)

	order := &domain.Order{
		MerchantID:        req.MerchantID,
		ExternalOrderID:   ext.ExternalOrderID,
		OrderNumber:       ext.OrderNumber,
		CustomerPhone:     req.CustomerPhone,
		CustomerName:      name,
		Address:           req.Parsed.Address,
		City:              req.Parsed.City,
		Items:             items,
		TotalAmount:       final,
		Status:            domain.OrderPending,
		PaymentURL:        ext.PaymentURL,
		IsGift:            req.Parsed.IsGift,
		GiftRecipientName: req.Parsed.GiftRecipientName,
		GiftMessage:       req.Parsed.GiftMessage,
		DiscountCode:      res.DiscountCode,
	}
	if err := repo.CreateOrder(ctx, c.DB, order); err != nil {
		observability.OrderFailures.WithLabelValues("persistence").Inc()
		log.Error().Err(err).
			Str("external_order_id", ext.ExternalOrderID).
			Str("order_number", ext.OrderNumber).
			Msg("platform order created but local order not stored")
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	res.Order = order
	observability.OrdersCreated.Inc()
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int64("order.total", final))

	if validated != nil {
		if err := c.Discounts.ApplyUsage(ctx, validated.Code.Code); err != nil {
			// Another order took the last use between Validate and here.
			log.Warn().Err(err).Str("code", validated.Code.Code).Str("order_id", order.ID).Msg("discount use not consumed")
		}
	}

	res.PaymentURL = c.paymentLink(ctx, order, name)

	text := c.confirmation(order, res)
	if c.Notifier != nil {
		sent, err := c.Notifier.SendText(ctx, order, domain.NotifyPending, text)
		if err != nil {
			log.Warn().Err(err).Str("order_id", order.ID).Msg("order confirmation not sent")
		}
		res.ConfirmationSent = sent
	}

	if c.Carts != nil {
		if _, err := c.Carts.MarkRecovered(ctx, req.MerchantID, req.CustomerPhone); err != nil {
			log.Warn().Err(err).Msg("mark carts recovered failed")
		}
	}
	publish(ctx, c.Events, events.Event{
		Type:       events.OrderCreated,
		MerchantID: req.MerchantID,
		OrderID:    order.ID,
		Data: map[string]any{
			"order_number":  order.OrderNumber,
			"total_amount":  order.TotalAmount,
			"discount_code": order.DiscountCode,
			"is_gift":       order.IsGift,
		},
	})
	log.Info().Str("order_id", order.ID).Str("order_number", order.OrderNumber).
		Str("phone", maskPhone(req.CustomerPhone)).Int64("total", final).Msg("order created")
	return res, nil
}

func (c *OrderComposer) resolveItems(ctx context.Context, merchantID string, parsed *ParsedOrder) ([]domain.OrderItem, int64, error) {
	if parsed == nil || len(parsed.Products) == 0 {
		return nil, 0, ErrNoValidProducts
	}
	catalog, err := repo.ListActiveProducts(ctx, c.DB, merchantID)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[string]domain.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	var items []domain.OrderItem
	var total int64
	for _, pp := range parsed.Products {
		p, ok := byID[pp.ProductID]
		if !ok || pp.Quantity < 1 {
			continue
		}
		it := domain.OrderItem{
			ProductID:         p.ID,
			ExternalProductID: p.ExternalProductID,
			Name:              p.Name,
			Quantity:          pp.Quantity,
			Price:             p.Price,
		}
		items = append(items, it)
		total += it.LineTotal()
	}
	if len(items) == 0 {
		return nil, 0, ErrNoValidProducts
	}
	return items, total, nil
}

func (c *OrderComposer) createPlatformOrder(ctx context.Context, token, name string, req ComposeRequest, items []domain.OrderItem) (*PlatformOrder, error) {
	p := req.Parsed
	pr := PlatformOrderRequest{
		CustomerName:  name,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: digitsOnly(req.CustomerPhone) + "@temp.salla.sa",
		Address:       p.Address,
		City:          p.City,
	}
	if pr.Address == "" {
		pr.Address = defaultShippingAddress
	}
	if pr.City == "" {
		pr.City = defaultCity
	}
	if p.IsGift {
		pr.Notes = fmt.Sprintf("هدية إلى: %s\nرسالة: %s", p.GiftRecipientName, p.GiftMessage)
	}
	for _, it := range items {
		pr.Items = append(pr.Items, PlatformItem{ProductID: it.ExternalProductID, Quantity: it.Quantity, Price: it.Price})
	}

	out, err := c.Platform.CreateOrder(ctx, token, pr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlatformOrderFailed, err)
	}
	if out == nil || !out.Success {
		return nil, ErrPlatformOrderFailed
	}
	return out, nil
}

// paymentLink tries the merchant's own gateway and falls back to the
// platform link. Gateway problems never fail the order.
func (c *OrderComposer) paymentLink(ctx context.Context, order *domain.Order, name string) string {
	log := loggerFrom(ctx)
	if c.Gateway == nil {
		return order.PaymentURL
	}
	settings, err := repo.GetPaymentSettings(ctx, c.DB, order.MerchantID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			log.Warn().Err(err).Msg("payment settings lookup failed")
		}
		return order.PaymentURL
	}
	if !settings.TapEnabled || settings.TapSecretKey == "" {
		return order.PaymentURL
	}

	store := "المتجر"
	if m, err := repo.GetMerchant(ctx, c.DB, order.MerchantID); err == nil && m.BusinessName != "" {
		store = m.BusinessName
	}
	if name == "" {
		name = "Customer"
	}
	currency := settings.DefaultCurrency
	if currency == "" {
		currency = "SAR"
	}
	charge, err := c.Gateway.CreateCharge(ctx, settings.TapSecretKey, ChargeRequest{
		Amount:        order.TotalAmount,
		Currency:      currency,
		CustomerName:  name,
		CustomerPhone: order.CustomerPhone,
		RedirectURL:   strings.TrimRight(c.AppURL, "/") + "/payment/callback",
		Description:   fmt.Sprintf("طلب رقم %s من %s", order.OrderNumber, store),
		Metadata: map[string]string{
			"merchantId":  order.MerchantID,
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
			"type":        "order",
		},
	})
	if err != nil || charge == nil || charge.URL == "" {
		log.Warn().Err(err).Str("order_id", order.ID).Msg("gateway charge failed, using platform payment link")
		return order.PaymentURL
	}

	payment := &domain.OrderPayment{
		OrderID:    order.ID,
		MerchantID: order.MerchantID,
		Amount:     order.TotalAmount,
		Currency:   currency,
		ChargeID:   charge.ID,
		PaymentURL: charge.URL,
		Metadata:   map[string]any{"description": fmt.Sprintf("طلب رقم %s", order.OrderNumber)},
	}
	if err := repo.CreateOrderPayment(ctx, c.DB, payment); err != nil {
		log.Warn().Err(err).Str("charge_id", charge.ID).Msg("order payment not recorded")
	}
	if err := repo.UpdateOrderPaymentURL(ctx, c.DB, order.ID, charge.URL); err != nil {
		log.Warn().Err(err).Str("order_id", order.ID).Msg("order payment url not updated")
	} else {
		order.PaymentURL = charge.URL
	}
	return charge.URL
}

func (c *OrderComposer) confirmation(order *domain.Order, res *ComposeResult) string {
	var notice *discountNotice
	if res.DiscountCode != "" {
		notice = &discountNotice{Code: res.DiscountCode, OriginalAmount: res.OriginalAmount, DiscountAmount: res.Discount}
	}
	var text string
	if order.IsGift {
		recipient := order.GiftRecipientName
		if recipient == "" {
			recipient = order.CustomerName
		}
		text = giftConfirmationMessage(order.OrderNumber, recipient, order.Items, order.TotalAmount, res.PaymentURL, notice)
	} else {
		text = orderConfirmationMessage(order.OrderNumber, order.Items, order.TotalAmount, res.PaymentURL, notice)
	}
	if res.RejectedCode != "" {
		text += invalidCodeNotice(res.RejectedCode, res.RejectedMessage)
	}
	return text
}
