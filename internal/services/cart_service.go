// Package services – CartService
//
// CartService is the abandoned-cart tracker. A cart is opened when a customer
// shows product interest without ordering, reminded once after it has been
// idle long enough (with a single-use recovery code), and closed as recovered
// when the customer completes an order. At most one cart per (merchant, phone)
// is open at a time; the repo enforces this with a unique open_key.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/events"
	"github.com/ingaz2013/sari-sub001/internal/observability"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

const (
	cartCodePrefix      = "CART"
	cartRecoveryPercent = 10
	cartRecoveryDays    = 7

	defaultAbandonAfter = 24 * time.Hour
	defaultSweepDelay   = 2 * time.Second
	defaultSweepJitter  = time.Second
	defaultSweepLimit   = 100
)

// SweepResult summarizes one Sweep run.
type SweepResult struct {
	Checked  int `json:"checked"`
	Reminded int `json:"reminded"`
	Errors   int `json:"errors"`
}

// CartService tracks abandoned carts and sends recovery reminders.
type CartService struct {
	DB        *gorm.DB
	Discounts *DiscountService
	Messenger Messenger
	Events    EventPublisher

	// Sweep tuning; zero values use the defaults (24h, 2s + [0,1s), 100).
	AbandonAfter time.Duration
	Delay        time.Duration
	Jitter       time.Duration
	Limit        int

	// Now and Wait are test seams. Wait blocks for d or until ctx is done.
	Now  func() time.Time
	Wait func(ctx context.Context, d time.Duration) error
}

func (s *CartService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CartService) wait(ctx context.Context, d time.Duration) error {
	if s.Wait != nil {
		return s.Wait(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Track opens a cart for (merchant, phone) or returns the ID of the one that
// is already open. Concurrent calls converge on a single cart.
func (s *CartService) Track(ctx context.Context, merchantID, phone, name string, items []domain.OrderItem, total int64) (string, error) {
	tr := otel.Tracer("services/CartService")
	ctx, span := tr.Start(ctx, "Track",
		trace.WithAttributes(
			attribute.String("merchant.id", merchantID),
			attribute.Int("cart.items", len(items)),
		),
	)
	defer span.End()

	if open, err := repo.GetOpenCart(ctx, s.DB, merchantID, phone); err == nil {
		return open.ID, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}

	c := &domain.AbandonedCart{
		MerchantID:    merchantID,
		CustomerPhone: phone,
		CustomerName:  name,
		Items:         items,
		TotalAmount:   total,
	}
	err := repo.CreateCart(ctx, s.DB, c)
	if errors.Is(err, repo.ErrDuplicate) {
		open, gerr := repo.GetOpenCart(ctx, s.DB, merchantID, phone)
		if gerr != nil {
			return "", gerr
		}
		return open.ID, nil
	}
	if err != nil {
		return "", err
	}
	loggerFrom(ctx).Debug().Str("cart_id", c.ID).Str("phone", maskPhone(phone)).Msg("cart opened")
	return c.ID, nil
}

// SweepPending lists carts idle for at least olderThan that were neither
// reminded nor recovered, oldest first.
func (s *CartService) SweepPending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.AbandonedCart, error) {
	return repo.ListPendingCarts(ctx, s.DB, s.now().Add(-olderThan), limit)
}

// SendReminder sends the recovery reminder for one cart. It returns false
// without error when the cart is no longer open or another sweep reminded it
// first. A send failure is returned and leaves the cart eligible.
func (s *CartService) SendReminder(ctx context.Context, cartID string) (bool, error) {
	tr := otel.Tracer("services/CartService")
	ctx, span := tr.Start(ctx, "SendReminder",
		trace.WithAttributes(attribute.String("cart.id", cartID)),
	)
	defer span.End()

	c, err := repo.GetCart(ctx, s.DB, cartID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrCartNotFound
		}
		return false, err
	}
	if c.ReminderSent || c.Recovered {
		return false, nil
	}
	conn, err := repo.GetConnectionForMerchant(ctx, s.DB, c.MerchantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrNoConnection
		}
		return false, err
	}

	code, err := s.mintRecoveryCode(ctx, c)
	if err != nil {
		return false, err
	}

	text := cartReminderMessage(c.CustomerName, c.Items, c.TotalAmount, code.Code)
	if _, err := s.Messenger.SendText(ctx, *conn, c.CustomerPhone, text); err != nil {
		observability.CartReminders.WithLabelValues("send_failed").Inc()
		s.retireCode(ctx, c.MerchantID, code.Code)
		return false, fmt.Errorf("send reminder: %w", err)
	}

	ok, err := repo.MarkCartReminded(ctx, s.DB, c.ID, code.Code)
	if err != nil {
		return false, err
	}
	if !ok {
		observability.CartReminders.WithLabelValues("raced").Inc()
		s.retireCode(ctx, c.MerchantID, code.Code)
		return false, nil
	}
	observability.CartReminders.WithLabelValues("sent").Inc()
	publish(ctx, s.Events, events.Event{
		Type:       events.CartReminded,
		MerchantID: c.MerchantID,
		Data:       map[string]any{"cart_id": c.ID, "discount_code": code.Code},
	})
	return true, nil
}

// retireCode deactivates a recovery code the customer never received.
func (s *CartService) retireCode(ctx context.Context, merchantID, code string) {
	if err := s.Discounts.Deactivate(ctx, merchantID, code); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("code", code).Msg("deactivate unsent recovery code")
	}
}

// mintRecoveryCode creates CART + last4(phone) + 4 clock digits, falling back
// to a generated CART code when that is taken.
func (s *CartService) mintRecoveryCode(ctx context.Context, c *domain.AbandonedCart) (*domain.DiscountCode, error) {
	now := s.now()
	expires := now.AddDate(0, 0, cartRecoveryDays)
	in := DiscountInput{
		MerchantID:  c.MerchantID,
		Code:        fmt.Sprintf("%s%s%04d", cartCodePrefix, lastDigits(c.CustomerPhone, 4), now.UnixMilli()%10000),
		Type:        domain.DiscountPercentage,
		Value:       cartRecoveryPercent,
		MaxUses:     1,
		ExpiresAt:   &expires,
		Description: "abandoned cart recovery",
	}
	code, err := s.Discounts.Create(ctx, in)
	if errors.Is(err, ErrDuplicateCode) {
		in.Code, in.Prefix = "", cartCodePrefix
		code, err = s.Discounts.Create(ctx, in)
	}
	return code, err
}

// Sweep reminds every pending cart once, sequentially, pausing between sends.
// Errors are counted and the sweep continues; a cancelled ctx stops it.
func (s *CartService) Sweep(ctx context.Context) (SweepResult, error) {
	tr := otel.Tracer("services/CartService")
	ctx, span := tr.Start(ctx, "Sweep")
	defer span.End()

	after, limit := s.AbandonAfter, s.Limit
	if after <= 0 {
		after = defaultAbandonAfter
	}
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	carts, err := s.SweepPending(ctx, after, limit)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	log := loggerFrom(ctx)
	for i, c := range carts {
		if i > 0 {
			if err := s.wait(ctx, s.pause()); err != nil {
				break
			}
		}
		res.Checked++
		sent, err := s.SendReminder(ctx, c.ID)
		if err != nil {
			res.Errors++
			log.Warn().Err(err).Str("cart_id", c.ID).Msg("cart reminder failed")
			continue
		}
		if sent {
			res.Reminded++
		}
	}
	span.SetAttributes(
		attribute.Int("sweep.checked", res.Checked),
		attribute.Int("sweep.reminded", res.Reminded),
		attribute.Int("sweep.errors", res.Errors),
	)
	log.Info().Int("checked", res.Checked).Int("reminded", res.Reminded).Int("errors", res.Errors).Msg("cart sweep finished")
	return res, ctx.Err()
}

func (s *CartService) pause() time.Duration {
	delay, jitter := s.Delay, s.Jitter
	if delay <= 0 {
		delay = defaultSweepDelay
	}
	if jitter <= 0 {
		jitter = defaultSweepJitter
	}
	return delay + rand.N(jitter)
}

// MarkRecovered closes the customer's open or reminded carts after an order.
func (s *CartService) MarkRecovered(ctx context.Context, merchantID, phone string) (int64, error) {
	tr := otel.Tracer("services/CartService")
	ctx, span := tr.Start(ctx, "MarkRecovered",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)),
	)
	defer span.End()

	n, err := repo.MarkCartsRecovered(ctx, s.DB, merchantID, phone)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.CartReminders.WithLabelValues("recovered").Add(float64(n))
	}
	return n, nil
}
