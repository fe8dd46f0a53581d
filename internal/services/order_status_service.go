// Package services – OrderStatusService
//
// OrderStatusService advances orders through their lifecycle. Status only
// moves forward (pending → paid → processing → shipped → delivered, steps may
// be skipped), and cancelled is reachable only before shipping. The change is
// a compare-and-set on the current status, so concurrent updates cannot both
// win. Side effects run after the change is committed and are best-effort:
//
//   - the customer notification for the status (if any)
//   - on paid: referral completion, progress messages, milestone reward
//   - on delivered: a welcome code for the customer's first delivered order
//   - an order.status_changed event
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/events"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

const (
	welcomeCodePrefix = "WELCOME"
	welcomePercent    = 10
	welcomeDays       = 30
)

var statusRank = map[string]int{
	domain.OrderPending:    0,
	domain.OrderPaid:       1,
	domain.OrderProcessing: 2,
	domain.OrderShipped:    3,
	domain.OrderDelivered:  4,
}

// notificationFor maps an order status to the notification it triggers.
var notificationFor = map[string]string{
	domain.OrderPending:   domain.NotifyPending,
	domain.OrderPaid:      domain.NotifyConfirmed,
	domain.OrderShipped:   domain.NotifyShipped,
	domain.OrderDelivered: domain.NotifyDelivered,
	domain.OrderCancelled: domain.NotifyCancelled,
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	if to == domain.OrderCancelled {
		r, ok := statusRank[from]
		return ok && r <= statusRank[domain.OrderProcessing]
	}
	rf, okf := statusRank[from]
	rt, okt := statusRank[to]
	return okf && okt && rt > rf
}

// AdvanceResult reports what Advance did.
type AdvanceResult struct {
	Order       *domain.Order
	Notified    bool
	RewardCodes []string
	WelcomeCode string
}

// OrderStatusService applies order status changes and their side effects.
type OrderStatusService struct {
	DB        *gorm.DB
	Notifier  *Notifier
	Referrals *ReferralService
	Discounts *DiscountService
	Events    EventPublisher

	// Now is a test seam.
	Now func() time.Time
}

func (s *OrderStatusService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Advance moves orderID to status, storing tracking when given.
func (s *OrderStatusService) Advance(ctx context.Context, orderID, status, tracking string) (*AdvanceResult, error) {
	tr := otel.Tracer("services/OrderStatusService")
	ctx, span := tr.Start(ctx, "Advance",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.status", status),
		),
	)
	defer span.End()
	log := loggerFrom(ctx)

	order, err := repo.GetOrder(ctx, s.DB, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	from := order.Status
	if !CanTransition(from, status) {
		return nil, ErrInvalidTransition
	}
	if err := repo.TransitionOrderStatus(ctx, s.DB, orderID, from, status, tracking); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Someone else moved the order first.
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	order.Status = status
	if tracking != "" {
		order.TrackingNumber = tracking
	}
	res := &AdvanceResult{Order: order}

	merchant, err := repo.GetMerchant(ctx, s.DB, order.MerchantID)
	if err != nil {
		log.Warn().Err(err).Str("merchant_id", order.MerchantID).Msg("merchant lookup failed")
	}

	if notify, ok := notificationFor[status]; ok && s.Notifier != nil {
		sent, err := s.Notifier.Send(ctx, order, notify, VarsFor(order, merchant))
		if err != nil {
			log.Warn().Err(err).Str("order_id", order.ID).Str("status", status).Msg("status notification failed")
		}
		res.Notified = sent
	}

	switch status {
	case domain.OrderPaid:
		res.RewardCodes = s.completeReferrals(ctx, order)
	case domain.OrderDelivered:
		res.WelcomeCode = s.welcome(ctx, order)
	}

	publish(ctx, s.Events, events.Event{
		Type:       events.OrderStatusChanged,
		MerchantID: order.MerchantID,
		OrderID:    order.ID,
		Data:       map[string]any{"from": from, "to": status, "tracking_number": order.TrackingNumber},
	})
	return res, nil
}

// completeReferrals counts the paying customer for whoever referred them and
// rewards every referrer that reached the milestone. It returns the reward
// codes.
func (s *OrderStatusService) completeReferrals(ctx context.Context, order *domain.Order) []string {
	if s.Referrals == nil {
		return nil
	}
	log := loggerFrom(ctx)
	done, err := s.Referrals.Complete(ctx, order.MerchantID, order.CustomerPhone)
	if err != nil {
		log.Warn().Err(err).Str("order_id", order.ID).Msg("referral completion failed")
		return nil
	}

	for _, rc := range done.Updated {
		if !ShouldSendProgress(rc.ReferralCount) || s.Notifier == nil {
			continue
		}
		text := referralProgressMessage(rc.ReferrerName, rc.ReferralCount, referralMilestone-rc.ReferralCount)
		if err := s.Notifier.Message(ctx, order.MerchantID, rc.ReferrerPhone, text); err != nil {
			log.Warn().Err(err).Str("phone", maskPhone(rc.ReferrerPhone)).Msg("referral progress message failed")
		}
	}

	var codes []string
	for i := range done.Milestones {
		if code := s.reward(ctx, order, &done.Milestones[i]); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// reward grants ref's milestone reward and tells the referrer. It returns the
// minted code, or "" when nothing was granted.
func (s *OrderStatusService) reward(ctx context.Context, order *domain.Order, ref *domain.ReferralCode) string {
	log := loggerFrom(ctx)
	code, err := s.Referrals.Reward(ctx, order.MerchantID, ref.ReferrerPhone, ref.ID)
	if err != nil {
		if !errors.Is(err, ErrRewardAlreadyGiven) {
			log.Error().Err(err).Str("referral_code_id", ref.ID).Msg("referral reward failed")
		}
		return ""
	}
	if s.Notifier != nil {
		text := referralRewardMessage(ref.ReferrerName, code.Code, *code.ExpiresAt)
		if err := s.Notifier.Message(ctx, order.MerchantID, ref.ReferrerPhone, text); err != nil {
			log.Warn().Err(err).Str("phone", maskPhone(ref.ReferrerPhone)).Msg("referral reward message failed")
		}
	}
	publish(ctx, s.Events, events.Event{
		Type:       events.ReferralRewarded,
		MerchantID: order.MerchantID,
		OrderID:    order.ID,
		Data:       map[string]any{"referral_code_id": ref.ID, "discount_code": code.Code},
	})
	return code.Code
}

// welcome mints the post-purchase code on the customer's first delivered
// order and returns it.
func (s *OrderStatusService) welcome(ctx context.Context, order *domain.Order) string {
	if s.Discounts == nil {
		return ""
	}
	log := loggerFrom(ctx)
	n, err := repo.CountDeliveredOrders(ctx, s.DB, order.MerchantID, order.CustomerPhone)
	if err != nil || n != 1 {
		if err != nil {
			log.Warn().Err(err).Msg("delivered order count failed")
		}
		return ""
	}
	expires := s.now().AddDate(0, 0, welcomeDays)
	code, err := s.Discounts.Create(ctx, DiscountInput{
		MerchantID:  order.MerchantID,
		Prefix:      welcomeCodePrefix,
		Type:        domain.DiscountPercentage,
		Value:       welcomePercent,
		MaxUses:     1,
		ExpiresAt:   &expires,
		Description: "post-purchase welcome",
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("welcome code not created")
		return ""
	}
	if s.Notifier != nil {
		text := welcomeDiscountMessage(order.CustomerName, code.Code, welcomePercent, code.ExpiresAt)
		if err := s.Notifier.Message(ctx, order.MerchantID, order.CustomerPhone, text); err != nil {
			log.Warn().Err(err).Str("phone", maskPhone(order.CustomerPhone)).Msg("welcome code message failed")
		}
	}
	return code.Code
}
