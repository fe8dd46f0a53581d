package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/events"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

type statusRig struct {
	s   *OrderStatusService
	msg *fakeMessenger
	pub *fakePublisher
}

func newStatusService(t *testing.T) *statusRig {
	t.Helper()
	db := newTestDB(t)
	seedMerchant(t, db, iphone())
	m, pub := &fakeMessenger{}, &fakePublisher{}
	discounts := &DiscountService{DB: db}
	return &statusRig{
		s: &OrderStatusService{
			DB:        db,
			Notifier:  &Notifier{DB: db, Messenger: m},
			Referrals: &ReferralService{DB: db, Discounts: discounts},
			Discounts: discounts,
			Events:    pub,
		},
		msg: m,
		pub: pub,
	}
}

func seedOrder(t *testing.T, s *OrderStatusService, phone string) *domain.Order {
	t.Helper()
	o := &domain.Order{
		MerchantID: testMerchant, ExternalOrderID: "ext", OrderNumber: "1001",
		CustomerPhone: phone, CustomerName: "سارة", TotalAmount: 9998,
		Items: []domain.OrderItem{{ProductID: "p-iphone", Name: "آيفون 15", Quantity: 2, Price: 4999}},
	}
	require.NoError(t, repo.CreateOrder(context.Background(), s.DB, o))
	return o
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{domain.OrderPending, domain.OrderPaid, true},
		{domain.OrderPending, domain.OrderShipped, true},
		{domain.OrderShipped, domain.OrderPaid, false},
		{domain.OrderPaid, domain.OrderPaid, false},
		{domain.OrderProcessing, domain.OrderCancelled, true},
		{domain.OrderShipped, domain.OrderCancelled, false},
		{domain.OrderCancelled, domain.OrderPaid, false},
		{domain.OrderDelivered, domain.OrderCancelled, false},
		{domain.OrderPending, "refunded", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAdvance_NotifiesAndStoresTracking(t *testing.T) {
	r := newStatusService(t)
	ctx := context.Background()
	o := seedOrder(t, r.s, testCustomer)

	res, err := r.s.Advance(ctx, o.ID, domain.OrderShipped, "SMSA-77")
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.Equal(t, "SMSA-77", res.Order.TrackingNumber)
	require.Len(t, r.msg.texts(), 1)
	assert.Contains(t, r.msg.texts()[0], "رقم التتبع: SMSA-77")
	assert.Equal(t, []string{events.OrderStatusChanged}, r.pub.types())

	_, err = r.s.Advance(ctx, o.ID, domain.OrderPaid, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = r.s.Advance(ctx, "missing", domain.OrderPaid, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAdvance_ProcessingHasNoNotification(t *testing.T) {
	r := newStatusService(t)
	o := seedOrder(t, r.s, testCustomer)
	res, err := r.s.Advance(context.Background(), o.ID, domain.OrderProcessing, "")
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Empty(t, r.msg.texts())
}

func TestAdvance_PaidCompletesReferralAndRewardsAtMilestone(t *testing.T) {
	r := newStatusService(t)
	ctx := context.Background()
	rc, err := r.s.Referrals.IssueFor(ctx, testMerchant, "966509999999", "Ali")
	require.NoError(t, err)

	var last *AdvanceResult
	for i := 1; i <= 5; i++ {
		phone := fmt.Sprintf("96650000000%d", i)
		_, err := r.s.Referrals.Track(ctx, testMerchant, rc.Code, phone, "")
		require.NoError(t, err)
		o := seedOrder(t, r.s, phone)
		last, err = r.s.Advance(ctx, o.ID, domain.OrderPaid, "")
		require.NoError(t, err)
		if i < 5 {
			assert.Empty(t, last.RewardCodes)
		}
	}
	require.Len(t, last.RewardCodes, 1)
	assert.True(t, strings.HasPrefix(last.RewardCodes[0], "SARI"))

	var progress, reward int
	for _, txt := range r.msg.texts() {
		if strings.Contains(txt, "باقي") {
			progress++
		}
		if strings.Contains(txt, last.RewardCodes[0]) && strings.Contains(txt, "مبروك Ali") {
			reward++
		}
	}
	assert.Equal(t, 3, progress, "progress at 2, 3 and 4")
	assert.Equal(t, 1, reward)
	assert.Contains(t, r.pub.types(), events.ReferralRewarded)

	fresh, err := repo.GetReferralCode(ctx, r.s.DB, rc.ID)
	require.NoError(t, err)
	assert.True(t, fresh.RewardGiven)
}

func TestAdvance_PaidRewardsEveryReferrerAtMilestone(t *testing.T) {
	r := newStatusService(t)
	ctx := context.Background()
	const buyer = "966502222222"

	for _, referrer := range []string{"966501111111", "966503333333"} {
		rc, err := r.s.Referrals.IssueFor(ctx, testMerchant, referrer, "")
		require.NoError(t, err)
		require.NoError(t, r.s.DB.Model(&domain.ReferralCode{}).Where("id = ?", rc.ID).Update("referral_count", 4).Error)
		_, err = r.s.Referrals.Track(ctx, testMerchant, rc.Code, buyer, "")
		require.NoError(t, err)
	}

	o := seedOrder(t, r.s, buyer)
	res, err := r.s.Advance(ctx, o.ID, domain.OrderPaid, "")
	require.NoError(t, err)
	require.Len(t, res.RewardCodes, 2)
	assert.NotEqual(t, res.RewardCodes[0], res.RewardCodes[1])

	var rewarded int64
	require.NoError(t, r.s.DB.Model(&domain.ReferralCode{}).Where("reward_given = ?", true).Count(&rewarded).Error)
	assert.Equal(t, int64(2), rewarded)
}

func TestAdvance_WelcomeCodeOnFirstDeliveryOnly(t *testing.T) {
	r := newStatusService(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r.s.Now = fixedClock(now)

	first := seedOrder(t, r.s, testCustomer)
	res, err := r.s.Advance(ctx, first.ID, domain.OrderDelivered, "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.WelcomeCode, "WELCOME"))

	code, err := repo.GetDiscountCode(ctx, r.s.DB, res.WelcomeCode)
	require.NoError(t, err)
	assert.Equal(t, int64(10), code.Value)
	assert.True(t, code.ExpiresAt.Equal(now.AddDate(0, 0, 30)))

	texts := r.msg.texts()
	assert.Contains(t, texts[len(texts)-1], "🎁 الكود: *"+res.WelcomeCode+"*")
	assert.Contains(t, texts[len(texts)-1], "صالح حتى: 01/07/2025")

	second := seedOrder(t, r.s, testCustomer)
	res, err = r.s.Advance(ctx, second.ID, domain.OrderDelivered, "")
	require.NoError(t, err)
	assert.Empty(t, res.WelcomeCode)
}
