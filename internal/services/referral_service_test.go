package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

func newReferrals(t *testing.T) *ReferralService {
	t.Helper()
	db := newTestDB(t)
	return &ReferralService{DB: db, Discounts: &DiscountService{DB: db}}
}

func TestReferralGenerateCode_Shape(t *testing.T) {
	s := &ReferralService{}
	re := regexp.MustCompile(`^REF4567[A-HJ-NP-Z]{4}$`)
	for i := 0; i < 100; i++ {
		c := s.GenerateCode("+966 50 123 4567")
		require.Regexp(t, re, c)
	}
	assert.Equal(t, "0012", lastDigits("12", 4))
}

func TestIssueFor_Idempotent(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()

	a, err := s.IssueFor(ctx, "m1", "966501234567", "سارة")
	require.NoError(t, err)
	b, err := s.IssueFor(ctx, "m1", "966501234567", "سارة")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.Code, b.Code)

	other, err := s.IssueFor(ctx, "m2", "966501234567", "سارة")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, other.ID)
}

func TestIssueFor_CollisionExhausts(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	s.RandIntN = func(int) int { return 0 }

	_, err := s.IssueFor(ctx, "m1", "966500004567", "")
	require.NoError(t, err)
	_, err = s.IssueFor(ctx, "m1", "966511114567", "")
	assert.ErrorIs(t, err, ErrGenerationExhausted)
}

func TestTrack_Rules(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	rc, err := s.IssueFor(ctx, "m1", "966501111111", "Ali")
	require.NoError(t, err)

	_, err = s.Track(ctx, "m1", "REF0000ZZZZ", "966502222222", "")
	assert.ErrorIs(t, err, ErrReferralInvalid)

	_, err = s.Track(ctx, "m2", rc.Code, "966502222222", "")
	assert.ErrorIs(t, err, ErrReferralInvalid, "foreign merchant must look invalid")

	_, err = s.Track(ctx, "m1", rc.Code, "966501111111", "")
	assert.ErrorIs(t, err, ErrSelfReferral)

	r, err := s.Track(ctx, "m1", rc.Code, "966502222222", "Huda")
	require.NoError(t, err)
	assert.False(t, r.OrderCompleted)

	_, err = s.Track(ctx, "m1", rc.Code, "966502222222", "Huda")
	assert.ErrorIs(t, err, ErrAlreadyReferred)

	fresh, err := repo.GetReferralCode(ctx, s.DB, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.ReferralCount, "tracking never counts")
}

func TestComplete_CountsOncePerReferredPhone(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	rc, err := s.IssueFor(ctx, "m1", "966501111111", "Ali")
	require.NoError(t, err)
	_, err = s.Track(ctx, "m1", rc.Code, "966502222222", "")
	require.NoError(t, err)

	res, err := s.Complete(ctx, "m1", "966502222222")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Completed)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, 1, res.Updated[0].ReferralCount)
	assert.Empty(t, res.Milestones)

	again, err := s.Complete(ctx, "m1", "966502222222")
	require.NoError(t, err)
	assert.Zero(t, again.Completed)

	other, err := s.Complete(ctx, "m2", "966502222222")
	require.NoError(t, err)
	assert.Zero(t, other.Completed)
}

func TestMilestoneAndReward(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.Now = fixedClock(now)

	rc, err := s.IssueFor(ctx, "m1", "966501111111", "Ali")
	require.NoError(t, err)

	var last ReferralCompletion
	for _, p := range []string{"966500000001", "966500000002", "966500000003", "966500000004", "966500000005"} {
		_, err := s.Track(ctx, "m1", rc.Code, p, "")
		require.NoError(t, err)
		last, err = s.Complete(ctx, "m1", p)
		require.NoError(t, err)
	}
	require.Len(t, last.Milestones, 1)
	assert.Equal(t, rc.ID, last.Milestones[0].ID)
	assert.Equal(t, 5, last.Milestones[0].ReferralCount)

	_, err = s.Reward(ctx, "m1", "966509999999", rc.ID)
	assert.ErrorIs(t, err, ErrRewardAlreadyGiven, "wrong referrer phone cannot claim")

	code, err := s.Reward(ctx, "m1", "966501111111", rc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountPercentage, code.Type)
	assert.Equal(t, int64(15), code.Value)
	assert.Equal(t, 1, code.MaxUses)
	require.NotNil(t, code.ExpiresAt)
	assert.True(t, code.ExpiresAt.Equal(now.AddDate(0, 0, 60)))

	_, err = s.Reward(ctx, "m1", "966501111111", rc.ID)
	assert.ErrorIs(t, err, ErrRewardAlreadyGiven)

	var n int64
	require.NoError(t, s.DB.Model(&domain.DiscountCode{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestReward_BelowMilestone(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	rc, err := s.IssueFor(ctx, "m1", "966501111111", "Ali")
	require.NoError(t, err)
	_, err = s.Reward(ctx, "m1", "966501111111", rc.ID)
	assert.ErrorIs(t, err, ErrRewardAlreadyGiven)
}

func TestReward_FailedMintRollsBackFlag(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	rc, err := s.IssueFor(ctx, "m1", "966501111111", "Ali")
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(&domain.ReferralCode{}).Where("id = ?", rc.ID).Update("referral_count", 5).Error)

	// Occupy the only code the generator can produce.
	s.Discounts.RandIntN = func(int) int { return 0 }
	_, err = s.Discounts.Create(ctx, DiscountInput{MerchantID: "m9", Type: domain.DiscountFixed, Value: 100})
	require.NoError(t, err)

	_, err = s.Reward(ctx, "m1", "966501111111", rc.ID)
	require.ErrorIs(t, err, ErrGenerationExhausted)

	fresh, err := repo.GetReferralCode(ctx, s.DB, rc.ID)
	require.NoError(t, err)
	assert.False(t, fresh.RewardGiven)
}

func TestReward_CollisionRetryKeepsTransactionUsable(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	rc, err := s.IssueFor(ctx, "m1", "966501111111", "Ali")
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(&domain.ReferralCode{}).Where("id = ?", rc.ID).Update("referral_count", 5).Error)

	s.Discounts.RandIntN = func(int) int { return 0 }
	taken, err := s.Discounts.Create(ctx, DiscountInput{MerchantID: "m9", Type: domain.DiscountFixed, Value: 100})
	require.NoError(t, err)

	// The first generated code collides, the second is free.
	calls := 0
	s.Discounts.RandIntN = func(int) int {
		calls++
		if calls <= codeRandomLen {
			return 0
		}
		return 1
	}
	code, err := s.Reward(ctx, "m1", "966501111111", rc.ID)
	require.NoError(t, err)
	assert.Equal(t, "SARIBBBBBB", code.Code)
	assert.NotEqual(t, taken.Code, code.Code)

	fresh, err := repo.GetReferralCode(ctx, s.DB, rc.ID)
	require.NoError(t, err)
	assert.True(t, fresh.RewardGiven)

	got, err := repo.GetDiscountCode(ctx, s.DB, "SARIBBBBBB")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.MerchantID)
}

func TestComplete_ReportsEveryMilestone(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	const buyer = "966502222222"

	var ids []string
	for _, referrer := range []string{"966501111111", "966503333333"} {
		rc, err := s.IssueFor(ctx, "m1", referrer, "")
		require.NoError(t, err)
		require.NoError(t, s.DB.Model(&domain.ReferralCode{}).Where("id = ?", rc.ID).Update("referral_count", 4).Error)
		_, err = s.Track(ctx, "m1", rc.Code, buyer, "")
		require.NoError(t, err)
		ids = append(ids, rc.ID)
	}

	res, err := s.Complete(ctx, "m1", buyer)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Completed)
	require.Len(t, res.Milestones, 2)
	var got []string
	for _, m := range res.Milestones {
		assert.Equal(t, 5, m.ReferralCount)
		got = append(got, m.ID)
	}
	assert.ElementsMatch(t, ids, got)
}

func TestExtractReferralCode(t *testing.T) {
	cases := map[string]string{
		"أبي أطلب REF4567ABCD لو سمحت": "REF4567ABCD",
		"كود صديق: ref12ab34cd":        "REF12AB34CD",
		"دعوة REF1A2B3C4D":             "REF1A2B3C4D",
		"أبي آيفون":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractReferralCode(in), in)
	}
}

func TestExtractDiscountCode(t *testing.T) {
	assert.Equal(t, "SARIAB12CD", ExtractDiscountCode("عندي SARIAB12CD"))
	assert.Equal(t, "CART45671234", ExtractDiscountCode("أريد الطلب CART45671234"))
	assert.Equal(t, "SUMMER25", ExtractDiscountCode("كوبون: summer25"))
	assert.Equal(t, "", ExtractDiscountCode("REF4567ABCD"))
	assert.Equal(t, "", ExtractDiscountCode("مرحبا"))
}

func TestShouldSendProgress(t *testing.T) {
	for c, want := range map[int]bool{1: false, 2: true, 3: true, 4: true, 5: false} {
		assert.Equal(t, want, ShouldSendProgress(c), c)
	}
}

func TestInvite_RendersStoreLink(t *testing.T) {
	s := newReferrals(t)
	ctx := context.Background()
	require.NoError(t, s.DB.Create(&domain.Merchant{ID: "m1", BusinessName: "متجر", StoreURL: "https://wa.me/966500000000"}).Error)

	inv, err := s.Invite(ctx, "m1", "966501234567", "سارة")
	require.NoError(t, err)
	assert.Contains(t, inv.Message, "صديقك سارة يدعوك")
	assert.Contains(t, inv.Message, "*"+inv.Code.Code+"*")
	assert.Contains(t, inv.Message, "https://wa.me/966500000000")

	again, err := s.Invite(ctx, "m1", "966501234567", "")
	require.NoError(t, err)
	assert.Equal(t, inv.Code.ID, again.Code.ID)

	_, err = s.Invite(ctx, "missing", "966501234567", "سارة")
	assert.ErrorIs(t, err, ErrMerchantNotFound)
}
