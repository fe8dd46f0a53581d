// Package services – ReferralService
//
// ReferralService is the referral ledger. A referral code moves through
// issued → (0..4 completed referrals) → milestone → rewarded. Tracking a
// referral never moves the count; only Complete does, and only once per
// (code, referred phone) because completion is a compare-and-set on the
// referral row. Milestone detection and the reward are separate calls; the
// reward is guarded by a compare-and-set on reward_given inside the same
// transaction that mints the discount code.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

const (
	referralPrefix        = "REF"
	referralAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	referralMilestone     = 5
	referralRewardPercent = 15
	referralRewardDays    = 60
)

var (
	referralCodePattern  = regexp.MustCompile(`\bREF\d{4}[A-Z]{4}\b`)
	referralLabelPattern = regexp.MustCompile(`(?i)(?:referral|إحالة|دعوة|كود\s+صديق)\s*[:=]?\s*(REF[A-Z0-9]{8})`)
)

// ReferralCompletion is the result of Complete.
//
// Updated holds every code whose count moved, with the new count. Milestones
// holds each of those codes that reached the milestone without a reward yet;
// the rewards themselves are granted by Reward.
type ReferralCompletion struct {
	Completed  int
	Updated    []domain.ReferralCode
	Milestones []domain.ReferralCode
}

// ReferralService owns referral-code issuance, tracking, completion and reward.
type ReferralService struct {
	DB        *gorm.DB
	Discounts *DiscountService

	// Now and RandIntN are test seams.
	Now      func() time.Time
	RandIntN func(n int) int
}

func (s *ReferralService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// GenerateCode returns REF + the last four digits of phone + four letters.
func (s *ReferralService) GenerateCode(phone string) string {
	return referralPrefix + lastDigits(phone, 4) + randomString(s.RandIntN, referralAlphabet, 4)
}

// IssueFor returns the referral code of (merchant, phone), creating it when
// missing. A concurrent issue for the same phone resolves to the row that won.
func (s *ReferralService) IssueFor(ctx context.Context, merchantID, phone, name string) (*domain.ReferralCode, error) {
	tr := otel.Tracer("services/ReferralService")
	ctx, span := tr.Start(ctx, "IssueFor",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)),
	)
	defer span.End()

	existing, err := repo.GetReferralCodeForPhone(ctx, s.DB, merchantID, phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	for i := 0; i < maxCodeAttempts; i++ {
		rc := &domain.ReferralCode{
			MerchantID:    merchantID,
			Code:          s.GenerateCode(phone),
			ReferrerPhone: phone,
			ReferrerName:  name,
		}
		err := repo.CreateReferralCode(ctx, s.DB, rc)
		if err == nil {
			loggerFrom(ctx).Info().Str("phone", maskPhone(phone)).Str("code", rc.Code).Msg("referral code issued")
			return rc, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		// Either the code text collided or another request issued a code
		// for this phone first.
		if won, gerr := repo.GetReferralCodeForPhone(ctx, s.DB, merchantID, phone); gerr == nil {
			return won, nil
		}
	}
	return nil, ErrGenerationExhausted
}

// ReferralInvite is an issued referral code and the text its owner forwards.
type ReferralInvite struct {
	Code    *domain.ReferralCode
	Message string
}

// Invite issues the referral code of phone, or returns the existing one, and
// renders the invite message with the merchant's store URL.
func (s *ReferralService) Invite(ctx context.Context, merchantID, phone, name string) (*ReferralInvite, error) {
	merchant, err := repo.GetMerchant(ctx, s.DB, merchantID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMerchantNotFound
	}
	if err != nil {
		return nil, err
	}
	rc, err := s.IssueFor(ctx, merchantID, phone, name)
	if err != nil {
		return nil, err
	}
	referrer := rc.ReferrerName
	if referrer == "" {
		referrer = phone
	}
	return &ReferralInvite{Code: rc, Message: ReferralInviteMessage(referrer, rc.Code, merchant.StoreURL)}, nil
}

// Track records that referredPhone came through code. The row starts pending
// and does not count until Complete.
func (s *ReferralService) Track(ctx context.Context, merchantID, code, referredPhone, referredName string) (*domain.Referral, error) {
	tr := otel.Tracer("services/ReferralService")
	ctx, span := tr.Start(ctx, "Track",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)),
	)
	defer span.End()

	rc, err := repo.GetReferralCodeByCode(ctx, s.DB, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrReferralInvalid
		}
		return nil, err
	}
	if rc.MerchantID != merchantID || !rc.IsActive {
		return nil, ErrReferralInvalid
	}
	if samePhone(rc.ReferrerPhone, referredPhone) {
		return nil, ErrSelfReferral
	}

	r := &domain.Referral{
		ReferralCodeID: rc.ID,
		ReferredPhone:  referredPhone,
		ReferredName:   referredName,
	}
	if err := repo.CreateReferral(ctx, s.DB, r); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAlreadyReferred
		}
		return nil, err
	}
	return r, nil
}

// Complete marks every pending referral of referredPhone under merchantID as
// completed and counts it for its referrer, all in one transaction. It
// reports milestones but does not grant the rewards.
func (s *ReferralService) Complete(ctx context.Context, merchantID, referredPhone string) (ReferralCompletion, error) {
	tr := otel.Tracer("services/ReferralService")
	ctx, span := tr.Start(ctx, "Complete",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)),
	)
	defer span.End()

	var out ReferralCompletion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pending, err := repo.ListPendingReferrals(ctx, tx, merchantID, referredPhone)
		if err != nil {
			return err
		}
		for _, r := range pending {
			won, err := repo.CompleteReferral(ctx, tx, r.ID)
			if err != nil {
				return err
			}
			if !won {
				continue
			}
			if err := repo.IncrementReferralCount(ctx, tx, r.ReferralCodeID); err != nil {
				return err
			}
			rc, err := repo.GetReferralCode(ctx, tx, r.ReferralCodeID)
			if err != nil {
				return err
			}
			out.Completed++
			out.Updated = append(out.Updated, *rc)
			if rc.ReferralCount >= referralMilestone && !rc.RewardGiven {
				out.Milestones = append(out.Milestones, *rc)
			}
		}
		return nil
	})
	if err != nil {
		return ReferralCompletion{}, err
	}
	span.SetAttributes(attribute.Int("referral.completed", out.Completed), attribute.Int("referral.milestones", len(out.Milestones)))
	return out, nil
}

// Reward grants the milestone reward of codeID: a 15% single-use code valid
// for 60 days. The reward_given flag is claimed and the code minted in one
// transaction, so a failed mint leaves the flag unset. A second call returns
// ErrRewardAlreadyGiven.
func (s *ReferralService) Reward(ctx context.Context, merchantID, referrerPhone, codeID string) (*domain.DiscountCode, error) {
	tr := otel.Tracer("services/ReferralService")
	ctx, span := tr.Start(ctx, "Reward",
		trace.WithAttributes(
			attribute.String("merchant.id", merchantID),
			attribute.String("referral.code_id", codeID),
		),
	)
	defer span.End()

	var minted *domain.DiscountCode
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.ClaimReferralReward(ctx, tx, merchantID, referrerPhone, codeID, referralMilestone)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRewardAlreadyGiven
		}
		expires := s.now().AddDate(0, 0, referralRewardDays)
		minted, err = s.Discounts.withDB(tx).Create(ctx, DiscountInput{
			MerchantID:  merchantID,
			Type:        domain.DiscountPercentage,
			Value:       referralRewardPercent,
			MaxUses:     1,
			ExpiresAt:   &expires,
			Description: "referral reward",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	loggerFrom(ctx).Info().Str("phone", maskPhone(referrerPhone)).Str("code", minted.Code).Msg("referral reward granted")
	return minted, nil
}

// ExtractReferralCode returns the referral code mentioned in text, or "".
func ExtractReferralCode(text string) string {
	if m := referralCodePattern.FindString(text); m != "" {
		return m
	}
	if m := referralLabelPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// ShouldSendProgress reports whether a referrer at count gets an
// encouragement message (2, 3 and 4 completed referrals).
func ShouldSendProgress(count int) bool {
	return count >= 2 && count < referralMilestone
}

// lastDigits returns the last n digits of phone, left-padded with zeros.
func lastDigits(phone string, n int) string {
	d := digitsOnly(phone)
	if len(d) >= n {
		return d[len(d)-n:]
	}
	return strings.Repeat("0", n-len(d)) + d
}

// samePhone compares two phone numbers by their digits.
func samePhone(a, b string) bool {
	return digitsOnly(a) == digitsOnly(b)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
