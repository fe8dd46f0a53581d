// Package services – DiscountService
//
// DiscountService is the discount ledger: it creates codes, validates them
// against an order amount, and consumes uses. Codes are unique across all
// merchants (the lookup in Validate is global and merchant scoping is applied
// afterwards, so a foreign code reads as "invalid"). ApplyUsage is the only
// increment path and is a single conditional UPDATE.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/money"
	"github.com/ingaz2013/sari-sub001/internal/observability"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

const (
	// codeAlphabet drops 0/O and 1/I to avoid misreads.
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeRandomLen     = 6
	defaultCodePrefix = "SARI"
	maxCodeAttempts   = 5
)

// DiscountReason is the typed cause of a failed validation.
type DiscountReason string

// Validation failure reasons, checked in this order.
const (
	ReasonInvalidCode  DiscountReason = "invalid_code"
	ReasonInactive     DiscountReason = "inactive"
	ReasonExpired      DiscountReason = "expired"
	ReasonExhausted    DiscountReason = "exhausted"
	ReasonBelowMinimum DiscountReason = "below_minimum"
)

// DiscountInput describes a code to create. An empty Code is generated from
// Prefix. Zero MaxUses means 1.
type DiscountInput struct {
	MerchantID     string
	Code           string
	Prefix         string
	Type           string
	Value          int64
	MinOrderAmount int64
	MaxDiscount    int64
	MaxUses        int
	ExpiresAt      *time.Time
	Description    string
}

// DiscountValidation is the outcome of Validate. When Valid is false, Reason
// and Message (customer-facing) are set and the amounts are zero.
type DiscountValidation struct {
	Valid       bool
	Reason      DiscountReason
	Message     string
	Code        *domain.DiscountCode
	Discount    int64
	FinalAmount int64
}

// DiscountService owns discount-code creation, validation and usage.
type DiscountService struct {
	DB *gorm.DB

	// Now and RandIntN are test seams; nil uses the wall clock and math/rand.
	Now      func() time.Time
	RandIntN func(n int) int
}

func (s *DiscountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// GenerateCode returns prefix (default "SARI") followed by six characters from
// the ambiguity-reduced alphabet. Uniqueness is not checked.
func (s *DiscountService) GenerateCode(prefix string) string {
	if prefix == "" {
		prefix = defaultCodePrefix
	}
	return prefix + randomString(s.RandIntN, codeAlphabet, codeRandomLen)
}

// Create persists a new code. A caller-supplied code already held by any
// merchant yields ErrDuplicateCode; a generated one is retried up to five
// times before ErrGenerationExhausted.
func (s *DiscountService) Create(ctx context.Context, in DiscountInput) (*domain.DiscountCode, error) {
	tr := otel.Tracer("services/DiscountService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("merchant.id", in.MerchantID),
			attribute.String("discount.type", in.Type),
		),
	)
	defer span.End()

	if in.MerchantID == "" || in.Value <= 0 {
		return nil, ErrInvalidDiscount
	}
	switch in.Type {
	case domain.DiscountPercentage:
		if in.Value > 100 {
			return nil, ErrInvalidDiscount
		}
	case domain.DiscountFixed:
	default:
		return nil, ErrInvalidDiscount
	}
	if in.MaxUses <= 0 {
		in.MaxUses = 1
	}
	if in.MinOrderAmount < 0 || in.MaxDiscount < 0 {
		return nil, ErrInvalidDiscount
	}

	supplied := strings.ToUpper(strings.TrimSpace(in.Code))
	attempts := maxCodeAttempts
	if supplied != "" {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code := supplied
		if code == "" {
			code = s.GenerateCode(in.Prefix)
		}
		d := &domain.DiscountCode{
			MerchantID:     in.MerchantID,
			Code:           code,
			Type:           in.Type,
			Value:          in.Value,
			MinOrderAmount: in.MinOrderAmount,
			MaxDiscount:    in.MaxDiscount,
			MaxUses:        in.MaxUses,
			IsActive:       true,
			ExpiresAt:      in.ExpiresAt,
			Description:    in.Description,
		}
		// Each attempt runs in its own (nested) transaction so a unique
		// violation rolls back to a savepoint instead of aborting a caller's
		// transaction.
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return repo.CreateDiscountCode(ctx, tx, d)
		})
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		if supplied != "" {
			return nil, ErrDuplicateCode
		}
	}
	return nil, ErrGenerationExhausted
}

// Validate checks code for merchantID against orderAmount. It never consumes
// a use. The returned error is reserved for storage failures; business
// failures are reported through DiscountValidation.Reason.
func (s *DiscountService) Validate(ctx context.Context, merchantID, code string, orderAmount int64) (DiscountValidation, error) {
	tr := otel.Tracer("services/DiscountService")
	ctx, span := tr.Start(ctx, "Validate",
		trace.WithAttributes(
			attribute.String("merchant.id", merchantID),
			attribute.Int64("order.amount", orderAmount),
		),
	)
	defer span.End()

	code = strings.ToUpper(strings.TrimSpace(code))
	d, err := repo.GetDiscountCode(ctx, s.DB, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return rejectDiscount(ReasonInvalidCode, 0), nil
		}
		return DiscountValidation{}, err
	}
	if d.MerchantID != merchantID {
		return rejectDiscount(ReasonInvalidCode, 0), nil
	}
	if !d.IsActive {
		return rejectDiscount(ReasonInactive, 0), nil
	}
	if d.ExpiresAt != nil && d.ExpiresAt.Before(s.now()) {
		return rejectDiscount(ReasonExpired, 0), nil
	}
	if d.UsedCount >= d.MaxUses {
		return rejectDiscount(ReasonExhausted, 0), nil
	}
	if orderAmount < d.MinOrderAmount {
		return rejectDiscount(ReasonBelowMinimum, d.MinOrderAmount), nil
	}

	discount := ComputeDiscount(d.Type, d.Value, d.MaxDiscount, orderAmount)
	span.SetAttributes(attribute.Int64("discount.amount", discount))
	return DiscountValidation{
		Valid:       true,
		Code:        d,
		Discount:    discount,
		FinalAmount: orderAmount - discount,
	}, nil
}

// ApplyUsage consumes one use of code. It is the only path that increments
// used_count and returns ErrDiscountExhausted when no use is left.
func (s *DiscountService) ApplyUsage(ctx context.Context, code string) error {
	tr := otel.Tracer("services/DiscountService")
	ctx, span := tr.Start(ctx, "ApplyUsage")
	defer span.End()

	ok, err := repo.IncrementDiscountUsage(ctx, s.DB, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	if !ok {
		return ErrDiscountExhausted
	}
	observability.DiscountUsage.Inc()
	return nil
}

// Deactivate turns a merchant's code off. Codes are never deleted.
func (s *DiscountService) Deactivate(ctx context.Context, merchantID, code string) error {
	tr := otel.Tracer("services/DiscountService")
	ctx, span := tr.Start(ctx, "Deactivate",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)),
	)
	defer span.End()

	err := repo.DeactivateDiscountCode(ctx, s.DB, merchantID, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, repo.ErrNotFound) {
		return ErrDiscountNotFound
	}
	return err
}

// ComputeDiscount returns the discount for amount. Percentage discounts are
// rounded half-up and capped by maxDiscount when it is positive; fixed
// discounts never exceed the amount. The result is within [0, amount].
func ComputeDiscount(kind string, value, maxDiscount, amount int64) int64 {
	if amount <= 0 || value <= 0 {
		return 0
	}
	var d int64
	switch kind {
	case domain.DiscountPercentage:
		d = money.Percent(amount, value)
		if maxDiscount > 0 && d > maxDiscount {
			d = maxDiscount
		}
	case domain.DiscountFixed:
		d = value
	}
	if d > amount {
		d = amount
	}
	return d
}

func rejectDiscount(reason DiscountReason, minimum int64) DiscountValidation {
	return DiscountValidation{Reason: reason, Message: discountReasonMessage(reason, minimum)}
}

func discountReasonMessage(reason DiscountReason, minimum int64) string {
	switch reason {
	case ReasonInactive:
		return "كود الخصم غير نشط"
	case ReasonExpired:
		return "كود الخصم منتهي الصلاحية"
	case ReasonExhausted:
		return "تم استخدام كود الخصم بالكامل"
	case ReasonBelowMinimum:
		return fmt.Sprintf("الحد الأدنى للشراء هو %s ريال", money.Format(minimum))
	default:
		return "كود الخصم غير صحيح"
	}
}

func randomString(intN func(int) int, alphabet string, n int) string {
	if intN == nil {
		intN = rand.IntN
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[intN(len(alphabet))]
	}
	return string(b)
}

var (
	discountCodePattern  = regexp.MustCompile(`\b[A-Z]{4,}[A-Z0-9]{4,8}\b`)
	discountLabelPattern = regexp.MustCompile(`(?i)(?:كود|خصم|كوبون)\s*[:=]?\s*([A-Z0-9]{6,})`)
)

// ExtractDiscountCode returns the first discount code found in a customer
// message: an upper-case token such as SARIAB12CD, or a code following a
// label (كود / خصم / كوبون). It returns "" when there is none.
func ExtractDiscountCode(text string) string {
	if m := discountCodePattern.FindString(text); m != "" {
		return m
	}
	if m := discountLabelPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// withDB returns a copy of s bound to db, used to mint codes inside a
// caller's transaction.
func (s *DiscountService) withDB(db *gorm.DB) *DiscountService {
	cp := *s
	cp.DB = db
	return &cp
}
