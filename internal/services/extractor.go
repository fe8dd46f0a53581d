// Package services – OrderExtractor
//
// OrderExtractor turns a free-form customer message into a structured order
// candidate. It asks the language model for a document that follows the
// order_details schema, validates the raw output against that same schema
// before decoding it, and resolves every product name against the merchant's
// active catalog. Names that do not resolve are dropped. Any failure surfaces
// as ErrExtractionFailed, which callers answer with a clarification prompt.
package services

import (
	"context"
	"encoding/json"
	"fmt"
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
	"github.com/ingaz2013/sari-sub001/internal/webhook"
)

const orderSchemaName = "order_details"

// orderDetailsSchema is sent to the model and used to validate its answer.
var orderDetailsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"products": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string"},
					"quantity": map[string]any{"type": "integer"},
				},
				"required":             []any{"name", "quantity"},
				"additionalProperties": false,
			},
		},
		"address":           map[string]any{"type": "string"},
		"city":              map[string]any{"type": "string"},
		"customerName":      map[string]any{"type": "string"},
		"isGift":            map[string]any{"type": "boolean"},
		"giftRecipientName": map[string]any{"type": "string"},
		"giftMessage":       map[string]any{"type": "string"},
	},
	"required":             []any{"products"},
	"additionalProperties": false,
}

var orderDetailsValidator = webhook.MustCompileSchema("https://sari.local/schemas/order_details.json", orderDetailsSchema)

// ParsedProduct is one resolved line of a ParsedOrder.
type ParsedProduct struct {
	Name      string
	Quantity  int
	ProductID string
}

// ParsedOrder is the structured candidate extracted from a message.
type ParsedOrder struct {
	Products          []ParsedProduct
	Unmatched         []string
	Address           string
	City              string
	CustomerName      string
	IsGift            bool
	GiftRecipientName string
	GiftMessage       string
}

// modelOrder mirrors orderDetailsSchema.
type modelOrder struct {
	Products []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"products"`
	Address           string `json:"address"`
	City              string `json:"city"`
	CustomerName      string `json:"customerName"`
	IsGift            bool   `json:"isGift"`
	GiftRecipientName string `json:"giftRecipientName"`
	GiftMessage       string `json:"giftMessage"`
}

// OrderExtractor parses order candidates with a language model.
type OrderExtractor struct {
	DB        *gorm.DB
	Completer Completer
	Matcher   ProductMatcher
	Timeout   time.Duration
}

// Parse extracts an order from message using merchantID's active catalog.
func (e *OrderExtractor) Parse(ctx context.Context, merchantID, message string) (*ParsedOrder, error) {
	tr := otel.Tracer("services/OrderExtractor")
	ctx, span := tr.Start(ctx, "Parse",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)),
	)
	defer span.End()

	catalog, err := repo.ListActiveProducts(ctx, e.DB, merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: load catalog: %v", ErrExtractionFailed, err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", ErrExtractionFailed)
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	start := time.Now()
	raw, err := e.Completer.CompleteJSON(ctx, CompletionRequest{
		System:     extractionPrompt(catalog),
		User:       message,
		SchemaName: orderSchemaName,
		Schema:     orderDetailsSchema,
	})
	observability.ObserveExternal("llm_extract", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: completion: %v", ErrExtractionFailed, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed json: %v", ErrExtractionFailed, err)
	}
	if err := orderDetailsValidator.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: schema: %v", ErrExtractionFailed, err)
	}
	var mo modelOrder
	if err := json.Unmarshal(raw, &mo); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrExtractionFailed, err)
	}

	matcher := e.Matcher
	if matcher == nil {
		matcher = SubstringMatcher{}
	}
	out := &ParsedOrder{
		Address:           strings.TrimSpace(mo.Address),
		City:              strings.TrimSpace(mo.City),
		CustomerName:      strings.TrimSpace(mo.CustomerName),
		IsGift:            mo.IsGift,
		GiftRecipientName: strings.TrimSpace(mo.GiftRecipientName),
		GiftMessage:       strings.TrimSpace(mo.GiftMessage),
	}
	for _, p := range mo.Products {
		id, ok := matcher.Resolve(p.Name, catalog)
		if !ok {
			out.Unmatched = append(out.Unmatched, p.Name)
			continue
		}
		qty := p.Quantity
		if qty < 1 {
			qty = 1
		}
		out.Products = append(out.Products, ParsedProduct{Name: p.Name, Quantity: qty, ProductID: id})
	}
	span.SetAttributes(
		attribute.Int("order.products", len(out.Products)),
		attribute.Int("order.unmatched", len(out.Unmatched)),
	)
	if len(out.Products) == 0 {
		return nil, fmt.Errorf("%w: no catalog product matched", ErrExtractionFailed)
	}
	return out, nil
}

func extractionPrompt(catalog []domain.Product) string {
	var list strings.Builder
	for i, p := range catalog {
		if i > 0 {
			list.WriteByte('\n')
		}
		fmt.Fprintf(&list, "- %s (%s ريال)", p.Name, money.Format(p.Price))
	}
	return `أنت مساعد ذكي لتحليل طلبات الشراء من الواتساب. مهمتك استخراج المعلومات التالية من رسالة العميل:
1. المنتجات المطلوبة مع الكميات
2. العنوان (إن وجد)
3. المدينة (إن وجد)
4. هل الطلب هدية؟
5. اسم المستلم (إذا كان هدية)
6. رسالة الهدية (إذا كان هدية)

المنتجات المتوفرة:
` + list.String() + `

أرجع النتيجة بصيغة JSON فقط بدون أي نص إضافي.`
}
