// Package services – CatalogResponder
//
// CatalogResponder is the Responder used when no language model is
// configured. It answers from the merchant catalog alone: products whose
// names match the message are listed with price and availability; anything
// else gets a greeting with a short catalog preview.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/money"
	"github.com/ingaz2013/sari-sub001/internal/search"
)

const (
	defaultReplyThreshold = 0.2
	defaultReplyResults   = 3
	catalogPreviewSize    = 5
)

// replyStopwords are filler words that would otherwise dilute the overlap
// between a question and a product name.
var replyStopwords = []string{
	"عندكم", "عندك", "هل", "في", "فيه", "ابي", "ابغى", "ابغي", "اريد", "بكم", "كم",
	"سعر", "لو", "سمحت", "من", "على", "the", "do", "you", "have", "is", "a",
	"price", "of", "how", "much", "want", "i",
}

// CatalogResponder replies from the catalog with a token-overlap search.
type CatalogResponder struct {
	Threshold  float64
	MaxResults int
}

// Reply implements Responder.
func (r *CatalogResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	tr := otel.Tracer("services/CatalogResponder")
	_, span := tr.Start(ctx, "Reply",
		trace.WithAttributes(
			attribute.String("merchant.id", req.MerchantID),
			attribute.Int("catalog.size", len(req.Catalog)),
		),
	)
	defer span.End()

	name := strings.TrimSpace(req.CustomerName)
	greeting := "مرحباً! 👋"
	if name != "" {
		greeting = fmt.Sprintf("مرحباً %s! 👋", name)
	}
	if len(req.Catalog) == 0 {
		return greeting + "\nكيف أقدر أساعدك اليوم؟", nil
	}

	hits := r.match(req.Message, req.Catalog)
	span.SetAttributes(attribute.Int("reply.matches", len(hits)))

	var b strings.Builder
	b.WriteString(greeting)
	if len(hits) > 0 {
		b.WriteString("\n\nهذا ما وجدته لك:\n")
		for _, p := range hits {
			b.WriteString(productLine(p))
		}
		b.WriteString("\nلطلب أي منتج أرسل اسمه والكمية والعنوان 🛒")
		return b.String(), nil
	}

	store := strings.TrimSpace(req.StoreName)
	if store != "" {
		fmt.Fprintf(&b, "\nأهلاً بك في %s.", store)
	}
	b.WriteString("\n\nمن منتجاتنا:\n")
	for i, p := range req.Catalog {
		if i == catalogPreviewSize {
			break
		}
		b.WriteString(productLine(p))
	}
	b.WriteString("\nاسألني عن أي منتج وسأساعدك 😊")
	return b.String(), nil
}

func (r *CatalogResponder) match(message string, catalog []domain.Product) []domain.Product {
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = defaultReplyThreshold
	}
	k := r.MaxResults
	if k <= 0 {
		k = defaultReplyResults
	}

	byID := make(map[string]domain.Product, len(catalog))
	docs := make([]search.Doc, 0, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
		docs = append(docs, search.Doc{ID: p.ID, Text: p.Name})
	}
	idx := search.NewIndex(docs, search.WithStopwords(replyStopwords))

	var out []domain.Product
	for _, res := range idx.TopK(message, k) {
		if res.Score < threshold {
			break
		}
		out = append(out, byID[res.ID])
	}
	return out
}

func productLine(p domain.Product) string {
	stock := "✅ متوفر"
	if p.Stock <= 0 {
		stock = "❌ غير متوفر حالياً"
	}
	return fmt.Sprintf("• %s - %s ريال (%s)\n", p.Name, money.Format(p.Price), stock)
}
