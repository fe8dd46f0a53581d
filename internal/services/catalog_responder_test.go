package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

func TestCatalogResponder_ListsMatchingProducts(t *testing.T) {
	r := &CatalogResponder{}
	sold := perfume()
	sold.Stock = 0
	out, err := r.Reply(context.Background(), ReplyRequest{
		CustomerName: "سارة",
		Message:      "هل عندكم عطر العود؟",
		Catalog:      []domain.Product{iphone(), sold},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "مرحباً سارة! 👋")
	assert.Contains(t, out, "• عطر العود - 150 ريال (❌ غير متوفر حالياً)")
	assert.NotContains(t, out, "آيفون")
}

func TestCatalogResponder_NormalizesArabicSpelling(t *testing.T) {
	r := &CatalogResponder{}
	out, err := r.Reply(context.Background(), ReplyRequest{
		Message: "بكم ايفون ١٥",
		Catalog: []domain.Product{iphone(), perfume()},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "• آيفون 15 - 49.99 ريال (✅ متوفر)")
}

func TestCatalogResponder_GreetsWithPreviewWhenNothingMatches(t *testing.T) {
	r := &CatalogResponder{}
	out, err := r.Reply(context.Background(), ReplyRequest{
		StoreName: "متجر سارة",
		Message:   "السلام عليكم",
		Catalog:   []domain.Product{iphone(), perfume()},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "أهلاً بك في متجر سارة.")
	assert.Contains(t, out, "من منتجاتنا:")
	assert.Contains(t, out, "آيفون 15")
	assert.Contains(t, out, "عطر العود")

	out, err = r.Reply(context.Background(), ReplyRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "مرحباً! 👋\nكيف أقدر أساعدك اليوم؟", out)
}
