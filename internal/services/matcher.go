package services

import (
	"strings"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/search"
)

// ProductMatcher resolves a product name written by a customer (or a model)
// to a catalog product ID.
type ProductMatcher interface {
	Resolve(candidate string, catalog []domain.Product) (string, bool)
}

// SubstringMatcher matches when either normalized name contains the other.
// The first catalog entry that matches wins.
type SubstringMatcher struct{}

func (SubstringMatcher) Resolve(candidate string, catalog []domain.Product) (string, bool) {
	c := strings.TrimSpace(search.Normalize(candidate))
	if c == "" {
		return "", false
	}
	for _, p := range catalog {
		n := strings.TrimSpace(search.Normalize(p.Name))
		if n == "" {
			continue
		}
		if strings.Contains(n, c) || strings.Contains(c, n) {
			return p.ID, true
		}
	}
	return "", false
}

// TokenMatcher picks the catalog entry with the highest token similarity,
// provided it reaches Threshold.
type TokenMatcher struct {
	Threshold float64
}

func (m TokenMatcher) Resolve(candidate string, catalog []domain.Product) (string, bool) {
	docs := make([]search.Doc, 0, len(catalog))
	for _, p := range catalog {
		docs = append(docs, search.Doc{ID: p.ID, Text: p.Name})
	}
	top := search.NewIndex(docs).TopK(candidate, 1)
	if len(top) == 0 || top[0].Score < m.Threshold {
		return "", false
	}
	return top[0].ID, true
}

// NewProductMatcher returns the matcher named by kind ("substring" or
// "token"); anything else yields the substring matcher.
func NewProductMatcher(kind string, threshold float64) ProductMatcher {
	if kind == "token" {
		return TokenMatcher{Threshold: threshold}
	}
	return SubstringMatcher{}
}
