// Package classifier labels customer messages with keyword heuristics: does a
// message express an intent to order, does it carry an address, and does it
// show interest in a product. Keywords live in per-locale tables; Arabic and
// English ship built in and more tables can be loaded from YAML. Matching is
// Unicode case-folded substring containment, so it is cheap and deterministic.
package classifier

import (
	_ "embed"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var builtinYAML []byte

// Table is the keyword set of one locale.
type Table struct {
	Locale           string   `yaml:"locale"`
	OrderIntent      []string `yaml:"order_intent"`
	Address          []string `yaml:"address"`
	ProductSelection []string `yaml:"product_selection"`
}

type file struct {
	Tables []Table `yaml:"tables"`
}

// Verdict holds the three labels of a message.
type Verdict struct {
	OrderIntent      bool `json:"order_intent"`
	HasAddress       bool `json:"has_address"`
	ProductSelection bool `json:"product_selection"`
}

// Classifier matches messages against the union of its tables. It is safe
// for concurrent use.
type Classifier struct {
	orderIntent      []string
	address          []string
	productSelection []string
}

// New builds a classifier from tables. Keywords are folded once here.
func New(tables ...Table) *Classifier {
	c := &Classifier{}
	for _, t := range tables {
		c.orderIntent = appendFolded(c.orderIntent, t.OrderIntent)
		c.address = appendFolded(c.address, t.Address)
		c.productSelection = appendFolded(c.productSelection, t.ProductSelection)
	}
	return c
}

// Parse decodes a YAML document of the form {tables: [...]}.
func Parse(data []byte) ([]Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse keyword tables")
	}
	for i, t := range f.Tables {
		if strings.TrimSpace(t.Locale) == "" {
			return nil, errors.Errorf("keyword table %d: missing locale", i)
		}
	}
	return f.Tables, nil
}

// Builtin returns the embedded ar and en tables.
func Builtin() []Table {
	tables, err := Parse(builtinYAML)
	if err != nil {
		panic(err)
	}
	return tables
}

// Load returns a classifier with the built-in tables plus, when path is not
// empty, the tables in that YAML file.
func Load(path string) (*Classifier, error) {
	tables := Builtin()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		extra, err := Parse(data)
		if err != nil {
			return nil, err
		}
		tables = append(tables, extra...)
	}
	return New(tables...), nil
}

var (
	defaultOnce sync.Once
	defaultC    *Classifier
)

// Default returns the shared classifier with the built-in tables.
func Default() *Classifier {
	defaultOnce.Do(func() { defaultC = New(Builtin()...) })
	return defaultC
}

// IsOrderIntent reports whether the message asks to buy something.
func (c *Classifier) IsOrderIntent(msg string) bool { return containsAny(fold(msg), c.orderIntent) }

// HasAddress reports whether the message mentions a location.
func (c *Classifier) HasAddress(msg string) bool { return containsAny(fold(msg), c.address) }

// IsProductSelection reports whether the message shows product interest.
func (c *Classifier) IsProductSelection(msg string) bool {
	return containsAny(fold(msg), c.productSelection)
}

// Classify returns all three labels, folding the message once.
func (c *Classifier) Classify(msg string) Verdict {
	f := fold(msg)
	return Verdict{
		OrderIntent:      containsAny(f, c.orderIntent),
		HasAddress:       containsAny(f, c.address),
		ProductSelection: containsAny(f, c.productSelection),
	}
}

func fold(s string) string {
	// cases.Caser is stateful, so each call gets its own.
	return cases.Fold().String(s)
}

func appendFolded(dst, words []string) []string {
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			dst = append(dst, fold(w))
		}
	}
	return dst
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
