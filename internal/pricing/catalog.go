package pricing

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultFallbackPrice is charged for any version the catalog does not list.
var DefaultFallbackPrice = decimal.NewFromInt(200)

// Catalog maps product version labels to unit prices. It is immutable after
// construction and safe for concurrent use.
type Catalog struct {
	prices   map[string]decimal.Decimal
	fallback decimal.Decimal
}

// Entry is one configured version/price pair.
type Entry struct {
	Version string          `json:"version"`
	Price   decimal.Decimal `json:"price"`
}

// NewCatalog builds a catalog from a version->price table and a fallback.
func NewCatalog(prices map[string]decimal.Decimal, fallback decimal.Decimal) (*Catalog, error) {
	if fallback.IsNegative() {
		return nil, fmt.Errorf("NewCatalog: fallback price %s is negative", fallback)
	}
	c := &Catalog{
		prices:   make(map[string]decimal.Decimal, len(prices)),
		fallback: fallback,
	}
	for version, price := range prices {
		if strings.TrimSpace(version) == "" {
			return nil, fmt.Errorf("NewCatalog: empty version label")
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("NewCatalog: price for %q is negative", version)
		}
		c.prices[version] = price
	}
	return c, nil
}

// DefaultCatalog returns the stock price list.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(map[string]decimal.Decimal{
		"Actilearn 1.0":    decimal.NewFromInt(250),
		"Actilearn Junior": decimal.NewFromInt(180),
		"Papertronics":     decimal.NewFromInt(220),
		"ISEE":             decimal.NewFromInt(300),
	}, DefaultFallbackPrice)
	return c
}

// Lookup returns the unit price for version, or the fallback price when the
// version is unknown. Labels match exactly.
func (c *Catalog) Lookup(version string) decimal.Decimal {
	if price, ok := c.prices[version]; ok {
		return price
	}
	return c.fallback
}

// Known reports whether version has its own configured price.
func (c *Catalog) Known(version string) bool {
	_, ok := c.prices[version]
	return ok
}

// Fallback returns the price charged for unknown versions.
func (c *Catalog) Fallback() decimal.Decimal {
	return c.fallback
}

// Entries lists the configured prices sorted by version label.
func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, 0, len(c.prices))
	for version, price := range c.prices {
		entries = append(entries, Entry{Version: version, Price: price})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Version < entries[j].Version
	})
	return entries
}

// catalogFile is the YAML layout of a price catalog file:
//
//	default_price: 200
//	prices:
//	  ISEE: 300
type catalogFile struct {
	DefaultPrice *string           `yaml:"default_price"`
	Prices       map[string]string `yaml:"prices"`
}

// ParseCatalog decodes a YAML price catalog. A missing default_price keeps
// DefaultFallbackPrice.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ParseCatalog: decode yaml: %w", err)
	}

	fallback := DefaultFallbackPrice
	if f.DefaultPrice != nil {
		d, err := decimal.NewFromString(strings.TrimSpace(*f.DefaultPrice))
		if err != nil {
			return nil, fmt.Errorf("ParseCatalog: default_price %q: %w", *f.DefaultPrice, err)
		}
		fallback = d
	}

	prices := make(map[string]decimal.Decimal, len(f.Prices))
	for version, raw := range f.Prices {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("ParseCatalog: price for %q: %w", version, err)
		}
		prices[version] = d
	}

	return NewCatalog(prices, fallback)
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the
// default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCatalog: read %q: %w", path, err)
	}
	return ParseCatalog(data)
}
