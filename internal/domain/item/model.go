// Package item provides the per-branch product and material catalog.
// The same item code recurs once per branch as a separate record.
package item

import (
	"context"
	"fmt"
	"strings"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
)

// Kind distinguishes the two catalogs sharing this lifecycle.
type Kind string

const (
	KindProduct  Kind = "product"
	KindMaterial Kind = "material"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindProduct || k == KindMaterial
}

// ParseKind accepts singular or plural spellings.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "product", "products":
		return KindProduct, nil
	case "material", "materials":
		return KindMaterial, nil
	}
	return "", apperror.NewInvalidInput("kind", fmt.Sprintf("unknown item kind %q", s))
}

// Key identifies an item record: the code is unique per kind and branch.
type Key struct {
	Kind   Kind
	Code   string
	Branch string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s@%s", k.Kind, k.Code, k.Branch)
}

// Item is a stocked product or material at one branch.
// Stock is changed only through the stock ledger.
type Item struct {
	entity.BaseEntity

	Kind         Kind        `db:"kind" json:"kind"`
	Code         string      `db:"code" json:"code"`
	Branch       string      `db:"branch" json:"branch"`
	Name         string      `db:"name" json:"name"`
	MainCategory string      `db:"main_category" json:"mainCategory,omitempty"`
	MidCategory  string      `db:"mid_category" json:"midCategory,omitempty"`
	Price        types.Money `db:"price" json:"price"`
	Supplier     string      `db:"supplier" json:"supplier,omitempty"`
	Stock        int64       `db:"stock" json:"stock"`
	Size         string      `db:"size" json:"size,omitempty"`
	Color        string      `db:"color" json:"color,omitempty"`
}

// New creates an active item with a fresh identity.
func New(kind Kind, code, branch, name string) *Item {
	return &Item{
		BaseEntity: entity.NewBaseEntity(),
		Kind:       kind,
		Code:       strings.TrimSpace(code),
		Branch:     strings.TrimSpace(branch),
		Name:       strings.TrimSpace(name),
		Price:      types.Zero(),
	}
}

func (i *Item) Base() *entity.BaseEntity { return &i.BaseEntity }

// Key returns the (kind, code, branch) identity.
func (i *Item) Key() Key {
	return Key{Kind: i.Kind, Code: i.Code, Branch: i.Branch}
}

// Clone returns an independent copy.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}

// Validate checks item invariants.
func (i *Item) Validate(_ context.Context) error {
	if !i.Kind.IsValid() {
		return apperror.NewInvalidInput("kind", "kind must be product or material")
	}
	if i.Code == "" {
		return apperror.NewInvalidInput("code", "item code is required")
	}
	if i.Branch == "" {
		return apperror.NewInvalidInput("branch", "branch is required")
	}
	if i.Name == "" {
		return apperror.NewInvalidInput("name", "name is required")
	}
	if i.Price.IsNegative() {
		return apperror.NewInvalidInput("price", "price must not be negative")
	}
	if i.Stock < 0 {
		return apperror.NewInvalidInput("stock", "stock must not be negative")
	}
	return nil
}

// ApplyCatalog copies the editable catalog fields from src.
func (i *Item) ApplyCatalog(src *Item) {
	i.Name = src.Name
	i.MainCategory = src.MainCategory
	i.MidCategory = src.MidCategory
	i.Price = src.Price
	i.Supplier = src.Supplier
	i.Size = src.Size
	i.Color = src.Color
}

// Filter narrows item listings.
type Filter struct {
	domain.ListFilter

	Kind         Kind
	Branch       string
	MainCategory string
	// LowStock keeps items whose stock is at or below the threshold.
	LowStock *int64
}

// Matches applies the filter to a single item (used by in-memory stores).
func (f Filter) Matches(it *Item) bool {
	if !f.IncludeDeleted && it.IsDeleted() {
		return false
	}
	if f.Kind != "" && it.Kind != f.Kind {
		return false
	}
	if f.Branch != "" && it.Branch != f.Branch {
		return false
	}
	if f.MainCategory != "" && it.MainCategory != f.MainCategory {
		return false
	}
	if f.LowStock != nil && it.Stock > *f.LowStock {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(it.Name), q) && !strings.Contains(strings.ToLower(it.Code), q) {
			return false
		}
	}
	return true
}
