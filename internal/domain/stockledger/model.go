// Package stockledger applies stock movements to items and records an
// immutable history entry for each one.
package stockledger

import (
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/item"
)

// Direction of a stock movement.
type Direction string

const (
	DirectionIn     Direction = "in"
	DirectionOut    Direction = "out"
	DirectionManual Direction = "manual_update"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionIn, DirectionOut, DirectionManual:
		return true
	}
	return false
}

// Entry is one immutable stock history record.
//
// For in/out, Quantity is the absolute moved amount. For manual_update it is
// the signed difference ToStock-FromStock.
type Entry struct {
	ID        id.ID     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Direction Direction `db:"direction" json:"direction"`
	ItemKind  item.Kind `db:"item_kind" json:"itemKind"`
	ItemID    id.ID     `db:"item_id" json:"itemId"`
	ItemCode  string    `db:"item_code" json:"itemCode"`
	ItemName  string    `db:"item_name" json:"itemName"`
	Branch    string    `db:"branch" json:"branch"`

	Quantity  int64 `db:"quantity" json:"quantity"`
	FromStock int64 `db:"from_stock" json:"fromStock"`
	ToStock   int64 `db:"to_stock" json:"toStock"`

	UnitPrice   *types.Money `db:"unit_price" json:"unitPrice,omitempty"`
	TotalAmount *types.Money `db:"total_amount" json:"totalAmount,omitempty"`

	Operator  string `db:"operator" json:"operator"`
	Reason    string `db:"reason" json:"reason,omitempty"`
	Reference string `db:"reference" json:"reference,omitempty"`
}

// SignedQuantity returns the stock delta this entry represents.
func (e *Entry) SignedQuantity() int64 {
	if e.Direction == DirectionOut {
		return -e.Quantity
	}
	return e.Quantity
}

// Consistent reports whether FromStock + delta == ToStock.
func (e *Entry) Consistent() bool {
	return e.FromStock+e.SignedQuantity() == e.ToStock
}

// Movement is a request to move stock of a single item.
type Movement struct {
	Direction Direction
	// Quantity is the moved amount for in/out and the target level for
	// manual_update.
	Quantity int64

	// UnitPrice is recorded on the history entry. For inbound movements with
	// RefreshCatalog set it also becomes the item's catalog price.
	UnitPrice *types.Money
	Supplier  *string
	// RefreshCatalog copies UnitPrice and Supplier onto the item on inbound
	// movements.
	RefreshCatalog bool

	Operator  string
	Reason    string
	Reference string
}

// Validate checks the movement shape.
func (m Movement) Validate() error {
	if !m.Direction.IsValid() {
		return apperror.NewInvalidInput("direction", "direction must be in, out or manual_update")
	}
	switch m.Direction {
	case DirectionIn, DirectionOut:
		if m.Quantity <= 0 {
			return apperror.NewInvalidInput("quantity", "quantity must be positive")
		}
	case DirectionManual:
		if m.Quantity < 0 {
			return apperror.NewInvalidInput("quantity", "target stock must not be negative")
		}
	}
	if m.UnitPrice != nil && m.UnitPrice.IsNegative() {
		return apperror.NewInvalidInput("unitPrice", "unit price must not be negative")
	}
	return nil
}

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	domain.ListFilter

	ItemKind  item.Kind
	ItemCode  string
	ItemID    *id.ID
	Branch    string
	Direction Direction
	Reference string
	From      *time.Time
	To        *time.Time
}

// Matches applies the filter to a single entry (used by in-memory stores).
func (f HistoryFilter) Matches(e *Entry) bool {
	if f.ItemKind != "" && e.ItemKind != f.ItemKind {
		return false
	}
	if f.ItemCode != "" && e.ItemCode != f.ItemCode {
		return false
	}
	if f.ItemID != nil && e.ItemID != *f.ItemID {
		return false
	}
	if f.Branch != "" && e.Branch != f.Branch {
		return false
	}
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.Reference != "" && e.Reference != f.Reference {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}
