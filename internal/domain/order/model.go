// Package order implements order placement: one transaction that checks and
// decrements stock, records stock history, writes the order and updates the
// customer ledger.
package order

import (
	"context"
	"strconv"
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/item"
)

// Status is the order's business state.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// FulfillmentType is how the order reaches the recipient.
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

// PaymentStatus tracks settlement.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// IsValid reports whether s is a known payment status.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// Line is one ordered item. Name and UnitPrice are captured at placement.
type Line struct {
	ItemKind  item.Kind   `json:"itemKind"`
	ItemCode  string      `json:"itemCode"`
	Name      string      `json:"name"`
	Quantity  int64       `json:"quantity"`
	UnitPrice types.Money `json:"unitPrice"`
	Amount    types.Money `json:"amount"`
}

// Summary holds the amounts computed at placement. It is not recomputed by
// later edits.
type Summary struct {
	Subtotal     types.Money `json:"subtotal"`
	Discount     types.Money `json:"discount"`
	DeliveryFee  types.Money `json:"deliveryFee"`
	PointsUsed   int64       `json:"pointsUsed"`
	PointsEarned int64       `json:"pointsEarned"`
	Total        types.Money `json:"total"`
}

// Orderer identifies who placed the order.
type Orderer struct {
	CustomerID *id.ID `json:"customerId,omitempty"`
	Name       string `json:"name,omitempty"`
	Contact    string `json:"contact,omitempty"`
	Company    string `json:"company,omitempty"`
	Email      string `json:"email,omitempty"`
}

// Fulfillment describes the handover.
type Fulfillment struct {
	Type             FulfillmentType `json:"type"`
	Recipient        string          `json:"recipient,omitempty"`
	RecipientContact string          `json:"recipientContact,omitempty"`
	Address          string          `json:"address,omitempty"`
	ScheduledAt      *time.Time      `json:"scheduledAt,omitempty"`
}

// Payment describes settlement.
type Payment struct {
	Method string        `json:"method,omitempty"`
	Status PaymentStatus `json:"status"`
}

// Order is a placed order.
type Order struct {
	entity.BaseEntity

	Number      string    `db:"number" json:"number"`
	BranchID    string    `db:"branch_id" json:"branchId,omitempty"`
	BranchName  string    `db:"branch_name" json:"branchName"`
	OrderDate   time.Time `db:"order_date" json:"orderDate"`
	OrderStatus Status    `db:"order_status" json:"orderStatus"`

	Lines            []Line      `db:"-" json:"lines"`
	Summary          Summary     `db:"-" json:"summary"`
	Orderer          Orderer     `db:"-" json:"orderer"`
	Anonymous        bool        `db:"anonymous" json:"anonymous"`
	RegisterCustomer bool        `db:"register_customer" json:"registerCustomer"`
	Fulfillment      Fulfillment `db:"-" json:"fulfillment"`
	Payment          Payment     `db:"-" json:"payment"`
	Memo             string      `db:"memo" json:"memo,omitempty"`

	CreatedBy    string     `db:"created_by" json:"createdBy"`
	CanceledAt   *time.Time `db:"canceled_at" json:"canceledAt,omitempty"`
	CancelReason string     `db:"cancel_reason" json:"cancelReason,omitempty"`
}

func (o *Order) Base() *entity.BaseEntity { return &o.BaseEntity }

// Validate checks order invariants.
func (o *Order) Validate(_ context.Context) error {
	if o.BranchName == "" {
		return apperror.NewInvalidInput("branchName", "branch is required")
	}
	if len(o.Lines) == 0 {
		return apperror.NewInvalidInput("lines", "at least one line is required")
	}
	if !o.OrderStatus.IsValid() {
		return apperror.NewInvalidInput("orderStatus", "unknown order status")
	}
	if o.Payment.Status != "" && !o.Payment.Status.IsValid() {
		return apperror.NewInvalidInput("payment.status", "unknown payment status")
	}
	return nil
}

// Clone returns an independent copy.
func (o *Order) Clone() *Order {
	c := *o
	c.Lines = append([]Line(nil), o.Lines...)
	if o.Orderer.CustomerID != nil {
		cid := *o.Orderer.CustomerID
		c.Orderer.CustomerID = &cid
	}
	if o.Fulfillment.ScheduledAt != nil {
		t := *o.Fulfillment.ScheduledAt
		c.Fulfillment.ScheduledAt = &t
	}
	if o.CanceledAt != nil {
		t := *o.CanceledAt
		c.CanceledAt = &t
	}
	return &c
}

// IsCanceled reports whether the order was canceled.
func (o *Order) IsCanceled() bool { return o.OrderStatus == StatusCanceled }

// CreditsCustomer reports whether placement merged the order into the
// customer ledger.
func (o *Order) CreditsCustomer() bool { return o.RegisterCustomer && !o.Anonymous }

// Filter narrows order listings.
type Filter struct {
	domain.ListFilter

	BranchName string
	Status     Status
	From       *time.Time
	To         *time.Time
	Contact    string
	CustomerID *id.ID
}

// Matches applies the filter to a single order (used by in-memory stores).
func (f Filter) Matches(o *Order) bool {
	if f.BranchName != "" && o.BranchName != f.BranchName {
		return false
	}
	if f.Status != "" && o.OrderStatus != f.Status {
		return false
	}
	if f.From != nil && o.OrderDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !o.OrderDate.Before(*f.To) {
		return false
	}
	if f.Contact != "" && o.Orderer.Contact != f.Contact {
		return false
	}
	if f.CustomerID != nil && (o.Orderer.CustomerID == nil || *o.Orderer.CustomerID != *f.CustomerID) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(o.Number), q) &&
			!strings.Contains(strings.ToLower(o.Orderer.Name), q) &&
			!strings.Contains(strings.ToLower(o.Fulfillment.Recipient), q) {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CoerceDate parses a date given as RFC 3339, a plain date or unix
// milliseconds. Blank or unparsable input yields now.
func CoerceDate(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return now
}
