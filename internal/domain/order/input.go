package order

import (
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/item"
)

// LineInput is a requested line. A nil UnitPrice takes the catalog price.
type LineInput struct {
	ItemKind  item.Kind
	ItemCode  string
	Quantity  int64
	UnitPrice *types.Money
}

func (l LineInput) key(branch string) item.Key {
	kind := l.ItemKind
	if kind == "" {
		kind = item.KindProduct
	}
	return item.Key{Kind: kind, Code: strings.TrimSpace(l.ItemCode), Branch: branch}
}

// PlaceOrderInput is everything needed to place an order.
type PlaceOrderInput struct {
	BranchID   string
	BranchName string
	// OrderDate defaults to now when zero.
	OrderDate time.Time

	Lines       []LineInput
	Discount    types.Money
	DeliveryFee types.Money
	PointsUsed  int64

	Orderer          Orderer
	Anonymous        bool
	RegisterCustomer bool
	Fulfillment      Fulfillment
	Payment          Payment
	Memo             string
}

// Validate checks the request before any store access.
func (in *PlaceOrderInput) Validate() error {
	if strings.TrimSpace(in.BranchName) == "" {
		return apperror.NewInvalidInput("branchName", "branch is required")
	}
	if len(in.Lines) == 0 {
		return apperror.NewInvalidInput("lines", "at least one line is required")
	}
	for i, l := range in.Lines {
		if strings.TrimSpace(l.ItemCode) == "" {
			return apperror.NewInvalidInput("lines", "item code is required").WithDetail("line", i+1)
		}
		if l.ItemKind != "" && !l.ItemKind.IsValid() {
			return apperror.NewInvalidInput("lines", "kind must be product or material").WithDetail("line", i+1)
		}
		if l.Quantity <= 0 {
			return apperror.NewInvalidInput("lines", "quantity must be positive").
				WithDetail("line", i+1).WithDetail("code", l.ItemCode)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return apperror.NewInvalidInput("lines", "unit price must not be negative").WithDetail("line", i+1)
		}
	}
	if in.Discount.IsNegative() {
		return apperror.NewInvalidInput("discount", "discount must not be negative")
	}
	if in.DeliveryFee.IsNegative() {
		return apperror.NewInvalidInput("deliveryFee", "delivery fee must not be negative")
	}
	if in.PointsUsed < 0 {
		return apperror.NewInvalidInput("pointsUsed", "points used must not be negative")
	}
	if in.Anonymous && in.PointsUsed > 0 {
		return apperror.NewInvalidInput("pointsUsed", "anonymous orders cannot use points")
	}
	registers := in.RegisterCustomer && !in.Anonymous
	if registers && strings.TrimSpace(in.Orderer.Contact) == "" {
		return apperror.NewInvalidInput("orderer.contact", "contact is required to register a customer")
	}
	if in.PointsUsed > 0 && !registers && (in.Orderer.CustomerID == nil || id.IsNil(*in.Orderer.CustomerID)) {
		return apperror.NewInvalidInput("pointsUsed", "points can only be used by a known customer")
	}
	switch in.Fulfillment.Type {
	case "", FulfillmentPickup:
	case FulfillmentDelivery:
		if strings.TrimSpace(in.Fulfillment.Address) == "" {
			return apperror.NewInvalidInput("fulfillment.address", "delivery address is required")
		}
	default:
		return apperror.NewInvalidInput("fulfillment.type", "fulfillment must be pickup or delivery")
	}
	if in.Payment.Status != "" && !in.Payment.Status.IsValid() {
		return apperror.NewInvalidInput("payment.status", "unknown payment status")
	}
	return nil
}

// ComputeSummary derives the order amounts from priced lines.
// total = subtotal - discount + deliveryFee - pointsUsed, and must not be
// negative.
func ComputeSummary(lines []Line, discount, deliveryFee types.Money, pointsUsed int64) (Summary, error) {
	subtotal := types.Zero()
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount)
	}
	total := subtotal.Sub(discount).Add(deliveryFee).Sub(types.MoneyFromInt(pointsUsed))
	if total.IsNegative() {
		return Summary{}, apperror.NewInvalidInput("summary.total", "discount and points exceed the order amount").
			WithDetail("subtotal", subtotal.String())
	}
	return Summary{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: deliveryFee,
		PointsUsed:  pointsUsed,
		Total:       total,
	}, nil
}

// UpdateInput is a full edit of the fields that do not affect stock or
// points. Version must match the stored order.
type UpdateInput struct {
	Version     int
	OrderDate   *time.Time
	Orderer     *Orderer
	Fulfillment *Fulfillment
	Payment     *Payment
	Memo        *string
}
