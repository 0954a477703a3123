package dto

import (
	"time"

	"bloomledger/internal/core/id"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/order"
)

// OrderLineRequest is one requested line.
type OrderLineRequest struct {
	Kind      item.Kind    `json:"kind"`
	Code      string       `json:"code" binding:"required"`
	Quantity  int64        `json:"quantity" binding:"required"`
	UnitPrice *types.Money `json:"unitPrice,omitempty"`
}

// OrdererRequest identifies the customer.
type OrdererRequest struct {
	CustomerID *id.ID `json:"customerId,omitempty"`
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Company    string `json:"company"`
	Email      string `json:"email"`
}

func (r OrdererRequest) toDomain() order.Orderer {
	return order.Orderer(r)
}

// FulfillmentRequest describes the handover.
type FulfillmentRequest struct {
	Type             order.FulfillmentType `json:"type"`
	Recipient        string                `json:"recipient"`
	RecipientContact string                `json:"recipientContact"`
	Address          string                `json:"address"`
	ScheduledAt      *time.Time            `json:"scheduledAt,omitempty"`
}

func (r FulfillmentRequest) toDomain() order.Fulfillment {
	return order.Fulfillment(r)
}

// PaymentRequest describes settlement.
type PaymentRequest struct {
	Method string              `json:"method"`
	Status order.PaymentStatus `json:"status"`
}

func (r PaymentRequest) toDomain() order.Payment {
	return order.Payment(r)
}

// PlaceOrderRequest is the body of POST /orders.
type PlaceOrderRequest struct {
	BranchID    string             `json:"branchId"`
	BranchName  string             `json:"branchName"`
	OrderDate   *time.Time         `json:"orderDate,omitempty"`
	Lines       []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	Discount    types.Money        `json:"discount"`
	DeliveryFee types.Money        `json:"deliveryFee"`
	PointsUsed  int64              `json:"pointsUsed"`

	Orderer          OrdererRequest     `json:"orderer"`
	Anonymous        bool               `json:"anonymous"`
	RegisterCustomer bool               `json:"registerCustomer"`
	Fulfillment      FulfillmentRequest `json:"fulfillment"`
	Payment          PaymentRequest     `json:"payment"`
	Memo             string             `json:"memo"`
}

// ToInput converts the request. An empty branch falls back to defaultBranch.
func (r PlaceOrderRequest) ToInput(defaultBranch string) order.PlaceOrderInput {
	branch := r.BranchName
	if branch == "" {
		branch = defaultBranch
	}
	in := order.PlaceOrderInput{
		BranchID:         r.BranchID,
		BranchName:       branch,
		Discount:         r.Discount,
		DeliveryFee:      r.DeliveryFee,
		PointsUsed:       r.PointsUsed,
		Orderer:          r.Orderer.toDomain(),
		Anonymous:        r.Anonymous,
		RegisterCustomer: r.RegisterCustomer,
		Fulfillment:      r.Fulfillment.toDomain(),
		Payment:          r.Payment.toDomain(),
		Memo:             r.Memo,
	}
	if r.OrderDate != nil {
		in.OrderDate = r.OrderDate.UTC()
	}
	in.Lines = make([]order.LineInput, 0, len(r.Lines))
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, order.LineInput{
			ItemKind:  l.Kind,
			ItemCode:  l.Code,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return in
}

// UpdateOrderRequest is the body of PUT /orders/:id.
type UpdateOrderRequest struct {
	Version     int                 `json:"version" binding:"required,min=1"`
	OrderDate   *time.Time          `json:"orderDate,omitempty"`
	Orderer     *OrdererRequest     `json:"orderer,omitempty"`
	Fulfillment *FulfillmentRequest `json:"fulfillment,omitempty"`
	Payment     *PaymentRequest     `json:"payment,omitempty"`
	Memo        *string             `json:"memo,omitempty"`
}

// ToInput converts the request.
func (r UpdateOrderRequest) ToInput() order.UpdateInput {
	in := order.UpdateInput{Version: r.Version, OrderDate: r.OrderDate, Memo: r.Memo}
	if r.Orderer != nil {
		o := r.Orderer.toDomain()
		in.Orderer = &o
	}
	if r.Fulfillment != nil {
		f := r.Fulfillment.toDomain()
		in.Fulfillment = &f
	}
	if r.Payment != nil {
		p := r.Payment.toDomain()
		in.Payment = &p
	}
	return in
}

// OrderStatusRequest is the body of PATCH /orders/:id/status.
type OrderStatusRequest struct {
	Status order.Status `json:"status" binding:"required"`
}

// CancelOrderRequest is the body of POST /orders/:id/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderListQuery holds GET /orders parameters.
type OrderListQuery struct {
	ListQuery
	DateRange
	Branch     string       `form:"branch"`
	Status     order.Status `form:"status"`
	Contact    string       `form:"contact"`
	CustomerID string       `form:"customerId"`
}

// ToFilter converts the query.
func (q OrderListQuery) ToFilter() (order.Filter, error) {
	from, to, err := q.DateRange.Parse()
	if err != nil {
		return order.Filter{}, err
	}
	f := order.Filter{
		ListFilter: q.ListQuery.ToFilter(),
		BranchName: q.Branch,
		Status:     q.Status,
		From:       from,
		To:         to,
		Contact:    q.Contact,
	}
	if q.CustomerID != "" {
		customerID, err := id.Parse(q.CustomerID)
		if err != nil {
			return order.Filter{}, invalidID("customerId")
		}
		f.CustomerID = &customerID
	}
	return f, nil
}
