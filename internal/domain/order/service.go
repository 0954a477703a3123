package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/numerator"
	"bloomledger/internal/core/tx"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/customer"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/pkg/logger"
)

// Auditor records before/after snapshots of edits.
type Auditor interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action, operator string, before, after any) error
}

// Metrics receives order events.
type Metrics interface {
	ObserveOrderPlaced(branch string, total types.Money)
	ObserveOrderRejected(reason string)
	ObserveOrderCanceled(branch string)
}

// Deps bundles the collaborators of Service. Auditor and Metrics may be nil.
type Deps struct {
	Orders    Repository
	Items     item.Repository
	Ledger    *stockledger.Ledger
	Customers *customer.Service
	Policy    *customer.PointsPolicy
	Numerator numerator.Generator
	TxManager tx.Manager
	Auditor   Auditor
	Metrics   Metrics
}

// Service is the order transaction engine.
type Service struct {
	orders    Repository
	items     item.Repository
	ledger    *stockledger.Ledger
	customers *customer.Service
	policy    *customer.PointsPolicy
	numerator numerator.Generator
	txManager tx.Manager
	auditor   Auditor
	metrics   Metrics
	now       func() time.Time
}

// NewService creates the order service.
func NewService(d Deps) *Service {
	return &Service{
		orders:    d.Orders,
		items:     d.Items,
		ledger:    d.Ledger,
		customers: d.Customers,
		policy:    d.Policy,
		numerator: d.Numerator,
		txManager: d.TxManager,
		auditor:   d.Auditor,
		metrics:   d.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder validates the input and commits, in one transaction, the stock
// decrements with their history entries, the order itself and the customer
// ledger update. On any error nothing is written.
func (s *Service) PlaceOrder(ctx context.Context, operator string, in PlaceOrderInput) (*Order, error) {
	if err := in.Validate(); err != nil {
		s.observeRejected(err)
		return nil, err
	}

	now := s.now()
	if in.OrderDate.IsZero() {
		in.OrderDate = now
	}

	number, err := s.numerator.GetNextNumber(ctx,
		numerator.DefaultConfig(numerator.PrefixOrder),
		&numerator.Options{Strategy: numerator.StrategyCached, RangeSize: 20},
		in.OrderDate)
	if err != nil {
		s.observeRejected(err)
		return nil, apperror.NewPersistence("allocate order number", err)
	}

	var placed *Order
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.place(ctx, operator, number, in)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		err = classify("place order", err)
		s.observeRejected(err)
		logger.Warn(ctx, "order rejected", "branch", in.BranchName, "number", number, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveOrderPlaced(placed.BranchName, placed.Summary.Total)
	}
	logger.Info(ctx, "order placed",
		"order_id", placed.ID, "number", placed.Number, "branch", placed.BranchName,
		"lines", len(placed.Lines), "total", placed.Summary.Total.String())
	return placed, nil
}

// demand is the aggregated quantity of one item across an order's lines.
type demand struct {
	key      item.Key
	quantity int64
	item     *item.Item
}

func (s *Service) place(ctx context.Context, operator, number string, in PlaceOrderInput) (*Order, error) {
	// Resolve: lock every distinct item in key order so concurrent orders
	// over the same items cannot deadlock.
	demands, byKey, err := aggregate(in.Lines, in.BranchName)
	if err != nil {
		return nil, err
	}
	locking := make([]*demand, len(demands))
	copy(locking, demands)
	sort.Slice(locking, func(i, j int) bool { return locking[i].key.String() < locking[j].key.String() })
	for _, d := range locking {
		it, err := s.items.GetByKeyForUpdate(ctx, d.key)
		if err != nil {
			return nil, err
		}
		d.item = it
	}

	// Validate every item before writing anything.
	for _, d := range demands {
		if d.item.Stock < d.quantity {
			return nil, apperror.NewInsufficientStock(d.item.Code, d.item.Name, d.quantity, d.item.Stock)
		}
	}

	o := &Order{
		BaseEntity:       entity.NewBaseEntity(),
		Number:           number,
		BranchID:         in.BranchID,
		BranchName:       in.BranchName,
		OrderDate:        in.OrderDate,
		OrderStatus:      StatusProcessing,
		Orderer:          in.Orderer,
		Anonymous:        in.Anonymous,
		RegisterCustomer: in.RegisterCustomer,
		Fulfillment:      in.Fulfillment,
		Payment:          in.Payment,
		Memo:             in.Memo,
		CreatedBy:        operator,
	}
	if o.Fulfillment.Type == "" {
		o.Fulfillment.Type = FulfillmentPickup
	}
	if o.Payment.Status == "" {
		o.Payment.Status = PaymentPending
	}
	if o.Anonymous {
		o.Orderer = Orderer{}
	}

	o.Lines = make([]Line, 0, len(in.Lines))
	for _, l := range in.Lines {
		it := byKey[l.key(in.BranchName)].item
		price := it.Price
		if l.UnitPrice != nil {
			price = *l.UnitPrice
		}
		o.Lines = append(o.Lines, Line{
			ItemKind:  it.Kind,
			ItemCode:  it.Code,
			Name:      it.Name,
			Quantity:  l.Quantity,
			UnitPrice: price,
			Amount:    price.Mul(types.MoneyFromInt(l.Quantity)),
		})
	}

	summary, err := ComputeSummary(o.Lines, in.Discount, in.DeliveryFee, in.PointsUsed)
	if err != nil {
		return nil, err
	}
	if o.CreditsCustomer() {
		earned, err := s.policy.Earned(summary.Total, o.BranchName, summary.PointsUsed)
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
		summary.PointsEarned = earned
	}
	o.Summary = summary

	// Customer ledger.
	switch {
	case o.CreditsCustomer():
		c, err := s.customers.UpsertFromOrder(ctx, operator, factsOf(o))
		if err != nil {
			return nil, err
		}
		o.Orderer.CustomerID = &c.ID
		o.Orderer.Contact = c.Contact
	case o.Orderer.CustomerID != nil && summary.PointsUsed > 0:
		if _, err := s.customers.RedeemPoints(ctx, operator, *o.Orderer.CustomerID, o.ID, summary.PointsUsed); err != nil {
			return nil, err
		}
	}

	if err := o.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// Stock: one movement per line so history mirrors the order lines.
	for _, l := range o.Lines {
		unitPrice := l.UnitPrice
		if _, err := s.ledger.Apply(ctx, byKey[l.key(o.BranchName)].item, stockledger.Movement{
			Direction: stockledger.DirectionOut,
			Quantity:  l.Quantity,
			UnitPrice: &unitPrice,
			Operator:  operator,
			Reason:    "order",
			Reference: o.ID.String(),
		}); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func aggregate(lines []LineInput, branch string) ([]*demand, map[item.Key]*demand, error) {
	byKey := make(map[item.Key]*demand, len(lines))
	ordered := make([]*demand, 0, len(lines))
	for _, l := range lines {
		k := l.key(branch)
		d, ok := byKey[k]
		if !ok {
			d = &demand{key: k}
			byKey[k] = d
			ordered = append(ordered, d)
		}
		if l.Quantity > math.MaxInt64-d.quantity {
			return nil, nil, apperror.NewInvalidInput("lines", "total quantity is too large").WithDetail("code", l.ItemCode)
		}
		d.quantity += l.Quantity
	}
	return ordered, byKey, nil
}

func (l Line) key(branch string) item.Key {
	return item.Key{Kind: l.ItemKind, Code: l.ItemCode, Branch: branch}
}

func factsOf(o *Order) customer.OrderFacts {
	return customer.OrderFacts{
		OrderID:      o.ID,
		Branch:       o.BranchName,
		OrderedAt:    o.OrderDate,
		Contact:      o.Orderer.Contact,
		Name:         o.Orderer.Name,
		Company:      o.Orderer.Company,
		Email:        o.Orderer.Email,
		Total:        o.Summary.Total,
		PointsEarned: o.Summary.PointsEarned,
		PointsUsed:   o.Summary.PointsUsed,
	}
}

// classify keeps AppErrors and reports anything else as a persistence
// failure with unknown outcome.
func classify(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.NewPersistence(op, err).WithDetail("outcome", "unknown")
	}
	return apperror.NewPersistence(op, err)
}

func (s *Service) observeRejected(err error) {
	if s.metrics == nil {
		return
	}
	reason := apperror.CodeInternal
	if appErr, ok := apperror.AsAppError(err); ok {
		reason = appErr.Code
	}
	s.metrics.ObserveOrderRejected(reason)
}

// GetByID returns an order.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// List returns orders matching filter.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*Order], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.orders.List(ctx, filter)
}
