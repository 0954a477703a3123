package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/tx"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
	"bloomledger/pkg/logger"
)

// Point history reasons written by the ledger itself.
const (
	ReasonOrder       = "order"
	ReasonOrderCancel = "order_cancel"
	ReasonPointsUsed  = "order_points_used"
	ReasonInitial     = "initial"
)

// Service is the customer ledger. It is the only writer of customer totals
// and point balances.
type Service struct {
	repo      Repository
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new customer ledger.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FindByContact returns the active customer holding contact.
func (s *Service) FindByContact(ctx context.Context, contact string) (*Customer, error) {
	normalized := NormalizeContact(contact)
	if normalized == "" {
		return nil, apperror.NewInvalidInput("contact", "contact is required")
	}
	return s.repo.FindByContact(ctx, normalized)
}

// OrderFacts carries what the ledger needs from a placed order.
type OrderFacts struct {
	OrderID   id.ID
	Branch    string
	OrderedAt time.Time

	Contact string
	Name    string
	Company string
	Email   string

	Total        types.Money
	PointsEarned int64
	PointsUsed   int64
}

// UpsertFromOrder merges an order into the customer holding its contact or
// creates that customer. It joins the caller's transaction.
func (s *Service) UpsertFromOrder(ctx context.Context, operator string, facts OrderFacts) (*Customer, error) {
	contact := NormalizeContact(facts.Contact)
	if contact == "" {
		return nil, apperror.NewInvalidInput("orderer.contact", "contact is required to register a customer")
	}

	var result *Customer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.FindByContactForUpdate(ctx, contact)
		switch {
		case err == nil:
			result, err = s.mergeOrder(ctx, operator, c, facts)
			return err
		case apperror.IsNotFound(err):
			result, err = s.createFromOrder(ctx, operator, contact, facts)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) mergeOrder(ctx context.Context, operator string, c *Customer, facts OrderFacts) (*Customer, error) {
	c.Register(facts.Branch, facts.OrderedAt)
	if c.Name == "" {
		c.Name = strings.TrimSpace(facts.Name)
	}
	if c.Email == "" {
		c.Email = strings.TrimSpace(facts.Email)
	}
	if c.Company == "" {
		c.Company = strings.TrimSpace(facts.Company)
	}
	c.TotalSpent = c.TotalSpent.Add(facts.Total)
	c.OrderCount++
	c.PrimaryBranch = facts.Branch
	orderedAt := facts.OrderedAt
	c.LastOrderAt = &orderedAt
	if facts.PointsUsed > c.Points {
		return nil, insufficientPoints(facts.PointsUsed, c.Points)
	}
	prev, next := c.shiftPoints(facts.PointsEarned - facts.PointsUsed)

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("merge order into customer: %w", err)
	}
	if err := s.appendPoints(ctx, c.ID, prev, next, ReasonOrder, operator, &facts.OrderID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) createFromOrder(ctx context.Context, operator, contact string, facts OrderFacts) (*Customer, error) {
	if facts.PointsUsed > 0 {
		return nil, insufficientPoints(facts.PointsUsed, 0)
	}
	c := New(contact, facts.Name)
	if c.Name == "" {
		c.Name = contact
	}
	c.Company = strings.TrimSpace(facts.Company)
	if c.Company != "" {
		c.Type = TypeCompany
	}
	c.Email = strings.TrimSpace(facts.Email)
	c.Register(facts.Branch, facts.OrderedAt)
	c.TotalSpent = facts.Total
	c.OrderCount = 1
	c.PrimaryBranch = facts.Branch
	orderedAt := facts.OrderedAt
	c.LastOrderAt = &orderedAt
	prev, next := c.shiftPoints(facts.PointsEarned - facts.PointsUsed)

	if err := c.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if apperror.IsDuplicate(err) {
			// Another transaction registered the contact first.
			return nil, fmt.Errorf("%w: %w", tx.ErrConflict, err)
		}
		return nil, fmt.Errorf("create customer from order: %w", err)
	}
	if err := s.appendPoints(ctx, c.ID, prev, next, ReasonOrder, operator, &facts.OrderID); err != nil {
		return nil, err
	}
	logger.Info(ctx, "customer registered from order", "customer_id", c.ID, "branch", facts.Branch)
	return c, nil
}

// ReverseOrder undoes the bookkeeping of a registered order on cancel.
func (s *Service) ReverseOrder(ctx context.Context, operator string, customerID id.ID, facts OrderFacts) (*Customer, error) {
	var result *Customer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		c.TotalSpent = types.NonNegative(c.TotalSpent.Sub(facts.Total))
		c.OrderCount = max(c.OrderCount-1, 0)
		prev, next := c.shiftPoints(facts.PointsUsed - facts.PointsEarned)
		if err := s.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("reverse order on customer: %w", err)
		}
		if err := s.appendPoints(ctx, c.ID, prev, next, ReasonOrderCancel, operator, &facts.OrderID); err != nil {
			return err
		}
		result = c
		return nil
	})
	return result, err
}

// RedeemPoints spends points on an order placed by an existing customer
// without registering the order. The balance must cover points.
func (s *Service) RedeemPoints(ctx context.Context, operator string, customerID, orderID id.ID, points int64) (*Customer, error) {
	var result *Customer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if c.IsDeleted() {
			return apperror.NewNotFound("customer", customerID.String())
		}
		if points > c.Points {
			return insufficientPoints(points, c.Points)
		}
		result, err = s.movePoints(ctx, c, -points, ReasonPointsUsed, operator, orderID)
		return err
	})
	return result, err
}

// RefundPoints returns points redeemed by a canceled order. Like
// ReverseOrder it also applies to deleted customers.
func (s *Service) RefundPoints(ctx context.Context, operator string, customerID, orderID id.ID, points int64) (*Customer, error) {
	var result *Customer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if c.IsDeleted() {
			logger.Warn(ctx, "refunding points to deleted customer", "customer_id", customerID, "order_id", orderID)
		}
		result, err = s.movePoints(ctx, c, points, ReasonOrderCancel, operator, orderID)
		return err
	})
	return result, err
}

func (s *Service) movePoints(ctx context.Context, c *Customer, delta int64, reason, operator string, orderID id.ID) (*Customer, error) {
	prev, next := c.shiftPoints(delta)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("move points: %w", err)
	}
	if err := s.appendPoints(ctx, c.ID, prev, next, reason, operator, &orderID); err != nil {
		return nil, err
	}
	return c, nil
}

func insufficientPoints(requested, available int64) *apperror.AppError {
	return apperror.NewInvalidInput("pointsUsed", "points used exceed the customer's balance").
		WithDetail("requested", requested).WithDetail("available", available)
}

// PointAdjustment is a request to change a point balance by Delta.
type PointAdjustment struct {
	CustomerID id.ID
	Delta      int64
	Reason     string
	Operator   string
	OrderID    *id.ID
}

// AdjustPoints changes the balance by Delta, clamping the result at zero,
// and appends a point history entry. It joins the caller's transaction.
func (s *Service) AdjustPoints(ctx context.Context, adj PointAdjustment) (*PointEntry, error) {
	if strings.TrimSpace(adj.Reason) == "" {
		return nil, apperror.NewInvalidInput("reason", "reason is required")
	}

	var entry *PointEntry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByIDForUpdate(ctx, adj.CustomerID)
		if err != nil {
			return err
		}
		if c.IsDeleted() {
			return apperror.NewNotFound("customer", adj.CustomerID.String())
		}
		prev, next := c.shiftPoints(adj.Delta)
		if err := s.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("adjust points: %w", err)
		}
		entry = s.pointEntry(c.ID, prev, next, adj.Reason, adj.Operator, adj.OrderID)
		return s.repo.AppendPointEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "customer points adjusted",
		"customer_id", adj.CustomerID, "previous", entry.Previous, "new", entry.New, "reason", adj.Reason)
	return entry, nil
}

// appendPoints records a balance change; unchanged balances are not recorded.
func (s *Service) appendPoints(ctx context.Context, customerID id.ID, prev, next int64, reason, operator string, orderID *id.ID) error {
	if prev == next {
		return nil
	}
	return s.repo.AppendPointEntry(ctx, s.pointEntry(customerID, prev, next, reason, operator, orderID))
}

func (s *Service) pointEntry(customerID id.ID, prev, next int64, reason, operator string, orderID *id.ID) *PointEntry {
	return &PointEntry{
		ID:         id.New(),
		CustomerID: customerID,
		Previous:   prev,
		New:        next,
		Difference: next - prev,
		Reason:     reason,
		Modifier:   operator,
		OrderID:    orderID,
		CreatedAt:  s.now(),
	}
}

// PointHistory lists point changes of a customer, newest first.
func (s *Service) PointHistory(ctx context.Context, customerID id.ID, filter domain.ListFilter) (domain.ListResult[*PointEntry], error) {
	if _, err := s.repo.GetByID(ctx, customerID); err != nil {
		return domain.ListResult[*PointEntry]{}, err
	}
	return s.repo.ListPointEntries(ctx, customerID, filter.Normalize())
}
