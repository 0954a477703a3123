package order

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/pkg/logger"
)

// CancelOrder cancels an order and, in the same transaction, returns its
// stock and reverses its customer bookkeeping. Canceling twice fails with
// ORDER_ALREADY_CANCELED.
func (s *Service) CancelOrder(ctx context.Context, operator string, orderID id.ID, reason string) (*Order, error) {
	var canceled, before *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.IsCanceled() {
			return apperror.NewOrderCanceled(orderID.String())
		}
		before = o.Clone()

		if err := s.restock(ctx, operator, o); err != nil {
			return err
		}
		if err := s.refundCustomer(ctx, operator, o); err != nil {
			return err
		}

		now := s.now()
		o.OrderStatus = StatusCanceled
		o.CanceledAt = &now
		o.CancelReason = strings.TrimSpace(reason)
		if o.Payment.Status == PaymentPaid {
			o.Payment.Status = PaymentRefunded
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		canceled = o
		return nil
	})
	if err != nil {
		return nil, classify("cancel order", err)
	}

	s.audit(ctx, orderID, "cancel", operator, before, canceled)
	if s.metrics != nil {
		s.metrics.ObserveOrderCanceled(canceled.BranchName)
	}
	logger.Info(ctx, "order canceled", "order_id", canceled.ID, "number", canceled.Number)
	return canceled, nil
}

func (s *Service) restock(ctx context.Context, operator string, o *Order) error {
	totals := make(map[item.Key]int64, len(o.Lines))
	keys := make([]item.Key, 0, len(o.Lines))
	for _, l := range o.Lines {
		k := l.key(o.BranchName)
		if _, ok := totals[k]; !ok {
			keys = append(keys, k)
		}
		totals[k] += l.Quantity
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, k := range keys {
		it, err := s.items.GetByKeyForUpdate(ctx, k)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Apply(ctx, it, stockledger.Movement{
			Direction: stockledger.DirectionIn,
			Quantity:  totals[k],
			Operator:  operator,
			Reason:    "order_cancel",
			Reference: o.ID.String(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) refundCustomer(ctx context.Context, operator string, o *Order) error {
	if o.Orderer.CustomerID == nil {
		return nil
	}
	if o.CreditsCustomer() {
		_, err := s.customers.ReverseOrder(ctx, operator, *o.Orderer.CustomerID, factsOf(o))
		return err
	}
	if o.Summary.PointsUsed > 0 {
		_, err := s.customers.RefundPoints(ctx, operator, *o.Orderer.CustomerID, o.ID, o.Summary.PointsUsed)
		return err
	}
	return nil
}
