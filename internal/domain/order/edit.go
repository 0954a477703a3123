package order

import (
	"context"
	"fmt"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/pkg/logger"
)

// UpdateStatus moves an order between processing and completed. Canceling
// goes through CancelOrder so that stock and points are returned.
func (s *Service) UpdateStatus(ctx context.Context, operator string, orderID id.ID, status Status) (*Order, error) {
	if !status.IsValid() {
		return nil, apperror.NewInvalidInput("status", "unknown order status")
	}
	if status == StatusCanceled {
		return nil, apperror.NewInvalidInput("status", "use the cancel operation to cancel an order")
	}
	return s.edit(ctx, operator, orderID, "status", 0, func(o *Order) error {
		o.OrderStatus = status
		return nil
	})
}

// UpdatePayment changes payment method and status.
func (s *Service) UpdatePayment(ctx context.Context, operator string, orderID id.ID, payment Payment) (*Order, error) {
	if !payment.Status.IsValid() {
		return nil, apperror.NewInvalidInput("payment.status", "unknown payment status")
	}
	return s.edit(ctx, operator, orderID, "payment", 0, func(o *Order) error {
		if payment.Method != "" {
			o.Payment.Method = payment.Method
		}
		o.Payment.Status = payment.Status
		return nil
	})
}

// Update edits fields that do not affect stock or points. Lines, summary and
// the linked customer are fixed at placement.
func (s *Service) Update(ctx context.Context, operator string, orderID id.ID, in UpdateInput) (*Order, error) {
	return s.edit(ctx, operator, orderID, "update", in.Version, func(o *Order) error {
		if in.OrderDate != nil && !in.OrderDate.IsZero() {
			o.OrderDate = in.OrderDate.UTC()
		}
		if in.Orderer != nil && !o.Anonymous {
			o.Orderer.Name = in.Orderer.Name
			o.Orderer.Contact = in.Orderer.Contact
			o.Orderer.Company = in.Orderer.Company
			o.Orderer.Email = in.Orderer.Email
		}
		if in.Fulfillment != nil {
			switch in.Fulfillment.Type {
			case FulfillmentPickup, FulfillmentDelivery:
			default:
				return apperror.NewInvalidInput("fulfillment.type", "fulfillment must be pickup or delivery")
			}
			o.Fulfillment = *in.Fulfillment
		}
		if in.Payment != nil {
			if !in.Payment.Status.IsValid() {
				return apperror.NewInvalidInput("payment.status", "unknown payment status")
			}
			o.Payment = *in.Payment
		}
		if in.Memo != nil {
			o.Memo = *in.Memo
		}
		return nil
	})
}

func (s *Service) edit(ctx context.Context, operator string, orderID id.ID, action string, version int, mutate func(o *Order) error) (*Order, error) {
	var updated, before *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.IsCanceled() {
			return apperror.NewOrderCanceled(orderID.String())
		}
		if version != 0 && version != o.Version {
			return apperror.NewConcurrentModification("order", orderID.String())
		}
		before = o.Clone()
		if err := mutate(o); err != nil {
			return err
		}
		if err := o.Validate(ctx); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return fmt.Errorf("%s order: %w", action, err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, classify(action+" order", err)
	}
	s.audit(ctx, orderID, action, operator, before, updated)
	return updated, nil
}

// audit runs after commit; a failed snapshot is logged, not fatal.
func (s *Service) audit(ctx context.Context, orderID id.ID, action, operator string, before, after *Order) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.LogChange(ctx, "order", orderID, action, operator, before, after); err != nil {
		logger.Warn(ctx, "order audit failed", "order_id", orderID, "action", action, "error", err)
	}
}
