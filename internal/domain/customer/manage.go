package customer

import (
	"context"
	"fmt"
	"strings"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
	"bloomledger/pkg/logger"
)

// Create adds a customer by hand. branch, when set, seeds the registration.
func (s *Service) Create(ctx context.Context, operator, branch string, c *Customer) error {
	c.Contact = NormalizeContact(c.Contact)
	c.Name = strings.TrimSpace(c.Name)
	if c.Type == "" {
		c.Type = TypePersonal
	}
	if c.Branches == nil {
		c.Branches = Branches{}
	}
	c.Register(branch, s.now())
	if c.PrimaryBranch == "" {
		c.PrimaryBranch = branch
	}
	if err := c.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		return s.appendPoints(ctx, c.ID, 0, c.Points, ReasonInitial, operator, nil)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "customer created", "customer_id", c.ID)
	return nil
}

// GetByID returns a customer including soft-deleted ones.
func (s *Service) GetByID(ctx context.Context, customerID id.ID) (*Customer, error) {
	return s.repo.GetByID(ctx, customerID)
}

// Update changes profile fields. Totals, order count and points are owned by
// the ledger operations and are not taken from input.
func (s *Service) Update(ctx context.Context, input *Customer) (*Customer, error) {
	var updated *Customer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByIDForUpdate(ctx, input.ID)
		if err != nil {
			return err
		}
		if current.IsDeleted() {
			return apperror.NewNotFound("customer", input.ID.String())
		}
		if input.Version != 0 && input.Version != current.Version {
			return apperror.NewConcurrentModification("customer", input.ID.String())
		}

		current.Contact = NormalizeContact(input.Contact)
		current.Name = strings.TrimSpace(input.Name)
		if input.Type != "" {
			current.Type = input.Type
		}
		current.Company = strings.TrimSpace(input.Company)
		current.Email = strings.TrimSpace(input.Email)
		if input.PrimaryBranch != "" {
			current.PrimaryBranch = input.PrimaryBranch
		}
		for branch, reg := range input.Branches {
			existing, ok := current.Branches[branch]
			if ok {
				reg.RegisteredAt = existing.RegisteredAt
			} else if reg.RegisteredAt.IsZero() {
				reg.RegisteredAt = s.now()
			}
			current.Branches[branch] = reg
		}

		if err := current.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, current); err != nil {
			return fmt.Errorf("update customer: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes a customer, freeing its contact for a new record.
func (s *Service) Delete(ctx context.Context, customerID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByIDForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if c.IsDeleted() {
			return nil
		}
		c.MarkDeleted()
		return s.repo.Update(ctx, c)
	})
}

// List returns customers matching filter.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*Customer], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.repo.List(ctx, filter)
}
