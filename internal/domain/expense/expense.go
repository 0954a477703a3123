// Package expense tracks simple branch expenses.
package expense

import (
	"context"
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/numerator"
	"bloomledger/internal/core/tx"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
)

// Expense is one spending record of a branch.
type Expense struct {
	entity.BaseEntity

	Number        string      `db:"number" json:"number"`
	Branch        string      `db:"branch" json:"branch"`
	Date          time.Time   `db:"expense_date" json:"date"`
	Category      string      `db:"category" json:"category"`
	Description   string      `db:"description" json:"description,omitempty"`
	Amount        types.Money `db:"amount" json:"amount"`
	PaymentMethod string      `db:"payment_method" json:"paymentMethod,omitempty"`
	Supplier      string      `db:"supplier" json:"supplier,omitempty"`
	CreatedBy     string      `db:"created_by" json:"createdBy"`
}

// New creates an active expense.
func New(branch, category string, amount types.Money, date time.Time) *Expense {
	return &Expense{
		BaseEntity: entity.NewBaseEntity(),
		Branch:     branch,
		Category:   category,
		Amount:     amount,
		Date:       date,
	}
}

func (e *Expense) Base() *entity.BaseEntity { return &e.BaseEntity }

// Clone returns an independent copy.
func (e *Expense) Clone() *Expense {
	c := *e
	return &c
}

// Validate checks expense invariants.
func (e *Expense) Validate(_ context.Context) error {
	if strings.TrimSpace(e.Branch) == "" {
		return apperror.NewInvalidInput("branch", "branch is required")
	}
	if e.Date.IsZero() {
		return apperror.NewInvalidInput("date", "date is required")
	}
	if strings.TrimSpace(e.Category) == "" {
		return apperror.NewInvalidInput("category", "category is required")
	}
	if !e.Amount.IsPositive() {
		return apperror.NewInvalidInput("amount", "amount must be positive")
	}
	return nil
}

// Filter narrows expense listings.
type Filter struct {
	domain.ListFilter

	Branch   string
	Category string
	From     *time.Time
	To       *time.Time
}

// Matches applies the filter to a single expense (used by in-memory stores).
func (f Filter) Matches(e *Expense) bool {
	if !f.IncludeDeleted && e.IsDeleted() {
		return false
	}
	if f.Branch != "" && e.Branch != f.Branch {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.Date.Before(*f.To) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Repository persists expenses.
type Repository = domain.RecordRepository[*Expense, Filter]

// Service manages expenses.
type Service struct {
	*domain.RecordService[*Expense, Filter]
	numerator numerator.Generator
}

// NewService creates an expense service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		RecordService: domain.NewRecordService[*Expense, Filter](repo, txManager, "expense"),
		numerator:     gen,
	}
}

// Create numbers and stores a new expense.
func (s *Service) Create(ctx context.Context, operator string, e *Expense) error {
	if err := e.Validate(ctx); err != nil {
		return err
	}
	if e.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numerator.PrefixExpense), nil, e.Date)
		if err != nil {
			return apperror.NewPersistence("allocate expense number", err)
		}
		e.Number = number
	}
	e.CreatedBy = operator
	return s.RecordService.Create(ctx, e)
}

// Update keeps the number and author of the stored record.
func (s *Service) Update(ctx context.Context, e *Expense) error {
	current, err := s.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	e.Number = current.Number
	e.CreatedBy = current.CreatedBy
	return s.RecordService.Update(ctx, e)
}
