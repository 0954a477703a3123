package dto

import (
	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/expense"
	"bloomledger/internal/domain/partner"
)

func invalidID(field string) *apperror.AppError {
	return apperror.NewInvalidInput(field, "must be a UUID")
}

// PartnerRequest is the body of POST /partners and PUT /partners/:id.
type PartnerRequest struct {
	Name           string       `json:"name"`
	Type           partner.Type `json:"type"`
	Contact        string       `json:"contact"`
	Email          string       `json:"email"`
	Address        string       `json:"address"`
	BusinessNumber string       `json:"businessNumber"`
	Memo           string       `json:"memo"`
	Version        int          `json:"version"`
}

// ToPartner builds a partner.
func (r PartnerRequest) ToPartner() *partner.Partner {
	p := partner.New(r.Name, r.Type)
	p.Contact = r.Contact
	p.Email = r.Email
	p.Address = r.Address
	p.BusinessNumber = r.BusinessNumber
	p.Memo = r.Memo
	return p
}

// PartnerListQuery holds GET /partners parameters.
type PartnerListQuery struct {
	ListQuery
	Type partner.Type `form:"type"`
}

// ExpenseRequest is the body of POST /expenses and PUT /expenses/:id.
type ExpenseRequest struct {
	Branch        string      `json:"branch"`
	Date          string      `json:"date" binding:"required"`
	Category      string      `json:"category"`
	Description   string      `json:"description"`
	Amount        types.Money `json:"amount"`
	PaymentMethod string      `json:"paymentMethod"`
	Supplier      string      `json:"supplier"`
	Version       int         `json:"version"`
}

// ToExpense builds an expense. An empty branch falls back to defaultBranch.
func (r ExpenseRequest) ToExpense(defaultBranch string) (*expense.Expense, error) {
	date, _, err := parseTime(r.Date)
	if err != nil {
		return nil, apperror.NewInvalidInput("date", "expected YYYY-MM-DD or RFC 3339")
	}
	branch := r.Branch
	if branch == "" {
		branch = defaultBranch
	}
	e := expense.New(branch, r.Category, r.Amount, date)
	e.Description = r.Description
	e.PaymentMethod = r.PaymentMethod
	e.Supplier = r.Supplier
	return e, nil
}

// ExpenseListQuery holds GET /expenses parameters.
type ExpenseListQuery struct {
	ListQuery
	DateRange
	Branch   string `form:"branch"`
	Category string `form:"category"`
}

// ToFilter converts the query.
func (q ExpenseListQuery) ToFilter() (expense.Filter, error) {
	from, to, err := q.DateRange.Parse()
	if err != nil {
		return expense.Filter{}, err
	}
	return expense.Filter{
		ListFilter: q.ListQuery.ToFilter(),
		Branch:     q.Branch,
		Category:   q.Category,
		From:       from,
		To:         to,
	}, nil
}
