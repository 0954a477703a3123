package dto

import (
	"bloomledger/internal/domain/customer"
)

// CustomerRequest is the body of POST /customers and PUT /customers/:id.
type CustomerRequest struct {
	Contact string        `json:"contact"`
	Name    string        `json:"name"`
	Type    customer.Type `json:"type"`
	Company string        `json:"company"`
	Email   string        `json:"email"`
	Branch  string        `json:"branch"`
	Grade   string        `json:"grade"`
	Notes   string        `json:"notes"`
	Points  int64         `json:"points"`
	Version int           `json:"version"`
}

// ToCustomer builds a customer registered at the request branch, or at
// defaultBranch when the body names none. The branch is returned as well.
func (r CustomerRequest) ToCustomer(defaultBranch string) (*customer.Customer, string) {
	c := customer.New(r.Contact, r.Name)
	if r.Type != "" {
		c.Type = r.Type
	}
	c.Company = r.Company
	c.Email = r.Email
	c.Points = r.Points

	branch := r.Branch
	if branch == "" {
		branch = defaultBranch
	}
	if branch != "" {
		c.Branches[branch] = customer.BranchRegistration{Grade: r.Grade, Notes: r.Notes}
	}
	return c, branch
}

// CustomerListQuery holds GET /customers parameters.
type CustomerListQuery struct {
	ListQuery
	Branch string        `form:"branch"`
	Type   customer.Type `form:"type"`
}

// ToFilter converts the query.
func (q CustomerListQuery) ToFilter() customer.Filter {
	return customer.Filter{ListFilter: q.ListQuery.ToFilter(), Branch: q.Branch, Type: q.Type}
}

// PointsRequest is the body of POST /customers/:id/points.
type PointsRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// CustomerImportRequest is the JSON form of a customer import.
type CustomerImportRequest struct {
	Branch string              `json:"branch"`
	Rows   []map[string]string `json:"rows" binding:"required"`
}
