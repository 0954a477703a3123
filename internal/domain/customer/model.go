// Package customer implements the shared customer ledger: customers keyed by
// contact across all branches, their spend totals and loyalty points.
package customer

import (
	"context"
	"database/sql/driver"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
)

// Type of customer.
type Type string

const (
	TypePersonal Type = "personal"
	TypeCompany  Type = "company"
)

// IsValid reports whether t is a known type.
func (t Type) IsValid() bool {
	return t == TypePersonal || t == TypeCompany
}

// BranchRegistration records when and how a customer is known at a branch.
type BranchRegistration struct {
	RegisteredAt time.Time `json:"registeredAt"`
	Grade        string    `json:"grade,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// Branches maps branch name to registration. Stored as JSONB.
type Branches map[string]BranchRegistration

// Value implements driver.Valuer.
func (b Branches) Value() (driver.Value, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return entity.JSONValue(map[string]BranchRegistration(b))
}

// Scan implements sql.Scanner.
func (b *Branches) Scan(src any) error {
	m := make(map[string]BranchRegistration)
	if err := entity.ScanJSON(src, &m); err != nil {
		return err
	}
	*b = m
	return nil
}

// Clone returns an independent copy.
func (b Branches) Clone() Branches {
	out := make(Branches, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Customer is shared by all branches and identified by Contact.
type Customer struct {
	entity.BaseEntity

	Contact string `db:"contact" json:"contact"`
	Name    string `db:"name" json:"name"`
	Type    Type   `db:"customer_type" json:"type"`
	Company string `db:"company" json:"company,omitempty"`
	Email   string `db:"email" json:"email,omitempty"`

	Branches      Branches    `db:"branches" json:"branches"`
	TotalSpent    types.Money `db:"total_spent" json:"totalSpent"`
	OrderCount    int64       `db:"order_count" json:"orderCount"`
	Points        int64       `db:"points" json:"points"`
	PrimaryBranch string      `db:"primary_branch" json:"primaryBranch,omitempty"`
	LastOrderAt   *time.Time  `db:"last_order_at" json:"lastOrderAt,omitempty"`
}

// New creates an active personal customer.
func New(contact, name string) *Customer {
	return &Customer{
		BaseEntity: entity.NewBaseEntity(),
		Contact:    NormalizeContact(contact),
		Name:       strings.TrimSpace(name),
		Type:       TypePersonal,
		Branches:   Branches{},
		TotalSpent: types.Zero(),
	}
}

func (c *Customer) Base() *entity.BaseEntity { return &c.BaseEntity }

// Clone returns an independent copy.
func (c *Customer) Clone() *Customer {
	cp := *c
	cp.Branches = c.Branches.Clone()
	if c.LastOrderAt != nil {
		t := *c.LastOrderAt
		cp.LastOrderAt = &t
	}
	return &cp
}

// Validate checks customer invariants.
func (c *Customer) Validate(_ context.Context) error {
	if c.Contact == "" {
		return apperror.NewInvalidInput("contact", "contact is required")
	}
	if c.Name == "" {
		return apperror.NewInvalidInput("name", "name is required")
	}
	if !c.Type.IsValid() {
		return apperror.NewInvalidInput("type", "type must be personal or company")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return apperror.NewInvalidInput("email", "email is malformed")
		}
	}
	if c.Points < 0 {
		return apperror.NewInvalidInput("points", "points must not be negative")
	}
	return nil
}

// Register records the customer at branch, keeping an existing
// registration date. Grade and notes already set for branch are kept.
func (c *Customer) Register(branch string, at time.Time) {
	if branch == "" {
		return
	}
	if c.Branches == nil {
		c.Branches = Branches{}
	}
	reg, ok := c.Branches[branch]
	if ok && !reg.RegisteredAt.IsZero() {
		return
	}
	reg.RegisteredAt = at
	c.Branches[branch] = reg
}

// shiftPoints adds delta to the balance, clamping at zero.
func (c *Customer) shiftPoints(delta int64) (previous, next int64) {
	previous = c.Points
	next = max(previous+delta, 0)
	c.Points = next
	return previous, next
}

// NormalizeContact canonicalizes a contact. Phone-like input keeps only its
// digits; anything else is trimmed and lower-cased.
func NormalizeContact(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	digits := make([]rune, 0, len(raw))
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, r)
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
		default:
			return strings.ToLower(raw)
		}
	}
	if len(digits) == 0 {
		return strings.ToLower(raw)
	}
	return string(digits)
}

// PointEntry is one immutable point balance change.
type PointEntry struct {
	ID         id.ID     `db:"id" json:"id"`
	CustomerID id.ID     `db:"customer_id" json:"customerId"`
	Previous   int64     `db:"previous" json:"previous"`
	New        int64     `db:"new" json:"new"`
	Difference int64     `db:"difference" json:"difference"`
	Reason     string    `db:"reason" json:"reason"`
	Modifier   string    `db:"modifier" json:"modifier"`
	OrderID    *id.ID    `db:"order_id" json:"orderId,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Filter narrows customer listings.
type Filter struct {
	domain.ListFilter

	// Branch keeps customers registered at the branch.
	Branch string
	Type   Type
}

// Matches applies the filter to a single customer (used by in-memory stores).
func (f Filter) Matches(c *Customer) bool {
	if !f.IncludeDeleted && c.IsDeleted() {
		return false
	}
	if f.Branch != "" {
		if _, ok := c.Branches[f.Branch]; !ok {
			return false
		}
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(c.Contact, NormalizeContact(f.Search)) &&
			!strings.Contains(strings.ToLower(c.Company), q) {
			return false
		}
	}
	return true
}
