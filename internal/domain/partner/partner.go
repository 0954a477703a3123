// Package partner manages suppliers and clients.
package partner

import (
	"context"
	"strings"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/tx"
	"bloomledger/internal/domain"
)

// Type of partner.
type Type string

const (
	TypeSupplier Type = "supplier"
	TypeClient   Type = "client"
	TypeBoth     Type = "both"
)

// IsValid reports whether t is a known type.
func (t Type) IsValid() bool {
	return t == TypeSupplier || t == TypeClient || t == TypeBoth
}

// Partner is a supplier or client business.
type Partner struct {
	entity.BaseEntity

	Name           string `db:"name" json:"name"`
	Type           Type   `db:"partner_type" json:"type"`
	Contact        string `db:"contact" json:"contact,omitempty"`
	Email          string `db:"email" json:"email,omitempty"`
	Address        string `db:"address" json:"address,omitempty"`
	BusinessNumber string `db:"business_number" json:"businessNumber,omitempty"`
	Memo           string `db:"memo" json:"memo,omitempty"`
}

// New creates an active partner.
func New(name string, t Type) *Partner {
	return &Partner{BaseEntity: entity.NewBaseEntity(), Name: name, Type: t}
}

func (p *Partner) Base() *entity.BaseEntity { return &p.BaseEntity }

// Clone returns an independent copy.
func (p *Partner) Clone() *Partner {
	c := *p
	return &c
}

// Validate checks partner invariants.
func (p *Partner) Validate(_ context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewInvalidInput("name", "name is required")
	}
	if !p.Type.IsValid() {
		return apperror.NewInvalidInput("type", "type must be supplier, client or both")
	}
	return nil
}

// Filter narrows partner listings.
type Filter struct {
	domain.ListFilter

	Type Type
}

// Matches applies the filter to a single partner (used by in-memory stores).
func (f Filter) Matches(p *Partner) bool {
	if !f.IncludeDeleted && p.IsDeleted() {
		return false
	}
	// Both matches either side.
	if f.Type != "" && p.Type != f.Type && p.Type != TypeBoth {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.BusinessNumber), q) {
			return false
		}
	}
	return true
}

// Repository persists partners.
type Repository = domain.RecordRepository[*Partner, Filter]

// Service manages partners.
type Service struct {
	*domain.RecordService[*Partner, Filter]
}

// NewService creates a partner service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewRecordService[*Partner, Filter](repo, txManager, "partner")
	normalize := func(_ context.Context, p *Partner) error {
		p.Name = strings.TrimSpace(p.Name)
		p.Contact = strings.TrimSpace(p.Contact)
		p.Email = strings.ToLower(strings.TrimSpace(p.Email))
		p.BusinessNumber = strings.ReplaceAll(strings.TrimSpace(p.BusinessNumber), "-", "")
		return nil
	}
	base.Hooks().On(domain.BeforeCreate, normalize)
	base.Hooks().On(domain.BeforeUpdate, normalize)
	return &Service{RecordService: base}
}
