// Package app assembles the domain services on top of a storage backend.
package app

import (
	"fmt"

	"bloomledger/internal/config"
	"bloomledger/internal/domain/customer"
	"bloomledger/internal/domain/expense"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/order"
	"bloomledger/internal/domain/partner"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/internal/infrastructure/audit"
	"bloomledger/internal/infrastructure/metrics"
	"bloomledger/internal/infrastructure/storage"
)

// Services holds every domain service of the process.
type Services struct {
	Ledger    *stockledger.Ledger
	Items     *item.Service
	Customers *customer.Service
	Orders    *order.Service
	Partners  *partner.Service
	Expenses  *expense.Service
	Audit     *audit.Service
	Policy    *customer.PointsPolicy
}

// New builds the services. collector may be nil when metrics are off.
func New(backend *storage.Backend, loyalty config.LoyaltyConfig, collector *metrics.Collector) (*Services, error) {
	expr := loyalty.EarnExpression
	if expr == "" {
		expr = config.DefaultEarnExpression
	}
	policy, err := customer.NewPointsPolicy(expr)
	if err != nil {
		return nil, fmt.Errorf("loyalty policy: %w", err)
	}

	auditSvc, err := audit.NewService(backend.Audit, audit.DefaultCompressThreshold)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}

	// Nil *Collector must not reach the interfaces as a typed nil.
	var (
		ledgerMetrics stockledger.Metrics
		orderMetrics  order.Metrics
	)
	if collector != nil {
		ledgerMetrics = collector
		orderMetrics = collector
	}

	ledger := stockledger.NewLedger(backend.Items, backend.History, backend.TxManager, ledgerMetrics)
	customers := customer.NewService(backend.Customers, backend.TxManager)

	return &Services{
		Ledger:    ledger,
		Items:     item.NewService(backend.Items, ledger, backend.TxManager),
		Customers: customers,
		Orders: order.NewService(order.Deps{
			Orders:    backend.Orders,
			Items:     backend.Items,
			Ledger:    ledger,
			Customers: customers,
			Policy:    policy,
			Numerator: backend.Numerator,
			TxManager: backend.TxManager,
			Auditor:   auditSvc,
			Metrics:   orderMetrics,
		}),
		Partners: partner.NewService(backend.Partners, backend.TxManager),
		Expenses: expense.NewService(backend.Expenses, backend.TxManager, backend.Numerator),
		Audit:    auditSvc,
		Policy:   policy,
	}, nil
}
