// Package register_repo provides the PostgreSQL stock history register.
// Rows are append-only; the ledger writes them in the same transaction as
// the item stock change they describe.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bloomledger/internal/domain"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/internal/infrastructure/storage/postgres"
)

const stockHistoryTable = "stock_history"

var _ stockledger.HistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo implements stockledger.HistoryRepository.
type HistoryRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	cols    []string
}

// NewHistoryRepo creates a new stock history repository.
func NewHistoryRepo(txm *postgres.TxManager) *HistoryRepo {
	return &HistoryRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		cols:    postgres.ExtractDBColumns[stockledger.Entry](),
	}
}

// Append inserts one history entry.
func (r *HistoryRepo) Append(ctx context.Context, entry *stockledger.Entry) error {
	sql, args, err := r.builder.
		Insert(stockHistoryTable).
		SetMap(postgres.Columns(entry, r.cols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock history: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *HistoryRepo) List(ctx context.Context, filter stockledger.HistoryFilter) (domain.ListResult[*stockledger.Entry], error) {
	lf := filter.ListFilter.Normalize()
	result := domain.ListResult[*stockledger.Entry]{
		Items:  []*stockledger.Entry{},
		Limit:  lf.Limit,
		Offset: lf.Offset,
	}

	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := filtered(r.builder.Select("COUNT(*)").From(stockHistoryTable), filter).ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count stock history: %w", err)
	}

	sql, args, err := filtered(r.builder.Select(r.cols...).From(stockHistoryTable), filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(lf.Limit)).
		Offset(uint64(lf.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list stock history: %w", err)
	}
	return result, nil
}

// filtered applies f to q.
func filtered(q squirrel.SelectBuilder, f stockledger.HistoryFilter) squirrel.SelectBuilder {
	eq := squirrel.Eq{}
	if f.ItemKind != "" {
		eq["item_kind"] = f.ItemKind
	}
	if f.ItemCode != "" {
		eq["item_code"] = f.ItemCode
	}
	if f.ItemID != nil {
		eq["item_id"] = *f.ItemID
	}
	if f.Branch != "" {
		eq["branch"] = f.Branch
	}
	if f.Direction != "" {
		eq["direction"] = f.Direction
	}
	if f.Reference != "" {
		eq["reference"] = f.Reference
	}
	if len(eq) > 0 {
		q = q.Where(eq)
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"created_at": *f.To})
	}
	return q
}
