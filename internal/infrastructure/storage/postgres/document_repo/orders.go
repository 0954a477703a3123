// Package document_repo provides the PostgreSQL order repository. Order
// lines and the nested order sections are stored as JSONB columns.
package document_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/order"
	"bloomledger/internal/infrastructure/storage/postgres"
)

const ordersTable = "orders"

var _ order.Repository = (*OrderRepo)(nil)

// jsonColumns are stored alongside the scalar "db" columns of order.Order.
var jsonColumns = []string{"lines", "summary", "orderer", "fulfillment", "payment"}

// orderRow is the scan target: the scalar columns plus raw JSONB sections.
type orderRow struct {
	order.Order
	LinesJSON       []byte `db:"lines"`
	SummaryJSON     []byte `db:"summary"`
	OrdererJSON     []byte `db:"orderer"`
	FulfillmentJSON []byte `db:"fulfillment"`
	PaymentJSON     []byte `db:"payment"`
}

func (r *orderRow) decode() (*order.Order, error) {
	o := r.Order
	sections := []struct {
		raw []byte
		dst any
	}{
		{r.LinesJSON, &o.Lines},
		{r.SummaryJSON, &o.Summary},
		{r.OrdererJSON, &o.Orderer},
		{r.FulfillmentJSON, &o.Fulfillment},
		{r.PaymentJSON, &o.Payment},
	}
	for _, s := range sections {
		if err := entity.ScanJSON(s.raw, s.dst); err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}
	}
	return &o, nil
}

func encodeSections(o *order.Order) (map[string]any, error) {
	values := []any{o.Lines, o.Summary, o.Orderer, o.Fulfillment, o.Payment}
	out := make(map[string]any, len(jsonColumns))
	for i, col := range jsonColumns {
		b, err := json.Marshal(values[i])
		if err != nil {
			return nil, fmt.Errorf("encode order %s: %w", col, err)
		}
		out[col] = b
	}
	return out, nil
}

// OrderRepo implements order.Repository.
type OrderRepo struct {
	txm        *postgres.TxManager
	builder    squirrel.StatementBuilderType
	scalarCols []string
	selectCols []string
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	scalar := postgres.ExtractDBColumns[order.Order]()
	return &OrderRepo{
		txm:        txm,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		scalarCols: scalar,
		selectCols: append(append([]string(nil), scalar...), jsonColumns...),
	}
}

// Create inserts a placed order.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	data := postgres.Columns(o, r.scalarCols)
	sections, err := encodeSections(o)
	if err != nil {
		return err
	}
	for k, v := range sections {
		data[k] = v
	}

	sql, args, err := r.builder.Insert(ordersTable).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert order: %w", err), "order", "number", o.Number)
	}
	return nil
}

func (r *OrderRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, orderID id.ID) (*order.Order, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var row orderRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return row.decode()
}

// GetByID retrieves an order.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	q := r.builder.Select(r.selectCols...).From(ordersTable).Where(squirrel.Eq{"id": orderID})
	return r.getOne(ctx, q, orderID)
}

// GetByIDForUpdate retrieves an order and locks its row.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	q := r.builder.Select(r.selectCols...).From(ordersTable).Where(squirrel.Eq{"id": orderID}).Suffix("FOR UPDATE")
	return r.getOne(ctx, q, orderID)
}

// Update rewrites the order when the stored version matches o.Version.
func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	data := postgres.Columns(o, r.scalarCols)
	for _, immutable := range []string{"id", "version", "created_at", "updated_at", "number", "created_by"} {
		delete(data, immutable)
	}
	sections, err := encodeSections(o)
	if err != nil {
		return err
	}
	for k, v := range sections {
		data[k] = v
	}

	sql, args, err := r.builder.
		Update(ordersTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": o.ID, "version": o.Version}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&o.Version, &o.UpdatedAt)
	if err == nil {
		return nil
	}
	if !pgxscan.NotFound(err) {
		return fmt.Errorf("update order: %w", err)
	}
	if _, getErr := r.GetByID(ctx, o.ID); getErr != nil {
		return getErr
	}
	return apperror.NewConcurrentModification("order", o.ID.String())
}

// List returns orders newest first by order date.
func (r *OrderRepo) List(ctx context.Context, filter order.Filter) (domain.ListResult[*order.Order], error) {
	lf := filter.ListFilter.Normalize()
	result := domain.ListResult[*order.Order]{
		Items:  []*order.Order{},
		Limit:  lf.Limit,
		Offset: lf.Offset,
	}

	q := r.filtered(filter)
	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count orders: %w", err)
	}

	sql, args, err := q.
		OrderBy("order_date DESC", "number DESC").
		Limit(uint64(lf.Limit)).
		Offset(uint64(lf.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var rows []*orderRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return result, fmt.Errorf("list orders: %w", err)
	}
	for _, row := range rows {
		o, err := row.decode()
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, o)
	}
	return result, nil
}

func (r *OrderRepo) filtered(filter order.Filter) squirrel.SelectBuilder {
	q := r.builder.Select(r.selectCols...).From(ordersTable)
	if filter.BranchName != "" {
		q = q.Where(squirrel.Eq{"branch_name": filter.BranchName})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"order_status": filter.Status})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"order_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"order_date": *filter.To})
	}
	if filter.Contact != "" {
		q = q.Where(squirrel.Expr("orderer->>'contact' = ?", filter.Contact))
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Expr("orderer->>'customerId' = ?", filter.CustomerID.String()))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.Expr("orderer->>'name' ILIKE ?", pattern),
			squirrel.Expr("fulfillment->>'recipient' ILIKE ?", pattern),
		})
	}
	return q
}
