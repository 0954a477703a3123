// Package catalog_repo provides PostgreSQL repositories for the catalogs:
// items, customers, partners and expenses.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
	"bloomledger/internal/infrastructure/storage/postgres"
)

// BaseRepo provides common CRUD operations for soft-deletable records.
// Embed it in specific repositories and add entity filters on top.
type BaseRepo[T domain.Record] struct {
	txm          *postgres.TxManager
	tableName    string
	entityName   string
	selectCols   []string
	newFn        func() T
	sortable     map[string]string
	defaultOrder string
	// uniqueField names the key reported on unique violations.
	uniqueField func(T) (field, value string)
}

// NewBaseRepo creates a base repository. sortable maps accepted orderBy
// names to columns; defaultOrder is a "field" or "-field" from sortable.
func NewBaseRepo[T domain.Record](
	txm *postgres.TxManager,
	tableName, entityName string,
	selectCols []string,
	newFn func() T,
	sortable map[string]string,
	defaultOrder string,
) *BaseRepo[T] {
	return &BaseRepo[T]{
		txm:          txm,
		tableName:    tableName,
		entityName:   entityName,
		selectCols:   selectCols,
		newFn:        newFn,
		sortable:     sortable,
		defaultOrder: defaultOrder,
		uniqueField: func(record T) (string, string) {
			return "id", record.Base().ID.String()
		},
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// Create inserts record using its "db" tags.
func (r *BaseRepo[T]) Create(ctx context.Context, record T) error {
	return r.insert(ctx, record, nil)
}

// insert writes record plus extra columns not carried by "db" tags.
func (r *BaseRepo[T]) insert(ctx context.Context, record T, extra map[string]any) error {
	data := postgres.Columns(record, r.selectCols)
	for k, v := range extra {
		data[k] = v
	}

	sql, args, err := Builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		field, value := r.uniqueField(record)
		return postgres.MapError(fmt.Errorf("insert %s: %w", r.tableName, err), r.entityName, field, value)
	}
	return nil
}

// Update writes every column of record when the stored version still
// equals record's version. On success record carries the new version.
func (r *BaseRepo[T]) Update(ctx context.Context, record T) error {
	return r.update(ctx, record, nil)
}

func (r *BaseRepo[T]) update(ctx context.Context, record T, extra map[string]any) error {
	base := record.Base()
	data := postgres.Columns(record, r.selectCols)
	for _, immutable := range []string{"id", "version", "created_at", "updated_at"} {
		delete(data, immutable)
	}
	for k, v := range extra {
		data[k] = v
	}

	q := Builder().
		Update(r.tableName).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": base.ID, "version": base.Version}).
		Suffix("RETURNING version, updated_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	var (
		version   int
		updatedAt time.Time
	)
	rows, err := r.querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		field, value := r.uniqueField(record)
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err), r.entityName, field, value)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			field, value := r.uniqueField(record)
			return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err), r.entityName, field, value)
		}
		return r.missingOrStale(ctx, base.ID)
	}
	if err := rows.Scan(&version, &updatedAt); err != nil {
		return fmt.Errorf("scan update result: %w", err)
	}
	base.Version = version
	base.UpdatedAt = updatedAt
	return nil
}

// missingOrStale tells a vanished row from a version mismatch.
func (r *BaseRepo[T]) missingOrStale(ctx context.Context, recordID id.ID) error {
	sql, args, err := Builder().Select("1").From(r.tableName).Where(squirrel.Eq{"id": recordID}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var one int
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(r.entityName, recordID.String())
		}
		return fmt.Errorf("check %s: %w", r.tableName, err)
	}
	return apperror.NewConcurrentModification(r.entityName, recordID.String())
}

// baseSelect creates a SELECT builder over the repository columns.
func (r *BaseRepo[T]) baseSelect() squirrel.SelectBuilder {
	return Builder().Select(r.selectCols...).From(r.tableName)
}

// GetByID retrieves a record by ID, including soft-deleted ones.
func (r *BaseRepo[T]) GetByID(ctx context.Context, recordID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": recordID}).Limit(1), recordID.String())
}

// GetForUpdate retrieves a record by ID and locks its row.
func (r *BaseRepo[T]) GetForUpdate(ctx context.Context, recordID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": recordID}).Suffix("FOR UPDATE"), recordID.String())
}

// FindOne runs q and scans a single record. ref names the lookup in the
// NOT_FOUND error.
func (r *BaseRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, ref string) (T, error) {
	record := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return record, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), record, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			var zero T
			return zero, apperror.NewNotFound(r.entityName, ref)
		}
		return record, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return record, nil
}

// ListWhere counts and pages q after applying the common list options.
func (r *BaseRepo[T]) ListWhere(ctx context.Context, q squirrel.SelectBuilder, filter domain.ListFilter) (domain.ListResult[T], error) {
	filter = filter.Normalize()
	result := domain.ListResult[T]{
		Items:  []T{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"status": entity.StatusActive})
	}

	countSQL, countArgs, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", r.tableName, err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return result, nil
}

// parseOrderBy maps "field" or "-field" to an ORDER BY clause. Unknown
// fields are rejected.
func (r *BaseRepo[T]) parseOrderBy(orderBy string) (string, error) {
	return OrderClause(orderBy, r.defaultOrder, r.sortable)
}

// OrderClause resolves orderBy against sortable, falling back to def.
func OrderClause(orderBy, def string, sortable map[string]string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		orderBy = def
	}

	direction := "ASC"
	field := strings.TrimSpace(orderBy)
	switch {
	case strings.HasPrefix(field, "-"):
		direction = "DESC"
		field = field[1:]
	case strings.HasPrefix(field, "+"):
		field = field[1:]
	}

	col, ok := sortable[field]
	if !ok {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return col + " " + direction, nil
}

// searchAny matches pattern case-insensitively against any of cols.
func searchAny(search string, cols ...string) squirrel.Or {
	pattern := "%" + search + "%"
	or := make(squirrel.Or, 0, len(cols))
	for _, col := range cols {
		or = append(or, squirrel.ILike{col: pattern})
	}
	return or
}
