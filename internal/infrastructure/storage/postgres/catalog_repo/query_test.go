package catalog_repo

import (
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/domain/item"
)

func TestOrderClause(t *testing.T) {
	sortable := map[string]string{"name": "name", "date": "expense_date"}

	tests := []struct {
		name    string
		orderBy string
		want    string
		wantErr bool
	}{
		{name: "default", orderBy: "", want: "expense_date DESC"},
		{name: "ascending", orderBy: "name", want: "name ASC"},
		{name: "explicit plus", orderBy: "+date", want: "expense_date ASC"},
		{name: "descending", orderBy: "-name", want: "name DESC"},
		{name: "unknown column", orderBy: "password; drop table x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OrderClause(tt.orderBy, "-date", sortable)
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestItemRepo_KeyLookupSQL(t *testing.T) {
	repo := NewItemRepo(nil)
	key := item.Key{Kind: item.KindProduct, Code: "R001", Branch: "Gangnam"}

	sql, args, err := repo.byKey(key).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT id, status, version"))
	assert.Contains(t, sql, "FROM items WHERE branch = $1 AND code = $2 AND kind = $3 AND status = $4 FOR UPDATE")
	assert.Equal(t, []any{"Gangnam", "R001", item.KindProduct, entity.StatusActive}, args)
}

func TestSearchAny(t *testing.T) {
	sql, args, err := Builder().Select("id").From("partners").Where(searchAny("rose", "name", "business_number")).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM partners WHERE (name ILIKE $1 OR business_number ILIKE $2)", sql)
	assert.Equal(t, []any{"%rose%", "%rose%"}, args)
}

func TestCustomerRepo_ContactLookupSQL(t *testing.T) {
	repo := NewCustomerRepo(nil)

	sql, _, err := repo.byContact("01012345678").Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM customers WHERE contact = $1 AND status = $2 FOR UPDATE")
}

func TestBuilder_UsesDollarPlaceholders(t *testing.T) {
	sql, _, err := Builder().Update("items").Set("stock", 3).Where(squirrel.Eq{"id": 1}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE items SET stock = $1 WHERE id = $2", sql)
}
