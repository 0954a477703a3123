package dto

import (
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/item"
)

// ItemRequest is the body of POST /items and PUT /items/:id. Stock is only
// honored on create, where it becomes an inbound ledger entry.
type ItemRequest struct {
	Kind         item.Kind   `json:"kind"`
	Code         string      `json:"code"`
	Branch       string      `json:"branch"`
	Name         string      `json:"name"`
	MainCategory string      `json:"mainCategory"`
	MidCategory  string      `json:"midCategory"`
	Price        types.Money `json:"price"`
	Supplier     string      `json:"supplier"`
	Stock        int64       `json:"stock"`
	Size         string      `json:"size"`
	Color        string      `json:"color"`
	Version      int         `json:"version"`
}

// ToItem builds a new item. An empty branch falls back to defaultBranch.
func (r ItemRequest) ToItem(defaultBranch string) *item.Item {
	kind := r.Kind
	if kind == "" {
		kind = item.KindProduct
	}
	branch := r.Branch
	if branch == "" {
		branch = defaultBranch
	}
	it := item.New(kind, r.Code, branch, r.Name)
	it.MainCategory = r.MainCategory
	it.MidCategory = r.MidCategory
	it.Price = r.Price
	it.Supplier = r.Supplier
	it.Stock = r.Stock
	it.Size = r.Size
	it.Color = r.Color
	return it
}

// ItemListQuery holds GET /items parameters.
type ItemListQuery struct {
	ListQuery
	Kind     item.Kind `form:"kind"`
	Branch   string    `form:"branch"`
	Category string    `form:"category"`
	LowStock *int64    `form:"lowStock"`
}

// ToFilter converts the query.
func (q ItemListQuery) ToFilter() item.Filter {
	return item.Filter{
		ListFilter:   q.ListQuery.ToFilter(),
		Kind:         q.Kind,
		Branch:       q.Branch,
		MainCategory: q.Category,
		LowStock:     q.LowStock,
	}
}

// ImportRowsRequest is the JSON form of a bulk import.
type ImportRowsRequest struct {
	Kind   item.Kind           `json:"kind"`
	Branch string              `json:"branch"`
	Rows   []map[string]string `json:"rows" binding:"required"`
}
