package dto

import (
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/stockledger"
)

// AdjustStockRequest is the body of POST /stock/adjust.
type AdjustStockRequest struct {
	Kind      item.Kind                `json:"kind" binding:"required"`
	Direction stockledger.Direction    `json:"direction" binding:"required"`
	Branch    string                   `json:"branch"`
	Items     []stockledger.AdjustLine `json:"items" binding:"required,min=1"`
	Reason    string                   `json:"reason"`
}

// ToRequest converts the body. An empty branch falls back to defaultBranch.
func (r AdjustStockRequest) ToRequest(operator, defaultBranch string) stockledger.AdjustRequest {
	branch := r.Branch
	if branch == "" {
		branch = defaultBranch
	}
	return stockledger.AdjustRequest{
		Kind:      r.Kind,
		Direction: r.Direction,
		Branch:    branch,
		Lines:     r.Items,
		Operator:  operator,
		Reason:    r.Reason,
	}
}

// HistoryQuery holds GET /stock/history parameters.
type HistoryQuery struct {
	ListQuery
	DateRange
	Kind      item.Kind             `form:"kind"`
	Code      string                `form:"code"`
	ItemID    string                `form:"itemId"`
	Branch    string                `form:"branch"`
	Direction stockledger.Direction `form:"direction"`
	Reference string                `form:"reference"`
}

// ToFilter converts the query.
func (q HistoryQuery) ToFilter() (stockledger.HistoryFilter, error) {
	from, to, err := q.DateRange.Parse()
	if err != nil {
		return stockledger.HistoryFilter{}, err
	}
	f := stockledger.HistoryFilter{
		ListFilter: q.ListQuery.ToFilter(),
		ItemKind:   q.Kind,
		ItemCode:   q.Code,
		Branch:     q.Branch,
		Direction:  q.Direction,
		Reference:  q.Reference,
		From:       from,
		To:         to,
	}
	if q.ItemID != "" {
		itemID, err := id.Parse(q.ItemID)
		if err != nil {
			return stockledger.HistoryFilter{}, invalidID("itemId")
		}
		f.ItemID = &itemID
	}
	return f, nil
}
