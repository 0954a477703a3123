// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/domain"
)

// ListQuery holds the common list parameters.
type ListQuery struct {
	Search         string `form:"search"`
	IncludeDeleted bool   `form:"includeDeleted"`
	OrderBy        string `form:"orderBy"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to a normalized domain.ListFilter.
func (q ListQuery) ToFilter() domain.ListFilter {
	return domain.ListFilter{
		Search:         q.Search,
		IncludeDeleted: q.IncludeDeleted,
		OrderBy:        q.OrderBy,
		Limit:          q.Limit,
		Offset:         q.Offset,
	}.Normalize()
}

// DateRange is a half-open [from, to) range. Dates without a time cover
// the whole day, so to=2026-05-01 includes May 1st.
type DateRange struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// Parse returns nil bounds for empty values.
func (r DateRange) Parse() (from, to *time.Time, err error) {
	if r.From != "" {
		t, _, err := parseTime(r.From)
		if err != nil {
			return nil, nil, apperror.NewInvalidInput("from", "expected YYYY-MM-DD or RFC 3339")
		}
		from = &t
	}
	if r.To != "" {
		t, dateOnly, err := parseTime(r.To)
		if err != nil {
			return nil, nil, apperror.NewInvalidInput("to", "expected YYYY-MM-DD or RFC 3339")
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		to = &t
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, apperror.NewInvalidInput("to", "to must be after from")
	}
	return from, to, nil
}

func parseTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t.UTC(), false, err
}

// ErrorResponse documents the error body rendered by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SuccessResponse is a generic acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
