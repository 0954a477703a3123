package memory

import (
	"sort"
	"strings"

	"bloomledger/internal/domain"
)

// orderings maps a sortable field name to a comparison.
type orderings[T any] map[string]func(a, b T) int

// sortRows orders rows by orderBy ("field" or "-field"), falling back to def.
func sortRows[T any](rows []T, orderBy, def string, by orderings[T]) {
	field := orderBy
	desc := false
	if strings.HasPrefix(field, "-") {
		field, desc = field[1:], true
	}
	cmp, ok := by[field]
	if !ok {
		field, desc = def, false
		if strings.HasPrefix(field, "-") {
			field, desc = field[1:], true
		}
		cmp = by[field]
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// collect converts scanned values to T, keeps the ones accepted by keep,
// and clones them.
func collect[T any](values []any, keep func(T) bool, clone func(T) T) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		row := v.(T)
		if keep(row) {
			out = append(out, clone(row))
		}
	}
	return out
}

func page[T any](rows []T, f domain.ListFilter) domain.ListResult[T] {
	return domain.Page(rows, f)
}
