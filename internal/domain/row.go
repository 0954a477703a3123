package domain

import "strings"

// Row is one loosely typed spreadsheet row keyed by column header.
type Row map[string]string

// Get returns the trimmed value of the first matching column name.
// Header matching ignores case, spaces and underscores.
func (r Row) Get(names ...string) string {
	for _, want := range names {
		want = normalizeHeader(want)
		for k, v := range r {
			if normalizeHeader(k) == want {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// Empty reports whether every cell is blank.
func (r Row) Empty() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "_", "")
}

// RowError describes a rejected import row (1-based, excluding header).
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
