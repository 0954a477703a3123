package customer

import (
	"context"
	"strconv"
	"strings"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/domain"
	"bloomledger/pkg/logger"
)

// ImportReport summarizes a bulk customer import.
type ImportReport struct {
	Total      int               `json:"total"`
	Created    int               `json:"created"`
	Duplicates int               `json:"duplicates"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Errors     []domain.RowError `json:"errors,omitempty"`
}

// Import creates customers from rows. Rows whose contact already belongs to
// an active customer are counted as duplicates and left untouched.
func (s *Service) Import(ctx context.Context, operator, defaultBranch string, rows []domain.Row) *ImportReport {
	report := &ImportReport{Total: len(rows)}
	for i, row := range rows {
		if row.Empty() {
			report.Skipped++
			continue
		}
		c, branch, err := parseRow(defaultBranch, row)
		if err == nil {
			err = s.Create(ctx, operator, branch, c)
		}
		switch {
		case err == nil:
			report.Created++
		case apperror.IsDuplicate(err):
			report.Duplicates++
		default:
			report.Failed++
			report.Errors = append(report.Errors, domain.RowError{Row: i + 1, Reason: err.Error()})
			logger.Warn(ctx, "customer import row rejected", "row", i+1, "error", err)
		}
	}
	logger.Info(ctx, "customer import finished",
		"total", report.Total, "created", report.Created, "duplicates", report.Duplicates,
		"skipped", report.Skipped, "failed", report.Failed)
	return report
}

func parseRow(defaultBranch string, row domain.Row) (*Customer, string, error) {
	c := New(row.Get("contact", "phone"), row.Get("name"))
	c.Company = row.Get("company")
	c.Email = row.Get("email")
	if t := strings.ToLower(row.Get("type")); t != "" {
		c.Type = Type(t)
	} else if c.Company != "" {
		c.Type = TypeCompany
	}

	if raw := row.Get("points"); raw != "" {
		points, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
		if err != nil || points < 0 {
			return nil, "", apperror.NewInvalidInput("points", "points must be a non-negative integer")
		}
		c.Points = points
	}

	branch := row.Get("branch")
	if branch == "" {
		branch = defaultBranch
	}
	if branch != "" {
		c.Branches[branch] = BranchRegistration{
			Grade: row.Get("grade"),
			Notes: row.Get("notes", "memo"),
		}
	}
	return c, branch, nil
}
