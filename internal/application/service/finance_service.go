package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/timesheet-workflow/internal/domain/finance"
)

// AnnualFiguresRequest is one billing figure with its paired annual salary
type AnnualFiguresRequest struct {
	BillingAmount *decimal.Decimal
	Currency      finance.Currency
	BillingType   finance.BillingType
	SalaryAnnual  *decimal.Decimal
}

// AssignmentBilling is the billing of one employee on one client assignment
type AssignmentBilling struct {
	AssignmentID  string              `json:"assignmentId"`
	EmployeeID    string              `json:"employeeId"`
	ClientID      string              `json:"clientId,omitempty"`
	ProjectID     string              `json:"projectId,omitempty"`
	BillingAmount *decimal.Decimal    `json:"billingAmount"`
	Currency      finance.Currency    `json:"currency"`
	BillingType   finance.BillingType `json:"billingType"`
	SalaryAnnual  *decimal.Decimal    `json:"salaryAnnual"`
}

// AssignmentFigures is one row of the profit report
type AssignmentFigures struct {
	AssignmentID string `json:"assignmentId"`
	EmployeeID   string `json:"employeeId"`
	ClientID     string `json:"clientId,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
	finance.AnnualFigures
}

// AssignmentReport is annual revenue and profit per assignment plus totals
type AssignmentReport struct {
	Rows         []AssignmentFigures `json:"rows"`
	TotalRevenue decimal.Decimal     `json:"totalRevenue"`
	TotalProfit  decimal.Decimal     `json:"totalProfit"`
	FXRate       decimal.Decimal     `json:"fxRateUsdToInr"`
	AnnualHours  int64               `json:"hourlyAnnualHours"`
}

// FinanceService exposes billing normalization to reporting callers.
// It only reads its inputs and holds no state.
type FinanceService interface {
	ComputeAnnualFigures(req AnnualFiguresRequest) (finance.AnnualFigures, error)
	ComputeAssignmentReport(rows []AssignmentBilling) (*AssignmentReport, error)
}

type financeServiceImpl struct {
	normalizer *finance.Normalizer
	logger     Logger
}

// NewFinanceService creates a new FinanceService
func NewFinanceService(normalizer *finance.Normalizer, logger Logger) FinanceService {
	return &financeServiceImpl{normalizer: normalizer, logger: logger}
}

// ComputeAnnualFigures normalizes one billing figure and derives its profit
func (s *financeServiceImpl) ComputeAnnualFigures(req AnnualFiguresRequest) (finance.AnnualFigures, error) {
	return s.normalizer.ComputeAnnualFigures(req.BillingAmount, req.Currency, req.BillingType, req.SalaryAnnual)
}

// ComputeAssignmentReport computes figures for every row. A row with an
// unsupported currency fails the whole report.
func (s *financeServiceImpl) ComputeAssignmentReport(rows []AssignmentBilling) (*AssignmentReport, error) {
	report := &AssignmentReport{
		Rows:         make([]AssignmentFigures, 0, len(rows)),
		TotalRevenue: decimal.Zero,
		TotalProfit:  decimal.Zero,
		FXRate:       s.normalizer.FXRate(),
		AnnualHours:  s.normalizer.Convention().AnnualHours(),
	}

	for i, row := range rows {
		figures, err := s.normalizer.ComputeAnnualFigures(row.BillingAmount, row.Currency, row.BillingType, row.SalaryAnnual)
		if err != nil {
			s.logger.Error("Failed to normalize assignment billing", "error", err, "row", i, "assignment_id", row.AssignmentID)
			return nil, fmt.Errorf("assignment %d (%s): %w", i, row.AssignmentID, err)
		}

		report.Rows = append(report.Rows, AssignmentFigures{
			AssignmentID:  row.AssignmentID,
			EmployeeID:    row.EmployeeID,
			ClientID:      row.ClientID,
			ProjectID:     row.ProjectID,
			AnnualFigures: figures,
		})
		report.TotalRevenue = report.TotalRevenue.Add(figures.RevenueAnnual)
		report.TotalProfit = report.TotalProfit.Add(figures.ProfitAnnual)
	}

	s.logger.Info("Assignment report computed", "rows", len(report.Rows), "total_revenue", report.TotalRevenue.String())
	return report, nil
}
