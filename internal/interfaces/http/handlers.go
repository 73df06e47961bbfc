package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/timesheet-workflow/internal/application/service"
	"github.com/garyjia/timesheet-workflow/internal/application/workflow"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	"github.com/garyjia/timesheet-workflow/internal/domain/finance"
	domainwf "github.com/garyjia/timesheet-workflow/internal/domain/workflow"
)

// Identity headers set by the upstream gateway
const (
	HeaderEmployeeID     = "X-Employee-ID"
	HeaderOrganizationID = "X-Organization-ID"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// SubmitTimesheetRequest is a draft plus the optional time log it belongs to
type SubmitTimesheetRequest struct {
	entity.Draft
	TimeLogID string `json:"timeLogId" binding:"omitempty,max=128"`
}

// ClockOutRequest carries how the clock-out happened
type ClockOutRequest struct {
	Status string `json:"status" binding:"omitempty,oneof=Normal AutoTerminated GracePeriod"`
}

// ClarificationRequest carries the reviewer's question
type ClarificationRequest struct {
	Reason string `json:"reason" binding:"max=4000"`
}

// ClarificationResponseRequest carries the employee's answer
type ClarificationResponseRequest struct {
	Response string `json:"response" binding:"max=4000"`
}

// ListApprovalsRequest represents query parameters for listing approvals
type ListApprovalsRequest struct {
	Status              string `form:"status" binding:"omitempty,oneof=pending approved"`
	ClarificationStatus string `form:"clarification_status" binding:"omitempty,oneof=none needed submitted"`
	EmployeeID          string `form:"employee_id"`
	Limit               int    `form:"limit"`
	Offset              int    `form:"offset"`
}

// AnnualFiguresDTO is one billing figure in API requests
type AnnualFiguresDTO struct {
	BillingAmount *decimal.Decimal `json:"billingAmount"`
	Currency      string           `json:"currency" binding:"required"`
	BillingType   string           `json:"billingType"`
	SalaryAnnual  *decimal.Decimal `json:"salaryAnnual"`
}

// AssignmentBillingDTO is one assignment row in API requests
type AssignmentBillingDTO struct {
	AssignmentID string `json:"assignmentId"`
	EmployeeID   string `json:"employeeId"`
	ClientID     string `json:"clientId"`
	ProjectID    string `json:"projectId"`
	AnnualFiguresDTO
}

// AssignmentReportRequest is a batch of assignment rows
type AssignmentReportRequest struct {
	Rows []AssignmentBillingDTO `json:"rows" binding:"required,dive"`
}

// TimeLogResponse is a time log with its allocation rendered
type TimeLogResponse struct {
	*entity.TimeLog
	ProjectTimeData json.RawMessage `json:"project_time_data,omitempty"`
}

// ApprovalResponse is an approval with its lifecycle state
type ApprovalResponse struct {
	*entity.TimesheetApproval
	State            string   `json:"state"`
	PermittedActions []string `json:"permitted_actions"`
}

// ApprovalListItem is one row of an approval listing
type ApprovalListItem struct {
	Approval ApprovalResponse `json:"approval"`
	TimeLog  TimeLogResponse  `json:"time_log"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, details := true, interface{}(nil)
	if h.services.Health != nil {
		healthy, details = h.services.Health()
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, Response{
		Success: healthy,
		Data: HealthResponse{
			Status:     status,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Components: details,
		},
	})
}

// ValidateTimesheet handles POST /api/timesheets/validate
func (h *Handlers) ValidateTimesheet(c *gin.Context) {
	var draft entity.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.writeBindError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.services.Submission.ValidateDraft(draft)})
}

// SubmitTimesheet handles POST /api/timesheets
func (h *Handlers) SubmitTimesheet(c *gin.Context) {
	var req SubmitTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	result, err := h.services.Submission.Submit(c.Request.Context(), service.SubmitRequest{
		EmployeeID:     employeeID(c),
		OrganizationID: organizationID(c),
		Draft:          req.Draft,
		TimeLogID:      strings.TrimSpace(req.TimeLogID),
	})
	if err != nil {
		h.writeError(c, "submit_timesheet", err)
		return
	}

	status := http.StatusCreated
	if result.AlreadySubmitted {
		status = http.StatusOK
	}
	c.JSON(status, Response{Success: true, Data: result})
}

// ClockIn handles POST /api/timelogs/clock-in
func (h *Handlers) ClockIn(c *gin.Context) {
	log, err := h.services.TimeLogs.ClockIn(c.Request.Context(), employeeID(c), organizationID(c))
	if err != nil {
		h.writeError(c, "clock_in", err)
		return
	}
	h.writeTimeLog(c, http.StatusOK, log)
}

// ClockOut handles POST /api/timelogs/clock-out
func (h *Handlers) ClockOut(c *gin.Context) {
	var req ClockOutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeBindError(c, err)
			return
		}
	}

	log, err := h.services.TimeLogs.ClockOut(c.Request.Context(), employeeID(c), entity.TimeLogStatus(req.Status))
	if err != nil {
		h.writeError(c, "clock_out", err)
		return
	}
	h.writeTimeLog(c, http.StatusOK, log)
}

// SaveDraft handles PUT /api/timelogs/draft
func (h *Handlers) SaveDraft(c *gin.Context) {
	var draft entity.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.writeBindError(c, err)
		return
	}

	log, err := h.services.TimeLogs.SaveDraft(c.Request.Context(), employeeID(c), organizationID(c), draft)
	if err != nil {
		h.writeError(c, "save_draft", err)
		return
	}
	h.writeTimeLog(c, http.StatusOK, log)
}

// GetTimeLog handles GET /api/timelogs/:id
func (h *Handlers) GetTimeLog(c *gin.Context) {
	log, err := h.services.TimeLogs.GetTimeLog(c.Request.Context(), employeeID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_time_log", err)
		return
	}
	h.writeTimeLog(c, http.StatusOK, log)
}

// ListApprovals handles GET /api/approvals
func (h *Handlers) ListApprovals(c *gin.Context) {
	var req ListApprovalsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	if req.Limit <= 0 || req.Limit > maxPageSize {
		req.Limit = defaultPageSize
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	filter := entity.ApprovalFilter{
		Status:     entity.ApprovalStatus(req.Status),
		EmployeeID: req.EmployeeID,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if req.ClarificationStatus != "" {
		cs := entity.ClarificationStatus(req.ClarificationStatus)
		if req.ClarificationStatus == "none" {
			cs = entity.ClarificationNone
		}
		filter.ClarificationStatus = &cs
	}

	rows, err := h.services.Approvals.ListApprovals(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "list_approvals", err)
		return
	}

	items := make([]ApprovalListItem, 0, len(rows))
	for _, row := range rows {
		approval, log := row.Approval, row.TimeLog
		items = append(items, ApprovalListItem{
			Approval: toApprovalResponse(&approval, domainwf.StateOf(&approval)),
			TimeLog:  toTimeLogResponse(&log),
		})
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"items":  items,
			"limit":  req.Limit,
			"offset": req.Offset,
		},
	})
}

// GetApproval handles GET /api/approvals/:id
func (h *Handlers) GetApproval(c *gin.Context) {
	approval, state, err := h.services.Approvals.GetApproval(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_approval", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toApprovalResponse(approval, state)})
}

// GetApprovalHistory handles GET /api/approvals/:id/history
func (h *Handlers) GetApprovalHistory(c *gin.Context) {
	records, err := h.services.Approvals.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "approval_history", err)
		return
	}
	if records == nil {
		records = []*entity.ApprovalHistory{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// Approve handles POST /api/approvals/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	approval, err := h.services.Approvals.Approve(c.Request.Context(), c.Param("id"), employeeID(c))
	if err != nil {
		h.writeError(c, "approve", err)
		return
	}
	h.writeApproval(c, approval)
}

// RequestClarification handles POST /api/approvals/:id/clarification
func (h *Handlers) RequestClarification(c *gin.Context) {
	var req ClarificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	approval, err := h.services.Approvals.RequestClarification(c.Request.Context(), c.Param("id"), employeeID(c), req.Reason)
	if err != nil {
		h.writeError(c, "request_clarification", err)
		return
	}
	h.writeApproval(c, approval)
}

// SubmitClarification handles POST /api/approvals/:id/clarification-response
func (h *Handlers) SubmitClarification(c *gin.Context) {
	var req ClarificationResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	approval, err := h.services.Approvals.SubmitClarification(c.Request.Context(), c.Param("id"), employeeID(c), req.Response)
	if err != nil {
		h.writeError(c, "submit_clarification", err)
		return
	}
	h.writeApproval(c, approval)
}

// ComputeAnnualFigures handles POST /api/finance/annual-figures
func (h *Handlers) ComputeAnnualFigures(c *gin.Context) {
	var req AnnualFiguresDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	figuresReq, err := req.toRequest()
	if err != nil {
		h.writeError(c, "annual_figures", err)
		return
	}

	figures, err := h.services.Finance.ComputeAnnualFigures(figuresReq)
	if err != nil {
		h.writeError(c, "annual_figures", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: figures})
}

// ComputeAssignmentReport handles POST /api/finance/assignment-report
func (h *Handlers) ComputeAssignmentReport(c *gin.Context) {
	var req AssignmentReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	rows := make([]service.AssignmentBilling, 0, len(req.Rows))
	for _, row := range req.Rows {
		figuresReq, err := row.toRequest()
		if err != nil {
			h.writeError(c, "assignment_report", err)
			return
		}
		rows = append(rows, service.AssignmentBilling{
			AssignmentID:  row.AssignmentID,
			EmployeeID:    row.EmployeeID,
			ClientID:      row.ClientID,
			ProjectID:     row.ProjectID,
			BillingAmount: figuresReq.BillingAmount,
			Currency:      figuresReq.Currency,
			BillingType:   figuresReq.BillingType,
			SalaryAnnual:  figuresReq.SalaryAnnual,
		})
	}

	report, err := h.services.Finance.ComputeAssignmentReport(rows)
	if err != nil {
		h.writeError(c, "assignment_report", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

func (d AnnualFiguresDTO) toRequest() (service.AnnualFiguresRequest, error) {
	currency, err := finance.ParseCurrency(d.Currency)
	if err != nil {
		return service.AnnualFiguresRequest{}, err
	}
	return service.AnnualFiguresRequest{
		BillingAmount: d.BillingAmount,
		Currency:      currency,
		BillingType:   finance.ParseBillingType(d.BillingType),
		SalaryAnnual:  d.SalaryAnnual,
	}, nil
}

func (h *Handlers) writeTimeLog(c *gin.Context, status int, log *entity.TimeLog) {
	c.JSON(status, Response{Success: true, Data: toTimeLogResponse(log)})
}

func (h *Handlers) writeApproval(c *gin.Context, approval *entity.TimesheetApproval) {
	c.JSON(http.StatusOK, Response{Success: true, Data: toApprovalResponse(approval, domainwf.StateOf(approval))})
}

func toTimeLogResponse(log *entity.TimeLog) TimeLogResponse {
	resp := TimeLogResponse{TimeLog: log}
	if encoded, err := entity.MarshalAllocation(log.ProjectTimeData); err == nil && encoded != "" {
		resp.ProjectTimeData = json.RawMessage(encoded)
	}
	return resp
}

func toApprovalResponse(approval *entity.TimesheetApproval, state domainwf.State) ApprovalResponse {
	actions := []string{}
	if !state.IsTerminal() {
		for _, t := range workflow.BuildApprovalStateMachine(state).PermittedTriggers() {
			actions = append(actions, t.String())
		}
	}
	return ApprovalResponse{
		TimesheetApproval: approval,
		State:             state.String(),
		PermittedActions:  actions,
	}
}

func employeeID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderEmployeeID))
}

func organizationID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderOrganizationID))
}
