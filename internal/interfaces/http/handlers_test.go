package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/timesheet-workflow/internal/application/service"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	"github.com/garyjia/timesheet-workflow/internal/domain/finance"
	"github.com/garyjia/timesheet-workflow/internal/domain/timesheet"
	domainwf "github.com/garyjia/timesheet-workflow/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockSubmissionService struct {
	submitFunc func(ctx context.Context, req service.SubmitRequest) (*service.SubmissionResult, error)
}

func (m *mockSubmissionService) ValidateDraft(draft entity.Draft) entity.ValidationResult {
	return timesheet.NewValidator(0, false).Validate(draft)
}

func (m *mockSubmissionService) Submit(ctx context.Context, req service.SubmitRequest) (*service.SubmissionResult, error) {
	return m.submitFunc(ctx, req)
}

type mockTimeLogService struct {
	clockInFunc  func(ctx context.Context, employeeID, organizationID string) (*entity.TimeLog, error)
	clockOutFunc func(ctx context.Context, employeeID string, status entity.TimeLogStatus) (*entity.TimeLog, error)
}

func (m *mockTimeLogService) ClockIn(ctx context.Context, employeeID, organizationID string) (*entity.TimeLog, error) {
	return m.clockInFunc(ctx, employeeID, organizationID)
}

func (m *mockTimeLogService) ClockOut(ctx context.Context, employeeID string, status entity.TimeLogStatus) (*entity.TimeLog, error) {
	return m.clockOutFunc(ctx, employeeID, status)
}

func (m *mockTimeLogService) SaveDraft(ctx context.Context, employeeID, organizationID string, draft entity.Draft) (*entity.TimeLog, error) {
	return nil, entity.ErrAuthenticationMissing
}

func (m *mockTimeLogService) GetTimeLog(ctx context.Context, employeeID, timeLogID string) (*entity.TimeLog, error) {
	return nil, entity.ErrTimeLogNotFound
}

func (m *mockTimeLogService) CloseStaleTimeLogs(ctx context.Context, maxShift time.Duration, limit int) (int, error) {
	return 0, nil
}

type mockEngine struct {
	approveFunc func(ctx context.Context, approvalID, reviewerID string) (*entity.TimesheetApproval, error)
	clarifyFunc func(ctx context.Context, approvalID, reviewerID, reason string) (*entity.TimesheetApproval, error)
	respondFunc func(ctx context.Context, approvalID, employeeID, response string) (*entity.TimesheetApproval, error)
	listFunc    func(ctx context.Context, filter entity.ApprovalFilter) ([]*entity.ApprovalWithTimeLog, error)
	getFunc     func(ctx context.Context, approvalID string) (*entity.TimesheetApproval, domainwf.State, error)
	historyFunc func(ctx context.Context, approvalID string) ([]*entity.ApprovalHistory, error)
}

func (m *mockEngine) Approve(ctx context.Context, approvalID, reviewerID string) (*entity.TimesheetApproval, error) {
	return m.approveFunc(ctx, approvalID, reviewerID)
}

func (m *mockEngine) RequestClarification(ctx context.Context, approvalID, reviewerID, reason string) (*entity.TimesheetApproval, error) {
	return m.clarifyFunc(ctx, approvalID, reviewerID, reason)
}

func (m *mockEngine) SubmitClarification(ctx context.Context, approvalID, employeeID, response string) (*entity.TimesheetApproval, error) {
	return m.respondFunc(ctx, approvalID, employeeID, response)
}

func (m *mockEngine) GetApproval(ctx context.Context, approvalID string) (*entity.TimesheetApproval, domainwf.State, error) {
	return m.getFunc(ctx, approvalID)
}

func (m *mockEngine) ListApprovals(ctx context.Context, filter entity.ApprovalFilter) ([]*entity.ApprovalWithTimeLog, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockEngine) History(ctx context.Context, approvalID string) ([]*entity.ApprovalHistory, error) {
	return m.historyFunc(ctx, approvalID)
}

type testServer struct {
	server     *Server
	submission *mockSubmissionService
	timeLogs   *mockTimeLogService
	engine     *mockEngine
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestNewServer_KeepsGinMode(t *testing.T) {
	gin.SetMode(gin.DebugMode)
	defer gin.SetMode(gin.TestMode)

	newTestServer(t, DefaultServerConfig())
	assert.Equal(t, gin.DebugMode, gin.Mode())
}

func newTestServer(t *testing.T, cfg ServerConfig) *testServer {
	t.Helper()
	ts := &testServer{
		submission: &mockSubmissionService{},
		timeLogs:   &mockTimeLogService{},
		engine:     &mockEngine{},
	}

	normalizer := finance.NewNormalizer(decimal.NewFromInt(84), finance.DefaultHourlyConvention)
	server, err := NewServer(cfg, Services{
		Submission: ts.submission,
		TimeLogs:   ts.timeLogs,
		Finance:    service.NewFinanceService(normalizer, nopLogger{}),
		Approvals:  ts.engine,
		Health:     func() (bool, interface{}) { return true, map[string]string{"database": "ok"} },
	}, nopLogger{})
	require.NoError(t, err)
	ts.server = server
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)

	var resp Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

var asEmployee = map[string]string{HeaderEmployeeID: "emp-1", HeaderOrganizationID: "org-1"}

func pendingApproval(id string) *entity.TimesheetApproval {
	return &entity.TimesheetApproval{
		ID:          id,
		TimeLogID:   "tl-1",
		Status:      entity.ApprovalStatusPending,
		SubmittedAt: time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC),
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	w, resp := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestValidateTimesheet(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	w, resp := ts.do(t, http.MethodPost, "/api/timesheets/validate", entity.Draft{
		EmployeeHasProjects: true,
		ProjectEntries: []entity.ProjectAllocationEntry{
			{ProjectID: "p1", Hours: 6, Report: "API"},
			{ProjectID: "p2", Hours: 3, Report: "Review"},
		},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["ok"])
	assert.Equal(t, []interface{}{"HoursExceeded"}, data["reasons"])
}

func TestSubmitTimesheet(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	var got service.SubmitRequest
	ts.submission.submitFunc = func(ctx context.Context, req service.SubmitRequest) (*service.SubmissionResult, error) {
		got = req
		return &service.SubmissionResult{OK: true, TimeLogID: "tl-1", ApprovalID: "ap-1"}, nil
	}

	w, resp := ts.do(t, http.MethodPost, "/api/timesheets", map[string]interface{}{
		"employeeHasProjects": true,
		"projectEntries":      []map[string]interface{}{{"projectId": "p1", "hours": 5, "report": "API"}},
		"timeLogId":           " tl-1 ",
	}, asEmployee)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "emp-1", got.EmployeeID)
	assert.Equal(t, "org-1", got.OrganizationID)
	assert.Equal(t, "tl-1", got.TimeLogID)
	assert.True(t, got.Draft.EmployeeHasProjects)
	require.Len(t, got.Draft.ProjectEntries, 1)
	assert.Equal(t, 5.0, got.Draft.ProjectEntries[0].Hours)
}

func TestSubmitTimesheet_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		reason    string
		retryable bool
	}{
		{"validation", &entity.ValidationError{Reason: entity.ReasonMissingWorkSummary}, http.StatusUnprocessableEntity, CodeValidationFailed, "MissingWorkSummary", false},
		{"auth", entity.ErrAuthenticationMissing, http.StatusUnauthorized, CodeAuthenticationMissing, "", false},
		{"time log", entity.ErrTimeLogNotFound, http.StatusNotFound, CodeTimeLogNotFound, "", false},
		{"incomplete", fmt.Errorf("%w: %v", entity.ErrSubmissionIncomplete, entity.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeSubmissionIncomplete, "", true},
		{"store", fmt.Errorf("find: %w", entity.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeStoreUnavailable, "", true},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternal, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, DefaultServerConfig())
			ts.submission.submitFunc = func(ctx context.Context, req service.SubmitRequest) (*service.SubmissionResult, error) {
				return nil, tt.err
			}

			w, resp := ts.do(t, http.MethodPost, "/api/timesheets", entity.Draft{}, asEmployee)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.reason, resp.Reason)
			assert.Equal(t, tt.retryable, resp.Retryable)
		})
	}
}

func TestSubmitTimesheet_AlreadySubmitted(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())
	ts.submission.submitFunc = func(ctx context.Context, req service.SubmitRequest) (*service.SubmissionResult, error) {
		return &service.SubmissionResult{OK: true, TimeLogID: "tl-1", ApprovalID: "ap-1", AlreadySubmitted: true}, nil
	}

	w, _ := ts.do(t, http.MethodPost, "/api/timesheets", entity.Draft{}, asEmployee)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitTimesheet_MalformedBody(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/timesheets", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeInvalidRequest)
}

func TestClockInOut(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())
	in := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	ts.timeLogs.clockInFunc = func(ctx context.Context, employeeID, organizationID string) (*entity.TimeLog, error) {
		return &entity.TimeLog{ID: "tl-1", EmployeeID: employeeID, Date: "2026-03-09", ClockInTime: &in, Status: entity.TimeLogStatusNormal}, nil
	}
	var gotStatus entity.TimeLogStatus
	ts.timeLogs.clockOutFunc = func(ctx context.Context, employeeID string, status entity.TimeLogStatus) (*entity.TimeLog, error) {
		gotStatus = status
		return &entity.TimeLog{ID: "tl-1", EmployeeID: employeeID, Status: status}, nil
	}

	w, resp := ts.do(t, http.MethodPost, "/api/timelogs/clock-in", nil, asEmployee)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tl-1", resp.Data.(map[string]interface{})["id"])

	w, _ = ts.do(t, http.MethodPost, "/api/timelogs/clock-out", ClockOutRequest{Status: "GracePeriod"}, asEmployee)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.TimeLogStatusGracePeriod, gotStatus)

	w, resp = ts.do(t, http.MethodPost, "/api/timelogs/clock-out", ClockOutRequest{Status: "Sideways"}, asEmployee)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, resp.Code)
}

func TestIdentityHeaders(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())
	called := false
	ts.timeLogs.clockInFunc = func(ctx context.Context, employeeID, organizationID string) (*entity.TimeLog, error) {
		called = true
		return &entity.TimeLog{ID: "tl-1"}, nil
	}

	w, resp := ts.do(t, http.MethodPost, "/api/timelogs/clock-in", nil, map[string]string{HeaderEmployeeID: "emp 1; drop"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, resp.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/timelogs/clock-in", nil, map[string]string{HeaderEmployeeID: "emp-1", HeaderOrganizationID: "org/../x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)

	w, _ = ts.do(t, http.MethodPost, "/api/timelogs/clock-in", nil, map[string]string{HeaderEmployeeID: "emp-1@acme"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestApprovalActions(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	ts.engine.approveFunc = func(ctx context.Context, approvalID, reviewerID string) (*entity.TimesheetApproval, error) {
		if approvalID == "missing" {
			return nil, entity.ErrApprovalNotFound
		}
		a := pendingApproval(approvalID)
		now := time.Now()
		a.Status, a.ApprovedAt, a.ReviewerID = entity.ApprovalStatusApproved, &now, reviewerID
		return a, nil
	}
	ts.engine.clarifyFunc = func(ctx context.Context, approvalID, reviewerID, reason string) (*entity.TimesheetApproval, error) {
		if reason == "" {
			return nil, entity.ErrEmptyReason
		}
		return nil, fmt.Errorf("%w: APPROVED -> REQUEST_CLARIFICATION", entity.ErrIllegalTransition)
	}
	ts.engine.respondFunc = func(ctx context.Context, approvalID, employeeID, response string) (*entity.TimesheetApproval, error) {
		return nil, entity.ErrEmptyResponse
	}

	w, resp := ts.do(t, http.MethodPost, "/api/approvals/ap-1/approve", nil, map[string]string{HeaderEmployeeID: "mgr-1"})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "APPROVED", data["state"])
	assert.Equal(t, "mgr-1", data["reviewer_id"])
	assert.Empty(t, data["permitted_actions"])

	w, resp = ts.do(t, http.MethodPost, "/api/approvals/missing/approve", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeApprovalNotFound, resp.Code)

	w, resp = ts.do(t, http.MethodPost, "/api/approvals/ap-1/clarification", ClarificationRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeEmptyReason, resp.Code)

	w, resp = ts.do(t, http.MethodPost, "/api/approvals/ap-1/clarification", ClarificationRequest{Reason: "why"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeIllegalTransition, resp.Code)

	w, resp = ts.do(t, http.MethodPost, "/api/approvals/ap-1/clarification-response", ClarificationResponseRequest{}, asEmployee)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeEmptyResponse, resp.Code)
}

func TestGetApprovalAndHistory(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	ts.engine.getFunc = func(ctx context.Context, approvalID string) (*entity.TimesheetApproval, domainwf.State, error) {
		a := pendingApproval(approvalID)
		return a, domainwf.StateOf(a), nil
	}
	ts.engine.historyFunc = func(ctx context.Context, approvalID string) ([]*entity.ApprovalHistory, error) {
		return nil, nil
	}

	w, resp := ts.do(t, http.MethodGet, "/api/approvals/ap-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "PENDING", data["state"])
	assert.ElementsMatch(t, []interface{}{"APPROVE", "REQUEST_CLARIFICATION"}, data["permitted_actions"])

	w, resp = ts.do(t, http.MethodGet, "/api/approvals/ap-1/history", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, resp.Data)
}

func TestListApprovals(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	var got entity.ApprovalFilter
	ts.engine.listFunc = func(ctx context.Context, filter entity.ApprovalFilter) ([]*entity.ApprovalWithTimeLog, error) {
		got = filter
		return []*entity.ApprovalWithTimeLog{{
			Approval: *pendingApproval("ap-1"),
			TimeLog: entity.TimeLog{
				ID:              "tl-1",
				EmployeeID:      "emp-1",
				Date:            "2026-03-09",
				ProjectTimeData: entity.ProjectAllocation{Projects: []entity.ProjectAllocationEntry{{ProjectID: "p1", Hours: 8}}},
			},
		}}, nil
	}

	w, resp := ts.do(t, http.MethodGet, "/api/approvals?status=pending&clarification_status=none&employee_id=emp-1&limit=500", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.ApprovalStatusPending, got.Status)
	require.NotNil(t, got.ClarificationStatus)
	assert.Equal(t, entity.ClarificationNone, *got.ClarificationStatus)
	assert.Equal(t, "emp-1", got.EmployeeID)
	assert.Equal(t, defaultPageSize, got.Limit)

	items := resp.Data.(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 1)
	timeLog := items[0].(map[string]interface{})["time_log"].(map[string]interface{})
	assert.NotNil(t, timeLog["project_time_data"])

	w, resp = ts.do(t, http.MethodGet, "/api/approvals?status=rejected", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, resp.Code)
}

func TestComputeAnnualFigures(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	w, resp := ts.do(t, http.MethodPost, "/api/finance/annual-figures", map[string]interface{}{
		"billingAmount": "50000",
		"currency":      "usd",
		"billingType":   "monthly",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "50400000", resp.Data.(map[string]interface{})["revenueAnnual"])

	w, resp = ts.do(t, http.MethodPost, "/api/finance/annual-figures", map[string]interface{}{
		"billingAmount": "1",
		"currency":      "EUR",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeUnsupportedCurrency, resp.Code)

	w, resp = ts.do(t, http.MethodPost, "/api/finance/annual-figures", map[string]interface{}{"billingAmount": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, resp.Code)
}

func TestComputeAssignmentReport(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	w, resp := ts.do(t, http.MethodPost, "/api/finance/assignment-report", map[string]interface{}{
		"rows": []map[string]interface{}{
			{"assignmentId": "a1", "billingAmount": "50000", "currency": "INR", "billingType": "Monthly", "salaryAnnual": "400000"},
			{"assignmentId": "a2", "billingAmount": "10", "currency": "USD", "billingType": "Hourly", "salaryAnnual": "2000000"},
		},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "2374080", data["totalRevenue"])
	assert.Equal(t, "-25920", data["totalProfit"])
	assert.Len(t, data["rows"], 2)
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimit = "2-M"
	ts := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		w, _ := ts.do(t, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestInvalidRateLimit(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimit = "lots"
	_, err := NewServer(cfg, Services{}, nopLogger{})
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.CORSOrigins = []string{"http://localhost:3000"}
	ts := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/timesheets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
