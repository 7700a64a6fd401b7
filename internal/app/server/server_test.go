package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/leave/memory"
	"hrleave/internal/domain/notifications"
	"hrleave/internal/domain/org"
	"hrleave/internal/domain/payroll"
	"hrleave/internal/platform/config"
	"hrleave/internal/platform/db"
)

const secret = "server-secret"

func testConfig() config.Config {
	return config.Config{
		JWTSecret:                 secret,
		Environment:               "test",
		MaxBodyBytes:              1 << 20,
		CORSAllowedOrigins:        []string{"https://hr.example.com"},
		MetricsEnabled:            true,
		EscalationDefaultHours:    24,
		EscalationExhaustedPolicy: "escalate_to_hr",
		LeaveNoticeDays:           7,
		LeavePostGraceDays:        3,
		LeaveSickCapDays:          360,
		LeaveSickWindowYears:      3,
		DefaultApprovalCode:       "STANDARD",
	}
}

func newMemoryApp(t *testing.T) (*App, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, db.Seed(context.Background(), store, "STANDARD"))

	dir := org.NewStatic()
	dir.AddPosition(org.Position{ID: "p-hr", DepartmentID: "hrd"})
	dir.AddPosition(org.Position{ID: "p-mgr", DepartmentID: "d1"})
	dir.AddPosition(org.Position{ID: "p-e1", DepartmentID: "d1", ReportsTo: "p-mgr"})
	dir.AddEmployee(org.Employee{ID: "hr1", PositionID: "p-hr", DepartmentID: "hrd"})
	dir.AddEmployee(org.Employee{ID: "m1", PositionID: "p-mgr", DepartmentID: "d1"})
	dir.AddEmployee(org.Employee{ID: "e1", PositionID: "p-e1", DepartmentID: "d1"})

	app := Assemble(testConfig(), Stores{
		Leave:         store,
		Directory:     dir,
		Audit:         audit.NewMemoryStore(),
		Notifications: notifications.NewMemoryStore(),
		Payroll:       payroll.NewMemoryStore(),
	})
	app.Leave.SetClock(func() time.Time { return time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC) })
	return app, store
}

func call(t *testing.T, app *App, employeeID, role, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if employeeID != "" {
		token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u-" + employeeID, EmployeeID: employeeID, RoleName: role}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealthReadyAndMetrics(t *testing.T) {
	app, _ := newMemoryApp(t)

	rec := call(t, app, "", "", http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = call(t, app, "", "", http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, app, "", "", http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requestsTotal")
}

func TestCORSPreflight(t *testing.T) {
	app, _ := newMemoryApp(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leave/types", nil)
	req.Header.Set("Origin", "https://hr.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	assert.Equal(t, "https://hr.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLeaveLifecycleOverHTTP(t *testing.T) {
	app, store := newMemoryApp(t)
	annual, err := store.GetLeaveTypeByCode(context.Background(), "ANNUAL")
	require.NoError(t, err)

	rec := call(t, app, "e1", auth.RoleEmployee, http.MethodPost, "/api/v1/leave/requests",
		`{"leaveTypeId":"`+annual.ID+`","startDate":"2025-03-17","endDate":"2025-03-21"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data leave.LeaveRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.ID
	assert.Equal(t, "STANDARD", created.Data.ApprovalConfigCode)

	rec = call(t, app, "m1", auth.RoleManager, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	rec = call(t, app, "m1", auth.RoleManager, http.MethodPost, "/api/v1/leave/requests/"+id+"/decision", `{"action":"APPROVE"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = call(t, app, "hr1", auth.RoleHR, http.MethodPost, "/api/v1/leave/requests/"+id+"/decision", `{"action":"APPROVE"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, app, "e1", auth.RoleEmployee, http.MethodGet, "/api/v1/audit/requests/"+id+"/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var timeline struct {
		Data []audit.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &timeline))
	assert.Len(t, timeline.Data, 3)
	for _, evt := range timeline.Data {
		assert.True(t, evt.Verified)
	}

	rec = call(t, app, "e1", auth.RoleEmployee, http.MethodGet, "/api/v1/audit/logs", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, app, "hr1", auth.RoleHR, http.MethodGet, "/api/v1/audit/logs?requestId="+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Total-Count"))

	rec = call(t, app, "hr1", auth.RoleHR, http.MethodGet, "/api/v1/audit/requests/"+id+"/timeline.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = call(t, app, "hr1", auth.RoleHR, http.MethodGet, "/api/v1/audit/requests/unknown/timeline.pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartJobsRejectsBadSchedule(t *testing.T) {
	app, _ := newMemoryApp(t)
	app.Config.AccrualSchedule = "every tuesday"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.Error(t, app.StartJobs(ctx))
}

func TestEscalationPolicyFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.EscalationExhaustedPolicy = "reject"
	cfg.EscalationMaxLevel = 2
	cfg.EscalationDefaultHours = 48
	policy := escalationPolicy(cfg)
	assert.Equal(t, leave.ExhaustedReject, policy.OnExhausted)
	assert.Equal(t, 2, policy.MaxLevel)
	assert.Equal(t, 48, policy.DefaultHours)
}
