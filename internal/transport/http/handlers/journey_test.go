package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"hrleave/internal/app/server"
	"hrleave/internal/domain/auth"
	"hrleave/internal/platform/config"
	"hrleave/internal/platform/db"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

type journey struct {
	t      *testing.T
	client *http.Client
	base   string
	secret string
}

func TestLeaveApprovalJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:               dbURL,
		DBMaxConns:                4,
		JWTSecret:                 "test-secret",
		Environment:               "test",
		MigrationsDir:             "../../../../migrations",
		RunMigrations:             true,
		RunSeed:                   true,
		MaxBodyBytes:              1048576,
		EscalationDefaultHours:    24,
		EscalationExhaustedPolicy: "escalate_to_hr",
		LeaveNoticeDays:           7,
		LeavePostGraceDays:        3,
		LeaveSickCapDays:          360,
		LeaveSickWindowYears:      3,
		DefaultApprovalCode:       "STANDARD",
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	managerID, employeeID := seedOrg(t, app.DB, suffix)

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	j := &journey{t: t, client: ts.Client(), base: ts.URL, secret: cfg.JWTSecret}

	leaveTypeID := j.leaveTypeID("hr-"+suffix, "ANNUAL")
	start := nextMonday(time.Now().UTC().AddDate(0, 0, 14))
	end := start.AddDate(0, 0, 4)

	var created struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		WorkingDays int    `json:"workingDays"`
	}
	j.call(employeeID, auth.RoleEmployee, http.MethodPost, "/api/v1/leave/requests", map[string]any{
		"leaveTypeId": leaveTypeID,
		"startDate":   start.Format(time.DateOnly),
		"endDate":     end.Format(time.DateOnly),
	}, http.StatusCreated, &created)
	if created.Status != "PENDING" || created.WorkingDays != 5 {
		t.Fatalf("unexpected request after submit: %+v", created)
	}

	var decided struct {
		Status string `json:"status"`
	}
	j.call(managerID, auth.RoleManager, http.MethodPost, "/api/v1/leave/requests/"+created.ID+"/decision",
		map[string]string{"action": "APPROVE"}, http.StatusOK, &decided)
	if decided.Status != "UNDER_REVIEW" {
		t.Fatalf("expected UNDER_REVIEW after manager approval, got %s", decided.Status)
	}
	j.call("hr-"+suffix, auth.RoleHR, http.MethodPost, "/api/v1/leave/requests/"+created.ID+"/decision",
		map[string]string{"action": "APPROVE"}, http.StatusOK, &decided)
	if decided.Status != "APPROVED" {
		t.Fatalf("expected APPROVED after hr approval, got %s", decided.Status)
	}

	var balance struct {
		Available string `json:"available"`
	}
	j.call(employeeID, auth.RoleEmployee, http.MethodGet, "/api/v1/leave/balances/"+leaveTypeID, nil, http.StatusOK, &balance)
	if balance.Available != "16" {
		t.Fatalf("expected 16 days available, got %s", balance.Available)
	}

	var timeline []struct {
		Action   string `json:"action"`
		Verified bool   `json:"verified"`
	}
	j.call(employeeID, auth.RoleEmployee, http.MethodGet, "/api/v1/audit/requests/"+created.ID+"/timeline", nil, http.StatusOK, &timeline)
	if len(timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d", len(timeline))
	}
	for _, evt := range timeline {
		if !evt.Verified {
			t.Fatalf("audit entry %s failed checksum verification", evt.Action)
		}
	}

	j.call(employeeID, auth.RoleEmployee, http.MethodPost, "/api/v1/leave/requests/"+created.ID+"/cancel", nil, http.StatusConflict, nil)
}

func seedOrg(t *testing.T, pool *db.Pool, suffix string) (string, string) {
	t.Helper()
	ctx := context.Background()
	dept := "dept-" + suffix
	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO departments (id, name) VALUES ($1, $2)`, []any{dept, "Journey " + suffix}},
		{`INSERT INTO positions (id, title, department_id) VALUES ($1, 'HR', $2)`, []any{"pos-hr-" + suffix, dept}},
		{`INSERT INTO positions (id, title, department_id) VALUES ($1, 'Manager', $2)`, []any{"pos-mgr-" + suffix, dept}},
		{`INSERT INTO positions (id, title, department_id, reports_to) VALUES ($1, 'Engineer', $2, $3)`, []any{"pos-emp-" + suffix, dept, "pos-mgr-" + suffix}},
		{`INSERT INTO employees (id, name, department_id, position_id, hire_date) VALUES ($1, 'Hana', $2, $3, '2015-01-01')`, []any{"hr-" + suffix, dept, "pos-hr-" + suffix}},
		{`INSERT INTO employees (id, name, department_id, position_id, hire_date) VALUES ($1, 'Mo', $2, $3, '2018-01-01')`, []any{"mgr-" + suffix, dept, "pos-mgr-" + suffix}},
		{`INSERT INTO employees (id, name, department_id, position_id, hire_date) VALUES ($1, 'Eve', $2, $3, '2020-01-01')`, []any{"emp-" + suffix, dept, "pos-emp-" + suffix}},
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt.sql, stmt.args...); err != nil {
			t.Fatalf("seed org failed: %v", err)
		}
	}
	return "mgr-" + suffix, "emp-" + suffix
}

func nextMonday(from time.Time) time.Time {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func (j *journey) leaveTypeID(hrID, code string) string {
	var types []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	j.call(hrID, auth.RoleHR, http.MethodGet, "/api/v1/leave/types", nil, http.StatusOK, &types)
	for _, lt := range types {
		if lt.Code == code {
			return lt.ID
		}
	}
	j.t.Fatalf("leave type %s not seeded", code)
	return ""
}

func (j *journey) call(employeeID, role, method, path string, payload any, wantStatus int, out any) {
	j.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			j.t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, j.base+path, body)
	if err != nil {
		j.t.Fatalf("build request: %v", err)
	}
	token, err := auth.GenerateToken(j.secret, auth.Claims{UserID: "u-" + employeeID, EmployeeID: employeeID, RoleName: role}, time.Hour)
	if err != nil {
		j.t.Fatalf("token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		j.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		j.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, resp.StatusCode, raw)
	}
	if out == nil {
		return
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		j.t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		j.t.Fatalf("decode data: %v", err)
	}
}
