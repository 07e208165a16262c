package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/shifter/internal/middleware"
	"github.com/hitoshi/shifter/internal/model"
	"github.com/hitoshi/shifter/internal/shift"
)

type mockLedger struct {
	clockInFn        func(ctx context.Context, actor shift.Actor, req shift.ClockRequest) (*model.Shift, error)
	clockOutFn       func(ctx context.Context, actor shift.Actor, req shift.ClockRequest) (*model.Shift, error)
	listShiftsFn     func(ctx context.Context, actor shift.Actor) ([]model.ShiftWithUser, error)
	computeMetricsFn func(ctx context.Context, actor shift.Actor) (*model.MetricsReport, error)
}

func (m *mockLedger) ClockIn(ctx context.Context, actor shift.Actor, req shift.ClockRequest) (*model.Shift, error) {
	if m.clockInFn != nil {
		return m.clockInFn(ctx, actor, req)
	}
	return nil, model.NewOfficeClosedError()
}

func (m *mockLedger) ClockOut(ctx context.Context, actor shift.Actor, req shift.ClockRequest) (*model.Shift, error) {
	if m.clockOutFn != nil {
		return m.clockOutFn(ctx, actor, req)
	}
	return nil, model.NewNoActiveShiftError()
}

func (m *mockLedger) ListShifts(ctx context.Context, actor shift.Actor) ([]model.ShiftWithUser, error) {
	if m.listShiftsFn != nil {
		return m.listShiftsFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockLedger) ComputeMetrics(ctx context.Context, actor shift.Actor) (*model.MetricsReport, error) {
	if m.computeMetricsFn != nil {
		return m.computeMetricsFn(ctx, actor)
	}
	return nil, model.NewManagerRequiredError()
}

var _ ShiftLedgerInterface = (*mockLedger)(nil)

func requestWithActor(method, target, body string, actor shift.Actor) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.ContextWithActor(req.Context(), actor))
}

func employeeActor() shift.Actor {
	return shift.Actor{
		ID:            "auth0|u1",
		Name:          "Tanaka",
		Email:         "nurse.tanaka@example.com",
		Roles:         []string{"employee"},
		EmailVerified: true,
	}
}

func TestClock_ClockInWithAliases(t *testing.T) {
	var gotReq shift.ClockRequest
	ledger := &mockLedger{
		clockInFn: func(_ context.Context, _ shift.Actor, req shift.ClockRequest) (*model.Shift, error) {
			gotReq = req
			return &model.Shift{ID: "s1", UserID: "auth0|u1", ClockInAt: 1700000000000}, nil
		},
	}
	h := NewShiftHandler(ledger)

	// 旧クライアントのフィールド名（lat/lng/clockInNote、action "in"）
	body := `{"action": "in", "lat": 35.0, "lng": 139.0, "clockInNote": "早番"}`
	rec := httptest.NewRecorder()
	h.Clock(rec, requestWithActor(http.MethodPost, "/api/shifts", body, employeeActor()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if gotReq.Latitude == nil || *gotReq.Latitude != 35.0 {
		t.Errorf("latitude = %v, want 35.0", gotReq.Latitude)
	}
	if gotReq.Note == nil || *gotReq.Note != "早番" {
		t.Errorf("note = %v, want 早番", gotReq.Note)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp["ok"] != true || resp["id"] != "s1" {
		t.Errorf("response = %v", resp)
	}
	if resp["clockInAt"] != float64(1700000000000) {
		t.Errorf("clockInAt = %v, want 1700000000000", resp["clockInAt"])
	}
}

func TestClock_CanonicalFieldsWin(t *testing.T) {
	var gotReq shift.ClockRequest
	ledger := &mockLedger{
		clockInFn: func(_ context.Context, _ shift.Actor, req shift.ClockRequest) (*model.Shift, error) {
			gotReq = req
			return &model.Shift{ID: "s1"}, nil
		},
	}
	h := NewShiftHandler(ledger)

	body := `{"action": "clockIn", "latitude": 35.5, "lat": 34.0}`
	rec := httptest.NewRecorder()
	h.Clock(rec, requestWithActor(http.MethodPost, "/api/shifts", body, employeeActor()))

	if gotReq.Latitude == nil || *gotReq.Latitude != 35.5 {
		t.Errorf("latitude = %v, want canonical 35.5", gotReq.Latitude)
	}
}

func TestClock_ClockOut(t *testing.T) {
	outAt := int64(1700000100000)
	ledger := &mockLedger{
		clockOutFn: func(_ context.Context, _ shift.Actor, _ shift.ClockRequest) (*model.Shift, error) {
			return &model.Shift{ID: "s1", ClockInAt: 1700000000000, ClockOutAt: &outAt}, nil
		},
	}
	h := NewShiftHandler(ledger)

	rec := httptest.NewRecorder()
	h.Clock(rec, requestWithActor(http.MethodPost, "/api/shifts", `{"action": "clockOut"}`, employeeActor()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["clockOutAt"] != float64(outAt) {
		t.Errorf("clockOutAt = %v, want %d", resp["clockOutAt"], outAt)
	}
}

func TestClock_InvalidAction(t *testing.T) {
	h := NewShiftHandler(&mockLedger{})

	rec := httptest.NewRecorder()
	h.Clock(rec, requestWithActor(http.MethodPost, "/api/shifts", `{"action": "pause"}`, employeeActor()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), model.ErrCodeInvalidAction) {
		t.Errorf("body = %q, want INVALID_ACTION", rec.Body.String())
	}
}

func TestClock_InvalidJSON(t *testing.T) {
	h := NewShiftHandler(&mockLedger{})

	rec := httptest.NewRecorder()
	h.Clock(rec, requestWithActor(http.MethodPost, "/api/shifts", `{broken`, employeeActor()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClock_DomainErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "オフィスクローズ", err: model.NewOfficeClosedError(), want: http.StatusForbidden},
		{name: "ジオフェンス外", err: model.NewOutsidePerimeterError(), want: http.StatusForbidden},
		{name: "二重出勤", err: model.NewAlreadyClockedInError(), want: http.StatusForbidden},
		{name: "メール未検証", err: model.NewEmailUnverifiedError(), want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &mockLedger{
				clockInFn: func(_ context.Context, _ shift.Actor, _ shift.ClockRequest) (*model.Shift, error) {
					return nil, tt.err
				},
			}
			h := NewShiftHandler(ledger)

			rec := httptest.NewRecorder()
			h.Clock(rec, requestWithActor(http.MethodPost, "/api/shifts", `{"action": "clockIn"}`, employeeActor()))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestClock_WithoutSession(t *testing.T) {
	h := NewShiftHandler(&mockLedger{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/shifts", strings.NewReader(`{"action": "clockIn"}`))
	h.Clock(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestList(t *testing.T) {
	ledger := &mockLedger{
		listShiftsFn: func(_ context.Context, actor shift.Actor) ([]model.ShiftWithUser, error) {
			return []model.ShiftWithUser{
				{
					Shift:     model.Shift{ID: "s1", UserID: actor.ID, ClockInAt: 1700000000000},
					UserName:  "Tanaka",
					UserEmail: "nurse.tanaka@example.com",
				},
			}, nil
		},
	}
	h := NewShiftHandler(ledger)

	rec := httptest.NewRecorder()
	h.List(rec, requestWithActor(http.MethodGet, "/api/shifts", "", employeeActor()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("len = %d, want 1", len(resp))
	}
	if resp[0]["userName"] != "Tanaka" || resp[0]["clockInAt"] != float64(1700000000000) {
		t.Errorf("shift = %v", resp[0])
	}
	// 勤務中はclockOutAtがnullで返る
	if v, ok := resp[0]["clockOutAt"]; !ok || v != nil {
		t.Errorf("clockOutAt = %v, want explicit null", v)
	}
}

func TestAnalytics(t *testing.T) {
	ledger := &mockLedger{
		computeMetricsFn: func(_ context.Context, _ shift.Actor) (*model.MetricsReport, error) {
			return &model.MetricsReport{
				AvgHoursPerDay: 9.0,
				PeoplePerDay:   []model.DayCount{{Day: "2026-08-24", Count: 2}},
				TotalHoursPerStaff: []model.StaffHours{
					{UserID: "userA", Hours: 12.0},
				},
			}, nil
		},
	}
	h := NewShiftHandler(ledger)

	manager := employeeActor()
	manager.Roles = []string{"manager"}
	rec := httptest.NewRecorder()
	h.Analytics(rec, requestWithActor(http.MethodGet, "/api/analytics", "", manager))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp model.MetricsReport
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp.AvgHoursPerDay != 9.0 || len(resp.PeoplePerDay) != 1 {
		t.Errorf("report = %+v", resp)
	}
}

func TestAnalytics_ManagerRequired(t *testing.T) {
	h := NewShiftHandler(&mockLedger{})

	rec := httptest.NewRecorder()
	h.Analytics(rec, requestWithActor(http.MethodGet, "/api/analytics", "", employeeActor()))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
