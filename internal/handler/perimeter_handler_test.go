package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/shifter/internal/model"
	"github.com/hitoshi/shifter/internal/repository"
)

type mockSettingRepo struct {
	getFn    func(ctx context.Context, key string) (string, bool, error)
	upsertFn func(ctx context.Context, key, value string) error
}

func (m *mockSettingRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return "", false, nil
}

func (m *mockSettingRepo) Upsert(ctx context.Context, key, value string) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, key, value)
	}
	return nil
}

var _ repository.SettingRepository = (*mockSettingRepo)(nil)

func TestPerimeterGet_NotConfigured(t *testing.T) {
	h := NewPerimeterHandler(&mockSettingRepo{})

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/perimeter", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "null\n" {
		t.Errorf("body = %q, want null", got)
	}
}

func TestPerimeterGet_NormalizesLegacyFields(t *testing.T) {
	repo := &mockSettingRepo{
		getFn: func(_ context.Context, _ string) (string, bool, error) {
			// 旧形式 lat/lng/radiusMeters で保存されている値
			return `{"lat": 35.0, "lng": 139.0, "radiusMeters": 150}`, true, nil
		},
	}
	h := NewPerimeterHandler(repo)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/perimeter", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var p model.Perimeter
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if p.Latitude != 35.0 || p.Longitude != 139.0 || p.Radius != 150 {
		t.Errorf("perimeter = %+v, want normalized 35.0/139.0/150", p)
	}
}

func TestPerimeterGet_MalformedReturnsNull(t *testing.T) {
	repo := &mockSettingRepo{
		getFn: func(_ context.Context, _ string) (string, bool, error) {
			return `{broken`, true, nil
		},
	}
	h := NewPerimeterHandler(repo)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/perimeter", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "null\n" {
		t.Errorf("body = %q, want null", got)
	}
}

func TestPerimeterUpdate(t *testing.T) {
	var savedKey, savedValue string
	repo := &mockSettingRepo{
		upsertFn: func(_ context.Context, key, value string) error {
			savedKey, savedValue = key, value
			return nil
		},
	}
	h := NewPerimeterHandler(repo)

	manager := employeeActor()
	manager.Roles = []string{"manager"}
	body := `{"latitude": 35.0, "longitude": 139.0, "radius": 100}`
	rec := httptest.NewRecorder()
	h.Update(rec, requestWithActor(http.MethodPost, "/api/perimeter", body, manager))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if savedKey != repository.PerimeterKey {
		t.Errorf("key = %q, want %q", savedKey, repository.PerimeterKey)
	}

	// 保存形式は常に正規形
	var saved model.Perimeter
	if err := json.Unmarshal([]byte(savedValue), &saved); err != nil {
		t.Fatalf("saved value is not canonical JSON: %v", err)
	}
	if saved.Radius != 100 {
		t.Errorf("saved radius = %v, want 100", saved.Radius)
	}
}

func TestPerimeterUpdate_RadiusMetersAlias(t *testing.T) {
	var savedValue string
	repo := &mockSettingRepo{
		upsertFn: func(_ context.Context, _, value string) error {
			savedValue = value
			return nil
		},
	}
	h := NewPerimeterHandler(repo)

	manager := employeeActor()
	manager.Roles = []string{"manager"}
	body := `{"latitude": 35.0, "longitude": 139.0, "radiusMeters": 250}`
	rec := httptest.NewRecorder()
	h.Update(rec, requestWithActor(http.MethodPost, "/api/perimeter", body, manager))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var saved model.Perimeter
	json.Unmarshal([]byte(savedValue), &saved)
	if saved.Radius != 250 {
		t.Errorf("saved radius = %v, want 250 via radiusMeters alias", saved.Radius)
	}
}

func TestPerimeterUpdate_MissingCoordinates(t *testing.T) {
	h := NewPerimeterHandler(&mockSettingRepo{})

	manager := employeeActor()
	manager.Roles = []string{"manager"}
	rec := httptest.NewRecorder()
	h.Update(rec, requestWithActor(http.MethodPost, "/api/perimeter", `{"radius": 100}`, manager))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPerimeterUpdate_ManagerRequired(t *testing.T) {
	upserted := false
	repo := &mockSettingRepo{
		upsertFn: func(_ context.Context, _, _ string) error {
			upserted = true
			return nil
		},
	}
	h := NewPerimeterHandler(repo)

	body := `{"latitude": 35.0, "longitude": 139.0, "radius": 100}`
	rec := httptest.NewRecorder()
	h.Update(rec, requestWithActor(http.MethodPost, "/api/perimeter", body, employeeActor()))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if upserted {
		t.Error("setting should not be written without manager role")
	}
}
