package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/printcost/internal/costmodel"
	"github.com/Simplici0/printcost/internal/db"
	"github.com/Simplici0/printcost/internal/migrations"
	"github.com/Simplici0/printcost/internal/properties"
	"github.com/Simplici0/printcost/internal/seed"
)

const testToken = "s3cret"

const collectorRecipe = `
device:
  length: 1
  width: 1
  method: screen
  power_performance: 1
  energy_performance: 2
layers:
  - key: current collector
    thickness: 10
    ingredients:
      - [AG, 1, p]
`

func newTestServer(t *testing.T, token string) http.Handler {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	require.NoError(t, migrations.Up(database.DB))
	_, err = seed.Run(database)
	require.NoError(t, err)

	store := properties.NewStore(database)
	srv := &server{
		store:         store,
		model:         costmodel.New(store, costmodel.DefaultPolicy()),
		apiToken:      token,
		defaultSource: costmodel.CheapMaterials,
	}
	return srv.routes()
}

func do(t *testing.T, h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, "")

	rec := do(t, h, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMaterialsListBySource(t *testing.T) {
	h := newTestServer(t, "")

	rec := do(t, h, http.MethodGet, "/materials?source=reliable", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []materialPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 10)
	for _, m := range got {
		assert.Equal(t, "reliable", m.Source)
		if m.Name == "AC" {
			assert.InDelta(t, 0.03, m.UnitCost, 1e-12)
		}
		if m.Name == "NMP" {
			require.NotNil(t, m.SolidLoading)
			assert.InDelta(t, 0.05, *m.SolidLoading, 1e-12)
		}
	}

	rec = do(t, h, http.MethodGet, "/materials?source=bulk", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessesList(t *testing.T) {
	h := newTestServer(t, "")

	rec := do(t, h, http.MethodGet, "/processes", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []processPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 4)
	assert.Equal(t, "blade coating", got[0].Name)
}

func TestEstimateJSON(t *testing.T) {
	h := newTestServer(t, "")

	rec := do(t, h, http.MethodPost, "/estimates", collectorRecipe, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got estimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	_, err := uuid.Parse(got.ID)
	assert.NoError(t, err)

	// 10 mL of silver at 10.49 g/mL and $0.9/g, plus one screen pass at $1/m².
	assert.Equal(t, costmodel.CheapMaterials, got.Report.Source)
	assert.Equal(t, 1, got.Report.LayerCount)
	assert.InDelta(t, 94.41, got.Report.MaterialCost, 1e-9)
	assert.InDelta(t, 1.0, got.Report.ManufacturingCost, 1e-9)
	assert.InDelta(t, 95.41, got.Report.TotalCost, 1e-9)
	assert.InDelta(t, 95.41, got.Report.CostPerPower, 1e-9)
	assert.InDelta(t, 47.705, got.Report.CostPerEnergy, 1e-9)
}

func TestEstimateText(t *testing.T) {
	h := newTestServer(t, "")

	rec := do(t, h, http.MethodPost, "/estimates/text", collectorRecipe, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Estimate-ID"))
	body := rec.Body.String()
	assert.Contains(t, body, "MANUFACTURING COST to print 1 layers with screen = $1.0000")
	assert.Contains(t, body, "TOTAL COST = $95.4100 for 1 square meter(s)")
}

func TestEstimateErrorStatuses(t *testing.T) {
	h := newTestServer(t, "")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "empty body", body: "", status: http.StatusBadRequest},
		{name: "malformed", body: "device: [", status: http.StatusBadRequest},
		{
			name:   "unknown material",
			body:   strings.Replace(collectorRecipe, "[AG, 1, p]", "[UNOBTAINIUM, 1, p]", 1),
			status: http.StatusNotFound,
		},
		{
			name:   "unknown process",
			body:   strings.Replace(collectorRecipe, "method: screen", "method: gravure", 1),
			status: http.StatusNotFound,
		},
		{
			name:   "NaN mass ratio",
			body:   strings.Replace(collectorRecipe, "[AG, 1, p]", "[AG, .nan, p]", 1),
			status: http.StatusBadRequest,
		},
		{
			name: "infinite length and NaN power",
			body: strings.NewReplacer(
				"length: 1", "length: .inf",
				"power_performance: 1", "power_performance: .nan",
			).Replace(collectorRecipe),
			status: http.StatusBadRequest,
		},
		{
			name:   "NaN power",
			body:   strings.Replace(collectorRecipe, "power_performance: 1", "power_performance: .nan", 1),
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "infinite energy",
			body:   strings.Replace(collectorRecipe, "energy_performance: 2", "energy_performance: .inf", 1),
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "zero power",
			body:   strings.Replace(collectorRecipe, "power_performance: 1", "power_performance: 0", 1),
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/estimates", tt.body, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var got errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.NotEmpty(t, got.Error)
		})
	}
}

func TestMaterialUpsertRequiresToken(t *testing.T) {
	h := newTestServer(t, testToken)
	body := `{"source":"cheap","name":"CNT","unit_cost":2.5,"density":1.3,"solid_loading":0.2}`

	rec := do(t, h, http.MethodPost, "/materials", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = do(t, h, http.MethodPost, "/materials", body, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/materials", body, testToken)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/materials?source=cheap", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []materialPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 11)
}

func TestUpsertedPropertiesDriveEstimates(t *testing.T) {
	h := newTestServer(t, testToken)

	rec := do(t, h, http.MethodPost, "/processes", `{"name":"screen","unit_area_cost":3,"deposit_thickness_microns":25}`, testToken)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/estimates", collectorRecipe, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got estimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 3.0, got.Report.ManufacturingCost, 1e-9)
}

func TestPropertyUpsertValidation(t *testing.T) {
	h := newTestServer(t, testToken)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{name: "negative process cost", target: "/processes", body: `{"name":"screen","unit_area_cost":-1}`},
		{name: "zero density", target: "/materials", body: `{"source":"cheap","name":"X","unit_cost":1,"density":0}`},
		{name: "unknown source", target: "/materials", body: `{"source":"bulk","name":"X","unit_cost":1,"density":1}`},
		{name: "unknown field", target: "/processes", body: `{"name":"screen","speed":4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.target, tt.body, testToken)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestWritesDisabledWithoutToken(t *testing.T) {
	h := newTestServer(t, "")

	rec := do(t, h, http.MethodPost, "/processes", `{"name":"screen","unit_area_cost":3}`, "anything")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWriteJSONReportsEncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusOK, map[string]float64{"total_cost": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Error)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: &costmodel.ValidationError{Field: "x", Reason: "bad"}, want: http.StatusBadRequest},
		{err: fmt.Errorf("wrapped: %w", &costmodel.NotFoundError{Kind: "material", Name: "X"}), want: http.StatusNotFound},
		{err: &costmodel.DivisionError{Quantity: "power performance"}, want: http.StatusUnprocessableEntity},
		{err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
