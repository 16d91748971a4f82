package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Simplici0/printcost/internal/costmodel"
	"github.com/Simplici0/printcost/internal/properties"
	"github.com/Simplici0/printcost/internal/recipe"
	"github.com/Simplici0/printcost/internal/report"
)

const maxBodyBytes = 1 << 20

type server struct {
	store         *properties.Store
	model         *costmodel.Model
	apiToken      string
	defaultSource costmodel.CostSource
}

type materialPayload struct {
	Source       string   `json:"source"`
	Name         string   `json:"name"`
	UnitCost     float64  `json:"unit_cost"`
	Density      float64  `json:"density"`
	SolidLoading *float64 `json:"solid_loading,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

type processPayload struct {
	Name                    string  `json:"name"`
	UnitAreaCost            float64 `json:"unit_area_cost"`
	DepositThicknessMicrons float64 `json:"deposit_thickness_microns"`
	Notes                   string  `json:"notes,omitempty"`
}

type estimateResponse struct {
	ID     string           `json:"id"`
	Report costmodel.Report `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/materials", s.handleMaterialsList)
	r.Get("/processes", s.handleProcessesList)
	r.With(s.requireToken).Post("/materials", s.handleMaterialUpsert)
	r.With(s.requireToken).Post("/processes", s.handleProcessUpsert)
	r.Post("/estimates", s.handleEstimate)
	r.Post("/estimates/text", s.handleEstimateText)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	source := s.defaultSource
	if raw := r.URL.Query().Get("source"); raw != "" {
		parsed, err := costmodel.ParseCostSource(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		source = parsed
	}

	materials, err := s.store.ListMaterials(r.Context(), source)
	if err != nil {
		log.Error().Err(err).Msg("list materials")
		writeError(w, http.StatusInternalServerError, "failed to load materials")
		return
	}

	out := make([]materialPayload, 0, len(materials))
	for _, m := range materials {
		p := materialPayload{
			Source:   m.Source,
			Name:     m.Name,
			UnitCost: m.UnitCost,
			Density:  m.Density,
			Notes:    m.Notes,
		}
		if m.SolidLoading.Valid {
			sl := m.SolidLoading.Float64
			p.SolidLoading = &sl
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleProcessesList(w http.ResponseWriter, r *http.Request) {
	processes, err := s.store.ListProcesses(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list processes")
		writeError(w, http.StatusInternalServerError, "failed to load processes")
		return
	}

	out := make([]processPayload, 0, len(processes))
	for _, p := range processes {
		out = append(out, processPayload{
			Name:                    p.Name,
			UnitAreaCost:            p.UnitAreaCost,
			DepositThicknessMicrons: p.DepositThicknessMicrons,
			Notes:                   p.Notes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleMaterialUpsert(w http.ResponseWriter, r *http.Request) {
	var p materialPayload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := properties.Material{
		Source:   p.Source,
		Name:     p.Name,
		UnitCost: p.UnitCost,
		Density:  p.Density,
		Notes:    p.Notes,
	}
	if p.SolidLoading != nil {
		m.SolidLoading = sql.NullFloat64{Float64: *p.SolidLoading, Valid: true}
	}

	if err := s.store.UpsertMaterial(r.Context(), m); err != nil {
		s.writeFailure(w, err)
		return
	}
	log.Info().Str("source", p.Source).Str("material", p.Name).Msg("material upserted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleProcessUpsert(w http.ResponseWriter, r *http.Request) {
	var p processPayload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpsertProcess(r.Context(), properties.Process{
		Name:                    p.Name,
		UnitAreaCost:            p.UnitAreaCost,
		DepositThicknessMicrons: p.DepositThicknessMicrons,
		Notes:                   p.Notes,
	}); err != nil {
		s.writeFailure(w, err)
		return
	}
	log.Info().Str("process", p.Name).Msg("process upserted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	id, rep, ok := s.estimate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{ID: id, Report: rep})
}

func (s *server) handleEstimateText(w http.ResponseWriter, r *http.Request) {
	id, rep, ok := s.estimate(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, rep); err != nil {
		log.Error().Err(err).Str("estimate_id", id).Msg("render report")
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Estimate-ID", id)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// estimate decodes the recipe in the request body and prices it. On failure
// the error response has already been written.
func (s *server) estimate(w http.ResponseWriter, r *http.Request) (string, costmodel.Report, bool) {
	doc, err := recipe.DecodeDocument(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", costmodel.Report{}, false
	}

	rec, device, err := doc.WithDefaultSource(s.defaultSource).Build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", costmodel.Report{}, false
	}

	id := uuid.NewString()
	rep, err := s.model.Calculate(r.Context(), rec, device)
	if err != nil {
		log.Warn().Err(err).Str("estimate_id", id).Msg("estimate failed")
		s.writeFailure(w, err)
		return "", costmodel.Report{}, false
	}

	log.Info().
		Str("estimate_id", id).
		Str("method", rep.Method).
		Str("source", string(rep.Source)).
		Int("layer_count", rep.LayerCount).
		Float64("total_cost", rep.TotalCost).
		Msg("estimate calculated")
	return id, rep, true
}

func (s *server) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	if !costmodel.IsInputError(err) {
		return http.StatusInternalServerError
	}

	var ne *costmodel.NotFoundError
	var de *costmodel.DivisionError
	switch {
	case errors.As(err, &ne):
		return http.StatusNotFound
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeJSON encodes v fully before writing the status. An encoding failure
// is answered with a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
		buf.Reset()
		buf.WriteString(`{"error":"failed to encode response"}` + "\n")
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
