// Package properties serves material and process properties from the SQLite
// property table.
package properties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Simplici0/printcost/internal/costmodel"
)

// Material is one row of the materials table.
type Material struct {
	ID           int64           `db:"id"`
	Source       string          `db:"cost_source"`
	Name         string          `db:"name"`
	UnitCost     float64         `db:"unit_cost"`
	Density      float64         `db:"density"`
	SolidLoading sql.NullFloat64 `db:"solid_loading"`
	Notes        string          `db:"notes"`
}

// Process is one row of the processes table.
type Process struct {
	ID                      int64   `db:"id"`
	Name                    string  `db:"name"`
	UnitAreaCost            float64 `db:"unit_area_cost"`
	DepositThicknessMicrons float64 `db:"deposit_thickness_microns"`
	Notes                   string  `db:"notes"`
}

// Store implements costmodel.MaterialPropertyProvider over the property table.
// The caller owns the database handle and closes it.
type Store struct {
	db *sqlx.DB
}

var _ costmodel.MaterialPropertyProvider = (*Store)(nil)

// NewStore wraps an open, migrated database.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// LookupMaterial returns the properties of name in the price table of source.
func (s *Store) LookupMaterial(ctx context.Context, source costmodel.CostSource, name string) (costmodel.MaterialProperties, error) {
	var m Material
	err := s.db.GetContext(ctx, &m, `
		SELECT id, cost_source, name, unit_cost, density, solid_loading, COALESCE(notes, '') AS notes
		FROM materials
		WHERE cost_source = ? AND name = ?
	`, string(source), name)
	if errors.Is(err, sql.ErrNoRows) {
		return costmodel.MaterialProperties{}, &costmodel.NotFoundError{Kind: "material", Name: name}
	}
	if err != nil {
		return costmodel.MaterialProperties{}, fmt.Errorf("query material %q: %w", name, err)
	}
	return m.Properties(), nil
}

// LookupProcess returns the properties of the manufacturing method name.
func (s *Store) LookupProcess(ctx context.Context, name string) (costmodel.ProcessProperties, error) {
	var p Process
	err := s.db.GetContext(ctx, &p, `
		SELECT id, name, unit_area_cost, deposit_thickness_microns, COALESCE(notes, '') AS notes
		FROM processes
		WHERE name = ?
	`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return costmodel.ProcessProperties{}, &costmodel.NotFoundError{Kind: "process", Name: name}
	}
	if err != nil {
		return costmodel.ProcessProperties{}, fmt.Errorf("query process %q: %w", name, err)
	}
	return p.Properties(), nil
}

// Properties converts the row to the cost model's view.
func (m Material) Properties() costmodel.MaterialProperties {
	props := costmodel.MaterialProperties{UnitCost: m.UnitCost, Density: m.Density}
	if m.SolidLoading.Valid {
		props.SolidLoading = m.SolidLoading.Float64
	}
	return props
}

// Properties converts the row to the cost model's view.
func (p Process) Properties() costmodel.ProcessProperties {
	return costmodel.ProcessProperties{
		UnitAreaCost:            p.UnitAreaCost,
		DepositThicknessMicrons: p.DepositThicknessMicrons,
	}
}

// ListMaterials returns the price table of source ordered by name.
func (s *Store) ListMaterials(ctx context.Context, source costmodel.CostSource) ([]Material, error) {
	materials := make([]Material, 0)
	if err := s.db.SelectContext(ctx, &materials, `
		SELECT id, cost_source, name, unit_cost, density, solid_loading, COALESCE(notes, '') AS notes
		FROM materials
		WHERE cost_source = ?
		ORDER BY name
	`, string(source)); err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	return materials, nil
}

// ListProcesses returns all manufacturing methods ordered by name.
func (s *Store) ListProcesses(ctx context.Context) ([]Process, error) {
	processes := make([]Process, 0)
	if err := s.db.SelectContext(ctx, &processes, `
		SELECT id, name, unit_area_cost, deposit_thickness_microns, COALESCE(notes, '') AS notes
		FROM processes
		ORDER BY name
	`); err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}
	return processes, nil
}

// UpsertMaterial inserts the material or replaces the values of the existing
// row with the same source and name.
func (s *Store) UpsertMaterial(ctx context.Context, m Material) error {
	if err := m.validate(); err != nil {
		return err
	}

	if _, err := s.db.NamedExecContext(ctx, `
		INSERT INTO materials (cost_source, name, unit_cost, density, solid_loading, notes)
		VALUES (:cost_source, :name, :unit_cost, :density, :solid_loading, :notes)
		ON CONFLICT (cost_source, name) DO UPDATE SET
			unit_cost = excluded.unit_cost,
			density = excluded.density,
			solid_loading = excluded.solid_loading,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP
	`, m); err != nil {
		return fmt.Errorf("upsert material %q: %w", m.Name, err)
	}
	return nil
}

// UpsertProcess inserts the process or replaces the values of the existing row.
func (s *Store) UpsertProcess(ctx context.Context, p Process) error {
	if err := p.validate(); err != nil {
		return err
	}

	if _, err := s.db.NamedExecContext(ctx, `
		INSERT INTO processes (name, unit_area_cost, deposit_thickness_microns, notes)
		VALUES (:name, :unit_area_cost, :deposit_thickness_microns, :notes)
		ON CONFLICT (name) DO UPDATE SET
			unit_area_cost = excluded.unit_area_cost,
			deposit_thickness_microns = excluded.deposit_thickness_microns,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP
	`, p); err != nil {
		return fmt.Errorf("upsert process %q: %w", p.Name, err)
	}
	return nil
}

func (m *Material) validate() error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return &costmodel.ValidationError{Field: "name", Reason: "is required"}
	}
	source, err := costmodel.ParseCostSource(m.Source)
	if err != nil {
		return err
	}
	m.Source = string(source)
	if !finite(m.UnitCost) || m.UnitCost < 0 {
		return &costmodel.ValidationError{Field: "unit_cost", Reason: "must not be negative"}
	}
	if !finite(m.Density) || m.Density <= 0 {
		return &costmodel.ValidationError{Field: "density", Reason: "must be greater than 0"}
	}
	if m.SolidLoading.Valid && !(m.SolidLoading.Float64 > 0 && m.SolidLoading.Float64 <= 1) {
		return &costmodel.ValidationError{Field: "solid_loading", Reason: "must be in (0, 1]"}
	}
	return nil
}

func (p *Process) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return &costmodel.ValidationError{Field: "name", Reason: "is required"}
	}
	if !finite(p.UnitAreaCost) || p.UnitAreaCost < 0 {
		return &costmodel.ValidationError{Field: "unit_area_cost", Reason: "must not be negative"}
	}
	if !finite(p.DepositThicknessMicrons) || p.DepositThicknessMicrons < 0 {
		return &costmodel.ValidationError{Field: "deposit_thickness_microns", Reason: "must not be negative"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
