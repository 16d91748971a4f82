package seed

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type materialRow struct {
	source       string
	name         string
	unitCost     float64 // per gram
	density      float64 // g/mL
	solidLoading sql.NullFloat64
	notes        string
}

type processRow struct {
	name             string
	unitAreaCost     float64 // per m² per pass
	depositThickness float64 // microns
}

func loading(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

var defaultMaterials = []materialRow{
	{"cheap", "AC", 0.015, 2.0, sql.NullFloat64{}, "activated carbon"},
	{"cheap", "AB", 0.02, 1.95, sql.NullFloat64{}, "acetylene black"},
	{"cheap", "GR", 0.01, 2.2, sql.NullFloat64{}, "graphite"},
	{"cheap", "PVDFHFP", 0.08, 1.78, sql.NullFloat64{}, "binder"},
	{"cheap", "NMP", 0.003, 1.03, loading(0.05), "solvent"},
	{"cheap", "BMIMBF4", 0.5, 1.21, sql.NullFloat64{}, "ionic liquid"},
	{"cheap", "AG", 0.9, 10.49, sql.NullFloat64{}, "silver flake"},
	{"cheap", "AGINK", 0.6, 3.1, loading(0.65), "silver ink"},
	{"cheap", "ZN", 0.003, 7.14, sql.NullFloat64{}, "zinc powder"},
	{"cheap", "MNO2", 0.002, 5.03, sql.NullFloat64{}, "manganese dioxide"},

	{"reliable", "AC", 0.03, 2.0, sql.NullFloat64{}, "activated carbon"},
	{"reliable", "AB", 0.05, 1.95, sql.NullFloat64{}, "acetylene black"},
	{"reliable", "GR", 0.02, 2.2, sql.NullFloat64{}, "graphite"},
	{"reliable", "PVDFHFP", 0.15, 1.78, sql.NullFloat64{}, "binder"},
	{"reliable", "NMP", 0.0035, 1.03, loading(0.05), "solvent"},
	{"reliable", "BMIMBF4", 1.2, 1.21, sql.NullFloat64{}, "ionic liquid"},
	{"reliable", "AG", 1.1, 10.49, sql.NullFloat64{}, "silver flake"},
	{"reliable", "AGINK", 0.9, 3.1, loading(0.65), "silver ink"},
	{"reliable", "ZN", 0.0025, 7.14, sql.NullFloat64{}, "zinc powder"},
	{"reliable", "MNO2", 0.0022, 5.03, sql.NullFloat64{}, "electrolytic manganese dioxide"},
}

var defaultProcesses = []processRow{
	{"flexographic", 0.5, 10},
	{"screen", 1.0, 25},
	{"blade coating", 0.8, 50},
	{"inkjet", 2.5, 2},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run inserts the default property table in an idempotent way.
// Existing rows are never modified.
func Run(db *sqlx.DB) (Stats, error) {
	tx, err := db.Beginx()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	for _, m := range defaultMaterials {
		if err := ensureMaterial(tx, m, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, p := range defaultProcesses {
		if err := ensureProcess(tx, p, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureMaterial(tx *sqlx.Tx, m materialRow, stats *Stats) error {
	var exists bool
	if err := tx.Get(&exists, `SELECT EXISTS(SELECT 1 FROM materials WHERE cost_source = ? AND name = ? LIMIT 1)`, m.source, m.name); err != nil {
		return fmt.Errorf("check material %s/%s existence: %w", m.source, m.name, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO materials (cost_source, name, unit_cost, density, solid_loading, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.source, m.name, m.unitCost, m.density, m.solidLoading, m.notes); err != nil {
		return fmt.Errorf("insert material %s/%s: %w", m.source, m.name, err)
	}
	stats.Inserts++
	return nil
}

func ensureProcess(tx *sqlx.Tx, p processRow, stats *Stats) error {
	var exists bool
	if err := tx.Get(&exists, `SELECT EXISTS(SELECT 1 FROM processes WHERE name = ? LIMIT 1)`, p.name); err != nil {
		return fmt.Errorf("check process %s existence: %w", p.name, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO processes (name, unit_area_cost, deposit_thickness_microns)
		VALUES (?, ?, ?)
	`, p.name, p.unitAreaCost, p.depositThickness); err != nil {
		return fmt.Errorf("insert process %s: %w", p.name, err)
	}
	stats.Inserts++
	return nil
}
