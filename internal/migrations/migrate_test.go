package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/printcost/internal/db"
)

func TestUpCreatesPropertyTablesAndIsRepeatable(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "migrations.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Up(database.DB))
	require.NoError(t, Up(database.DB))

	var tables []string
	require.NoError(t, database.Select(&tables, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name IN ('materials', 'processes')
		ORDER BY name
	`))
	assert.Equal(t, []string{"materials", "processes"}, tables)
}

func TestMaterialsRejectOutOfRangeSolidLoading(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "migrations.db"))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, Up(database.DB))

	_, err = database.Exec(`
		INSERT INTO materials (cost_source, name, unit_cost, density, solid_loading)
		VALUES ('cheap', 'X', 1, 1, 1.2)
	`)
	assert.Error(t, err)
}
