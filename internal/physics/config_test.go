package physics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, mgl32.Vec3{0, -9.81, 0}, cfg.Gravity)
	assert.Equal(t, ContactAuto, cfg.Contacts.Mode)
	assert.False(t, cfg.Contacts.LayerFiltering)
}

func TestLoadConfig(t *testing.T) {
	doc := `
gravity: [0, -20, 0]
solver:
  iterations: 4
  correction_percent: 0.5
contacts:
  mode: convex
  layer_filtering: true
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, mgl32.Vec3{0, -20, 0}, cfg.Gravity)
	assert.Equal(t, 4, cfg.Solver.Iterations)
	assert.InDelta(t, 0.5, cfg.Solver.CorrectionPercent, 1e-6)
	assert.Equal(t, ContactConvex, cfg.Contacts.Mode)
	assert.True(t, cfg.Contacts.LayerFiltering)

	// untouched keys keep their defaults
	def := DefaultConfig()
	assert.Equal(t, def.Solver.PenetrationSlop, cfg.Solver.PenetrationSlop)
	assert.Equal(t, def.Narrow, cfg.Narrow)
	assert.Equal(t, def.FixedTimestep, cfg.FixedTimestep)
}

func TestLoadConfigEmptyReaderGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		invalid bool
	}{
		{"unknown key", "solver:\n  iterashuns: 3\n", false},
		{"bad type", "tree_margin: wide\n", false},
		{"negative margin", "tree_margin: -1\n", true},
		{"zero timestep", "fixed_timestep: 0\n", true},
		{"correction above one", "solver:\n  correction_percent: 1.5\n", true},
		{"zero iterations", "solver:\n  iterations: 0\n", true},
		{"zero tolerance", "narrow:\n  epa_tolerance: 0\n", true},
		{"unknown mode", "contacts:\n  mode: exact\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.doc))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NotErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	cfg, err := LoadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "physics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tree_margin: 0.25\n"), 0o644))
	cfg, err = LoadConfigFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, cfg.TreeMargin, 1e-6)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
