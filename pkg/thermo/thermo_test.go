package thermo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `LAMMPS (2 Aug 2023)
units real
fix 3 co2 gcmc 100 100 0 0 29494 298 -8.1 0.5 mol co2 pressure 1.0
Per MPI rank memory allocation (min/avg/max) = 12.1 | 12.1 | 12.1 Mbytes
   Step          Temp          E_pair       c_nCO2     v_press
         0   298            -1520.3           0          1.0
       100   297.5          -1610.25          3          1.0 # comment
WARNING: Fix gcmc full_energy option is used
       200   301.25         -1700.5           5          1.0

       300   299            -1712.125         6          1.0
Loop time of 12.5 on 1 procs for 300 steps with 1224 atoms

Performance: 1.2 ns/day
Total wall time: 0:00:12
`

func TestParseLog(t *testing.T) {
	tab, err := ParseLog(strings.NewReader(sampleLog))
	require.NoError(t, err)

	assert.Equal(t, []string{"Step", "Temp", "E_pair", "c_nCO2", "v_press"}, tab.Columns)
	require.Equal(t, 4, tab.Len())
	assert.Equal(t, 1, tab.Skipped)
	assert.Equal(t, []float64{100, 297.5, -1610.25, 3, 1}, tab.Rows[1])

	steps, err := tab.Column("Step")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 100, 200, 300}, steps)

	mean, err := tab.Mean("c_nCO2", 1)
	require.NoError(t, err)
	assert.InDelta(t, 14.0/3, mean, 1e-12)

	std, err := tab.Std("c_nCO2", 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.7071067811865476, std, 1e-12)
}

func TestParseLogUnfinished(t *testing.T) {
	log := `   Step          Temp      c_nCO2
         0   298            0
       100   297.5          3
       200   301.2`

	tab, err := ParseLog(strings.NewReader(log))
	require.NoError(t, err)
	require.Equal(t, 2, tab.Len())
	assert.Equal(t, []float64{100, 297.5, 3}, tab.Rows[1])
}

func TestParseLogErrors(t *testing.T) {
	_, err := ParseLog(strings.NewReader("LAMMPS\nunits real\n"))
	assert.True(t, errors.Is(err, ErrNoThermo))

	bad := "Step Temp\n0 298\n100 abc\nLoop time of 1\n"
	_, err = ParseLog(strings.NewReader(bad))
	assert.True(t, errors.Is(err, ErrMalformedRow))
	assert.Contains(t, err.Error(), "line 3")

	short := "Step Temp\n0 298\n100\nLoop time of 1\n"
	_, err = ParseLog(strings.NewReader(short))
	assert.True(t, errors.Is(err, ErrMalformedRow))

	tab, err := ParseLog(strings.NewReader(sampleLog))
	require.NoError(t, err)
	_, err = tab.Column("Press")
	assert.True(t, errors.Is(err, ErrNoColumn))
	_, err = tab.Mean("Temp", 4)
	assert.Error(t, err)
}

func TestParseBlocks(t *testing.T) {
	log := sampleLog + `
run 200
   Step          Temp          Press
       300   299            1.5
       400   300            1.25
       500   300.5          1.0
Loop time of 3.1 on 1 procs for 200 steps with 1224 atoms
`

	blocks, err := ParseBlocks(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, 4, blocks[0].Len())
	assert.Equal(t, []string{"Step", "Temp", "Press"}, blocks[1].Columns)
	assert.Equal(t, 3, blocks[1].Len())

	first, err := ParseLog(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, blocks[0], first)
}

func TestReadLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.lammps")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

	tab, err := ReadLog(path)
	require.NoError(t, err)
	assert.Equal(t, 4, tab.Len())

	_, err = ReadLog(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
