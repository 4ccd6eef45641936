package lammpstrj

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedrogmartins/gcmc-project/pkg/occupancy"
)

// Two framework atoms (ids 1 and 2) and a CO2 molecule that appears in the
// second frame.
const dump = `ITEM: TIMESTEP
0
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0.0 10.0
0.0 10.0
0.0 20.0
ITEM: ATOMS id type element x y z
1 1 Zn 1.0 1.0 1.0
2 2 O 2.0 2.0 2.0
ITEM: TIMESTEP
1000
ITEM: NUMBER OF ATOMS
5
ITEM: BOX BOUNDS pp pp pp
0.0 10.0
0.0 10.0
0.0 20.0
ITEM: ATOMS id type element x y z
1 1 Zn 1.0 1.0 1.0
2 2 O 2.0 2.0 2.0
3 3 C 5.0 6.0 7.0
4 4 O 6.1 6.0 7.0
5 4 O 3.9 6.0 7.0
ITEM: TIMESTEP
2000
ITEM: NUMBER OF ATOMS
3
ITEM: BOX BOUNDS pp pp pp
0.0 10.0
0.0 10.0
0.0 20.0
ITEM: ATOMS id type element x y z
1 1 Zn 1.0 1.0 1.0
2 2 O 2.0 2.0 2.0
3 3 C 5.5 6.5 7.0
`

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traj.lammpstrj")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func read(t *testing.T, o *occupancy.Occupancy) *Trajectory {
	t.Helper()
	m := New(o)
	o.Method = m
	require.NoError(t, m.Read())
	require.NoError(t, m.End())
	return m
}

func TestRead(t *testing.T) {
	var progress bytes.Buffer
	o := &occupancy.Occupancy{
		Traj:     write(t, dump),
		Filter:   occupancy.Filter{MinID: 2, Species: "C"},
		Progress: &progress,
	}
	m := read(t, o)

	assert.Equal(t, 3, m.Frames())
	assert.Equal(t, []occupancy.Sample{
		{Step: 1000, X: 5, Y: 6, Z: 7},
		{Step: 2000, X: 5.5, Y: 6.5, Z: 7},
	}, m.Samples())
	assert.Equal(t, occupancy.Box{Hi: [3]float64{10, 10, 20}}, m.Box())
	assert.Contains(t, progress.String(), "> Frame 3 (step 2000)")
}

func TestReadFilter(t *testing.T) {
	o := &occupancy.Occupancy{
		Traj:   write(t, dump),
		Filter: occupancy.Filter{MaxStep: 2000, MinID: 2},
	}
	m := read(t, o)

	// Every atom of the molecule, without the last frame.
	require.Len(t, m.Samples(), 3)
	for _, s := range m.Samples() {
		assert.Equal(t, 1000, s.Step)
	}
}

func TestReadUnwrapped(t *testing.T) {
	const traj = `ITEM: TIMESTEP
0
ITEM: NUMBER OF ATOMS
1
ITEM: BOX BOUNDS xy xz yz pp pp pp
0.0 12.0 2.0
0.0 10.0 0.0
0.0 10.0 0.0
ITEM: ATOMS id xu yu zu
1 11.0 1.0 -3.0
`
	o := &occupancy.Occupancy{Traj: write(t, traj), Wrap: true}
	m := read(t, o)

	box := m.Box()
	assert.Equal(t, [3]float64{10, 10, 10}, box.Hi)
	assert.Equal(t, [3]float64{2, 0, 0}, box.Tilt)

	require.Len(t, m.Samples(), 1)
	s := m.Samples()[0]
	assert.InDelta(t, 1, s.X, 1e-9)
	assert.InDelta(t, 1, s.Y, 1e-9)
	assert.InDelta(t, 7, s.Z, 1e-9)
}

func TestReadErrors(t *testing.T) {
	for name, traj := range map[string]string{
		"no number of atoms": "ITEM: TIMESTEP\n0\nITEM: ATOMS id x y z\n1 0 0 0\n",
		"no id":              "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n1\nITEM: ATOMS x y z\n0 0 0\n",
		"no coordinates":     "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n1\nITEM: ATOMS id xs ys zs\n1 0 0 0\n",
		"columns":            "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n1\nITEM: ATOMS id x y z\n1 0 0\n",
		"truncated":          "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n2\nITEM: ATOMS id x y z\n1 0 0 0\n",
		"box":                "ITEM: TIMESTEP\n0\nITEM: BOX BOUNDS pp pp pp\n0 10\n0\n0 10\n",
		"timestep":           "ITEM: TIMESTEP\nzero\n",
	} {
		o := &occupancy.Occupancy{Traj: write(t, traj)}
		m := New(o)
		assert.Error(t, m.Read(), name)
		assert.NoError(t, m.End(), name)
	}

	o := &occupancy.Occupancy{Traj: write(t, dump), Filter: occupancy.Filter{Species: "C", SpeciesColumn: "name"}}
	assert.Error(t, New(o).Read())

	o = &occupancy.Occupancy{Traj: filepath.Join(t.TempDir(), "missing")}
	m := New(o)
	assert.Error(t, m.Read())
	assert.NoError(t, m.End())
}

func TestPerform(t *testing.T) {
	o := &occupancy.Occupancy{
		Traj:     write(t, dump),
		Filter:   occupancy.Filter{MinID: 2},
		Bins:     10,
		BoxRange: true,
	}
	o.Method = New(o)

	require.NoError(t, o.Perform())
	assert.Equal(t, 4, o.Selected)
	assert.Equal(t, 4, o.Hist.Total)
	assert.Equal(t, 2.0, o.Hist.Counts.At(5, 6))
	assert.Equal(t, 1.0, o.Hist.Counts.At(6, 6))
	assert.Equal(t, 1.0, o.Hist.Counts.At(3, 6))
}
