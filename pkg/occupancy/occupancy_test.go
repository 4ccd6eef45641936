package occupancy

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedrogmartins/gcmc-project/pkg/thermo/colfile"
)

type fake struct {
	samples []Sample
	box     Box
	err     error
	ended   bool
}

func (f *fake) Read() error       { return f.err }
func (f *fake) Samples() []Sample { return f.samples }
func (f *fake) Box() Box          { return f.box }
func (f *fake) End() error        { f.ended = true; return nil }

func TestFilterAccept(t *testing.T) {
	f := Filter{MaxStep: 1000, MinID: 10, Species: "C"}
	assert.True(t, f.Accept(0, 11, "C"))
	assert.False(t, f.Accept(1000, 11, "C"))
	assert.False(t, f.Accept(0, 10, "C"))
	assert.False(t, f.Accept(0, 11, "O"))

	assert.True(t, Filter{}.Accept(1e9, 1, "O"))
}

func TestPerformWrite(t *testing.T) {
	dir := t.TempDir()
	m := &fake{
		samples: []Sample{{X: 1, Y: 1}, {X: 1.2, Y: 1.1}, {X: 8, Y: 9}, {X: 12, Y: 1}},
		box:     Box{Hi: [3]float64{10, 10, 10}},
	}
	o := &Occupancy{
		Method:   m,
		Traj:     "fake",
		Out:      filepath.Join(dir, "occ.png"),
		Table:    filepath.Join(dir, "occ.tab"),
		Bins:     10,
		BoxRange: true,
		Plot: PlotOptions{
			Title:      "CO2 at 1 bar",
			Background: color.RGBA{R: 0x30, B: 0x40, A: 255},
			Lines:      []Line{{Slope: 1.732, X0: 0, Y0: 0}},
			XMin:       0, XMax: 10,
		},
	}

	require.NoError(t, o.Perform())
	assert.True(t, m.ended)
	assert.Equal(t, 4, o.Selected)
	assert.Equal(t, 3, o.Hist.Total, "the sample outside the box is dropped")
	assert.Equal(t, 2.0, o.Hist.Counts.At(1, 1))

	require.NoError(t, o.Write())
	st, err := os.Stat(o.Out)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(0))

	tab, err := colfile.Read(o.Table)
	require.NoError(t, err)
	assert.Equal(t, 100, tab.Len())
	counts, err := tab.Column("count")
	require.NoError(t, err)
	var total float64
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 3.0, total)
}

func TestPerformErrors(t *testing.T) {
	m := &fake{}
	o := &Occupancy{Method: m, Traj: "empty", Bins: 10}
	err := o.Perform()
	assert.True(t, errors.Is(err, ErrNoSamples))
	assert.True(t, m.ended)
	assert.Error(t, o.Write())

	m = &fake{err: errors.New("boom")}
	o = &Occupancy{Method: m, Bins: 10}
	assert.EqualError(t, o.Perform(), "boom")
	assert.True(t, m.ended)
}

func TestPressureFile(t *testing.T) {
	const pattern = "traj_{pressure}bar.lammpstrj"
	assert.Equal(t, "traj_1bar.lammpstrj", PressureFile(pattern, 1))
	assert.Equal(t, "traj_0.001bar.lammpstrj", PressureFile(pattern, 0.001))
	assert.Equal(t, "traj_17.7827941bar.lammpstrj", PressureFile(pattern, 17.7827941))
	assert.Equal(t, "static.lammpstrj", PressureFile("static.lammpstrj", 1))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#300040")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x30, G: 0, B: 0x40, A: 255}, c)

	_, err = ParseColor("purple")
	assert.Error(t, err)
}

func TestBoxWrap(t *testing.T) {
	b := Box{Hi: [3]float64{10, 10, 10}}
	w := b.Wrap([3]float64{12, -1, 5})
	assert.InDelta(t, 2, w[0], 1e-9)
	assert.InDelta(t, 9, w[1], 1e-9)
	assert.InDelta(t, 5, w[2], 1e-9)

	tri := Box{Hi: [3]float64{10, 10, 10}, Tilt: [3]float64{2, 0, 0}}
	w = tri.Wrap([3]float64{11, 1, 0})
	assert.InDelta(t, 1, w[0], 1e-9)
	assert.InDelta(t, 1, w[1], 1e-9)

	lo, hi := tri.Bounds()
	assert.Equal(t, [3]float64{0, 0, 0}, lo)
	assert.Equal(t, [3]float64{12, 10, 10}, hi)
}

func TestCountTicks(t *testing.T) {
	var labels []string
	for _, tk := range countTicks(0.8, 650) {
		labels = append(labels, tk.Label)
	}
	assert.Equal(t, []string{"0.8", "1", "10", "100", "650"}, labels)
}
