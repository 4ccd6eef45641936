// Package lammpstrj reads the positions of the adsorbed molecules from a
// Lammps Trajectory (dump) file.
package lammpstrj

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pedrogmartins/gcmc-project/pkg/occupancy"
)

// DefaultSpeciesColumn is the column compared to the species of the filter.
const DefaultSpeciesColumn = "element"

// Trajectory is a structure specific to a Lammps Trajectory file. It contains
// the samples kept so far, the box of the current frame and the position of
// the columns id, species, and x y z (or xu yu zu).
type Trajectory struct {
	*occupancy.Occupancy

	f *os.File

	id, species int
	cols        [3]int
	colsTot     int

	step   int
	frames int
	box    occupancy.Box

	samples []occupancy.Sample
}

// New returns an instance of the Trajectory structure for a Lammps Trajectory
// file.
func New(o *occupancy.Occupancy) *Trajectory {
	return &Trajectory{Occupancy: o}
}

// Read is part of the Method interface in the occupancy package. It reads
// every frame and keeps the atoms that pass the filter.
func (m *Trajectory) Read() error {
	var err error

	m.f, err = os.Open(m.Traj)
	if err != nil {
		return err
	}
	r := bufio.NewReaderSize(m.f, 1<<16)

	var (
		atoms = -1
		line  int
	)
	for {
		l, err := readLine(r, &line)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch {
		case strings.HasPrefix(l, "ITEM: TIMESTEP"):
			s, err := readLine(r, &line)
			if err != nil {
				return errors.Wrapf(err, "line %d: timestep", line)
			}
			m.step, err = strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return errors.Wrapf(err, "line %d: timestep", line)
			}
			m.frames++
			if m.Progress != nil {
				fmt.Fprint(m.Progress, "\r> Frame ", m.frames, " (step ", m.step, ")")
			}

		case strings.HasPrefix(l, "ITEM: NUMBER OF ATOMS"):
			s, err := readLine(r, &line)
			if err != nil {
				return errors.Wrapf(err, "line %d: number of atoms", line)
			}
			atoms, err = strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return errors.Wrapf(err, "line %d: number of atoms", line)
			}

		case strings.HasPrefix(l, "ITEM: BOX BOUNDS"):
			m.box, err = header(r, &line, strings.Contains(l, "xy"))
			if err != nil {
				return errors.Wrapf(err, "line %d: box", line)
			}

		case strings.HasPrefix(l, "ITEM: ATOMS"):
			if atoms < 0 {
				return errors.Newf("line %d: ITEM: ATOMS before ITEM: NUMBER OF ATOMS", line)
			}
			if err := m.columns(l); err != nil {
				return errors.Wrapf(err, "line %d", line)
			}
			if err := m.frame(r, &line, atoms); err != nil {
				return err
			}
			atoms = -1
		}
	}

	if m.Progress != nil {
		fmt.Fprint(m.Progress, "\033[2K\033[1G")
	}
	return nil
}

// frame reads the atoms of one frame.
func (m *Trajectory) frame(r *bufio.Reader, line *int, atoms int) error {
	f := m.Filter
	skip := f.MaxStep > 0 && m.step >= f.MaxStep

	for a := 0; a < atoms; a++ {
		l, err := readLine(r, line)
		if err != nil {
			return errors.Wrapf(err, "line %d: atom %d/%d", *line, a+1, atoms)
		}
		if skip {
			continue
		}

		fields := strings.Fields(l)
		if len(fields) != m.colsTot {
			return errors.Newf("line %d: number of columns don't match", *line)
		}

		id, err := strconv.Atoi(fields[m.id])
		if err != nil {
			return errors.Wrapf(err, "line %d: id", *line)
		}
		var species string
		if m.species >= 0 {
			species = fields[m.species]
		}
		if !f.Accept(m.step, id, species) {
			continue
		}

		var xyz [3]float64
		for k := 0; k < 3; k++ {
			xyz[k], err = strconv.ParseFloat(fields[m.cols[k]], 64)
			if err != nil {
				return errors.Wrapf(err, "line %d", *line)
			}
		}
		if m.Wrap {
			xyz = m.box.Wrap(xyz)
		}

		m.samples = append(m.samples, occupancy.Sample{Step: m.step, X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}

	return nil
}

// columns finds the position of the columns from the line ITEM: ATOMS.
func (m *Trajectory) columns(l string) error {
	fields := strings.Fields(l)
	if len(fields) <= 2 {
		return errors.New("not enough columns")
	}
	fields = fields[2:] // Omission of ITEM: ATOMS
	m.colsTot = len(fields)

	speciesCol := m.Filter.SpeciesColumn
	if speciesCol == "" {
		speciesCol = DefaultSpeciesColumn
	}

	m.id, m.species = -1, -1
	wrapped, unwrapped := [3]int{-1, -1, -1}, [3]int{-1, -1, -1}
	for k, v := range fields {
		switch v {
		case "id":
			m.id = k
		case speciesCol:
			m.species = k
		case "x", "y", "z":
			wrapped[v[0]-'x'] = k
		case "xu", "yu", "zu":
			unwrapped[v[0]-'x'] = k
		}
	}

	if m.id < 0 {
		return errors.New("cannot find the column id")
	}
	if m.species < 0 && m.Filter.Species != "" {
		return errors.Newf("cannot find the column %s", speciesCol)
	}

	switch {
	case wrapped[0] >= 0 && wrapped[1] >= 0 && wrapped[2] >= 0:
		m.cols = wrapped
	case unwrapped[0] >= 0 && unwrapped[1] >= 0 && unwrapped[2] >= 0:
		m.cols = unwrapped
	default:
		return errors.New("cannot find the columns x y, and z (or xu yu, and zu)")
	}

	return nil
}

// Samples is part of the Method interface in the occupancy package.
func (m *Trajectory) Samples() []occupancy.Sample {
	return m.samples
}

// Box is part of the Method interface in the occupancy package. It returns the
// box of the last frame.
func (m *Trajectory) Box() occupancy.Box {
	return m.box
}

// Frames returns the number of frames read.
func (m *Trajectory) Frames() int {
	return m.frames
}

// End closes the file opened.
func (m *Trajectory) End() error {
	if m.f == nil {
		return nil
	}
	err := m.f.Close()
	m.f = nil
	return err
}

// header reads the three lines of the bounds of the box. For triclinic boxes,
// the bounds are converted back to the edges of the parallelepiped.
func header(r *bufio.Reader, line *int, triclinic bool) (box occupancy.Box, err error) {
	var bounds [3][2]float64

	for k := 0; k < 3; k++ {
		var l string
		l, err = readLine(r, line)
		if err != nil {
			return
		}

		fields := strings.Fields(l)
		if len(fields) != 2 && !(triclinic && len(fields) == 3) {
			err = errors.New("unable to get the size of the box")
			return
		}

		for n := 0; n < len(fields); n++ {
			var v float64
			v, err = strconv.ParseFloat(fields[n], 64)
			if err != nil {
				return
			}
			if n < 2 {
				bounds[k][n] = v
			} else {
				box.Tilt[k] = v
			}
		}
	}

	for k := 0; k < 3; k++ {
		box.Lo[k], box.Hi[k] = bounds[k][0], bounds[k][1]
	}
	if triclinic {
		// Bounds() adds the tilt extent back.
		xy, xz, yz := box.Tilt[0], box.Tilt[1], box.Tilt[2]
		box.Lo[0] -= min(0, xy, xz, xy+xz)
		box.Hi[0] -= max(0, xy, xz, xy+xz)
		box.Lo[1] -= min(0, yz)
		box.Hi[1] -= max(0, yz)
	}

	return
}

// readLine reads ONE line without its line ending and increments n.
func readLine(r *bufio.Reader, n *int) (string, error) {
	l, err := r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || l == "") {
		return "", err
	}
	*n++
	return strings.TrimRight(l, "\r\n"), nil
}
