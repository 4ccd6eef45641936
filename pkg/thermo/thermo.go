// Package thermo extracts the thermodynamic output of a LAMMPS log file into
// a table. A thermo block starts at the header line printed by the thermo
// command (it contains "Step Temp") and ends at the "Loop time of" line
// printed when the run finishes.
package thermo

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"
)

// Markers delimiting a thermo block.
const (
	TopMarker    = "Step Temp"
	BottomMarker = "Loop time of"
)

var (
	// ErrNoThermo is returned when the log doesn't contain any thermo header.
	ErrNoThermo = errors.New("no thermo header found")

	// ErrMalformedRow is returned when a row of a thermo block cannot be
	// parsed.
	ErrMalformedRow = errors.New("malformed thermo row")

	// ErrNoColumn is returned when a column cannot be found in a Table.
	ErrNoColumn = errors.New("no such column")
)

// Table is a thermo block. Rows are in the order of the log and every row has
// len(Columns) values.
type Table struct {
	Columns []string
	Rows    [][]float64

	// Skipped is the number of WARNING lines found inside the block.
	Skipped int
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the column name, or -1.
func (t *Table) Index(name string) int {
	for k, v := range t.Columns {
		if v == name {
			return k
		}
	}
	return -1
}

// Column returns a copy of the column name.
func (t *Table) Column(name string) ([]float64, error) {
	k := t.Index(name)
	if k < 0 {
		return nil, errors.Wrapf(ErrNoColumn, "%q", name)
	}

	col := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		col[i] = r[k]
	}
	return col, nil
}

// Mean returns the average of the column name once the first discard rows
// have been removed (equilibration).
func (t *Table) Mean(name string, discard int) (float64, error) {
	col, err := t.tail(name, discard)
	if err != nil {
		return 0, err
	}
	return stat.Mean(col, nil), nil
}

// Std returns the standard deviation of the column name once the first
// discard rows have been removed.
func (t *Table) Std(name string, discard int) (float64, error) {
	col, err := t.tail(name, discard)
	if err != nil {
		return 0, err
	}
	if len(col) < 2 {
		return 0, nil
	}
	return stat.StdDev(col, nil), nil
}

func (t *Table) tail(name string, discard int) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if discard < 0 || discard >= len(col) {
		return nil, errors.Newf("cannot discard %d rows out of %d", discard, len(col))
	}
	return col[discard:], nil
}

// ReadLog opens path and returns its first thermo block.
func ReadLog(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseLog(f)
}

// ParseLog returns the first thermo block of a LAMMPS log. If the block is not
// terminated by a "Loop time of" line (the run was interrupted), the last line
// of the file is considered incomplete and dropped.
func ParseLog(r io.Reader) (*Table, error) {
	blocks, err := parse(r, true)
	if err != nil {
		return nil, err
	}
	return blocks[0], nil
}

// ParseBlocks returns every thermo block of a LAMMPS log, one per run
// command.
func ParseBlocks(r io.Reader) ([]*Table, error) {
	return parse(r, false)
}

// line is a raw line of a block and its number (starting at 1) in the log.
type line struct {
	n int
	s string
}

func parse(r io.Reader, first bool) ([]*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		blocks [][]line
		cur    []line
		in     bool
		n      int
	)

	for sc.Scan() {
		n++
		s := sc.Text()

		if !in {
			if isHeader(s) {
				in = true
				cur = []line{{n, s}}
			}
			continue
		}

		if strings.Contains(s, BottomMarker) {
			blocks = append(blocks, cur)
			in = false
			if first {
				break
			}
			continue
		}
		cur = append(cur, line{n, s})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	if in {
		// The last line of an unfinished run is dropped.
		if len(cur) > 1 {
			cur = cur[:len(cur)-1]
		}
		blocks = append(blocks, cur)
	}

	if len(blocks) == 0 {
		return nil, ErrNoThermo
	}

	tables := make([]*Table, 0, len(blocks))
	for _, b := range blocks {
		t, err := table(b)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// table converts the lines of a block (header first) into a Table.
func table(b []line) (*Table, error) {
	t := &Table{Columns: strings.Fields(uncomment(b[0].s))}
	if len(t.Columns) == 0 {
		return nil, errors.Wrapf(ErrMalformedRow, "line %d: empty header", b[0].n)
	}

	for _, l := range b[1:] {
		s := uncomment(l.s)
		fields := strings.Fields(s)
		if len(fields) == 0 {
			continue
		}

		if strings.HasPrefix(fields[0], "WARNING") {
			t.Skipped++
			continue
		}

		if len(fields) != len(t.Columns) {
			return nil, errors.Wrapf(ErrMalformedRow, "line %d: %d fields (expected %d)",
				l.n, len(fields), len(t.Columns))
		}

		row := make([]float64, len(fields))
		for k, v := range fields {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedRow, "line %d: column %s: %q",
					l.n, t.Columns[k], v)
			}
			row[k] = f
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// isHeader reports whether s is a thermo header. Recent LAMMPS versions pad
// the column names, so the marker is also matched on fields.
func isHeader(s string) bool {
	if strings.Contains(s, TopMarker) {
		return true
	}
	fields := strings.Fields(s)
	return len(fields) >= 2 && fields[0] == "Step" && fields[1] == "Temp"
}

// uncomment removes everything after '#'.
func uncomment(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i]
	}
	return s
}
