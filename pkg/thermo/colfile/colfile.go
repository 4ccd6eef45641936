// Package colfile stores thermo tables in compressed files. The format is
// chosen from the extension of the file:
//
//	.tab     zstd stream of a column-major binary table
//	.csv.gz  gzip stream of a CSV file with a header row
package colfile

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/pedrogmartins/gcmc-project/pkg/thermo"
)

// Accepted formats and their extension.
const (
	FormatTab = "tab"
	FormatCSV = "csv"

	ExtTab = ".tab"
	ExtCSV = ".csv.gz"
)

// ErrFormat is returned for unknown extensions and corrupted files.
var ErrFormat = errors.New("unsupported table format")

var magic = [8]byte{'G', 'C', 'M', 'C', 'T', 'A', 'B', 1}

// Ext returns the extension of format.
func Ext(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatTab, "":
		return ExtTab, nil
	case FormatCSV:
		return ExtCSV, nil
	}
	return "", errors.Wrapf(ErrFormat, "%q", format)
}

func formatOf(path string) (string, error) {
	switch {
	case strings.HasSuffix(path, ExtTab):
		return FormatTab, nil
	case strings.HasSuffix(path, ExtCSV):
		return FormatCSV, nil
	}
	return "", errors.Wrapf(ErrFormat, "extension of %s", path)
}

// Write writes t into path.
func Write(path string, t *thermo.Table) (err error) {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	switch format {
	case FormatTab:
		err = writeTab(w, t)
	case FormatCSV:
		err = writeCSV(w, t)
	}
	if err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return w.Flush()
}

// Read reads the table stored in path.
func Read(path string) (*thermo.Table, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var t *thermo.Table
	switch format {
	case FormatTab:
		t, err = readTab(r)
	case FormatCSV:
		t, err = readCSV(r)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

// writeTab writes the magic, the number of columns and rows, the names of the
// columns and then each column.
func writeTab(w io.Writer, t *thermo.Table) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return err
	}

	var buf []byte
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Columns)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(t.Rows)))
	for _, c := range t.Columns {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(c)))
		buf = append(buf, c...)
	}
	if _, err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}

	col := make([]byte, 8*len(t.Rows))
	for k := range t.Columns {
		for i, r := range t.Rows {
			binary.LittleEndian.PutUint64(col[8*i:], math.Float64bits(r[k]))
		}
		if _, err := enc.Write(col); err != nil {
			enc.Close()
			return err
		}
	}

	return enc.Close()
}

func readTab(r io.Reader) (*thermo.Table, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var head [20]byte
	if _, err := io.ReadFull(dec, head[:]); err != nil {
		return nil, errors.Wrap(ErrFormat, err.Error())
	}
	if [8]byte(head[:8]) != magic {
		return nil, errors.Wrap(ErrFormat, "bad magic")
	}
	ncols := int(binary.LittleEndian.Uint32(head[8:]))
	nrows := int(binary.LittleEndian.Uint64(head[12:]))

	t := &thermo.Table{Columns: make([]string, ncols), Rows: make([][]float64, nrows)}
	var l [2]byte
	for k := range t.Columns {
		if _, err := io.ReadFull(dec, l[:]); err != nil {
			return nil, errors.Wrap(ErrFormat, err.Error())
		}
		name := make([]byte, binary.LittleEndian.Uint16(l[:]))
		if _, err := io.ReadFull(dec, name); err != nil {
			return nil, errors.Wrap(ErrFormat, err.Error())
		}
		t.Columns[k] = string(name)
	}

	for i := range t.Rows {
		t.Rows[i] = make([]float64, ncols)
	}
	col := make([]byte, 8*nrows)
	for k := 0; k < ncols; k++ {
		if _, err := io.ReadFull(dec, col); err != nil {
			return nil, errors.Wrap(ErrFormat, err.Error())
		}
		for i := range t.Rows {
			t.Rows[i][k] = math.Float64frombits(binary.LittleEndian.Uint64(col[8*i:]))
		}
	}

	return t, nil
}

func writeCSV(w io.Writer, t *thermo.Table) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(gz)
	if err := cw.Write(t.Columns); err != nil {
		gz.Close()
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for k, v := range r {
			rec[k] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			gz.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		gz.Close()
		return err
	}

	return gz.Close()
}

func readCSV(r io.Reader) (*thermo.Table, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(ErrFormat, err.Error())
	}
	defer gz.Close()

	cr := csv.NewReader(gz)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(ErrFormat, "missing header")
	}

	t := &thermo.Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]float64, len(rec))
		for k, v := range rec {
			row[k], err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "row %d: %q", len(t.Rows)+1, v)
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}
