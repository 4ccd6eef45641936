// Package extract walks a directory of LAMMPS simulations and stores the
// thermo output of each of them in the results directory.
package extract

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pedrogmartins/gcmc-project/pkg/logger"
	"github.com/pedrogmartins/gcmc-project/pkg/thermo"
	"github.com/pedrogmartins/gcmc-project/pkg/thermo/colfile"
)

// LogName is the name of the log file searched in each simulation directory.
const LogName = "log.lammps"

// Extract contains the parameters of an extraction. Root is the directory
// containing one sub-directory per simulation.
type Extract struct {
	Root string

	// Results is the output directory. If empty, Root/../results is used.
	Results string

	// Format is the format of the output files (see colfile).
	Format string

	// Run is the index of the thermo block to extract. Negative values count
	// from the last block.
	Run int

	Log *zap.SugaredLogger

	// Written are the files written by Perform.
	Written []string
}

// Perform extracts every simulation of Root. Simulations without a log file
// are ignored and simulations whose log cannot be parsed are skipped with a
// warning.
func (e *Extract) Perform() error {
	log := logger.Nop(e.Log)

	ext, err := colfile.Ext(e.Format)
	if err != nil {
		return err
	}

	out := e.Results
	if out == "" {
		out = filepath.Join(e.Root, "..", "results")
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(e.Root)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, d := range entries {
		if !d.IsDir() {
			continue
		}

		path := filepath.Join(e.Root, d.Name(), LogName)
		if _, err := os.Stat(path); err != nil {
			log.Debugw("no log file", "dir", d.Name())
			continue
		}
		log.Infow("reading", "log", path)

		t, err := e.table(path)
		if err != nil {
			log.Warnw("skipping simulation", "dir", d.Name(), "error", err)
			continue
		}
		if t.Skipped > 0 {
			log.Debugw("warnings inside thermo block", "dir", d.Name(), "lines", t.Skipped)
		}

		dst := filepath.Join(out, d.Name()+ext)
		if err := colfile.Write(dst, t); err != nil {
			return errors.Wrapf(err, "simulation %s", d.Name())
		}
		log.Infow("written", "file", dst, "rows", t.Len(), "columns", len(t.Columns))
		e.Written = append(e.Written, dst)
	}

	return nil
}

// table returns the selected thermo block of the log in path.
func (e *Extract) table(path string) (*thermo.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if e.Run == 0 {
		return thermo.ParseLog(f)
	}

	blocks, err := thermo.ParseBlocks(f)
	if err != nil {
		return nil, err
	}
	i := e.Run
	if i < 0 {
		i += len(blocks)
	}
	if i < 0 || i >= len(blocks) {
		return nil, errors.Newf("run %d out of range (%d thermo blocks)", e.Run, len(blocks))
	}
	return blocks[i], nil
}
