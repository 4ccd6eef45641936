package cfg

import (
	"github.com/cockroachdb/errors"

	"github.com/pedrogmartins/gcmc-project/pkg/extract"
	"github.com/pedrogmartins/gcmc-project/pkg/thermo/colfile"
)

// ExtractCfg is the section of the thermo extraction.
type ExtractCfg struct {
	// Root is the directory containing one directory per simulation
	Root string `yaml:"root"`

	// Results is the output directory. Empty means Root/../results
	Results string `yaml:"results"`

	// Format is tab or csv
	Format string `yaml:"format"`

	// Run is the thermo block to extract (0 is the first one, -1 the last
	// one)
	Run int `yaml:"run"`
}

func defaultExtract() ExtractCfg {
	return ExtractCfg{Format: colfile.FormatTab}
}

// Check checks the section.
func (c *ExtractCfg) Check() error {
	_, err := colfile.Ext(c.Format)
	return err
}

// RunExtract extracts the thermo tables of every simulation of Root. It returns
// the files written.
func (c *Cfg) RunExtract() ([]string, error) {
	e := c.Extract
	if e.Root == "" {
		return nil, errors.New("the simulation directory must be specified")
	}

	ex := &extract.Extract{Root: e.Root, Results: e.Results, Format: e.Format, Run: e.Run, Log: c.Log}
	if err := ex.Perform(); err != nil {
		return ex.Written, err
	}
	return ex.Written, nil
}
