// Package cfg decodes the configuration file of the commands and runs the
// extraction, the isotherm fit and the occupancy histograms.
package cfg

import (
	"bufio"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Type is the type of the trajectory
type Type string

// Here are the accepted types. Lammpstrj is a Lammps Trajectory file.
var (
	TLammpstrj Type = "lammpstrj"
)

// Cfg is a structure containing the parameters specified in the configuration
// file. It can be instanced through the New method or by "hand" (see Default).
// If it is instanced by hand, please use the Check method to check if the Cfg
// meets the requirements.
type Cfg struct {
	Extract   ExtractCfg   `yaml:"extract"`
	Isotherm  IsothermCfg  `yaml:"isotherm"`
	Occupancy OccupancyCfg `yaml:"occupancy"`

	Log *zap.SugaredLogger `yaml:"-"`

	// Stdout receives the fitted parameters. If nil, os.Stdout is used.
	Stdout io.Writer `yaml:"-"`

	// Progress receives the progress of the trajectory readers.
	Progress io.Writer `yaml:"-"`
}

// Default returns the configuration of the reference study: CO2 in a
// Mg-MOF-274 model at 298, 313 and 323 K. The isotherm datasets are empty.
func Default() *Cfg {
	return &Cfg{
		Extract:   defaultExtract(),
		Isotherm:  defaultIsotherm(),
		Occupancy: defaultOccupancy(),
	}
}

// New opens and decodes the specified configuration file onto Default. The
// file must be a YAML file. This method automatically calls the Check method
// to check the integrity of Cfg.
func New(path string) (*Cfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Default()
	dec := yaml.NewDecoder(bufio.NewReader(f))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	if err := c.Check(); err != nil {
		return nil, errors.Wrap(err, "Check")
	}

	return c, nil
}

// Check checks if Cfg is correct. It returns an error if a field doesn't meet
// the requirements.
func (c *Cfg) Check() error {
	if err := c.Extract.Check(); err != nil {
		return errors.Wrap(err, "extract")
	}
	if err := c.Isotherm.Check(); err != nil {
		return errors.Wrap(err, "isotherm")
	}
	if err := c.Occupancy.Check(); err != nil {
		return errors.Wrap(err, "occupancy")
	}
	return nil
}

func (c *Cfg) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}
