package cfg

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pedrogmartins/gcmc-project/pkg/isotherm"
	"github.com/pedrogmartins/gcmc-project/pkg/occupancy"
	"github.com/pedrogmartins/gcmc-project/pkg/thermo/colfile"
)

// DatasetCfg is the isotherm measured at one temperature. The loadings come
// from exactly one of Loadings, CSV or Tables.
type DatasetCfg struct {
	Temperature float64 `yaml:"temperature"`

	// Pressures are required with Loadings and Tables
	Pressures []float64 `yaml:"pressures"`
	Loadings  []float64 `yaml:"loadings"`

	// CSV is a file with the columns pressure and loading. A header row and
	// lines starting with # are ignored
	CSV string `yaml:"csv"`

	// Tables is the path of the extracted thermo tables (see extract) where
	// {pressure} is replaced by each pressure. The loading is the mean of
	// Column once Discard rows are removed, multiplied by Scale
	Tables  string  `yaml:"tables"`
	Column  string  `yaml:"column"`
	Discard int     `yaml:"discard"`
	Scale   float64 `yaml:"scale"`
}

// IsothermCfg is the section of the isotherm fit.
type IsothermCfg struct {
	Datasets []DatasetCfg `yaml:"datasets"`

	// Init is the initial guess: qsat_A b0_A E_A qsat_B b0_B E_B
	Init []float64 `yaml:"init"`

	// Method is lm, bfgs or neldermead
	Method  string `yaml:"method"`
	MaxEval int    `yaml:"maxEval"`

	// The fitted isotherms are drawn at 0, SupportStep, ... below SupportMax
	SupportMax  float64 `yaml:"supportMax"`
	SupportStep float64 `yaml:"supportStep"`

	// The isosteric heat is evaluated at QstTemperature for QstPoints
	// loadings between QstMin and QstMax
	QstTemperature float64 `yaml:"qstTemperature"`
	QstMin         float64 `yaml:"qstMin"`
	QstMax         float64 `yaml:"qstMax"`
	QstPoints      int     `yaml:"qstPoints"`

	// Out is the prefix of the plots. Empty means no plot
	Out string `yaml:"out"`

	QstXLim   []float64 `yaml:"qstXLim"`
	QstYLim   []float64 `yaml:"qstYLim"`
	QstXLabel string    `yaml:"qstXLabel"`
	VLines    []float64 `yaml:"vLines"`
	HLines    []float64 `yaml:"hLines"`
}

func defaultIsotherm() IsothermCfg {
	return IsothermCfg{
		Init:           isotherm.DefaultInit.Slice(),
		Method:         isotherm.MethodLM,
		MaxEval:        isotherm.DefaultMaxEval,
		SupportMax:     60,
		SupportStep:    1,
		QstTemperature: 298,
		QstMin:         1e-6,
		QstMax:         5,
		QstPoints:      50,
		Out:            "isotherm",
		QstXLim:        []float64{0, 3},
		QstYLim:        []float64{0, 65},
		QstXLabel:      "CO2 molecule / Mg metal site",
		VLines:         []float64{1},
		HLines:         []float64{53.89},
	}
}

// Check checks the section. Datasets may be empty: they are only required by
// RunIsotherm.
func (c *IsothermCfg) Check() error {
	if len(c.Init) != isotherm.NParams {
		return errors.Newf("init must have %d values", isotherm.NParams)
	}

	switch c.Method {
	case isotherm.MethodLM, isotherm.MethodBFGS, isotherm.MethodNelderMead:
	default:
		return errors.Newf("unknown method %q", c.Method)
	}

	if c.MaxEval < 0 {
		return errors.New("maxEval cannot be lower than 0")
	}

	if c.QstTemperature <= 0 {
		return errors.New("qstTemperature must be greater than 0")
	}

	if c.QstPoints <= 0 || c.QstMax < c.QstMin {
		return errors.New("invalid loadings of the isosteric heat")
	}

	for _, l := range [][]float64{c.QstXLim, c.QstYLim} {
		if len(l) != 0 && len(l) != 2 {
			return errors.New("limits must have 2 values")
		}
	}

	for k, d := range c.Datasets {
		if err := d.Check(); err != nil {
			return errors.Wrapf(err, "dataset %d", k)
		}
	}

	return nil
}

// Check checks the dataset.
func (d *DatasetCfg) Check() error {
	if d.Temperature <= 0 {
		return errors.New("temperature must be greater than 0")
	}

	var sources int
	for _, ok := range []bool{d.Loadings != nil, d.CSV != "", d.Tables != ""} {
		if ok {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("exactly one of loadings, csv and tables must be specified")
	}

	switch {
	case d.Loadings != nil:
		if len(d.Loadings) != len(d.Pressures) {
			return errors.Newf("%d pressures but %d loadings", len(d.Pressures), len(d.Loadings))
		}
	case d.Tables != "":
		if len(d.Pressures) == 0 {
			return errors.New("tables require pressures")
		}
		if d.Column == "" {
			return errors.New("tables require a column")
		}
		if d.Discard < 0 {
			return errors.New("discard cannot be lower than 0")
		}
	}

	return nil
}

// Set returns the isotherm of the dataset.
func (d *DatasetCfg) Set() (isotherm.Set, error) {
	s := isotherm.Set{Temperature: d.Temperature}

	switch {
	case d.CSV != "":
		var err error
		s.Pressures, s.Loadings, err = readCSV(d.CSV)
		if err != nil {
			return s, errors.Wrapf(err, "csv %s", d.CSV)
		}

	case d.Tables != "":
		scale := d.Scale
		if scale == 0 {
			scale = 1
		}
		s.Pressures = d.Pressures
		for _, p := range d.Pressures {
			path := occupancy.PressureFile(d.Tables, p)
			t, err := colfile.Read(path)
			if err != nil {
				return s, err
			}
			m, err := t.Mean(d.Column, d.Discard)
			if err != nil {
				return s, errors.Wrapf(err, "table %s", path)
			}
			s.Loadings = append(s.Loadings, m*scale)
		}

	default:
		s.Pressures, s.Loadings = d.Pressures, d.Loadings
	}

	return s, nil
}

// readCSV reads the first two columns of a CSV file.
func readCSV(path string) (p, q []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	for row := 0; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(rec) < 2 {
			return nil, nil, errors.Newf("row %d: 2 columns expected", row+1)
		}

		pv, perr := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		qv, qerr := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if perr != nil || qerr != nil {
			if row == 0 {
				continue // header
			}
			return nil, nil, errors.Newf("row %d: invalid numbers", row+1)
		}
		p, q = append(p, pv), append(q, qv)
	}

	if len(p) == 0 {
		return nil, nil, errors.New("no data")
	}
	return p, q, nil
}

// RunIsotherm fits the datasets, prints the fitted parameters and saves the
// plots. If ascii is set, the curves are also drawn in the terminal.
func (c *Cfg) RunIsotherm(ascii bool) error {
	ic := c.Isotherm
	if len(ic.Datasets) == 0 {
		return errors.New("no dataset")
	}

	iso := &isotherm.Isotherm{
		Init:           isotherm.ParamsFromSlice(ic.Init),
		Settings:       isotherm.Settings{Method: ic.Method, MaxEval: ic.MaxEval},
		Support:        isotherm.Support(ic.SupportMax, ic.SupportStep),
		QstTemperature: ic.QstTemperature,
		QstLoadings:    isotherm.Loadings(ic.QstMin, ic.QstMax, ic.QstPoints),
		Out:            ic.Out,
		ASCII:          ascii,
		Log:            c.Log,
		Plot: isotherm.PlotOptions{
			QstXLabel: ic.QstXLabel,
			VLines:    ic.VLines,
			HLines:    ic.HLines,
		},
	}
	if len(ic.QstXLim) == 2 {
		iso.Plot.QstXMin, iso.Plot.QstXMax = ic.QstXLim[0], ic.QstXLim[1]
	}
	if len(ic.QstYLim) == 2 {
		iso.Plot.QstYMin, iso.Plot.QstYMax = ic.QstYLim[0], ic.QstYLim[1]
	}

	for k := range ic.Datasets {
		s, err := ic.Datasets[k].Set()
		if err != nil {
			return errors.Wrapf(err, "dataset %d", k)
		}
		iso.Sets = append(iso.Sets, s)
	}

	if err := iso.Perform(); err != nil {
		return err
	}
	return iso.Write(c.stdout())
}
