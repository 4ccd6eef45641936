package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pedrogmartins/gcmc-project/pkg/cfg"
	"github.com/pedrogmartins/gcmc-project/pkg/logger"
)

var (
	configFile string
	results    string
	format     string
	run        int
	jsonLog    bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "extract <dir>",
		Short:        "store the thermo output of each simulation of dir",
		Long:         "extract reads <dir>/<sim>/log.lammps for each simulation and writes its thermo table to <results>/<sim>.tab (or .csv.gz).",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runExtract,
	}

	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.Flags().StringVar(&results, "results", "", "output directory (default <dir>/../results)")
	rootCmd.Flags().StringVar(&format, "format", "tab", "output format: tab or csv")
	rootCmd.Flags().IntVar(&run, "run", 0, "thermo block to extract (negative counts from the last one)")
	rootCmd.Flags().BoolVar(&jsonLog, "json", false, "log in JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	log, err := logger.New(verbose, jsonLog)
	if err != nil {
		return err
	}
	defer log.Sync()

	c := cfg.Default()
	if configFile != "" {
		log.Infow("reading configuration file", "path", configFile)
		if c, err = cfg.New(configFile); err != nil {
			return err
		}
	}
	c.Log = log

	if len(args) == 1 {
		c.Extract.Root = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("results") {
		c.Extract.Results = results
	}
	if flags.Changed("format") || configFile == "" {
		c.Extract.Format = format
	}
	if flags.Changed("run") {
		c.Extract.Run = run
	}
	if err := c.Extract.Check(); err != nil {
		return err
	}

	written, err := c.RunExtract()
	if err != nil {
		return errors.Wrap(err, "extract")
	}
	log.Infow("done", "files", len(written))
	return nil
}
