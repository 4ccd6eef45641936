package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pedrogmartins/gcmc-project/pkg/cfg"
	"github.com/pedrogmartins/gcmc-project/pkg/logger"
)

var (
	ascii   bool
	method  string
	out     string
	jsonLog bool
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "isotherm <config.yaml>",
		Short:        "fit a dual-site Langmuir isotherm and compute the isosteric heat",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runIsotherm,
	}

	rootCmd.Flags().BoolVar(&ascii, "ascii", false, "draw the curves in the terminal")
	rootCmd.Flags().StringVar(&method, "method", "", "fitting method: lm, bfgs or neldermead (overrides the config)")
	rootCmd.Flags().StringVar(&out, "out", "", "prefix of the plots (overrides the config)")
	rootCmd.Flags().BoolVar(&jsonLog, "json", false, "log in JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIsotherm(cmd *cobra.Command, args []string) error {
	log, err := logger.New(verbose, jsonLog)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Infow("reading configuration file", "path", args[0])
	c, err := cfg.New(args[0])
	if err != nil {
		return err
	}
	c.Log = log

	if cmd.Flags().Changed("method") {
		c.Isotherm.Method = method
	}
	if cmd.Flags().Changed("out") {
		c.Isotherm.Out = out
	}
	if err := c.Isotherm.Check(); err != nil {
		return err
	}

	log.Infow("fitting", "datasets", len(c.Isotherm.Datasets), "method", c.Isotherm.Method)
	return c.RunIsotherm(ascii)
}
