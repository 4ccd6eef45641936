package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pedrogmartins/gcmc-project/pkg/cfg"
	"github.com/pedrogmartins/gcmc-project/pkg/logger"
)

var (
	dir       string
	pressures []float64
	jsonLog   bool
	verbose   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "occupancy [config.yaml]",
		Short:        "draw the 2D occupancy histograms of GCMC trajectories",
		Long:         "occupancy reads the trajectory of each pressure and draws the histogram of the x and y coordinates of the adsorbed molecules. Without a configuration file, the settings of the Mg-MOF-274 study are used.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runOccupancy,
	}

	rootCmd.Flags().StringVar(&dir, "dir", "", "directory of the trajectories (overrides the config)")
	rootCmd.Flags().Float64SliceVar(&pressures, "pressures", nil, "pressures to draw (overrides the config)")
	rootCmd.Flags().BoolVar(&jsonLog, "json", false, "log in JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runOccupancy(cmd *cobra.Command, args []string) error {
	log, err := logger.New(verbose, jsonLog)
	if err != nil {
		return err
	}
	defer log.Sync()

	c := cfg.Default()
	if len(args) == 1 {
		log.Infow("reading configuration file", "path", args[0])
		if c, err = cfg.New(args[0]); err != nil {
			return err
		}
	}
	c.Log = log
	c.Progress = os.Stderr

	if cmd.Flags().Changed("dir") {
		c.Occupancy.Dir = dir
	}
	if cmd.Flags().Changed("pressures") {
		c.Occupancy.Pressures = pressures
	}

	return c.RunOccupancy()
}
