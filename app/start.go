package app

import (
	"github.com/spf13/cobra"

	"github.com/evalboard/evalboard/internal/daemon"
	"github.com/evalboard/evalboard/internal/logger"
)

func newStartCmd(o *options) *cobra.Command {
	var devMode bool

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the evalboard web service",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if devMode {
				o.cfg.DevMode = true
			}

			return logger.Init(o.cfg.Log)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := daemon.New(&o.cfg)
			if err != nil {
				return err
			}

			return d.Run()
		},
	}

	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode (templates from disk, insecure cookies)")

	return startCmd
}
