package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evalboard/evalboard/internal/config"
)

func newConfigCmd(o *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as JSON, secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.DumpConfigJSON(o.cfg)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err
		},
	})

	return configCmd
}
