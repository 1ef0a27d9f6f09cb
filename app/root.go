// Package app implements the evalboard commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/evalboard/evalboard/internal/config"
)

// options are shared by all commands.
type options struct {
	configPath string
	cfg        config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "evalboard",
		Short: "evalboard serves the evaluation dashboard behind a GoTrue auth backend",
		Long: `evalboard serves the evaluation dashboard behind a GoTrue compatible
auth backend (Supabase Auth). The start command runs the web server, the
login, logout, whoami and watch commands manage a terminal session.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(o.configPath)
			if err != nil {
				return err
			}

			o.cfg = cfg

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "./etc/",
		"path to main.toml or the directory holding it")

	rootCmd.AddCommand(
		newStartCmd(o),
		newLoginCmd(o),
		newLogoutCmd(o),
		newWhoamiCmd(o),
		newWatchCmd(o),
		newConfigCmd(o),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
