package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evalboard/evalboard/internal/authstate"
)

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openClient(o, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()

			state, err := s.resolve(ctx, o.cfg.Auth.RequestTimeout)
			if err != nil {
				return err
			}

			if state.Status == authstate.StatusAnonymous {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}

			if err = s.observer.SignOut(ctx); err != nil {
				return fmt.Errorf("sign out failed: %s", describe(err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "signed out")

			return nil
		},
	}
}
