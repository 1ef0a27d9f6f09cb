package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evalboard/evalboard/internal/authstate"
)

func newWhoamiCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openClient(o, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			state, err := s.resolve(cmd.Context(), o.cfg.Auth.RequestTimeout)
			if err != nil {
				return err
			}

			switch state.Status {
			case authstate.StatusAuthenticated:
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "email:   %s\n", state.User.Email)
				fmt.Fprintf(out, "id:      %s\n", state.User.ID)

				if state.Session != nil {
					fmt.Fprintf(out, "expires: %s\n", state.Session.Expiry().Format(time.RFC3339))
				}

				return nil
			case authstate.StatusErrored:
				return fmt.Errorf("session check failed: %s", describe(state.Err))
			default:
				return ErrNotSignedIn
			}
		},
	}
}
