package app

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evalboard/evalboard/internal/routeguard"
)

// EnvPassword supplies the password without a prompt.
const EnvPassword = "EVALBOARD_PASSWORD"

var errEmptyPassword = errors.New("password is empty")

func newLoginCmd(o *options) *cobra.Command {
	var email, password string

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openClient(o, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			state, err := s.resolve(ctx, o.cfg.Auth.RequestTimeout)
			if err != nil {
				return err
			}

			signedIn := routeguard.NavigatorFunc(func(string) {
				fmt.Fprintf(out, "already signed in as %s\n", state.User.Email)
			})

			if routeguard.Guest(state, signedIn, "") == routeguard.Redirected {
				return nil
			}

			if password == "" {
				if password, err = readPassword(cmd); err != nil {
					return err
				}
			}

			res := s.observer.SignIn(ctx, email, password)
			if res.Err != nil {
				return fmt.Errorf("sign in failed: %s", describe(res.Err))
			}

			if res.Session != nil && res.Session.User != nil {
				email = res.Session.User.Email
			}

			fmt.Fprintf(out, "signed in as %s\n", email)

			return nil
		},
	}

	loginCmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&password, "password", "p", "",
		"account password, defaults to $"+EnvPassword+" or a prompt")
	_ = loginCmd.MarkFlagRequired("email")

	return loginCmd
}

// readPassword takes the password from the environment or one line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if p := os.Getenv(EnvPassword); p != "" {
		return p, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errEmptyPassword
	}

	return line, nil
}
