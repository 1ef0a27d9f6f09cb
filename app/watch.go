package app

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evalboard/evalboard/internal/authstate"
	"github.com/evalboard/evalboard/internal/routeguard"
	"github.com/evalboard/evalboard/internal/web/handler/dashboard"
	"github.com/evalboard/evalboard/internal/web/handler/login"
)

func newWatchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the dashboard and follow auth state changes until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openClient(o, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()

			renderDashboard(out, s.observer.State())
			cancel := s.observer.Watch(func(state authstate.State) {
				renderDashboard(out, state)
			})
			defer cancel()

			s.observer.Mount(ctx)
			s.client.StartAutoRefresh(ctx)

			<-ctx.Done()

			return nil
		},
	}
}

// renderDashboard prints the terminal rendition of the dashboard page for
// state.
func renderDashboard(w io.Writer, state authstate.State) {
	stamp := time.Now().Format(time.TimeOnly)

	nav := routeguard.NavigatorFunc(func(string) {
		fmt.Fprintf(w, "[%s] signed out, run `evalboard login` (web: %s)\n", stamp, login.Path)
	})

	text := routeguard.Render(routeguard.Protected(state, nav, login.Path),
		func() string {
			return fmt.Sprintf("[%s] checking session ...\n", stamp)
		},
		func() string {
			var b strings.Builder

			fmt.Fprintf(&b, "[%s] Dashboard: welcome back, %s\n", stamp, state.User.Email)

			for _, stat := range dashboard.Stats {
				fmt.Fprintf(&b, "  %-18s %s\n", stat.Label, stat.Value)
			}

			if state.Err != nil {
				fmt.Fprintf(&b, "  warning: %s\n", describe(state.Err))
			}

			return b.String()
		},
	)

	fmt.Fprint(w, text)
}
