package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/evalboard/evalboard/internal/authstate"
	"github.com/evalboard/evalboard/internal/daemon"
	"github.com/evalboard/evalboard/internal/db/store"
	"github.com/evalboard/evalboard/internal/gotrue"
)

// ErrNotSignedIn is returned by commands that need a session.
var ErrNotSignedIn = errors.New("not signed in, run `evalboard login`")

// clientSession is the terminal side of the auth backend: a persisted
// client and an observer of its state.
type clientSession struct {
	client   *gotrue.Client
	observer *authstate.Observer
	storage  fiber.Storage
}

// openClient opens the session storage and creates an unmounted observer.
func openClient(o *options, cmd *cobra.Command) (*clientSession, error) {
	initClientLogger(o, cmd)

	storage, err := store.New(&o.cfg)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}

	client, err := daemon.NewClient(&o.cfg, storage)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	return &clientSession{
		client:   client,
		observer: authstate.New(client),
		storage:  storage,
	}, nil
}

// resolve mounts the observer and waits for the first check.
func (s *clientSession) resolve(ctx context.Context, timeout time.Duration) (authstate.State, error) {
	s.observer.Mount(ctx)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.observer.Wait(ctx)
}

func (s *clientSession) Close() {
	s.observer.Close()
	s.client.StopAutoRefresh()

	if err := s.storage.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close session storage")
	}
}

// initClientLogger sends log lines to stderr so they never mix with
// command output.
func initClientLogger(o *options, cmd *cobra.Command) {
	level, err := zerolog.ParseLevel(o.cfg.Log.LogLevel)
	// info is the server default and too chatty for a terminal
	if err != nil || level == zerolog.NoLevel || level == zerolog.InfoLevel {
		level = zerolog.WarnLevel
	}

	w := cmd.ErrOrStderr()
	if w == os.Stderr {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// describe renders a collaborator error for the terminal.
func describe(err error) string {
	switch gotrue.KindOf(err) {
	case gotrue.KindInvalidCredentials:
		return "invalid email or password"
	case gotrue.KindNetworkFailure:
		return "auth backend not reachable"
	case gotrue.KindSessionExpired:
		return "session expired, sign in again"
	default:
		return err.Error()
	}
}
