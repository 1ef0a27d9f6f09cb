package authstate

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/evalboard/evalboard/internal/gotrue"
)

// Collaborator is the part of the auth backend an Observer needs.
// *gotrue.Client implements it.
type Collaborator interface {
	GetSession(ctx context.Context) (*gotrue.Session, error)
	OnAuthStateChange(l gotrue.Listener) *gotrue.Subscription
	SignInWithPassword(ctx context.Context, email, password string) (*gotrue.Session, error)
	SignOut(ctx context.Context) error
}

// Result is the outcome of SignIn. Exactly one of Session and Err is set.
type Result struct {
	Session *gotrue.Session
	Err     error
}

// Observer mirrors the backend's auth state.
//
// Every write bumps a version. The initial lookup is dropped when anything
// else was written while it was in flight; otherwise the last write wins.
type Observer struct {
	collab Collaborator

	mu       sync.Mutex
	state    State
	version  uint64
	mounted  bool
	disposed bool
	sub      *gotrue.Subscription
	changed  chan struct{}
	watchers map[int]func(State)
	nextID   int
}

// New creates an unmounted Observer in the Loading state.
func New(collab Collaborator) *Observer {
	return &Observer{
		collab:   collab,
		state:    State{Status: StatusLoading},
		changed:  make(chan struct{}),
		watchers: make(map[int]func(State)),
	}
}

// Mount starts the initial session lookup and subscribes to changes.
// INITIAL_SESSION notifications are ignored in favor of that lookup.
// Calling it again is a no-op.
func (o *Observer) Mount(ctx context.Context) {
	o.mu.Lock()
	if o.mounted || o.disposed {
		o.mu.Unlock()
		return
	}

	o.mounted = true
	start := o.version
	o.mu.Unlock()

	sub := o.collab.OnAuthStateChange(o.notify)

	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		sub.Unsubscribe()

		return
	}

	o.sub = sub
	o.mu.Unlock()

	go func() {
		session, err := o.collab.GetSession(ctx)

		o.mu.Lock()
		defer o.mu.Unlock()

		if o.version != start {
			log.Debug().Msg("initial session lookup superseded")
			return
		}

		if err != nil {
			o.setLocked(o.erroredLocked(err))
			return
		}

		o.setLocked(fromSession(session))
	}()
}

// State returns the current snapshot.
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// SignIn signs in with email and password. It never panics on backend
// failures: the error is stored in the state and returned in the Result.
func (o *Observer) SignIn(ctx context.Context, email, password string) Result {
	o.setLoading()

	session, err := o.collab.SignInWithPassword(ctx, email, password)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.setLocked(o.erroredLocked(err))
		return Result{Err: err}
	}

	o.setLocked(fromSession(session))

	return Result{Session: session}
}

// SignOut signs out. On failure the state is Errored with the user kept,
// and the error is returned as well.
func (o *Observer) SignOut(ctx context.Context) error {
	o.setLoading()

	err := o.collab.SignOut(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.setLocked(o.erroredLocked(err))
		return err
	}

	o.setLocked(State{Status: StatusAnonymous})

	return nil
}

// GetSession looks the session up again without touching the subscription.
func (o *Observer) GetSession(ctx context.Context) (*gotrue.Session, error) {
	session, err := o.collab.GetSession(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.setLocked(o.erroredLocked(err))
		return nil, err
	}

	o.setLocked(fromSession(session))

	return session, nil
}

// Watch calls fn after every state change until the returned func is called.
// fn runs with the Observer locked on the goroutine that caused the change,
// so it must not block or call back into the Observer.
func (o *Observer) Watch(fn func(State)) (cancel func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.watchers[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()

		delete(o.watchers, id)
	}
}

// Wait blocks until the state is no longer Loading or ctx ends.
func (o *Observer) Wait(ctx context.Context) (State, error) {
	for {
		o.mu.Lock()
		state, changed := o.state, o.changed
		o.mu.Unlock()

		if !state.Loading() {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-changed:
		}
	}
}

// Close unsubscribes. Pending results and later notifications are dropped.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}

	o.disposed = true
	sub := o.sub
	o.sub = nil
	o.watchers = make(map[int]func(State))
	o.mu.Unlock()

	sub.Unsubscribe()
}

func (o *Observer) notify(event gotrue.AuthChangeEvent, session *gotrue.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()

	log.Debug().Str("event", string(event)).Bool("session", session != nil).Msg("auth state change")

	// the lookup started by Mount is the initial check, and it keeps errors
	if event == gotrue.EventInitialSession {
		return
	}

	o.setLocked(fromSession(session))
}

func (o *Observer) setLoading() {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := o.state
	next.Status = StatusLoading
	next.Err = nil
	o.setLocked(next)
}

// erroredLocked keeps the user and session of the current state.
func (o *Observer) erroredLocked(err error) State {
	return State{Status: StatusErrored, User: o.state.User, Session: o.state.Session, Err: err}
}

func (o *Observer) setLocked(next State) {
	if o.disposed {
		return
	}

	o.version++
	o.state = next

	close(o.changed)
	o.changed = make(chan struct{})

	for _, fn := range o.watchers {
		fn(next)
	}
}
