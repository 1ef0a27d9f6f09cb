package authstate

import "github.com/evalboard/evalboard/internal/gotrue"

// Status is the coarse auth state.
type Status int

const (
	// StatusLoading is the only status before the first session check resolves,
	// and the status while a sign-in or sign-out is in flight.
	StatusLoading Status = iota
	// StatusAuthenticated means the latest result carried a session.
	StatusAuthenticated
	// StatusAnonymous means the latest result carried no session.
	StatusAnonymous
	// StatusErrored means the latest call failed. User keeps its prior value.
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// State is a snapshot of the auth state.
type State struct {
	Status  Status
	User    *gotrue.User
	Session *gotrue.Session
	Err     error
}

// Loading reports whether a check or action is still pending.
func (s State) Loading() bool {
	return s.Status == StatusLoading
}

// FromUser builds the resolved state of a request whose user is already
// known, e.g. from the edge guard.
func FromUser(user *gotrue.User) State {
	if user == nil {
		return State{Status: StatusAnonymous}
	}

	return State{Status: StatusAuthenticated, User: user}
}

// fromSession is the state after a successful call returning session.
func fromSession(session *gotrue.Session) State {
	if session == nil {
		return State{Status: StatusAnonymous}
	}

	return State{Status: StatusAuthenticated, User: session.User, Session: session}
}
