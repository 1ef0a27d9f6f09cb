// Package authstate keeps a local view of the signed-in user in sync with
// the auth backend.
//
// An Observer performs one session lookup when mounted, subscribes to the
// backend's auth-state changes and offers sign-in and sign-out actions. Its
// State is only ever written from backend results and notifications:
//
//	obs := authstate.New(client)
//	obs.Mount(ctx)
//	defer obs.Close()
//
//	state, err := obs.Wait(ctx)
//
// After Close no result or notification changes the state anymore.
package authstate
