package gotrue

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultAutoRefreshTick is how often the background refresher looks at the session.
	defaultAutoRefreshTick = 30 * time.Second

	// defaultAutoRefreshMargin refreshes sessions expiring within three ticks.
	defaultAutoRefreshMargin = 3 * defaultAutoRefreshTick
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// StorageKey is the key of the persisted session. Default DefaultStorageKey(api.URL()).
	StorageKey string
	// RefreshMargin refreshes sessions expiring within this window.
	RefreshMargin time.Duration
	// AutoRefreshTick is the background refresh interval.
	AutoRefreshTick time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Client keeps one persisted session and reports its changes to listeners.
// It is the long-lived counterpart of Server.
type Client struct {
	api     *API
	storage fiber.Storage
	opts    ClientOptions
	hub     *hub
	flight  singleflight.Group

	mu          sync.Mutex
	stopRefresh context.CancelFunc
}

// NewClient creates a Client persisting its session in storage.
func NewClient(api *API, storage fiber.Storage, opts ClientOptions) *Client {
	if opts.StorageKey == "" {
		opts.StorageKey = DefaultStorageKey(api.URL())
	}

	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = defaultAutoRefreshMargin
	}

	if opts.AutoRefreshTick <= 0 {
		opts.AutoRefreshTick = defaultAutoRefreshTick
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Client{
		api:     api,
		storage: storage,
		opts:    opts,
		hub:     newHub(),
	}
}

// GetSession returns the stored session, refreshing it first when it is
// about to expire. It returns nil without error when signed out.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	session, err := c.load()
	if err != nil || session == nil {
		return nil, err
	}

	if !session.ExpiresWithin(c.opts.Now(), c.opts.RefreshMargin) {
		return session, nil
	}

	return c.refresh(ctx, session.RefreshToken)
}

// RefreshSession forces a refresh of the stored session.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	session, err := c.load()
	if err != nil {
		return nil, err
	}

	if session == nil {
		return nil, ErrSessionMissing
	}

	return c.refresh(ctx, session.RefreshToken)
}

// SignInWithPassword signs in, stores the session and emits SIGNED_IN.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	session, err := c.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err = c.save(session); err != nil {
		return nil, err
	}

	c.hub.emit(EventSignedIn, session)

	return session, nil
}

// SignOut revokes the session at the backend, removes it locally and emits
// SIGNED_OUT. A session the backend no longer knows is still removed.
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.load()
	if err != nil {
		return err
	}

	if session != nil {
		if err = c.api.Logout(ctx, session.AccessToken, ScopeLocal); err != nil && KindOf(err) != KindSessionExpired {
			return err
		}
	}

	if err = c.remove(); err != nil {
		return err
	}

	c.hub.emit(EventSignedOut, nil)

	return nil
}

// GetUser fetches the user of the stored session and emits USER_UPDATED
// when it differs from the stored copy.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	if session == nil {
		return nil, ErrSessionMissing
	}

	user, err := c.api.GetUser(ctx, session.AccessToken)
	if err != nil {
		return nil, err
	}

	if !reflect.DeepEqual(session.User, user) {
		session.User = user
		if err = c.save(session); err != nil {
			return nil, err
		}

		c.hub.emit(EventUserUpdated, session)
	}

	return user, nil
}

// OnAuthStateChange registers l. l receives INITIAL_SESSION asynchronously
// right after registration and every later change until Unsubscribe.
// INITIAL_SESSION is skipped when the lookup fails.
func (c *Client) OnAuthStateChange(l Listener) *Subscription {
	sub := c.hub.add(l)

	go func() {
		session, err := c.GetSession(context.Background())
		if err != nil {
			log.Warn().Err(err).Str("kind", KindOf(err).String()).Msg("initial session lookup failed")
			return
		}

		if c.hub.active(sub.ID) {
			c.hub.call(sub.ID, l, EventInitialSession, session)
		}
	}()

	return sub
}

// StartAutoRefresh refreshes the session in the background until ctx ends
// or StopAutoRefresh is called.
func (c *Client) StartAutoRefresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopRefresh != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.stopRefresh = cancel

	go c.autoRefresh(ctx)
}

// StopAutoRefresh stops the background refresher.
func (c *Client) StopAutoRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopRefresh != nil {
		c.stopRefresh()
		c.stopRefresh = nil
	}
}

func (c *Client) autoRefresh(ctx context.Context) {
	ticker := time.NewTicker(c.opts.AutoRefreshTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.GetSession(ctx); err != nil {
				log.Warn().Err(err).Str("kind", KindOf(err).String()).Msg("auto refresh failed")
			}
		}
	}
}

// refresh deduplicates concurrent refreshes of the same token.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	v, err, _ := c.flight.Do(refreshToken, func() (any, error) {
		session, err := c.api.RefreshSession(ctx, refreshToken)
		if err != nil {
			if KindOf(err) == KindSessionExpired {
				if errRemove := c.remove(); errRemove != nil {
					log.Error().Err(errRemove).Msg("failed to remove expired session")
				}

				c.hub.emit(EventSignedOut, nil)
			}

			return nil, err
		}

		if err = c.save(session); err != nil {
			return nil, err
		}

		c.hub.emit(EventTokenRefreshed, session)

		return session, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Session), nil //nolint:forcetypeassert // only *Session is returned
}

func (c *Client) load() (*Session, error) {
	raw, err := c.storage.Get(c.opts.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if len(raw) == 0 {
		return nil, nil //nolint:nilnil // signed out
	}

	session := new(Session)
	if err = json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	return session, nil
}

func (c *Client) save(session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if err = c.storage.Set(c.opts.StorageKey, raw, 0); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (c *Client) remove() error {
	if err := c.storage.Delete(c.opts.StorageKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}

	return nil
}
