package client

import (
	"context"
	"errors"
	"sync"
)

// State is a snapshot of the session. A signed-out state has a nil User.
type State struct {
	Loading    bool
	User       *User
	Profile    *Profile
	Resolution *Resolution
	// Route is the screen the client should show: /auth when signed out.
	Route string
}

const RouteAuth = "/auth"

func (s State) SignedIn() bool {
	return s.User != nil
}

func signedOut() State {
	return State{Route: RouteAuth}
}

// Session owns the signed-in identity and tells subscribers when it changes.
// Every operation ends in exactly one notification, and the session either
// holds an identity afterwards or it does not.
type Session struct {
	client *Client
	store  TokenStore

	mu      sync.Mutex
	state   State
	tokens  *Tokens
	subs    map[int]func(State)
	nextSub int
	stopped bool
}

func NewSession(c *Client, store TokenStore) *Session {
	if store == nil {
		store = &MemoryTokenStore{}
	}
	return &Session{
		client: c,
		store:  store,
		state:  signedOut(),
		subs:   make(map[int]func(State)),
	}
}

// Current returns the latest state without waiting.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for state changes. The returned func unregisters it.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Stop drops every subscriber. Later changes still update Current.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.subs = make(map[int]func(State))
	s.mu.Unlock()
}

// Start restores stored tokens and loads the session once. An expired access
// token is refreshed one time before giving up.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	tokens, err := s.store.Load()
	if err != nil || tokens == nil {
		s.commit(nil, nil)
		return err
	}

	view, tokens, err := s.load(ctx, tokens)
	if err != nil {
		if IsUnauthorized(err) {
			s.store.Clear()
		}
		s.commit(nil, nil)
		return err
	}
	s.commit(tokens, view)
	return nil
}

func (s *Session) load(ctx context.Context, tokens *Tokens) (*SessionView, *Tokens, error) {
	s.client.SetAccessToken(tokens.AccessToken)
	view, err := s.client.Session(ctx)
	if err == nil || !IsUnauthorized(err) || tokens.RefreshToken == "" {
		return view, tokens, err
	}

	refreshed, rerr := s.client.Refresh(ctx, tokens.RefreshToken)
	if rerr != nil {
		return nil, nil, err
	}
	if err := s.store.Save(refreshed); err != nil {
		return nil, nil, err
	}
	s.client.SetAccessToken(refreshed.AccessToken)
	view, err = s.client.Session(ctx)
	return view, refreshed, err
}

func (s *Session) SignIn(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, func() (*Tokens, error) {
		return s.client.SignIn(ctx, email, password)
	})
}

func (s *Session) SignUp(ctx context.Context, req SignUpRequest) error {
	return s.authenticate(ctx, func() (*Tokens, error) {
		return s.client.SignUp(ctx, req)
	})
}

func (s *Session) RedeemMagicLink(ctx context.Context, token string) error {
	return s.authenticate(ctx, func() (*Tokens, error) {
		return s.client.RedeemMagicLink(ctx, token)
	})
}

// Reload fetches the session again, for example after onboarding.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()
	if tokens == nil {
		s.commit(nil, nil)
		return errors.New("not signed in")
	}

	view, tokens, err := s.load(ctx, tokens)
	if err != nil {
		s.commit(nil, nil)
		return err
	}
	s.commit(tokens, view)
	return nil
}

func (s *Session) authenticate(ctx context.Context, obtain func() (*Tokens, error)) error {
	tokens, err := obtain()
	if err != nil {
		s.commit(nil, nil)
		return err
	}

	s.client.SetAccessToken(tokens.AccessToken)
	view, err := s.client.Session(ctx)
	if err != nil {
		s.commit(nil, nil)
		return err
	}
	if err := s.store.Save(tokens); err != nil {
		s.commit(nil, nil)
		return err
	}
	s.commit(tokens, view)
	return nil
}

// SignOut always ends signed out locally, even when the server call fails.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()

	var err error
	if tokens != nil {
		err = s.client.SignOut(ctx, tokens.RefreshToken)
	}
	if cerr := s.store.Clear(); err == nil {
		err = cerr
	}
	s.commit(nil, nil)
	return err
}

// commit replaces the state and notifies subscribers once. A nil view means
// signed out.
func (s *Session) commit(tokens *Tokens, view *SessionView) {
	next := signedOut()
	if view != nil && view.User != nil {
		res := view.Resolution
		next = State{
			User:       view.User,
			Profile:    view.Profile,
			Resolution: &res,
			Route:      view.Route,
		}
	} else {
		tokens = nil
		s.client.SetAccessToken("")
	}

	s.mu.Lock()
	s.state = next
	s.tokens = tokens
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
