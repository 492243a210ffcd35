// Package session is the client-side authentication state: the current user,
// whether the user is authenticated, and whether hydration is still running.
//
// A Store is created per process and handed to its consumers (route guard,
// account and profile services, CLI). All transitions go through one reducer
// and are published to subscribers in order.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/model"
	"github.com/and161185/machtrueke/internal/tokenstore"
)

// Phase is the coarse state of a session.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseAuthenticated
	PhaseUnauthenticated
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseError:
		return "error"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Snapshot is an immutable view of the session. Err is set only in PhaseError.
type Snapshot struct {
	User            *model.User
	IsAuthenticated bool
	IsLoading       bool
	Phase           Phase
	Err             error
}

// Identity resolves the user behind the stored token ("who am I").
type Identity interface {
	Me(ctx context.Context) (model.User, error)
}

type actionKind int

const (
	actLoading actionKind = iota
	actAuthenticated
	actAnonymous
	actFailed
	actUserRefreshed
)

type action struct {
	kind actionKind
	user *model.User
	err  error
}

// reduce is the only place where session state changes.
func reduce(s Snapshot, a action) Snapshot {
	switch a.kind {
	case actLoading:
		return Snapshot{User: s.User, IsAuthenticated: s.IsAuthenticated, IsLoading: true, Phase: PhaseLoading}
	case actAuthenticated:
		return Snapshot{User: a.user, IsAuthenticated: true, Phase: PhaseAuthenticated}
	case actAnonymous:
		return Snapshot{Phase: PhaseUnauthenticated}
	case actFailed:
		return Snapshot{Phase: PhaseError, Err: a.err}
	case actUserRefreshed:
		s.User = a.user
		return s
	}
	return s
}

// Store holds the session. Safe for concurrent use.
type Store struct {
	id     Identity
	tokens tokenstore.Store
	log    *zap.Logger

	mu      sync.Mutex
	state   Snapshot
	subs    map[int]func(Snapshot)
	nextSub int

	initOnce sync.Once
}

// New returns a store in the loading phase.
func New(id Identity, tokens tokenstore.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		id:     id,
		tokens: tokens,
		log:    log,
		state:  Snapshot{IsLoading: true, Phase: PhaseLoading},
		subs:   map[int]func(Snapshot){},
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every subsequent transition. Calls happen
// outside the store lock, in transition order per dispatching goroutine.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) dispatch(a action) Snapshot {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	next := s.state
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
	return next
}

// Init hydrates the session from the persisted token. Only the first call
// does any work; later and concurrent calls wait for it and return the
// resulting state. Hydration failures are never returned: the stale token
// is discarded and the session ends up anonymous.
func (s *Store) Init(ctx context.Context) Snapshot {
	s.initOnce.Do(func() { s.hydrate(ctx) })
	return s.Snapshot()
}

func (s *Store) hydrate(ctx context.Context) {
	tok, err := s.tokens.Load()
	if err != nil || tok == "" {
		s.dispatch(action{kind: actAnonymous})
		return
	}
	s.dispatch(action{kind: actLoading})
	u, err := s.id.Me(ctx)
	if err != nil {
		s.log.Debug("session: hydration failed", zap.Error(err))
		s.discardToken()
		s.dispatch(action{kind: actAnonymous})
		return
	}
	s.dispatch(action{kind: actAuthenticated, user: &u})
}

// Login marks the session authenticated with an already verified user.
func (s *Store) Login(u model.User) {
	s.dispatch(action{kind: actAuthenticated, user: &u})
}

// LoginWithToken persists token and resolves its user. On failure the token
// is discarded, the session is left anonymous in PhaseError and the error is
// returned.
func (s *Store) LoginWithToken(ctx context.Context, token string) (model.User, error) {
	if err := s.tokens.Save(token); err != nil {
		s.dispatch(action{kind: actFailed, err: err})
		return model.User{}, fmt.Errorf("save token: %w", err)
	}
	s.dispatch(action{kind: actLoading})

	u, err := s.id.Me(ctx)
	if err != nil {
		s.discardToken()
		s.dispatch(action{kind: actFailed, err: err})
		return model.User{}, err
	}
	s.dispatch(action{kind: actAuthenticated, user: &u})
	return u, nil
}

// Logout discards the token and resets the session to anonymous.
func (s *Store) Logout() {
	s.discardToken()
	s.dispatch(action{kind: actAnonymous})
}

// RefreshMe re-fetches the current user and replaces it. The authentication
// flag is left as is.
func (s *Store) RefreshMe(ctx context.Context) (model.User, error) {
	u, err := s.id.Me(ctx)
	if err != nil {
		return model.User{}, err
	}
	s.dispatch(action{kind: actUserRefreshed, user: &u})
	return u, nil
}

func (s *Store) discardToken() {
	if err := s.tokens.Clear(); err != nil {
		s.log.Warn("session: clear token", zap.Error(err))
	}
}
