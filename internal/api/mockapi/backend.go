// Package mockapi is an in-memory implementation of the marketplace API.
//
// It serves the same endpoints as the real backend through a chi router and
// can be mounted either on an httptest server or directly as the transport of
// an http.Client, so mock mode exercises the real api.Client code.
package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/crypto"
	"github.com/and161185/machtrueke/internal/limiter"
	"github.com/and161185/machtrueke/internal/model"
)

// Demo account seeded into every backend.
const (
	DemoEmail    = "demo@alumnos.udg.mx"
	DemoPassword = "demo-pass-123"
)

type account struct {
	user model.User
	pwd  crypto.PasswordHash
}

// Backend holds all mock state. Safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
	lim      limiter.Limiter
	nextID   int
	users    map[model.ID]*account
	byEmail  map[string]model.ID
	campuses []model.Campus
	cards    []model.Card
	matches  map[model.ID][]model.Match

	router chi.Router
}

// Option customizes a Backend.
type Option func(*Backend)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.log = l
		}
	}
}

// WithTokenTTL sets the lifetime of issued access tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(b *Backend) { b.ttl = d }
}

// WithLimiter replaces the login rate limiter.
func WithLimiter(l limiter.Limiter) Option {
	return func(b *Backend) {
		if l != nil {
			b.lim = l
		}
	}
}

// WithCards replaces the seeded product queue.
func WithCards(cards []model.Card) Option {
	return func(b *Backend) { b.cards = append([]model.Card(nil), cards...) }
}

// New returns a seeded backend with the demo account.
func New(opts ...Option) *Backend {
	secret := make([]byte, 32)
	if k, err := crypto.RandBytes(32); err == nil {
		secret = k
	}
	b := &Backend{
		secret:   secret,
		ttl:      time.Hour,
		now:      time.Now,
		log:      zap.NewNop(),
		lim:      limiter.NewMemory(15*time.Minute, 5, 15*time.Minute),
		users:    map[model.ID]*account{},
		byEmail:  map[string]model.ID{},
		campuses: seedCampuses(),
		cards:    seedCards(),
		matches:  map[model.ID][]model.Match{},
	}
	for _, o := range opts {
		o(b)
	}
	campus := b.campuses[0].ID
	if _, err := b.createUser(model.Registration{
		Username: "demo",
		FullName: "Demo Usuario",
		Email:    DemoEmail,
		Password: DemoPassword,
		CampusID: campus,
	}); err != nil {
		b.log.Error("seed demo account", zap.Error(err))
	}
	b.router = b.routes()
	return b
}

// Handler returns the HTTP handler serving the API.
func (b *Backend) Handler() http.Handler { return b.router }

// Transport returns a RoundTripper that serves every request in-process.
func (b *Backend) Transport() http.RoundTripper { return handlerTransport{h: b.router} }

// Client returns an *http.Client wired to Transport.
func (b *Backend) Client() *http.Client { return &http.Client{Transport: b.Transport()} }

type handlerTransport struct{ h http.Handler }

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, req)
	res := rec.Result()
	res.Request = req
	return res, nil
}

// IssueToken signs an HS256 access token for userID.
func (b *Backend) IssueToken(userID model.ID) (string, error) {
	now := b.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// ValidateToken returns the subject of a token signed by this backend.
func (b *Backend) ValidateToken(tok string) (model.ID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.secret, nil
	}, jwt.WithTimeFunc(b.now))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("subject not found in token")
	}
	return model.ID(claims.Subject), nil
}

// User returns a copy of the stored user, if any.
func (b *Backend) User(id model.ID) (model.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.users[id]
	if !ok {
		return model.User{}, false
	}
	return a.user, true
}

// UserByEmail returns a copy of the stored user with the given email.
func (b *Backend) UserByEmail(email string) (model.User, bool) {
	b.mu.Lock()
	id, ok := b.byEmail[strings.ToLower(strings.TrimSpace(email))]
	b.mu.Unlock()
	if !ok {
		return model.User{}, false
	}
	return b.User(id)
}

// Matches returns the matches recorded for userID, newest first.
func (b *Backend) Matches(userID model.ID) []model.Match {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Match(nil), b.matches[userID]...)
}

var errEmailTaken = errors.New("email already registered")

func (b *Backend) createUser(reg model.Registration) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	h, err := crypto.HashPassword(reg.Password)
	if err != nil {
		return model.User{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.byEmail[email]; taken {
		return model.User{}, errEmailTaken
	}
	b.nextID++
	campus := reg.CampusID
	u := model.User{
		ID:       model.ID(fmt.Sprint(b.nextID)),
		Username: strings.TrimSpace(reg.Username),
		FullName: strings.TrimSpace(reg.FullName),
		Email:    email,
		CampusID: &campus,
	}
	b.users[u.ID] = &account{user: u, pwd: h}
	b.byEmail[email] = u.ID
	return u, nil
}

func newID() model.ID {
	id, err := uuid.NewV4()
	if err != nil {
		return model.ID(fmt.Sprint(time.Now().UnixNano()))
	}
	return model.ID(id.String())
}

func seedCampuses() []model.Campus {
	return []model.Campus{
		{ID: 1, Code: "CUCEI", Name: "Centro Universitario de Ciencias Exactas e Ingenierías"},
		{ID: 2, Code: "CUCEA", Name: "Centro Universitario de Ciencias Económico Administrativas"},
		{ID: 3, Code: "CUAAD", Name: "Centro Universitario de Arte, Arquitectura y Diseño"},
		{ID: 4, Code: "CUCS", Name: "Centro Universitario de Ciencias de la Salud"},
		{ID: 5, Code: "UDGVIRTUAL", Name: "UDGVirtual"},
	}
}

func seedCards() []model.Card {
	hermione := model.Owner{ID: "u1", Name: "Hermione", Avatar: "https://i.pravatar.cc/100?img=47"}
	dobby := model.Owner{ID: "u2", Name: "Dobby", Avatar: "https://i.pravatar.cc/100?img=11"}
	tom := model.Owner{ID: "u3", Name: "Tom", Avatar: "https://i.pravatar.cc/100?img=15"}
	return []model.Card{
		{ID: "p100", Title: "Calculadora científica", Description: "Casio FX-991EX", Owner: hermione,
			Images: []string{"https://images.unsplash.com/photo-1588345921523-c2dcdb7f1dcd?q=80&w=1200&auto=format&fit=crop"}},
		{ID: "p101", Title: "Mochila azul", Description: "Buen estado", Owner: dobby,
			Images: []string{"https://images.unsplash.com/photo-1582582864648-1950e76c9c1b?q=80&w=1200&auto=format&fit=crop"}},
		{ID: "p102", Title: "Libro de cálculo", Description: "Stewart, 8a edición", Owner: tom},
		{ID: "p103", Title: "Bata de laboratorio", Description: "Talla M, casi nueva", Owner: hermione},
	}
}
