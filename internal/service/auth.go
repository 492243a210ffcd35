// Package service contains the application services behind the login,
// signup, profile and likes views.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/errs"
	"github.com/and161185/machtrueke/internal/model"
)

// ErrNoAccessToken is returned when the backend accepts credentials but sends no token.
var ErrNoAccessToken = errors.New("login response without access token")

// AuthAPI is the slice of the REST client used for authentication.
type AuthAPI interface {
	Signup(ctx context.Context, reg model.Registration) (model.LoginResult, error)
	Login(ctx context.Context, cr model.Credentials) (model.LoginResult, error)
}

// Session is the slice of the session store the services drive.
type Session interface {
	LoginWithToken(ctx context.Context, token string) (model.User, error)
	RefreshMe(ctx context.Context) (model.User, error)
	Logout()
}

// AccountService defines sign-in, sign-up and sign-out.
type AccountService interface {
	// SignIn exchanges credentials for a token and hydrates the session with it.
	SignIn(ctx context.Context, email, password string) (model.User, error)
	// SignUp validates the form, creates the account and signs it in.
	SignUp(ctx context.Context, form SignUpForm) (model.User, error)
	// SignOut drops the session.
	SignOut()
}

type AccountServiceImpl struct {
	api  AuthAPI
	sess Session
	log  *zap.Logger
}

// NewAccountService constructs AccountService with required dependencies.
func NewAccountService(api AuthAPI, sess Session, log *zap.Logger) *AccountServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountServiceImpl{api: api, sess: sess, log: log}
}

// SignIn logs in with email and password.
func (s *AccountServiceImpl) SignIn(ctx context.Context, email, password string) (model.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return model.User{}, errs.Invalid("credentials", "Correo y contraseña son obligatorios.")
	}
	res, err := s.api.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		return model.User{}, err
	}
	if strings.TrimSpace(res.AccessToken) == "" {
		return model.User{}, ErrNoAccessToken
	}
	return s.sess.LoginWithToken(ctx, res.AccessToken)
}

// SignUp registers the account. When the register call returns no token
// the new credentials are used to log in.
func (s *AccountServiceImpl) SignUp(ctx context.Context, form SignUpForm) (model.User, error) {
	if err := form.Validate(); err != nil {
		return model.User{}, err
	}
	reg := form.Registration()

	res, err := s.api.Signup(ctx, reg)
	if err != nil {
		return model.User{}, err
	}
	token := res.AccessToken
	if token == "" {
		s.log.Debug("signup: no token in register response, logging in")
		lr, err := s.api.Login(ctx, model.Credentials{Email: reg.Email, Password: reg.Password})
		if err != nil {
			return model.User{}, fmt.Errorf("login after signup: %w", err)
		}
		token = lr.AccessToken
	}
	if token == "" {
		return model.User{}, ErrNoAccessToken
	}
	return s.sess.LoginWithToken(ctx, token)
}

// SignOut logs out.
func (s *AccountServiceImpl) SignOut() { s.sess.Logout() }
