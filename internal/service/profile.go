package service

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/api"
	"github.com/and161185/machtrueke/internal/model"
)

// ProfileAPI is the slice of the REST client used by the profile views.
type ProfileAPI interface {
	UpdateMe(ctx context.Context, upd model.ProfileUpdate) (*model.User, error)
	ChangePassword(ctx context.Context, pc model.PasswordChange) (model.Message, error)
	DeleteMe(ctx context.Context) (model.Message, error)
	UploadAvatar(ctx context.Context, filename string, r io.Reader) (api.AvatarResult, error)
	DeleteAvatar(ctx context.Context) (model.Message, error)
	ListCampuses(ctx context.Context, q string) ([]model.Campus, error)
}

// ProfileService defines profile and settings operations of the current user.
type ProfileService interface {
	// UpdateProfile saves username, bio and campus, then refreshes the session user.
	UpdateProfile(ctx context.Context, form ProfileForm) (model.User, error)
	// ChangePassword validates and sends a password change.
	ChangePassword(ctx context.Context, form PasswordForm) (string, error)
	// DeleteAccount deletes the account and logs out.
	DeleteAccount(ctx context.Context) (string, error)
	// UploadAvatar replaces the avatar and refreshes the session user.
	UploadAvatar(ctx context.Context, filename string, r io.Reader) (model.User, error)
	// DeleteAvatar removes the avatar and refreshes the session user.
	DeleteAvatar(ctx context.Context) (model.User, error)
	// Campuses lists campuses, falling back to the built-in list.
	Campuses(ctx context.Context, q string) ([]model.Campus, error)
}

type ProfileServiceImpl struct {
	api  ProfileAPI
	sess Session
	log  *zap.Logger
}

// NewProfileService constructs ProfileService with required dependencies.
func NewProfileService(api ProfileAPI, sess Session, log *zap.Logger) *ProfileServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileServiceImpl{api: api, sess: sess, log: log}
}

func (s *ProfileServiceImpl) UpdateProfile(ctx context.Context, form ProfileForm) (model.User, error) {
	if err := form.Validate(); err != nil {
		return model.User{}, err
	}
	if _, err := s.api.UpdateMe(ctx, form.Update()); err != nil {
		return model.User{}, err
	}
	return s.sess.RefreshMe(ctx)
}

func (s *ProfileServiceImpl) ChangePassword(ctx context.Context, form PasswordForm) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}
	msg, err := s.api.ChangePassword(ctx, model.PasswordChange{OldPassword: form.Current, NewPassword: form.New})
	if err != nil {
		return "", err
	}
	return orDefault(msg.Message, "Contraseña actualizada"), nil
}

// DeleteAccount logs out only when the backend confirmed the deletion.
func (s *ProfileServiceImpl) DeleteAccount(ctx context.Context) (string, error) {
	msg, err := s.api.DeleteMe(ctx)
	if err != nil {
		return "", err
	}
	s.sess.Logout()
	return orDefault(msg.Message, "Cuenta eliminada"), nil
}

func (s *ProfileServiceImpl) UploadAvatar(ctx context.Context, filename string, r io.Reader) (model.User, error) {
	res, err := s.api.UploadAvatar(ctx, filename, r)
	if err != nil {
		return model.User{}, err
	}
	s.log.Debug("avatar uploaded", zap.String("url", res.URL))
	return s.sess.RefreshMe(ctx)
}

func (s *ProfileServiceImpl) DeleteAvatar(ctx context.Context) (model.User, error) {
	if _, err := s.api.DeleteAvatar(ctx); err != nil {
		return model.User{}, err
	}
	return s.sess.RefreshMe(ctx)
}

// Campuses returns the backend list. When the backend fails or returns
// nothing the built-in list is used, filtered by q.
func (s *ProfileServiceImpl) Campuses(ctx context.Context, q string) ([]model.Campus, error) {
	list, err := s.api.ListCampuses(ctx, q)
	if err == nil && len(list) > 0 {
		return list, nil
	}
	if err != nil {
		s.log.Debug("campuses: using built-in list", zap.Error(err))
	}
	return filterCampuses(FallbackCampuses, q), nil
}

func filterCampuses(all []model.Campus, q string) []model.Campus {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]model.Campus, 0, len(all))
	for _, c := range all {
		if q == "" || strings.Contains(strings.ToLower(c.Code), q) || strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
