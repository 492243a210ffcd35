package service

import (
	"regexp"
	"strings"

	"github.com/and161185/machtrueke/internal/errs"
	"github.com/and161185/machtrueke/internal/model"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SignUpForm is the account creation form.
type SignUpForm struct {
	Username        string
	FullName        string
	CampusID        int64
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks fields in form order and reports the first failure.
func (f SignUpForm) Validate() error {
	switch {
	case strings.TrimSpace(f.Username) == "":
		return errs.Invalid("username", "El nombre de usuario es obligatorio.")
	case strings.TrimSpace(f.FullName) == "":
		return errs.Invalid("full_name", "El nombre completo es obligatorio.")
	case f.CampusID <= 0:
		return errs.Invalid("campus_id", "Selecciona un campus.")
	case strings.TrimSpace(f.Email) == "":
		return errs.Invalid("email", "El correo es obligatorio.")
	case !emailRE.MatchString(strings.TrimSpace(f.Email)):
		return errs.Invalid("email", "Correo inválido.")
	case len(f.Password) < MinPasswordLen:
		return errs.Invalid("password", "La contraseña debe tener al menos 8 caracteres.")
	case f.Password != f.ConfirmPassword:
		return errs.Invalid("confirm_password", "Las contraseñas no coinciden.")
	}
	return nil
}

// Registration builds the normalized register payload.
func (f SignUpForm) Registration() model.Registration {
	return model.Registration{
		Username:        strings.TrimSpace(f.Username),
		FullName:        strings.TrimSpace(f.FullName),
		Email:           NormalizeEmail(f.Email),
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
		CampusID:        f.CampusID,
	}
}

// ProfileForm holds the editable profile fields. CampusID 0 clears the campus.
type ProfileForm struct {
	Username string
	Bio      string
	CampusID int64
}

// Validate requires a username.
func (f ProfileForm) Validate() error {
	if strings.TrimSpace(f.Username) == "" {
		return errs.Invalid("username", "El nombre de usuario es obligatorio.")
	}
	return nil
}

// Update builds the PUT /auth/me payload.
func (f ProfileForm) Update() model.ProfileUpdate {
	bio := f.Bio
	upd := model.ProfileUpdate{Username: strings.TrimSpace(f.Username), Bio: &bio}
	if f.CampusID > 0 {
		id := f.CampusID
		upd.CampusID = &id
	}
	return upd
}

// PasswordForm is the change-password form.
type PasswordForm struct {
	Current string
	New     string
	Confirm string
}

// Validate checks the form the way the settings view does.
func (f PasswordForm) Validate() error {
	switch {
	case f.Current == "" || f.New == "":
		return errs.Invalid("password", "Completa los campos de contraseña.")
	case len(f.New) < MinPasswordLen:
		return errs.Invalid("new_password", "La nueva contraseña debe tener al menos 8 caracteres.")
	case f.New != f.Confirm:
		return errs.Invalid("confirm_password", "La confirmación no coincide.")
	}
	return nil
}
