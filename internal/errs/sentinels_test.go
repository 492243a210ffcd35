package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPError_IsMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		target error
	}{
		{401, ErrUnauthorized},
		{403, ErrUnauthorized},
		{404, ErrNotFound},
		{409, ErrAlreadyExists},
		{400, ErrValidation},
		{422, ErrValidation},
		{429, ErrRateLimited},
	}
	for _, c := range cases {
		err := fmt.Errorf("op: %w", &HTTPError{Status: c.status, Message: "x"})
		require.ErrorIs(t, err, c.target, "status %d", c.status)
	}
	require.NotErrorIs(t, &HTTPError{Status: 500}, ErrUnauthorized)
	require.NotErrorIs(t, &HTTPError{Status: 401}, ErrRateLimited)
}

func TestHTTPError_MessageFallback(t *testing.T) {
	t.Parallel()

	require.Equal(t, "HTTP 502", (&HTTPError{Status: 502}).Error())
	require.Equal(t, "Email ya registrado", (&HTTPError{Status: 400, Message: "Email ya registrado"}).Error())
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, 418, StatusOf(fmt.Errorf("wrap: %w", &HTTPError{Status: 418})))
	require.Zero(t, StatusOf(errors.New("plain")))
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := Invalid("email", "Correo inválido.")
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "email", ve.Field)
	require.Equal(t, "Correo inválido.", err.Error())
}
