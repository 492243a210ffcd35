package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/api"
	"github.com/and161185/machtrueke/internal/api/mockapi"
	"github.com/and161185/machtrueke/internal/errs"
	"github.com/and161185/machtrueke/internal/model"
	"github.com/and161185/machtrueke/internal/tokenstore"
)

func TestNewServer_ServesMockAPI(t *testing.T) {
	srv := newServer(serverConfig{
		addr:     "127.0.0.1:0",
		tokenTTL: time.Minute,
		maxFails: 1,
		lockout:  time.Hour,
	}, zap.NewNop())
	require.Equal(t, "127.0.0.1:0", srv.Addr)

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	tokens := tokenstore.NewMemory()
	c := api.New(ts.URL, tokens)
	ctx := context.Background()

	campuses, err := c.ListCampuses(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, campuses)

	// maxFails=1 locks out on the first failure
	_, err = c.Login(ctx, model.Credentials{Email: mockapi.DemoEmail, Password: "nope"})
	require.ErrorIs(t, err, errs.ErrRateLimited)
}
