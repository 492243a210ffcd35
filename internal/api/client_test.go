package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/machtrueke/internal/errs"
	"github.com/and161185/machtrueke/internal/model"
	"github.com/and161185/machtrueke/internal/tokenstore"
)

type captured struct {
	method, path, query string
	auth, contentType   string
	body                string
}

func newServer(t *testing.T, status int, resp string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if got != nil {
			*got = captured{
				method:      r.Method,
				path:        r.URL.Path,
				query:       r.URL.RawQuery,
				auth:        r.Header.Get("Authorization"),
				contentType: r.Header.Get("Content-Type"),
				body:        string(b),
			}
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withToken(t *testing.T, tok string) *tokenstore.Memory {
	t.Helper()
	m := tokenstore.NewMemory()
	if tok != "" {
		require.NoError(t, m.Save(tok))
	}
	return m
}

func TestClient_BearerOnlyWhenTokenPresent(t *testing.T) {
	t.Parallel()
	var got captured
	srv := newServer(t, 200, `{"id":"u1","email":"a@b.com"}`, &got)

	c := New(srv.URL+"/", withToken(t, ""))
	_, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Empty(t, got.auth)
	require.Equal(t, "application/json", got.contentType)

	c = New(srv.URL, withToken(t, "tok-1"))
	u, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-1", got.auth)
	require.Equal(t, http.MethodGet, got.method)
	require.Equal(t, "/auth/me", got.path)
	require.Equal(t, "a@b.com", u.Email)

	c = New(srv.URL, nil)
	_, err = c.Me(context.Background())
	require.NoError(t, err)
	require.Empty(t, got.auth)
}

func TestClient_LoginIsFormEncoded(t *testing.T) {
	t.Parallel()
	var got captured
	srv := newServer(t, 200, `{"access_token":"jwt","token_type":"bearer"}`, &got)

	res, err := New(srv.URL, nil).Login(context.Background(), model.Credentials{Email: "a@b.com", Password: "p w"})
	require.NoError(t, err)
	require.Equal(t, "jwt", res.AccessToken)
	require.Equal(t, "/auth/login", got.path)
	require.Equal(t, "application/x-www-form-urlencoded", got.contentType)
	require.Equal(t, "password=p+w&username=a%40b.com", got.body)
}

func TestClient_SignupShapes(t *testing.T) {
	t.Parallel()
	var got captured

	srv := newServer(t, 201, `{"id":3,"email":"n@alumnos.udg.mx"}`, &got)
	res, err := New(srv.URL, nil).Signup(context.Background(), model.Registration{Email: "n@alumnos.udg.mx", CampusID: 2})
	require.NoError(t, err)
	require.Empty(t, res.AccessToken)
	require.NotNil(t, res.User)
	require.Equal(t, model.ID("3"), res.User.ID)
	require.Equal(t, "/auth/register", got.path)
	require.Contains(t, got.body, `"campus_id":2`)
	require.Contains(t, got.body, `"confirm_password"`)

	srv = newServer(t, 200, `{"access_token":"t","user":{"id":"u9"}}`, nil)
	res, err = New(srv.URL, nil).Signup(context.Background(), model.Registration{})
	require.NoError(t, err)
	require.Equal(t, "t", res.AccessToken)
	require.Equal(t, model.ID("u9"), res.User.ID)

	srv = newServer(t, 201, ``, nil)
	res, err = New(srv.URL, nil).Signup(context.Background(), model.Registration{})
	require.NoError(t, err)
	require.Equal(t, model.LoginResult{}, res)
}

func TestClient_ErrorNormalization(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   string
		is     error
	}{
		{"detail string", 401, `{"detail":"Credenciales inválidas"}`, "Credenciales inválidas", errs.ErrUnauthorized},
		{"detail list", 422, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email"}]}`, "value is not a valid email", errs.ErrValidation},
		{"message key", 409, `{"message":"taken"}`, "taken", errs.ErrAlreadyExists},
		{"error key", 404, `{"error":"Pair not found"}`, "Pair not found", errs.ErrNotFound},
		{"plain text", 500, `Internal Server Error`, "Internal Server Error", nil},
		{"json without message", 500, `{"foo":1}`, "HTTP 500", nil},
		{"empty body", 503, ``, "HTTP 503", nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, tc.status, tc.body, nil)
			_, err := New(srv.URL, nil).ListCampuses(context.Background(), "")
			require.Error(t, err)

			var he *errs.HTTPError
			require.True(t, errors.As(err, &he))
			require.Equal(t, tc.status, he.Status)
			require.Equal(t, tc.want, he.Message)
			if tc.is != nil {
				require.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestClient_MalformedSuccessBodyIsAbsent(t *testing.T) {
	t.Parallel()

	srv := newServer(t, 200, `<html>oops</html>`, nil)
	c := New(srv.URL, nil)

	items, err := c.ListMyProducts(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)

	_, err = c.Me(context.Background())
	require.ErrorIs(t, err, ErrEmptyResponse)

	u, err := c.UpdateMe(context.Background(), model.ProfileUpdate{Username: "x"})
	require.NoError(t, err)
	require.Nil(t, u)
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil, WithTimeout(2*time.Second)).Me(context.Background())
	require.Error(t, err)
	require.Zero(t, errs.StatusOf(err))
	require.True(t, strings.HasPrefix(err.Error(), "me: "))
}

func TestClient_ListCampusesQuery(t *testing.T) {
	t.Parallel()
	var got captured
	srv := newServer(t, 200, `[{"id":1,"code":"CUCEI","name":"Ciencias Exactas"}]`, &got)

	out, err := New(srv.URL, nil).ListCampuses(context.Background(), "ciencias exactas")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "/auth/campuses", got.path)
	require.Equal(t, "q=ciencias+exactas", got.query)

	_, err = New(srv.URL, nil).ListCampuses(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, got.query)
}

func TestClient_ProfileCalls(t *testing.T) {
	t.Parallel()
	var got captured
	srv := newServer(t, 200, `{"message":"ok"}`, &got)
	c := New(srv.URL, withToken(t, "tok"))
	ctx := context.Background()

	bio := "hola"
	_, err := c.UpdateMe(ctx, model.ProfileUpdate{Username: "luna", Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, http.MethodPut, got.method)
	require.JSONEq(t, `{"username":"luna","bio":"hola","campus_id":null}`, got.body)

	m, err := c.ChangePassword(ctx, model.PasswordChange{OldPassword: "a", NewPassword: "bbbbbbbb"})
	require.NoError(t, err)
	require.Equal(t, "ok", m.Message)
	require.Equal(t, "/auth/me/change-password", got.path)
	require.JSONEq(t, `{"old_password":"a","new_password":"bbbbbbbb"}`, got.body)

	_, err = c.DeleteMe(ctx)
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, got.method)
	require.Equal(t, "/auth/me", got.path)

	_, err = c.DeleteAvatar(ctx)
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, got.method)
	require.Equal(t, "/auth/me/avatar", got.path)
}

func TestClient_UploadAvatarMultipart(t *testing.T) {
	t.Parallel()

	var (
		fileName, fileBody, ct string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct = r.Header.Get("Content-Type")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(400)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		fileName, fileBody = hdr.Filename, string(b)
		_, _ = io.WriteString(w, `{"id":"u1","avatar_url":"/static/a.png"}`)
	}))
	t.Cleanup(srv.Close)

	res, err := New(srv.URL, withToken(t, "tok")).UploadAvatar(context.Background(), "me.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ct, "multipart/form-data; boundary="))
	require.Equal(t, "me.png", fileName)
	require.Equal(t, "PNGDATA", fileBody)
	require.Equal(t, "/static/a.png", res.URL)
	require.NotNil(t, res.User)
	require.Equal(t, "/static/a.png", res.User.AvatarURL)
}

func TestDecodeAvatar(t *testing.T) {
	t.Parallel()

	require.Equal(t, AvatarResult{URL: "/x.png"}, decodeAvatar([]byte(`"/x.png"`)))
	require.Equal(t, AvatarResult{URL: "/y.png"}, decodeAvatar([]byte(`{"url":"/y.png"}`)))
	require.Equal(t, AvatarResult{}, decodeAvatar([]byte(`[1]`)))
}

func TestClient_MatchCalls(t *testing.T) {
	t.Parallel()
	var got captured
	srv := newServer(t, 201, `{"match":{"id":"m1","product":{"id":"p1","title":"Mochila"},"note":"Nuevo match","created_at":"2025-01-02T03:04:05Z"}}`, &got)
	c := New(srv.URL, withToken(t, "tok"))

	m, err := c.CreateMatch(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "/api/likes", got.path)
	require.JSONEq(t, `{"productId":"p1"}`, got.body)
	require.Equal(t, model.ID("m1"), m.ID)
	require.Equal(t, model.ID("p1"), m.Product.ID)
	require.Equal(t, 2025, m.CreatedAt.Year())

	srv = newServer(t, 200, `{"id":"m2","product":{"id":"p2"}}`, nil)
	m, err = New(srv.URL, nil).CreateMatch(context.Background(), "p2")
	require.NoError(t, err)
	require.Equal(t, model.ID("m2"), m.ID)

	srv = newServer(t, 200, `{"items":[{"id":"m1","product":{"id":"p1"}},{"id":"m2","product":{"id":"p2"}}]}`, &got)
	list, err := New(srv.URL, nil).ListMyMatches(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "/api/likes/mine", got.path)
}

func TestClient_ContextCancelled(t *testing.T) {
	t.Parallel()
	srv := newServer(t, 200, `{}`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, nil).ListMyProducts(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
