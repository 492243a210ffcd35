package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/and161185/machtrueke/internal/model"
)

// Signup registers an account. The backend answers either with the created
// user or with a login result; both shapes are folded into LoginResult.
func (c *Client) Signup(ctx context.Context, reg model.Registration) (model.LoginResult, error) {
	var raw json.RawMessage
	ok, err := c.do(ctx, "signup", http.MethodPost, "/auth/register", reg, &raw)
	if err != nil || !ok {
		return model.LoginResult{}, err
	}
	var res model.LoginResult
	_ = json.Unmarshal(raw, &res)
	if res.AccessToken == "" && res.User == nil {
		var u model.User
		if json.Unmarshal(raw, &u) == nil && (u.ID != "" || u.Email != "") {
			res.User = &u
		}
	}
	return res, nil
}

// Login posts form-encoded credentials (username carries the email).
func (c *Client) Login(ctx context.Context, cr model.Credentials) (model.LoginResult, error) {
	form := url.Values{}
	form.Set("username", cr.Email)
	form.Set("password", cr.Password)

	var res model.LoginResult
	if _, err := c.do(ctx, "login", http.MethodPost, "/auth/login", form, &res); err != nil {
		return model.LoginResult{}, err
	}
	return res, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	ok, err := c.do(ctx, "me", http.MethodGet, "/auth/me", nil, &u)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, fmt.Errorf("me: %w", ErrEmptyResponse)
	}
	return u, nil
}

// UpdateMe edits the profile. The returned user is nil when the backend sends no body.
func (c *Client) UpdateMe(ctx context.Context, upd model.ProfileUpdate) (*model.User, error) {
	var u model.User
	ok, err := c.do(ctx, "update me", http.MethodPut, "/auth/me", upd, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// ChangePassword changes the password of the current user.
func (c *Client) ChangePassword(ctx context.Context, pc model.PasswordChange) (model.Message, error) {
	var m model.Message
	_, err := c.do(ctx, "change password", http.MethodPost, "/auth/me/change-password", pc, &m)
	return m, err
}

// DeleteMe deletes the current account.
func (c *Client) DeleteMe(ctx context.Context) (model.Message, error) {
	var m model.Message
	_, err := c.do(ctx, "delete me", http.MethodDelete, "/auth/me", nil, &m)
	return m, err
}

// AvatarResult is the answer of an avatar upload: an updated user, a bare URL, or both.
type AvatarResult struct {
	User *model.User
	URL  string
}

// UploadAvatar sends the image as multipart field "file".
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (AvatarResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return AvatarResult{}, fmt.Errorf("upload avatar: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return AvatarResult{}, fmt.Errorf("upload avatar: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return AvatarResult{}, fmt.Errorf("upload avatar: %w", err)
	}

	var raw json.RawMessage
	body := multipartBody{contentType: mw.FormDataContentType(), data: buf.Bytes()}
	ok, err := c.do(ctx, "upload avatar", http.MethodPost, "/auth/me/avatar", body, &raw)
	if err != nil || !ok {
		return AvatarResult{}, err
	}
	return decodeAvatar(raw), nil
}

func decodeAvatar(raw json.RawMessage) AvatarResult {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return AvatarResult{URL: s}
	}
	var probe struct {
		ID        model.ID `json:"id"`
		URL       string   `json:"url"`
		AvatarURL string   `json:"avatar_url"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		return AvatarResult{}
	}
	res := AvatarResult{URL: probe.URL}
	if res.URL == "" {
		res.URL = probe.AvatarURL
	}
	if probe.ID != "" {
		var u model.User
		if json.Unmarshal(raw, &u) == nil {
			res.User = &u
		}
	}
	return res
}

// DeleteAvatar removes the avatar of the current user.
func (c *Client) DeleteAvatar(ctx context.Context) (model.Message, error) {
	var m model.Message
	_, err := c.do(ctx, "delete avatar", http.MethodDelete, "/auth/me/avatar", nil, &m)
	return m, err
}

// ListCampuses lists campuses, optionally filtered by q.
func (c *Client) ListCampuses(ctx context.Context, q string) ([]model.Campus, error) {
	path := "/auth/campuses"
	if q != "" {
		path += "?q=" + url.QueryEscape(q)
	}
	var out []model.Campus
	if _, err := c.do(ctx, "list campuses", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
