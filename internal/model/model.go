// Package model defines domain entities exchanged with the marketplace API.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID is an entity identifier. The backend sends integer ids for users and
// campuses but string ids for cards in mock mode, so both forms decode.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// User is the account returned by GET /auth/me. It is replaced wholesale on every fetch.
type User struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	CampusID  *int64 `json:"campus_id"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// Owner is the public face of a card's owner.
type Owner struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Card is one product presented for an accept/reject decision. Immutable once fetched.
type Card struct {
	ID          ID       `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Owner       Owner    `json:"owner"`
	Visible     *bool    `json:"visible,omitempty"`
}

// Cover returns the first image of the card, if any.
func (c Card) Cover() string {
	if len(c.Images) == 0 {
		return ""
	}
	return c.Images[0]
}

// MatchProduct is the product reference kept inside a Match.
type MatchProduct struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
	Cover string `json:"cover"`
}

// Match is a recorded positive decision linking the current user to a product and its owner.
type Match struct {
	ID        ID           `json:"id"`
	Product   MatchProduct `json:"product"`
	Owner     Owner        `json:"owner"`
	Note      string       `json:"note"`
	CreatedAt time.Time    `json:"created_at"`
}

// Campus is an entry of GET /auth/campuses.
type Campus struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Label returns the display name, falling back to the code.
func (c Campus) Label() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.Code
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	CampusID        int64  `json:"campus_id"`
}

// Credentials are sent form-encoded to POST /auth/login (username = email).
type Credentials struct {
	Email    string
	Password string
}

// LoginResult is returned by login and, optionally, by register.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// ProfileUpdate is the body of PUT /auth/me. A nil Bio or CampusID is sent as null.
type ProfileUpdate struct {
	Username string  `json:"username"`
	Bio      *string `json:"bio"`
	CampusID *int64  `json:"campus_id"`
}

// PasswordChange is the body of POST /auth/me/change-password.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Message is a plain acknowledgement body.
type Message struct {
	Message string `json:"message"`
}

// Items wraps list responses of the /api endpoints.
type Items[T any] struct {
	Items []T `json:"items"`
}
