// Package guard decides what a navigation to a view should produce given the
// current session. Decisions are recomputed on every call; nothing is cached.
package guard

import (
	"path"
	"strings"

	"github.com/and161185/machtrueke/internal/session"
)

// Views of the application.
const (
	Home            = "/"
	Login           = "/login"
	Signup          = "/signup"
	Likes           = "/likes"
	Profile         = "/profile"
	ProfileProducts = "/profile/products"
	ProfileSettings = "/profile/settings"
)

// Landing is where authenticated users are sent from public-only views.
const Landing = Profile

// Access is the gate of a route.
type Access int

const (
	// PublicOnly routes are for anonymous users (login, signup).
	PublicOnly Access = iota
	// Private routes require authentication.
	Private
)

// Routes maps every known view to its gate.
var Routes = map[string]Access{
	Login:           PublicOnly,
	Signup:          PublicOnly,
	Home:            Private,
	Likes:           Private,
	Profile:         Private,
	ProfileProducts: Private,
	ProfileSettings: Private,
}

// Kind is the outcome of a navigation.
type Kind int

const (
	// Placeholder: hydration is still running, no decision is made.
	Placeholder Kind = iota
	// Render the requested view.
	Render
	// Redirect to Target.
	Redirect
	// NotFound: the path names no view.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Placeholder:
		return "placeholder"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case NotFound:
		return "not-found"
	}
	return "unknown"
}

// Decision is the result of Decide. Target is the view to show for Render
// and Redirect.
type Decision struct {
	Kind   Kind
	Target string
}

// Normalize cleans p into the form used by Routes ("/profile/", "profile"
// and "/profile?x=1" all become "/profile").
func Normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Clean("/" + strings.TrimSpace(p))
}

// Decide returns what navigating to p should produce for session s.
func Decide(p string, s session.Snapshot) Decision {
	if s.IsLoading {
		return Decision{Kind: Placeholder}
	}
	p = Normalize(p)
	access, ok := Routes[p]
	if !ok {
		return Decision{Kind: NotFound, Target: p}
	}
	switch {
	case access == Private && !s.IsAuthenticated:
		return Decision{Kind: Redirect, Target: Login}
	case access == PublicOnly && s.IsAuthenticated:
		return Decision{Kind: Redirect, Target: Landing}
	}
	return Decision{Kind: Render, Target: p}
}
