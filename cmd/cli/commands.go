package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/machtrueke/internal/guard"
	"github.com/and161185/machtrueke/internal/service"
)

var errUsage = errors.New("usage")

// run dispatches one subcommand. Every command hydrates the session first.
func (a *app) run(args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	// swipe is interactive; each request is still bounded by the HTTP timeout
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if cmd == "swipe" {
		ctx, cancel = context.WithCancel(context.Background())
	} else {
		ctx, cancel = withTimeout(30 * time.Second)
	}
	defer cancel()

	switch cmd {
	case "version":
		fmt.Fprintf(a.out, "mt %s (%s)\n", version, buildDate)
		return nil
	case "register":
		return a.cmdRegister(ctx, rest)
	case "login":
		return a.cmdLogin(ctx, rest)
	case "logout":
		a.sess.Init(ctx)
		a.account.SignOut()
		fmt.Fprintln(a.out, "ok")
		return nil
	case "whoami":
		snap, err := a.requireUser(ctx)
		if err != nil {
			return err
		}
		printJSON(a.out, snap.User)
		return nil
	case "open":
		return a.cmdOpen(ctx, rest)
	case "profile-update":
		return a.cmdProfileUpdate(ctx, rest)
	case "passwd":
		return a.cmdPasswd(ctx, rest)
	case "delete-account":
		return a.cmdDeleteAccount(ctx, rest)
	case "avatar-set":
		return a.cmdAvatarSet(ctx, rest)
	case "avatar-rm":
		if _, err := a.requireUser(ctx); err != nil {
			return err
		}
		if _, err := a.profile.DeleteAvatar(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "ok")
		return nil
	case "campuses":
		fs := newFlagSet("campuses")
		q := fs.String("q", "", "filter by code or name")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		a.sess.Init(ctx)
		list, err := a.profile.Campuses(ctx, *q)
		if err != nil {
			return err
		}
		for _, c := range list {
			fmt.Fprintf(a.out, "%d\t%s\t%s\n", c.ID, c.Code, c.Label())
		}
		return nil
	case "products":
		if _, err := a.requireUser(ctx); err != nil {
			return err
		}
		cards, err := a.client.ListMyProducts(ctx)
		if err != nil {
			return err
		}
		printJSON(a.out, cards)
		return nil
	case "matches":
		if _, err := a.requireUser(ctx); err != nil {
			return err
		}
		ms, err := a.matches.Load(ctx)
		if err != nil {
			return err
		}
		printJSON(a.out, ms)
		return nil
	case "swipe":
		if _, err := a.requireUser(ctx); err != nil {
			return err
		}
		return a.runSwipe(ctx)
	}
	return errUsage
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// cmdRegister creates an account and signs it in.
func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	user := fs.String("u", "", "username")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	pass := fs.String("p", "", "password")
	confirm := fs.String("confirm", "", "password confirmation (defaults to -p)")
	campus := fs.Int64("campus", 0, "campus id (see: mt campuses)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *confirm == "" {
		*confirm = *pass
	}

	a.sess.Init(ctx)
	u, err := a.account.SignUp(ctx, service.SignUpForm{
		Username:        *user,
		FullName:        *name,
		CampusID:        *campus,
		Email:           *email,
		Password:        *pass,
		ConfirmPassword: *confirm,
	})
	if err != nil {
		return err
	}
	printJSON(a.out, u)
	return nil
}

// cmdLogin signs in and reports where the app lands.
func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a.sess.Init(ctx)
	u, err := a.account.SignIn(ctx, *email, *pass)
	if err != nil {
		return err
	}
	d := guard.Decide(guard.Login, a.sess.Snapshot())
	fmt.Fprintf(a.out, "ok %s -> %s\n", u.Email, d.Target)
	return nil
}

// cmdOpen prints the route guard decision for a view.
func (a *app) cmdOpen(ctx context.Context, args []string) error {
	fs := newFlagSet("open")
	p := fs.String("path", guard.Home, "view path")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	d := guard.Decide(*p, a.sess.Init(ctx))
	if d.Target == "" {
		fmt.Fprintln(a.out, d.Kind)
		return nil
	}
	fmt.Fprintf(a.out, "%s %s\n", d.Kind, d.Target)
	return nil
}

// cmdProfileUpdate edits the profile; omitted flags keep current values.
func (a *app) cmdProfileUpdate(ctx context.Context, args []string) error {
	snap, err := a.requireUser(ctx)
	if err != nil {
		return err
	}
	cur := snap.User
	var campusID int64
	if cur.CampusID != nil {
		campusID = *cur.CampusID
	}

	fs := newFlagSet("profile-update")
	user := fs.String("u", cur.Username, "username")
	bio := fs.String("bio", cur.Bio, "bio")
	campus := fs.Int64("campus", campusID, "campus id (0 clears)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	u, err := a.profile.UpdateProfile(ctx, service.ProfileForm{Username: *user, Bio: *bio, CampusID: *campus})
	if err != nil {
		return err
	}
	printJSON(a.out, u)
	return nil
}

func (a *app) cmdPasswd(ctx context.Context, args []string) error {
	fs := newFlagSet("passwd")
	old := fs.String("old", "", "current password")
	next := fs.String("new", "", "new password")
	confirm := fs.String("confirm", "", "new password again")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}
	msg, err := a.profile.ChangePassword(ctx, service.PasswordForm{Current: *old, New: *next, Confirm: *confirm})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) cmdDeleteAccount(ctx context.Context, args []string) error {
	fs := newFlagSet("delete-account")
	yes := fs.Bool("yes", false, "confirm irreversible deletion")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if !*yes {
		return errors.New("refusing to delete the account without -yes")
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}
	msg, err := a.profile.DeleteAccount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) cmdAvatarSet(ctx context.Context, args []string) error {
	fs := newFlagSet("avatar-set")
	file := fs.String("file", "", "image file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *file == "" {
		return errors.New("need -file")
	}
	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := a.requireUser(ctx); err != nil {
		return err
	}
	u, err := a.profile.UploadAvatar(ctx, filepath.Base(*file), f)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, u.AvatarURL)
	return nil
}
