// ABOUTME: Handlers for the public pages: home, registration, login and logout
// ABOUTME: Form failures redirect back with a notice; infrastructure failures are intercepted

package webapp

import (
	"errors"
	"net/http"

	"github.com/2389/pokercircle/internal/auth"
	"github.com/2389/pokercircle/internal/store"
)

func (a *App) handleHome(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	return a.render(w, r, rc, "home.html", "Poker Circle", nil)
}

func (a *App) handleRegisterPage(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	return a.render(w, r, rc, "register.html", "Register", nil)
}

// handleRegister creates a member and logs them in. New members always get
// the member role; administrators are created from the command line.
func (a *App) handleRegister(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	ctx := r.Context()

	member, err := a.gate.Register(ctx, auth.RegisterInput{
		MemberNumber: r.FormValue("memberNumber"),
		DisplayName:  r.FormValue("username"),
		Role:         store.RoleMember,
		Password:     r.FormValue("password"),
	})
	if err != nil {
		msg := auth.PublicMessage(err)
		if msg == auth.MsgInternal {
			a.metrics.registration("error")
			return err
		}
		a.metrics.registration("rejected")
		return a.redirectWithNotice(w, r, rc, "/register", store.NoticeError, msg)
	}

	sess, err := a.sessions.Bind(ctx, w, r, rc.Session, member.ID)
	if err != nil {
		return err
	}
	rc.Session = sess
	rc.Principal = member

	a.metrics.registration("success")
	a.logger.Info("member registered", "member_number", member.MemberNumber)
	return a.redirectWithNotice(w, r, rc, "/platform", store.NoticeSuccess, "welcome to the circle, "+member.DisplayName)
}

func (a *App) handleLoginPage(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	return a.render(w, r, rc, "login.html", "Log in", nil)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	ctx := r.Context()

	member, err := a.gate.Authenticate(ctx, r.FormValue("memberNumber"), r.FormValue("password"))
	if err != nil {
		msg := auth.PublicMessage(err)
		if msg == auth.MsgInternal {
			a.metrics.login("error")
			return err
		}
		outcome := "failure"
		if errors.Is(err, auth.ErrTooManyAttempts) {
			outcome = "limited"
		}
		a.metrics.login(outcome)
		return a.redirectWithNotice(w, r, rc, "/login", store.NoticeError, msg)
	}

	sess, err := a.sessions.Bind(ctx, w, r, rc.Session, member.ID)
	if err != nil {
		return err
	}
	rc.Session = sess
	rc.Principal = member

	a.metrics.login("success")
	return a.redirectWithNotice(w, r, rc, "/platform", store.NoticeSuccess, "welcome back, "+member.DisplayName)
}

// handleLogout clears the binding. It is public so a stale session can always log out.
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	if rc.Principal == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil
	}

	sess, err := a.sessions.Unbind(r.Context(), w, r, rc.Session)
	if err != nil {
		return err
	}
	rc.Session = sess
	rc.Principal = nil

	return a.redirectWithNotice(w, r, rc, "/login", store.NoticeSuccess, "you have been logged out")
}
