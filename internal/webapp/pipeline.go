// ABOUTME: Request pipeline: session entry, authentication gate, authorization filter, handler, interception
// ABOUTME: Handlers return errors; the interceptor turns them into plain-text responses

package webapp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/2389/pokercircle/internal/auth"
	"github.com/2389/pokercircle/internal/store"
)

// Public response texts.
const (
	MsgPageNotFound  = "page not found"
	MsgEventNotFound = "event not found"
	MsgBadFormToken  = "invalid form token, please reload the page and try again"
)

// HTTPError is a handler failure with a status and member-facing message.
type HTTPError struct {
	Status  int
	Message string
	// Err is logged but never shown.
	Err error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// badRequest returns a 400 carrying msg.
func badRequest(msg string) error {
	return &HTTPError{Status: http.StatusBadRequest, Message: msg}
}

var errPageNotFound = &HTTPError{Status: http.StatusNotFound, Message: MsgPageNotFound}

// notFoundPattern is the catch-all route; requests it serves are counted as unmatched.
const notFoundPattern = "/"

// access is the gate level a route declares.
type access int

const (
	accessPublic access = iota
	accessMember
	accessAdmin
)

// requestContext is the per-request state threaded through the pipeline.
// Notices is filled when a page renders.
type requestContext struct {
	Session   *store.Session
	Principal *store.Member
	Notices   []store.Notice
	CSRFToken string
}

// appHandler is a pipeline-aware handler. A non-nil error is intercepted.
type appHandler func(w http.ResponseWriter, r *http.Request, rc *requestContext) error

// wrap runs a handler behind the pipeline stages for the given access level.
func (a *App) wrap(level access, h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				a.intercept(w, r, fmt.Errorf("panic: %v", p))
			}
		}()

		rc, err := a.enter(w, r)
		if err != nil {
			a.intercept(w, r, err)
			return
		}
		r = r.WithContext(auth.WithPrincipal(r.Context(), rc.Principal))

		switch level {
		case accessMember:
			if rc.Principal == nil {
				a.deny(w, r, rc, auth.ErrUnauthenticated)
				return
			}
		case accessAdmin:
			if err := auth.Authorize(rc.Principal, store.RoleAdmin); err != nil {
				a.deny(w, r, rc, err)
				return
			}
		}

		if isStateChanging(r.Method) && !a.validateCSRF(r) {
			a.metrics.denial("csrf")
			a.intercept(w, r, &HTTPError{Status: http.StatusForbidden, Message: MsgBadFormToken})
			return
		}

		if err := h(w, r, rc); err != nil {
			a.intercept(w, r, err)
		}
	}
}

// enter resolves the session and its bound member. A binding that names a
// member who no longer exists is cleared.
func (a *App) enter(w http.ResponseWriter, r *http.Request) (*requestContext, error) {
	ctx := r.Context()

	sess, err := a.sessions.Resolve(ctx, w, r)
	if err != nil {
		return nil, err
	}
	rc := &requestContext{Session: sess}

	if sess.Authenticated() {
		member, err := a.store.GetMember(ctx, sess.MemberID)
		switch {
		case err == nil:
			rc.Principal = member
		case errors.Is(err, store.ErrNotFound):
			a.logger.Warn("session bound to missing member, unbinding", "member_id", sess.MemberID)
			if rc.Session, err = a.sessions.Unbind(ctx, w, r, sess); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("loading principal: %w", err)
		}
	}

	rc.CSRFToken = a.ensureCSRFToken(w, r)
	return rc, nil
}

// deny terminates a gated request with a notice and a redirect.
func (a *App) deny(w http.ResponseWriter, r *http.Request, rc *requestContext, reason error) {
	target := "/login"
	label := "unauthenticated"
	if errors.Is(reason, auth.ErrForbidden) {
		target = "/platform"
		label = "forbidden"
	}
	a.metrics.denial(label)
	a.logger.Debug("request denied", "path", r.URL.Path, "reason", label)

	if err := a.redirectWithNotice(w, r, rc, target, store.NoticeError, auth.PublicMessage(reason)); err != nil {
		a.intercept(w, r, err)
	}
}

// intercept writes the response for a failed request. Only *HTTPError
// messages reach the client; everything else is a generic 500.
func (a *App) intercept(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := auth.MsgInternal

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Status
		message = httpErr.Message
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		a.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	http.Error(w, message, status)
}

// notify queues a notice on the request's session.
func (a *App) notify(r *http.Request, rc *requestContext, kind store.NoticeKind, text string) error {
	return a.sessions.Enqueue(r.Context(), rc.Session, kind, text)
}

// redirectWithNotice queues a notice and redirects. Notices are never drained on redirects.
func (a *App) redirectWithNotice(w http.ResponseWriter, r *http.Request, rc *requestContext, target string, kind store.NoticeKind, text string) error {
	if err := a.notify(r, rc, kind, text); err != nil {
		return err
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
	return nil
}

func (a *App) handleNotFound(w http.ResponseWriter, r *http.Request) {
	a.intercept(w, r, errPageNotFound)
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
