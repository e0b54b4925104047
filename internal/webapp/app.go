// ABOUTME: Web application wiring: dependencies, route table and middleware stack
// ABOUTME: Every route declares its access level; unmatched requests fall through to a 404

package webapp

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/pokercircle/internal/auth"
	"github.com/2389/pokercircle/internal/session"
	"github.com/2389/pokercircle/internal/store"
)

// Config holds optional web app settings.
type Config struct {
	// Location is used for date inputs and month windows. Defaults to time.Local.
	Location *time.Location
	// Metrics may be nil to disable instrumentation.
	Metrics *Metrics
	// SecureCookies forces the Secure flag on the CSRF cookie.
	SecureCookies bool
}

// App serves the membership site.
type App struct {
	store         store.Store
	sessions      *session.Manager
	gate          *auth.Gate
	metrics       *Metrics
	location      *time.Location
	secureCookies bool
	pages         map[string]*template.Template
	logger        *slog.Logger
	now           func() time.Time
}

// New creates the app and parses its templates.
func New(st store.Store, sessions *session.Manager, gate *auth.Gate, cfg Config) (*App, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	pages, err := parsePages(loc)
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &App{
		store:         st,
		sessions:      sessions,
		gate:          gate,
		metrics:       cfg.Metrics,
		location:      loc,
		secureCookies: cfg.SecureCookies,
		pages:         pages,
		logger:        slog.Default().With("component", "webapp"),
		now:           time.Now,
	}, nil
}

// Handler returns the app's root handler with middleware applied.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return methodOverride(a.observe(mux))
}

// RegisterRoutes registers all routes on the given mux.
func (a *App) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("GET /{$}", a.wrap(accessPublic, a.handleHome))
	mux.HandleFunc("GET /register", a.wrap(accessPublic, a.handleRegisterPage))
	mux.HandleFunc("POST /register", a.wrap(accessPublic, a.handleRegister))
	mux.HandleFunc("GET /login", a.wrap(accessPublic, a.handleLoginPage))
	mux.HandleFunc("POST /login", a.wrap(accessPublic, a.handleLogin))
	mux.HandleFunc("GET /logout", a.wrap(accessPublic, a.handleLogout))

	// Member routes
	mux.HandleFunc("GET /platform", a.wrap(accessMember, a.handlePlatform))
	mux.HandleFunc("GET /platform/addlog", a.wrap(accessMember, a.handleAddLogPage))
	mux.HandleFunc("POST /platform/addlog", a.wrap(accessMember, a.handleAddLog))
	mux.HandleFunc("GET /platform/individualRecord", a.wrap(accessMember, a.handleIndividualRecord))

	// Admin routes
	mux.HandleFunc("GET /platform/event", a.wrap(accessAdmin, a.handleEventList))
	mux.HandleFunc("GET /platform/event/addEvent", a.wrap(accessAdmin, a.handleAddEventPage))
	mux.HandleFunc("POST /platform/event/addEvent", a.wrap(accessAdmin, a.handleAddEvent))
	mux.HandleFunc("GET /platform/event/{id}", a.wrap(accessAdmin, a.handleEventShow))
	mux.HandleFunc("PUT /platform/event/{id}", a.wrap(accessAdmin, a.handleEventUpdate))
	mux.HandleFunc("DELETE /platform/event/{id}", a.wrap(accessAdmin, a.handleEventDelete))
	mux.HandleFunc("GET /platform/event/{id}/edit", a.wrap(accessAdmin, a.handleEventEdit))

	// Everything else, any method
	mux.HandleFunc(notFoundPattern, a.handleNotFound)

	a.logger.Info("web routes registered")
}
