// ABOUTME: Template loading and page rendering for the web app
// ABOUTME: Rendering drains the session's flash notices into the page

package webapp

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/pokercircle/internal/auth"
	"github.com/2389/pokercircle/internal/store"
)

// pageData is the data bag every page template receives.
type pageData struct {
	Title     string
	Principal *store.Member
	IsAdmin   bool
	Notices   []store.Notice
	CSRFToken string
	Data      any
}

// parsePages parses each page template together with the base layout.
// Dates are displayed in loc.
func parsePages(loc *time.Location) (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	funcs := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": func(t time.Time) string { return formatDate(t, loc) },
		"inputDate":  func(t time.Time) string { return inputDate(t, loc) },
	}

	pages := make(map[string]*template.Template)
	for _, name := range names {
		page := path.Base(name)
		if page == "base.html" {
			continue
		}
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, "templates/base.html", name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", page, err)
		}
		pages[page] = tmpl
	}
	return pages, nil
}

// render drains pending notices into rc and writes page with status 200.
// The principal comes from the request context set by the pipeline.
func (a *App) render(w http.ResponseWriter, r *http.Request, rc *requestContext, page, title string, data any) error {
	tmpl, ok := a.pages[page]
	if !ok {
		return fmt.Errorf("unknown template %q", page)
	}

	ctx := r.Context()
	notices, err := a.sessions.Drain(ctx, rc.Session)
	if err != nil {
		return err
	}
	rc.Notices = append(rc.Notices, notices...)

	view := pageData{
		Title:     title,
		Principal: auth.FromContext(ctx),
		IsAdmin:   auth.IsAdmin(ctx),
		Notices:   rc.Notices,
		CSRFToken: rc.CSRFToken,
		Data:      data,
	}

	// Buffer so a template failure becomes a clean 500 instead of a half page
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

// renderMarkdown converts markdown to HTML. Raw HTML in the source is not passed through.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("January 2, 2006")
}

func inputDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(dateLayout)
}
