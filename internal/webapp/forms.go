// ABOUTME: Form field parsing for log and event submissions
// ABOUTME: Parse failures come back as 400 HTTPErrors naming the field

package webapp

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2389/pokercircle/internal/store"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"

	// maxFormNumber bounds point, re-entry and pot fields so derived totals
	// and monthly sums cannot overflow.
	maxFormNumber = 1_000_000_000
)

// formReader collects the first parse error so handlers can read every field
// and check once.
type formReader struct {
	r   *http.Request
	loc *time.Location
	err error
}

func newFormReader(r *http.Request, loc *time.Location) *formReader {
	return &formReader{r: r, loc: loc}
}

func (f *formReader) fail(msg string) {
	if f.err == nil {
		f.err = badRequest(msg)
	}
}

func (f *formReader) text(field string) string {
	return strings.TrimSpace(f.r.FormValue(field))
}

func (f *formReader) required(field, label string) string {
	v := f.text(field)
	if v == "" {
		f.fail(label + " is required")
	}
	return v
}

func (f *formReader) integer(field, label string) int {
	raw := f.text(field)
	if raw == "" {
		f.fail(label + " is required")
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f.fail(label + " must be a whole number")
		return 0
	}
	return n
}

func (f *formReader) nonNegative(field, label string) int {
	n := f.integer(field, label)
	if n < 0 {
		f.fail(label + " cannot be negative")
		return 0
	}
	if n > maxFormNumber {
		f.fail(fmt.Sprintf("%s cannot exceed %d", label, maxFormNumber))
		return 0
	}
	return n
}

// date parses a date or datetime-local input in the app's location.
// An empty value yields fallback; a zero fallback makes the field required.
func (f *formReader) date(field, label string, fallback time.Time) time.Time {
	raw := f.text(field)
	if raw == "" {
		if fallback.IsZero() {
			f.fail(label + " is required")
		}
		return fallback
	}
	for _, layout := range []string{dateLayout, dateTimeLayout} {
		if t, err := time.ParseInLocation(layout, raw, f.loc); err == nil {
			return t
		}
	}
	f.fail(label + " must be a date (YYYY-MM-DD)")
	return time.Time{}
}

// logForm reads an addlog submission. The member number is not a form field:
// logs are always recorded for the bound principal.
func (a *App) logForm(r *http.Request, memberNumber string) (*store.Log, error) {
	f := newFormReader(r, a.location)
	now := a.now().In(a.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.location)

	l := &store.Log{
		MemberNumber: memberNumber,
		Date:         f.date("date", "date", today),
		Point:        f.nonNegative("point", "point"),
		ReEntry:      f.nonNegative("reEntry", "re-entry count"),
		MaxPot:       f.nonNegative("maxPot", "max pot"),
		Event:        f.required("event", "event"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return l, nil
}

// eventForm reads an event create or update submission into ev.
func (a *App) eventForm(r *http.Request, ev *store.Event) error {
	f := newFormReader(r, a.location)

	name := f.required("eventName", "event name")
	date := f.date("eventDate", "event date", time.Time{})
	place := f.required("eventPlace", "event place")
	description := f.text("description")
	if f.err != nil {
		return f.err
	}

	ev.Name = name
	ev.Date = date
	ev.Place = place
	ev.Description = description
	return nil
}
