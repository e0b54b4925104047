// ABOUTME: Handlers for member pages: dashboard, log entry and monthly record
// ABOUTME: Logs are always attributed to the logged-in member

package webapp

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/2389/pokercircle/internal/records"
	"github.com/2389/pokercircle/internal/store"
)

type platformData struct {
	Events []*store.Event
}

// handlePlatform shows events from yesterday through one month ahead.
func (a *App) handlePlatform(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	from, to := records.UpcomingWindow(a.now().In(a.location))

	events, err := a.store.ListEvents(r.Context(), store.EventFilter{From: from, To: to})
	if err != nil {
		return err
	}

	return a.render(w, r, rc, "platform.html", "Platform", platformData{Events: events})
}

func (a *App) handleAddLogPage(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	return a.render(w, r, rc, "addlog.html", "Add log", nil)
}

func (a *App) handleAddLog(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	l, err := a.logForm(r, rc.Principal.MemberNumber)
	if err != nil {
		return err
	}

	l.ID = uuid.New().String()
	l.CreatedAt = time.Now().UTC()
	records.Apply(l)

	if err := a.store.CreateLog(r.Context(), l); err != nil {
		return err
	}

	a.logger.Info("log recorded", "member_number", l.MemberNumber, "total_point", l.TotalPoint)
	return a.redirectWithNotice(w, r, rc, "/platform", store.NoticeSuccess, "log recorded")
}

type recordData struct {
	Month   string
	Summary records.Summary
	Logs    []*store.Log
}

// handleIndividualRecord summarises the member's logs for the current month.
func (a *App) handleIndividualRecord(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	now := a.now().In(a.location)
	from, to := records.MonthWindow(now)

	logs, err := a.store.ListLogs(r.Context(), store.LogFilter{
		MemberNumber: rc.Principal.MemberNumber,
		From:         from,
		To:           to,
	})
	if err != nil {
		return err
	}

	return a.render(w, r, rc, "individualRecord.html", "My record", recordData{
		Month:   now.Format("January 2006"),
		Summary: records.Summarize(logs),
		Logs:    logs,
	})
}
