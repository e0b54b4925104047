// ABOUTME: Admin handlers for the event calendar: list, create, show, edit, update and delete
// ABOUTME: A missing event redirects to the list with an error notice

package webapp

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/2389/pokercircle/internal/store"
)

type eventListData struct {
	Events []*store.Event
}

type eventData struct {
	Event *store.Event
}

func (a *App) handleEventList(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	events, err := a.store.ListEvents(r.Context(), store.EventFilter{})
	if err != nil {
		return err
	}
	return a.render(w, r, rc, "events.html", "Events", eventListData{Events: events})
}

func (a *App) handleAddEventPage(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	return a.render(w, r, rc, "addEvent.html", "Add event", nil)
}

func (a *App) handleAddEvent(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	ev := &store.Event{}
	if err := a.eventForm(r, ev); err != nil {
		return err
	}

	now := time.Now().UTC()
	ev.ID = uuid.New().String()
	ev.CreatedAt = now
	ev.UpdatedAt = now

	if err := a.store.CreateEvent(r.Context(), ev); err != nil {
		return err
	}

	a.logger.Info("event created", "id", ev.ID, "name", ev.Name)
	return a.redirectWithNotice(w, r, rc, "/platform/event", store.NoticeSuccess, "event created")
}

func (a *App) handleEventShow(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	ev, err := a.store.GetEvent(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		return a.eventNotFound(w, r, rc)
	}
	if err != nil {
		return err
	}
	return a.render(w, r, rc, "show.html", ev.Name, eventData{Event: ev})
}

func (a *App) handleEventEdit(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	ev, err := a.store.GetEvent(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		return a.eventNotFound(w, r, rc)
	}
	if err != nil {
		return err
	}
	return a.render(w, r, rc, "edit.html", "Edit "+ev.Name, eventData{Event: ev})
}

func (a *App) handleEventUpdate(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	ctx := r.Context()

	ev, err := a.store.GetEvent(ctx, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		return a.eventNotFound(w, r, rc)
	}
	if err != nil {
		return err
	}

	if err := a.eventForm(r, ev); err != nil {
		return err
	}
	ev.UpdatedAt = time.Now().UTC()

	err = a.store.UpdateEvent(ctx, ev)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between read and write
		return a.eventNotFound(w, r, rc)
	}
	if err != nil {
		return err
	}

	a.logger.Info("event updated", "id", ev.ID)
	return a.redirectWithNotice(w, r, rc, "/platform/event/"+ev.ID, store.NoticeSuccess, "event updated")
}

func (a *App) handleEventDelete(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	id := r.PathValue("id")

	err := a.store.DeleteEvent(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return a.eventNotFound(w, r, rc)
	}
	if err != nil {
		return err
	}

	a.logger.Info("event deleted", "id", id)
	return a.redirectWithNotice(w, r, rc, "/platform/event", store.NoticeSuccess, "event deleted")
}

func (a *App) eventNotFound(w http.ResponseWriter, r *http.Request, rc *requestContext) error {
	return a.redirectWithNotice(w, r, rc, "/platform/event", store.NoticeError, MsgEventNotFound)
}
