package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/redmonkez12/meetos/internal/auth"
	"github.com/redmonkez12/meetos/internal/event"
	"github.com/redmonkez12/meetos/internal/httputil"
	"github.com/redmonkez12/meetos/internal/store"
)

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "events", "Events", events)
}

type eventView struct {
	*event.Details
	Attending bool
	IsOwner   bool
	CanEdit   bool
}

func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	eid, ok := pathID(r, "eid")
	if !ok {
		h.unprocessable(w, r)
		return
	}

	v := visitor(r)
	d, err := h.events.Details(r.Context(), eid, v.User)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.noSuchEvent(w, r, eid)
			return
		}
		h.internalError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "event", d.Event.Title, eventView{
		Details:   d,
		Attending: d.RSVP != nil && d.RSVP.Status,
		IsOwner:   auth.IsOwner(v, d.Group),
		CanEdit:   auth.CanEditGroup(v, d.Group).Allowed(),
	})
}

func (h *Handler) noSuchEvent(w http.ResponseWriter, r *http.Request, eid int64) {
	h.info(w, r, "No such event", httputil.HTMLf("The event id <b>%d</b> does not exist.", eid))
}

// loadEvent reads the eid query parameter. It renders the failure itself and
// returns nil then.
func (h *Handler) loadEvent(w http.ResponseWriter, r *http.Request) *store.Event {
	eid, ok := queryID(r, "eid")
	if !ok {
		h.unprocessable(w, r)
		return nil
	}
	e, err := h.events.Get(r.Context(), eid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.info(w, r, "No such event", "No such event")
			return nil
		}
		h.internalError(w, r, err)
		return nil
	}
	return e
}

func (h *Handler) RSVPYes(w http.ResponseWriter, r *http.Request) {
	e := h.loadEvent(w, r)
	if e == nil {
		return
	}

	err := h.events.RSVPYes(r.Context(), visitor(r).User, e)
	switch {
	case err == nil:
		h.info(w, r, "RSVPed to event", httputil.HTMLf(`User RSVPed to <a href="/event/%d">event</a>`, e.EID))
	case errors.Is(err, event.ErrOwnerCannotRSVP):
		h.info(w, r, "You are the owner of this group", "You cannot join an event in a group you own.")
	case errors.Is(err, event.ErrAlreadyRSVPed):
		h.info(w, r, "You were already RSVPed", "You were already RSVPed")
	case errors.Is(err, event.ErrCancelled):
		h.info(w, r, "Event cancelled", httputil.HTMLf(`The <a href="/event/%d">event</a> was cancelled`, e.EID))
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) RSVPNo(w http.ResponseWriter, r *http.Request) {
	e := h.loadEvent(w, r)
	if e == nil {
		return
	}

	err := h.events.RSVPNo(r.Context(), visitor(r).User, e)
	switch {
	case err == nil:
		h.info(w, r, "Not attending", httputil.HTMLf(`User not attending <a href="/event/%d">event</a>`, e.EID))
	case errors.Is(err, event.ErrNotRSVPed):
		h.info(w, r, "You were not registered to the event",
			httputil.HTMLf(`You were not registered to the <a href="/event/%d">event</a>`, e.EID))
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) AddEventForm(w http.ResponseWriter, r *http.Request) {
	gid, ok := queryID(r, "gid")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	g := h.editableGroup(w, r, gid)
	if g == nil {
		return
	}
	h.render(w, r, http.StatusOK, "add-event", fmt.Sprintf("Add event to the '%s' group", g.Name), g)
}

func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "gid", "title", "date", "offset", "location", "description")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	gid, ok := parseID(f.Get("gid"))
	if !ok {
		h.unprocessable(w, r)
		return
	}
	g := h.editableGroup(w, r, gid)
	if g == nil {
		return
	}
	in, ok := eventInput(f)
	if !ok {
		h.unprocessable(w, r)
		return
	}

	e, err := h.events.Add(r.Context(), g, in)
	if err != nil {
		h.eventError(w, r, in, err)
		return
	}
	h.info(w, r, "Event added", httputil.HTMLf(`Event added: <a href="/event/%d">%s</a>`, e.EID, e.Title))
}

// editableEvent loads an event together with its group and checks that the
// visitor may manage the group.
func (h *Handler) editableEvent(w http.ResponseWriter, r *http.Request, eid int64) *store.Event {
	e, err := h.events.Get(r.Context(), eid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.noSuchEvent(w, r, eid)
			return nil
		}
		h.internalError(w, r, err)
		return nil
	}
	if g := h.editableGroup(w, r, e.GroupID); g == nil {
		return nil
	}
	return e
}

func (h *Handler) EditEventForm(w http.ResponseWriter, r *http.Request) {
	eid, ok := queryID(r, "eid")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	e := h.editableEvent(w, r, eid)
	if e == nil {
		return
	}

	g, err := h.groups.Get(r.Context(), e.GroupID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "edit-event", fmt.Sprintf("Edit event in the '%s' group", g.Name), e)
}

func (h *Handler) EditEvent(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "eid", "title", "date", "offset", "location", "description")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	eid, ok := parseID(f.Get("eid"))
	if !ok {
		h.unprocessable(w, r)
		return
	}
	e := h.editableEvent(w, r, eid)
	if e == nil {
		return
	}
	in, ok := eventInput(f)
	if !ok {
		h.unprocessable(w, r)
		return
	}

	updated, err := h.events.Edit(r.Context(), e, in)
	if err != nil {
		h.eventError(w, r, in, err)
		return
	}
	h.info(w, r, "Event updated", httputil.HTMLf(`Event updated: <a href="/event/%d">%s</a>`, updated.EID, updated.Title))
}

// CancelEvent lets the group owner call an event off.
func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "eid")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	eid, ok := parseID(f.Get("eid"))
	if !ok {
		h.unprocessable(w, r)
		return
	}
	e := h.editableEvent(w, r, eid)
	if e == nil {
		return
	}

	err := h.events.Cancel(r.Context(), e)
	switch {
	case err == nil:
		h.info(w, r, "Event cancelled", httputil.HTMLf(`The <a href="/event/%d">%s</a> event was cancelled`, e.EID, e.Title))
	case errors.Is(err, event.ErrCancelled):
		h.info(w, r, "Event cancelled", httputil.HTMLf(`The <a href="/event/%d">event</a> was already cancelled`, e.EID))
	default:
		h.internalError(w, r, err)
	}
}

func eventInput(f url.Values) (event.Input, bool) {
	offset, err := strconv.Atoi(strings.TrimSpace(f.Get("offset")))
	if err != nil {
		return event.Input{}, false
	}
	return event.Input{
		Title:       f.Get("title"),
		Date:        f.Get("date"),
		Offset:      offset,
		Location:    f.Get("location"),
		Description: f.Get("description"),
	}, true
}

func (h *Handler) eventError(w http.ResponseWriter, r *http.Request, in event.Input, err error) {
	switch {
	case errors.Is(err, event.ErrTitleTooShort):
		h.info(w, r, "Too short a title",
			httputil.HTMLf("Minimal title length %d Current title len: %d", event.MinTitleLength, len(strings.TrimSpace(in.Title))))
	case errors.Is(err, event.ErrInvalidDate):
		h.info(w, r, "Invalid date", httputil.HTMLf("Invalid date '%s' offset '%d'", in.Date, in.Offset))
	case errors.Is(err, event.ErrDateInPast):
		h.info(w, r, "Can't schedule event to the past", httputil.HTMLf("Can't schedule event to the past '%s'", in.Date))
	default:
		h.internalError(w, r, err)
	}
}
