package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redmonkez12/meetos/internal/auth"
	"github.com/redmonkez12/meetos/internal/group"
	"github.com/redmonkez12/meetos/internal/httputil"
	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/store"
)

func (h *Handler) Groups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "groups", "Groups", groups)
}

type groupView struct {
	*group.Details
	IsOwner bool
	CanEdit bool
}

func (h *Handler) Group(w http.ResponseWriter, r *http.Request) {
	gid, ok := pathID(r, "gid")
	if !ok {
		h.unprocessable(w, r)
		return
	}

	v := visitor(r)
	d, err := h.groups.Details(r.Context(), gid, v.User)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.info(w, r, "No such group", httputil.HTMLf("The group <b>%d</b> does not exist.", gid))
			return
		}
		h.internalError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "group", d.Group.Name, groupView{
		Details: d,
		IsOwner: auth.IsOwner(v, d.Group),
		CanEdit: auth.CanEditGroup(v, d.Group).Allowed(),
	})
}

func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	gid, ok := queryID(r, "gid")
	if !ok {
		h.unprocessable(w, r)
		return
	}

	g, err := h.groups.Get(r.Context(), gid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.info(w, r, "No such group", httputil.HTMLf("There is no group with id <b>%d</b>", gid))
			return
		}
		h.internalError(w, r, err)
		return
	}

	err = h.groups.Join(r.Context(), visitor(r).User, g)
	switch {
	case err == nil:
		h.info(w, r, "Membership", httputil.HTMLf(`User added to <a href="/group/%d">group</a>`, gid))
	case errors.Is(err, group.ErrOwnerCannotJoin):
		h.info(w, r, "You are the owner of this group", "You cannot join a group you own.")
	case errors.Is(err, group.ErrAlreadyMember):
		h.info(w, r, "You are already a member of this group",
			httputil.HTMLf(`You are already a member of the <a href="/group/%d">%s</a> group`, gid, g.Name))
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	gid, ok := queryID(r, "gid")
	if !ok {
		h.unprocessable(w, r)
		return
	}

	g, err := h.groups.Get(r.Context(), gid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.info(w, r, "No such group", httputil.HTMLf("The group ID <b>%d</b> does not exist.", gid))
			return
		}
		h.internalError(w, r, err)
		return
	}

	err = h.groups.Leave(r.Context(), visitor(r).User, g)
	switch {
	case err == nil:
		h.info(w, r, "Membership", httputil.HTMLf(`User removed from <a href="/group/%d">group</a>`, gid))
	case errors.Is(err, group.ErrOwnerCannotLeave):
		h.info(w, r, "You are the owner of this group", "You cannot leave a group you own.")
	case errors.Is(err, group.ErrNotMember):
		h.info(w, r, "You are not a member of this group", "You cannot leave a group where you are not a member.")
	default:
		h.internalError(w, r, err)
	}
}

// editableGroup loads the group named by the gid field and checks that the
// visitor may manage it. It renders the refusal itself and returns nil then.
func (h *Handler) editableGroup(w http.ResponseWriter, r *http.Request, gid int64) *store.Group {
	return h.guardedGroup(w, r, gid, auth.CanEditGroup)
}

func (h *Handler) guardedGroup(w http.ResponseWriter, r *http.Request, gid int64, check func(auth.Visitor, *store.Group) auth.Decision) *store.Group {
	g, err := h.groups.Get(r.Context(), gid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.info(w, r, "No such group", httputil.HTMLf("Group <b>%d</b> does not exist", gid))
			return nil
		}
		h.internalError(w, r, err)
		return nil
	}

	switch d := check(visitor(r), g); d {
	case auth.Allowed:
		return g
	case auth.DeniedNotOwner:
		h.notOwner(w, r, gid)
	default:
		h.Deny(w, r, d)
	}
	return nil
}

func (h *Handler) EditGroupForm(w http.ResponseWriter, r *http.Request) {
	gid, ok := queryID(r, "gid")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	g := h.editableGroup(w, r, gid)
	if g == nil {
		return
	}
	h.render(w, r, http.StatusOK, "edit-group", "Edit Group", g)
}

func (h *Handler) EditGroup(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "gid", "name", "location", "description")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	gid, ok := parseID(f.Get("gid"))
	if !ok {
		h.unprocessable(w, r)
		return
	}
	if g := h.editableGroup(w, r, gid); g == nil {
		return
	}

	err := h.groups.Update(r.Context(), gid, group.Input{
		Name:        f.Get("name"),
		Location:    f.Get("location"),
		Description: f.Get("description"),
	})
	switch {
	case err == nil:
		h.info(w, r, "Group updated", httputil.HTMLf(`Check out the <a href="/group/%d">group</a>`, gid))
	case errors.Is(err, group.ErrNameRequired):
		h.info(w, r, "Name is required", "The group must have a name.")
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) ContactMembersForm(w http.ResponseWriter, r *http.Request) {
	gid, ok := queryID(r, "gid")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	g := h.guardedGroup(w, r, gid, auth.CanBroadcast)
	if g == nil {
		return
	}
	h.render(w, r, http.StatusOK, "contact-members", fmt.Sprintf("Contact members of the '%s' group", g.Name), g)
}

// ContactMembers mails the message to every member of the group. Delivery
// happens in the background.
func (h *Handler) ContactMembers(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "gid")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	gid, ok := parseID(f.Get("gid"))
	if !ok {
		h.unprocessable(w, r)
		return
	}
	g := h.guardedGroup(w, r, gid, auth.CanBroadcast)
	if g == nil {
		return
	}

	subject := f.Get("subject")
	sent, err := h.groups.ContactMembers(r.Context(), g, subject, f.Get("content"))
	switch {
	case err == nil:
		logging.GetLoggerFromContext(r.Context()).Info("message sent to group members", "gid", gid, "recipients", sent)
		h.info(w, r, "Message sent", "Message sent")
	case errors.Is(err, group.ErrSubjectTooShort):
		h.info(w, r, "Too short a subject",
			httputil.HTMLf("Minimal subject length %d Current subject len: %d", group.MinSubjectLength, len(strings.TrimSpace(subject))))
	case errors.Is(err, group.ErrInvalidSubject):
		h.info(w, r, "Invalid subject", "The subject must fit on a single line.")
	case errors.Is(err, group.ErrEmptyMessage):
		h.info(w, r, "Empty message", "The message cannot be empty.")
	default:
		h.internalError(w, r, err)
	}
}
