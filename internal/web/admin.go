package web

import (
	"errors"
	"net/http"

	"github.com/redmonkez12/meetos/internal/group"
	"github.com/redmonkez12/meetos/internal/httputil"
	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/store"
)

// The admin handlers sit behind auth.Middleware.RequireAdmin.

func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin", "Admin", nil)
}

func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin-users", "List Users by Admin", users)
}

type searchView struct {
	Query    string
	Searched bool
	Users    []store.User
}

func (h *Handler) AdminSearchForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin-search", "Search", searchView{})
}

func (h *Handler) AdminSearch(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "query")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	// users are the only searchable table
	if table := f.Get("table"); table != "" && table != "user" {
		h.unprocessable(w, r)
		return
	}

	users, err := h.users.Search(r.Context(), f.Get("query"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin-search", "Search", searchView{Query: f.Get("query"), Searched: true, Users: users})
}

func (h *Handler) noSuchUser(w http.ResponseWriter, r *http.Request, uid int64) {
	h.info(w, r, "No such user", httputil.HTMLf("There is no user with id <b>%d</b>.", uid))
}

func (h *Handler) CreateGroupForm(w http.ResponseWriter, r *http.Request) {
	uid, ok := queryID(r, "uid")
	if !ok {
		h.unprocessable(w, r)
		return
	}

	owner, err := h.users.Get(r.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.noSuchUser(w, r, uid)
			return
		}
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin-create-group", "Create Group", owner)
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "owner", "name", "location", "description")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	ownerID, ok := parseID(f.Get("owner"))
	if !ok {
		h.unprocessable(w, r)
		return
	}

	g, err := h.groups.Create(r.Context(), group.Input{
		Name:        f.Get("name"),
		Location:    f.Get("location"),
		Description: f.Get("description"),
	}, ownerID)
	switch {
	case err == nil:
		logging.GetLoggerFromContext(r.Context()).Info("group created", "gid", g.GID, "owner", ownerID)
		h.info(w, r, "Group created", httputil.HTMLf(`Group <b><a href="/group/%d">%s</a></b> created`, g.GID, g.Name))
	case errors.Is(err, group.ErrOwnerNotFound):
		h.noSuchUser(w, r, ownerID)
	case errors.Is(err, group.ErrNameRequired):
		h.info(w, r, "Name is required", "The group must have a name.")
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) AdminAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListAudit(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin-audit", "Audit", entries)
}
