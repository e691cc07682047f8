package web

import (
	"errors"
	"net/http"

	"github.com/redmonkez12/meetos/internal/httputil"
	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/store"
	"github.com/redmonkez12/meetos/internal/user"
)

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	groups, err := h.groups.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "index", h.public.SiteName, struct {
		Events []store.Event
		Groups []store.Group
	}{events, groups})
}

func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "users", "List Users", users)
}

// User is the public profile. Unverified accounts are not shown.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathID(r, "uid")
	if !ok {
		h.unprocessable(w, r)
		return
	}

	u, err := h.users.Get(r.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.info(w, r, "User not found", httputil.HTMLf("There is no user with id <b>%d</b>.", uid))
			return
		}
		h.internalError(w, r, err)
		return
	}
	if !u.Verified {
		h.info(w, r, "Unverified user", "This user has not verified the email address yet.")
		return
	}

	h.render(w, r, http.StatusOK, "user", u.Name, u)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.users.Profile(r.Context(), visitor(r).User)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "profile", "Profile", p)
}

func (h *Handler) EditProfileForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "edit-profile", "Edit Profile", visitor(r).User)
}

func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "name", "github", "gitlab", "linkedin")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	in := user.ProfileInput{
		Name:     f.Get("name"),
		GitHub:   f.Get("github"),
		GitLab:   f.Get("gitlab"),
		LinkedIn: f.Get("linkedin"),
		About:    f.Get("about"),
	}
	u := visitor(r).User

	err := h.users.UpdateProfile(r.Context(), u.UID, in)
	switch {
	case err == nil:
		logging.GetLoggerFromContext(r.Context()).Info("profile updated", "uid", u.UID)
		h.info(w, r, "Profile updated",
			httputil.HTMLf(`Check out the <a href="/profile">profile</a> and how others see it <a href="/user/%d">%s</a>`, u.UID, in.Name))
	case errors.Is(err, user.ErrInvalidGitHub):
		h.info(w, r, "Invalid GitHub username", httputil.HTMLf("The GitHub username `%s` is not valid.", in.GitHub))
	case errors.Is(err, user.ErrInvalidGitLab):
		h.info(w, r, "Invalid GitLab username", httputil.HTMLf("The GitLab username `%s` is not valid.", in.GitLab))
	case errors.Is(err, user.ErrInvalidLinkedIn):
		h.info(w, r, "Invalid LinkedIn profile link", httputil.HTMLf("The LinkedIn profile link `%s` is not valid.", in.LinkedIn))
	case errors.Is(err, user.ErrNameRequired):
		h.info(w, r, "Name is required", "Please type in your name.")
	case errors.Is(err, user.ErrNameTooLong):
		h.info(w, r, "Name is too long",
			httputil.HTMLf("Name is too long. Max %d while the current name is %d long. Please try again.", user.MaxNameLength, len(in.Name)))
	case errors.Is(err, user.ErrInvalidName):
		h.info(w, r, "Invalid character",
			httputil.HTMLf("The name '%s' contains a character that we currently don't accept. Use Latin letters for now.", in.Name))
	default:
		h.internalError(w, r, err)
	}
}

// Static returns a handler for a page without data.
func (h *Handler) Static(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name, title, nil)
	}
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("health check failed", "error", err)
		httputil.RespondJSON(w, r, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	httputil.RespondJSON(w, r, map[string]string{"status": "ok"}, http.StatusOK)
}
