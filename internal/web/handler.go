// Package web holds the HTTP handlers. Every handler answers with an HTML
// page rendered with the visitor resolved by auth.Middleware.
package web

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/meetos/internal/auth"
	"github.com/redmonkez12/meetos/internal/config"
	"github.com/redmonkez12/meetos/internal/event"
	"github.com/redmonkez12/meetos/internal/group"
	"github.com/redmonkez12/meetos/internal/httputil"
	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/markdown"
	"github.com/redmonkez12/meetos/internal/ratelimit"
	"github.com/redmonkez12/meetos/internal/store"
	"github.com/redmonkez12/meetos/internal/user"
	"github.com/redmonkez12/meetos/templates"
)

// Deps are the collaborators of Handler.
type Deps struct {
	Store    store.Store
	Accounts *auth.Service
	Sessions *auth.Sessions
	Users    *user.Service
	Groups   *group.Service
	Events   *event.Service
	Limiter  ratelimit.Limiter
	Admins   auth.AdminList
	Public   config.PublicConfig
}

type Handler struct {
	store    store.Store
	accounts *auth.Service
	sessions *auth.Sessions
	users    *user.Service
	groups   *group.Service
	events   *event.Service
	limiter  ratelimit.Limiter
	admins   auth.AdminList
	public   config.PublicConfig
	renderer *httputil.Renderer
}

func NewHandler(d Deps) (*Handler, error) {
	renderer, err := httputil.NewRenderer(templates.PagesFS, templateFuncs)
	if err != nil {
		return nil, err
	}

	limiter := d.Limiter
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}

	return &Handler{
		store:    d.Store,
		accounts: d.Accounts,
		sessions: d.Sessions,
		users:    d.Users,
		groups:   d.Groups,
		events:   d.Events,
		limiter:  limiter,
		admins:   d.Admins,
		public:   d.Public,
		renderer: renderer,
	}, nil
}

var templateFuncs = template.FuncMap{
	"markdown": markdown.Must,
	"date": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04") + " UTC"
	},
	"formdate": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04")
	},
	"iso": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}

// page is the data every template receives.
type page struct {
	Title   string
	Visitor auth.Visitor
	Public  config.PublicConfig
	Message template.HTML
	Data    any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	p := page{
		Title:   title,
		Visitor: auth.VisitorFromContext(r.Context()),
		Public:  h.public,
		Data:    data,
	}
	h.write(w, r, status, name, p)
}

func (h *Handler) message(w http.ResponseWriter, r *http.Request, status int, title string, msg template.HTML) {
	p := page{
		Title:   title,
		Visitor: auth.VisitorFromContext(r.Context()),
		Public:  h.public,
		Message: msg,
	}
	h.write(w, r, status, "message", p)
}

// info renders a business outcome, which is always a 200.
func (h *Handler) info(w http.ResponseWriter, r *http.Request, title string, msg template.HTML) {
	h.message(w, r, http.StatusOK, title, msg)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if err := h.renderer.Render(w, status, name, p); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// Deny renders the page for a refused authorization check.
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request, d auth.Decision) {
	switch d {
	case auth.DeniedNoSession:
		h.message(w, r, d.StatusCode(), "Not logged in", "You are not logged in")
	case auth.DeniedForbidden:
		h.message(w, r, d.StatusCode(), "Unauthorized", "You don't have the rights to access this page.")
	default:
		h.message(w, r, d.StatusCode(), "Not the owner", "You are not the owner of this group")
	}
}

func (h *Handler) notOwner(w http.ResponseWriter, r *http.Request, gid int64) {
	h.info(w, r, "Not the owner", httputil.HTMLf("You are not the owner of the group <b>%d</b>", gid))
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.message(w, r, http.StatusNotFound, "404 Not Found", "404 Not Found")
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.message(w, r, http.StatusMethodNotAllowed, "405 Method Not Allowed", "405 Method Not Allowed")
}

func (h *Handler) unprocessable(w http.ResponseWriter, r *http.Request) {
	h.message(w, r, http.StatusUnprocessableEntity, "422 Unprocessable Entity",
		"The request was well-formed but was unable to be followed due to semantic errors.")
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.GetLoggerFromContext(r.Context()).Error("request failed", "error", err)
	h.message(w, r, http.StatusInternalServerError, "Internal error", "Internal error")
}

// throttled applies the per-IP budget of purpose. Limiter failures are
// logged and let the request through.
func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := ratelimit.ClientIP(r)

	exceeded, err := h.limiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		h.message(w, r, http.StatusTooManyRequests, "Too many requests", "Too many requests, please try again later.")
		return true
	}

	if err := h.limiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

// onCooldown reports whether email received a mail too recently, and starts
// a new cooldown otherwise.
func (h *Handler) onCooldown(w http.ResponseWriter, r *http.Request, email string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	on, err := h.limiter.CheckEmailCooldown(r.Context(), email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if on {
		h.message(w, r, http.StatusTooManyRequests, "Too many requests", "Please wait a minute before requesting another email.")
		return true
	}

	if err := h.limiter.SetEmailCooldown(r.Context(), email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}
	return false
}

// form parses the request and requires every field to be present, even if
// empty. Query parameters count as fields.
func form(r *http.Request, fields ...string) (url.Values, bool) {
	if err := r.ParseForm(); err != nil {
		return nil, false
	}
	for _, f := range fields {
		if _, ok := r.Form[f]; !ok {
			return nil, false
		}
	}
	return r.Form, true
}

func parseID(value string) (int64, bool) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	return parseID(chi.URLParam(r, name))
}

func queryID(r *http.Request, name string) (int64, bool) {
	return parseID(r.URL.Query().Get(name))
}

// withVisitor replaces the visitor used for the rest of the request, after
// a login or logout changed it.
func withVisitor(r *http.Request, v auth.Visitor) *http.Request {
	return r.WithContext(auth.WithVisitor(r.Context(), v))
}

func visitor(r *http.Request) auth.Visitor {
	return auth.VisitorFromContext(r.Context())
}
