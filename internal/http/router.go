package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/redmonkez12/meetos/internal/auth"
	"github.com/redmonkez12/meetos/internal/config"
	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/metrics"
	"github.com/redmonkez12/meetos/internal/web"
	"github.com/redmonkez12/meetos/templates"
)

// NewRouter creates and configures the HTTP router. ctx bounds the
// background work of the middleware.
func NewRouter(ctx context.Context, cfg *config.Config, h *web.Handler, authMiddleware *auth.Middleware, m *metrics.Metrics, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)      // Security headers on all responses
	r.Use(middleware.Recoverer) // Recover from panics
	r.Use(middleware.RequestID) // Add request ID
	if cfg.Server.TrustProxy {
		r.Use(middleware.RealIP) // RemoteAddr from the proxy headers
	}
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	if m != nil {
		r.Use(m.Middleware)
	}
	if cfg.RateLimit.Enabled {
		r.Use(RateLimit(ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}
	r.Use(middleware.Compress(5))        // Compress responses
	r.Use(authMiddleware.ResolveVisitor) // Every page knows who is asking

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/health", h.Health)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	r.Handle("/static/*", http.FileServer(http.FS(templates.StaticFS)))

	// Public pages
	r.Get("/", h.Index)
	r.Get("/events", h.Events)
	r.Get("/event/{eid}", h.Event)
	r.Get("/groups", h.Groups)
	r.Get("/group/{gid}", h.Group)
	r.Get("/users", h.Users)
	r.Get("/user/{uid}", h.User)
	r.Get("/about", h.Static("about", "About Meet-OS"))
	r.Get("/privacy", h.Static("privacy", "Privacy Policy"))
	r.Get("/soc", h.Static("soc", "Standard of Conduct"))
	r.Get("/faq", h.Static("faq", "FAQ - Frequently Asked Questions"))

	// Account lifecycle
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/verify-email/{uid}/{code}", h.VerifyEmail)
	r.Post("/verify-email/{uid}/{code}", h.VerifyEmail)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Get("/reset-password", h.ResetPasswordForm)
	r.Post("/reset-password", h.ResetPassword)
	r.Get("/save-password/{uid}/{code}", h.SavePasswordForm)
	r.Post("/save-password", h.SavePassword)
	r.Get("/resend-email-verification-code", h.ResendForm)
	r.Post("/resend-email-verification-code", h.Resend)

	// Logged-in users; group owners and admins for the management pages
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireLogin)

		r.Get("/profile", h.Profile)
		r.Get("/edit-profile", h.EditProfileForm)
		r.Post("/edit-profile", h.EditProfile)
		r.Get("/join-group", h.JoinGroup)
		r.Get("/leave-group", h.LeaveGroup)
		r.Get("/rsvp-yes-event", h.RSVPYes)
		r.Get("/rsvp-no-event", h.RSVPNo)

		r.Get("/edit-group", h.EditGroupForm)
		r.Post("/edit-group", h.EditGroup)
		r.Get("/add-event", h.AddEventForm)
		r.Post("/add-event", h.AddEvent)
		r.Get("/edit-event", h.EditEventForm)
		r.Post("/edit-event", h.EditEvent)
		r.Post("/cancel-event", h.CancelEvent)
		r.Get("/contact-members", h.ContactMembersForm)
		r.Post("/contact-members", h.ContactMembers)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware.RequireAdmin)

		r.Get("/", h.Admin)
		r.Get("/users", h.AdminUsers)
		r.Get("/search", h.AdminSearchForm)
		r.Post("/search", h.AdminSearch)
		r.Get("/create-group", h.CreateGroupForm)
		r.Post("/create-group", h.CreateGroup)
		r.Get("/audit", h.AdminAudit)
	})

	return r
}
