package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/meetos/internal/auth"
	"github.com/redmonkez12/meetos/internal/httputil"
	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/ratelimit"
	"github.com/redmonkez12/meetos/internal/store"
	"github.com/redmonkez12/meetos/internal/user"
)

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", "Register", nil)
}

// Register creates an unverified account. No session is started until the
// email address is verified.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.throttled(w, r, ratelimit.PurposeRegister) {
		return
	}

	f, ok := form(r, "name", "email", "password")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	name, email := f.Get("name"), f.Get("email")

	u, err := h.accounts.Register(r.Context(), name, email, f.Get("password"))
	switch {
	case err == nil:
		logger.Info("user registered", "uid", u.UID)
		h.info(w, r, "We sent you an email",
			httputil.HTMLf("We sent you an email to <b>%s</b> Please check your inbox and verify your email address.", u.Email))
	case errors.Is(err, user.ErrNameRequired):
		h.info(w, r, "Name is required", "Please type in your name.")
	case errors.Is(err, user.ErrNameTooLong):
		h.info(w, r, "Name is too long",
			httputil.HTMLf("Name is too long. Max %d while the current name is %d long. Please try again.", user.MaxNameLength, len(name)))
	case errors.Is(err, user.ErrInvalidName):
		h.info(w, r, "Invalid character",
			httputil.HTMLf("The name '%s' contains a character that we currently don't accept. Use Latin letters for now.", name))
	case errors.Is(err, auth.ErrInvalidEmail):
		h.info(w, r, "Invalid email address", httputil.HTMLf("Invalid email address <b>%s</b> Please try again", email))
	case errors.Is(err, auth.ErrPasswordTooShort):
		h.info(w, r, "Invalid password", httputil.HTMLf("The password must be at least %d characters long.", auth.MinPasswordLength))
	case errors.Is(err, auth.ErrDuplicateEmail):
		logger.Warn("registration failed: email already exists")
		h.info(w, r, "Registration failed", httputil.HTMLf("Could not register <b>%s</b>.", user.NormalizeEmail(email)))
	default:
		h.internalError(w, r, err)
	}
}

// VerifyEmail consumes the code from the emailed link and logs the user in.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathID(r, "uid")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	code := chi.URLParam(r, "code")

	u, err := h.accounts.VerifyEmail(r.Context(), uid, code)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUnknownUser):
		h.info(w, r, "Invalid id", httputil.HTMLf("Invalid id <b>%d</b>", uid))
		return
	case errors.Is(err, auth.ErrInvalidCode):
		h.info(w, r, "Invalid code", httputil.HTMLf("Invalid code <b>%s</b>", code))
		return
	default:
		h.internalError(w, r, err)
		return
	}

	if err := h.sessions.Start(w, u.Email); err != nil {
		h.internalError(w, r, err)
		return
	}
	r = withVisitor(r, h.visitorFor(u))
	h.info(w, r, "Thank you for registering", "Your email was verified.")
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", "Login", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.throttled(w, r, ratelimit.PurposeLogin) {
		return
	}

	f, ok := form(r, "email", "password")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	email := f.Get("email")

	u, err := h.accounts.Login(r.Context(), email, f.Get("password"))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidEmail):
		h.info(w, r, "Invalid email address", httputil.HTMLf("Invalid email address <b>%s</b>. Please try again", email))
		return
	case errors.Is(err, auth.ErrUnknownUser):
		h.info(w, r, "No such user", httputil.HTMLf("No user with address <b>%s</b>. Please try again", email))
		return
	case errors.Is(err, auth.ErrUnverified):
		h.info(w, r, "Unverified email", "Email must be verified before login.")
		return
	case errors.Is(err, auth.ErrBadPassword):
		logger.Warn("login failed: invalid credentials")
		h.info(w, r, "Invalid password", "Invalid password")
		return
	default:
		h.internalError(w, r, err)
		return
	}

	if err := h.sessions.Start(w, u.Email); err != nil {
		h.internalError(w, r, err)
		return
	}
	r = withVisitor(r, h.visitorFor(u))
	h.info(w, r, "Welcome back", `Welcome back. <a href="/profile">profile</a>`)
}

// Logout clears the cookie whether or not it held a valid session. The token
// itself stays valid until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(w)
	r = withVisitor(r, auth.Guest)
	h.info(w, r, "Logged out", "We have logged you out from the system")
}

func (h *Handler) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "reset-password", "Reset password", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if h.throttled(w, r, ratelimit.PurposeReset) {
		return
	}

	f, ok := form(r, "email")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	email := user.NormalizeEmail(f.Get("email"))

	if h.onCooldown(w, r, email) {
		return
	}

	u, err := h.accounts.RequestPasswordReset(r.Context(), email)
	switch {
	case err == nil:
		h.info(w, r, "We sent you an email",
			httputil.HTMLf("We sent you an email to <b>%s</b> Please click on the link to reset your password.", u.Email))
	case errors.Is(err, auth.ErrUnknownUser):
		h.info(w, r, "No such user", httputil.HTMLf("No user with address <b>%s</b>. Please try again", email))
	default:
		h.internalError(w, r, err)
	}
}

// SavePasswordForm is the target of the reset link. The code is checked but
// only consumed when the new password is saved.
func (h *Handler) SavePasswordForm(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathID(r, "uid")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	code := chi.URLParam(r, "code")

	_, err := h.accounts.CheckResetCode(r.Context(), uid, code)
	switch {
	case err == nil:
		h.render(w, r, http.StatusOK, "save-password", "Type in your new password", struct {
			UID  int64
			Code string
		}{uid, code})
	case errors.Is(err, auth.ErrUnknownUser):
		h.info(w, r, "Invalid id", httputil.HTMLf("Invalid id <b>%d</b>", uid))
	case errors.Is(err, auth.ErrInvalidCode):
		h.info(w, r, "Invalid code", httputil.HTMLf("Invalid code <b>%s</b>", code))
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) SavePassword(w http.ResponseWriter, r *http.Request) {
	f, ok := form(r, "uid", "code", "password")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	uid, ok := parseID(f.Get("uid"))
	if !ok {
		h.unprocessable(w, r)
		return
	}
	code := f.Get("code")

	_, err := h.accounts.SaveNewPassword(r.Context(), uid, code, f.Get("password"))
	switch {
	case err == nil:
		h.info(w, r, "Password updated", "Your password was updated.")
	case errors.Is(err, auth.ErrUnknownUser):
		h.info(w, r, "Invalid userid", httputil.HTMLf("Invalid userid <b>%d</b>.", uid))
	case errors.Is(err, auth.ErrInvalidCode):
		h.info(w, r, "Invalid code", httputil.HTMLf("Invalid code <b>%s</b>.", code))
	case errors.Is(err, auth.ErrPasswordTooShort):
		h.info(w, r, "Invalid password", httputil.HTMLf("The password must be at least %d characters long.", auth.MinPasswordLength))
	default:
		h.internalError(w, r, err)
	}
}

const loggedInMessage = `Logged in users cannot access this page. Please, <a href="/logout">logout</a> and try again!`

func (h *Handler) ResendForm(w http.ResponseWriter, r *http.Request) {
	if visitor(r).LoggedIn {
		h.info(w, r, "Logged in", loggedInMessage)
		return
	}
	h.render(w, r, http.StatusOK, "resend", "Resend code for email verification", nil)
}

func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	if visitor(r).LoggedIn {
		h.info(w, r, "Logged in", loggedInMessage)
		return
	}

	if h.throttled(w, r, ratelimit.PurposeResend) {
		return
	}

	f, ok := form(r, "email")
	if !ok {
		h.unprocessable(w, r)
		return
	}
	email := user.NormalizeEmail(f.Get("email"))

	if h.onCooldown(w, r, email) {
		return
	}

	u, err := h.accounts.ResendVerification(r.Context(), email)
	switch {
	case err == nil:
		h.info(w, r, "We sent you an email",
			httputil.HTMLf("We sent you an email to <b>%s</b> Please check your inbox and verify your email address.", u.Email))
	case errors.Is(err, auth.ErrUnknownUser):
		h.info(w, r, "No such user", httputil.HTMLf("No user with address <b>%s</b>. Please try again", email))
	case errors.Is(err, auth.ErrAlreadyVerified):
		h.info(w, r, "Already verified", `This email address is already verified. Try to <a href="/login">login</a>.`)
	default:
		h.internalError(w, r, err)
	}
}

// visitorFor describes u as a freshly logged-in visitor.
func (h *Handler) visitorFor(u *store.User) auth.Visitor {
	return auth.Visitor{LoggedIn: true, IsAdmin: h.admins.Contains(u.Email), User: u}
}
