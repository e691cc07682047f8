package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/meetos/internal/auth"
	"github.com/redmonkez12/meetos/internal/config"
	"github.com/redmonkez12/meetos/internal/logging"
)

const adminEmail = "admin@meet-os.com"

type testApp struct {
	t       *testing.T
	app     *App
	mailDir string
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Env: "dev"},
		Database: config.DatabaseConfig{Driver: "memory"},
		Auth: config.AuthConfig{
			TokenFormat:     "paseto",
			PasetoKey:       []byte("0123456789abcdef0123456789abcdef"),
			SessionDuration: time.Hour,
		},
		Email: config.EmailConfig{
			Mode:      "folder",
			Folder:    t.TempDir(),
			FromName:  "Meet-OS",
			FromEmail: "noreply@meet-os.com",
		},
		App: config.AppConfig{
			BaseURL: "http://meet-os.test",
			Admins:  []string{adminEmail},
		},
		Public: config.PublicConfig{SiteName: "Meet-OS"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, a.Close())
	})

	return &testApp{t: t, app: a, mailDir: cfg.Email.Folder}
}

func (ta *testApp) do(method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	ta.t.Helper()
	return ta.serve(newRequest(method, path, form, cookie))
}

func (ta *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ta.app.Router.ServeHTTP(rec, req)
	return rec
}

func newRequest(method, path string, form url.Values, cookie *http.Cookie) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func (ta *testApp) register(name, email, password string) *httptest.ResponseRecorder {
	return ta.do(http.MethodPost, "/register", url.Values{
		"name":     {name},
		"email":    {email},
		"password": {password},
	}, nil)
}

// link returns the last link of the given kind mailed to email.
func (ta *testApp) link(email, kind string) (uid, code string) {
	ta.t.Helper()

	ta.app.Notifier.Wait()
	raw, err := os.ReadFile(filepath.Join(ta.mailDir, email))
	require.NoError(ta.t, err)

	re := regexp.MustCompile(`/` + kind + `/(\d+)/([0-9a-f-]+)`)
	matches := re.FindAllStringSubmatch(string(raw), -1)
	require.NotEmpty(ta.t, matches, "no %s link mailed to %s", kind, email)
	last := matches[len(matches)-1]
	return last[1], last[2]
}

// signup registers and verifies a user and returns the session cookie.
func (ta *testApp) signup(name, email, password string) *http.Cookie {
	ta.t.Helper()

	rec := ta.register(name, email, password)
	require.Equal(ta.t, http.StatusOK, rec.Code)

	uid, code := ta.link(email, "verify-email")
	rec = ta.do(http.MethodGet, "/verify-email/"+uid+"/"+code, nil, nil)
	require.Equal(ta.t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(ta.t, cookie)
	return cookie
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestRegister_NoSessionUntilVerified(t *testing.T) {
	ta := newTestApp(t, testConfig(t))

	rec := ta.register("Foo Bar", "foo@meet-os.com", "123456")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sessionCookie(rec))
	assert.Contains(t, rec.Body.String(), "We sent you an email")
	assert.Contains(t, rec.Body.String(), "foo@meet-os.com")

	rec = ta.register("Foo Bar", "foo@meet-os.com", "123456")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sessionCookie(rec))
	assert.Contains(t, rec.Body.String(), "Registration failed")
}

func TestVerifyEmail(t *testing.T) {
	ta := newTestApp(t, testConfig(t))

	require.Equal(t, http.StatusOK, ta.register("Foo Bar", "foo@meet-os.com", "123456").Code)
	uid, code := ta.link("foo@meet-os.com", "verify-email")

	rec := ta.do(http.MethodGet, "/verify-email/"+uid+"/not-the-code", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid code")
	assert.Nil(t, sessionCookie(rec))

	rec = ta.do(http.MethodGet, "/verify-email/"+uid+"/"+code, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thank you for registering")
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	// the code was consumed
	rec = ta.do(http.MethodGet, "/verify-email/"+uid+"/"+code, nil, nil)
	assert.Contains(t, rec.Body.String(), "Invalid code")

	rec = ta.do(http.MethodGet, "/profile", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "foo@meet-os.com")
}

func TestLogin_RequiresVerifiedEmail(t *testing.T) {
	ta := newTestApp(t, testConfig(t))
	require.Equal(t, http.StatusOK, ta.register("Foo Bar", "foo@meet-os.com", "123456").Code)

	login := url.Values{"email": {"foo@meet-os.com"}, "password": {"123456"}}
	rec := ta.do(http.MethodPost, "/login", login, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email must be verified before login.")
	assert.Nil(t, sessionCookie(rec))
}

func TestAdminCreatesGroup_OwnerAndOutsider(t *testing.T) {
	ta := newTestApp(t, testConfig(t))

	admin := ta.signup("Admin", adminEmail, "admin-secret")
	owner := ta.signup("Foo Bar", "foo@meet-os.com", "123456")
	outsider := ta.signup("Peti Bar", "peti@meet-os.com", "123456")

	rec := ta.do(http.MethodPost, "/admin/create-group", url.Values{
		"owner":       {"2"},
		"name":        {"Rust Maven"},
		"location":    {"Virtual"},
		"description": {"Some *markdown*"},
	}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Group created")

	rec = ta.do(http.MethodGet, "/profile", nil, owner)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	owned := body[strings.Index(body, "Owned Groups"):strings.Index(body, "Group Membership")]
	assert.Contains(t, owned, `<a href="/group/1">Rust Maven</a>`)

	rec = ta.do(http.MethodPost, "/contact-members?gid=1", url.Values{
		"subject": {"Hello members"},
		"content": {"Hi"},
	}, outsider)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not the owner")

	rec = ta.do(http.MethodGet, "/group/1", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<em>markdown</em>")
}

func TestGroupLifecycle(t *testing.T) {
	ta := newTestApp(t, testConfig(t))

	admin := ta.signup("Admin", adminEmail, "admin-secret")
	owner := ta.signup("Foo Bar", "foo@meet-os.com", "123456")
	member := ta.signup("Peti Bar", "peti@meet-os.com", "123456")

	require.Contains(t, ta.do(http.MethodPost, "/admin/create-group", url.Values{
		"owner": {"2"}, "name": {"Rust Maven"}, "location": {""}, "description": {""},
	}, admin).Body.String(), "Group created")

	rec := ta.do(http.MethodGet, "/join-group?gid=1", nil, owner)
	assert.Contains(t, rec.Body.String(), "You are the owner of this group")

	rec = ta.do(http.MethodGet, "/join-group?gid=1", nil, member)
	assert.Contains(t, rec.Body.String(), "User added to")
	rec = ta.do(http.MethodGet, "/join-group?gid=1", nil, member)
	assert.Contains(t, rec.Body.String(), "You are already a member of this group")

	rec = ta.do(http.MethodPost, "/add-event", url.Values{
		"gid":         {"1"},
		"title":       {"Rust meetup online"},
		"date":        {time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02 15:04")},
		"offset":      {"0"},
		"location":    {"Zoom"},
		"description": {"Talks"},
	}, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Event added")

	rec = ta.do(http.MethodGet, "/rsvp-yes-event?eid=1", nil, owner)
	assert.Contains(t, rec.Body.String(), "You cannot join an event in a group you own.")

	rec = ta.do(http.MethodGet, "/rsvp-yes-event?eid=1", nil, member)
	assert.Contains(t, rec.Body.String(), "User RSVPed to")
	rec = ta.do(http.MethodGet, "/rsvp-yes-event?eid=1", nil, member)
	assert.Contains(t, rec.Body.String(), "You were already RSVPed")
	rec = ta.do(http.MethodGet, "/rsvp-no-event?eid=1", nil, member)
	assert.Contains(t, rec.Body.String(), "User not attending")

	rec = ta.do(http.MethodGet, "/leave-group?gid=1", nil, member)
	assert.Contains(t, rec.Body.String(), "User removed from")
	rec = ta.do(http.MethodGet, "/leave-group?gid=1", nil, member)
	assert.Contains(t, rec.Body.String(), "You are not a member of this group")

	rec = ta.do(http.MethodGet, "/admin/audit", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventManagement_OwnerOnly(t *testing.T) {
	ta := newTestApp(t, testConfig(t))

	admin := ta.signup("Admin", adminEmail, "admin-secret")
	owner := ta.signup("Foo Bar", "foo@meet-os.com", "123456")
	outsider := ta.signup("Peti Bar", "peti@meet-os.com", "123456")

	require.Contains(t, ta.do(http.MethodPost, "/admin/create-group", url.Values{
		"owner": {"2"}, "name": {"Rust Maven"}, "location": {""}, "description": {""},
	}, admin).Body.String(), "Group created")

	eventForm := func(idField, id, offset string) url.Values {
		return url.Values{
			idField:       {id},
			"title":       {"Rust meetup online"},
			"date":        {time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02 15:04")},
			"offset":      {offset},
			"location":    {"Zoom"},
			"description": {"Talks"},
		}
	}

	rec := ta.do(http.MethodPost, "/add-event", eventForm("gid", "1", "abc"), outsider)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not the owner")

	rec = ta.do(http.MethodPost, "/add-event", eventForm("gid", "1", "abc"), owner)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ta.do(http.MethodPost, "/add-event", eventForm("gid", "1", "0"), owner)
	require.Contains(t, rec.Body.String(), "Event added")

	rec = ta.do(http.MethodPost, "/edit-event", eventForm("eid", "1", "abc"), outsider)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not the owner")

	rec = ta.do(http.MethodPost, "/cancel-event", url.Values{"eid": {"1"}}, outsider)
	assert.Contains(t, rec.Body.String(), "Not the owner")

	rec = ta.do(http.MethodGet, "/event/1", nil, owner)
	assert.Contains(t, rec.Body.String(), `action="/cancel-event"`)

	rec = ta.do(http.MethodPost, "/cancel-event", url.Values{"eid": {"1"}}, owner)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Event cancelled")
	rec = ta.do(http.MethodPost, "/cancel-event", url.Values{"eid": {"1"}}, owner)
	assert.Contains(t, rec.Body.String(), "was already cancelled")

	rec = ta.do(http.MethodGet, "/event/1", nil, nil)
	assert.Contains(t, rec.Body.String(), "This event was cancelled.")
	assert.NotContains(t, rec.Body.String(), `action="/cancel-event"`)

	rec = ta.do(http.MethodGet, "/rsvp-yes-event?eid=1", nil, outsider)
	assert.Contains(t, rec.Body.String(), "was cancelled")
}

func TestPasswordReset(t *testing.T) {
	ta := newTestApp(t, testConfig(t))
	ta.signup("Foo Bar", "foo@meet-os.com", "123456")

	rec := ta.do(http.MethodPost, "/reset-password", url.Values{"email": {"foo@meet-os.com"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We sent you an email")

	uid, code := ta.link("foo@meet-os.com", "save-password")

	rec = ta.do(http.MethodGet, "/save-password/"+uid+"/"+code, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Type in your new password")

	rec = ta.do(http.MethodPost, "/save-password", url.Values{"uid": {uid}, "code": {code}, "password": {"abc"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid password")

	rec = ta.do(http.MethodPost, "/save-password", url.Values{"uid": {uid}, "code": {code}, "password": {"new-secret"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password updated")

	rec = ta.do(http.MethodPost, "/login", url.Values{"email": {"foo@meet-os.com"}, "password": {"new-secret"}}, nil)
	assert.Contains(t, rec.Body.String(), "Welcome back")
	assert.NotNil(t, sessionCookie(rec))

	rec = ta.do(http.MethodPost, "/login", url.Values{"email": {"foo@meet-os.com"}, "password": {"123456"}}, nil)
	assert.Contains(t, rec.Body.String(), "Invalid password")
	assert.Nil(t, sessionCookie(rec))
}

func TestAccessControl(t *testing.T) {
	ta := newTestApp(t, testConfig(t))
	user := ta.signup("Foo Bar", "foo@meet-os.com", "123456")

	tests := []struct {
		name   string
		method string
		path   string
		form   url.Values
		cookie *http.Cookie
		status int
		body   string
	}{
		{"guest profile", http.MethodGet, "/profile", nil, nil, http.StatusUnauthorized, "You are not logged in"},
		{"guest join", http.MethodGet, "/join-group?gid=1", nil, nil, http.StatusUnauthorized, "You are not logged in"},
		{"guest admin", http.MethodGet, "/admin/", nil, nil, http.StatusUnauthorized, "You are not logged in"},
		{"user admin", http.MethodGet, "/admin/users", nil, user, http.StatusForbidden, "You don't have the rights to access this page."},
		{"unknown page", http.MethodGet, "/no-such-page", nil, nil, http.StatusNotFound, "404 Not Found"},
		{"missing gid", http.MethodGet, "/join-group", nil, user, http.StatusUnprocessableEntity, "422 Unprocessable Entity"},
		{"bad uid", http.MethodGet, "/user/abc", nil, nil, http.StatusUnprocessableEntity, "422 Unprocessable Entity"},
		{"missing login field", http.MethodPost, "/login", url.Values{"email": {"foo@meet-os.com"}}, nil, http.StatusUnprocessableEntity, "422 Unprocessable Entity"},
		{"no such group", http.MethodGet, "/group/42", nil, nil, http.StatusOK, "No such group"},
		{"garbage cookie", http.MethodGet, "/profile", nil, &http.Cookie{Name: auth.SessionCookieName, Value: "garbage"}, http.StatusUnauthorized, "You are not logged in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(tt.method, tt.path, tt.form, tt.cookie)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	ta := newTestApp(t, testConfig(t))
	user := ta.signup("Foo Bar", "foo@meet-os.com", "123456")

	rec := ta.do(http.MethodGet, "/logout", nil, user)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We have logged you out from the system")
	assert.NotContains(t, rec.Body.String(), `href="/profile"`)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cleared = c.MaxAge < 0
		}
	}
	assert.True(t, cleared)
}

func TestRegister_RateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1000, Burst: 1000}
	ta := newTestApp(t, cfg)

	for i := range 5 {
		rec := ta.register("Foo Bar", "foo"+string(rune('a'+i))+"@meet-os.com", "123456")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := ta.register("Foo Bar", "foo@meet-os.com", "123456")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many requests")
}

func TestRegister_RateLimitIgnoresForwardedFor(t *testing.T) {
	registerFrom := func(ta *testApp, i int) *httptest.ResponseRecorder {
		req := newRequest(http.MethodPost, "/register", url.Values{
			"name":     {"Foo Bar"},
			"email":    {fmt.Sprintf("foo%d@meet-os.com", i)},
			"password": {"123456"},
		}, nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		return ta.serve(req)
	}

	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1000, Burst: 1000}
	ta := newTestApp(t, cfg)
	for i := range 5 {
		require.Equal(t, http.StatusOK, registerFrom(ta, i).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, registerFrom(ta, 5).Code)

	cfg = testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1000, Burst: 1000}
	cfg.Server.TrustProxy = true
	ta = newTestApp(t, cfg)
	for i := range 6 {
		assert.Equal(t, http.StatusOK, registerFrom(ta, i).Code, "each forwarded client has its own budget")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ta := newTestApp(t, testConfig(t))

	rec := ta.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = ta.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `meetos_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
