package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/group/{gid}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/group/1", "/group/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/group/{gid}", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")))
}

func TestEmailSent(t *testing.T) {
	m := New()

	m.EmailSent("verification", nil)
	m.EmailSent("verification", nil)
	m.EmailSent("verification", errors.New("smtp down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.emails.WithLabelValues("verification", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("verification", "error")))
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.EmailSent("reset-password", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `meetos_emails_total{kind="reset-password",result="ok"} 1`)
}
