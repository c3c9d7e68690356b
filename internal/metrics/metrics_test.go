package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvexplorer/internal/core"
)

func TestRecorder_Uploads(t *testing.T) {
	m := New()

	m.UploadFinished(core.FormatCSV, 120, 30*time.Millisecond, nil)
	m.UploadFinished(core.FormatCSV, 0, time.Millisecond, fmt.Errorf("%w: limit", core.ErrFileTooLarge))
	m.UploadFinished("", 0, 0, core.ErrUnsupportedFormat)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("csv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("csv", "FILE001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("unknown", "FILE007")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.uploadRows))
}

func TestRecorder_ActionsExportsSessions(t *testing.T) {
	m := New()

	m.Action("set_search", nil)
	m.Action("add_derivation", &core.TypeMismatchError{Column: "Label", Type: core.ColumnText})
	m.Action("add_derivation", errors.New("something odd"))
	m.Exported(core.FormatXLSX, 42)
	m.SessionsActive(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("set_search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("add_derivation", "ARITH001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("add_derivation", "ERR000")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("xlsx")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessions))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/columns/{column}/values", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/columns/a/values", "/api/columns/b/values", "/healthz"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/columns/{column}/values", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/healthz", "200")))
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.SessionsActive(1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "csvexplorer_session_active 1"), "missing session gauge")
	assert.True(t, strings.Contains(string(body), "go_goroutines"), "missing runtime collector")
}

func TestCollectors_Lint(t *testing.T) {
	m := New()
	m.Action("reset", nil)

	problems, err := testutil.GatherAndLint(m.Registry())
	require.NoError(t, err)
	for _, p := range problems {
		if strings.HasPrefix(p.Metric, "csvexplorer_") {
			t.Errorf("lint: %s: %s", p.Metric, p.Text)
		}
	}
}
