package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

func TestRecordAuth(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAuth("login", driven.OutcomeSuccess)
	m.RecordAuth("login", driven.OutcomeSuccess)
	m.RecordAuth("login", driven.OutcomeFailure)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthTotal.WithLabelValues("login", driven.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthTotal.WithLabelValues("login", driven.OutcomeFailure)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AuthTotal.WithLabelValues("refresh", driven.OutcomeSuccess)))
}

func TestRecordSweep(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordSweep(3, nil)
	m.RecordSweep(0, nil)
	m.RecordSweep(5, errors.New("store down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepsTotal.WithLabelValues(driven.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsTotal.WithLabelValues(driven.OutcomeError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsSwept), "failed sweeps add nothing")
}

func TestObserveHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("POST /api/v1/auth/login", http.MethodPost, http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTP("POST /api/v1/auth/login", http.MethodPost, http.StatusUnauthorized, 5*time.Millisecond)
	m.RecordRateLimited()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST /api/v1/auth/login", "POST", "401")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal))
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestHandler(t *testing.T) {
	m := New(NewRegistry())
	m.RecordAuth("register", driven.OutcomeSuccess)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `parranda_auth_operations_total{operation="register",outcome="success"} 1`))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
