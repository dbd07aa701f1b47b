package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordClaim(t *testing.T) {
	before := testutil.ToFloat64(claimsTotal)
	RecordClaim(7)
	assert.Equal(t, before+1, testutil.ToFloat64(claimsTotal))
}

func TestRecordUserCreated(t *testing.T) {
	before := testutil.ToFloat64(usersCreated)
	RecordUserCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(usersCreated))
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequests.WithLabelValues(http.MethodGet, "/api/things/{id}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordClaim(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "leaderboard_claims_total"))
}

func TestResponseRecorderHijackUnsupported(t *testing.T) {
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rec.Hijack()
	assert.Error(t, err)
}
