package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/grocerylist/pkg/metrics"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/grocerylist/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/grocerylist/"+id, nil))
	}

	body := scrape(t)
	assert.Contains(t, body, `route="/grocerylist/{id}"`)
	assert.NotContains(t, body, `route="/grocerylist/2"`)
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	metrics.ProductMutations.WithLabelValues("created").Inc()
	assert.Contains(t, scrape(t), "grocerylist_grocerylist_product_mutations_total")
}
