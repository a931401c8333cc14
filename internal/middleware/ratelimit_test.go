package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	appmw "github.com/s1natex/taskmanager-api/internal/middleware"
)

func TestRateLimit(t *testing.T) {
	lim := rate.NewLimiter(1, 1) // 1 rps, burst 1
	r := chi.NewRouter()
	r.Use(appmw.RateLimitMiddleware(lim))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest("GET", "/ping", nil)).Code)

	// second immediately should be 429
	rec := serve(r, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"detail":"too_many_requests"}`, rec.Body.String())
}

func TestNewLimiter_DisabledWhenZero(t *testing.T) {
	assert.Nil(t, appmw.NewLimiter(0, 10))

	r := chi.NewRouter()
	r.Use(appmw.RateLimitMiddleware(appmw.NewLimiter(0, 10)))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest("GET", "/ping", nil)).Code)
	}
}
