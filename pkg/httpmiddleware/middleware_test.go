package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	return mux
}

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Wrap(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestMakeRouteFinder(t *testing.T) {
	find := MakeRouteFinder(newMux())

	assert.Equal(t, "GET /orders/{id}", find(httptest.NewRequest(http.MethodGet, "/orders/42", nil)))
	assert.Empty(t, find(httptest.NewRequest(http.MethodGet, "/nope", nil)))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "abc-123", seen)
	})

	t.Run("rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 129))
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Len(t, seen, 36)
	})
}

func TestRecoveryAndLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mux := newMux()
	find := MakeRouteFinder(mux)
	h := Wrap(mux,
		RequestID(),
		InjectLogger(zap.New(core)),
		LogRequests(find),
		Recovery(),
	)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, w.Body.String())

	panics := logs.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.NotEmpty(t, panics[0].ContextMap()["request_id"])

	requests := logs.FilterMessage("Request").All()
	require.Len(t, requests, 1)
	fields := requests[0].ContextMap()
	assert.Equal(t, "GET /boom", fields["route"])
	assert.EqualValues(t, 500, fields["status"])
	assert.Equal(t, zap.WarnLevel, requests[0].Level)
}

func TestInjectLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Wrap(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("inside")
	}), RequestID(), InjectLogger(zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("inside").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "api")
	mux := newMux()
	h := m.Middleware(MakeRouteFinder(mux))(mux)

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "GET /orders/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.latency))
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		origin     string
		preflight  bool
		wantCode   int
		wantOrigin string
		wantCreds  string
	}{
		{name: "no origin", cfg: CORSConfig{}, method: http.MethodGet, wantCode: http.StatusOK},
		{name: "any origin", cfg: CORSConfig{AllowOrigins: []string{"*"}}, method: http.MethodGet, origin: "https://shop.example", wantCode: http.StatusOK, wantOrigin: "*"},
		{name: "listed origin echoed in configured case", cfg: CORSConfig{AllowOrigins: []string{"https://Shop.example"}}, method: http.MethodGet, origin: "https://shop.example", wantCode: http.StatusOK, wantOrigin: "https://Shop.example"},
		{name: "unlisted origin", cfg: CORSConfig{AllowOrigins: []string{"https://shop.example"}}, method: http.MethodGet, origin: "https://evil.example", wantCode: http.StatusOK},
		{name: "credentials echo origin", cfg: CORSConfig{AllowCredentials: true}, method: http.MethodGet, origin: "https://shop.example", wantCode: http.StatusOK, wantOrigin: "https://shop.example", wantCreds: "true"},
		{name: "preflight", cfg: CORSConfig{AllowHeaders: []string{"Authorization", "Content-Type"}, MaxAge: 600}, method: http.MethodOptions, origin: "https://shop.example", preflight: true, wantCode: http.StatusNoContent, wantOrigin: "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.cfg)(okHandler())
			req := httptest.NewRequest(tt.method, "/orders", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.preflight {
				assert.Equal(t, "Authorization, Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}
