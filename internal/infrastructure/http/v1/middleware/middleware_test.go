package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/config"
	"bloomledger/internal/core/apperror"
	appctx "bloomledger/internal/core/context"
	"bloomledger/internal/infrastructure/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Trace(), ErrorHandler(), Recovery())
	r.Use(handlers...)
	return r
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestErrorHandler(t *testing.T) {
	r := newEngine()
	r.GET("/stock", func(c *gin.Context) {
		_ = c.Error(apperror.NewInsufficientStock("R001", "Rose", 10, 5))
	})
	r.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})
	r.GET("/slow", func(c *gin.Context) {
		_ = c.Error(context.DeadlineExceeded)
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("secret detail"))
	})

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/stock", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])

	w, body = serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])

	w, body = serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DATABASE_ERROR", body["code"])
	assert.Equal(t, "unknown", body["details"].(map[string]any)["outcome"])

	w, body = serve(r, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
	assert.Contains(t, body["details"], "request_id")
}

func TestTrace_PropagatesRequestID(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w, _ := serve(r, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))

	w, _ = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*appctx.Operator, error) {
	switch token {
	case "admin":
		return &appctx.Operator{UserID: "a", Roles: []string{"admin"}}, nil
	case "clerk":
		return &appctx.Operator{UserID: "c", Roles: []string{"clerk"}}, nil
	}
	return nil, apperror.NewUnauthorized("invalid token")
}

func TestAuthAndRequireRole(t *testing.T) {
	r := newEngine(Auth(stubValidator{}))
	r.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetOperatorIdentity(c.Request.Context()))
	})

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer clerk", http.StatusForbidden},
		{"Bearer admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w, _ := serve(r, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	r := newEngine(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w, _ := serve(r, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	w := get("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))

	assert.Equal(t, http.StatusOK, get("10.0.0.2").Code, "limits are per client")

	rl.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.Equal(t, 2, rl.Sweep())
}

func TestIdempotency(t *testing.T) {
	store := memory.NewIdempotencyStore(time.Hour)
	calls := 0
	r := newEngine(Auth(stubValidator{}), Idempotency(store))
	r.POST("/orders", func(c *gin.Context) {
		calls++
		body := gin.H{"n": calls}
		CompleteIdempotency(c, http.StatusCreated, "application/json", body)
		c.JSON(http.StatusCreated, body)
	})
	r.POST("/fail", func(c *gin.Context) {
		calls++
		_ = c.Error(apperror.NewValidation("bad"))
	})

	post := func(path, key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer clerk")
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		w, _ := serve(r, req)
		return w
	}

	first := post("/orders", "k1", `{"a":1}`)
	require.Equal(t, http.StatusCreated, first.Code)
	replay := post("/orders", "k1", `{"a":1}`)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	assert.Equal(t, http.StatusConflict, post("/orders", "k1", `{"a":2}`).Code)

	post("/orders", "", `{"a":1}`)
	assert.Equal(t, 2, calls, "requests without a key are not deduplicated")

	failed := post("/fail", "k2", `{}`)
	require.Equal(t, http.StatusBadRequest, failed.Code)
	again := post("/fail", "k2", `{}`)
	assert.Equal(t, failed.Body.String(), again.Body.String())
	assert.Equal(t, 3, calls, "client errors are replayed too")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowedOrigins: []string{"https://shop.example"}}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w, _ := serve(r, req)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w, _ = serve(r, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
