package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/seating-planner/internal/config"
)

const secret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoAmI(c echo.Context) error {
	id, ok := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c)})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoAmI, JWTAuth(secret))

	rec := serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := signed(t, jwt.MapClaims{"sub": 1, "role": "PLANNER", "exp": time.Now().Add(-time.Minute).Unix()})
	rec = serve(e, http.MethodGet, "/me", expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	noExp := signed(t, jwt.MapClaims{"sub": 1, "role": "PLANNER"})
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", noExp).Code)

	noSub := signed(t, jwt.MapClaims{"role": "PLANNER", "exp": time.Now().Add(time.Minute).Unix()})
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", noSub).Code)

	ok := signed(t, jwt.MapClaims{"sub": 42, "role": "PLANNER", "exp": time.Now().Add(time.Minute).Unix()})
	rec = serve(e, http.MethodGet, "/me", ok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"ok":true,"role":"PLANNER"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoAmI, JWTAuth(secret), RequireRole("ADMIN"))

	planner := signed(t, jwt.MapClaims{"sub": 1, "role": "PLANNER", "exp": time.Now().Add(time.Minute).Unix()})
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/admin", planner).Code)

	admin := signed(t, jwt.MapClaims{"sub": 2, "role": "ADMIN", "exp": time.Now().Add(time.Minute).Unix()})
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/admin", admin).Code)
}

func TestUserID_Forms(t *testing.T) {
	e := echo.New()
	for _, v := range []any{float64(7), uint64(7), int64(7), 7, "7"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("user_id", v)
		id, ok := UserID(c)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, uint64(7), id)
	}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, ok := UserID(c)
	assert.False(t, ok)
	assert.Equal(t, "anon", userKey(c))
	c.Set("user_id", float64(-1))
	_, ok = UserID(c)
	assert.False(t, ok)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRateLimit_BlocksAfterCapacity(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: time.Minute, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, rdb, nil))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", "").Code)
	rec := serve(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		RateLimit(config.RateLimitConfig{Enabled: true, Capacity: 0}, nil, nil))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", "").Code)
}

func TestResponseCache_HitAfterMissAndEvict(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: time.Minute, Prefix: "resp", MaxBodyBytes: 1 << 10,
	}
	calls := 0
	e := echo.New()
	e.Use(EvictOnWrite(cfg, rdb))
	g := e.Group("", ResponseCache(cfg, rdb, nil))
	g.GET("/plan", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	})
	g.POST("/plan", func(c echo.Context) error { return c.NoContent(http.StatusAccepted) })

	rec := serve(e, http.MethodGet, "/plan", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	rec = serve(e, http.MethodGet, "/plan", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":1}`, rec.Body.String())
	assert.Equal(t, 1, calls)

	assert.Equal(t, http.StatusAccepted, serve(e, http.MethodPost, "/plan", "").Code)
	rec = serve(e, http.MethodGet, "/plan", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":2}`, rec.Body.String())
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/bad", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadRequest, "nope") })

	serve(e, http.MethodGet, "/ok", "")
	serve(e, http.MethodGet, "/bad", "")
	serve(e, http.MethodGet, "/missing", "")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(200), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "/bad", entries[1].ContextMap()["route"])
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
}
