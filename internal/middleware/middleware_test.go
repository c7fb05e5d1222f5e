package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

const secret = "test-secret"

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newServer(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": c.Get(CtxUserID), "role": c.Get(CtxRole)})
	}, mw...)
	return e
}

func do(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := newServer(JWTAuth(secret))

	if rec := do(e, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	if rec := do(e, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
	other, _ := utils.NewAccessToken("other-secret", 7, "user", 5)
	if rec := do(e, other.Token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign secret: %d", rec.Code)
	}

	tok, err := utils.NewAccessToken(secret, 7, "staff", 5)
	if err != nil {
		t.Fatal(err)
	}
	rec := do(e, tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: %d %s", rec.Code, rec.Body)
	}
	if want := `{"id":7,"role":"staff"}`; rec.Body.String() != want+"\n" {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestRequireRole(t *testing.T) {
	e := newServer(JWTAuth(secret), RequireRole("admin", "staff"))

	user, _ := utils.NewAccessToken(secret, 1, "user", 5)
	if rec := do(e, user.Token); rec.Code != http.StatusForbidden {
		t.Fatalf("user: %d", rec.Code)
	}
	admin, _ := utils.NewAccessToken(secret, 2, "admin", 5)
	if rec := do(e, admin.Token); rec.Code != http.StatusOK {
		t.Fatalf("admin: %d", rec.Code)
	}
}

func TestLocalTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := newServer(NewTokenBucket(cfg, nil, quiet()))

	for i := 0; i < 2; i++ {
		if rec := do(e, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := do(e, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func TestLocalBucketsRefill(t *testing.T) {
	b := newLocalBuckets(config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
	now := time.Now()
	if d := b.take("k", now); !d.allowed {
		t.Fatal("first take refused")
	}
	if d := b.take("k", now); d.allowed || d.retry <= 0 {
		t.Fatalf("second take = %+v", d)
	}
	if d := b.take("other", now); !d.allowed {
		t.Fatal("keys share a bucket")
	}
	if d := b.take("k", now.Add(1100*time.Millisecond)); !d.allowed {
		t.Fatal("bucket did not refill")
	}
}

func TestRateKeyUsesSubject(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}

	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.1:user:anon:route:POST /v1/bookings" {
		t.Fatalf("anon key = %s", got)
	}
	c.Set(CtxUserID, uint64(42))
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.1:user:42:route:POST /v1/bookings" {
		t.Fatalf("user key = %s", got)
	}
}

func TestCacheKeyAndPayload(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "events-cache", KeyStrategy: "route_query"}
	a := cacheKey(cfg, "GET", "/v1/events/:id", "", []string{"1"})
	b := cacheKey(cfg, "GET", "/v1/events/:id", "", []string{"2"})
	if a == b {
		t.Fatal("path params ignored in cache key")
	}
	if a[:len("events-cache:")] != "events-cache:" {
		t.Fatalf("key %s lacks prefix", a)
	}

	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, h, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || h.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Fatalf("decoded %d %v %s %v", status, h, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:6]); ok {
		t.Fatal("short payload accepted")
	}
}

func TestDisabledCachePassesThrough(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil, quiet())
	e := newServer(rc.Middleware(), rc.PurgeOnWrite())
	rec := do(e, "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("code %d x-cache %q", rec.Code, rec.Header().Get("X-Cache"))
	}
}
