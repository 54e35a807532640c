package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coco/conf"
	"coco/internal/consts"
	"coco/pkg/jwt"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newAuthEngine /me 返回 context 中的用户id
func newAuthEngine(cfg conf.AuthConfig) *gin.Engine {
	g := gin.New()
	g.GET("/me", AuthToken(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(consts.UserID))
	})
	return g
}

func serve(g *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestAuthToken(t *testing.T) {
	secret := "s3cret"
	signed, err := jwt.GenToken(jwt.BuildClaims("user-9", time.Now().Add(time.Hour), "coco"), secret)
	if err != nil {
		t.Fatalf("gen token: %v", err)
	}
	tests := []struct {
		name   string
		mode   string
		header string
		query  string
		status int
		user   string
	}{
		{name: "opaque bearer", mode: "opaque", header: "Bearer user-1", status: http.StatusOK, user: "user-1"},
		{name: "opaque query fallback", mode: "opaque", query: "user-2", status: http.StatusOK, user: "user-2"},
		{name: "missing", mode: "opaque", status: http.StatusUnauthorized},
		{name: "blank bearer", mode: "opaque", header: "Bearer  ", status: http.StatusUnauthorized},
		{name: "wrong scheme", mode: "opaque", header: "Token user-1", status: http.StatusUnauthorized},
		{name: "jwt", mode: "jwt", header: "Bearer " + signed, status: http.StatusOK, user: "user-9"},
		{name: "jwt garbage", mode: "jwt", header: "Bearer user-1", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newAuthEngine(conf.AuthConfig{Mode: tt.mode, JwtSecret: secret})
			path := "/me"
			if tt.query != "" {
				path += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(g, req)
			if w.Code != tt.status {
				t.Fatalf("status %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusOK && w.Body.String() != tt.user {
				t.Fatalf("user %q, want %q", w.Body.String(), tt.user)
			}
		})
	}
}

func TestAdminToken(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		status     int
	}{
		{"match", "root", "root", http.StatusOK},
		{"mismatch", "root", "guest", http.StatusForbidden},
		{"missing header", "root", "", http.StatusForbidden},
		{"not configured", "", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gin.New()
			g.POST("/admin", AdminToken(tt.configured), func(c *gin.Context) { c.Status(http.StatusOK) })
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.sent != "" {
				req.Header.Set(consts.AdminTokenHeader, tt.sent)
			}
			if w := serve(g, req); w.Code != tt.status {
				t.Fatalf("status %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	g := gin.New()
	g.GET("/x", RateLimit(1), func(c *gin.Context) { c.Status(http.StatusOK) })

	// 突发容量为 rps*2
	for i := 0; i < 2; i++ {
		if w := serve(g, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	if w := serve(g, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusTooManyRequests {
		t.Fatalf("over burst: status %d", w.Code)
	}

	// 其他 IP 不受影响
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	if w := serve(g, req); w.Code != http.StatusOK {
		t.Fatalf("other ip: status %d", w.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	g := gin.New()
	g.GET("/x", RateLimit(0), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 50; i++ {
		if w := serve(g, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
}

func TestRequestId(t *testing.T) {
	g := gin.New()
	g.GET("/x", RequestId(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(consts.RequestId))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := serve(g, req)
	if w.Body.String() != "req-1" || w.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("incoming id not kept: body=%q header=%q", w.Body.String(), w.Header().Get("X-Request-Id"))
	}

	w = serve(g, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Body.Len() == 0 || w.Body.String() != w.Header().Get("X-Request-Id") {
		t.Fatalf("generated id mismatch: body=%q header=%q", w.Body.String(), w.Header().Get("X-Request-Id"))
	}
}

func TestAntiDuplicate(t *testing.T) {
	g := gin.New()
	g.POST("/stake", func(c *gin.Context) {
		c.Set(consts.UserID, c.GetHeader("X-User"))
		c.Next()
	}, AntiDuplicateMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/stake", nil)
		req.Header.Set("X-User", user)
		return serve(g, req).Code
	}
	if code := post("dup-a"); code != http.StatusOK {
		t.Fatalf("first: %d", code)
	}
	if code := post("dup-a"); code != http.StatusTooManyRequests {
		t.Fatalf("duplicate: %d", code)
	}
	if code := post("dup-b"); code != http.StatusOK {
		t.Fatalf("other user: %d", code)
	}
}
