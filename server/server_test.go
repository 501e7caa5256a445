package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/peerkit/component"
	"github.com/kbukum/peerkit/logger"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.ApplyDefaults()
	s := New(cfg, logger.Nop())
	s.ApplyMiddleware(nil)
	s.RegisterDefaultEndpoints("peer-registry", func(context.Context) []component.Health {
		return []component.Health{{Name: "peers", Status: component.StatusHealthy}}
	})
	return s
}

func TestServerRewritesUnversionedPaths(t *testing.T) {
	s := newTestServer(t, Config{ContextPath: "registry/"})
	s.GinEngine().GET("/registry/eureka/v2/peers", func(c *gin.Context) { c.String(http.StatusOK, "peers") })

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/registry/eureka/peers", http.NoBody))
	if rr.Code != http.StatusOK || rr.Body.String() != "peers" {
		t.Fatalf("expected rewritten route, got %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("expected request ID on response")
	}
}

func TestServerDefaultEndpoints(t *testing.T) {
	s := newTestServer(t, Config{})
	for _, path := range []string{"/health", "/health/live", "/health/ready", "/info", "/metrics"} {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestServerStartStop(t *testing.T) {
	s := newTestServer(t, Config{Host: "127.0.0.1", Port: 0})
	s.httpServer.Addr = "127.0.0.1:0"
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestComponentRoutesOrder(t *testing.T) {
	s := newTestServer(t, Config{})
	s.GinEngine().POST("/eureka/v2/apps/:app", func(c *gin.Context) {})
	s.GinEngine().GET("/eureka/v2/apps", func(c *gin.Context) {})

	routes := NewComponent(s).Routes()
	if len(routes) < 2 {
		t.Fatalf("expected routes, got %v", routes)
	}
	if routes[0].Path != "/eureka/v2/apps" || routes[1].Path != "/eureka/v2/apps/:app" {
		t.Errorf("expected API routes first, got %v", routes[:2])
	}
	last := routes[len(routes)-1]
	if !systemPaths[last.Path] {
		t.Errorf("expected system route last, got %v", last)
	}
}

func TestHandlerName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"github.com/kbukum/peerkit/api.(*Handler).ListPeers-fm", "Handler.ListPeers"},
		{"github.com/kbukum/peerkit/server/endpoint.Health.func1", "Health"},
		{"main.main.func2", "main"},
	}
	for _, tc := range tests {
		if got := handlerName(tc.in); got != tc.want {
			t.Errorf("handlerName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{ContextPath: "/"}
	cfg.ApplyDefaults()
	if cfg.Port != 8761 || cfg.ContextPath != "" || cfg.MaxBodySize != "10MB" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected port validation error")
	}
}
