package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/useradmin/internal/session"
)

func newMiddlewareTestRig(t *testing.T) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sessions := session.NewManager(session.NewMemoryStore())
	return gin.New(), sessions
}

func loginSession(t *testing.T, sessions *session.Manager, role string) *session.Session {
	t.Helper()
	sess, err := sessions.Create(context.Background(), session.Identity{
		UserID:   1,
		Username: "alice",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return sess
}

func TestRequireLoginRedirectsWithoutCookie(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	router.GET("/dashboard", RequireLogin(sessions), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireLoginReturnsJSONForAPIPath(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	router.GET("/api/users", RequireLogin(sessions), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(w.Body.String(), "UNAUTHORIZED") {
		t.Errorf("body = %s, want error code UNAUTHORIZED", w.Body.String())
	}
}

func TestRequireLoginStoresSessionInContext(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	sess := loginSession(t, sessions, "user")

	var got *session.Session
	router.GET("/dashboard", RequireLogin(sessions), func(c *gin.Context) {
		got = CurrentSession(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got == nil || got.UserID != 1 {
		t.Fatalf("context session = %+v, want UserID 1", got)
	}
}

func TestVerifyCSRFAllowsSafeMethods(t *testing.T) {
	router, _ := newMiddlewareTestRig(t)
	router.GET("/dashboard", VerifyCSRF(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestVerifyCSRFRejectsMissingToken(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	sess := loginSession(t, sessions, "user")

	router.POST("/api/users", RequireLogin(sessions), VerifyCSRF(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if !strings.Contains(w.Body.String(), "CSRF_INVALID") {
		t.Errorf("body = %s, want error code CSRF_INVALID", w.Body.String())
	}
}

func TestVerifyCSRFAcceptsFormToken(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	sess := loginSession(t, sessions, "user")

	router.POST("/profile", RequireLogin(sessions), VerifyCSRF(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	form := url.Values{}
	form.Set("csrf_token", sess.CSRFToken)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestVerifyCSRFAcceptsHeaderToken(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	sess := loginSession(t, sessions, "user")

	router.POST("/api/users", RequireLogin(sessions), VerifyCSRF(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	req.Header.Set("X-CSRF-Token", sess.CSRFToken)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestVerifyCSRFRejectsForeignToken(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	sess := loginSession(t, sessions, "user")
	other := loginSession(t, sessions, "user")

	router.POST("/api/users", RequireLogin(sessions), VerifyCSRF(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// 別セッションのトークンでは検証を通らない
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	req.Header.Set("X-CSRF-Token", other.CSRFToken)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRequireAdminRedirectsRegularUser(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	sess := loginSession(t, sessions, "user")

	router.GET("/users/new", RequireLogin(sessions), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/new", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", loc)
	}
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	sess := loginSession(t, sessions, "admin")

	router.GET("/users/new", RequireLogin(sessions), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/new", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRequireAdminReturnsJSONForAPIPath(t *testing.T) {
	router, sessions := newMiddlewareTestRig(t)
	sess := loginSession(t, sessions, "user")

	router.POST("/api/users", RequireLogin(sessions), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if !strings.Contains(w.Body.String(), "FORBIDDEN") {
		t.Errorf("body = %s, want error code FORBIDDEN", w.Body.String())
	}
}
