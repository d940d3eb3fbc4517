package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nexus-rag/nexus/internal/auth"
)

func newAuthTestRouter(apiKey, jwtSecret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(KeyRequired(apiKey, jwtSecret))
	r.GET("/protected", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func doRequest(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestKeyRequired_ValidKey(t *testing.T) {
	r := newAuthTestRouter("the-key", "jwt-secret")
	w := doRequest(r, map[string]string{APIKeyHeader: "the-key"})
	if w.Code != http.StatusOK {
		t.Fatalf("valid key rejected: %d", w.Code)
	}
}

func TestKeyRequired_WrongKey(t *testing.T) {
	r := newAuthTestRouter("the-key", "jwt-secret")
	w := doRequest(r, map[string]string{APIKeyHeader: "not-the-key"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong key admitted: %d", w.Code)
	}
}

func TestKeyRequired_MissingCredentials(t *testing.T) {
	r := newAuthTestRouter("the-key", "jwt-secret")
	w := doRequest(r, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("missing credentials admitted: %d", w.Code)
	}
}

func TestKeyRequired_UnconfiguredKeyFailsClosed(t *testing.T) {
	// No configured key means no access at all, not open access.
	r := newAuthTestRouter("", "jwt-secret")
	w := doRequest(r, map[string]string{APIKeyHeader: "anything"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("unconfigured key must fail closed: %d", w.Code)
	}
}

func TestKeyRequired_BearerToken(t *testing.T) {
	token, err := auth.SignToken("jwt-secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	r := newAuthTestRouter("the-key", "jwt-secret")
	w := doRequest(r, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("valid bearer token rejected: %d", w.Code)
	}
}

func TestKeyRequired_ForgedBearerToken(t *testing.T) {
	token, err := auth.SignToken("some-other-secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	r := newAuthTestRouter("the-key", "jwt-secret")
	w := doRequest(r, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusForbidden {
		t.Fatalf("forged bearer token admitted: %d", w.Code)
	}
}
