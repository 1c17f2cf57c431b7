package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCORSRouter(origins ...string) *gin.Engine {
	router := gin.New()
	router.Use(CORS(origins))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func preflightRequest(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	return req
}

// TestCORS 는 CORS 미들웨어를 검증한다.
func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("허용된 오리진이면 Allow-Origin 이 붙는다", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://admin.timeand.app")
		w := httptest.NewRecorder()
		newCORSRouter("http://localhost:3000", "https://admin.timeand.app/").ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("상태 코드 = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.timeand.app" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if got := w.Header().Get("Vary"); got != "Origin" {
			t.Errorf("Vary = %q, want Origin", got)
		}
	})

	t.Run("허용되지 않은 오리진의 일반 요청은 헤더 없이 통과한다", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		newCORSRouter("http://localhost:3000").ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("상태 코드 = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("허용된 오리진의 preflight 는 204 와 메서드 목록을 받는다", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		newCORSRouter("http://localhost:3000").ServeHTTP(w, preflightRequest("http://localhost:3000"))

		if w.Code != http.StatusNoContent {
			t.Errorf("상태 코드 = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, OPTIONS" {
			t.Errorf("Access-Control-Allow-Methods = %q", got)
		}
	})

	t.Run("허용되지 않은 오리진의 preflight 는 403", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		newCORSRouter("http://localhost:3000").ServeHTTP(w, preflightRequest("https://evil.example.com"))

		if w.Code != http.StatusForbidden {
			t.Errorf("상태 코드 = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("* 이면 모든 오리진을 허용한다", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		newCORSRouter("*").ServeHTTP(w, preflightRequest("https://any.example.com"))

		if w.Code != http.StatusNoContent {
			t.Errorf("상태 코드 = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://any.example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})
}
