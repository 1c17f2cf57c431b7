package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// corsMethods 는 알림 API 가 받는 메서드.
var corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}

// CORS 는 웹 관리 화면에서 알림 API 를 부를 수 있게 교차 출처 요청을 허용한다.
// allowedOrigins 에 "*" 가 있으면 모든 오리진을 허용한다.
// 허용되지 않은 오리진의 preflight 는 403 으로 끊는다.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
			continue
		}
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	methods := strings.Join(corsMethods, ", ")

	allowed := func(origin string) bool {
		if origin == "" {
			return false
		}
		if allowAll {
			return true
		}
		_, ok := origins[origin]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		c.Writer.Header().Add("Vary", "Origin")
		if !allowed(origin) {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		if !preflight {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Max-Age", "86400")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
