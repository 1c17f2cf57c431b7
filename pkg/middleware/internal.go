package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// headerKeyInternalToken 은 트리거 호출자가 공유 비밀을 싣는 헤더.
const headerKeyInternalToken = "X-Internal-Token"

// InternalToken 은 내부 트리거 API 를 공유 비밀로 보호하는 Gin 미들웨어를 반환한다.
// token 이 비어 있으면 모든 요청을 거부한다.
func InternalToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(headerKeyInternalToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "내부 토큰이 유효하지 않습니다",
			})
			return
		}
		c.Next()
	}
}
