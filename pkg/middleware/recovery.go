package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery 는 패닉에서 복구하는 Gin 미들웨어를 반환한다.
// 패닉이 발생하면 로그를 남기고 500 에러를 반환한다.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("패닉 발생",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "내부 서버 에러가 발생했습니다",
				})
			}
		}()
		c.Next()
	}
}
