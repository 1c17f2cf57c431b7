package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer 는 앱 인증 서버가 발급하는 토큰의 iss 값.
const tokenIssuer = "timeand-auth"

// JWTClaims 는 앱 인증 토큰의 클레임.
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID 는 인증된 사용자의 고유 식별자.
	UserID string `json:"user_id"`
}

// GenerateJWT 는 사용자 ID 로 서명된 토큰을 생성한다.
// 토큰 발급은 인증 서버 담당이며 여기서는 테스트와 로컬 개발에만 쓴다.
func GenerateJWT(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWT 토큰 서명 실패: %w", err)
	}
	return signed, nil
}

// JWTAuth 는 JWT 토큰을 검증하는 Gin 미들웨어를 반환한다.
// 검증에 성공하면 컨텍스트에 "user_id" 를 설정한다.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization 헤더가 필요합니다",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer 토큰 형식이 올바르지 않습니다",
			})
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("지원하지 않는 서명 방식")
			}
			return []byte(secret), nil
		}, jwt.WithIssuer(tokenIssuer))
		if err != nil || !token.Valid || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "토큰이 유효하지 않습니다",
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

// GetUserID 는 Gin 컨텍스트에서 사용자 ID 를 꺼낸다.
// JWTAuth 미들웨어가 먼저 적용되어 있어야 한다.
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
