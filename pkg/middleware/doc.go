// Package middleware 는 Gin 기반 HTTP API 에서 쓰는 공통 미들웨어를 제공한다.
//
// JWT 인증 토큰 검증, 내부 트리거 토큰 검증, 접근 로그, 패닉 복구,
// CORS 설정을 포함한다.
package middleware
