// Package logger 는 서비스 공통 zap 로거를 생성한다.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 는 지정한 레벨의 zap 로거를 생성한다.
// development 가 true 면 사람이 읽기 쉬운 콘솔 인코더를, 아니면 JSON 인코더를 쓴다.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("로그 레벨 파싱 실패 (%q): %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("로거 생성 실패: %w", err)
	}
	return log, nil
}
