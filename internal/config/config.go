// Package config 는 알림 서비스 설정을 .env 파일과 환경 변수에서 읽는다.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 는 알림 서비스 설정.
type Config struct {
	Port         string `mapstructure:"PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PushGatewayURL     string        `mapstructure:"PUSH_GATEWAY_URL"`
	PushGatewayKey     string        `mapstructure:"PUSH_GATEWAY_KEY"`
	PushGatewayTimeout time.Duration `mapstructure:"PUSH_GATEWAY_TIMEOUT"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	InternalToken string `mapstructure:"INTERNAL_TOKEN"`
	CORSOrigins   string `mapstructure:"CORS_ORIGINS"`
	// DevAuthEnabled 가 true 면 개발용 토큰 발급 API 를 연다.
	DevAuthEnabled bool `mapstructure:"DEV_AUTH_ENABLED"`

	EventFeedURL      string        `mapstructure:"EVENT_FEED_URL"`
	EventFeedInterval time.Duration `mapstructure:"EVENT_FEED_INTERVAL"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	SchedulerSweepInterval time.Duration `mapstructure:"SCHEDULER_SWEEP_INTERVAL"`
	SchedulerHorizon       time.Duration `mapstructure:"SCHEDULER_HORIZON"`
	Timezone               string        `mapstructure:"TIMEZONE"`

	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogDevelopment bool   `mapstructure:"LOG_DEVELOPMENT"`
}

var defaults = map[string]any{
	"PORT":                     "8087",
	"DATABASE_PATH":            "/data/notifier.db",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"PUSH_GATEWAY_URL":         "",
	"PUSH_GATEWAY_KEY":         "",
	"PUSH_GATEWAY_TIMEOUT":     "10s",
	"JWT_SECRET":               "dev-secret-key",
	"INTERNAL_TOKEN":           "",
	"CORS_ORIGINS":             "",
	"DEV_AUTH_ENABLED":         false,
	"EVENT_FEED_URL":           "",
	"EVENT_FEED_INTERVAL":      "2s",
	"KAFKA_BROKERS":            "",
	"KAFKA_TOPIC":              "timeand.events",
	"KAFKA_GROUP_ID":           "notifier",
	"SCHEDULER_SWEEP_INTERVAL": "30s",
	"SCHEDULER_HORIZON":        "1h",
	"TIMEZONE":                 "Asia/Seoul",
	"LOG_LEVEL":                "info",
	"LOG_DEVELOPMENT":          false,
}

// Load 는 작업 디렉터리의 .env 와 환경 변수에서 설정을 읽는다.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom 은 dir 의 .env 와 환경 변수에서 설정을 읽는다.
// .env 가 없으면 환경 변수와 기본값만 쓴다. 환경 변수가 .env 보다 우선한다.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf(".env 파일 읽기 실패: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("설정 역직렬화 실패: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 는 설정 값을 검사한다.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT 가 비어 있습니다"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH 가 비어 있습니다"))
	}
	if c.SchedulerSweepInterval <= 0 {
		errs = append(errs, errors.New("SCHEDULER_SWEEP_INTERVAL 은 0 보다 커야 합니다"))
	}
	if c.SchedulerHorizon <= 0 {
		errs = append(errs, errors.New("SCHEDULER_HORIZON 은 0 보다 커야 합니다"))
	}
	if c.EventFeedInterval <= 0 {
		errs = append(errs, errors.New("EVENT_FEED_INTERVAL 은 0 보다 커야 합니다"))
	}
	if c.PushGatewayTimeout <= 0 {
		errs = append(errs, errors.New("PUSH_GATEWAY_TIMEOUT 은 0 보다 커야 합니다"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE 을 알 수 없습니다: %q", c.Timezone))
	}
	if len(errs) > 0 {
		return fmt.Errorf("설정이 올바르지 않습니다: %w", errors.Join(errs...))
	}
	return nil
}

// Location 은 TIMEZONE 의 *time.Location. Validate 를 통과한 설정이면 실패하지 않는다.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Brokers 는 KAFKA_BROKERS 를 쉼표로 나눈 목록.
func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// AllowedOrigins 는 CORS_ORIGINS 를 쉼표로 나눈 목록.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
