// 알림 서비스의 엔트리포인트.
// 캡슐/친구 이벤트를 받아 알림을 만들고, 발송 시각에 푸시로 전달한다.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/timeand-notifier/internal/config"
	"github.com/nao1215/timeand-notifier/internal/notification"
	"github.com/nao1215/timeand-notifier/internal/trigger"
	"github.com/nao1215/timeand-notifier/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "알림 서비스 실행 실패: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := notification.NewMetrics(reg)

	store, err := notification.OpenStore(cfg.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("알림 저장소 초기화 실패: %w", err)
	}
	defer func() { _ = store.Close() }()

	index, closeIndex, err := newDueIndex(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeIndex()

	var gateway notification.Gateway = notification.NewLogGateway(log)
	if cfg.PushGatewayURL != "" {
		gateway = notification.NewHTTPGateway(cfg.PushGatewayURL, cfg.PushGatewayKey, cfg.PushGatewayTimeout)
	}

	dispatcher := notification.NewDispatcher(store, gateway, log, metrics)
	svc := notification.NewService(store, dispatcher, index, log, metrics, notification.ServiceConfig{
		Location: cfg.Location(),
		Scheduler: notification.SchedulerConfig{
			SweepInterval: cfg.SchedulerSweepInterval,
			Horizon:       cfg.SchedulerHorizon,
		},
	})
	scheduler := svc.Scheduler()
	defer scheduler.Stop()

	if _, err := svc.Recover(ctx); err != nil {
		return fmt.Errorf("예약 알림 복구 실패: %w", err)
	}

	router := trigger.NewRouter(svc, log, metrics)
	server := notification.NewServer(store, log, notification.ServerConfig{
		Port:           cfg.Port,
		JWTSecret:      cfg.JWTSecret,
		InternalToken:  cfg.InternalToken,
		CORSOrigins:    cfg.AllowedOrigins(),
		Gatherer:       reg,
		DevAuth:        cfg.DevAuthEnabled,
		InternalRoutes: router.RegisterRoutes,
	})
	if cfg.DevAuthEnabled {
		log.Warn("DEV_AUTH_ENABLED 가 켜져 있어 누구나 토큰을 발급받을 수 있습니다")
	}
	if cfg.InternalToken == "" {
		log.Warn("INTERNAL_TOKEN 이 비어 있어 트리거 웹훅이 모든 요청을 거부합니다")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })

	if cfg.EventFeedURL != "" {
		poller := trigger.NewFeedPoller(router, cfg.EventFeedURL, cfg.EventFeedInterval, log)
		g.Go(func() error { return poller.Run(gctx) })
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		consumer := trigger.NewKafkaConsumer(trigger.KafkaConfig{
			Brokers: brokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, router, log)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	err = g.Wait()
	log.Info("알림 서비스를 종료합니다")
	return err
}

// newDueIndex 는 REDIS_ADDR 가 있으면 Redis 색인을, 없으면 메모리 색인을 만든다.
func newDueIndex(ctx context.Context, cfg *config.Config, log *zap.Logger) (notification.DueIndex, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR 미설정: 메모리 예약 색인을 사용합니다")
		return notification.NewMemoryDueIndex(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("Redis 연결 실패 (%s): %w", cfg.RedisAddr, err)
	}
	log.Info("Redis 예약 색인을 사용합니다", zap.String("addr", cfg.RedisAddr))
	return notification.NewRedisDueIndex(client, ""), func() { _ = client.Close() }, nil
}
