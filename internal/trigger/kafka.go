package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nao1215/timeand-notifier/pkg/event"
)

// defaultFetchBackoff 는 메시지 읽기가 실패했을 때 다시 읽기 전 기다리는 시간.
const defaultFetchBackoff = time.Second

// MessageReader 는 kafka.Reader 중 KafkaConsumer 가 쓰는 부분.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer 는 Kafka 토픽에서 event.Event JSON 을 읽어 Router 로 넘긴다.
// 메시지는 처리한 뒤에 커밋한다.
type KafkaConsumer struct {
	reader  MessageReader
	router  *Router
	log     *zap.Logger
	backoff time.Duration
}

// KafkaConfig 는 KafkaConsumer 설정.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaConsumer 는 컨슈머 그룹으로 토픽을 읽는 KafkaConsumer 를 만든다.
func NewKafkaConsumer(cfg KafkaConfig, router *Router, log *zap.Logger) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return newKafkaConsumer(r, router, log)
}

func newKafkaConsumer(reader MessageReader, router *Router, log *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{reader: reader, router: router, log: log, backoff: defaultFetchBackoff}
}

// Run 은 ctx 가 끝날 때까지 메시지를 읽는다. 끝나면 리더를 닫는다.
func (k *KafkaConsumer) Run(ctx context.Context) error {
	k.log.Info("Kafka 트리거 구독을 시작합니다")
	defer func() {
		if err := k.reader.Close(); err != nil {
			k.log.Warn("Kafka 리더 종료 실패", zap.Error(err))
		}
	}()

	for {
		m, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				k.log.Info("Kafka 트리거 구독을 멈췄습니다")
				return nil
			}
			if errors.Is(err, io.EOF) {
				// 리더가 닫혔다.
				return nil
			}
			k.log.Error("Kafka 메시지 읽기 에러", zap.Error(err), zap.Duration("retry_in", k.backoff))
			select {
			case <-ctx.Done():
				k.log.Info("Kafka 트리거 구독을 멈췄습니다")
				return nil
			case <-time.After(k.backoff):
			}
			continue
		}

		k.handle(ctx, m)

		if err := k.reader.CommitMessages(ctx, m); err != nil {
			k.log.Error("Kafka 오프셋 커밋 실패", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (k *KafkaConsumer) handle(ctx context.Context, m kafka.Message) {
	var ev event.Event
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		k.log.Error("Kafka 메시지 역직렬화 실패",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
		return
	}
	_ = k.router.Route(ctx, &ev)
}
