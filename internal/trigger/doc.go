// Package trigger 는 외부 트리거 메커니즘이 보내는 도메인 이벤트를
// 알림 엔진의 On* 연산으로 연결한다.
//
// 이벤트는 세 가지 경로로 들어올 수 있다.
//   - 내부 웹훅 (POST /api/v1/internal/triggers/events)
//   - 이벤트 피드 폴링 (FeedPoller)
//   - Kafka 토픽 구독 (KafkaConsumer)
//
// 어느 경로든 Router.Route 하나로 처리하므로 동작이 같다.
package trigger
