package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nao1215/timeand-notifier/pkg/httpclient"
)

// Message 는 기기 하나로 보낼 푸시 메시지.
type Message struct {
	Token string
	Title string
	Body  string
}

// Gateway 는 외부 푸시 메시징 게이트웨이.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPGateway 는 FCM HTTP v1 형식의 JSON 으로 게이트웨이를 호출한다.
type HTTPGateway struct {
	client *httpclient.Client
}

// NewHTTPGateway 는 baseURL 의 게이트웨이로 보내는 Gateway 를 만든다.
// key 는 Authorization: Bearer 헤더로 전달된다.
func NewHTTPGateway(baseURL, key string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		client: httpclient.New(baseURL,
			httpclient.WithBearerToken(key),
			httpclient.WithTimeout(timeout),
		),
	}
}

type sendRequest struct {
	Message pushMessage `json:"message"`
}

type pushMessage struct {
	Token        string           `json:"token"`
	Notification pushNotification `json:"notification"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendResponse struct {
	Name string `json:"name"`
}

// Send implements Gateway.
func (g *HTTPGateway) Send(ctx context.Context, msg Message) error {
	req := sendRequest{
		Message: pushMessage{
			Token: msg.Token,
			Notification: pushNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
		},
	}
	var resp sendResponse
	if err := g.client.PostJSON(ctx, "/v1/messages:send", req, &resp); err != nil {
		return fmt.Errorf("푸시 게이트웨이 호출 실패: %w", err)
	}
	return nil
}

// LogGateway 는 보내지 않고 로그만 남긴다. 게이트웨이가 설정되지 않았을 때 쓴다.
type LogGateway struct {
	log *zap.Logger
}

// NewLogGateway 는 LogGateway 를 만든다.
func NewLogGateway(log *zap.Logger) *LogGateway {
	return &LogGateway{log: log}
}

// Send implements Gateway.
func (g *LogGateway) Send(_ context.Context, msg Message) error {
	g.log.Info("푸시 게이트웨이 미설정: 로그로 대신합니다",
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	return nil
}
