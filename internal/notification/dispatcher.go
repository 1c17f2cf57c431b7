package notification

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ProfileReader 는 수신자 프로필 조회 인터페이스.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// Dispatcher 는 수신자의 기기 토큰을 찾아 푸시 메시지를 한 번 보낸다.
// 실패해도 다시 시도하지 않는다.
type Dispatcher struct {
	profiles ProfileReader
	gateway  Gateway
	log      *zap.Logger
	metrics  *Metrics
}

// NewDispatcher 는 새 Dispatcher 를 만든다.
func NewDispatcher(profiles ProfileReader, gateway Gateway, log *zap.Logger, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		profiles: profiles,
		gateway:  gateway,
		log:      log,
		metrics:  metrics,
	}
}

// Dispatch 는 userID 에게 푸시를 보낸다.
//
// 프로필이 없거나 토큰이 비어 있으면 게이트웨이를 호출하지 않고 OutcomeSkipped 와 nil 을 반환한다.
// 프로필 조회나 게이트웨이 호출이 실패하면 OutcomeFailed 와 그 에러를 반환한다.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, title, body string) (Outcome, error) {
	outcome, err := d.dispatch(ctx, userID, title, body)
	d.metrics.Dispatched(outcome)
	return outcome, err
}

func (d *Dispatcher) dispatch(ctx context.Context, userID, title, body string) (Outcome, error) {
	profile, err := d.profiles.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		d.log.Warn("해당하는 사용자의 FCM 토큰이 없습니다", zap.String("user_id", userID))
		return OutcomeSkipped, nil
	}
	if err != nil {
		d.log.Error("사용자 프로필 조회 중 오류 발생", zap.String("user_id", userID), zap.Error(err))
		return OutcomeFailed, err
	}
	if profile.DeliveryToken == "" {
		d.log.Warn("해당하는 사용자의 FCM 토큰이 없습니다", zap.String("user_id", userID))
		return OutcomeSkipped, nil
	}

	err = d.gateway.Send(ctx, Message{
		Token: profile.DeliveryToken,
		Title: title,
		Body:  body,
	})
	if err != nil {
		d.log.Error("푸시 알림 발송 중 오류 발생", zap.String("user_id", userID), zap.Error(err))
		return OutcomeFailed, err
	}

	d.log.Info("푸시 알림 발송 완료", zap.String("user_id", userID))
	return OutcomeDelivered, nil
}
