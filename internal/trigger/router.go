package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nao1215/timeand-notifier/internal/notification"
	"github.com/nao1215/timeand-notifier/pkg/event"
)

// 처리 결과 라벨.
const (
	resultOK      = "ok"
	resultInvalid = "invalid"
	resultError   = "error"
	resultIgnored = "ignored"
)

// ErrInvalidEvent 는 이벤트 봉투나 페이로드를 해석할 수 없을 때 반환된다.
var ErrInvalidEvent = errors.New("이벤트 형식이 올바르지 않습니다")

// Handler 는 트리거 이벤트를 처리하는 쪽. notification.Service 가 구현한다.
type Handler interface {
	OnCapsuleCreated(ctx context.Context, capsuleID string, c notification.Capsule) ([]notification.Notification, error)
	OnNotificationCreated(ctx context.Context, id string) error
	OnFriendshipCreated(ctx context.Context, friendshipID string, f notification.Friendship) (*notification.Delivery, error)
	OnFriendshipUpdated(ctx context.Context, friendshipID string, before, after notification.Friendship) (*notification.Delivery, error)
}

// Router 는 이벤트 종류에 맞는 Handler 연산을 호출한다.
type Router struct {
	handler Handler
	log     *zap.Logger
	metrics *notification.Metrics
}

// NewRouter 는 새 Router 를 만든다.
func NewRouter(h Handler, log *zap.Logger, metrics *notification.Metrics) *Router {
	return &Router{handler: h, log: log, metrics: metrics}
}

// Route 는 이벤트 하나를 처리한다.
// 모르는 이벤트 종류는 무시하고 nil 을 반환한다.
// 형식 오류는 ErrInvalidEvent, notification.ErrInvalidCapsule 등으로 감싸 반환한다.
func (r *Router) Route(ctx context.Context, ev *event.Event) error {
	err := r.route(ctx, ev)

	result := resultOK
	switch {
	case errors.Is(err, errIgnored):
		result, err = resultIgnored, nil
	case IsInvalid(err):
		result = resultInvalid
	case err != nil:
		result = resultError
	}
	r.metrics.TriggerEvent(string(ev.EventType), result)

	if err != nil {
		r.log.Error("트리거 이벤트 처리 실패",
			zap.String("event_id", ev.ID),
			zap.String("event_type", string(ev.EventType)),
			zap.String("aggregate_id", ev.AggregateID),
			zap.Error(err),
		)
	}
	return err
}

// IsInvalid 는 err 가 다시 보내도 성공할 수 없는 형식 오류인지 판정한다.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidEvent) ||
		errors.Is(err, notification.ErrInvalidCapsule) ||
		errors.Is(err, notification.ErrInvalidFriendship) ||
		errors.Is(err, notification.ErrNotFound)
}

var errIgnored = errors.New("ignored")

func (r *Router) route(ctx context.Context, ev *event.Event) error {
	if ev.AggregateID == "" {
		return fmt.Errorf("%w: aggregate_id 누락", ErrInvalidEvent)
	}

	switch ev.EventType {
	case event.TypeCapsuleCreated:
		data, err := event.DecodeData[event.CapsuleCreatedData](ev)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		_, err = r.handler.OnCapsuleCreated(ctx, ev.AggregateID, toCapsule(data))
		return err

	case event.TypeNotificationCreated:
		return r.handler.OnNotificationCreated(ctx, ev.AggregateID)

	case event.TypeFriendshipCreated:
		data, err := event.DecodeData[event.FriendshipData](ev)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		_, err = r.handler.OnFriendshipCreated(ctx, ev.AggregateID, toFriendship(*data))
		return err

	case event.TypeFriendshipUpdated:
		data, err := event.DecodeData[event.FriendshipUpdatedData](ev)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		_, err = r.handler.OnFriendshipUpdated(ctx, ev.AggregateID, toFriendship(data.Before), toFriendship(data.After))
		return err

	default:
		return errIgnored
	}
}

func toCapsule(d *event.CapsuleCreatedData) notification.Capsule {
	return notification.Capsule{
		UserID:            d.UserID,
		Title:             d.Title,
		UploadedAt:        derefTime(d.UploadedAt),
		CanUnlockAt:       derefTime(d.CanUnlockAt),
		SharedWithUserIDs: d.SharedWithUserIDs,
	}
}

func toFriendship(d event.FriendshipData) notification.Friendship {
	return notification.Friendship{
		UserID1: d.UserID1,
		UserID2: d.UserID2,
		Status:  d.Status,
	}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
