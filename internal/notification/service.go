package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ServiceConfig 는 Service 설정.
type ServiceConfig struct {
	// Location 은 경과 일수와 날짜 표기에 쓰는 시간대.
	Location *time.Location
	// Now 는 현재 시각. 테스트에서 바꿔 끼운다.
	Now func() time.Time
	// Scheduler 는 내부 Scheduler 설정. Now 가 비어 있으면 위 Now 를 쓴다.
	Scheduler SchedulerConfig
}

// Delivery 는 즉시 알림 한 건의 저장 및 발송 결과.
type Delivery struct {
	Notification Notification
	Outcome      Outcome
	// Err 는 발송 실패 원인. 저장 실패는 여기가 아니라 반환 에러로 전달된다.
	Err error
}

// Service 는 트리거 이벤트를 받아 알림을 만들고 발송하는 진입점.
// 모든 처리는 저장 후 발송 순서를 지킨다.
type Service struct {
	store      *Store
	dispatcher *Dispatcher
	scheduler  *Scheduler
	log        *zap.Logger
	metrics    *Metrics
	loc        *time.Location
	now        func() time.Time
}

// NewService 는 Service 와 그 안의 Scheduler 를 만든다.
func NewService(store *Store, dispatcher *Dispatcher, index DueIndex, log *zap.Logger, metrics *Metrics, cfg ServiceConfig) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Scheduler.Now == nil {
		cfg.Scheduler.Now = cfg.Now
	}

	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		log:        log,
		metrics:    metrics,
		loc:        cfg.Location,
		now:        cfg.Now,
	}
	s.scheduler = NewScheduler(index, store, s.deliverScheduled, log, metrics, cfg.Scheduler)
	return s
}

// Scheduler 는 내부 Scheduler 를 반환한다. Run/Stop 은 호출자가 관리한다.
func (s *Service) Scheduler() *Scheduler {
	return s.scheduler
}

// OnCapsuleCreated 는 새 캡슐의 알림을 만들어 한 번에 저장하고 발송을 예약한다.
// 같은 캡슐이 다시 들어오면 이미 저장된 알림은 건너뛰고 새로 저장된 것만 반환한다.
func (s *Service) OnCapsuleCreated(ctx context.Context, capsuleID string, c Capsule) ([]Notification, error) {
	derived, err := DeriveCapsule(capsuleID, c, s.now(), s.loc)
	if err != nil {
		s.log.Error("캡슐 데이터가 올바르지 않습니다",
			zap.String("capsule_id", capsuleID),
			zap.String("user_id", c.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	batch := s.store.NewBatch()
	for _, n := range derived {
		batch.Set(n)
	}
	inserted, err := batch.Commit(ctx)
	if err != nil {
		s.log.Error("캡슐 알림 저장 실패", zap.String("capsule_id", capsuleID), zap.Error(err))
		return nil, err
	}

	for _, n := range inserted {
		s.metrics.Derived(n.Kind)
		if err := s.scheduler.Observe(ctx, n); err != nil {
			// 레코드는 scheduled 로 남으므로 다음 스윕이 색인에 다시 넣는다.
			s.log.Error("알림 예약 실패", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}

	s.log.Info("캡슐 알림 생성 완료",
		zap.String("capsule_id", capsuleID),
		zap.Int("derived", batch.Len()),
		zap.Int("inserted", len(inserted)),
		zap.Int("days_elapsed", DaysElapsed(c.UploadedAt, s.now(), s.loc)),
	)
	return inserted, nil
}

// OnNotificationCreated 는 저장된 알림 하나의 발송을 예약한다.
// 외부 저장소 트리거로 알림 생성 이벤트를 받을 때 쓴다.
func (s *Service) OnNotificationCreated(ctx context.Context, id string) error {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		s.log.Error("해당하는 알림 데이터가 없습니다", zap.String("notification_id", id), zap.Error(err))
		return err
	}
	return s.scheduler.Observe(ctx, n)
}

// OnFriendshipCreated 는 새 친구 요청을 받은 사용자에게 바로 알린다.
// pending 이 아닌 문서는 무시하고 nil, nil 을 반환한다.
func (s *Service) OnFriendshipCreated(ctx context.Context, friendshipID string, f Friendship) (*Delivery, error) {
	if f.Status != FriendshipPending {
		s.log.Debug("대기 중이 아닌 친구 관계는 알리지 않습니다",
			zap.String("friendship_id", friendshipID),
			zap.String("status", f.Status),
		)
		return nil, nil
	}

	n, err := NewFriendRequest(friendshipID, f, s.nickname(ctx, f.UserID1), s.now())
	if err != nil {
		s.log.Error("친구 관계 데이터가 올바르지 않습니다", zap.String("friendship_id", friendshipID), zap.Error(err))
		return nil, err
	}
	return s.notifyNow(ctx, n)
}

// OnFriendshipUpdated 는 친구 요청이 수락된 순간 요청자에게 바로 알린다.
// 수락으로 바뀐 경우가 아니면 nil, nil 을 반환한다.
func (s *Service) OnFriendshipUpdated(ctx context.Context, friendshipID string, before, after Friendship) (*Delivery, error) {
	if !IsAcceptTransition(before, after) {
		return nil, nil
	}

	n, err := NewFriendAccepted(friendshipID, after, s.nickname(ctx, after.UserID2), s.now())
	if err != nil {
		s.log.Error("친구 관계 데이터가 올바르지 않습니다", zap.String("friendship_id", friendshipID), zap.Error(err))
		return nil, err
	}
	return s.notifyNow(ctx, n)
}

// Recover 는 scheduled 상태로 남은 알림을 모두 다시 예약하고 그 수를 반환한다.
// 기동 시 한 번 호출한다. 색인에 넣지 못한 알림은 이후 스윕이 다시 시도한다.
func (s *Service) Recover(ctx context.Context) (int, error) {
	pending, err := s.store.ListScheduled(ctx, -1)
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, n := range pending {
		if err := s.scheduler.Observe(ctx, n); err != nil {
			failed++
			s.log.Warn("예약 알림 복구 실패", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
	s.log.Info("예약된 알림을 복구했습니다", zap.Int("count", len(pending)), zap.Int("failed", failed))
	return len(pending), nil
}

// notifyNow 는 알림을 저장한 뒤 바로 발송하고 결과를 기록한다.
func (s *Service) notifyNow(ctx context.Context, n Notification) (*Delivery, error) {
	saved, created, err := s.store.Insert(ctx, n)
	if err != nil {
		s.log.Error("알림 저장 실패", zap.String("friendship_id", n.FriendshipID), zap.Error(err))
		return nil, err
	}
	if !created {
		return nil, nil
	}
	s.metrics.Derived(saved.Kind)

	outcome, sendErr := s.dispatcher.Dispatch(ctx, saved.UserID, saved.Title, saved.Message)
	s.recordOutcome(ctx, saved.ID, outcome, sendErr)

	saved.Status = outcome.Status()
	return &Delivery{Notification: saved, Outcome: outcome, Err: sendErr}, nil
}

// deliverScheduled 는 Scheduler 가 발송 시각에 호출한다.
func (s *Service) deliverScheduled(ctx context.Context, id string) {
	claimed, err := s.store.Claim(ctx, id)
	if err != nil {
		// 레코드가 scheduled 로 남으므로 다음 스윕이 다시 건다.
		s.log.Error("알림 선점 실패", zap.String("notification_id", id), zap.Error(err))
		return
	}
	if !claimed {
		s.log.Debug("이미 처리된 알림", zap.String("notification_id", id))
		return
	}

	n, err := s.store.Get(ctx, id)
	if err != nil {
		s.log.Error("해당하는 알림 데이터가 없습니다", zap.String("notification_id", id), zap.Error(err))
		return
	}

	outcome, sendErr := s.dispatcher.Dispatch(ctx, n.UserID, n.Title, n.Message)
	s.recordOutcome(ctx, id, outcome, sendErr)
}

func (s *Service) recordOutcome(ctx context.Context, id string, outcome Outcome, cause error) {
	if err := s.store.RecordOutcome(ctx, id, outcome, cause, s.now()); err != nil {
		s.log.Error("발송 결과 기록 실패",
			zap.String("notification_id", id),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}

func (s *Service) nickname(ctx context.Context, userID string) string {
	name, err := s.store.Nickname(ctx, userID)
	if err != nil {
		s.log.Warn("닉네임 조회 실패", zap.String("user_id", userID), zap.Error(err))
	}
	return name
}
