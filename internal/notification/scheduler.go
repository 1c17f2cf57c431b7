package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSweepInterval = 30 * time.Second
	defaultHorizon       = time.Hour
	sweepBatchSize       = 500
)

// DeliverFunc 는 발송 시각이 된 알림 하나를 처리한다.
// 같은 id 로 두 번 불릴 수 있으므로 저장소 쪽에서 한 번 더 선점해야 한다.
type DeliverFunc func(ctx context.Context, id string)

// ScheduledSource 는 아직 발송되지 않은 알림 레코드를 읽는다. 보통 *Store.
type ScheduledSource interface {
	ListScheduledUntil(ctx context.Context, until time.Time, offset, limit int) ([]Notification, error)
}

// SchedulerConfig 는 Scheduler 설정.
type SchedulerConfig struct {
	// SweepInterval 은 색인을 다시 훑는 주기.
	SweepInterval time.Duration
	// Horizon 은 타이머를 미리 걸어 둘 최대 대기 시간.
	// 이보다 먼 알림은 색인에만 두고 이후 스윕에서 건다.
	Horizon time.Duration
	// Now 는 현재 시각. 테스트에서 바꿔 끼운다.
	Now func() time.Time
}

// Scheduler 는 알림을 발송 시각까지 기다렸다가 DeliverFunc 로 넘긴다.
//
// 예약은 먼저 DueIndex 에 기록하고, 가까운 것만 time.AfterFunc 로 건다.
// 타이머가 울리면 색인에서 Claim 에 성공한 쪽만 발송하므로
// 타이머, 스윕, 다른 인스턴스가 겹쳐도 같은 알림을 두 번 보내지 않는다.
// 스윕은 저장소의 scheduled 레코드도 읽어 색인에서 빠진 것을 다시 채운다.
// 한 번 예약된 발송은 취소할 수 없다.
type Scheduler struct {
	index   DueIndex
	source  ScheduledSource
	deliver DeliverFunc
	log     *zap.Logger
	metrics *Metrics

	sweepInterval time.Duration
	horizon       time.Duration
	now           func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler 는 새 Scheduler 를 만든다. source 가 nil 이면 색인만 훑는다.
func NewScheduler(index DueIndex, source ScheduledSource, deliver DeliverFunc, log *zap.Logger, metrics *Metrics, cfg SchedulerConfig) *Scheduler {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = defaultHorizon
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		index:         index,
		source:        source,
		deliver:       deliver,
		log:           log,
		metrics:       metrics,
		sweepInterval: cfg.SweepInterval,
		horizon:       cfg.Horizon,
		now:           cfg.Now,
		timers:        make(map[string]*time.Timer),
	}
}

// Observe 는 새로 생성된 알림의 발송을 예약한다.
// scheduled 상태가 아닌 알림은 무시한다.
// 발송 시각이 이미 지났으면 지연 없이 발송한다.
// 색인 추가에 실패해도 horizon 안이면 타이머는 걸고 에러를 반환한다.
func (s *Scheduler) Observe(ctx context.Context, n Notification) error {
	if n.Status != StatusScheduled {
		return nil
	}
	if err := s.index.Add(ctx, n.ID, n.SendAt); err != nil {
		s.arm(n.ID, n.SendAt, false)
		return fmt.Errorf("알림 예약 실패 (id=%s): %w", n.ID, err)
	}
	s.arm(n.ID, n.SendAt, true)
	return nil
}

// Run 은 Stop 되거나 ctx 가 끝날 때까지 주기적으로 색인을 훑어 타이머를 건다.
// 시작 직후 한 번 훑는다.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("알림 스케줄러를 시작합니다",
		zap.Duration("sweep_interval", s.sweepInterval),
		zap.Duration("horizon", s.horizon),
	)
	if _, err := s.Sweep(ctx); err != nil {
		s.log.Error("예약 색인 스윕 실패", zap.Error(err))
	}

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("알림 스케줄러를 멈췄습니다")
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("예약 색인 스윕 실패", zap.Error(err))
			}
		}
	}
}

// Sweep 은 horizon 안에 예정된 항목에 타이머를 걸고 새로 건 수를 반환한다.
// 색인을 끝까지 넘겨 본 뒤 저장소와 맞춘다.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	until := s.now().Add(s.horizon)

	fromIndex, indexErr := s.sweepIndex(ctx, until)
	fromStore, storeErr := s.reconcile(ctx, until)

	armed := fromIndex + fromStore
	if armed > 0 {
		s.log.Debug("예약 타이머를 걸었습니다",
			zap.Int("from_index", fromIndex),
			zap.Int("from_store", fromStore),
		)
	}
	return armed, errors.Join(indexErr, storeErr)
}

func (s *Scheduler) sweepIndex(ctx context.Context, until time.Time) (int, error) {
	armed := 0
	for offset := 0; ; offset += sweepBatchSize {
		entries, err := s.index.Pending(ctx, until, offset, sweepBatchSize)
		if err != nil {
			return armed, err
		}
		for _, e := range entries {
			if s.arm(e.ID, e.At, true) {
				armed++
			}
		}
		if len(entries) < sweepBatchSize {
			return armed, nil
		}
	}
}

// reconcile 은 scheduled 로 남았지만 타이머가 없는 레코드를 색인에 다시 넣고 건다.
// 색인 쓰기나 선점 뒤 저장소 쓰기가 실패해 빠진 알림이 여기서 돌아온다.
func (s *Scheduler) reconcile(ctx context.Context, until time.Time) (int, error) {
	if s.source == nil {
		return 0, nil
	}
	armed := 0
	for offset := 0; ; offset += sweepBatchSize {
		rows, err := s.source.ListScheduledUntil(ctx, until, offset, sweepBatchSize)
		if err != nil {
			return armed, err
		}
		for _, n := range rows {
			if s.isArmed(n.ID) {
				continue
			}
			indexed := true
			if err := s.index.Add(ctx, n.ID, n.SendAt); err != nil {
				s.log.Warn("발송 예약 색인 복구 실패", zap.String("notification_id", n.ID), zap.Error(err))
				indexed = false
			}
			if s.arm(n.ID, n.SendAt, indexed) {
				armed++
			}
		}
		if len(rows) < sweepBatchSize {
			return armed, nil
		}
	}
}

// Armed 는 현재 걸려 있는 타이머 수.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop 은 걸린 타이머를 모두 해제하고 진행 중인 발송이 끝나기를 기다린다.
// 해제된 알림은 색인에 남아 다음 기동 때 다시 걸린다.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.metrics.SetArmedTimers(0)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) isArmed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// arm 은 id 에 타이머를 건다. 이미 걸려 있거나 horizon 밖이면 false.
// indexed 가 false 면 색인에 없는 알림이므로 울릴 때 색인 선점을 건너뛴다.
func (s *Scheduler) arm(id string, at time.Time, indexed bool) bool {
	delay := at.Sub(s.now())
	if delay > s.horizon {
		return false
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if _, ok := s.timers[id]; ok {
		return false
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id, indexed) })
	s.metrics.SetArmedTimers(len(s.timers))
	return true
}

// fire 는 타이머 콜백. 색인에서 선점에 성공했을 때만 발송한다.
// 패닉은 여기서 멈춰 다른 알림에 영향을 주지 않는다.
func (s *Scheduler) fire(id string, indexed bool) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.metrics.SetArmedTimers(len(s.timers))
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("알림 발송 중 패닉 발생",
				zap.String("notification_id", id),
				zap.Any("panic", r),
			)
		}
	}()

	ctx := context.Background()
	if indexed {
		claimed, err := s.index.Claim(ctx, id)
		if err != nil {
			s.log.Error("발송 예약 선점 실패", zap.String("notification_id", id), zap.Error(err))
			return
		}
		if !claimed {
			s.log.Debug("다른 작업자가 이미 처리한 알림", zap.String("notification_id", id))
			return
		}
	}
	s.deliver(ctx, id)
}
