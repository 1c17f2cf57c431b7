package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// deliveryRecorder 는 DeliverFunc 로 넘어온 ID 를 기록한다.
type deliveryRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *deliveryRecorder) deliver(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *deliveryRecorder) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

// flakyDueIndex 는 fail 이 켜져 있는 동안 Add 가 실패하는 DueIndex.
type flakyDueIndex struct {
	*MemoryDueIndex
	fail atomic.Bool
}

func newFlakyDueIndex() *flakyDueIndex {
	return &flakyDueIndex{MemoryDueIndex: NewMemoryDueIndex()}
}

func (f *flakyDueIndex) Add(ctx context.Context, id string, at time.Time) error {
	if f.fail.Load() {
		return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	}
	return f.MemoryDueIndex.Add(ctx, id, at)
}

// fakeScheduledSource 는 고정된 scheduled 레코드를 돌려주는 ScheduledSource.
type fakeScheduledSource struct {
	rows []Notification
}

func (f *fakeScheduledSource) ListScheduledUntil(_ context.Context, until time.Time, offset, limit int) ([]Notification, error) {
	var due []Notification
	for _, n := range f.rows {
		if !n.SendAt.After(until) {
			due = append(due, n)
		}
	}
	if offset >= len(due) {
		return nil, nil
	}
	due = due[offset:]
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func scheduledAt(id string, at time.Time) Notification {
	return Notification{ID: id, SendAt: at, Status: StatusScheduled}
}

func TestSchedulerObserve(t *testing.T) {
	t.Parallel()

	t.Run("발송 시각이 지난 알림은 바로 발송된다", func(t *testing.T) {
		t.Parallel()

		rec := &deliveryRecorder{}
		s := NewScheduler(NewMemoryDueIndex(), nil, rec.deliver, zap.NewNop(), nil, SchedulerConfig{})
		t.Cleanup(s.Stop)

		require.NoError(t, s.Observe(t.Context(), scheduledAt("n1", time.Now().Add(-time.Hour))))
		require.Eventually(t, func() bool { return len(rec.IDs()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"n1"}, rec.IDs())
	})

	t.Run("가까운 미래의 알림은 그 시각에 발송된다", func(t *testing.T) {
		t.Parallel()

		rec := &deliveryRecorder{}
		s := NewScheduler(NewMemoryDueIndex(), nil, rec.deliver, zap.NewNop(), nil, SchedulerConfig{})
		t.Cleanup(s.Stop)

		start := time.Now()
		require.NoError(t, s.Observe(t.Context(), scheduledAt("n1", start.Add(50*time.Millisecond))))
		assert.Empty(t, rec.IDs())

		require.Eventually(t, func() bool { return len(rec.IDs()) == 1 }, time.Second, 5*time.Millisecond)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("scheduled 가 아닌 알림은 무시한다", func(t *testing.T) {
		t.Parallel()

		idx := NewMemoryDueIndex()
		s := NewScheduler(idx, nil, (&deliveryRecorder{}).deliver, zap.NewNop(), nil, SchedulerConfig{})
		t.Cleanup(s.Stop)

		n := scheduledAt("n1", time.Now())
		n.Status = StatusDispatching
		require.NoError(t, s.Observe(t.Context(), n))

		pending, err := idx.Pending(t.Context(), time.Now().Add(time.Hour), 0, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
		assert.Zero(t, s.Armed())
	})

	t.Run("horizon 밖의 알림은 색인에만 남고 타이머를 걸지 않는다", func(t *testing.T) {
		t.Parallel()

		idx := NewMemoryDueIndex()
		metrics := NewMetrics(prometheus.NewRegistry())
		s := NewScheduler(idx, nil, (&deliveryRecorder{}).deliver, zap.NewNop(), metrics, SchedulerConfig{Horizon: time.Hour})
		t.Cleanup(s.Stop)

		require.NoError(t, s.Observe(t.Context(), scheduledAt("far", time.Now().Add(48*time.Hour))))
		require.NoError(t, s.Observe(t.Context(), scheduledAt("near", time.Now().Add(30*time.Minute))))

		assert.Equal(t, 1, s.Armed())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.armedTimers))

		pending, err := idx.Pending(t.Context(), time.Now().Add(72*time.Hour), 0, 10)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
	})

	t.Run("같은 알림을 여러 번 관찰해도 한 번만 발송된다", func(t *testing.T) {
		t.Parallel()

		rec := &deliveryRecorder{}
		s := NewScheduler(NewMemoryDueIndex(), nil, rec.deliver, zap.NewNop(), nil, SchedulerConfig{})
		t.Cleanup(s.Stop)

		n := scheduledAt("n1", time.Now().Add(20*time.Millisecond))
		for range 3 {
			require.NoError(t, s.Observe(t.Context(), n))
		}
		_, err := s.Sweep(t.Context())
		require.NoError(t, err)

		require.Eventually(t, func() bool { return len(rec.IDs()) >= 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, []string{"n1"}, rec.IDs())
	})
}

func TestSchedulerSweep(t *testing.T) {
	t.Parallel()

	t.Run("시간이 흘러 horizon 안에 들어오면 스윕이 타이머를 건다", func(t *testing.T) {
		t.Parallel()

		var (
			mu  sync.Mutex
			now = time.Now()
		)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}

		rec := &deliveryRecorder{}
		s := NewScheduler(NewMemoryDueIndex(), nil, rec.deliver, zap.NewNop(), nil, SchedulerConfig{
			Horizon: time.Hour,
			Now:     clock,
		})
		t.Cleanup(s.Stop)

		require.NoError(t, s.Observe(t.Context(), scheduledAt("n1", clock().Add(2*time.Hour))))
		assert.Zero(t, s.Armed())

		mu.Lock()
		now = now.Add(3 * time.Hour)
		mu.Unlock()

		armed, err := s.Sweep(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, armed)
		require.Eventually(t, func() bool { return len(rec.IDs()) == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("재시작 후 새 스케줄러가 색인에서 이어받는다", func(t *testing.T) {
		t.Parallel()

		idx := NewMemoryDueIndex()
		first := NewScheduler(idx, nil, (&deliveryRecorder{}).deliver, zap.NewNop(), nil, SchedulerConfig{})
		require.NoError(t, first.Observe(t.Context(), scheduledAt("n1", time.Now().Add(time.Minute))))
		first.Stop()

		rec := &deliveryRecorder{}
		second := NewScheduler(idx, nil, rec.deliver, zap.NewNop(), nil, SchedulerConfig{
			Now: func() time.Time { return time.Now().Add(2 * time.Minute) },
		})
		t.Cleanup(second.Stop)

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		go func() { _ = second.Run(ctx) }()

		require.Eventually(t, func() bool { return len(rec.IDs()) == 1 }, time.Second, 5*time.Millisecond)
	})
}

func TestSchedulerRecovery(t *testing.T) {
	t.Parallel()

	t.Run("색인 추가에 실패해도 horizon 안의 알림은 발송된다", func(t *testing.T) {
		t.Parallel()

		idx := newFlakyDueIndex()
		idx.fail.Store(true)
		rec := &deliveryRecorder{}
		s := NewScheduler(idx, nil, rec.deliver, zap.NewNop(), nil, SchedulerConfig{})
		t.Cleanup(s.Stop)

		err := s.Observe(t.Context(), scheduledAt("n1", time.Now().Add(10*time.Millisecond)))
		require.Error(t, err)

		require.Eventually(t, func() bool { return len(rec.IDs()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"n1"}, rec.IDs())
	})

	t.Run("색인에서 빠진 scheduled 레코드를 스윕이 되돌려 발송한다", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		source := &fakeScheduledSource{rows: []Notification{
			scheduledAt("lost", now.Add(10*time.Millisecond)),
			scheduledAt("far", now.Add(48*time.Hour)),
		}}
		idx := NewMemoryDueIndex()
		rec := &deliveryRecorder{}
		s := NewScheduler(idx, source, rec.deliver, zap.NewNop(), nil, SchedulerConfig{Horizon: time.Hour})
		t.Cleanup(s.Stop)

		armed, err := s.Sweep(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, armed)

		require.Eventually(t, func() bool { return len(rec.IDs()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"lost"}, rec.IDs())

		// horizon 밖 레코드는 색인에도 아직 넣지 않는다.
		pending, err := idx.Pending(t.Context(), now.Add(72*time.Hour), 0, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("이미 타이머가 걸린 레코드는 다시 걸지 않는다", func(t *testing.T) {
		t.Parallel()

		n := scheduledAt("n1", time.Now().Add(30*time.Minute))
		source := &fakeScheduledSource{rows: []Notification{n}}
		s := NewScheduler(NewMemoryDueIndex(), source, (&deliveryRecorder{}).deliver, zap.NewNop(), nil, SchedulerConfig{})
		t.Cleanup(s.Stop)

		require.NoError(t, s.Observe(t.Context(), n))
		armed, err := s.Sweep(t.Context())
		require.NoError(t, err)
		assert.Zero(t, armed)
		assert.Equal(t, 1, s.Armed())
	})
}

func TestSchedulerSweepPaging(t *testing.T) {
	t.Parallel()

	// D-1 알림은 모두 21:00 UTC 로 모이므로 같은 시각 항목이 배치 크기를 넘는다.
	at := time.Now().Add(30 * time.Minute)
	total := sweepBatchSize*2 + 7

	idx := NewMemoryDueIndex()
	for i := range total {
		require.NoError(t, idx.Add(t.Context(), fmt.Sprintf("n-%05d", i), at))
	}

	s := NewScheduler(idx, nil, (&deliveryRecorder{}).deliver, zap.NewNop(), nil, SchedulerConfig{})
	t.Cleanup(s.Stop)

	armed, err := s.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, total, armed)
	assert.Equal(t, total, s.Armed())

	again, err := s.Sweep(t.Context())
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestSchedulerIsolation(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		delivered []string
	)
	deliver := func(_ context.Context, id string) {
		if id == "boom" {
			panic("gateway exploded")
		}
		mu.Lock()
		delivered = append(delivered, id)
		mu.Unlock()
	}

	s := NewScheduler(NewMemoryDueIndex(), nil, deliver, zap.NewNop(), nil, SchedulerConfig{})
	t.Cleanup(s.Stop)

	now := time.Now()
	require.NoError(t, s.Observe(t.Context(), scheduledAt("boom", now)))
	require.NoError(t, s.Observe(t.Context(), scheduledAt("ok-1", now)))
	require.NoError(t, s.Observe(t.Context(), scheduledAt("ok-2", now.Add(20*time.Millisecond))))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerStop(t *testing.T) {
	t.Parallel()

	rec := &deliveryRecorder{}
	idx := NewMemoryDueIndex()
	s := NewScheduler(idx, nil, rec.deliver, zap.NewNop(), nil, SchedulerConfig{})

	require.NoError(t, s.Observe(t.Context(), scheduledAt("n1", time.Now().Add(50*time.Millisecond))))
	s.Stop()
	assert.Zero(t, s.Armed())

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.IDs())

	// 해제된 예약은 색인에 남는다.
	pending, err := idx.Pending(t.Context(), time.Now().Add(time.Hour), 0, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// Stop 이후 Observe 는 타이머를 걸지 않는다.
	require.NoError(t, s.Observe(t.Context(), scheduledAt("n2", time.Now())))
	assert.Zero(t, s.Armed())
}
