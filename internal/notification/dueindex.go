package notification

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDueKey 는 Redis 정렬 집합 키.
const DefaultDueKey = "notifier:due"

// DueEntry 는 발송 대기 중인 알림 하나.
type DueEntry struct {
	ID string
	At time.Time
}

// DueIndex 는 발송 예정 시각의 영속 색인.
// 프로세스가 재시작돼도 대기 중인 알림을 잃지 않게 한다.
type DueIndex interface {
	// Add 는 id 를 at 에 예약한다. 이미 있으면 바꾸지 않는다.
	Add(ctx context.Context, id string, at time.Time) error
	// Claim 은 id 를 색인에서 꺼낸다. 동시에 호출해도 true 는 하나만 받는다.
	Claim(ctx context.Context, id string) (bool, error)
	// Pending 은 until 이전에 예정된 항목을 (시각, id) 순으로 offset 부터 최대 limit 개 반환한다.
	Pending(ctx context.Context, until time.Time, offset, limit int) ([]DueEntry, error)
}

// RedisDueIndex 는 Redis 정렬 집합(score = 발송 시각 밀리초) 기반 DueIndex.
type RedisDueIndex struct {
	client *redis.Client
	key    string
}

// NewRedisDueIndex 는 Redis 색인을 만든다. key 가 비어 있으면 DefaultDueKey.
func NewRedisDueIndex(client *redis.Client, key string) *RedisDueIndex {
	if key == "" {
		key = DefaultDueKey
	}
	return &RedisDueIndex{client: client, key: key}
}

// Add implements DueIndex.
func (r *RedisDueIndex) Add(ctx context.Context, id string, at time.Time) error {
	err := r.client.ZAddNX(ctx, r.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: id,
	}).Err()
	if err != nil {
		return fmt.Errorf("발송 예약 색인 추가 실패: %w", err)
	}
	return nil
}

// Claim implements DueIndex.
func (r *RedisDueIndex) Claim(ctx context.Context, id string) (bool, error) {
	n, err := r.client.ZRem(ctx, r.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("발송 예약 선점 실패: %w", err)
	}
	return n == 1, nil
}

// Pending implements DueIndex.
func (r *RedisDueIndex) Pending(ctx context.Context, until time.Time, offset, limit int) ([]DueEntry, error) {
	// 같은 score 끼리는 member 사전순으로 정렬되므로 offset 페이지가 안정적이다.
	zs, err := r.client.ZRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    strconv.FormatInt(until.UnixMilli(), 10),
		Offset: int64(offset),
		Count:  int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("발송 예약 조회 실패: %w", err)
	}

	entries := make([]DueEntry, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, DueEntry{ID: id, At: time.UnixMilli(int64(z.Score)).UTC()})
	}
	return entries, nil
}

// MemoryDueIndex 는 프로세스 메모리 기반 DueIndex.
// Redis 가 설정되지 않았을 때 쓴다. 재시작하면 비워지므로 Service.Recover 로 다시 채운다.
type MemoryDueIndex struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryDueIndex 는 빈 색인을 만든다.
func NewMemoryDueIndex() *MemoryDueIndex {
	return &MemoryDueIndex{entries: make(map[string]time.Time)}
}

// Add implements DueIndex.
func (m *MemoryDueIndex) Add(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		m.entries[id] = at.UTC()
	}
	return nil
}

// Claim implements DueIndex.
func (m *MemoryDueIndex) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return false, nil
	}
	delete(m.entries, id)
	return true, nil
}

// Pending implements DueIndex.
func (m *MemoryDueIndex) Pending(_ context.Context, until time.Time, offset, limit int) ([]DueEntry, error) {
	m.mu.Lock()
	entries := make([]DueEntry, 0, len(m.entries))
	for id, at := range m.entries {
		if !at.After(until) {
			entries = append(entries, DueEntry{ID: id, At: at})
		}
	}
	m.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].At.Equal(entries[j].At) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].At.Before(entries[j].At)
	})
	if offset > 0 {
		if offset >= len(entries) {
			return nil, nil
		}
		entries = entries[offset:]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
