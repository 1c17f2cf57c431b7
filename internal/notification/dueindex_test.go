package notification

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisIndex(t *testing.T) *RedisDueIndex {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDueIndex(client, "")
}

func TestDueIndex(t *testing.T) {
	t.Parallel()

	indexes := map[string]func(t *testing.T) DueIndex{
		"memory": func(*testing.T) DueIndex { return NewMemoryDueIndex() },
		"redis":  func(t *testing.T) DueIndex { return newTestRedisIndex(t) },
	}

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for name, newIndex := range indexes {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			t.Run("Pending 은 until 이전 항목만 시각 순으로 반환한다", func(t *testing.T) {
				t.Parallel()
				idx := newIndex(t)

				require.NoError(t, idx.Add(t.Context(), "c", base.Add(3*time.Hour)))
				require.NoError(t, idx.Add(t.Context(), "a", base.Add(time.Hour)))
				require.NoError(t, idx.Add(t.Context(), "b", base.Add(2*time.Hour)))

				got, err := idx.Pending(t.Context(), base.Add(2*time.Hour), 0, 10)
				require.NoError(t, err)
				require.Len(t, got, 2)
				assert.Equal(t, "a", got[0].ID)
				assert.Equal(t, base.Add(time.Hour), got[0].At)
				assert.Equal(t, "b", got[1].ID)

				limited, err := idx.Pending(t.Context(), base.Add(10*time.Hour), 0, 1)
				require.NoError(t, err)
				require.Len(t, limited, 1)
				assert.Equal(t, "a", limited[0].ID)
			})

			t.Run("같은 시각의 항목은 offset 으로 끝까지 넘겨 볼 수 있다", func(t *testing.T) {
				t.Parallel()
				idx := newIndex(t)

				for _, id := range []string{"e", "c", "a", "d", "b"} {
					require.NoError(t, idx.Add(t.Context(), id, base))
				}

				var seen []string
				for offset := 0; ; offset += 2 {
					page, err := idx.Pending(t.Context(), base, offset, 2)
					require.NoError(t, err)
					for _, e := range page {
						seen = append(seen, e.ID)
					}
					if len(page) < 2 {
						break
					}
				}
				assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
			})

			t.Run("Add 는 기존 예약을 덮어쓰지 않는다", func(t *testing.T) {
				t.Parallel()
				idx := newIndex(t)

				require.NoError(t, idx.Add(t.Context(), "a", base))
				require.NoError(t, idx.Add(t.Context(), "a", base.Add(time.Hour)))

				got, err := idx.Pending(t.Context(), base.Add(time.Hour), 0, 10)
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.Equal(t, base, got[0].At)
			})

			t.Run("Claim 은 동시에 호출해도 하나만 성공한다", func(t *testing.T) {
				t.Parallel()
				idx := newIndex(t)
				require.NoError(t, idx.Add(t.Context(), "a", base))

				var wins atomic.Int32
				var wg sync.WaitGroup
				for range 8 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						ok, err := idx.Claim(t.Context(), "a")
						if err == nil && ok {
							wins.Add(1)
						}
					}()
				}
				wg.Wait()
				assert.Equal(t, int32(1), wins.Load())

				got, err := idx.Pending(t.Context(), base.Add(time.Hour), 0, 10)
				require.NoError(t, err)
				assert.Empty(t, got)
			})

			t.Run("없는 항목의 Claim 은 false", func(t *testing.T) {
				t.Parallel()
				idx := newIndex(t)

				ok, err := idx.Claim(t.Context(), "missing")
				require.NoError(t, err)
				assert.False(t, ok)
			})
		})
	}
}
