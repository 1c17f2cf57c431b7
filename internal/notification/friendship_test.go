package notification

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFriendRequest(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)

	t.Run("요청을 받은 userId2 에게 요청자 닉네임으로 만든다", func(t *testing.T) {
		t.Parallel()

		n, err := NewFriendRequest("f1", Friendship{UserID1: "a", UserID2: "b", Status: FriendshipPending}, "민수", now)
		require.NoError(t, err)
		assert.Equal(t, "b", n.UserID)
		assert.Equal(t, "f1", n.FriendshipID)
		assert.Empty(t, n.CapsuleID)
		assert.Equal(t, KindFriendRequest, n.Kind)
		assert.Equal(t, now, n.SendAt)
		assert.Equal(t, StatusDispatching, n.Status)
		assert.Equal(t, "민수님이 친구 요청을 보냈어요 👋", n.Message)
	})

	t.Run("닉네임이 없으면 대체 이름을 쓴다", func(t *testing.T) {
		t.Parallel()

		n, err := NewFriendRequest("f1", Friendship{UserID1: "a", UserID2: "b"}, "", now)
		require.NoError(t, err)
		assert.Contains(t, n.Message, unknownNickname)
	})

	t.Run("사용자 ID 가 없으면 ErrInvalidFriendship", func(t *testing.T) {
		t.Parallel()

		_, err := NewFriendRequest("f1", Friendship{UserID1: "a"}, "", now)
		assert.True(t, errors.Is(err, ErrInvalidFriendship))

		_, err = NewFriendRequest("", Friendship{UserID1: "a", UserID2: "b"}, "", now)
		assert.True(t, errors.Is(err, ErrInvalidFriendship))
	})
}

func TestNewFriendAccepted(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	n, err := NewFriendAccepted("f1", Friendship{UserID1: "a", UserID2: "b", Status: FriendshipAccepted}, "지영", now)
	require.NoError(t, err)
	assert.Equal(t, "a", n.UserID)
	assert.Equal(t, KindFriendAccepted, n.Kind)
	assert.Equal(t, "지영님이 친구 요청을 수락했어요 🤝", n.Message)
}

func TestIsAcceptTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		before, after string
		want          bool
	}{
		{before: FriendshipPending, after: FriendshipAccepted, want: true},
		{before: FriendshipRejected, after: FriendshipAccepted, want: true},
		{before: FriendshipAccepted, after: FriendshipAccepted, want: false},
		{before: FriendshipPending, after: FriendshipRejected, want: false},
		{before: FriendshipPending, after: FriendshipPending, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.before+"->"+tt.after, func(t *testing.T) {
			t.Parallel()
			got := IsAcceptTransition(Friendship{Status: tt.before}, Friendship{Status: tt.after})
			assert.Equal(t, tt.want, got)
		})
	}
}
