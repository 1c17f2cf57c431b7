package notification

import (
	"fmt"
	"time"
)

// NewFriendRequest 는 새 친구 요청을 받은 사용자(UserID2)에게 보낼 즉시 알림을 만든다.
// requesterNickname 은 UserID1 의 닉네임. 비어 있으면 대체 이름을 쓴다.
// 생성 상태는 dispatching 이므로 스케줄러가 다시 집어 가지 않는다.
func NewFriendRequest(friendshipID string, f Friendship, requesterNickname string, now time.Time) (Notification, error) {
	if err := validateFriendship(friendshipID, f); err != nil {
		return Notification{}, err
	}
	now = now.UTC()
	return Notification{
		UserID:       f.UserID2,
		FriendshipID: friendshipID,
		Kind:         KindFriendRequest,
		Title:        DefaultTitle,
		Message:      friendRequestMessage(requesterNickname),
		SendAt:       now,
		Status:       StatusDispatching,
		CreatedAt:    now,
	}, nil
}

// NewFriendAccepted 는 요청자(UserID1)에게 수락 사실을 알리는 즉시 알림을 만든다.
// accepterNickname 은 UserID2 의 닉네임.
func NewFriendAccepted(friendshipID string, f Friendship, accepterNickname string, now time.Time) (Notification, error) {
	if err := validateFriendship(friendshipID, f); err != nil {
		return Notification{}, err
	}
	now = now.UTC()
	return Notification{
		UserID:       f.UserID1,
		FriendshipID: friendshipID,
		Kind:         KindFriendAccepted,
		Title:        DefaultTitle,
		Message:      friendAcceptedMessage(accepterNickname),
		SendAt:       now,
		Status:       StatusDispatching,
		CreatedAt:    now,
	}, nil
}

// IsAcceptTransition 은 수락되지 않은 상태에서 accepted 로 바뀌었는지 판정한다.
func IsAcceptTransition(before, after Friendship) bool {
	return before.Status != FriendshipAccepted && after.Status == FriendshipAccepted
}

func validateFriendship(friendshipID string, f Friendship) error {
	switch {
	case friendshipID == "":
		return fmt.Errorf("%w: 친구 관계 ID 누락", ErrInvalidFriendship)
	case f.UserID1 == "" || f.UserID2 == "":
		return fmt.Errorf("%w: userId1/userId2 누락", ErrInvalidFriendship)
	}
	return nil
}
