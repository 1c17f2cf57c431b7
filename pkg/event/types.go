package event

import (
	"encoding/json"
	"time"
)

// AggregateType 는 이벤트의 대상이 되는 엔티티 종류를 나타낸다.
type AggregateType string

const (
	// AggregateTypeCapsule 은 기억 캡슐 엔티티를 나타낸다.
	AggregateTypeCapsule AggregateType = "Capsule"
	// AggregateTypeFriendship 은 친구 관계 엔티티를 나타낸다.
	AggregateTypeFriendship AggregateType = "Friendship"
	// AggregateTypeNotification 은 알림 엔티티를 나타낸다.
	AggregateTypeNotification AggregateType = "Notification"
)

// Type 은 이벤트 종류를 나타낸다.
type Type string

const (
	// TypeCapsuleCreated 는 캡슐 문서가 생성되었음을 나타낸다.
	TypeCapsuleCreated Type = "CapsuleCreated"

	// TypeFriendshipCreated 는 친구 요청 문서가 생성되었음을 나타낸다.
	TypeFriendshipCreated Type = "FriendshipCreated"
	// TypeFriendshipUpdated 는 친구 관계 문서가 갱신되었음을 나타낸다.
	TypeFriendshipUpdated Type = "FriendshipUpdated"

	// TypeNotificationCreated 는 알림 문서가 생성되었음을 나타낸다.
	TypeNotificationCreated Type = "NotificationCreated"
)

// Event 는 트리거 메커니즘이 전달하는 불변 도메인 이벤트 레코드다.
// AggregateID 에는 영향을 받은 문서의 생성 ID 가 들어간다.
type Event struct {
	// ID 는 이벤트의 고유 식별자(UUID).
	ID string `json:"id"`
	// AggregateID 는 대상 문서의 식별자.
	AggregateID string `json:"aggregate_id"`
	// AggregateType 은 대상 문서의 종류.
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType 은 이벤트 종류.
	EventType Type `json:"event_type"`
	// Data 는 이벤트 고유 데이터(JSON).
	Data json.RawMessage `json:"data"`
	// Version 은 Aggregate 내 이벤트 순서 번호.
	Version int64 `json:"version"`
	// CreatedAt 은 이벤트 생성 시각.
	CreatedAt time.Time `json:"created_at"`
}

// CapsuleCreatedData 는 CapsuleCreated 이벤트의 데이터.
// 시각 필드는 누락을 구분하기 위해 포인터로 둔다.
type CapsuleCreatedData struct {
	// UserID 는 캡슐 소유자의 사용자 ID.
	UserID string `json:"userId"`
	// Title 은 캡슐 제목.
	Title string `json:"title"`
	// UploadedAt 은 캡슐이 남겨진 시각.
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	// CanUnlockAt 은 캡슐을 열 수 있게 되는 시각.
	CanUnlockAt *time.Time `json:"canUnlockAt,omitempty"`
	// SharedWithUserIDs 는 캡슐을 공유받은 사용자 ID 목록.
	SharedWithUserIDs []string `json:"sharedWithUserIds,omitempty"`
}

// FriendshipData 는 친구 관계 문서의 필드 집합.
type FriendshipData struct {
	// UserID1 은 요청을 보낸 사용자 ID.
	UserID1 string `json:"userId1"`
	// UserID2 는 요청을 받은 사용자 ID.
	UserID2 string `json:"userId2"`
	// Status 는 pending, accepted, rejected 중 하나.
	Status string `json:"status"`
}

// FriendshipUpdatedData 는 FriendshipUpdated 이벤트의 데이터.
type FriendshipUpdatedData struct {
	// Before 는 갱신 전 문서.
	Before FriendshipData `json:"before"`
	// After 는 갱신 후 문서.
	After FriendshipData `json:"after"`
}

// NotificationCreatedData 는 NotificationCreated 이벤트의 데이터.
// 알림 본문은 저장소에서 다시 읽으므로 ID 외에는 참고용이다.
type NotificationCreatedData struct {
	// UserID 는 알림 수신자 ID.
	UserID string `json:"userId,omitempty"`
	// SendAt 은 발송 예정 시각.
	SendAt *time.Time `json:"sendAt,omitempty"`
}
