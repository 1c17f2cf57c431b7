package notification

import (
	"errors"
	"fmt"
	"time"
)

// DefaultTitle 은 모든 푸시 알림에 쓰는 제목.
const DefaultTitle = "Time& 알림"

var (
	// ErrInvalidCapsule 은 캡슐 문서에 필수 필드가 없거나 시각이 어긋났을 때 반환된다.
	ErrInvalidCapsule = errors.New("캡슐 데이터가 올바르지 않습니다")
	// ErrInvalidFriendship 은 친구 관계 문서에 사용자 ID 가 없을 때 반환된다.
	ErrInvalidFriendship = errors.New("친구 관계 데이터가 올바르지 않습니다")
	// ErrNotFound 는 알림 레코드가 없을 때 반환된다.
	ErrNotFound = errors.New("알림을 찾을 수 없습니다")
	// ErrProfileNotFound 는 사용자 프로필이 없을 때 반환된다.
	ErrProfileNotFound = errors.New("사용자 프로필을 찾을 수 없습니다")
	// ErrForbidden 은 다른 사용자의 알림을 조작하려 할 때 반환된다.
	ErrForbidden = errors.New("이 알림을 조작할 권한이 없습니다")
)

// Kind 는 알림 종류.
type Kind string

const (
	// KindCapsuleShared 는 캡슐이 공유되었음을 즉시 알린다.
	KindCapsuleShared Kind = "capsule_shared"
	// KindCapsuleReminder 는 열람 하루 전(D-1) 알림.
	KindCapsuleReminder Kind = "capsule_reminder"
	// KindCapsuleUnlocked 는 열람 당일(D-Day) 알림.
	KindCapsuleUnlocked Kind = "capsule_unlocked"
	// KindFriendRequest 는 친구 요청 수신 알림.
	KindFriendRequest Kind = "friend_request"
	// KindFriendAccepted 는 친구 요청 수락 알림.
	KindFriendAccepted Kind = "friend_accepted"
)

// Status 는 알림의 발송 상태.
//
//	scheduled → dispatching → delivered | skipped | failed
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusDispatching Status = "dispatching"
	StatusDelivered   Status = "delivered"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

// Outcome 은 발송 시도 한 번의 결과.
type Outcome string

const (
	// OutcomeDelivered 는 게이트웨이가 메시지를 받았음을 뜻한다.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeSkipped 는 수신자가 기기를 등록하지 않아 보내지 않았음을 뜻한다.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed 는 게이트웨이 호출 또는 프로필 조회가 실패했음을 뜻한다.
	OutcomeFailed Outcome = "failed"
)

// Status 는 결과에 대응하는 최종 상태를 반환한다.
func (o Outcome) Status() Status {
	switch o {
	case OutcomeDelivered:
		return StatusDelivered
	case OutcomeSkipped:
		return StatusSkipped
	default:
		return StatusFailed
	}
}

// Capsule 은 사용자가 남긴 기억 캡슐. 이 패키지는 읽기만 한다.
type Capsule struct {
	// UserID 는 소유자 ID.
	UserID string
	// Title 은 캡슐 제목.
	Title string
	// UploadedAt 은 캡슐을 남긴 시각.
	UploadedAt time.Time
	// CanUnlockAt 은 캡슐을 열 수 있게 되는 시각.
	CanUnlockAt time.Time
	// SharedWithUserIDs 는 공유받은 사용자 ID 목록.
	SharedWithUserIDs []string
}

// 친구 관계 상태.
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
)

// Friendship 은 두 사용자 사이의 친구 관계 문서.
type Friendship struct {
	// UserID1 은 요청자.
	UserID1 string
	// UserID2 는 요청을 받은 사용자.
	UserID2 string
	// Status 는 pending, accepted, rejected 중 하나.
	Status string
}

// Notification 은 수신자 한 명에게 보낼 알림 하나.
// CapsuleID 와 FriendshipID 는 동시에 채워지지 않는다.
type Notification struct {
	ID           string
	UserID       string
	CapsuleID    string
	FriendshipID string
	Kind         Kind
	Title        string
	Message      string
	SendAt       time.Time
	Status       Status
	Reading      bool
	LastError    string
	DeliveredAt  time.Time
	CreatedAt    time.Time
}

// DedupKey 는 원천 문서, 종류, 수신자로 알림을 식별하는 키를 반환한다.
// 같은 트리거 이벤트가 다시 전달돼도 같은 키가 나온다.
func (n Notification) DedupKey() string {
	if n.FriendshipID != "" {
		return fmt.Sprintf("friendship:%s:%s:%s", n.FriendshipID, n.Kind, n.UserID)
	}
	return fmt.Sprintf("capsule:%s:%s:%s", n.CapsuleID, n.Kind, n.UserID)
}

// Profile 은 외부 프로필 저장소가 관리하는 사용자 정보.
type Profile struct {
	UserID        string
	Nickname      string
	DeliveryToken string
}
