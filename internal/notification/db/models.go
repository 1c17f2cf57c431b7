package notificationdb

import "database/sql"

// Notification 은 notifications 테이블의 한 행.
// 시각 컬럼은 모두 UTC 유닉스 밀리초.
type Notification struct {
	ID           string
	UserID       string
	CapsuleID    sql.NullString
	FriendshipID sql.NullString
	Kind         string
	Title        string
	Message      string
	SendAt       int64
	Status       string
	Reading      int64
	DedupKey     string
	LastError    sql.NullString
	DeliveredAt  sql.NullInt64
	CreatedAt    int64
}

// User 는 users 테이블의 한 행. 이 서비스는 읽기만 한다.
type User struct {
	ID            string
	Nickname      sql.NullString
	DeliveryToken sql.NullString
}
