package notificationdb

import (
	"context"
	"database/sql"
)

const notificationColumns = `id, user_id, capsule_id, friendship_id, kind, title, message,
    send_at, status, reading, dedup_key, last_error, delivered_at, created_at`

func scanNotification(row interface{ Scan(...any) error }) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.CapsuleID,
		&n.FriendshipID,
		&n.Kind,
		&n.Title,
		&n.Message,
		&n.SendAt,
		&n.Status,
		&n.Reading,
		&n.DedupKey,
		&n.LastError,
		&n.DeliveredAt,
		&n.CreatedAt,
	)
	return n, err
}

func scanNotifications(rows *sql.Rows) ([]Notification, error) {
	defer rows.Close()
	items := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertNotification = `
INSERT INTO notifications (
    id, user_id, capsule_id, friendship_id, kind, title, message,
    send_at, status, reading, dedup_key, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
ON CONFLICT(dedup_key) DO NOTHING
`

// InsertNotificationParams 는 InsertNotification 의 인자.
type InsertNotificationParams struct {
	ID           string
	UserID       string
	CapsuleID    sql.NullString
	FriendshipID sql.NullString
	Kind         string
	Title        string
	Message      string
	SendAt       int64
	Status       string
	DedupKey     string
	CreatedAt    int64
}

// InsertNotification 은 알림을 추가하고 실제로 추가된 행 수(0 또는 1)를 반환한다.
// 같은 dedup_key 가 이미 있으면 0 을 반환한다.
func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertNotification,
		arg.ID,
		arg.UserID,
		arg.CapsuleID,
		arg.FriendshipID,
		arg.Kind,
		arg.Title,
		arg.Message,
		arg.SendAt,
		arg.Status,
		arg.DedupKey,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getNotificationByID = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

// GetNotificationByID 는 ID 로 알림을 조회한다.
func (q *Queries) GetNotificationByID(ctx context.Context, id string) (Notification, error) {
	return scanNotification(q.db.QueryRowContext(ctx, getNotificationByID, id))
}

const listNotificationsByUserID = `SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = ? AND send_at <= ?
ORDER BY send_at DESC, id
LIMIT ?`

// ListNotificationsByUserIDParams 는 ListNotificationsByUserID 의 인자.
type ListNotificationsByUserIDParams struct {
	UserID string
	Until  int64
	Limit  int64
}

// ListNotificationsByUserID 는 발송 시각이 지난 사용자 알림을 최신순으로 조회한다.
func (q *Queries) ListNotificationsByUserID(ctx context.Context, arg ListNotificationsByUserIDParams) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listNotificationsByUserID, arg.UserID, arg.Until, arg.Limit)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

const listUnreadNotifications = `SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = ? AND reading = 0 AND send_at <= ?
ORDER BY send_at DESC, id
LIMIT ?`

// ListUnreadNotifications 는 발송 시각이 지난 미읽음 알림을 조회한다.
func (q *Queries) ListUnreadNotifications(ctx context.Context, arg ListNotificationsByUserIDParams) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listUnreadNotifications, arg.UserID, arg.Until, arg.Limit)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

const markAsRead = `UPDATE notifications SET reading = 1 WHERE id = ?`

// MarkAsRead 는 알림 하나를 읽음으로 표시한다.
func (q *Queries) MarkAsRead(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markAsRead, id)
	return err
}

const markAllAsRead = `UPDATE notifications SET reading = 1 WHERE user_id = ? AND reading = 0 AND send_at <= ?`

// MarkAllAsRead 는 발송 시각이 지난 사용자 알림을 모두 읽음으로 표시하고 갱신 행 수를 반환한다.
func (q *Queries) MarkAllAsRead(ctx context.Context, userID string, until int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, markAllAsRead, userID, until)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const claimNotification = `UPDATE notifications SET status = 'dispatching' WHERE id = ? AND status = 'scheduled'`

// ClaimNotification 은 scheduled 상태의 알림을 dispatching 으로 바꾼다.
// 갱신 행 수가 1 이면 호출자가 발송 권한을 얻은 것이다.
func (q *Queries) ClaimNotification(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, claimNotification, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateNotificationStatus = `UPDATE notifications
SET status = ?, last_error = ?, delivered_at = ?
WHERE id = ?`

// UpdateNotificationStatusParams 는 UpdateNotificationStatus 의 인자.
type UpdateNotificationStatusParams struct {
	Status      string
	LastError   sql.NullString
	DeliveredAt sql.NullInt64
	ID          string
}

// UpdateNotificationStatus 는 발송 결과를 기록한다.
func (q *Queries) UpdateNotificationStatus(ctx context.Context, arg UpdateNotificationStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateNotificationStatus, arg.Status, arg.LastError, arg.DeliveredAt, arg.ID)
	return err
}

const listScheduledNotifications = `SELECT ` + notificationColumns + ` FROM notifications
WHERE status = 'scheduled'
ORDER BY send_at
LIMIT ?`

// ListScheduledNotifications 는 아직 발송되지 않은 알림을 발송 시각 순으로 조회한다.
func (q *Queries) ListScheduledNotifications(ctx context.Context, limit int64) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listScheduledNotifications, limit)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

const listScheduledNotificationsUntil = `SELECT ` + notificationColumns + ` FROM notifications
WHERE status = 'scheduled' AND send_at <= ?
ORDER BY send_at, id
LIMIT ? OFFSET ?`

// ListScheduledNotificationsUntilParams 는 ListScheduledNotificationsUntil 의 인자.
type ListScheduledNotificationsUntilParams struct {
	Until  int64
	Limit  int64
	Offset int64
}

// ListScheduledNotificationsUntil 은 until 까지 발송 예정인 scheduled 알림을 발송 시각 순으로 조회한다.
func (q *Queries) ListScheduledNotificationsUntil(ctx context.Context, arg ListScheduledNotificationsUntilParams) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listScheduledNotificationsUntil, arg.Until, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}
