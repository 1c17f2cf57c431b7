package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	notificationdb "github.com/nao1215/timeand-notifier/internal/notification/db"
)

// Store 는 SQLite 기반 알림 저장소.
// 알림 레코드는 이 서비스만 쓰고, users 테이블은 읽기만 한다.
type Store struct {
	db      *sql.DB
	queries *notificationdb.Queries
	log     *zap.Logger
}

// OpenStore 는 path 의 SQLite 파일을 열고 마이그레이션을 적용한다.
// ":memory:" 를 넘기면 단일 커넥션 인메모리 DB 를 쓴다.
func OpenStore(path string, log *zap.Logger) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("데이터베이스 연결 실패: %w", err)
	}
	if path == ":memory:" {
		// 커넥션마다 별도 DB 가 생기므로 하나로 고정한다.
		sqlDB.SetMaxOpenConns(1)
	}

	s, err := NewStore(sqlDB, log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewStore 는 이미 열린 DB 위에 저장소를 만든다.
func NewStore(sqlDB *sql.DB, log *zap.Logger) (*Store, error) {
	if err := initSchema(sqlDB, log); err != nil {
		return nil, fmt.Errorf("스키마 초기화 실패: %w", err)
	}
	return &Store{
		db:      sqlDB,
		queries: notificationdb.New(sqlDB),
		log:     log,
	}, nil
}

// Close 는 DB 연결을 닫는다.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping 은 DB 연결 상태를 확인한다.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get 은 ID 로 알림을 조회한다. 없으면 ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Notification, error) {
	row, err := s.queries.GetNotificationByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	if err != nil {
		return Notification{}, fmt.Errorf("알림 조회 실패: %w", err)
	}
	return fromRow(row), nil
}

// GetProfile 은 사용자 프로필을 조회한다. 없으면 ErrProfileNotFound.
func (s *Store) GetProfile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.queries.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("프로필 조회 실패: %w", err)
	}
	return Profile{
		UserID:        u.ID,
		Nickname:      u.Nickname.String,
		DeliveryToken: u.DeliveryToken.String,
	}, nil
}

// Nickname 은 사용자 닉네임을 반환한다. 프로필이 없으면 빈 문자열.
func (s *Store) Nickname(ctx context.Context, userID string) (string, error) {
	p, err := s.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.Nickname, nil
}

// Batch 는 여러 알림을 한 트랜잭션으로 저장한다.
type Batch struct {
	store *Store
	items []Notification
}

// NewBatch 는 빈 배치를 만든다.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s}
}

// Set 은 알림을 배치에 추가한다. ID 가 비어 있으면 새로 발급한다.
func (b *Batch) Set(n Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = StatusScheduled
	}
	b.items = append(b.items, n)
}

// Len 은 배치에 담긴 알림 수.
func (b *Batch) Len() int {
	return len(b.items)
}

// Commit 은 배치를 한 트랜잭션으로 저장하고 실제로 추가된 알림만 반환한다.
// 같은 dedup 키가 이미 있는 알림은 건너뛴다. 하나라도 실패하면 전부 되돌린다.
func (b *Batch) Commit(ctx context.Context) ([]Notification, error) {
	if len(b.items) == 0 {
		return nil, nil
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("트랜잭션 시작 실패: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := b.store.queries.WithTx(tx)
	inserted := make([]Notification, 0, len(b.items))
	for _, n := range b.items {
		affected, err := q.InsertNotification(ctx, toInsertParams(n))
		if err != nil {
			return nil, fmt.Errorf("알림 저장 실패 (user_id=%s, kind=%s): %w", n.UserID, n.Kind, err)
		}
		if affected == 0 {
			b.store.log.Info("이미 생성된 알림이라 건너뜁니다", zap.String("dedup_key", n.DedupKey()))
			continue
		}
		inserted = append(inserted, n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("트랜잭션 커밋 실패: %w", err)
	}
	return inserted, nil
}

// Insert 는 알림 하나를 저장한다. 이미 있으면 false 를 반환한다.
func (s *Store) Insert(ctx context.Context, n Notification) (Notification, bool, error) {
	b := s.NewBatch()
	b.Set(n)
	inserted, err := b.Commit(ctx)
	if err != nil {
		return Notification{}, false, err
	}
	if len(inserted) == 0 {
		return Notification{}, false, nil
	}
	return inserted[0], true, nil
}

// ListByUser 는 발송 시각이 until 이전인 사용자 알림을 최신순으로 반환한다.
func (s *Store) ListByUser(ctx context.Context, userID string, until time.Time, limit int) ([]Notification, error) {
	rows, err := s.queries.ListNotificationsByUserID(ctx, notificationdb.ListNotificationsByUserIDParams{
		UserID: userID,
		Until:  until.UnixMilli(),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("알림 목록 조회 실패: %w", err)
	}
	return fromRows(rows), nil
}

// ListUnread 는 ListByUser 중 읽지 않은 알림만 반환한다.
func (s *Store) ListUnread(ctx context.Context, userID string, until time.Time, limit int) ([]Notification, error) {
	rows, err := s.queries.ListUnreadNotifications(ctx, notificationdb.ListNotificationsByUserIDParams{
		UserID: userID,
		Until:  until.UnixMilli(),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("미읽음 알림 조회 실패: %w", err)
	}
	return fromRows(rows), nil
}

// MarkAsRead 는 userID 소유의 알림을 읽음으로 표시한다.
func (s *Store) MarkAsRead(ctx context.Context, id, userID string) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	if err := s.queries.MarkAsRead(ctx, id); err != nil {
		return fmt.Errorf("읽음 처리 실패: %w", err)
	}
	return nil
}

// MarkAllAsRead 는 발송 시각이 지난 사용자 알림을 모두 읽음으로 표시한다.
func (s *Store) MarkAllAsRead(ctx context.Context, userID string, until time.Time) (int64, error) {
	n, err := s.queries.MarkAllAsRead(ctx, userID, until.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("전체 읽음 처리 실패: %w", err)
	}
	return n, nil
}

// Claim 은 scheduled 상태의 알림을 dispatching 으로 바꾼다.
// 여러 프로세스가 동시에 호출해도 true 는 하나만 받는다.
func (s *Store) Claim(ctx context.Context, id string) (bool, error) {
	n, err := s.queries.ClaimNotification(ctx, id)
	if err != nil {
		return false, fmt.Errorf("알림 선점 실패: %w", err)
	}
	return n == 1, nil
}

// RecordOutcome 은 발송 결과를 알림 레코드에 기록한다.
func (s *Store) RecordOutcome(ctx context.Context, id string, outcome Outcome, cause error, at time.Time) error {
	params := notificationdb.UpdateNotificationStatusParams{
		Status: string(outcome.Status()),
		ID:     id,
	}
	if cause != nil {
		params.LastError = sql.NullString{String: cause.Error(), Valid: true}
	}
	if outcome == OutcomeDelivered {
		params.DeliveredAt = sql.NullInt64{Int64: at.UnixMilli(), Valid: true}
	}
	if err := s.queries.UpdateNotificationStatus(ctx, params); err != nil {
		return fmt.Errorf("발송 결과 기록 실패: %w", err)
	}
	return nil
}

// ListScheduled 는 아직 발송되지 않은 알림을 발송 시각 순으로 반환한다.
func (s *Store) ListScheduled(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := s.queries.ListScheduledNotifications(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("예약 알림 조회 실패: %w", err)
	}
	return fromRows(rows), nil
}

// ListScheduledUntil 은 until 까지 발송 예정인 scheduled 알림을 offset 부터 limit 건 반환한다.
// Scheduler 가 예약 색인과 저장소를 맞출 때 쓴다.
func (s *Store) ListScheduledUntil(ctx context.Context, until time.Time, offset, limit int) ([]Notification, error) {
	rows, err := s.queries.ListScheduledNotificationsUntil(ctx, notificationdb.ListScheduledNotificationsUntilParams{
		Until:  until.UnixMilli(),
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("예약 알림 조회 실패: %w", err)
	}
	return fromRows(rows), nil
}

func toInsertParams(n Notification) notificationdb.InsertNotificationParams {
	return notificationdb.InsertNotificationParams{
		ID:           n.ID,
		UserID:       n.UserID,
		CapsuleID:    nullString(n.CapsuleID),
		FriendshipID: nullString(n.FriendshipID),
		Kind:         string(n.Kind),
		Title:        n.Title,
		Message:      n.Message,
		SendAt:       n.SendAt.UnixMilli(),
		Status:       string(n.Status),
		DedupKey:     n.DedupKey(),
		CreatedAt:    n.CreatedAt.UnixMilli(),
	}
}

func fromRow(r notificationdb.Notification) Notification {
	n := Notification{
		ID:           r.ID,
		UserID:       r.UserID,
		CapsuleID:    r.CapsuleID.String,
		FriendshipID: r.FriendshipID.String,
		Kind:         Kind(r.Kind),
		Title:        r.Title,
		Message:      r.Message,
		SendAt:       time.UnixMilli(r.SendAt).UTC(),
		Status:       Status(r.Status),
		Reading:      r.Reading != 0,
		LastError:    r.LastError.String,
		CreatedAt:    time.UnixMilli(r.CreatedAt).UTC(),
	}
	if r.DeliveredAt.Valid {
		n.DeliveredAt = time.UnixMilli(r.DeliveredAt.Int64).UTC()
	}
	return n
}

func fromRows(rows []notificationdb.Notification) []Notification {
	out := make([]Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
