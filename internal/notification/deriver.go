package notification

import (
	"fmt"
	"time"
)

// reminderHourUTC 는 D-1 알림을 보내는 UTC 시각(시).
const reminderHourUTC = 21

// ReminderTime 은 열람 시각 하루 전 날짜의 21:00 UTC 를 반환한다.
// 열람 시각의 시:분과 관계없이 모든 D-1 알림은 같은 시각에 나간다.
func ReminderTime(unlockAt time.Time) time.Time {
	u := unlockAt.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()-1, reminderHourUTC, 0, 0, 0, time.UTC)
}

// DaysElapsed 는 uploadedAt 의 날짜부터 now 의 날짜까지 지난 달력 일수를 반환한다.
// 두 시각 모두 loc 기준 날짜로 자른 뒤 비교한다.
func DaysElapsed(uploadedAt, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	u := uploadedAt.In(loc)
	t := now.In(loc)
	// 서머타임 영향을 받지 않도록 날짜만 UTC 로 옮겨 계산한다.
	from := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}

// DeriveCapsule 은 새로 생성된 캡슐에서 알림 목록을 만든다.
//
// 수신자는 소유자와 공유 대상이다. 수신자마다 다음 순서로 만든다.
//   - 소유자가 아니면 공유 알림 (sendAt = now)
//   - 남긴 지 하루 이상 지났으면 D-1 알림 (sendAt = ReminderTime)
//   - D-Day 알림 (sendAt = CanUnlockAt)
//
// 필수 필드가 없으면 ErrInvalidCapsule 과 빈 목록을 반환한다.
// ID 는 비워 두며 저장 시 채워진다.
func DeriveCapsule(capsuleID string, c Capsule, now time.Time, loc *time.Location) ([]Notification, error) {
	if err := validateCapsule(capsuleID, c); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	unlockAt := c.CanUnlockAt.UTC()
	reminderAt := ReminderTime(unlockAt)
	days := DaysElapsed(c.UploadedAt, now, loc)
	uploadedDate := c.UploadedAt.In(loc).Format(time.DateOnly)
	now = now.UTC()

	var out []Notification
	for _, recipient := range recipients(c) {
		base := Notification{
			UserID:    recipient,
			CapsuleID: capsuleID,
			Title:     DefaultTitle,
			Status:    StatusScheduled,
			CreatedAt: now,
		}

		if recipient != c.UserID {
			n := base
			n.Kind = KindCapsuleShared
			n.Message = sharedMessage(c.Title)
			n.SendAt = now
			out = append(out, n)
		}

		if days > 0 {
			n := base
			n.Kind = KindCapsuleReminder
			n.Message = reminderMessage(days)
			n.SendAt = reminderAt
			out = append(out, n)
		}

		n := base
		n.Kind = KindCapsuleUnlocked
		n.Message = unlockedMessage(c.Title, uploadedDate)
		n.SendAt = unlockAt
		out = append(out, n)
	}
	return out, nil
}

func validateCapsule(capsuleID string, c Capsule) error {
	switch {
	case capsuleID == "":
		return fmt.Errorf("%w: 캡슐 ID 누락", ErrInvalidCapsule)
	case c.UserID == "":
		return fmt.Errorf("%w: userId 누락", ErrInvalidCapsule)
	case c.Title == "":
		return fmt.Errorf("%w: title 누락", ErrInvalidCapsule)
	case c.UploadedAt.IsZero():
		return fmt.Errorf("%w: uploadedAt 누락", ErrInvalidCapsule)
	case c.CanUnlockAt.IsZero():
		return fmt.Errorf("%w: canUnlockAt 누락", ErrInvalidCapsule)
	case c.CanUnlockAt.Before(c.UploadedAt):
		return fmt.Errorf("%w: canUnlockAt 이 uploadedAt 보다 이릅니다", ErrInvalidCapsule)
	}
	return nil
}

// recipients 는 소유자를 맨 앞에 두고 공유 대상을 순서대로 이어 붙인다.
// 빈 ID 와 중복은 건너뛴다.
func recipients(c Capsule) []string {
	seen := map[string]bool{c.UserID: true}
	out := []string{c.UserID}
	for _, id := range c.SharedWithUserIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
