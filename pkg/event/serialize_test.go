package event

import (
	"encoding/json"
	"testing"
	"time"
)

// withData 는 data 를 JSON 으로 담은 이벤트를 만든다.
func withData(t *testing.T, eventType Type, data any) *Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("데이터 직렬화 실패: %v", err)
	}
	return &Event{ID: "e-1", AggregateID: "agg-1", EventType: eventType, Data: raw, Version: 1, CreatedAt: time.Now().UTC()}
}

// TestDecodeData 는 DecodeData 함수를 검증한다.
func TestDecodeData(t *testing.T) {
	t.Parallel()

	t.Run("CapsuleCreatedData를 디코드할 수 있다", func(t *testing.T) {
		t.Parallel()

		uploadedAt := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		unlockAt := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		ev := withData(t, TypeCapsuleCreated, CapsuleCreatedData{
			UserID:            "user-1",
			Title:             "여행",
			UploadedAt:        &uploadedAt,
			CanUnlockAt:       &unlockAt,
			SharedWithUserIDs: []string{"user-2"},
		})

		decoded, err := DecodeData[CapsuleCreatedData](ev)
		if err != nil {
			t.Fatalf("DecodeData()에서 에러 발생: %v", err)
		}
		if decoded.Title != "여행" {
			t.Errorf("Title = %q, want %q", decoded.Title, "여행")
		}
		if decoded.CanUnlockAt == nil || !decoded.CanUnlockAt.Equal(unlockAt) {
			t.Errorf("CanUnlockAt = %v, want %v", decoded.CanUnlockAt, unlockAt)
		}
		if len(decoded.SharedWithUserIDs) != 1 || decoded.SharedWithUserIDs[0] != "user-2" {
			t.Errorf("SharedWithUserIDs = %v", decoded.SharedWithUserIDs)
		}
	})

	t.Run("FriendshipUpdatedData를 디코드할 수 있다", func(t *testing.T) {
		t.Parallel()

		ev := withData(t, TypeFriendshipUpdated, FriendshipUpdatedData{
			Before: FriendshipData{UserID1: "u1", UserID2: "u2", Status: "pending"},
			After:  FriendshipData{UserID1: "u1", UserID2: "u2", Status: "accepted"},
		})

		decoded, err := DecodeData[FriendshipUpdatedData](ev)
		if err != nil {
			t.Fatalf("DecodeData()에서 에러 발생: %v", err)
		}
		if decoded.Before.Status != "pending" || decoded.After.Status != "accepted" {
			t.Errorf("Status = %q -> %q, want pending -> accepted", decoded.Before.Status, decoded.After.Status)
		}
	})

	t.Run("누락된 시각 필드는 nil로 디코드된다", func(t *testing.T) {
		t.Parallel()

		ev := &Event{Data: json.RawMessage(`{"userId":"u1","title":"t"}`)}

		decoded, err := DecodeData[CapsuleCreatedData](ev)
		if err != nil {
			t.Fatalf("DecodeData()에서 에러 발생: %v", err)
		}
		if decoded.UploadedAt != nil {
			t.Errorf("UploadedAt = %v, want nil", decoded.UploadedAt)
		}
		if decoded.CanUnlockAt != nil {
			t.Errorf("CanUnlockAt = %v, want nil", decoded.CanUnlockAt)
		}
	})

	t.Run("빈 Data는 제로 값으로 디코드된다", func(t *testing.T) {
		t.Parallel()

		decoded, err := DecodeData[NotificationCreatedData](&Event{})
		if err != nil {
			t.Fatalf("DecodeData()에서 에러 발생: %v", err)
		}
		if decoded.UserID != "" || decoded.SendAt != nil {
			t.Errorf("decoded = %+v, want zero value", decoded)
		}
	})

	t.Run("잘못된 JSON은 에러를 반환한다", func(t *testing.T) {
		t.Parallel()

		ev := &Event{Data: json.RawMessage(`{invalid json`)}

		decoded, err := DecodeData[CapsuleCreatedData](ev)
		if err == nil {
			t.Fatal("DecodeData()가 에러를 반환해야 하지만 nil이 반환됨")
		}
		if decoded != nil {
			t.Error("에러 시 nil이 아닌 데이터가 반환됨")
		}
	})
}
