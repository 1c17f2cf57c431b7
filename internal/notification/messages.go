package notification

import "fmt"

const unknownNickname = "알 수 없는 사용자"

func reminderMessage(daysElapsed int) string {
	return fmt.Sprintf("두근두근 %d일 전 남겨진 당신의 기억이 돌아옵니다 💌", daysElapsed)
}

// unlockedMessage 는 D-Day 메시지. uploadedDate 는 YYYY-MM-DD.
func unlockedMessage(title, uploadedDate string) string {
	return fmt.Sprintf("당신의 기억이 돌아왔습니다 🎉 %s (%s에 남긴 기억)", title, uploadedDate)
}

func sharedMessage(title string) string {
	return fmt.Sprintf("기억 캡슐 '%s'이(가) 당신에게 공유되었습니다 💌", title)
}

func friendRequestMessage(nickname string) string {
	return fmt.Sprintf("%s님이 친구 요청을 보냈어요 👋", displayName(nickname))
}

func friendAcceptedMessage(nickname string) string {
	return fmt.Sprintf("%s님이 친구 요청을 수락했어요 🤝", displayName(nickname))
}

func displayName(nickname string) string {
	if nickname == "" {
		return unknownNickname
	}
	return nickname
}
