// Package notification 은 기억 캡슐과 친구 이벤트에서 알림을 만들고
// 발송 시각에 맞춰 푸시로 전달하는 알림 엔진이다.
//
// 흐름은 다음과 같다.
//
//	트리거 이벤트 → DeriveCapsule / NewFriendRequest → Store(배치 저장)
//	→ Scheduler(발송 시각 대기) → Dispatcher → 푸시 게이트웨이
//
// 친구 요청/수락 알림은 스케줄러를 거치지 않고 저장 직후 바로 발송한다.
// 발송 결과(delivered, skipped, failed)는 알림 레코드에 다시 기록한다.
package notification
