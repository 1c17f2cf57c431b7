// Package httpclient 는 외부 서비스와 JSON 으로 통신하는 HTTP 클라이언트를 제공한다.
//
// 푸시 메시징 게이트웨이 호출, 상위 이벤트 피드 폴링 등
// 외부 협력자와의 통신 방식을 하나로 맞춘다.
package httpclient
