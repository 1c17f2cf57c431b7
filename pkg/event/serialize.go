package event

import (
	"encoding/json"
	"fmt"
)

// DecodeData 는 이벤트의 Data 필드를 지정한 타입으로 역직렬화한다.
// Data 가 비어 있으면 제로 값을 반환한다.
func DecodeData[T any](e *Event) (*T, error) {
	var data T
	if len(e.Data) == 0 {
		return &data, nil
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("이벤트 데이터 역직렬화 실패: %w", err)
	}
	return &data, nil
}
