package trigger

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/timeand-notifier/pkg/event"
)

// RegisterRoutes 는 내부 API 그룹에 트리거 웹훅을 등록한다.
// 인증(X-Internal-Token)은 그룹에 걸린 미들웨어가 맡는다.
func (r *Router) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/triggers/events", r.handleEvent())
}

// handleEvent 는 event.Event 하나를 받아 처리한다.
//
//	202: 처리 완료 또는 무시
//	400: 본문 해석 실패
//	422: 형식은 맞지만 내용이 올바르지 않아 다시 보내도 소용없음
//	500: 저장 실패 등. 호출자가 다시 보내도 중복 생성되지 않는다.
func (r *Router) handleEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev event.Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "요청 본문이 올바르지 않습니다"})
			return
		}

		err := r.Route(c.Request.Context(), &ev)
		switch {
		case IsInvalid(err):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "이벤트 처리에 실패했습니다"})
		default:
			c.JSON(http.StatusAccepted, gin.H{"event_id": ev.ID, "status": "accepted"})
		}
	}
}
