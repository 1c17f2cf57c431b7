package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nao1215/timeand-notifier/pkg/middleware"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	devTokenTTL      = 24 * time.Hour
)

// ServerConfig 는 HTTP 서버 설정.
type ServerConfig struct {
	// Port 는 리슨 포트.
	Port string
	// JWTSecret 은 사용자 API 의 JWT 서명 키.
	JWTSecret string
	// InternalToken 은 내부 API 의 X-Internal-Token 값.
	InternalToken string
	// CORSOrigins 가 비어 있지 않으면 CORS 미들웨어를 붙인다.
	CORSOrigins []string
	// Gatherer 는 /metrics 로 노출할 지표 수집기.
	Gatherer prometheus.Gatherer
	// DevAuth 가 true 면 POST /api/v1/auth/dev-token 으로 임의 사용자의 토큰을 발급한다.
	// 운영 환경에서는 켜지 않는다.
	DevAuth bool
	// InternalRoutes 는 /api/v1/internal 그룹에 라우트를 추가한다.
	InternalRoutes func(*gin.RouterGroup)
	// Now 는 현재 시각. 목록에서 발송 전 알림을 숨기는 데 쓴다.
	Now func() time.Time
}

// Server 는 알림 서비스의 HTTP 서버.
type Server struct {
	router *gin.Engine
	port   string
	store  *Store
	log    *zap.Logger
	now    func() time.Time
}

// NewServer 는 라우트가 설정된 서버를 만든다.
func NewServer(store *Store, log *zap.Logger, cfg ServerConfig) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORSOrigins))
	}

	s := &Server{
		router: router,
		port:   cfg.Port,
		store:  store,
		log:    log,
		now:    cfg.Now,
	}
	s.setupRoutes(cfg)
	return s
}

// Handler 는 HTTP 핸들러를 반환한다.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 은 ctx 가 끝날 때까지 HTTP 서버를 실행하고, 끝나면 정상 종료한다.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("알림 서비스를 시작합니다", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP 서버 종료 실패: %w", err)
	}
	s.log.Info("HTTP 서버를 종료했습니다")
	return nil
}

// setupRoutes 는 API 라우팅을 설정한다.
func (s *Server) setupRoutes(cfg ServerConfig) {
	api := s.router.Group("/api/v1")
	{
		notifications := api.Group("/notifications")
		notifications.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			notifications.GET("", s.handleList())
			notifications.GET("/unread", s.handleListUnread())
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
		}

		if cfg.DevAuth {
			api.POST("/auth/dev-token", s.handleDevToken(cfg.JWTSecret))
		}

		if cfg.InternalRoutes != nil {
			internal := api.Group("/internal")
			internal.Use(middleware.InternalToken(cfg.InternalToken))
			cfg.InternalRoutes(internal)
		}
	}

	s.router.GET("/health", s.handleHealth())
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
}

// notificationResponse 는 알림의 JSON 응답 구조.
type notificationResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	CapsuleID    string `json:"capsule_id,omitempty"`
	FriendshipID string `json:"friendship_id,omitempty"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	// SendAt 은 발송 시각 (RFC3339).
	SendAt    string `json:"send_at"`
	Status    string `json:"status"`
	Reading   bool   `json:"reading"`
	CreatedAt string `json:"created_at"`
}

func toNotificationResponse(n Notification) notificationResponse {
	return notificationResponse{
		ID:           n.ID,
		UserID:       n.UserID,
		CapsuleID:    n.CapsuleID,
		FriendshipID: n.FriendshipID,
		Kind:         string(n.Kind),
		Title:        n.Title,
		Message:      n.Message,
		SendAt:       n.SendAt.Format(time.RFC3339),
		Status:       string(n.Status),
		Reading:      n.Reading,
		CreatedAt:    n.CreatedAt.Format(time.RFC3339),
	}
}

func toNotificationResponses(notifications []Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}
	return responses
}

// parseLimit 은 limit 쿼리 파라미터를 읽는다. 잘못된 값이면 기본값.
func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// handleList 는 인증된 사용자의 알림 목록을 반환한다.
// 발송 시각이 아직 오지 않은 알림은 보이지 않는다.
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "사용자 ID를 확인할 수 없습니다"})
			return
		}

		notifications, err := s.store.ListByUser(c.Request.Context(), userID, s.now(), parseLimit(c))
		if err != nil {
			s.log.Error("알림 목록 조회 에러", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "알림 목록을 가져오지 못했습니다"})
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleListUnread 는 인증된 사용자의 미읽음 알림 목록을 반환한다.
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "사용자 ID를 확인할 수 없습니다"})
			return
		}

		notifications, err := s.store.ListUnread(c.Request.Context(), userID, s.now(), parseLimit(c))
		if err != nil {
			s.log.Error("미읽음 알림 조회 에러", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "미읽음 알림 목록을 가져오지 못했습니다"})
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleMarkAsRead 는 지정한 알림을 읽음으로 표시한다.
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "사용자 ID를 확인할 수 없습니다"})
			return
		}

		err := s.store.MarkAsRead(c.Request.Context(), c.Param("id"), userID)
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "알림을 찾을 수 없습니다"})
			return
		case errors.Is(err, ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "이 알림을 조작할 권한이 없습니다"})
			return
		case err != nil:
			s.log.Error("읽음 처리 에러", zap.String("notification_id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "읽음 처리에 실패했습니다"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "알림을 읽음으로 표시했습니다"})
	}
}

// handleMarkAllAsRead 는 인증된 사용자의 알림을 모두 읽음으로 표시한다.
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "사용자 ID를 확인할 수 없습니다"})
			return
		}

		updated, err := s.store.MarkAllAsRead(c.Request.Context(), userID, s.now())
		if err != nil {
			s.log.Error("전체 읽음 처리 에러", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "전체 읽음 처리에 실패했습니다"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "모든 알림을 읽음으로 표시했습니다", "updated": updated})
	}
}

// handleHealth 는 DB 연결까지 확인하는 헬스 체크.
// devTokenRequest 는 개발용 토큰 발급 요청.
type devTokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// handleDevToken 은 로컬에서 사용자 API 를 시험할 토큰을 발급한다.
func (s *Server) handleDevToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req devTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id 가 필요합니다"})
			return
		}

		token, err := middleware.GenerateJWT(secret, req.UserID, devTokenTTL)
		if err != nil {
			s.log.Error("개발용 토큰 생성 실패", zap.String("user_id", req.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "토큰 생성에 실패했습니다"})
			return
		}
		s.log.Warn("개발용 토큰을 발급했습니다", zap.String("user_id", req.UserID))

		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"user_id": req.UserID,
		})
	}
}

func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "notifier"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notifier"})
	}
}
