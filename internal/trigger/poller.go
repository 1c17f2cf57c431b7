package trigger

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nao1215/timeand-notifier/pkg/event"
	"github.com/nao1215/timeand-notifier/pkg/httpclient"
)

const defaultPollInterval = 2 * time.Second

// FeedPoller 는 상위 이벤트 피드를 주기적으로 읽어 Router 로 넘기는 백그라운드 작업.
// 마지막으로 처리한 이벤트 시각을 커서로 기억한다.
type FeedPoller struct {
	router   *Router
	client   *httpclient.Client
	interval time.Duration
	log      *zap.Logger

	// mu 는 since 를 보호한다.
	mu    sync.Mutex
	since time.Time
}

// NewFeedPoller 는 feedURL(예: "http://eventstore:8084")을 폴링하는 FeedPoller 를 만든다.
func NewFeedPoller(router *Router, feedURL string, interval time.Duration, log *zap.Logger) *FeedPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &FeedPoller{
		router:   router,
		client:   httpclient.New(feedURL),
		interval: interval,
		log:      log,
	}
}

// Run 은 ctx 가 끝날 때까지 피드를 폴링한다.
func (p *FeedPoller) Run(ctx context.Context) error {
	p.log.Info("이벤트 피드 폴링을 시작합니다",
		zap.String("feed_url", p.client.BaseURL()),
		zap.Duration("interval", p.interval),
	)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("이벤트 피드 폴링을 멈췄습니다", zap.Time("cursor", p.Cursor()))
			return nil
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil {
				p.log.Error("이벤트 피드 폴링 에러", zap.Error(err))
			}
		}
	}
}

// Poll 은 커서 이후의 이벤트를 한 번 가져와 처리하고 가져온 건수를 반환한다.
// 개별 이벤트 처리 실패는 로그만 남기고 넘어간다.
func (p *FeedPoller) Poll(ctx context.Context) (int, error) {
	p.mu.Lock()
	since := p.since
	p.mu.Unlock()

	path := fmt.Sprintf("/api/v1/events/since?since=%s", url.QueryEscape(since.UTC().Format(time.RFC3339Nano)))

	var events []event.Event
	if err := p.client.GetJSON(ctx, path, &events); err != nil {
		return 0, fmt.Errorf("이벤트 피드 조회 실패: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var latest time.Time
	for i := range events {
		ev := &events[i]
		// 실패한 이벤트도 커서는 넘긴다. 형식 오류는 다시 읽어도 같고
		// 저장 실패는 상위 트리거의 재전달 정책에 맡긴다.
		_ = p.router.Route(ctx, ev)
		if ev.CreatedAt.After(latest) {
			latest = ev.CreatedAt
		}
	}

	if !latest.IsZero() {
		p.mu.Lock()
		// 같은 이벤트를 다시 가져오지 않도록 1ns 앞으로 민다.
		p.since = latest.Add(time.Nanosecond)
		p.mu.Unlock()
	}

	p.log.Info("이벤트를 처리했습니다", zap.Int("count", len(events)))
	return len(events), nil
}

// Cursor 는 다음 폴링에 쓸 시각.
func (p *FeedPoller) Cursor() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.since
}
