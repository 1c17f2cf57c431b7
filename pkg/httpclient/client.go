package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultTimeout 은 요청 하나에 허용하는 기본 시간.
const defaultTimeout = 30 * time.Second

// Client 는 외부 서비스 호출용 HTTP 클라이언트.
// 모든 요청에 공통 헤더를 붙인다.
type Client struct {
	// httpClient 는 내부에서 사용하는 HTTP 클라이언트.
	httpClient *http.Client
	// baseURL 은 접속 대상 서비스의 기본 URL.
	baseURL string
	// headers 는 모든 요청에 붙이는 헤더.
	headers http.Header
}

// Option 은 Client 설정을 바꾸는 함수.
type Option func(*Client)

// WithTimeout 은 요청 타임아웃을 지정한다.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHeader 는 모든 요청에 붙일 헤더를 추가한다.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithBearerToken 은 Authorization: Bearer 헤더를 붙인다. 빈 토큰은 무시한다.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// New 는 새 HTTP 클라이언트를 생성한다.
// baseURL 에는 대상 서비스의 기본 URL(예: "https://fcm.googleapis.com")을 지정한다.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL 은 설정된 기본 URL 을 반환한다.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostJSON 은 지정 경로로 JSON 본문의 POST 요청을 보낸다.
// 응답 본문은 result 로 역직렬화한다.
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

// GetJSON 은 지정 경로로 GET 요청을 보낸다.
// 응답 본문은 result 로 역직렬화한다.
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

// StatusError 는 2xx 이외의 응답을 나타낸다.
type StatusError struct {
	// StatusCode 는 HTTP 상태 코드.
	StatusCode int
	// Body 는 응답 본문.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP 에러: status=%d, body=%s", e.StatusCode, e.Body)
}

// doJSON 은 JSON 형식 HTTP 요청의 공통 처리.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("요청 본문 직렬화 실패: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTP 요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP 요청 전송 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("응답 본문 역직렬화 실패: %w", err)
		}
	}
	return nil
}
