// Package bus는 외부 이벤트 버스로의 WebSocket 이벤트 발행을 담당합니다.
// 라이프사이클 전이와 도구 호출 결과를 JSON 프레임으로 전달합니다.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// 타이밍 상수
const (
	// ConnectTimeout은 버스 연결 타임아웃입니다.
	ConnectTimeout = 10 * time.Second
	// WriteTimeout은 이벤트 쓰기 타임아웃입니다.
	WriteTimeout = 5 * time.Second
)

// 이벤트 종류
const (
	EventServerStarted = "server_started"
	EventServerStopped = "server_stopped"
	EventToolCalled    = "tool_called"
	EventToolFailed    = "tool_failed"
)

// Event는 버스로 발행되는 이벤트입니다.
type Event struct {
	// ID는 이벤트 고유 식별자입니다. 비어있으면 발행 시 채워집니다.
	ID string `json:"id"`
	// Type은 이벤트 종류입니다.
	Type string `json:"type"`
	// Server는 대상 MCP 서버 이름입니다.
	Server string `json:"server,omitempty"`
	// Tool은 대상 도구 이름입니다.
	Tool string `json:"tool,omitempty"`
	// OK는 작업 성공 여부입니다.
	OK bool `json:"ok"`
	// Detail은 추가 설명입니다 (실패 사유 등).
	Detail string `json:"detail,omitempty"`
	// Timestamp는 이벤트 발생 시각입니다. 비어있으면 발행 시 채워집니다.
	Timestamp time.Time `json:"timestamp"`
}

// Publisher는 WebSocket 기반 이벤트 발행기입니다.
// 단일 연결에 대한 쓰기를 뮤텍스로 직렬화합니다.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial은 이벤트 버스에 연결합니다.
func Dial(ctx context.Context, url string) (*Publisher, error) {
	dialCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("이벤트 버스 연결 실패: %w", err)
	}

	log.Info().Str("url", url).Msg("[bus] 이벤트 버스 연결 완료")
	return &Publisher{url: url, conn: conn}, nil
}

// Publish는 이벤트를 발행합니다. ID와 타임스탬프가 비어있으면 채웁니다.
func (p *Publisher) Publish(ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return fmt.Errorf("이벤트 버스가 연결되지 않음")
	}

	if err := p.conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return fmt.Errorf("쓰기 데드라인 설정 실패: %w", err)
	}
	if err := p.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("이벤트 발행 실패: %w", err)
	}
	return nil
}

// Close는 종료 핸드셰이크 후 연결을 닫습니다. 중복 호출은 no-op입니다.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}

	deadline := time.Now().Add(WriteTimeout)
	_ = p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)

	err := p.conn.Close()
	p.conn = nil

	log.Info().Str("url", p.url).Msg("[bus] 이벤트 버스 연결 해제")
	return err
}

// Sink는 이벤트 발행 인터페이스입니다. Manager는 이 인터페이스에만 의존합니다.
type Sink interface {
	Publish(ev Event) error
}

// NopSink는 이벤트를 버리는 Sink입니다. 버스가 설정되지 않았을 때 사용합니다.
type NopSink struct{}

// Publish는 아무 것도 하지 않습니다.
func (NopSink) Publish(Event) error { return nil }
