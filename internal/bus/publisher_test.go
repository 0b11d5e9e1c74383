package bus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newTestBus는 수신 이벤트를 채널로 전달하는 WebSocket 서버를 시작합니다.
func newTestBus(t *testing.T) (string, <-chan Event) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	received := make(chan Event, 16)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("업그레이드 실패: %v", err)
			return
		}
		defer conn.Close()

		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			received <- ev
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), received
}

// TestPublisher_Publish는 이벤트 발행과 ID/타임스탬프 자동 채움을 테스트합니다.
func TestPublisher_Publish(t *testing.T) {
	url, received := newTestBus(t)

	p, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer p.Close()

	err = p.Publish(Event{
		Type:   EventServerStarted,
		Server: "calc",
		OK:     true,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case ev := <-received:
		if ev.Type != EventServerStarted || ev.Server != "calc" || !ev.OK {
			t.Errorf("수신 이벤트 = %+v", ev)
		}
		if ev.ID == "" {
			t.Error("ID가 자동으로 채워져야 합니다")
		}
		if ev.Timestamp.IsZero() {
			t.Error("Timestamp가 자동으로 채워져야 합니다")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("이벤트 수신 타임아웃")
	}
}

// TestPublisher_PreservesProvidedID는 지정된 ID 보존을 테스트합니다.
func TestPublisher_PreservesProvidedID(t *testing.T) {
	url, received := newTestBus(t)

	p, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer p.Close()

	if err := p.Publish(Event{ID: "fixed-id", Type: EventToolCalled}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case ev := <-received:
		if ev.ID != "fixed-id" {
			t.Errorf("ID = %q, want fixed-id", ev.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("이벤트 수신 타임아웃")
	}
}

// TestPublisher_CloseIdempotent는 중복 Close와 닫힌 후 발행 오류를 테스트합니다.
func TestPublisher_CloseIdempotent(t *testing.T) {
	url, _ := newTestBus(t)

	p, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("중복 Close() error = %v, want nil", err)
	}
	if err := p.Publish(Event{Type: EventToolCalled}); err == nil {
		t.Error("닫힌 발행기의 Publish는 오류를 반환해야 합니다")
	}
}

// TestDial_Unreachable은 연결 불가 시 오류 반환을 테스트합니다.
func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/bus")
	if err == nil {
		t.Fatal("연결 불가 주소의 Dial은 오류를 반환해야 합니다")
	}
}

// TestNopSink는 무시 Sink의 무해성을 테스트합니다.
func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	if err := sink.Publish(Event{Type: EventServerStopped}); err != nil {
		t.Errorf("NopSink.Publish() error = %v, want nil", err)
	}
}
