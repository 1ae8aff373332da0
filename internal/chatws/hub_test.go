package chatws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/scopium-app/scopium/internal/chat"
	"github.com/scopium-app/scopium/internal/domain"
	"github.com/scopium-app/scopium/internal/identity"
)

func TestBroadcastNoSubscribers(t *testing.T) {
	hub := NewHub()
	// Must not panic or block without subscribers.
	hub.Broadcast("nobody", chat.Event{RepoID: 1})
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub, "", true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r.WithContext(identity.WithSessionID(r.Context(), "sess-1")))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Registration happens inside the handler goroutine after accept;
	// poll until the hub sees the subscriber.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.subs["sess-1"])
		hub.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	want := chat.Event{
		RepoID: 1,
		Message: domain.Message{
			ID:     "m1",
			Text:   "hi there",
			Sender: domain.SenderAssistant,
		},
	}
	hub.Broadcast("sess-1", want)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got struct {
		Type    string         `json:"type"`
		RepoID  int64          `json:"repo_id"`
		Message domain.Message `json:"message"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal push: %v", err)
	}
	if got.Type != "message" || got.RepoID != 1 {
		t.Errorf("Unexpected envelope %+v", got)
	}
	if got.Message.Text != "hi there" || got.Message.Sender != domain.SenderAssistant {
		t.Errorf("Unexpected message %+v", got.Message)
	}
}

func TestBroadcastIsolatedBySession(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub, "", true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r.WithContext(identity.WithSessionID(r.Context(), r.Header.Get("X-Test-Session"))))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dial := func(session string) *websocket.Conn {
		conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], &websocket.DialOptions{
			HTTPHeader: http.Header{"X-Test-Session": []string{session}},
		})
		if err != nil {
			t.Fatalf("dial %s: %v", session, err)
		}
		return conn
	}

	connA := dial("sess-a")
	defer connA.Close(websocket.StatusNormalClosure, "done")
	connB := dial("sess-b")
	defer connB.Close(websocket.StatusNormalClosure, "done")

	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		ok := len(hub.subs["sess-a"]) == 1 && len(hub.subs["sess-b"]) == 1
		hub.mu.RUnlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscribers never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast("sess-a", chat.Event{RepoID: 9, Message: domain.Message{ID: "m", Text: "only for a"}})

	if _, _, err := connA.Read(ctx); err != nil {
		t.Fatalf("sess-a read: %v", err)
	}

	readCtx, readCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer readCancel()
	if _, _, err := connB.Read(readCtx); err == nil {
		t.Error("sess-b must not receive sess-a's events")
	}
}
