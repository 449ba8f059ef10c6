package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerCall struct {
	questionID string
	selected   []string
}

func dialHub(t *testing.T, hub *AttemptHub, userID string, onAnswer func(string, []string) error) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, hub.ServeWS(w, r, userID, onAnswer))
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestAttemptHubPublishReachesUser(t *testing.T) {
	hub := NewAttemptHub()
	conn := dialHub(t, hub, "user-1", func(string, []string) error { return nil })

	hub.Publish("user-2", WSMessage{Type: EventTick, Data: 1})
	hub.Publish("user-1", WSMessage{Type: EventTick, Data: 42})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventTick, msg.Type)
	assert.EqualValues(t, 42, msg.Data)
}

func TestAttemptHubForwardsAnswers(t *testing.T) {
	hub := NewAttemptHub()
	calls := make(chan answerCall, 2)
	conn := dialHub(t, hub, "user-1", func(q string, sel []string) error {
		calls <- answerCall{q, sel}
		if q == "question-404" {
			return errors.New("question not in attempt")
		}
		return nil
	})

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "ANSWER",
		"data": map[string]interface{}{"questionId": "question-1", "selectedOptionIds": []string{"q1-opt1"}},
	}))
	select {
	case c := <-calls:
		assert.Equal(t, "question-1", c.questionID)
		assert.Equal(t, []string{"q1-opt1"}, c.selected)
	case <-time.After(2 * time.Second):
		t.Fatal("answer was not forwarded")
	}

	// 非 ANSWER 消息被忽略
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "PING"}))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "ANSWER",
		"data": map[string]interface{}{"questionId": "question-404"},
	}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventError, msg.Type)
	assert.Equal(t, "question not in attempt", msg.Data)
	assert.Len(t, calls, 1)
}

func TestAttemptHubUnregistersOnClose(t *testing.T) {
	hub := NewAttemptHub()
	conn := dialHub(t, hub, "user-1", func(string, []string) error { return nil })

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Connections("user-1") == 0 }, 2*time.Second, 10*time.Millisecond)

	// 无连接时推送不阻塞
	hub.Publish("user-1", WSMessage{Type: EventFinalized})
}
