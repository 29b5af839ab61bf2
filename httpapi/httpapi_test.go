package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"support-chat/admin"
	"support-chat/domain"
	"support-chat/identity"
	"support-chat/moderation"
	"support-chat/presence"
	"support-chat/repositories"
	"support-chat/runtime"
	"support-chat/services"
)

// testStack wires the whole chat core in memory behind a real HTTP server,
// fan-out worker and aggregator included.
type testStack struct {
	server   *httptest.Server
	registry *runtime.Registry
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	rooms := repositories.NewRoomRepository(db, log)
	messages, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	t.Cleanup(func() { _ = messages.Close() })

	tracker := presence.NewTracker(5 * time.Second)
	registry := runtime.NewRegistry()
	hub := runtime.NewHub(log, registry, 64, time.Second)

	moderator, err := moderation.NewModerator('*')
	req.NoError(err)
	chatSvc := services.NewChatService(rooms, messages, tracker, hub, &moderator, 4000)

	directory := identity.NewStaticDirectory(map[string]identity.DisplayIdentity{
		"alice": {FirstName: "Alice", LastName: "Martin"},
	})
	aggregator := admin.NewAggregator(log, rooms, messages, directory, time.Hour, 2)
	hub.AddPermanentSinks(aggregator)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fanout := hub.FanoutWorker()
	go func() { _ = fanout.Run(ctx) }()
	go func() { _ = aggregator.Run(ctx) }()

	server := httptest.NewServer(NewRouter(log, chatSvc, aggregator, 16))
	t.Cleanup(server.Close)
	return &testStack{server: server, registry: registry}
}

func (s *testStack) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func (s *testStack) doJSON(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	request, err := http.NewRequest(method, s.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testStack) openRoom(t *testing.T, userID string) roomResponse {
	t.Helper()
	resp := s.postJSON(t, "/api/rooms", map[string]string{"user_id": userID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[roomResponse](t, resp)
}

func (s *testStack) postMessage(t *testing.T, roomID, userID, content string) messageResponse {
	t.Helper()
	resp := s.postJSON(t, "/api/rooms/"+roomID+"/messages",
		map[string]string{"user_id": userID, "content": content})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[messageResponse](t, resp)
}

func Test_Open_Room_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	first := stack.openRoom(t, "alice")
	second := stack.openRoom(t, "alice")
	other := stack.openRoom(t, "bob")

	req.Equal(first.ID, second.ID)
	req.Equal("alice", first.CreatedBy)
	req.Equal("support", first.Type)
	req.NotEqual(first.ID, other.ID)
}

func Test_Messages_Paginate_Without_Gap(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)
	room := stack.openRoom(t, "alice")

	stack.postMessage(t, room.ID, "alice", "one")
	stack.postMessage(t, room.ID, "staff", "two")
	stack.postMessage(t, room.ID, "alice", "three")

	type page struct {
		Messages []messageResponse `json:"messages"`
		Cursor   *string           `json:"cursor"`
	}

	resp, err := http.Get(stack.server.URL + "/api/rooms/" + room.ID + "/messages?limit=2")
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	first := decodeBody[page](t, resp)
	req.Len(first.Messages, 2)
	req.Equal("one", first.Messages[0].Content)
	req.Equal("two", first.Messages[1].Content)
	req.NotNil(first.Cursor)

	resp, err = http.Get(fmt.Sprintf("%s/api/rooms/%s/messages?limit=2&cursor=%s",
		stack.server.URL, room.ID, *first.Cursor))
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	second := decodeBody[page](t, resp)
	req.Len(second.Messages, 1)
	req.Equal("three", second.Messages[0].Content)
}

func Test_Post_Message_Rejections(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)
	room := stack.openRoom(t, "alice")

	resp := stack.postJSON(t, "/api/rooms/"+room.ID+"/messages",
		map[string]string{"user_id": "alice", "content": "   "})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = stack.postJSON(t, "/api/rooms/"+room.ID+"/messages",
		map[string]string{"content": "missing user"})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = stack.postJSON(t, "/api/rooms/no-such-room/messages",
		map[string]string{"user_id": "alice", "content": "hello"})
	req.Equal(http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func Test_Posted_Content_Is_Censored(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)
	room := stack.openRoom(t, "alice")

	message := stack.postMessage(t, room.ID, "alice", "this is bullshit")
	req.Equal("this is ********", message.Content)
}

func Test_Typing_Round_Trip(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)
	room := stack.openRoom(t, "alice")

	type typingPage struct {
		Typing []string `json:"typing"`
	}

	resp := stack.doJSON(t, http.MethodPut, "/api/rooms/"+room.ID+"/typing",
		map[string]string{"user_id": "alice"})
	req.Equal(http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err := http.Get(stack.server.URL + "/api/rooms/" + room.ID + "/typing")
	req.NoError(err)
	req.Equal([]string{"alice"}, decodeBody[typingPage](t, resp).Typing)

	// The author never sees their own indicator.
	resp, err = http.Get(stack.server.URL + "/api/rooms/" + room.ID + "/typing?exclude=alice")
	req.NoError(err)
	req.Empty(decodeBody[typingPage](t, resp).Typing)

	resp = stack.doJSON(t, http.MethodDelete, "/api/rooms/"+room.ID+"/typing",
		map[string]string{"user_id": "alice"})
	req.Equal(http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(stack.server.URL + "/api/rooms/" + room.ID + "/typing")
	req.NoError(err)
	req.Empty(decodeBody[typingPage](t, resp).Typing)
}

func Test_Admin_Panel_Reflects_Member_Messages(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)
	room := stack.openRoom(t, "alice")

	stack.postMessage(t, room.ID, "alice", "I need help")
	stack.postMessage(t, room.ID, "staff", "On it")

	type panel struct {
		Rooms []roomSummaryResponse `json:"rooms"`
	}

	req.Eventually(func() bool {
		resp, err := http.Get(stack.server.URL + "/api/admin/rooms")
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		page := decodeBody[panel](t, resp)
		return len(page.Rooms) == 1 &&
			page.Rooms[0].DisplayName == "Alice Martin" &&
			page.Rooms[0].UnreadCount == 1 &&
			page.Rooms[0].LastMessagePreview == "On it"
	}, 3*time.Second, 20*time.Millisecond)
}

func Test_Websocket_Streams_Room_Events(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)
	room := stack.openRoom(t, "alice")

	wsURL := "ws" + strings.TrimPrefix(stack.server.URL, "http") +
		"/api/rooms/" + room.ID + "/ws?user_id=bob"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	defer conn.Close()

	// Post only once the subscription is live, so the frame cannot be missed.
	req.Eventually(func() bool {
		return len(stack.registry.GetSinksForRoom(domain.RoomID(room.ID))) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stack.postMessage(t, room.ID, "alice", "Hello there")

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var frame wireEvent
	req.NoError(conn.ReadJSON(&frame))
	req.Equal("message_inserted", frame.Type)
	req.NotNil(frame.Message)
	req.Equal("Hello there", frame.Message.Content)
	req.Equal("alice", frame.Message.UserID)
}
