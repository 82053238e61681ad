package ws

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaze-walk/backend/internal/adapter/out/render"
	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/port/in/headset"
)

var (
	_ headset.InputPort   = &WSAdapter{}
	_ headset.CameraPort  = &WSAdapter{}
	_ headset.GazePort    = &WSAdapter{}
	_ headset.FocusEvents = &WSAdapter{}
	_ headset.PointerPort = &WSAdapter{}
)

func newTestServer(t *testing.T) (*WSAdapter, *httptest.Server) {
	t.Helper()
	a := NewWSAdapter(Options{ObjectID: "orb", WriteTimeout: time.Second, ReadLimit: 4096}, zerolog.New(io.Discard))
	server := httptest.NewServer(http.HandlerFunc(a.HandleWS))
	t.Cleanup(server.Close)
	return a, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readJSON читает следующий текстовый кадр в map
func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func TestWSAdapter_Greeting(t *testing.T) {
	a, server := newTestServer(t)
	conn := dial(t, server, "")

	info := readJSON(t, conn)
	assert.Equal(t, MessageTypeInfo, info["type"])
	assert.Equal(t, "orb", info["object_id"])
	assert.Equal(t, "json", info["codec"])
	assert.Len(t, info["client_id"], 36)

	require.Eventually(t, func() bool { return a.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWSAdapter_InputAndCamera(t *testing.T) {
	a, server := newTestServer(t)
	conn := dial(t, server, "")
	readJSON(t, conn)

	send(t, conn, ClientMessage{Type: MessageTypeInput, Input: &InputPayload{Horizontal: 0.5, Vertical: -1, Primary: true}})
	require.Eventually(t, func() bool { return a.InputState().PrimaryHeld }, time.Second, 5*time.Millisecond)
	assert.Equal(t, entity.InputState{Horizontal: 0.5, Vertical: -1, PrimaryHeld: true}, a.InputState())

	// Ненормированный кватернион поворота на 90° вокруг Y
	s := math.Sqrt2 / 2
	send(t, conn, ClientMessage{Type: MessageTypeCamera, Camera: &CameraPayload{Orientation: [4]float64{0, 2 * s, 0, 2 * s}}})
	require.Eventually(t, func() bool { return a.Orientation().W < 0.9 }, time.Second, 5*time.Millisecond)

	forward := a.Orientation().Rotate(entity.Forward)
	want := mgl64.Vec3{1, 0, 0}
	for i := range want {
		assert.InDelta(t, want[i], forward[i], 1e-9, "got %v", forward)
	}
}

func TestWSAdapter_ZeroQuaternionIgnored(t *testing.T) {
	a, server := newTestServer(t)
	conn := dial(t, server, "")
	readJSON(t, conn)

	send(t, conn, ClientMessage{Type: MessageTypeCamera, Camera: &CameraPayload{}})
	// Пинг после камеры: когда пришел pong, камера уже обработана
	send(t, conn, ClientMessage{Type: MessageTypePing, ClientTime: 1})
	readJSON(t, conn)

	assert.Equal(t, mgl64.QuatIdent(), a.Orientation())
}

func TestWSAdapter_GazeQueuesEdges(t *testing.T) {
	a, server := newTestServer(t)
	conn := dial(t, server, "")
	readJSON(t, conn)

	gaze := func(held bool, object string) {
		send(t, conn, ClientMessage{Type: MessageTypeGaze, Gaze: &GazePayload{Held: held, Object: object}})
	}
	gaze(true, "orb")
	gaze(true, "orb") // повтор без изменений
	gaze(false, "orb")
	gaze(true, "wall")
	send(t, conn, ClientMessage{Type: MessageTypePing, ClientTime: 42})
	pong := readJSON(t, conn)
	assert.Equal(t, MessageTypePong, pong["type"])
	assert.Equal(t, 42.0, pong["client_time"])

	changes := a.PollFocusChanges()
	assert.Equal(t, []entity.FocusChange{
		{Held: true, Object: "orb"},
		{Held: false, Object: "orb"},
		{Held: true, Object: "wall"},
	}, changes)
	assert.Empty(t, a.PollFocusChanges(), "queue is drained")

	assert.True(t, a.IsFocusHeld())
	assert.Equal(t, entity.ObjectID("wall"), a.FocusedObject())
}

func TestWSAdapter_FocusQueueBounded(t *testing.T) {
	a := NewWSAdapter(Options{}, zerolog.New(io.Discard))
	for i := 0; i < maxPendingFocus+10; i++ {
		a.applyGaze(i%2 == 0, "orb")
	}

	changes := a.PollFocusChanges()
	assert.Len(t, changes, maxPendingFocus)
	assert.Equal(t, uint64(10), a.DroppedFocusChanges())
	// Последнее событие сохранено
	assert.Equal(t, entity.FocusChange{Held: (maxPendingFocus+9)%2 == 0, Object: "orb"}, changes[len(changes)-1])
}

func TestWSAdapter_PointerBroadcast(t *testing.T) {
	a, server := newTestServer(t)
	first := dial(t, server, "")
	second := dial(t, server, "")
	readJSON(t, first)
	readJSON(t, second)
	require.Eventually(t, func() bool { return a.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	a.ShowPointer()
	a.ClearHighlight()

	for _, conn := range []*websocket.Conn{first, second} {
		assert.Equal(t, PointerShow, readJSON(t, conn)["command"])
		assert.Equal(t, PointerClearHighlight, readJSON(t, conn)["command"])
	}
}

func TestWSAdapter_CBORFrames(t *testing.T) {
	a, server := newTestServer(t)
	conn := dial(t, server, "?codec=cbor")

	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, messageType)

	var info InfoMessage
	require.NoError(t, cbor.Unmarshal(data, &info))
	assert.Equal(t, "cbor", info.Codec)

	// Бинарный вход тоже принимается
	payload, err := cbor.Marshal(ClientMessage{Type: MessageTypeInput, Input: &InputPayload{Vertical: 1}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, payload))
	require.Eventually(t, func() bool { return a.InputState().Vertical == 1 }, time.Second, 5*time.Millisecond)

	snap := render.Snapshot{ObjectID: "orb", Scale: mgl64.Vec3{2, 2, 2}}
	a.Broadcast(NewFrameMessage(7, PlayerFrame{Grounded: true}, "idle", snap, AudioFrame{Volume: 0.5}))

	messageType, data, err = conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, messageType)

	var frame FrameMessage
	require.NoError(t, cbor.Unmarshal(data, &frame))
	assert.Equal(t, uint64(7), frame.Tick)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, frame.Scene.Scale)
	assert.True(t, frame.Player.Grounded)
	assert.Equal(t, 0.5, frame.Audio.Volume)
}

func TestWSAdapter_UnknownCodecRejected(t *testing.T) {
	_, server := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?codec=xml"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWSAdapter_NonFiniteInputSanitized(t *testing.T) {
	a := NewWSAdapter(Options{}, zerolog.New(io.Discard))
	err := a.handlers[MessageTypeInput](nil, &ClientMessage{Type: MessageTypeInput, Input: &InputPayload{Horizontal: math.NaN(), Vertical: math.Inf(1)}})
	require.NoError(t, err)
	assert.Equal(t, entity.InputState{}, a.InputState())

	assert.Error(t, a.handlers[MessageTypeInput](nil, &ClientMessage{Type: MessageTypeInput}))
	assert.Error(t, a.handlers[MessageTypeGaze](nil, &ClientMessage{Type: MessageTypeGaze}))
}

func TestNewFrameMessage_SanitizesNaN(t *testing.T) {
	frame := NewFrameMessage(1,
		PlayerFrame{Position: mgl64.Vec3{math.NaN(), 1, 2}},
		"engaged",
		render.Snapshot{SurfaceEmissive: [3]float64{math.Inf(-1), 0.5, 0}},
		AudioFrame{Volume: math.NaN()})

	assert.Equal(t, mgl64.Vec3{0, 1, 2}, frame.Player.Position)
	assert.Equal(t, [3]float64{0, 0.5, 0}, frame.Scene.SurfaceEmissive)
	assert.Equal(t, 0.0, frame.Audio.Volume)

	_, err := json.Marshal(frame)
	assert.NoError(t, err)
}
