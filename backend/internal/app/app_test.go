package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaze-walk/backend/internal/adapter/in/ws"
	"gaze-walk/backend/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Ticker.PhysicsTPS = 100
	cfg.Ticker.RenderFPS = 100
	cfg.Server.FrameEveryTick = 1
	cfg.Interactive.Seed = 7
	cfg.Audio.SampleRate = 1000
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) (*App, *httptest.Server) {
	t.Helper()
	a, err := New(context.Background(), cfg, zerolog.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Ticker.Start(ctx))
	t.Cleanup(func() {
		cancel()
		a.Ticker.Stop()
	})

	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	return a, server
}

// nextFrame читает сообщения до кадра, удовлетворяющего условию
func nextFrame(t *testing.T, conn *websocket.Conn, accept func(ws.FrameMessage) bool) ws.FrameMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var envelope struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &envelope))
		if envelope.Type != ws.MessageTypeFrame {
			continue
		}
		var frame ws.FrameMessage
		require.NoError(t, json.Unmarshal(data, &frame))
		if accept(frame) {
			return frame
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Player.ColliderRadius = 0

	_, err := New(context.Background(), cfg, zerolog.New(io.Discard))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewPhysics_UnknownBackend(t *testing.T) {
	_, _, err := NewPhysics(config.PhysicsConfig{Backend: "bullet"}, zerolog.New(io.Discard))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestGazeParams_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Interactive.EngagedScale = 3

	params := GazeParams(cfg)
	assert.Equal(t, "orb", string(params.ObjectID))
	assert.Equal(t, 3.0, params.EngagedScale)
	assert.Equal(t, 1.5, params.EmissiveGain)
	// Цвет поверхности не влияет на желаемый цвет объекта
	assert.Equal(t, colorful.Color{}, params.InitialColor)

	cfg.Interactive.InitialColor = "#ff0000"
	assert.InDelta(t, 1.0, GazeParams(cfg).InitialColor.R, 1e-9)
}

func TestApp_HeadsetSession(t *testing.T) {
	a, server := startApp(t, testConfig())
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Игрок стоит на полу
	frame := nextFrame(t, conn, func(f ws.FrameMessage) bool { return f.Player.Grounded })
	assert.InDelta(t, 1.0, frame.Player.Position.Y(), 0.05)
	assert.Equal(t, "idle", frame.GazeState)

	// Взгляд на объект: масштаб растет к 4x, звук играет
	require.NoError(t, conn.WriteJSON(ws.ClientMessage{Type: ws.MessageTypeGaze, Gaze: &ws.GazePayload{Held: true, Object: "orb"}}))
	frame = nextFrame(t, conn, func(f ws.FrameMessage) bool {
		return f.GazeState == "engaged" && f.Scene.Scale.X() > 2.5
	})
	assert.True(t, frame.Scene.Emitting)
	assert.True(t, frame.Audio.Playing)

	// Ввод вперед двигает игрока по горизонтали
	require.NoError(t, conn.WriteJSON(ws.ClientMessage{Type: ws.MessageTypeInput, Input: &ws.InputPayload{Vertical: 1}}))
	frame = nextFrame(t, conn, func(f ws.FrameMessage) bool {
		p := f.Player.Position
		return p.X()*p.X()+p.Z()*p.Z() > 0.25
	})
	assert.True(t, frame.Player.Grounded)
	assert.Equal(t, 1, a.Headset.ClientCount())
}

func TestApp_StatsAndTelemetryEndpoints(t *testing.T) {
	a, server := startApp(t, testConfig())
	require.Eventually(t, func() bool { return a.Ticker.RenderTickCount() > 5 }, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Get(server.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 100.0, stats["target_tps"])
	assert.Contains(t, stats, "clients")
	assert.Contains(t, stats["systems"], "LocomotionSystem")

	resp2, err := http.Get(server.URL + "/telemetry")
	require.NoError(t, err)
	defer resp2.Body.Close()

	var telemetry struct {
		Locomotion []map[string]any `json:"locomotion"`
		Gaze       []map[string]any `json:"gaze"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&telemetry))
	assert.NotEmpty(t, telemetry.Locomotion)
	assert.NotEmpty(t, telemetry.Gaze)
}
