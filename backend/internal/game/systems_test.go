package game

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaze-walk/backend/internal/adapter/in/ws"
	"gaze-walk/backend/internal/adapter/out/audio"
	physicsAdapter "gaze-walk/backend/internal/adapter/out/physics"
	"gaze-walk/backend/internal/adapter/out/render"
	"gaze-walk/backend/internal/config"
	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/domain/service"
	"gaze-walk/backend/internal/core/port/out/physics"
	"gaze-walk/backend/internal/telemetry"
	"gaze-walk/backend/internal/world"
)

// fakeBroadcaster собирает отправленные кадры
type fakeBroadcaster struct {
	mu      sync.Mutex
	clients int
	frames  []ws.FrameMessage
}

func (f *fakeBroadcaster) Broadcast(msg any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, msg.(ws.FrameMessage))
}

func (f *fakeBroadcaster) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients
}

// stepRecorder подменяет только Step
type stepRecorder struct {
	physics.PhysicsPort
	deltas []float64
	err    error
}

func (s *stepRecorder) Step(ctx context.Context, req *physics.StepRequest) (*physics.StepResponse, error) {
	s.deltas = append(s.deltas, req.DeltaSeconds)
	return &physics.StepResponse{Bodies: 1}, s.err
}

type testRig struct {
	world   *world.Manager
	headset *ws.WSAdapter
	paint   *render.SceneState
	audio   *audio.Source
	scene   *service.Scene
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	logger := zerolog.New(io.Discard)
	cfg := config.Default()

	w := world.NewFromConfig(cfg.Physics, logger)
	headset := ws.NewWSAdapter(ws.Options{ObjectID: "orb"}, logger)
	paint := render.NewSceneState("orb", "floor", mgl64.Vec3{1, 1, 1}, colorful.Color{R: 1, G: 1, B: 1})
	clip, err := audio.NewToneClip(1000, 440, time.Second)
	require.NoError(t, err)
	src := audio.NewSource(clip, false)

	scene, err := service.NewScene(context.Background(), service.Bindings{
		Physics:   physicsAdapter.NewLocalPhysicsAdapter(w),
		Input:     headset,
		Camera:    headset,
		Gaze:      headset,
		Focus:     headset,
		Pointer:   headset,
		Visual:    paint,
		Particles: paint,
		Audio:     src,
		Surface:   paint,
		Random:    rand.New(rand.NewSource(1)),
	}, service.PlayerSpawn{BodyID: "player", Position: mgl64.Vec3{0, 1, 0}, Mass: 10},
		cfg.Player.Locomotion(), service.DefaultGazeParams("orb"), logger)
	require.NoError(t, err)

	return &testRig{world: w, headset: headset, paint: paint, audio: src, scene: scene}
}

func TestPhysicsStepSystem_PassesFixedStep(t *testing.T) {
	port := &stepRecorder{}
	system := NewPhysicsStepSystem(port, 0)

	require.NoError(t, system.Update(20*time.Millisecond))
	assert.Equal(t, []float64{0.02}, port.deltas)

	port.err = errors.New("engine down")
	assert.Error(t, system.Update(20*time.Millisecond))
}

func TestLocomotionAndStep_PlayerRestsOnFloor(t *testing.T) {
	rig := newTestRig(t)
	locomotion := NewLocomotionSystem(rig.scene, time.Second, zerolog.New(io.Discard))
	step := NewPhysicsStepSystem(physicsAdapter.NewLocalPhysicsAdapter(rig.world), time.Second)

	for i := 0; i < 50; i++ {
		require.NoError(t, locomotion.Update(20*time.Millisecond))
		require.NoError(t, step.Update(20*time.Millisecond))
	}
	require.NoError(t, locomotion.Update(20*time.Millisecond))

	report := rig.scene.LastReport()
	assert.True(t, report.Ground.IsGrounded)
	assert.InDelta(t, 1.0, report.Position.Y(), 0.01)
	assert.False(t, report.ImpulseApplied, "no input")
}

func TestGazeSystem_IdleGrowsTowardIdleScale(t *testing.T) {
	rig := newTestRig(t)
	gaze := NewGazeSystem(rig.scene)

	require.NoError(t, gaze.Update(100*time.Millisecond))
	assert.Equal(t, entity.Idle, rig.scene.Gaze().State())
	assert.False(t, rig.audio.IsPlaying())

	// Базовый размер 1, покой 2x: первый кадр сдвигает масштаб между ними
	scale := rig.paint.Scale()
	assert.Greater(t, scale.X(), 1.0)
	assert.Less(t, scale.X(), 2.0)
	assert.Positive(t, rig.paint.Version())
}

func TestBroadcastSystem_EveryNthFrameWithClients(t *testing.T) {
	rig := newTestRig(t)
	out := &fakeBroadcaster{}
	system := NewBroadcastSystem(rig.scene, rig.paint, rig.audio, out, 2)

	for i := 0; i < 4; i++ {
		require.NoError(t, system.Update(16*time.Millisecond))
	}
	assert.Empty(t, out.frames, "nobody connected")
	assert.Zero(t, system.Sent())

	out.clients = 1
	for i := 0; i < 4; i++ {
		require.NoError(t, system.Update(16*time.Millisecond))
	}
	require.Len(t, out.frames, 2)
	assert.Equal(t, uint64(2), system.Sent())

	frame := out.frames[1]
	assert.Equal(t, ws.MessageTypeFrame, frame.Type)
	assert.Equal(t, uint64(8), frame.Tick)
	assert.Equal(t, "idle", frame.GazeState)
	assert.Equal(t, "orb", frame.Scene.ObjectID)
	assert.False(t, frame.Audio.Playing)
}

func TestTelemetrySystem_OneLocomotionSamplePerPhysicsTick(t *testing.T) {
	rig := newTestRig(t)
	gt := newTestTicker()
	manager := telemetry.NewTelemetryManager(true, 100, zerolog.New(io.Discard))
	system := NewTelemetrySystem(rig.scene, rig.audio, gt, manager)
	gt.RegisterPhysicsSystem(NewLocomotionSystem(rig.scene, time.Second, zerolog.New(io.Discard)))

	gt.executeTick(ClockPhysics, time.Now())
	require.NoError(t, system.Update(time.Millisecond))
	require.NoError(t, system.Update(time.Millisecond))

	snap := manager.Snapshot()
	assert.Len(t, snap.Locomotion, 1)
	assert.Len(t, snap.Gaze, 2)
	assert.Equal(t, uint64(1), snap.Locomotion[0].Tick)
	assert.Equal(t, "idle", snap.Gaze[0].State)

	manager.SetEnabled(false)
	require.NoError(t, system.Update(time.Millisecond))
	assert.Len(t, manager.Snapshot().Gaze, 2)
}

func TestGameMetricsSystem_RespectsInterval(t *testing.T) {
	gt := newTestTicker()
	system := NewGameMetricsSystem(gt, time.Hour, zerolog.New(io.Discard))
	before := system.lastMetricsLog

	require.NoError(t, system.Update(time.Millisecond))
	assert.Equal(t, before, system.lastMetricsLog)

	system.lastMetricsLog = time.Now().Add(-2 * time.Hour)
	require.NoError(t, system.Update(time.Millisecond))
	assert.True(t, system.lastMetricsLog.After(before.Add(-time.Second)))
}
