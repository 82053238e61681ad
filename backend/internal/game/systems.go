package game

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gaze-walk/backend/internal/adapter/in/ws"
	"gaze-walk/backend/internal/adapter/out/render"
	"gaze-walk/backend/internal/core/domain/service"
	"gaze-walk/backend/internal/core/port/out/physics"
	"gaze-walk/backend/internal/core/port/out/presentation"
	"gaze-walk/backend/internal/telemetry"
)

// Приоритеты систем внутри своих часов
const (
	PriorityLocomotion  = 10
	PriorityPhysicsStep = 20
	PriorityGaze        = 10
	PriorityBroadcast   = 100
	PriorityTelemetry   = 150
	PriorityMetrics     = 200
)

// LocomotionSystem физический тик сцены: опора, импульс, прилипание к земле
type LocomotionSystem struct {
	name        string
	priority    int
	scene       *service.Scene
	callTimeout time.Duration
	logger      zerolog.Logger
}

// NewLocomotionSystem создает систему передвижения
func NewLocomotionSystem(scene *service.Scene, callTimeout time.Duration, logger zerolog.Logger) *LocomotionSystem {
	return &LocomotionSystem{
		name:        "LocomotionSystem",
		priority:    PriorityLocomotion,
		scene:       scene,
		callTimeout: callTimeout,
		logger:      logger.With().Str("component", "LocomotionSystem").Logger(),
	}
}

// Update выполняет FixedUpdate контроллера передвижения
func (ls *LocomotionSystem) Update(deltaTime time.Duration) error {
	ctx, cancel := callContext(ls.callTimeout)
	defer cancel()

	report, err := ls.scene.PhysicsTick(ctx)
	if err != nil {
		return err
	}
	if report.Stuck {
		ls.logger.Debug().Floats64("velocity", report.Velocity[:]).Msg("скорость прижата к земле")
	}
	return nil
}

func (ls *LocomotionSystem) GetName() string { return ls.name }

func (ls *LocomotionSystem) GetPriority() int { return ls.priority }

// PhysicsStepSystem продвигает физический движок на фиксированный шаг
type PhysicsStepSystem struct {
	name        string
	priority    int
	port        physics.PhysicsPort
	callTimeout time.Duration
}

// NewPhysicsStepSystem создает систему шага симуляции
func NewPhysicsStepSystem(port physics.PhysicsPort, callTimeout time.Duration) *PhysicsStepSystem {
	return &PhysicsStepSystem{
		name:        "PhysicsStepSystem",
		priority:    PriorityPhysicsStep, // После передвижения: импульс этого тика уже применен
		port:        port,
		callTimeout: callTimeout,
	}
}

// Update шаг симуляции
func (pss *PhysicsStepSystem) Update(deltaTime time.Duration) error {
	ctx, cancel := callContext(pss.callTimeout)
	defer cancel()

	_, err := pss.port.Step(ctx, &physics.StepRequest{DeltaSeconds: deltaTime.Seconds()})
	return err
}

func (pss *PhysicsStepSystem) GetName() string { return pss.name }

func (pss *PhysicsStepSystem) GetPriority() int { return pss.priority }

// GazeSystem кадр рендера: реакция объекта на взгляд
type GazeSystem struct {
	name     string
	priority int
	scene    *service.Scene
}

// NewGazeSystem создает систему взгляда
func NewGazeSystem(scene *service.Scene) *GazeSystem {
	return &GazeSystem{
		name:     "GazeSystem",
		priority: PriorityGaze,
		scene:    scene,
	}
}

func (gs *GazeSystem) Update(deltaTime time.Duration) error {
	gs.scene.RenderTick(deltaTime)
	return nil
}

func (gs *GazeSystem) GetName() string { return gs.name }

func (gs *GazeSystem) GetPriority() int { return gs.priority }

// FrameBroadcaster получатель кадров для гарнитур
type FrameBroadcaster interface {
	Broadcast(msg any)
	ClientCount() int
}

// BroadcastSystem рассылает кадр сцены гарнитурам
type BroadcastSystem struct {
	name       string
	priority   int
	scene      *service.Scene
	paint      *render.SceneState
	audio      presentation.AudioSource
	out        FrameBroadcaster
	everyTicks uint64 // Отправлять каждый N-й кадр

	frames uint64
	sent   atomic.Uint64 // Читается из HTTP-обработчика
}

// NewBroadcastSystem создает систему рассылки кадров
func NewBroadcastSystem(scene *service.Scene, paint *render.SceneState, audio presentation.AudioSource, out FrameBroadcaster, everyTicks int) *BroadcastSystem {
	if everyTicks <= 0 {
		everyTicks = 1
	}
	return &BroadcastSystem{
		name:       "BroadcastSystem",
		priority:   PriorityBroadcast, // Самый низкий приоритет - отправляем в конце кадра
		scene:      scene,
		paint:      paint,
		audio:      audio,
		out:        out,
		everyTicks: uint64(everyTicks),
	}
}

// Update собирает и отправляет кадр
func (bs *BroadcastSystem) Update(deltaTime time.Duration) error {
	bs.frames++
	if bs.frames%bs.everyTicks != 0 || bs.out.ClientCount() == 0 {
		return nil
	}

	bs.out.Broadcast(bs.Frame())
	bs.sent.Add(1)
	return nil
}

// Frame текущий кадр сцены
func (bs *BroadcastSystem) Frame() ws.FrameMessage {
	report := bs.scene.LastReport()
	player := ws.PlayerFrame{
		Position:      report.Position,
		Velocity:      report.Velocity,
		Grounded:      report.Ground.IsGrounded,
		ContactNormal: report.Ground.ContactNormal,
	}
	audio := ws.AudioFrame{Volume: bs.audio.Volume(), Playing: bs.audio.IsPlaying()}

	return ws.NewFrameMessage(bs.frames, player, bs.scene.Gaze().State().String(), bs.paint.Snapshot(), audio)
}

// Sent сколько кадров отправлено
func (bs *BroadcastSystem) Sent() uint64 {
	return bs.sent.Load()
}

func (bs *BroadcastSystem) GetName() string { return bs.name }

func (bs *BroadcastSystem) GetPriority() int { return bs.priority }

// TelemetrySystem пишет состояние сцены в буфер телеметрии
type TelemetrySystem struct {
	name       string
	priority   int
	scene      *service.Scene
	audio      presentation.AudioSource
	gameTicker *GameTicker
	manager    *telemetry.TelemetryManager

	lastPhysicsTick uint64
}

// NewTelemetrySystem создает систему телеметрии
func NewTelemetrySystem(scene *service.Scene, audio presentation.AudioSource, gameTicker *GameTicker, manager *telemetry.TelemetryManager) *TelemetrySystem {
	return &TelemetrySystem{
		name:       "TelemetrySystem",
		priority:   PriorityTelemetry,
		scene:      scene,
		audio:      audio,
		gameTicker: gameTicker,
		manager:    manager,
	}
}

func (ts *TelemetrySystem) Update(deltaTime time.Duration) error {
	if !ts.manager.Enabled() {
		return nil
	}

	// Физический тик пишем один раз, даже если кадров за него было несколько
	if tick := ts.gameTicker.PhysicsTickCount(); tick != ts.lastPhysicsTick {
		ts.lastPhysicsTick = tick
		report := ts.scene.LastReport()
		ts.manager.LogLocomotion(telemetry.LocomotionSample{
			Tick:           tick,
			Position:       report.Position,
			Velocity:       report.Velocity,
			Grounded:       report.Ground.IsGrounded,
			ContactNormal:  report.Ground.ContactNormal,
			ImpulseApplied: report.ImpulseApplied,
			Stuck:          report.Stuck,
		})
	}

	gaze := ts.scene.Gaze()
	object := gaze.Object()
	ts.manager.LogGaze(telemetry.GazeSample{
		Tick:     ts.gameTicker.RenderTickCount(),
		State:    gaze.State().String(),
		Scale:    object.CurrentScale,
		Volume:   ts.audio.Volume(),
		Emitting: object.EmissionEnabled,
		Restarts: gaze.Restarts(),
	})

	ts.manager.PrintSummary(time.Now())
	return nil
}

func (ts *TelemetrySystem) GetName() string { return ts.name }

func (ts *TelemetrySystem) GetPriority() int { return ts.priority }

// GameMetricsSystem система сбора метрик игрового цикла
type GameMetricsSystem struct {
	name       string
	priority   int
	gameTicker *GameTicker
	logger     zerolog.Logger

	// Счетчики для метрик
	lastMetricsLog  time.Time
	metricsInterval time.Duration
}

// NewGameMetricsSystem создает новую систему сбора метрик
func NewGameMetricsSystem(gameTicker *GameTicker, interval time.Duration, logger zerolog.Logger) *GameMetricsSystem {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &GameMetricsSystem{
		name:            "GameMetricsSystem",
		priority:        PriorityMetrics, // Метрики в самом конце
		gameTicker:      gameTicker,
		logger:          logger.With().Str("component", "GameMetrics").Logger(),
		lastMetricsLog:  time.Now(),
		metricsInterval: interval,
	}
}

// Update логирует метрики не чаще metricsInterval
func (gms *GameMetricsSystem) Update(deltaTime time.Duration) error {
	now := time.Now()
	if now.Sub(gms.lastMetricsLog) < gms.metricsInterval {
		return nil
	}
	gms.lastMetricsLog = now

	stats := gms.gameTicker.GetStats()
	actualTPS, _ := stats["actual_tps"].(float64)
	targetTPS, _ := stats["target_tps"].(int)

	gms.logger.Info().
		Float64("tps", actualTPS).
		Int("target_tps", targetTPS).
		Interface("fps", stats["actual_fps"]).
		Interface("physics_ticks", stats["physics_ticks"]).
		Interface("average_tick_time", stats["average_tick_time"]).
		Msg("метрики игрового цикла")

	// Проверяем производительность
	if actualTPS < float64(targetTPS)*0.9 {
		gms.logger.Warn().Float64("tps", actualTPS).Msg("TPS снижен")
	}
	for _, name := range gms.gameTicker.PerformanceMonitor().Critical() {
		gms.logger.Warn().Str("system", name).Msg("система превышает критическое время")
	}

	return nil
}

func (gms *GameMetricsSystem) GetName() string { return gms.name }

func (gms *GameMetricsSystem) GetPriority() int { return gms.priority }

// callContext контекст на один вызов порта
func callContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
