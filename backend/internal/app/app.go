// Package app собирает сцену из конфигурации: физика, гарнитура, рендер,
// звук, планировщик и HTTP-маршруты.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gopxl/beep"
	"github.com/rs/zerolog"

	"gaze-walk/backend/internal/adapter/in/ws"
	"gaze-walk/backend/internal/adapter/out/audio"
	physicsAdapter "gaze-walk/backend/internal/adapter/out/physics"
	"gaze-walk/backend/internal/adapter/out/render"
	"gaze-walk/backend/internal/config"
	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/domain/service"
	"gaze-walk/backend/internal/core/port/out/physics"
	"gaze-walk/backend/internal/game"
	"gaze-walk/backend/internal/telemetry"
	"gaze-walk/backend/internal/world"
)

const speakerLatency = 100 * time.Millisecond

// App собранная сцена со всеми адаптерами
type App struct {
	Config    *config.Config
	Physics   physics.PhysicsPort
	World     *world.Manager // nil, если физика удаленная
	Headset   *ws.WSAdapter
	Paint     *render.SceneState
	Audio     *audio.Source
	Scene     *service.Scene
	Ticker    *game.GameTicker
	Telemetry *telemetry.TelemetryManager
	Frames    *game.BroadcastSystem

	logger zerolog.Logger
}

// New собирает сцену. Ошибка любой части закрывает уже открытые ресурсы.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		logger: logger.With().Str("component", "App").Logger(),
	}

	port, w, err := NewPhysics(cfg.Physics, logger)
	if err != nil {
		return nil, err
	}
	a.Physics, a.World = port, w

	a.Headset = ws.NewWSAdapter(ws.Options{
		ObjectID:     entity.ObjectID(cfg.Interactive.ObjectID),
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadLimit:    cfg.Server.ReadLimit,
	}, logger)

	a.Paint = render.NewSceneState(cfg.Interactive.ObjectID, cfg.Ambient.SurfaceID,
		mgl64.Vec3(cfg.Interactive.BaseScale), cfg.Ambient.Color())

	if a.Audio, err = newAudioSource(cfg.Audio); err != nil {
		_ = a.Physics.Close()
		return nil, err
	}
	if cfg.Audio.Speaker {
		if err := audio.PlayOnSpeaker(a.Audio, speakerLatency); err != nil {
			a.logger.Warn().Err(err).Msg("звук без устройства вывода")
		}
	}

	seed := cfg.Interactive.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	a.Scene, err = service.NewScene(ctx, service.Bindings{
		Physics:   a.Physics,
		Input:     a.Headset,
		Camera:    a.Headset,
		Gaze:      a.Headset,
		Focus:     a.Headset,
		Pointer:   a.Headset,
		Visual:    a.Paint,
		Particles: a.Paint,
		Audio:     a.Audio,
		Surface:   a.Paint,
		Random:    rand.New(rand.NewSource(seed)),
	}, service.PlayerSpawn{
		BodyID:   cfg.Player.BodyID,
		Position: cfg.Player.SpawnPosition(),
		Mass:     cfg.Player.Mass,
	}, cfg.Player.Locomotion(), GazeParams(cfg), logger)
	if err != nil {
		_ = a.Physics.Close()
		return nil, err
	}

	a.Telemetry = telemetry.NewTelemetryManager(cfg.Telemetry.Enabled, cfg.Telemetry.BufferSize, logger)

	a.Ticker = game.NewGameTicker(cfg.Ticker.PhysicsTPS, cfg.Ticker.RenderFPS, logger)
	a.Frames = game.NewBroadcastSystem(a.Scene, a.Paint, a.Audio, a.Headset, cfg.Server.FrameEveryTick)

	a.Ticker.RegisterPhysicsSystem(game.NewLocomotionSystem(a.Scene, cfg.Physics.CallTimeout, logger))
	a.Ticker.RegisterPhysicsSystem(game.NewPhysicsStepSystem(a.Physics, cfg.Physics.CallTimeout))
	a.Ticker.RegisterRenderSystem(game.NewGazeSystem(a.Scene))
	a.Ticker.RegisterRenderSystem(a.Frames)
	a.Ticker.RegisterRenderSystem(game.NewTelemetrySystem(a.Scene, a.Audio, a.Ticker, a.Telemetry))
	a.Ticker.RegisterRenderSystem(game.NewGameMetricsSystem(a.Ticker, cfg.Ticker.StatsInterval, logger))

	return a, nil
}

// NewPhysics выбирает физический движок по конфигурации
func NewPhysics(cfg config.PhysicsConfig, logger zerolog.Logger) (physics.PhysicsPort, *world.Manager, error) {
	switch cfg.Backend {
	case "", "local":
		w := world.NewFromConfig(cfg, logger)
		return physicsAdapter.NewLocalPhysicsAdapter(w), w, nil
	case "grpc":
		port, err := physicsAdapter.NewGRPCPhysicsAdapter(cfg.Address, cfg.CallTimeout, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("подключение к физическому движку %s: %w", cfg.Address, err)
		}
		return port, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown physics backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// GazeParams параметры реакции объекта из конфигурации
func GazeParams(cfg *config.Config) service.GazeParams {
	params := service.DefaultGazeParams(entity.ObjectID(cfg.Interactive.ObjectID))
	params.BaseScale = mgl64.Vec3(cfg.Interactive.BaseScale)
	params.EngagedScale = cfg.Interactive.EngagedScale
	params.IdleScale = cfg.Interactive.IdleScale
	params.EngagedVolume = cfg.Interactive.EngagedVolume
	params.IdleVolume = cfg.Interactive.IdleVolume
	params.RestartOnEngaged = cfg.Interactive.RestartOnEngaged
	params.EmissiveGain = cfg.Ambient.EmissiveGain
	params.InitialColor = cfg.Interactive.Color()
	return params
}

func newAudioSource(cfg config.AudioConfig) (*audio.Source, error) {
	var (
		clip *beep.Buffer
		err  error
	)
	if cfg.Clip != "" {
		clip, err = audio.LoadWAV(cfg.Clip)
	} else {
		clip, err = audio.NewToneClip(beep.SampleRate(cfg.SampleRate), cfg.ToneHz, cfg.ClipLength)
	}
	if err != nil {
		return nil, fmt.Errorf("звуковой клип: %w", err)
	}
	return audio.NewSource(clip, cfg.Loop), nil
}

// Handler HTTP-маршруты сцены
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.Headset.HandleWS)
	mux.HandleFunc("/stats", a.handleStats)
	mux.HandleFunc("/telemetry", a.handleTelemetry)
	return mux
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := a.Ticker.GetStats()
	stats["clients"] = a.Headset.ClientCount()
	stats["frames_sent"] = a.Frames.Sent()
	stats["dropped_focus_changes"] = a.Headset.DroppedFocusChanges()
	writeJSON(w, a.logger, stats)
}

func (a *App) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	data, err := a.Telemetry.GetTelemetryJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// Run запускает планировщик и HTTP-сервер; возвращается после отмены ctx
func (a *App) Run(ctx context.Context) error {
	if err := a.Ticker.Start(ctx); err != nil {
		return err
	}
	defer a.Ticker.Stop()

	server := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", server.Addr).Msg("HTTP сервер запущен")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP сервер: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("остановка HTTP сервера: %w", err)
	}
	a.logger.Info().Msg("HTTP сервер остановлен")
	return nil
}

// Close освобождает физический движок
func (a *App) Close() error {
	return a.Physics.Close()
}
