package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/port/in/headset"
	"gaze-walk/backend/internal/core/port/out/physics"
	"gaze-walk/backend/internal/core/port/out/presentation"
)

// ErrMissingCollaborator сцена не может работать без обязательного коллаборатора
var ErrMissingCollaborator = errors.New("missing required collaborator")

// Bindings все ссылки на коллабораторы, связываются один раз при инициализации
type Bindings struct {
	Physics   physics.PhysicsPort
	Input     headset.InputPort
	Camera    headset.CameraPort
	Gaze      headset.GazePort
	Focus     headset.FocusEvents
	Pointer   headset.PointerPort
	Visual    presentation.ObjectVisual
	Particles presentation.ParticleEmitter
	Audio     presentation.AudioSource
	Surface   presentation.SurfacePaint
	Random    RandomSource
}

// PlayerSpawn параметры тела игрока в физическом движке
type PlayerSpawn struct {
	BodyID   string
	Position mgl64.Vec3
	Mass     float64
}

// Scene связывает передвижение и реакцию на взгляд.
// PhysicsTick и RenderTick вызываются из одного потока планировщика.
type Scene struct {
	locomotion *LocomotionController
	gaze       *GazeInteractionStateMachine
	logger     zerolog.Logger

	lastReport TickReport
}

// NewScene проверяет коллабораторы, создает тело игрока и собирает сцену.
// Любой отсутствующий коллаборатор возвращает ErrMissingCollaborator.
func NewScene(
	ctx context.Context,
	b Bindings,
	spawn PlayerSpawn,
	locomotion entity.LocomotionParams,
	gaze GazeParams,
	logger zerolog.Logger,
) (*Scene, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	_, err := b.Physics.CreateBody(ctx, &physics.CreateBodyRequest{
		ID:         spawn.BodyID,
		Position:   spawn.Position,
		Mass:       spawn.Mass,
		Radius:     locomotion.ColliderRadius,
		HalfHeight: locomotion.ColliderHalfHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("create player body %s: %w", spawn.BodyID, err)
	}

	s := &Scene{
		locomotion: NewLocomotionController(locomotion, spawn.BodyID, b.Physics, b.Input, b.Camera, logger),
		gaze: NewGazeInteractionStateMachine(gaze, b.Gaze, b.Focus, b.Pointer,
			b.Visual, b.Particles, b.Audio, b.Surface, b.Random, logger),
		logger: logger.With().Str("component", "Scene").Logger(),
	}

	s.logger.Info().
		Str("body", spawn.BodyID).
		Str("object", string(gaze.ObjectID)).
		Float64("target_speed", locomotion.CurrentTargetSpeed).
		Msg("сцена инициализирована")

	return s, nil
}

func (b Bindings) validate() error {
	required := []struct {
		name  string
		isNil bool
	}{
		{"physics", b.Physics == nil},
		{"input", b.Input == nil},
		{"camera", b.Camera == nil},
		{"gaze", b.Gaze == nil},
		{"focus events", b.Focus == nil},
		{"pointer", b.Pointer == nil},
		{"interactive object", b.Visual == nil},
		{"particles", b.Particles == nil},
		{"audio source", b.Audio == nil},
		{"ambient surface", b.Surface == nil},
		{"random source", b.Random == nil},
	}

	for _, r := range required {
		if r.isNil {
			return fmt.Errorf("%w: %s", ErrMissingCollaborator, r.name)
		}
	}
	return nil
}

// PhysicsTick фиксированный шаг: опора, импульс, прилипание к земле
func (s *Scene) PhysicsTick(ctx context.Context) (TickReport, error) {
	report, err := s.locomotion.FixedUpdate(ctx)
	s.lastReport = report
	return report, err
}

// RenderTick переменный шаг: реакция объекта на взгляд
func (s *Scene) RenderTick(deltaTime time.Duration) {
	s.gaze.Update(deltaTime)
}

// LastReport отчет последнего физического тика
func (s *Scene) LastReport() TickReport {
	return s.lastReport
}

// Locomotion контроллер передвижения
func (s *Scene) Locomotion() *LocomotionController {
	return s.locomotion
}

// Gaze машина состояний взгляда
func (s *Scene) Gaze() *GazeInteractionStateMachine {
	return s.gaze
}
