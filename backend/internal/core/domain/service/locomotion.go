package service

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/port/in/headset"
	"gaze-walk/backend/internal/core/port/out/physics"
)

// IntentEpsilon оси намерения не дальше этого от нуля считаются покоем
const IntentEpsilon = 1e-6

// TickReport что произошло за один физический тик
type TickReport struct {
	Intent         entity.MovementIntent
	Ground         entity.GroundState
	Position       mgl64.Vec3
	Velocity       mgl64.Vec3
	DesiredMove    mgl64.Vec3
	ImpulseApplied bool
	Stuck          bool // StickToGroundCorrector перезаписал скорость
}

// LocomotionController переводит намерение и курс камеры в импульс тела
type LocomotionController struct {
	params      entity.LocomotionParams
	bodyID      string
	physicsPort physics.PhysicsPort
	input       headset.InputPort
	camera      headset.CameraPort
	sensor      *GroundSensor
	stick       *StickToGroundCorrector
	logger      zerolog.Logger

	ground entity.GroundState
}

// NewLocomotionController создает контроллер для тела bodyID
func NewLocomotionController(
	params entity.LocomotionParams,
	bodyID string,
	physicsPort physics.PhysicsPort,
	input headset.InputPort,
	camera headset.CameraPort,
	logger zerolog.Logger,
) *LocomotionController {
	return &LocomotionController{
		params:      params,
		bodyID:      bodyID,
		physicsPort: physicsPort,
		input:       input,
		camera:      camera,
		sensor:      NewGroundSensor(physicsPort, params.ColliderHalfHeight),
		stick:       NewStickToGroundCorrector(physicsPort, bodyID, params),
		logger:      logger.With().Str("component", "Locomotion").Logger(),
		ground:      entity.Airborne(),
	}
}

// Ground возвращает нормаль опоры, измеренную последним тиком
func (lc *LocomotionController) Ground() entity.GroundState {
	return lc.ground
}

// Params возвращает параметры передвижения
func (lc *LocomotionController) Params() entity.LocomotionParams {
	return lc.params
}

// FixedUpdate выполняет один физический тик передвижения
func (lc *LocomotionController) FixedUpdate(ctx context.Context) (TickReport, error) {
	var report TickReport

	intent := entity.ResolveIntent(lc.input.InputState())
	report.Intent = intent

	body, err := lc.physicsPort.GetBodyState(ctx, &physics.GetBodyStateRequest{ID: lc.bodyID})
	if err != nil {
		return report, fmt.Errorf("body state %s: %w", lc.bodyID, err)
	}
	report.Position = body.Position
	report.Velocity = body.Velocity

	// Опора проверяется каждый тик, даже без ввода
	ground, err := lc.sensor.Probe(ctx, body.Position, lc.params.ColliderRadius, lc.params.GroundCheckDistance)
	if err != nil {
		return report, err
	}
	lc.ground = ground
	report.Ground = ground

	if intent.IsIdle(IntentEpsilon) {
		return report, nil
	}

	// Двигаемся вдоль взгляда камеры, а не корпуса
	orientation := lc.camera.Orientation()
	forward := orientation.Rotate(entity.Forward)
	right := orientation.Rotate(entity.Right)

	desiredMove := forward.Mul(intent.Y).Add(right.Mul(intent.X))
	desiredMove = entity.SafeNormalize(entity.ProjectOnPlane(desiredMove, lc.ground.ContactNormal))
	desiredMove = desiredMove.Mul(lc.params.CurrentTargetSpeed)
	report.DesiredMove = desiredMove

	speed := lc.params.CurrentTargetSpeed
	if body.Velocity.Dot(body.Velocity) < speed*speed {
		_, err := lc.physicsPort.ApplyImpulse(ctx, &physics.ApplyImpulseRequest{
			ID:      lc.bodyID,
			Impulse: desiredMove,
		})
		if err != nil {
			return report, fmt.Errorf("apply impulse %s: %w", lc.bodyID, err)
		}
		report.ImpulseApplied = true
	}

	stuck, err := lc.stick.Correct(ctx, body.Position)
	if err != nil {
		return report, err
	}
	report.Stuck = stuck

	lc.logger.Debug().
		Floats64("intent", []float64{intent.X, intent.Y}).
		Bool("grounded", ground.IsGrounded).
		Bool("impulse", report.ImpulseApplied).
		Bool("stuck", stuck).
		Msg("locomotion tick")

	return report, nil
}
