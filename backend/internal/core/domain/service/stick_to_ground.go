package service

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/port/out/physics"
)

// MaxStickSlopeDeg склоны круче этого угла корректор не трогает
const MaxStickSlopeDeg = 85.0

// StickToGroundCorrector гасит отрыв от земли на склонах и бордюрах
type StickToGroundCorrector struct {
	physicsPort physics.PhysicsPort
	bodyID      string
	params      entity.LocomotionParams
}

// NewStickToGroundCorrector создает корректор для тела bodyID
func NewStickToGroundCorrector(physicsPort physics.PhysicsPort, bodyID string, params entity.LocomotionParams) *StickToGroundCorrector {
	return &StickToGroundCorrector{
		physicsPort: physicsPort,
		bodyID:      bodyID,
		params:      params,
	}
}

// Correct проецирует скорость тела на плоскость опоры, если опора найдена
// на дистанции помощника и ее угол к вертикали меньше 85°.
// Возвращает true, если скорость была перезаписана.
func (c *StickToGroundCorrector) Correct(ctx context.Context, origin mgl64.Vec3) (bool, error) {
	hit, err := c.physicsPort.SphereCast(ctx, &physics.SphereCastRequest{
		Origin:      origin,
		Radius:      c.params.ColliderRadius,
		Direction:   entity.Down,
		MaxDistance: c.params.CastDistance(c.params.StickToGroundHelperDistance),
	})
	if err != nil {
		return false, fmt.Errorf("stick to ground cast: %w", err)
	}

	if !hit.Hit || entity.AngleDeg(hit.Normal, entity.Up) >= MaxStickSlopeDeg {
		return false, nil
	}

	// Импульс этого такта уже в скорости: движок применяет его сразу, поэтому проецируется и он
	state, err := c.physicsPort.GetBodyState(ctx, &physics.GetBodyStateRequest{ID: c.bodyID})
	if err != nil {
		return false, fmt.Errorf("stick to ground velocity: %w", err)
	}

	_, err = c.physicsPort.SetVelocity(ctx, &physics.SetVelocityRequest{
		ID:       c.bodyID,
		Velocity: entity.ProjectOnPlane(state.Velocity, hit.Normal),
	})
	if err != nil {
		return false, fmt.Errorf("stick to ground set velocity: %w", err)
	}

	return true, nil
}
