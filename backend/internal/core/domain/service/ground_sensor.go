package service

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/port/out/physics"
)

// GroundSensor классифицирует опору под капсулой игрока
type GroundSensor struct {
	physicsPort physics.PhysicsPort
	halfHeight  float64
}

// NewGroundSensor создает сенсор для капсулы с заданной половиной высоты
func NewGroundSensor(physicsPort physics.PhysicsPort, colliderHalfHeight float64) *GroundSensor {
	return &GroundSensor{
		physicsPort: physicsPort,
		halfHeight:  colliderHalfHeight,
	}
}

// Probe пускает сферу радиуса colliderRadius вниз от origin на
// (halfHeight - radius) + castDistance. Побочных эффектов нет.
func (s *GroundSensor) Probe(ctx context.Context, origin mgl64.Vec3, colliderRadius, castDistance float64) (entity.GroundState, error) {
	resp, err := s.physicsPort.SphereCast(ctx, &physics.SphereCastRequest{
		Origin:      origin,
		Radius:      colliderRadius,
		Direction:   entity.Down,
		MaxDistance: (s.halfHeight - colliderRadius) + castDistance,
	})
	if err != nil {
		return entity.Airborne(), fmt.Errorf("ground probe: %w", err)
	}

	if !resp.Hit {
		return entity.Airborne(), nil
	}

	return entity.GroundState{ContactNormal: resp.Normal, IsGrounded: true}, nil
}
