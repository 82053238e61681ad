package physics

import (
	"context"
	"errors"
	"fmt"

	portPhysics "gaze-walk/backend/internal/core/port/out/physics"
	"gaze-walk/backend/internal/world"
)

// LocalPhysicsAdapter реализует порт физики поверх симуляции в том же процессе
type LocalPhysicsAdapter struct {
	world *world.Manager
}

// NewLocalPhysicsAdapter создает адаптер над готовым миром
func NewLocalPhysicsAdapter(w *world.Manager) *LocalPhysicsAdapter {
	return &LocalPhysicsAdapter{world: w}
}

// World симуляция под адаптером
func (a *LocalPhysicsAdapter) World() *world.Manager {
	return a.world
}

func (a *LocalPhysicsAdapter) CreateBody(ctx context.Context, req *portPhysics.CreateBodyRequest) (*portPhysics.CreateBodyResponse, error) {
	err := a.world.AddBody(world.Body{
		ID:         req.ID,
		Position:   req.Position,
		Mass:       req.Mass,
		Radius:     req.Radius,
		HalfHeight: req.HalfHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании тела: %w", err)
	}
	return &portPhysics.CreateBodyResponse{ID: req.ID, Status: "ok"}, nil
}

func (a *LocalPhysicsAdapter) SphereCast(ctx context.Context, req *portPhysics.SphereCastRequest) (*portPhysics.SphereCastResponse, error) {
	hit := a.world.SphereCast(req.Origin, req.Radius, req.Direction, req.MaxDistance)
	return &portPhysics.SphereCastResponse{
		Hit:      hit.Hit,
		Normal:   hit.Normal,
		Point:    hit.Point,
		Distance: hit.Distance,
	}, nil
}

func (a *LocalPhysicsAdapter) GetBodyState(ctx context.Context, req *portPhysics.GetBodyStateRequest) (*portPhysics.GetBodyStateResponse, error) {
	b, ok := a.world.GetBody(req.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", portPhysics.ErrUnknownBody, req.ID)
	}
	return &portPhysics.GetBodyStateResponse{
		ID:       b.ID,
		Position: b.Position,
		Velocity: b.Velocity,
		Mass:     b.Mass,
	}, nil
}

func (a *LocalPhysicsAdapter) ApplyImpulse(ctx context.Context, req *portPhysics.ApplyImpulseRequest) (*portPhysics.ApplyImpulseResponse, error) {
	if err := a.world.ApplyImpulse(req.ID, req.Impulse); err != nil {
		return nil, translateWorldError(err, req.ID)
	}
	return &portPhysics.ApplyImpulseResponse{Status: "ok"}, nil
}

func (a *LocalPhysicsAdapter) SetVelocity(ctx context.Context, req *portPhysics.SetVelocityRequest) (*portPhysics.SetVelocityResponse, error) {
	if err := a.world.SetVelocity(req.ID, req.Velocity); err != nil {
		return nil, translateWorldError(err, req.ID)
	}
	return &portPhysics.SetVelocityResponse{Status: "ok"}, nil
}

func (a *LocalPhysicsAdapter) Step(ctx context.Context, req *portPhysics.StepRequest) (*portPhysics.StepResponse, error) {
	return &portPhysics.StepResponse{Bodies: a.world.Step(req.DeltaSeconds)}, nil
}

// Close у локальной симуляции нечего закрывать
func (a *LocalPhysicsAdapter) Close() error {
	return nil
}

func translateWorldError(err error, id string) error {
	if errors.Is(err, world.ErrUnknownBody) {
		return fmt.Errorf("%w: %s", portPhysics.ErrUnknownBody, id)
	}
	return err
}
