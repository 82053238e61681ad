package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"

	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/port/out/physics"
)

var (
	_ physics.PhysicsPort = &MockPhysics{}
	_ RandomSource        = &sequenceRandom{}
)

var errMockPhysics = errors.New("mock physics failure")

// MockPhysics физика для тестов: тело с массой 1 и настраиваемые попадания луча
type MockPhysics struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3

	// CastFn отвечает на сферический луч; nil означает промах
	CastFn func(req *physics.SphereCastRequest) *physics.SphereCastResponse
	Fail   bool

	Casts         []physics.SphereCastRequest
	Impulses      []mgl64.Vec3
	SetVelocities []mgl64.Vec3
	Created       []physics.CreateBodyRequest
}

func (m *MockPhysics) CreateBody(ctx context.Context, req *physics.CreateBodyRequest) (*physics.CreateBodyResponse, error) {
	m.Created = append(m.Created, *req)
	m.Position = req.Position
	return &physics.CreateBodyResponse{ID: req.ID, Status: "ok"}, nil
}

func (m *MockPhysics) SphereCast(ctx context.Context, req *physics.SphereCastRequest) (*physics.SphereCastResponse, error) {
	if m.Fail {
		return nil, errMockPhysics
	}
	m.Casts = append(m.Casts, *req)
	if m.CastFn == nil {
		return &physics.SphereCastResponse{}, nil
	}
	if resp := m.CastFn(req); resp != nil {
		return resp, nil
	}
	return &physics.SphereCastResponse{}, nil
}

func (m *MockPhysics) GetBodyState(ctx context.Context, req *physics.GetBodyStateRequest) (*physics.GetBodyStateResponse, error) {
	if m.Fail {
		return nil, errMockPhysics
	}
	return &physics.GetBodyStateResponse{ID: req.ID, Position: m.Position, Velocity: m.Velocity, Mass: 1}, nil
}

func (m *MockPhysics) ApplyImpulse(ctx context.Context, req *physics.ApplyImpulseRequest) (*physics.ApplyImpulseResponse, error) {
	m.Impulses = append(m.Impulses, req.Impulse)
	m.Velocity = m.Velocity.Add(req.Impulse)
	return &physics.ApplyImpulseResponse{Status: "ok"}, nil
}

func (m *MockPhysics) SetVelocity(ctx context.Context, req *physics.SetVelocityRequest) (*physics.SetVelocityResponse, error) {
	m.SetVelocities = append(m.SetVelocities, req.Velocity)
	m.Velocity = req.Velocity
	return &physics.SetVelocityResponse{Status: "ok"}, nil
}

func (m *MockPhysics) Step(ctx context.Context, req *physics.StepRequest) (*physics.StepResponse, error) {
	return &physics.StepResponse{Bodies: 1}, nil
}

func (m *MockPhysics) Close() error { return nil }

// groundHit луч всегда попадает в поверхность с нормалью normal
func groundHit(normal mgl64.Vec3) func(*physics.SphereCastRequest) *physics.SphereCastResponse {
	return func(req *physics.SphereCastRequest) *physics.SphereCastResponse {
		return &physics.SphereCastResponse{Hit: true, Normal: normal, Distance: req.MaxDistance / 2}
	}
}

// MockHeadset ввод, камера, взгляд и указатель
type MockHeadset struct {
	Input       entity.InputState
	Orientation mgl64.Quat
	Held        bool
	Focused     entity.ObjectID
	Pending     []entity.FocusChange

	PointerShown     int
	HighlightCleared int
}

func newMockHeadset() *MockHeadset {
	return &MockHeadset{Orientation: mgl64.QuatIdent()}
}

func (h *MockHeadset) InputState() entity.InputState  { return h.Input }
func (h *MockHeadset) IsFocusHeld() bool              { return h.Held }
func (h *MockHeadset) FocusedObject() entity.ObjectID { return h.Focused }
func (h *MockHeadset) ShowPointer()                   { h.PointerShown++ }
func (h *MockHeadset) ClearHighlight()                { h.HighlightCleared++ }

func (h *MockHeadset) PollFocusChanges() []entity.FocusChange {
	out := h.Pending
	h.Pending = nil
	return out
}

// focus удерживает взгляд на объекте и ставит событие смены фокуса
func (h *MockHeadset) focus(object entity.ObjectID) {
	h.Held = true
	h.Focused = object
	h.Pending = append(h.Pending, entity.FocusChange{Held: true, Object: object})
}

// mockCamera отдельный тип, потому что у CameraPort свой метод Orientation
type mockCamera struct{ h *MockHeadset }

func (c mockCamera) Orientation() mgl64.Quat { return c.h.Orientation }

// MockPresentation визуал, частицы, звук и поверхность
type MockPresentation struct {
	scale     mgl64.Vec3
	Emission  bool
	EmitColor colorful.Color

	volume    float64
	playing   bool
	Plays     int
	Seeks     []time.Duration
	VolumeLog []float64

	surface   colorful.Color
	Emissive  colorful.Color
	Emissions int
}

func (p *MockPresentation) Scale() mgl64.Vec3         { return p.scale }
func (p *MockPresentation) SetScale(scale mgl64.Vec3) { p.scale = scale }

func (p *MockPresentation) SetEmission(enabled bool, color colorful.Color) {
	p.Emission = enabled
	p.EmitColor = color
}

func (p *MockPresentation) Volume() float64 { return p.volume }

func (p *MockPresentation) SetVolume(v float64) {
	p.volume = v
	p.VolumeLog = append(p.VolumeLog, v)
}

func (p *MockPresentation) SetTime(pos time.Duration) { p.Seeks = append(p.Seeks, pos) }
func (p *MockPresentation) IsPlaying() bool           { return p.playing }

func (p *MockPresentation) Play() {
	p.playing = true
	p.Plays++
}

func (p *MockPresentation) Color() colorful.Color     { return p.surface }
func (p *MockPresentation) SetColor(c colorful.Color) { p.surface = c }

func (p *MockPresentation) SetEmissive(c colorful.Color) {
	p.Emissive = c
	p.Emissions++
}

// sequenceRandom выдает заранее заданные значения по кругу
type sequenceRandom struct {
	values []float64
	i      int
}

func (r *sequenceRandom) Float64() float64 {
	v := r.values[r.i%len(r.values)]
	r.i++
	return v
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testParams() entity.LocomotionParams {
	return entity.LocomotionParams{
		GroundCheckDistance:         0.01,
		StickToGroundHelperDistance: 0.5,
		CurrentTargetSpeed:          4,
		ColliderRadius:              0.5,
		ColliderHalfHeight:          1,
	}
}
