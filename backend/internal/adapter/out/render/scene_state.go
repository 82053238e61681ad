package render

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// Snapshot состояние сцены, которое уходит клиенту для отрисовки
type Snapshot struct {
	Version         uint64     `json:"version" cbor:"version"`
	ObjectID        string     `json:"object_id" cbor:"object_id"`
	Scale           mgl64.Vec3 `json:"scale" cbor:"scale"`
	Emitting        bool       `json:"emitting" cbor:"emitting"`
	ParticleColor   string     `json:"particle_color" cbor:"particle_color"`
	SurfaceID       string     `json:"surface_id" cbor:"surface_id"`
	SurfaceColor    string     `json:"surface_color" cbor:"surface_color"`
	SurfaceEmissive [3]float64 `json:"surface_emissive" cbor:"surface_emissive"` // Не зажимается в [0, 1]
}

// SceneState хранит визуальное состояние интерактивного объекта и поверхности.
// Пишет машина состояний взгляда, читают рассылка кадров и HTTP-обработчики.
type SceneState struct {
	mu sync.RWMutex

	objectID  string
	surfaceID string

	scale         mgl64.Vec3
	emitting      bool
	particleColor colorful.Color
	surface       colorful.Color
	emissive      colorful.Color

	version uint64
}

func NewSceneState(objectID, surfaceID string, scale mgl64.Vec3, surface colorful.Color) *SceneState {
	return &SceneState{
		objectID:  objectID,
		surfaceID: surfaceID,
		scale:     scale,
		surface:   surface,
	}
}

func (s *SceneState) Scale() mgl64.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scale
}

func (s *SceneState) SetScale(scale mgl64.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scale != scale {
		s.scale = scale
		s.version++
	}
}

func (s *SceneState) SetEmission(enabled bool, color colorful.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emitting != enabled || s.particleColor != color {
		s.emitting = enabled
		s.particleColor = color
		s.version++
	}
}

func (s *SceneState) Color() colorful.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.surface
}

func (s *SceneState) SetColor(c colorful.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface != c {
		s.surface = c
		s.version++
	}
}

func (s *SceneState) SetEmissive(c colorful.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emissive != c {
		s.emissive = c
		s.version++
	}
}

// Version растет при каждом изменении; рассылка пропускает неизменные кадры
func (s *SceneState) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot копия состояния для сериализации
func (s *SceneState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Version:         s.version,
		ObjectID:        s.objectID,
		Scale:           s.scale,
		Emitting:        s.emitting,
		ParticleColor:   s.particleColor.Clamped().Hex(),
		SurfaceID:       s.surfaceID,
		SurfaceColor:    s.surface.Clamped().Hex(),
		SurfaceEmissive: [3]float64{s.emissive.R, s.emissive.G, s.emissive.B},
	}
}
