package presentation

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// ObjectVisual трансформ интерактивного объекта
type ObjectVisual interface {
	Scale() mgl64.Vec3
	SetScale(scale mgl64.Vec3)
}

// ParticleEmitter система частиц интерактивного объекта
type ParticleEmitter interface {
	SetEmission(enabled bool, color colorful.Color)
}

// SurfacePaint изменяемое состояние материала окружающей поверхности
type SurfacePaint interface {
	Color() colorful.Color
	SetColor(c colorful.Color)
	// SetEmissive передает рендеру излучаемый цвет (может выходить за [0, 1])
	SetEmissive(c colorful.Color)
}

// AudioSource источник звука интерактивного объекта
type AudioSource interface {
	Volume() float64
	SetVolume(v float64)
	SetTime(pos time.Duration)
	IsPlaying() bool
	Play()
}
