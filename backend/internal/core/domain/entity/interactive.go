package entity

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// ObjectID идентификатор объекта сцены, сравниваемый с фокусом взгляда
type ObjectID string

// GazeState состояние реакции объекта на взгляд
type GazeState int

const (
	Idle GazeState = iota
	Engaged
)

func (s GazeState) String() string {
	if s == Engaged {
		return "engaged"
	}
	return "idle"
}

// FocusChange снимок состояния взгляда в момент смены фокуса
type FocusChange struct {
	Held   bool
	Object ObjectID
}

// InteractiveObjectState визуальное и звуковое состояние интерактивного объекта.
// Все поля кроме DesiredColor меняются только интерполяцией.
type InteractiveObjectState struct {
	CurrentScale    mgl64.Vec3
	TargetScale     mgl64.Vec3
	EmissionEnabled bool
	CurrentVolume   float64
	TargetVolume    float64
	DesiredColor    colorful.Color
}

// AmbientSurfaceState цвет окружающей поверхности, тянется к DesiredColor объекта
type AmbientSurfaceState struct {
	CurrentColor colorful.Color
	TargetColor  colorful.Color
}

// NewDesiredColor строит цвет из случайной пары: синий всегда 1 - красный
func NewDesiredColor(redOrBlue, green float64) colorful.Color {
	return colorful.Color{R: redOrBlue, G: green, B: 1 - redOrBlue}
}

// ScaleColor умножает компоненты цвета без зажатия (для emissive)
func ScaleColor(c colorful.Color, k float64) colorful.Color {
	return colorful.Color{R: c.R * k, G: c.G * k, B: c.B * k}
}
