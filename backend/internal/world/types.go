package world

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrUnknownBody тело с таким ID не зарегистрировано
	ErrUnknownBody = errors.New("unknown body")
	// ErrInvalidBody тело нельзя добавить в симуляцию
	ErrInvalidBody = errors.New("invalid body")
)

// Body вертикальная капсула, единственный динамический тип в симуляции
type Body struct {
	ID         string
	Position   mgl64.Vec3 // Центр капсулы
	Velocity   mgl64.Vec3
	Mass       float64
	Radius     float64
	HalfHeight float64
	Grounded   bool // Касалась плоскости на последнем шаге
}

// Plane статическая бесконечная плоскость: точки x с n·x = Offset
type Plane struct {
	ID     string
	Normal mgl64.Vec3 // Единичная
	Offset float64
}

// NewPlane нормализует нормаль; offset задается вдоль исходной нормали
func NewPlane(id string, normal mgl64.Vec3, offset float64) Plane {
	l := normal.Len()
	return Plane{ID: id, Normal: normal.Mul(1 / l), Offset: offset / l}
}

// PlaneThrough плоскость, проходящая через точку
func PlaneThrough(id string, point, normal mgl64.Vec3) Plane {
	n := normal.Normalize()
	return Plane{ID: id, Normal: n, Offset: n.Dot(point)}
}

// Distance знаковое расстояние от точки до плоскости
func (p Plane) Distance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) - p.Offset
}

// Hit результат сферического луча
type Hit struct {
	Hit      bool
	PlaneID  string
	Normal   mgl64.Vec3
	Point    mgl64.Vec3 // Точка касания на плоскости
	Distance float64    // Путь центра сферы до касания
}

// Config параметры симуляции
type Config struct {
	Gravity       mgl64.Vec3
	LinearDamping float64 // Затухание в воздухе, 1/с
	GroundDamping float64 // Затухание при контакте с плоскостью, 1/с
}

// DefaultConfig земная гравитация и торможение на земле
func DefaultConfig() Config {
	return Config{
		Gravity:       mgl64.Vec3{0, -9.81, 0},
		LinearDamping: 0,
		GroundDamping: 5,
	}
}
