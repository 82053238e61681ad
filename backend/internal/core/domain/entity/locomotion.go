package entity

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Мировые оси (левосторонняя система: Y вверх, Z вперед)
var (
	Up      = mgl64.Vec3{0, 1, 0}
	Down    = mgl64.Vec3{0, -1, 0}
	Forward = mgl64.Vec3{0, 0, 1}
	Right   = mgl64.Vec3{1, 0, 0}
)

// MovementIntent двухосевое намерение движения игрока за один физический тик
type MovementIntent struct {
	X float64 // Стрейф, [-1, 1]
	Y float64 // Вперед/назад, [-1, 1]
}

// InputState сырое состояние устройства ввода
type InputState struct {
	Horizontal  float64
	Vertical    float64
	PrimaryHeld bool // Основное действие (кнопка/триггер) зажато
}

// ResolveIntent превращает состояние ввода в намерение движения.
// Зажатое основное действие всегда означает полный ход вперед.
func ResolveIntent(in InputState) MovementIntent {
	if in.PrimaryHeld {
		return MovementIntent{X: 0, Y: 1}
	}
	return MovementIntent{
		X: mgl64.Clamp(in.Horizontal, -1, 1),
		Y: mgl64.Clamp(in.Vertical, -1, 1),
	}
}

// IsIdle сообщает, что обе оси в пределах eps от нуля
func (m MovementIntent) IsIdle(eps float64) bool {
	return abs(m.X) <= eps && abs(m.Y) <= eps
}

// GroundState результат проверки опоры, живет один физический тик
type GroundState struct {
	ContactNormal mgl64.Vec3
	IsGrounded    bool
}

// Airborne состояние без опоры: нормаль равна мировому "вверх"
func Airborne() GroundState {
	return GroundState{ContactNormal: Up, IsGrounded: false}
}

// LocomotionParams параметры передвижения, задаются при инициализации сцены
type LocomotionParams struct {
	GroundCheckDistance         float64
	StickToGroundHelperDistance float64
	CurrentTargetSpeed          float64
	ColliderRadius              float64
	ColliderHalfHeight          float64
}

// CastDistance длина сферического луча вниз от центра капсулы
func (p LocomotionParams) CastDistance(extra float64) float64 {
	return (p.ColliderHalfHeight - p.ColliderRadius) + extra
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
