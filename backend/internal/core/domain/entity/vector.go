package entity

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// normalizeEpsilon ниже этой длины вектор считается нулевым
const normalizeEpsilon = 1e-5

// ProjectOnPlane проецирует v на плоскость с нормалью normal.
// Нормаль не обязана быть единичной; нулевая нормаль возвращает v без изменений.
func ProjectOnPlane(v, normal mgl64.Vec3) mgl64.Vec3 {
	sqrLen := normal.Dot(normal)
	if sqrLen < math.SmallestNonzeroFloat64 {
		return v
	}
	return v.Sub(normal.Mul(v.Dot(normal) / sqrLen))
}

// SafeNormalize нормализует вектор, для почти нулевого вектора возвращает ноль
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l <= normalizeEpsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// AngleDeg угол между векторами в градусах, [0, 180]
func AngleDeg(a, b mgl64.Vec3) float64 {
	denom := math.Sqrt(a.Dot(a) * b.Dot(b))
	if denom < 1e-15 {
		return 0
	}
	cos := mgl64.Clamp(a.Dot(b)/denom, -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}

// LerpVec3 линейная интерполяция, t зажимается в [0, 1]
func LerpVec3(from, to mgl64.Vec3, t float64) mgl64.Vec3 {
	t = mgl64.Clamp(t, 0, 1)
	return from.Add(to.Sub(from).Mul(t))
}

// Lerp скалярная интерполяция, t зажимается в [0, 1]
func Lerp(from, to, t float64) float64 {
	t = mgl64.Clamp(t, 0, 1)
	return from + (to-from)*t
}
