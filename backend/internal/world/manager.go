package world

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Manager хранит тела и плоскости уровня и продвигает симуляцию.
// Безопасен для конкурентного доступа: gRPC-сервер вызывает его из разных горутин.
type Manager struct {
	bodies map[string]*Body
	planes []Plane
	config Config
	mu     sync.RWMutex
}

func NewManager(config Config) *Manager {
	return &Manager{
		bodies: make(map[string]*Body),
		config: config,
	}
}

// AddPlane добавляет статическую плоскость
func (m *Manager) AddPlane(p Plane) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planes = append(m.planes, p)
}

// Planes возвращает копию списка плоскостей
func (m *Manager) Planes() []Plane {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Plane(nil), m.planes...)
}

// AddBody регистрирует тело; тело с тем же ID заменяется (респаун)
func (m *Manager) AddBody(b Body) error {
	if b.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidBody)
	}
	if b.Mass <= 0 || b.Radius <= 0 || b.HalfHeight < b.Radius {
		return fmt.Errorf("%w: %s mass=%v radius=%v half_height=%v", ErrInvalidBody, b.ID, b.Mass, b.Radius, b.HalfHeight)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	body := b
	m.bodies[b.ID] = &body
	return nil
}

// GetBody возвращает копию состояния тела
func (m *Manager) GetBody(id string) (Body, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, exists := m.bodies[id]
	if !exists {
		return Body{}, false
	}
	return *b, true
}

// GetAllBodies возвращает копии всех тел, отсортированные по ID
func (m *Manager) GetAllBodies() []Body {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Body, 0, len(m.bodies))
	for _, b := range m.bodies {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ApplyImpulse мгновенно меняет скорость на impulse/mass
func (m *Manager) ApplyImpulse(id string, impulse mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.bodies[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	b.Velocity = b.Velocity.Add(impulse.Mul(1 / b.Mass))
	return nil
}

// SetVelocity перезаписывает линейную скорость
func (m *Manager) SetVelocity(id string, velocity mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.bodies[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	b.Velocity = velocity
	return nil
}

// SphereCast ведет сферу радиуса radius из origin вдоль direction и
// возвращает ближайшую плоскость. Плоскости, которые сфера уже пересекает
// в начальной точке, игнорируются.
func (m *Manager) SphereCast(origin mgl64.Vec3, radius float64, direction mgl64.Vec3, maxDistance float64) Hit {
	l := direction.Len()
	if l < 1e-9 || maxDistance < 0 {
		return Hit{}
	}
	dir := direction.Mul(1 / l)

	m.mu.RLock()
	defer m.mu.RUnlock()

	best := Hit{Distance: math.Inf(1)}
	for _, p := range m.planes {
		start := p.Distance(origin)
		if start < radius {
			continue
		}
		approach := p.Normal.Dot(dir)
		if approach >= 0 {
			continue
		}
		t := (start - radius) / -approach
		if t > maxDistance || t >= best.Distance {
			continue
		}
		center := origin.Add(dir.Mul(t))
		best = Hit{
			Hit:      true,
			PlaneID:  p.ID,
			Normal:   p.Normal,
			Point:    center.Sub(p.Normal.Mul(radius)),
			Distance: t,
		}
	}

	if !best.Hit {
		return Hit{}
	}
	return best
}

// Step интегрирует скорости и выталкивает капсулы из плоскостей.
// Возвращает число тел в симуляции.
func (m *Manager) Step(dt float64) int {
	if dt <= 0 {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.bodies)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bodies {
		b.Velocity = b.Velocity.Add(m.config.Gravity.Mul(dt))

		damping := m.config.LinearDamping
		if b.Grounded {
			damping = m.config.GroundDamping
		}
		b.Velocity = b.Velocity.Mul(math.Max(0, 1-damping*dt))

		b.Position = b.Position.Add(b.Velocity.Mul(dt))
		b.Grounded = m.resolveContacts(b)
	}

	return len(m.bodies)
}

// resolveContacts выталкивает капсулу из плоскостей и гасит скорость внутрь них
func (m *Manager) resolveContacts(b *Body) bool {
	grounded := false
	segment := b.HalfHeight - b.Radius

	for _, p := range m.planes {
		// Ближайшая к плоскости точка оси капсулы смещена на segment вдоль вертикали
		reach := b.Radius + segment*math.Abs(p.Normal.Y())
		penetration := reach - p.Distance(b.Position)
		if penetration < -contactSlop {
			continue
		}

		if penetration > 0 {
			b.Position = b.Position.Add(p.Normal.Mul(penetration))
		}
		if into := b.Velocity.Dot(p.Normal); into < 0 {
			b.Velocity = b.Velocity.Sub(p.Normal.Mul(into))
		}
		grounded = true
	}

	return grounded
}

// contactSlop зазор, в пределах которого тело считается касающимся плоскости
const contactSlop = 1e-3
