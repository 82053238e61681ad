package physics

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnknownBody движок не знает тело с указанным ID
var ErrUnknownBody = errors.New("unknown body")

// PhysicsPort определяет интерфейс для взаимодействия с физическим движком
type PhysicsPort interface {
	// CreateBody создает динамическое тело (капсулу игрока) в симуляции
	CreateBody(ctx context.Context, req *CreateBodyRequest) (*CreateBodyResponse, error)

	// SphereCast пускает сферу вдоль направления и возвращает первое попадание
	SphereCast(ctx context.Context, req *SphereCastRequest) (*SphereCastResponse, error)

	// GetBodyState получает текущее состояние тела
	GetBodyState(ctx context.Context, req *GetBodyStateRequest) (*GetBodyStateResponse, error)

	// ApplyImpulse применяет мгновенный импульс к телу
	ApplyImpulse(ctx context.Context, req *ApplyImpulseRequest) (*ApplyImpulseResponse, error)

	// SetVelocity перезаписывает линейную скорость тела
	SetVelocity(ctx context.Context, req *SetVelocityRequest) (*SetVelocityResponse, error)

	// Step продвигает симуляцию на dt секунд
	Step(ctx context.Context, req *StepRequest) (*StepResponse, error)

	// Close закрывает соединение с физическим движком
	Close() error
}

// Структуры запросов и ответов для порта физики.
// JSON-теги нужны gRPC-адаптеру, который гоняет их по сети как есть.

// CreateBodyRequest представляет запрос на создание тела
type CreateBodyRequest struct {
	ID         string     `json:"id"`
	Position   mgl64.Vec3 `json:"position"`
	Mass       float64    `json:"mass"`
	Radius     float64    `json:"radius"`
	HalfHeight float64    `json:"half_height"`
}

// CreateBodyResponse представляет ответ на создание тела
type CreateBodyResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SphereCastRequest представляет запрос сферического луча
type SphereCastRequest struct {
	Origin      mgl64.Vec3 `json:"origin"`
	Radius      float64    `json:"radius"`
	Direction   mgl64.Vec3 `json:"direction"`
	MaxDistance float64    `json:"max_distance"`
}

// SphereCastResponse представляет результат сферического луча
type SphereCastResponse struct {
	Hit      bool       `json:"hit"`
	Normal   mgl64.Vec3 `json:"normal"`
	Point    mgl64.Vec3 `json:"point"`
	Distance float64    `json:"distance"`
}

// GetBodyStateRequest представляет запрос на получение состояния тела
type GetBodyStateRequest struct {
	ID string `json:"id"`
}

// GetBodyStateResponse представляет ответ с состоянием тела
type GetBodyStateResponse struct {
	ID       string     `json:"id"`
	Position mgl64.Vec3 `json:"position"`
	Velocity mgl64.Vec3 `json:"velocity"`
	Mass     float64    `json:"mass"`
}

// ApplyImpulseRequest представляет запрос на применение импульса
type ApplyImpulseRequest struct {
	ID      string     `json:"id"`
	Impulse mgl64.Vec3 `json:"impulse"`
}

// ApplyImpulseResponse представляет ответ на применение импульса
type ApplyImpulseResponse struct {
	Status string `json:"status"`
}

// SetVelocityRequest представляет запрос на установку скорости
type SetVelocityRequest struct {
	ID       string     `json:"id"`
	Velocity mgl64.Vec3 `json:"velocity"`
}

// SetVelocityResponse представляет ответ на установку скорости
type SetVelocityResponse struct {
	Status string `json:"status"`
}

// StepRequest представляет запрос шага симуляции
type StepRequest struct {
	DeltaSeconds float64 `json:"delta_seconds"`
}

// StepResponse представляет ответ шага симуляции
type StepResponse struct {
	Bodies int `json:"bodies"`
}
