package headset

import (
	"github.com/go-gl/mathgl/mgl64"

	"gaze-walk/backend/internal/core/domain/entity"
)

// InputPort источник намерения движения
type InputPort interface {
	// InputState возвращает последнее состояние осей и основного действия
	InputState() entity.InputState
}

// CameraPort ориентация камеры (головы), задает направление движения
type CameraPort interface {
	Orientation() mgl64.Quat
}

// GazePort непрерывные запросы к подсистеме взгляда
type GazePort interface {
	IsFocusHeld() bool
	FocusedObject() entity.ObjectID
}

// FocusEvents очередь событий смены фокуса.
// Опрашивается один раз за кадр рендера, каждое событие отдается ровно один раз.
type FocusEvents interface {
	PollFocusChanges() []entity.FocusChange
}

// PointerPort команды указателю взгляда
type PointerPort interface {
	ShowPointer()
	ClearHighlight()
}
