package service

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"

	"gaze-walk/backend/internal/core/domain/entity"
	"gaze-walk/backend/internal/core/port/in/headset"
	"gaze-walk/backend/internal/core/port/out/presentation"
)

// RandomSource источник равномерных чисел в [0, 1)
type RandomSource interface {
	Float64() float64
}

// GazeParams параметры реакции объекта на взгляд
type GazeParams struct {
	ObjectID         entity.ObjectID
	BaseScale        mgl64.Vec3
	EngagedScale     float64 // Множитель базового размера при удержании взгляда
	IdleScale        float64 // Множитель базового размера в покое
	EmissiveGain     float64
	InitialColor     colorful.Color
	EngagedVolume    float64
	IdleVolume       float64
	RestartOnEngaged bool // Перезапускать звук с нуля, если он не играет
}

// DefaultGazeParams значения по умолчанию: 4x при взгляде, 2x в покое
func DefaultGazeParams(objectID entity.ObjectID) GazeParams {
	return GazeParams{
		ObjectID:         objectID,
		BaseScale:        mgl64.Vec3{1, 1, 1},
		EngagedScale:     4,
		IdleScale:        2,
		EmissiveGain:     1.5,
		EngagedVolume:    1,
		IdleVolume:       0,
		RestartOnEngaged: true,
	}
}

// GazeInteractionStateMachine управляет масштабом, частицами, звуком
// интерактивного объекта и цветом окружающей поверхности
type GazeInteractionStateMachine struct {
	params    GazeParams
	gaze      headset.GazePort
	events    headset.FocusEvents
	pointer   headset.PointerPort
	visual    presentation.ObjectVisual
	particles presentation.ParticleEmitter
	audio     presentation.AudioSource
	surface   presentation.SurfacePaint
	rng       RandomSource
	logger    zerolog.Logger

	current  entity.GazeState
	object   entity.InteractiveObjectState
	ambient  entity.AmbientSurfaceState
	restarts uint64
}

// NewGazeInteractionStateMachine создает машину состояний. Текущий масштаб
// и громкость читаются из коллабораторов один раз.
func NewGazeInteractionStateMachine(
	params GazeParams,
	gaze headset.GazePort,
	events headset.FocusEvents,
	pointer headset.PointerPort,
	visual presentation.ObjectVisual,
	particles presentation.ParticleEmitter,
	audio presentation.AudioSource,
	surface presentation.SurfacePaint,
	rng RandomSource,
	logger zerolog.Logger,
) *GazeInteractionStateMachine {
	m := &GazeInteractionStateMachine{
		params:    params,
		gaze:      gaze,
		events:    events,
		pointer:   pointer,
		visual:    visual,
		particles: particles,
		audio:     audio,
		surface:   surface,
		rng:       rng,
		logger:    logger.With().Str("component", "GazeMachine").Logger(),
		current:   entity.Idle,
	}

	m.object = entity.InteractiveObjectState{
		CurrentScale:  visual.Scale(),
		TargetScale:   params.BaseScale.Mul(params.IdleScale),
		CurrentVolume: audio.Volume(),
		TargetVolume:  params.IdleVolume,
		DesiredColor:  params.InitialColor,
	}
	m.ambient = entity.AmbientSurfaceState{
		CurrentColor: surface.Color(),
		TargetColor:  params.InitialColor,
	}

	return m
}

// Update выполняет один кадр рендера
func (m *GazeInteractionStateMachine) Update(deltaTime time.Duration) {
	for _, change := range m.events.PollFocusChanges() {
		m.onFocusChanged(change)
	}

	t := mgl64.Clamp(deltaTime.Seconds(), 0, 1)

	m.updateAmbient(t)

	if m.gaze.IsFocusHeld() && m.gaze.FocusedObject() == m.params.ObjectID {
		m.engaged(t)
	} else {
		m.idle(t)
	}
}

// onFocusChanged выбирает новый цвет, когда взгляд захватил объект
func (m *GazeInteractionStateMachine) onFocusChanged(change entity.FocusChange) {
	if !change.Held || change.Object != m.params.ObjectID {
		return
	}

	redOrBlue := m.rng.Float64()
	green := m.rng.Float64()
	m.object.DesiredColor = entity.NewDesiredColor(redOrBlue, green)
	m.ambient.TargetColor = m.object.DesiredColor

	m.pointer.ShowPointer()
	m.pointer.ClearHighlight()

	m.logger.Debug().
		Str("object", string(change.Object)).
		Str("color", m.object.DesiredColor.Hex()).
		Msg("focus acquired, new color")
}

func (m *GazeInteractionStateMachine) updateAmbient(t float64) {
	current := m.surface.Color()
	m.ambient.CurrentColor = current
	if current == m.object.DesiredColor {
		return
	}

	next := current.BlendRgb(m.object.DesiredColor, t)
	m.surface.SetColor(next)
	m.surface.SetEmissive(entity.ScaleColor(next, m.params.EmissiveGain))
	m.ambient.CurrentColor = next
}

func (m *GazeInteractionStateMachine) engaged(t float64) {
	if m.current != entity.Engaged {
		m.logger.Debug().Msg("engaged")
	}
	m.current = entity.Engaged

	m.object.TargetScale = m.params.BaseScale.Mul(m.params.EngagedScale)
	m.object.CurrentScale = entity.LerpVec3(m.object.CurrentScale, m.object.TargetScale, t)
	m.visual.SetScale(m.object.CurrentScale)

	m.object.EmissionEnabled = true
	m.particles.SetEmission(true, m.object.DesiredColor)

	m.object.TargetVolume = m.params.EngagedVolume
	m.object.CurrentVolume = entity.Lerp(m.object.CurrentVolume, m.object.TargetVolume, t)
	m.audio.SetVolume(m.object.CurrentVolume)

	if m.params.RestartOnEngaged && !m.audio.IsPlaying() {
		m.audio.SetTime(0)
		m.audio.Play()
		m.restarts++
	}
}

// idle оставляет звук играть на нулевой громкости, чтобы не было щелчков при рестарте
func (m *GazeInteractionStateMachine) idle(t float64) {
	if m.current != entity.Idle {
		m.logger.Debug().Msg("idle")
	}
	m.current = entity.Idle

	m.object.TargetScale = m.params.BaseScale.Mul(m.params.IdleScale)
	m.object.CurrentScale = entity.LerpVec3(m.object.CurrentScale, m.object.TargetScale, t)
	m.visual.SetScale(m.object.CurrentScale)

	m.object.EmissionEnabled = false
	m.particles.SetEmission(false, m.object.DesiredColor)

	m.object.TargetVolume = m.params.IdleVolume
	m.object.CurrentVolume = entity.Lerp(m.object.CurrentVolume, m.object.TargetVolume, t)
	m.audio.SetVolume(m.object.CurrentVolume)
}

// State текущее состояние машины
func (m *GazeInteractionStateMachine) State() entity.GazeState {
	return m.current
}

// Object снимок состояния интерактивного объекта
func (m *GazeInteractionStateMachine) Object() entity.InteractiveObjectState {
	return m.object
}

// Ambient снимок состояния окружающей поверхности
func (m *GazeInteractionStateMachine) Ambient() entity.AmbientSurfaceState {
	return m.ambient
}

// Restarts сколько раз звук перезапускался с нуля
func (m *GazeInteractionStateMachine) Restarts() uint64 {
	return m.restarts
}
