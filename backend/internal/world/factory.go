package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"gaze-walk/backend/internal/config"
)

// NewFromConfig собирает симуляцию и статический уровень из конфигурации
func NewFromConfig(cfg config.PhysicsConfig, logger zerolog.Logger) *Manager {
	m := NewManager(Config{
		Gravity:       mgl64.Vec3(cfg.Gravity),
		LinearDamping: cfg.LinearDamping,
		GroundDamping: cfg.GroundDamping,
	})

	log := logger.With().Str("component", "World").Logger()
	for _, pc := range cfg.Planes {
		p := NewPlane(pc.ID, mgl64.Vec3(pc.Normal), pc.Offset)
		m.AddPlane(p)
		log.Info().
			Str("plane", p.ID).
			Floats64("normal", p.Normal[:]).
			Float64("offset", p.Offset).
			Msg("плоскость уровня создана")
	}

	return m
}
