package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"

	"gaze-walk/backend/internal/core/port/out/presentation"
)

var (
	_ presentation.ObjectVisual    = &SceneState{}
	_ presentation.ParticleEmitter = &SceneState{}
	_ presentation.SurfacePaint    = &SceneState{}
)

func TestSceneState_VersionOnlyGrowsOnChange(t *testing.T) {
	s := NewSceneState("orb", "floor", mgl64.Vec3{1, 1, 1}, colorful.Color{R: 1, G: 1, B: 1})
	assert.Zero(t, s.Version())

	s.SetScale(mgl64.Vec3{1, 1, 1})
	s.SetColor(colorful.Color{R: 1, G: 1, B: 1})
	s.SetEmission(false, colorful.Color{})
	assert.Zero(t, s.Version())

	s.SetScale(mgl64.Vec3{2, 2, 2})
	s.SetEmission(true, colorful.Color{R: 0.3, G: 0.8, B: 0.7})
	s.SetColor(colorful.Color{R: 0.5})
	s.SetEmissive(colorful.Color{R: 0.75})
	assert.Equal(t, uint64(4), s.Version())
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, s.Scale())
	assert.Equal(t, colorful.Color{R: 0.5}, s.Color())
}

func TestSceneState_Snapshot(t *testing.T) {
	s := NewSceneState("orb", "floor", mgl64.Vec3{2, 2, 2}, colorful.Color{})
	s.SetEmission(true, colorful.Color{R: 1, G: 0, B: 0})
	s.SetColor(colorful.Color{R: 0, G: 1, B: 0})
	s.SetEmissive(colorful.Color{R: 0, G: 1.5, B: 0})

	snap := s.Snapshot()
	assert.Equal(t, "orb", snap.ObjectID)
	assert.Equal(t, "floor", snap.SurfaceID)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, snap.Scale)
	assert.True(t, snap.Emitting)
	assert.Equal(t, "#ff0000", snap.ParticleColor)
	assert.Equal(t, "#00ff00", snap.SurfaceColor)
	assert.Equal(t, [3]float64{0, 1.5, 0}, snap.SurfaceEmissive)
	assert.Equal(t, s.Version(), snap.Version)
}
