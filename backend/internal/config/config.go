package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"gaze-walk/backend/internal/core/domain/entity"
)

// ErrInvalidConfig конфигурация не проходит проверку
var ErrInvalidConfig = errors.New("invalid config")

// Config вся конфигурация процесса
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Ticker      TickerConfig      `yaml:"ticker"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Player      PlayerConfig      `yaml:"player"`
	Interactive InteractiveConfig `yaml:"interactive"`
	Ambient     AmbientConfig     `yaml:"ambient"`
	Audio       AudioConfig       `yaml:"audio"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig HTTP/WebSocket сервер для гарнитуры
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadLimit      int64         `yaml:"read_limit"`
	FrameEveryTick int           `yaml:"frame_every_tick"` // Кадр клиенту раз в N тиков рендера
}

// TickerConfig частоты двух часов планировщика
type TickerConfig struct {
	PhysicsTPS    int           `yaml:"physics_tps"`
	RenderFPS     int           `yaml:"render_fps"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// PlaneConfig статическая плоскость уровня: n·x = offset
type PlaneConfig struct {
	ID     string     `yaml:"id"`
	Normal [3]float64 `yaml:"normal"`
	Offset float64    `yaml:"offset"`
}

// PhysicsConfig выбор физического движка и параметры локальной симуляции
type PhysicsConfig struct {
	Backend       string        `yaml:"backend"` // local | grpc
	Address       string        `yaml:"address"` // Адрес удаленного движка для backend=grpc
	Listen        string        `yaml:"listen"`  // Адрес, на котором команда physics отдает симуляцию
	CallTimeout   time.Duration `yaml:"call_timeout"`
	Gravity       [3]float64    `yaml:"gravity"`
	LinearDamping float64       `yaml:"linear_damping"`
	GroundDamping float64       `yaml:"ground_damping"`
	Planes        []PlaneConfig `yaml:"planes"`
}

// PlayerConfig тело игрока и параметры передвижения
type PlayerConfig struct {
	BodyID                      string     `yaml:"body_id"`
	Mass                        float64    `yaml:"mass"`
	Spawn                       [3]float64 `yaml:"spawn"`
	GroundCheckDistance         float64    `yaml:"ground_check_distance"`
	StickToGroundHelperDistance float64    `yaml:"stick_to_ground_helper_distance"`
	TargetSpeed                 float64    `yaml:"target_speed"`
	ColliderRadius              float64    `yaml:"collider_radius"`
	ColliderHalfHeight          float64    `yaml:"collider_half_height"`
}

// InteractiveConfig объект, реагирующий на взгляд
type InteractiveConfig struct {
	ObjectID         string     `yaml:"object_id"`
	BaseScale        [3]float64 `yaml:"base_scale"`
	EngagedScale     float64    `yaml:"engaged_scale"`
	IdleScale        float64    `yaml:"idle_scale"`
	EngagedVolume    float64    `yaml:"engaged_volume"`
	IdleVolume       float64    `yaml:"idle_volume"`
	RestartOnEngaged bool       `yaml:"restart_on_engaged"`
	InitialColor     string     `yaml:"initial_color"` // Цвет, к которому тянется поверхность до первого взгляда
	Seed             int64      `yaml:"seed"`          // 0 означает случайное зерно
}

// AmbientConfig поверхность, подхватывающая цвет объекта
type AmbientConfig struct {
	SurfaceID    string  `yaml:"surface_id"`
	InitialColor string  `yaml:"initial_color"`
	EmissiveGain float64 `yaml:"emissive_gain"`
}

// AudioConfig звуковой клип объекта
type AudioConfig struct {
	Clip       string        `yaml:"clip"` // Путь к WAV; пусто означает сгенерированный тон
	ToneHz     float64       `yaml:"tone_hz"`
	ClipLength time.Duration `yaml:"clip_length"`
	SampleRate int           `yaml:"sample_rate"`
	Loop       bool          `yaml:"loop"`
	Speaker    bool          `yaml:"speaker"` // Выводить звук на устройство хоста
}

// TelemetryConfig кольцевой буфер отсчетов
type TelemetryConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
}

// LogConfig логирование
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			WriteTimeout:   5 * time.Second,
			ReadLimit:      64 * 1024,
			FrameEveryTick: 2,
		},
		Ticker: TickerConfig{
			PhysicsTPS:    50,
			RenderFPS:     60,
			StatsInterval: 10 * time.Second,
		},
		Physics: PhysicsConfig{
			Backend:       "local",
			Address:       "localhost:50051",
			Listen:        ":50051",
			CallTimeout:   50 * time.Millisecond,
			Gravity:       [3]float64{0, -9.81, 0},
			LinearDamping: 0,
			GroundDamping: 5,
			Planes: []PlaneConfig{
				{ID: "floor", Normal: [3]float64{0, 1, 0}, Offset: 0},
			},
		},
		Player: PlayerConfig{
			BodyID:                      "player",
			Mass:                        10,
			Spawn:                       [3]float64{0, 1, 0},
			GroundCheckDistance:         0.01,
			StickToGroundHelperDistance: 0.5,
			TargetSpeed:                 8,
			ColliderRadius:              0.5,
			ColliderHalfHeight:          1,
		},
		Interactive: InteractiveConfig{
			ObjectID:         "orb",
			BaseScale:        [3]float64{1, 1, 1},
			EngagedScale:     4,
			IdleScale:        2,
			EngagedVolume:    1,
			IdleVolume:       0,
			RestartOnEngaged: true,
			InitialColor:     "#000000",
		},
		Ambient: AmbientConfig{
			SurfaceID:    "floor",
			InitialColor: "#ffffff",
			EmissiveGain: 1.5,
		},
		Audio: AudioConfig{
			ToneHz:     440,
			ClipLength: 2 * time.Second,
			SampleRate: 44100,
			Loop:       false,
		},
		Telemetry: TelemetryConfig{
			Enabled:    true,
			BufferSize: 1000,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load накладывает yaml-файлы по порядку поверх значений по умолчанию
func Load(paths ...string) (*Config, error) {
	cfg := Default()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal сериализует конфигурацию обратно в yaml
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate проверяет значения, без которых сцена не запустится
func (c *Config) Validate() error {
	var problems []string

	if c.Ticker.PhysicsTPS <= 0 {
		problems = append(problems, "ticker.physics_tps must be positive")
	}
	if c.Ticker.RenderFPS <= 0 {
		problems = append(problems, "ticker.render_fps must be positive")
	}
	switch c.Physics.Backend {
	case "local":
	case "grpc":
		if c.Physics.Address == "" {
			problems = append(problems, "physics.address is required for grpc backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("physics.backend %q is not local or grpc", c.Physics.Backend))
	}
	for _, p := range c.Physics.Planes {
		if mgl64.Vec3(p.Normal).Len() == 0 {
			problems = append(problems, fmt.Sprintf("physics.planes[%s] has zero normal", p.ID))
		}
	}
	if c.Player.BodyID == "" {
		problems = append(problems, "player.body_id is empty")
	}
	if c.Player.Mass <= 0 {
		problems = append(problems, "player.mass must be positive")
	}
	if c.Player.TargetSpeed < 0 {
		problems = append(problems, "player.target_speed must not be negative")
	}
	if c.Player.ColliderRadius <= 0 {
		problems = append(problems, "player.collider_radius must be positive")
	}
	if c.Player.ColliderHalfHeight < c.Player.ColliderRadius {
		problems = append(problems, "player.collider_half_height must be at least the radius")
	}
	if c.Interactive.ObjectID == "" {
		problems = append(problems, "interactive.object_id is empty")
	}
	if _, err := colorful.Hex(c.Interactive.InitialColor); err != nil {
		problems = append(problems, fmt.Sprintf("interactive.initial_color: %v", err))
	}
	if _, err := colorful.Hex(c.Ambient.InitialColor); err != nil {
		problems = append(problems, fmt.Sprintf("ambient.initial_color: %v", err))
	}
	if c.Audio.SampleRate <= 0 {
		problems = append(problems, "audio.sample_rate must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// PhysicsStep фиксированный шаг физики
func (c *Config) PhysicsStep() time.Duration {
	return time.Second / time.Duration(c.Ticker.PhysicsTPS)
}

// RenderStep шаг кадра рендера
func (c *Config) RenderStep() time.Duration {
	return time.Second / time.Duration(c.Ticker.RenderFPS)
}

// Locomotion параметры контроллера передвижения
func (p PlayerConfig) Locomotion() entity.LocomotionParams {
	return entity.LocomotionParams{
		GroundCheckDistance:         p.GroundCheckDistance,
		StickToGroundHelperDistance: p.StickToGroundHelperDistance,
		CurrentTargetSpeed:          p.TargetSpeed,
		ColliderRadius:              p.ColliderRadius,
		ColliderHalfHeight:          p.ColliderHalfHeight,
	}
}

// SpawnPosition точка появления игрока
func (p PlayerConfig) SpawnPosition() mgl64.Vec3 {
	return mgl64.Vec3(p.Spawn)
}

// Color начальный цвет поверхности; Validate уже проверил формат
func (a AmbientConfig) Color() colorful.Color {
	c, err := colorful.Hex(a.InitialColor)
	if err != nil {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	return c
}

// Color начальный желаемый цвет объекта
func (i InteractiveConfig) Color() colorful.Color {
	c, err := colorful.Hex(i.InitialColor)
	if err != nil {
		return colorful.Color{}
	}
	return c
}
