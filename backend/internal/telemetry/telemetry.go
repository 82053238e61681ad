package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// LocomotionSample состояние тела игрока после физического тика
type LocomotionSample struct {
	Timestamp      int64      `json:"timestamp"` // Время в миллисекундах
	Tick           uint64     `json:"tick"`
	Position       mgl64.Vec3 `json:"position"`
	Velocity       mgl64.Vec3 `json:"velocity"`
	Speed          float64    `json:"speed"` // Модуль скорости
	Grounded       bool       `json:"grounded"`
	ContactNormal  mgl64.Vec3 `json:"contact_normal"`
	ImpulseApplied bool       `json:"impulse_applied"`
	Stuck          bool       `json:"stuck"` // Скорость перезаписана прилипанием к земле
}

// GazeSample состояние интерактивного объекта после кадра
type GazeSample struct {
	Timestamp int64      `json:"timestamp"`
	Tick      uint64     `json:"tick"`
	State     string     `json:"state"`
	Scale     mgl64.Vec3 `json:"scale"`
	Volume    float64    `json:"volume"`
	Emitting  bool       `json:"emitting"`
	Restarts  uint64     `json:"restarts"`
}

// Snapshot содержимое буферов для /telemetry
type Snapshot struct {
	Locomotion []LocomotionSample `json:"locomotion"`
	Gaze       []GazeSample       `json:"gaze"`
	Counters   map[string]int     `json:"counters"`
}

// TelemetryManager управляет сбором и выводом телеметрии
type TelemetryManager struct {
	enabled    bool
	locomotion []LocomotionSample
	gaze       []GazeSample
	mutex      sync.RWMutex
	maxEntries int

	// Счетчики для статистики
	counters      map[string]int
	lastPrint     time.Time
	printInterval time.Duration

	logger zerolog.Logger
}

// NewTelemetryManager создает новый менеджер телеметрии
func NewTelemetryManager(enabled bool, maxEntries int, logger zerolog.Logger) *TelemetryManager {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &TelemetryManager{
		enabled:       enabled,
		maxEntries:    maxEntries,
		counters:      make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 2 * time.Second, // Сводка не чаще раза в 2 секунды
		logger:        logger.With().Str("component", "Telemetry").Logger(),
	}
}

// LogLocomotion записывает состояние тела
func (tm *TelemetryManager) LogLocomotion(sample LocomotionSample) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	if sample.Timestamp == 0 {
		sample.Timestamp = time.Now().UnixMilli()
	}
	sample.Speed = sample.Velocity.Len()

	tm.locomotion = appendBounded(tm.locomotion, sample, tm.maxEntries)

	// Обновляем счетчики
	tm.counters["locomotion"]++
	if sample.ImpulseApplied {
		tm.counters["impulse"]++
	}
	if sample.Stuck {
		tm.counters["stick_to_ground"]++
	}
	if !sample.Grounded {
		tm.counters["airborne"]++
	}
}

// LogGaze записывает состояние объекта
func (tm *TelemetryManager) LogGaze(sample GazeSample) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	if sample.Timestamp == 0 {
		sample.Timestamp = time.Now().UnixMilli()
	}

	tm.gaze = appendBounded(tm.gaze, sample, tm.maxEntries)
	tm.counters["gaze_"+sample.State]++
}

// appendBounded добавляет запись, вытесняя самую старую при переполнении
func appendBounded[T any](buf []T, v T, limit int) []T {
	buf = append(buf, v)
	if len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	return buf
}

// PrintSummary выводит сводку телеметрии не чаще printInterval
func (tm *TelemetryManager) PrintSummary(now time.Time) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled || now.Sub(tm.lastPrint) < tm.printInterval {
		return
	}

	event := tm.logger.Debug().
		Int("locomotion_samples", len(tm.locomotion)).
		Int("gaze_samples", len(tm.gaze))
	for key, count := range tm.counters {
		event = event.Int(key, count)
	}

	// Последнее состояние игрока
	if n := len(tm.locomotion); n > 0 {
		last := tm.locomotion[n-1]
		event = event.
			Floats64("position", last.Position[:]).
			Float64("speed", last.Speed).
			Bool("grounded", last.Grounded)
	}
	if n := len(tm.gaze); n > 0 {
		event = event.Str("gaze", tm.gaze[n-1].State)
	}
	event.Msg("сводка телеметрии")

	// Сброс счетчиков
	tm.counters = make(map[string]int)
	tm.lastPrint = now
}

// Snapshot копия буферов
func (tm *TelemetryManager) Snapshot() Snapshot {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	counters := make(map[string]int, len(tm.counters))
	for k, v := range tm.counters {
		counters[k] = v
	}
	return Snapshot{
		Locomotion: append([]LocomotionSample(nil), tm.locomotion...),
		Gaze:       append([]GazeSample(nil), tm.gaze...),
		Counters:   counters,
	}
}

// GetTelemetryJSON возвращает телеметрию в JSON формате
func (tm *TelemetryManager) GetTelemetryJSON() ([]byte, error) {
	return json.MarshalIndent(tm.Snapshot(), "", "  ")
}

// Enabled включена ли телеметрия
func (tm *TelemetryManager) Enabled() bool {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return tm.enabled
}

// SetEnabled включает/выключает телеметрию
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Info().Bool("enabled", enabled).Msg("телеметрия переключена")
}

// Clear очищает все данные телеметрии
func (tm *TelemetryManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.locomotion = nil
	tm.gaze = nil
	tm.counters = make(map[string]int)
	tm.logger.Info().Msg("данные телеметрии очищены")
}
