package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clock часы, на которых выполняется система
type Clock int

const (
	ClockPhysics Clock = iota // Фиксированный шаг, аналог FixedUpdate
	ClockRender               // Шаг кадра, аналог Update
)

func (c Clock) String() string {
	if c == ClockRender {
		return "render"
	}
	return "physics"
}

// TickSystem интерфейс для всех игровых систем
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // Приоритет выполнения (меньше = раньше)
}

// clockState состояние одних часов
type clockState struct {
	step         time.Duration
	systems      []TickSystem
	tickCount    uint64
	lastTickTime time.Time
	skippedTicks uint64
}

// GameTicker основной менеджер игрового цикла. Физика и рендер тикают
// в одной горутине, поэтому системы никогда не выполняются одновременно.
type GameTicker struct {
	physics clockState
	render  clockState

	maxTickTime      time.Duration // Максимальное время на один физический тик
	warningThreshold time.Duration

	// Состояние
	mu        sync.RWMutex
	isRunning bool
	isPaused  bool
	startTime time.Time

	// Мониторинг производительности
	perfMonitor *PerformanceMonitor

	// Метрики
	averageTickTime time.Duration
	maxObservedTick time.Duration

	// Управление
	cancel    context.CancelFunc
	pauseChan chan bool
	done      chan struct{}

	logger zerolog.Logger
}

// NewGameTicker создает тикер с частотой физики physicsTPS и кадров renderFPS
func NewGameTicker(physicsTPS, renderFPS int, logger zerolog.Logger) *GameTicker {
	if physicsTPS <= 0 {
		physicsTPS = 50
	}
	if renderFPS <= 0 {
		renderFPS = 60
	}

	physicsStep := time.Second / time.Duration(physicsTPS)
	renderStep := time.Second / time.Duration(renderFPS)

	return &GameTicker{
		physics:          clockState{step: physicsStep},
		render:           clockState{step: renderStep},
		maxTickTime:      physicsStep * 2, // Максимум в 2 раза больше целевого времени
		warningThreshold: physicsStep / 2, // Предупреждение при 50% от времени тика
		perfMonitor:      NewPerformanceMonitor(50, physicsStep/4),
		pauseChan:        make(chan bool, 1),
		logger:           logger.With().Str("component", "GameTicker").Logger(),
	}
}

// Start запускает игровой цикл; он остановится при отмене ctx или вызове Stop
func (gt *GameTicker) Start(ctx context.Context) error {
	gt.mu.Lock()
	defer gt.mu.Unlock()

	if gt.isRunning {
		return nil // Уже запущен
	}

	ctx, gt.cancel = context.WithCancel(ctx)
	gt.done = make(chan struct{})
	gt.isRunning = true
	gt.startTime = time.Now()
	gt.physics.lastTickTime = gt.startTime
	gt.render.lastTickTime = gt.startTime

	gt.logger.Info().
		Dur("physics_step", gt.physics.step).
		Dur("render_step", gt.render.step).
		Msg("запуск игрового цикла")

	go gt.gameLoop(ctx)

	return nil
}

// Stop останавливает игровой цикл и ждет выхода из него
func (gt *GameTicker) Stop() {
	gt.mu.Lock()
	if !gt.isRunning {
		gt.mu.Unlock()
		return
	}
	cancel, done := gt.cancel, gt.done
	gt.mu.Unlock()

	cancel()
	<-done

	gt.logger.Info().
		Uint64("physics_ticks", gt.PhysicsTickCount()).
		Uint64("render_ticks", gt.RenderTickCount()).
		Msg("игровой цикл остановлен")
}

// Pause приостанавливает или возобновляет цикл
func (gt *GameTicker) Pause(pause bool) {
	select {
	case gt.pauseChan <- pause:
	default:
		// Предыдущая команда еще не забрана; последняя побеждает
		select {
		case <-gt.pauseChan:
		default:
		}
		gt.pauseChan <- pause
	}
}

// RegisterPhysicsSystem добавляет систему на фиксированный шаг
func (gt *GameTicker) RegisterPhysicsSystem(system TickSystem) {
	gt.registerSystem(&gt.physics, ClockPhysics, system)
}

// RegisterRenderSystem добавляет систему на шаг кадра
func (gt *GameTicker) RegisterRenderSystem(system TickSystem) {
	gt.registerSystem(&gt.render, ClockRender, system)
}

func (gt *GameTicker) registerSystem(clock *clockState, kind Clock, system TickSystem) {
	gt.mu.Lock()
	defer gt.mu.Unlock()

	// Добавляем систему
	clock.systems = append(clock.systems, system)

	// Сортируем по приоритету (меньше = выше приоритет)
	for i := len(clock.systems) - 1; i > 0; i-- {
		if clock.systems[i].GetPriority() < clock.systems[i-1].GetPriority() {
			clock.systems[i], clock.systems[i-1] = clock.systems[i-1], clock.systems[i]
		} else {
			break
		}
	}

	// Инициализируем метрики для системы
	gt.perfMonitor.initSystemMetrics(system.GetName())

	gt.logger.Info().
		Str("system", system.GetName()).
		Str("clock", kind.String()).
		Int("priority", system.GetPriority()).
		Msg("зарегистрирована система")
}

// gameLoop основной игровой цикл
func (gt *GameTicker) gameLoop(ctx context.Context) {
	defer close(gt.done)
	defer func() {
		gt.mu.Lock()
		gt.isRunning = false
		gt.mu.Unlock()
	}()

	physicsTicker := time.NewTicker(gt.physics.step)
	defer physicsTicker.Stop()
	renderTicker := time.NewTicker(gt.render.step)
	defer renderTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case pause := <-gt.pauseChan:
			gt.setPaused(pause)
			// Ждем команды возобновления
			for pause {
				select {
				case <-ctx.Done():
					return
				case pause = <-gt.pauseChan:
					gt.setPaused(pause)
				}
			}
			// После паузы не выдаем огромный dt
			now := time.Now()
			gt.mu.Lock()
			gt.physics.lastTickTime = now
			gt.render.lastTickTime = now
			gt.mu.Unlock()

		case tickTime := <-physicsTicker.C:
			gt.executeTick(ClockPhysics, tickTime)

		case tickTime := <-renderTicker.C:
			gt.executeTick(ClockRender, tickTime)
		}
	}
}

func (gt *GameTicker) setPaused(pause bool) {
	gt.mu.Lock()
	gt.isPaused = pause
	gt.mu.Unlock()
	gt.logger.Info().Bool("paused", pause).Msg("пауза игрового цикла")
}

// executeTick выполняет один тик указанных часов.
// Физические системы всегда получают фиксированный шаг, рендер получает реальный dt.
func (gt *GameTicker) executeTick(kind Clock, tickTime time.Time) {
	tickStart := time.Now()

	gt.mu.Lock()
	clock := &gt.physics
	if kind == ClockRender {
		clock = &gt.render
	}
	deltaTime := tickTime.Sub(clock.lastTickTime)

	// Проверяем, не слишком ли большая задержка между тиками
	if deltaTime > clock.step*2 {
		clock.skippedTicks++
		gt.logger.Debug().
			Str("clock", kind.String()).
			Dur("delta", deltaTime).
			Dur("expected", clock.step).
			Msg("большая задержка между тиками")
	}

	clock.tickCount++
	clock.lastTickTime = tickTime
	systems := make([]TickSystem, len(clock.systems))
	copy(systems, clock.systems)
	step := clock.step
	gt.mu.Unlock()

	if kind == ClockPhysics {
		deltaTime = step
	}

	// Выполняем все системы
	for _, system := range systems {
		gt.executeSystem(system, deltaTime)
	}

	if kind == ClockPhysics {
		totalTickTime := time.Since(tickStart)
		gt.updateTickMetrics(totalTickTime)
		gt.checkPerformance(totalTickTime)
	}
}

// executeSystem выполняет одну систему с замером времени
func (gt *GameTicker) executeSystem(system TickSystem, deltaTime time.Duration) {
	systemStart := time.Now()
	systemName := system.GetName()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Error().Str("system", systemName).Interface("panic", r).Msg("критическая ошибка в системе")
			gt.perfMonitor.recordError(systemName)
		}
	}()

	// Выполняем систему
	err := system.Update(deltaTime)

	// Записываем метрики
	gt.perfMonitor.recordExecution(systemName, time.Since(systemStart))

	// Обрабатываем ошибки
	if err != nil {
		gt.logger.Warn().Err(err).Str("system", systemName).Msg("ошибка в системе")
		gt.perfMonitor.recordError(systemName)
	}
}

// PhysicsTickCount возвращает количество физических тиков
func (gt *GameTicker) PhysicsTickCount() uint64 {
	gt.mu.RLock()
	defer gt.mu.RUnlock()
	return gt.physics.tickCount
}

// RenderTickCount возвращает количество кадров
func (gt *GameTicker) RenderTickCount() uint64 {
	gt.mu.RLock()
	defer gt.mu.RUnlock()
	return gt.render.tickCount
}

// PerformanceMonitor монитор систем
func (gt *GameTicker) PerformanceMonitor() *PerformanceMonitor {
	return gt.perfMonitor
}

// GetStats возвращает статистику игрового цикла
func (gt *GameTicker) GetStats() map[string]interface{} {
	gt.mu.RLock()
	defer gt.mu.RUnlock()

	var uptime time.Duration
	if !gt.startTime.IsZero() {
		uptime = time.Since(gt.startTime)
	}
	var actualTPS, actualFPS float64
	if uptime > 0 {
		actualTPS = float64(gt.physics.tickCount) / uptime.Seconds()
		actualFPS = float64(gt.render.tickCount) / uptime.Seconds()
	}

	return map[string]interface{}{
		"target_tps":        int(time.Second / gt.physics.step),
		"target_fps":        int(time.Second / gt.render.step),
		"actual_tps":        actualTPS,
		"actual_fps":        actualFPS,
		"physics_ticks":     gt.physics.tickCount,
		"render_ticks":      gt.render.tickCount,
		"uptime_seconds":    uptime.Seconds(),
		"average_tick_time": gt.averageTickTime.String(),
		"max_observed_tick": gt.maxObservedTick.String(),
		"skipped_ticks":     gt.physics.skippedTicks + gt.render.skippedTicks,
		"is_running":        gt.isRunning,
		"is_paused":         gt.isPaused,
		"systems_count":     len(gt.physics.systems) + len(gt.render.systems),
		"systems":           gt.perfMonitor.GetSystemsStats(),
	}
}

func (gt *GameTicker) updateTickMetrics(tickTime time.Duration) {
	gt.mu.Lock()
	defer gt.mu.Unlock()

	if tickTime > gt.maxObservedTick {
		gt.maxObservedTick = tickTime
	}

	// Простое скользящее среднее
	if gt.averageTickTime == 0 {
		gt.averageTickTime = tickTime
	} else {
		gt.averageTickTime = (gt.averageTickTime*9 + tickTime) / 10
	}
}

func (gt *GameTicker) checkPerformance(tickTime time.Duration) {
	if tickTime > gt.maxTickTime {
		gt.logger.Warn().
			Dur("tick", tickTime).
			Dur("max", gt.maxTickTime).
			Msg("тик превысил максимальное время")
	} else if tickTime > gt.warningThreshold {
		gt.logger.Debug().Dur("tick", tickTime).Msg("медленный тик")
	}
}
