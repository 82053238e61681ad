package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gaze-walk/backend/internal/adapter/in/ws"
)

var CLI struct {
	URL      string        `help:"WebSocket URL of the scene server." default:"ws://localhost:8080/ws"`
	ID       string        `help:"Bot name used in logs." default:"bot1"`
	Pattern  string        `help:"Movement pattern." enum:"random,circle,linear" default:"random"`
	Duration time.Duration `help:"How long the bot runs." default:"30s"`
	Rate     time.Duration `help:"Interval between headset updates." default:"100ms"`
	GazeHold time.Duration `help:"How long the bot keeps looking at the object each cycle." default:"3s"`
	Debug    bool          `help:"Whether to enable debug logging."`
}

// Bot имитирует гарнитуру: ходит по паттерну и периодически смотрит на объект
type Bot struct {
	ID       string
	URL      string
	Pattern  string
	Duration time.Duration
	Rate     time.Duration
	GazeHold time.Duration

	conn     *websocket.Conn
	writeMu  sync.Mutex // Мьютекс для синхронизации записи в WebSocket
	objectID string
	start    time.Time
	logger   zerolog.Logger

	Stats BotStats
}

// BotStats содержит статистику работы бота
type BotStats struct {
	mu             sync.Mutex
	MessagesSent   int
	FramesReceived int
	EngagedFrames  int
	Errors         int
	LastRTT        time.Duration
}

// NewBot создает нового бота
func NewBot(id, url, pattern string, duration, rate, gazeHold time.Duration) *Bot {
	if rate <= 0 {
		rate = 100 * time.Millisecond
	}
	if gazeHold <= 0 {
		gazeHold = 3 * time.Second
	}
	return &Bot{
		ID:       id,
		URL:      url,
		Pattern:  pattern,
		Duration: duration,
		Rate:     rate,
		GazeHold: gazeHold,
		start:    time.Now(),
		logger:   log.With().Str("bot", id).Logger(),
	}
}

// Connect подключается к серверу и ждет приветствия
func (b *Bot) Connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(b.URL, nil)
	if err != nil {
		return fmt.Errorf("ошибка подключения: %w", err)
	}
	b.conn = conn

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var info ws.InfoMessage
	if err := conn.ReadJSON(&info); err != nil {
		conn.Close()
		return fmt.Errorf("нет приветствия: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	b.objectID = info.ObjectID
	b.logger.Info().Str("client_id", info.ClientID).Str("object", info.ObjectID).Msg("подключен")
	return nil
}

// send потокобезопасно отправляет сообщение
func (b *Bot) send(msg ws.ClientMessage) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.conn.WriteJSON(msg); err != nil {
		b.Stats.mu.Lock()
		b.Stats.Errors++
		b.Stats.mu.Unlock()
		return err
	}
	b.Stats.mu.Lock()
	b.Stats.MessagesSent++
	b.Stats.mu.Unlock()
	return nil
}

// heading курс и оси ввода в зависимости от паттерна
func (b *Bot) heading() (yaw float64, input ws.InputPayload) {
	elapsed := time.Since(b.start).Seconds()
	switch b.Pattern {
	case "circle":
		// Постоянно идем вперед, медленно поворачивая голову
		return elapsed * 0.5, ws.InputPayload{Vertical: 1}
	case "linear":
		// Вперед-назад по одной оси
		return 0, ws.InputPayload{Vertical: math.Sin(elapsed * 0.3)}
	default:
		return rand.Float64() * 2 * math.Pi, ws.InputPayload{
			Horizontal: rand.Float64()*2 - 1,
			Vertical:   rand.Float64()*2 - 1,
			Primary:    rand.Float64() < 0.1,
		}
	}
}

// step отправляет ввод, ориентацию и взгляд
func (b *Bot) step() error {
	yaw, input := b.heading()
	q := mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0})

	if err := b.send(ws.ClientMessage{Type: ws.MessageTypeInput, Input: &input}); err != nil {
		return err
	}
	if err := b.send(ws.ClientMessage{Type: ws.MessageTypeCamera, Camera: &ws.CameraPayload{
		Orientation: [4]float64{q.V[0], q.V[1], q.V[2], q.W},
	}}); err != nil {
		return err
	}

	// Половину цикла смотрим на объект, половину мимо
	cycle := time.Since(b.start) % (2 * b.GazeHold)
	held := cycle < b.GazeHold
	object := b.objectID
	if !held {
		object = ""
	}
	return b.send(ws.ClientMessage{Type: ws.MessageTypeGaze, Gaze: &ws.GazePayload{Held: held, Object: object}})
}

// handleMessage обрабатывает входящие сообщения
func (b *Bot) handleMessage(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		b.logger.Warn().Err(err).Msg("ошибка разбора сообщения")
		return
	}

	switch envelope.Type {
	case ws.MessageTypeFrame:
		var frame ws.FrameMessage
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		b.Stats.mu.Lock()
		b.Stats.FramesReceived++
		if frame.GazeState == "engaged" {
			b.Stats.EngagedFrames++
		}
		b.Stats.mu.Unlock()
		b.logger.Debug().
			Floats64("position", frame.Player.Position[:]).
			Bool("grounded", frame.Player.Grounded).
			Str("gaze", frame.GazeState).
			Float64("volume", frame.Audio.Volume).
			Msg("кадр")

	case ws.MessageTypePong:
		var pong ws.PongMessage
		if err := json.Unmarshal(data, &pong); err == nil {
			rtt := time.Duration(float64(time.Now().UnixMilli())-pong.ClientTime) * time.Millisecond
			b.Stats.mu.Lock()
			b.Stats.LastRTT = rtt
			b.Stats.mu.Unlock()
		}

	case ws.MessageTypePointer:
		var pointer ws.PointerMessage
		if err := json.Unmarshal(data, &pointer); err == nil {
			b.logger.Info().Str("command", pointer.Command).Msg("указатель")
		}

	default:
		b.logger.Debug().Str("type", envelope.Type).Msg("сообщение")
	}
}

// Run запускает бота до истечения Duration или отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Connect(); err != nil {
		return err
	}
	defer b.conn.Close()

	ctx, cancel := context.WithTimeout(ctx, b.Duration)
	defer cancel()

	// Запускаем горутину для чтения сообщений
	go func() {
		defer cancel()
		for {
			_, data, err := b.conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					b.logger.Warn().Err(err).Msg("ошибка чтения сообщения")
				}
				return
			}
			b.handleMessage(data)
		}
	}()

	commandTicker := time.NewTicker(b.Rate)
	defer commandTicker.Stop()
	pingTicker := time.NewTicker(5 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("завершение работы")
			_ = b.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case <-pingTicker.C:
			if err := b.send(ws.ClientMessage{Type: ws.MessageTypePing, ClientTime: float64(time.Now().UnixMilli())}); err != nil {
				b.logger.Warn().Err(err).Msg("ошибка отправки ping")
			}
		case <-commandTicker.C:
			if err := b.step(); err != nil {
				b.logger.Warn().Err(err).Msg("ошибка отправки команды")
			}
		}
	}
}

// PrintStats выводит статистику бота
func (b *Bot) PrintStats() {
	b.Stats.mu.Lock()
	defer b.Stats.mu.Unlock()

	b.logger.Info().
		Dur("uptime", time.Since(b.start)).
		Int("sent", b.Stats.MessagesSent).
		Int("frames", b.Stats.FramesReceived).
		Int("engaged_frames", b.Stats.EngagedFrames).
		Int("errors", b.Stats.Errors).
		Dur("rtt", b.Stats.LastRTT).
		Msg("статистика")
}

func main() {
	kong.Parse(&CLI,
		kong.Name("gaze-walk-bot"),
		kong.Description("scripted headset client"),
		kong.UsageOnError())

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Обработка сигналов для корректного завершения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bot := NewBot(CLI.ID, CLI.URL, CLI.Pattern, CLI.Duration, CLI.Rate, CLI.GazeHold)
	if err := bot.Run(ctx); err != nil {
		log.Error().Err(err).Str("bot", bot.ID).Msg("ошибка")
		os.Exit(1)
	}

	// Выводим статистику
	bot.PrintStats()
}
