package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gaze-walk/backend/internal/core/domain/entity"
)

// maxPendingFocus сколько смен фокуса держим до следующего кадра рендера
const maxPendingFocus = 64

// Options настройки адаптера
type Options struct {
	ObjectID     entity.ObjectID // Сообщается клиенту в приветствии
	WriteTimeout time.Duration
	ReadLimit    int64
}

type client struct {
	id     string
	writer *SafeWriter
}

// WSAdapter принимает гарнитуры по WebSocket. Реализует порты ввода,
// камеры, взгляда, событий фокуса и указателя: последнее присланное
// любым клиентом состояние считается состоянием гарнитуры.
type WSAdapter struct {
	upgrader websocket.Upgrader
	handlers map[string]func(*client, *ClientMessage) error
	options  Options
	logger   zerolog.Logger

	clients   map[*client]bool // Для хранения активных клиентов
	clientsMu sync.Mutex       // Мьютекс для безопасного доступа к списку клиентов

	stateMu     sync.Mutex
	input       entity.InputState
	orientation mgl64.Quat
	held        bool
	focused     entity.ObjectID
	pending     []entity.FocusChange
	dropped     uint64
}

// NewWSAdapter создает новый экземпляр WSAdapter
func NewWSAdapter(options Options, logger zerolog.Logger) *WSAdapter {
	a := &WSAdapter{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		handlers:    make(map[string]func(*client, *ClientMessage) error),
		options:     options,
		logger:      logger.With().Str("component", "WSAdapter").Logger(),
		clients:     make(map[*client]bool),
		orientation: mgl64.QuatIdent(),
	}
	a.registerHandlers()
	return a
}

// registerHandlers регистрирует обработчики сообщений
func (a *WSAdapter) registerHandlers() {
	a.handlers[MessageTypeInput] = func(c *client, msg *ClientMessage) error {
		if msg.Input == nil {
			return fmt.Errorf("сообщение input без данных")
		}
		a.stateMu.Lock()
		a.input = entity.InputState{
			Horizontal:  safeValue(msg.Input.Horizontal, 0),
			Vertical:    safeValue(msg.Input.Vertical, 0),
			PrimaryHeld: msg.Input.Primary,
		}
		a.stateMu.Unlock()
		return nil
	}

	a.handlers[MessageTypeCamera] = func(c *client, msg *ClientMessage) error {
		if msg.Camera == nil {
			return fmt.Errorf("сообщение camera без данных")
		}
		o := msg.Camera.Orientation
		q := mgl64.Quat{W: safeValue(o[3], 0), V: safeVec(mgl64.Vec3{o[0], o[1], o[2]})}
		if q.Len() < 1e-9 {
			return fmt.Errorf("нулевой кватернион камеры")
		}
		a.stateMu.Lock()
		a.orientation = q.Normalize()
		a.stateMu.Unlock()
		return nil
	}

	a.handlers[MessageTypeGaze] = func(c *client, msg *ClientMessage) error {
		if msg.Gaze == nil {
			return fmt.Errorf("сообщение gaze без данных")
		}
		a.applyGaze(msg.Gaze.Held, entity.ObjectID(msg.Gaze.Object))
		return nil
	}

	// Обработчик ping-сообщений
	a.handlers[MessageTypePing] = func(c *client, msg *ClientMessage) error {
		return c.writer.Send(NewPongMessage(msg.ClientTime))
	}
}

// applyGaze обновляет взгляд и ставит событие, если сменился объект или удержание
func (a *WSAdapter) applyGaze(held bool, object entity.ObjectID) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	if held == a.held && object == a.focused {
		return
	}
	a.held = held
	a.focused = object

	if len(a.pending) >= maxPendingFocus {
		a.pending = a.pending[1:]
		a.dropped++
	}
	a.pending = append(a.pending, entity.FocusChange{Held: held, Object: object})
}

// InputState последнее состояние контроллера
func (a *WSAdapter) InputState() entity.InputState {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.input
}

// Orientation последняя ориентация головы
func (a *WSAdapter) Orientation() mgl64.Quat {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.orientation
}

func (a *WSAdapter) IsFocusHeld() bool {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.held
}

func (a *WSAdapter) FocusedObject() entity.ObjectID {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.focused
}

// PollFocusChanges забирает накопленные смены фокуса
func (a *WSAdapter) PollFocusChanges() []entity.FocusChange {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	out := a.pending
	a.pending = nil
	return out
}

// DroppedFocusChanges сколько смен фокуса вытеснено переполнением очереди
func (a *WSAdapter) DroppedFocusChanges() uint64 {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.dropped
}

// ShowPointer просит клиентов показать указатель взгляда
func (a *WSAdapter) ShowPointer() {
	a.Broadcast(NewPointerMessage(PointerShow))
}

// ClearHighlight просит клиентов снять подсветку с объекта под взглядом
func (a *WSAdapter) ClearHighlight() {
	a.Broadcast(NewPointerMessage(PointerClearHighlight))
}

// ClientCount число подключенных гарнитур
func (a *WSAdapter) ClientCount() int {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	return len(a.clients)
}

// Broadcast отправляет сообщение всем подключенным клиентам
func (a *WSAdapter) Broadcast(msg any) {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()

	for c := range a.clients {
		if err := c.writer.Send(msg); err != nil {
			a.logger.Warn().Err(err).Str("client", c.id).Msg("ошибка при отправке клиенту")
		}
	}
}

// HandleWS обрабатывает WebSocket соединения
func (a *WSAdapter) HandleWS(w http.ResponseWriter, r *http.Request) {
	codec, err := ParseCodec(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error().Err(err).Msg("ошибка при установке WebSocket соединения")
		return
	}
	if a.options.ReadLimit > 0 {
		conn.SetReadLimit(a.options.ReadLimit)
	}

	c := &client{
		id:     uuid.New().String(),
		writer: NewSafeWriter(conn, codec, a.options.WriteTimeout),
	}
	log := a.logger.With().Str("client", c.id).Logger()

	// Добавляем клиента в список
	a.clientsMu.Lock()
	a.clients[c] = true
	a.clientsMu.Unlock()

	defer func() {
		// Удаляем клиента из списка при закрытии соединения
		a.clientsMu.Lock()
		delete(a.clients, c)
		a.clientsMu.Unlock()
		_ = c.writer.Close()
		log.Info().Msg("гарнитура отключилась")
	}()

	log.Info().Str("codec", string(codec)).Str("remote", r.RemoteAddr).Msg("гарнитура подключилась")
	if err := c.writer.Send(NewInfoMessage(c.id, string(a.options.ObjectID), codec, "connected")); err != nil {
		log.Warn().Err(err).Msg("ошибка при отправке приветствия")
		return
	}

	// Обрабатываем входящие сообщения
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("ошибка при чтении сообщения")
			}
			break
		}

		var msg ClientMessage
		if err := Decode(messageType, data, &msg); err != nil {
			log.Warn().Err(err).Msg("не удалось разобрать сообщение")
			continue
		}

		// Находим и выполняем обработчик для данного типа сообщения
		handler, ok := a.handlers[msg.Type]
		if !ok {
			log.Debug().Str("type", msg.Type).Msg("нет обработчика для типа сообщения")
			continue
		}

		if err := handler(c, &msg); err != nil {
			log.Warn().Err(err).Str("type", msg.Type).Msg("ошибка обработки сообщения")
		}
	}
}
