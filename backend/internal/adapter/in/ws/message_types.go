package ws

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"gaze-walk/backend/internal/adapter/out/render"
)

// Константы для WebSocket сообщений
const (
	// От гарнитуры
	MessageTypeInput  = "input"  // Оси и основная кнопка
	MessageTypeCamera = "camera" // Ориентация головы
	MessageTypeGaze   = "gaze"   // На что смотрит игрок и удерживает ли взгляд
	MessageTypePing   = "ping"   // Пинг для измерения задержки

	// К гарнитуре
	MessageTypeFrame   = "frame"   // Состояние сцены для отрисовки
	MessageTypePointer = "pointer" // Команда указателю взгляда
	MessageTypePong    = "pong"    // Ответ на пинг
	MessageTypeInfo    = "info"    // Информационное сообщение
)

// Команды указателя
const (
	PointerShow           = "show"
	PointerClearHighlight = "clear_highlight"
)

// ClientMessage конверт входящего сообщения; заполнено поле, соответствующее Type
type ClientMessage struct {
	Type       string         `json:"type"`
	Input      *InputPayload  `json:"input,omitempty"`
	Camera     *CameraPayload `json:"camera,omitempty"`
	Gaze       *GazePayload   `json:"gaze,omitempty"`
	ClientTime float64        `json:"client_time,omitempty"`
}

// InputPayload состояние контроллера
type InputPayload struct {
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
	Primary    bool    `json:"primary"`
}

// CameraPayload ориентация головы, кватернион (x, y, z, w)
type CameraPayload struct {
	Orientation [4]float64 `json:"orientation"`
}

// GazePayload результат рейкаста взгляда на клиенте
type GazePayload struct {
	Held   bool   `json:"held"`
	Object string `json:"object"`
}

// PlayerFrame состояние тела игрока
type PlayerFrame struct {
	Position      mgl64.Vec3 `json:"position"`
	Velocity      mgl64.Vec3 `json:"velocity"`
	Grounded      bool       `json:"grounded"`
	ContactNormal mgl64.Vec3 `json:"contact_normal"`
}

// AudioFrame состояние звука объекта
type AudioFrame struct {
	Volume  float64 `json:"volume"`
	Playing bool    `json:"playing"`
}

// FrameMessage кадр сцены для отрисовки на гарнитуре
type FrameMessage struct {
	Type       string          `json:"type"`
	Tick       uint64          `json:"tick"`
	ServerTime int64           `json:"server_time"`
	Player     PlayerFrame     `json:"player"`
	GazeState  string          `json:"gaze_state"`
	Scene      render.Snapshot `json:"scene"`
	Audio      AudioFrame      `json:"audio"`
}

// PointerMessage команда указателю взгляда
type PointerMessage struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// PongMessage ответ на пинг
type PongMessage struct {
	Type       string  `json:"type"`
	ClientTime float64 `json:"client_time"`
	ServerTime int64   `json:"server_time"`
}

// InfoMessage приветствие с параметрами сессии
type InfoMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
	ObjectID string `json:"object_id"`
	Codec    string `json:"codec"`
	Message  string `json:"message"`
}

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

// NewPongMessage создает новое сообщение-ответ на пинг
func NewPongMessage(clientTime float64) PongMessage {
	return PongMessage{
		Type:       MessageTypePong,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewInfoMessage создает новое информационное сообщение
func NewInfoMessage(clientID, objectID string, codec Codec, message string) InfoMessage {
	return InfoMessage{
		Type:     MessageTypeInfo,
		ClientID: clientID,
		ObjectID: objectID,
		Codec:    string(codec),
		Message:  message,
	}
}

// NewPointerMessage создает команду указателю
func NewPointerMessage(command string) PointerMessage {
	return PointerMessage{Type: MessageTypePointer, Command: command}
}

// NewFrameMessage создает кадр; NaN в векторах заменяются нулями, иначе JSON не соберется
func NewFrameMessage(tick uint64, player PlayerFrame, gazeState string, scene render.Snapshot, audio AudioFrame) FrameMessage {
	player.Position = safeVec(player.Position)
	player.Velocity = safeVec(player.Velocity)
	player.ContactNormal = safeVec(player.ContactNormal)
	scene.Scale = safeVec(scene.Scale)
	for i, v := range scene.SurfaceEmissive {
		scene.SurfaceEmissive[i] = safeValue(v, 0)
	}

	return FrameMessage{
		Type:       MessageTypeFrame,
		Tick:       tick,
		ServerTime: GetCurrentServerTime(),
		Player:     player,
		GazeState:  gazeState,
		Scene:      scene,
		Audio:      AudioFrame{Volume: safeValue(audio.Volume, 0), Playing: audio.Playing},
	}
}

// safeValue проверяет значения на NaN и бесконечность и заменяет их на defaultValue
func safeValue(value float64, defaultValue float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return defaultValue
	}
	return value
}

func safeVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{safeValue(v[0], 0), safeValue(v[1], 0), safeValue(v[2], 0)}
}
