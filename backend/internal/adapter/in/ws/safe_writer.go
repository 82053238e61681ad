package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

// Codec формат сообщений одного клиента
type Codec string

const (
	CodecJSON Codec = "json" // Текстовые кадры
	CodecCBOR Codec = "cbor" // Бинарные кадры
)

// ParseCodec разбирает параметр ?codec=; пустое значение означает JSON
func ParseCodec(s string) (Codec, error) {
	switch Codec(s) {
	case "", CodecJSON:
		return CodecJSON, nil
	case CodecCBOR:
		return CodecCBOR, nil
	default:
		return "", fmt.Errorf("неизвестный кодек: %q", s)
	}
}

// Marshal кодирует значение и возвращает тип WebSocket-кадра
func (c Codec) Marshal(v any) (int, []byte, error) {
	if c == CodecCBOR {
		data, err := cbor.Marshal(v)
		return websocket.BinaryMessage, data, err
	}
	data, err := json.Marshal(v)
	return websocket.TextMessage, data, err
}

// Decode разбирает входящий кадр по его типу, а не по кодеку клиента
func Decode(messageType int, data []byte, v any) error {
	switch messageType {
	case websocket.BinaryMessage:
		return cbor.Unmarshal(data, v)
	case websocket.TextMessage:
		return json.Unmarshal(data, v)
	default:
		return fmt.Errorf("неподдерживаемый тип кадра: %d", messageType)
	}
}

// SafeWriter обеспечивает потокобезопасную запись в WebSocket
type SafeWriter struct {
	conn         *websocket.Conn
	codec        Codec
	writeTimeout time.Duration
	mutex        sync.Mutex
}

// NewSafeWriter создает новый экземпляр SafeWriter
func NewSafeWriter(conn *websocket.Conn, codec Codec, writeTimeout time.Duration) *SafeWriter {
	return &SafeWriter{
		conn:         conn,
		codec:        codec,
		writeTimeout: writeTimeout,
	}
}

// Send кодирует сообщение кодеком клиента и отправляет его
func (w *SafeWriter) Send(v any) error {
	messageType, data, err := w.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("сериализация сообщения: %w", err)
	}
	return w.WriteMessage(messageType, data)
}

// WriteMessage потокобезопасно отправляет готовый кадр
func (w *SafeWriter) WriteMessage(messageType int, data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.writeTimeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
			return err
		}
	}
	return w.conn.WriteMessage(messageType, data)
}

// Codec кодек клиента
func (w *SafeWriter) Codec() Codec {
	return w.codec
}

// Close закрывает соединение WebSocket
func (w *SafeWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}
