package main

import (
	"net/url"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gaze-walk/backend/internal/adapter/in/ws"
)

var CLI struct {
	URL      string `help:"WebSocket URL of the scene server." default:"ws://localhost:8080/ws"`
	Codec    string `help:"Frame codec." enum:"json,cbor" default:"json"`
	Messages int    `help:"How many messages to read before exiting." default:"10"`
}

func main() {
	kong.Parse(&CLI, kong.Name("gaze-walk-test-client"), kong.UsageOnError())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	// Подключаемся к серверу
	u, err := url.Parse(CLI.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("неверный URL")
	}
	q := u.Query()
	q.Set("codec", CLI.Codec)
	u.RawQuery = q.Encode()

	log.Info().Str("url", u.String()).Msg("подключение")

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("ошибка подключения")
	}
	defer conn.Close()

	// Смотрим на объект, чтобы сцена ответила указателем
	if err := sendGaze(conn, CLI.Codec); err != nil {
		log.Warn().Err(err).Msg("ошибка отправки взгляда")
	}

	// Читаем сообщения от сервера
	for i := 0; i < CLI.Messages; i++ {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			log.Error().Err(err).Msg("ошибка чтения сообщения")
			break
		}

		var msg map[string]interface{}
		if err := ws.Decode(messageType, data, &msg); err != nil {
			log.Warn().Err(err).Msg("ошибка разбора сообщения")
			continue
		}

		switch msg["type"] {
		case ws.MessageTypeInfo:
			log.Info().Interface("client_id", msg["client_id"]).Interface("object_id", msg["object_id"]).Msg("INFO")
		case ws.MessageTypePointer:
			log.Info().Interface("command", msg["command"]).Msg("POINTER")
		case ws.MessageTypeFrame:
			log.Info().Interface("tick", msg["tick"]).Interface("gaze", msg["gaze_state"]).Msg("FRAME")
		default:
			log.Info().Interface("message", msg).Msg("сообщение")
		}
	}

	log.Info().Msg("тест завершен")
}

func sendGaze(conn *websocket.Conn, codec string) error {
	msg := ws.ClientMessage{Type: ws.MessageTypeGaze, Gaze: &ws.GazePayload{Held: true, Object: "orb"}}
	messageType, data, err := ws.Codec(codec).Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}
