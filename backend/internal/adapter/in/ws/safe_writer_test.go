package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMessage struct {
	ID  int    `json:"id"`
	Msg string `json:"msg"`
}

// echoServer принимает соединение и отдает прочитанные кадры в канал
func echoServer(t *testing.T, expect int) (*httptest.Server, <-chan []byte) {
	t.Helper()
	received := make(chan []byte, expect)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for i := 0; i < expect; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	}))
	t.Cleanup(server.Close)
	return server, received
}

func dialRaw(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestSafeWriter_SendConcurrency(t *testing.T) {
	server, received := echoServer(t, 10)
	conn := dialRaw(t, server)
	defer conn.Close()

	writer := NewSafeWriter(conn, CodecJSON, time.Second)

	// 10 горутин, каждая отправляет свое сообщение
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			time.Sleep(time.Duration(id) * time.Millisecond)
			assert.NoError(t, writer.Send(testMessage{ID: id, Msg: "Test message"}))
		}(i)
	}
	wg.Wait()

	// Все сообщения дошли целыми и разными
	uniq := make(map[int]struct{})
	for i := 0; i < 10; i++ {
		select {
		case data := <-received:
			var msg testMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			uniq[msg.ID] = struct{}{}
		case <-time.After(2 * time.Second):
			t.Fatalf("got only %d messages", i)
		}
	}
	assert.Len(t, uniq, 10)
}

func TestSafeWriter_CBORCodec(t *testing.T) {
	server, received := echoServer(t, 1)
	conn := dialRaw(t, server)
	defer conn.Close()

	writer := NewSafeWriter(conn, CodecCBOR, 0)
	assert.Equal(t, CodecCBOR, writer.Codec())
	require.NoError(t, writer.Send(testMessage{ID: 3, Msg: "bin"}))

	data := <-received
	var msg testMessage
	require.NoError(t, cbor.Unmarshal(data, &msg))
	assert.Equal(t, testMessage{ID: 3, Msg: "bin"}, msg)
}

func TestSafeWriter_Close(t *testing.T) {
	server, _ := echoServer(t, 1)
	conn := dialRaw(t, server)

	writer := NewSafeWriter(conn, CodecJSON, time.Second)
	require.NoError(t, writer.Close())

	// Запись в закрытое соединение возвращает ошибку
	assert.Error(t, writer.Send("test"))
}

func TestParseCodecAndDecode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Codec
	}{
		{"", CodecJSON},
		{"json", CodecJSON},
		{"cbor", CodecCBOR},
	} {
		got, err := ParseCodec(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
	_, err := ParseCodec("msgpack")
	assert.Error(t, err)

	var msg testMessage
	assert.Error(t, Decode(websocket.PingMessage, nil, &msg))
	require.NoError(t, Decode(websocket.TextMessage, []byte(`{"id":5}`), &msg))
	assert.Equal(t, 5, msg.ID)
}
