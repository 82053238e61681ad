package physics

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec гоняет структуры порта физики по gRPC как JSON, без сгенерированного protobuf.
// Клиент выбирает его через content-subtype, сервер находит по имени в реестре.
type jsonCodec struct{}

const codecName = "json"

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
