// Package modelserving talks to remote scoring models and provides a
// deterministic simulated stand-in.
package modelserving

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes requests and decodes responses on the wire.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Codec names.
const (
	CodecJSON    = "json"
	CodecMsgPack = "msgpack"
)

// JSONCodec uses encoding/json.
type JSONCodec struct{}

func (JSONCodec) Name() string                       { return CodecJSON }
func (JSONCodec) ContentType() string                { return "application/json" }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgPackCodec uses MessagePack, which keeps float arrays compact.
type MsgPackCodec struct{}

func (MsgPackCodec) Name() string                       { return CodecMsgPack }
func (MsgPackCodec) ContentType() string                { return "application/msgpack" }
func (MsgPackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgPackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// CodecByName resolves a configured codec name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgPack:
		return MsgPackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
