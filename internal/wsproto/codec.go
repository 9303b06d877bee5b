package wsproto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding indicates which wire encoding is used for socket messages.
type Encoding uint8

const (
	EncodingJSON Encoding = iota
	EncodingMsgPack
)

// HeaderEncodings lists the encodings a client accepts, most preferred first.
// HeaderEncoding echoes the one the daemon picked.
const (
	HeaderEncodings = "X-Syncany-WS-Encodings"
	HeaderEncoding  = "X-Syncany-WS-Encoding"
)

func (e Encoding) String() string {
	switch e {
	case EncodingMsgPack:
		return "msgpack"
	default:
		return "json"
	}
}

const (
	magic0  = byte('S')
	magic1  = byte('Y')
	version = byte(1)
)

var ErrMissingEnvelope = errors.New("wsproto: binary message missing envelope")

// PreferredEncoding parses a comma-separated preference list (e.g. "msgpack,json").
// Unknown or empty lists fall back to JSON.
func PreferredEncoding(list string) Encoding {
	for _, p := range strings.Split(list, ",") {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "msgpack":
			return EncodingMsgPack
		case "json":
			return EncodingJSON
		}
	}
	return EncodingJSON
}

// Marshal encodes a message for the socket. JSON goes out as a text frame;
// msgpack as a binary frame wrapped in [magic][version][encoding][payload].
func Marshal(msg *daemonmsg.Message, enc Encoding) (websocket.MessageType, []byte, error) {
	if enc == EncodingJSON {
		data, err := json.Marshal(msg)
		return websocket.MessageText, data, err
	}

	payload, err := marshalMsgpack(msg)
	if err != nil {
		return websocket.MessageBinary, nil, err
	}

	buf := make([]byte, 4+len(payload))
	buf[0], buf[1], buf[2], buf[3] = magic0, magic1, version, byte(enc)
	copy(buf[4:], payload)
	return websocket.MessageBinary, buf, nil
}

// Unmarshal decodes a socket frame into a message.
func Unmarshal(typ websocket.MessageType, data []byte) (*daemonmsg.Message, Encoding, error) {
	switch typ {
	case websocket.MessageText:
		var msg daemonmsg.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, EncodingJSON, err
		}
		return &msg, EncodingJSON, nil

	case websocket.MessageBinary:
		if len(data) < 4 || data[0] != magic0 || data[1] != magic1 {
			return nil, EncodingMsgPack, ErrMissingEnvelope
		}
		if data[2] != version {
			return nil, EncodingMsgPack, fmt.Errorf("wsproto: unsupported envelope version: %d", data[2])
		}
		enc := Encoding(data[3])
		payload := data[4:]
		switch enc {
		case EncodingMsgPack:
			msg, err := unmarshalMsgpack(payload)
			return msg, enc, err
		case EncodingJSON:
			var msg daemonmsg.Message
			if err := json.Unmarshal(payload, &msg); err != nil {
				return nil, enc, err
			}
			return &msg, enc, nil
		default:
			return nil, enc, fmt.Errorf("wsproto: unknown encoding: %d", enc)
		}

	default:
		return nil, EncodingJSON, fmt.Errorf("wsproto: unsupported frame type: %v", typ)
	}
}

type wireMessage struct {
	Id   string                `msgpack:"id"`
	Type daemonmsg.MessageType `msgpack:"typ"`
	Data msgpack.RawMessage    `msgpack:"dat"`
}

func marshalMsgpack(msg *daemonmsg.Message) ([]byte, error) {
	if _, err := daemonmsg.NewPayload(msg.Type); err != nil {
		return nil, err
	}
	dat, err := msgpack.Marshal(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("wsproto: encode %s payload: %w", msg.Type, err)
	}
	return msgpack.Marshal(&wireMessage{Id: msg.Id, Type: msg.Type, Data: dat})
}

func unmarshalMsgpack(payload []byte) (*daemonmsg.Message, error) {
	var w wireMessage
	if err := msgpack.Unmarshal(payload, &w); err != nil {
		return nil, err
	}

	data, err := daemonmsg.NewPayload(w.Type)
	if err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal(w.Data, data); err != nil {
		return nil, fmt.Errorf("wsproto: decode %s payload: %w", w.Type, err)
	}
	return &daemonmsg.Message{Id: w.Id, Type: w.Type, Data: data}, nil
}
