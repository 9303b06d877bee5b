// Package daemonmsg defines the messages exchanged between the daemon and its
// front-ends over the events socket. Requests carry a fresh id; responses and
// errors name the request they answer in RequestId.
package daemonmsg

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Message struct {
	Id   string      `json:"id"`
	Type MessageType `json:"typ"`
	Data any         `json:"dat"`
}

// Correlated is implemented by payloads that answer a request.
type Correlated interface {
	CorrelationID() string
}

func New(typ MessageType, data any) *Message {
	return &Message{
		Id:   NewID(),
		Type: typ,
		Data: data,
	}
}

func NewID() string {
	return uuid.NewString()
}

// RequestID returns the id of the request this message answers, or "" when the
// message is not a response.
func (m *Message) RequestID() string {
	if c, ok := m.Data.(Correlated); ok {
		return c.CorrelationID()
	}
	return ""
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Id   string          `json:"id"`
		Type MessageType     `json:"typ"`
		Data json.RawMessage `json:"dat"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	payload, err := NewPayload(raw.Type)
	if err != nil {
		return err
	}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", raw.Type, err)
		}
	}

	m.Id = raw.Id
	m.Type = raw.Type
	m.Data = payload
	return nil
}

// NewPayload allocates the payload struct for a message type.
func NewPayload(typ MessageType) (any, error) {
	switch typ {
	case MsgSystem:
		return &System{}, nil
	case MsgError:
		return &Error{}, nil
	case MsgLogFolderRequest:
		return &LogFolderRequest{}, nil
	case MsgLogFolderResponse:
		return &LogFolderResponse{}, nil
	case MsgListWatchesRequest:
		return &ListWatchesRequest{}, nil
	case MsgListWatchesResponse:
		return &ListWatchesResponse{}, nil
	case MsgHeadersRequest:
		return &HeadersRequest{}, nil
	case MsgHeadersResponse:
		return &HeadersResponse{}, nil
	case MsgStatusText:
		return &StatusText{}, nil
	default:
		return nil, fmt.Errorf("unknown message type: %d", typ)
	}
}
