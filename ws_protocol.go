package goflot

import (
	"encoding/json"
	"fmt"
)

// The live-preview socket speaks a small JSON protocol: every websocket text
// message is an Envelope whose payload is one of the message structs below.
// Chart payloads are JSON already, so a textual envelope costs little and
// keeps the browser side trivial.

const (
	// MessageTypeUpdate carries a full chart snapshot (series and options).
	MessageTypeUpdate = "update"

	// MessageTypeStreamEnd signals that the input stream has ended and no
	// further updates will follow.
	MessageTypeStreamEnd = "streamEnd"
)

// Envelope is the wire form of every websocket message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StreamEndMessage is the payload of a streamEnd message.
type StreamEndMessage struct {
	Error bool   `json:"error"`
	Msg   string `json:"msg"`
}

func encodeEnvelope(messageType string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
	}

	return json.Marshal(Envelope{
		Type:    messageType,
		Payload: encoded,
	})
}

// EncodeUpdateMessage encodes a chart snapshot as a complete wire message.
func EncodeUpdateMessage(update ChartUpdate) ([]byte, error) {
	return encodeEnvelope(MessageTypeUpdate, update)
}

// EncodeStreamEndMessage encodes a stream end notification as a complete
// wire message.
func EncodeStreamEndMessage(msg StreamEndMessage) ([]byte, error) {
	return encodeEnvelope(MessageTypeStreamEnd, msg)
}

// DecodeMessage decodes a complete wire message. The returned payload is a
// ChartUpdate or a StreamEndMessage depending on the envelope type.
func DecodeMessage(buf []byte) (any, error) {
	var envelope Envelope
	if err := json.Unmarshal(buf, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	switch envelope.Type {
	case MessageTypeUpdate:
		var update ChartUpdate
		if err := json.Unmarshal(envelope.Payload, &update); err != nil {
			return nil, fmt.Errorf("failed to unmarshal update payload: %w", err)
		}
		return update, nil
	case MessageTypeStreamEnd:
		var msg StreamEndMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal streamEnd payload: %w", err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", envelope.Type)
	}
}
