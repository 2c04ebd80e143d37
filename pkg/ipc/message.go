// Package ipc implements the newline-delimited JSON protocol external
// callers use to drive the session manager over a local Unix socket.
package ipc

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType enumerates the envelope's msg_type values.
type MessageType string

const (
	MsgCreateSession  MessageType = "CreateSession"
	MsgExecuteCommand MessageType = "ExecuteCommand"
	MsgGetOutput      MessageType = "GetOutput"
	MsgGetStatus      MessageType = "GetStatus"
	MsgListSessions   MessageType = "ListSessions"
	MsgDeleteSession  MessageType = "DeleteSession"
	MsgResponse       MessageType = "Response"
	MsgError          MessageType = "Error"
	MsgEvent          MessageType = "Event"
)

// Message is the wire envelope: one JSON object per line, no length
// prefix.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"msg_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage builds an envelope around payload, marshaling it to JSON.
func NewMessage(id string, typ MessageType, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{ID: id, Type: typ, Payload: raw, Timestamp: time.Now()}, nil
}

// responseTo builds a Response envelope mirroring req's id.
func responseTo(req Message, payload any) Message {
	msg, err := NewMessage(req.ID, MsgResponse, payload)
	if err != nil {
		return errorTo(req, "marshal response: "+err.Error())
	}
	return msg
}

// errorTo builds an Error envelope mirroring req's id, per the
// {payload.error: "<detail>"} shape.
func errorTo(req Message, detail string) Message {
	msg, _ := NewMessage(req.ID, MsgError, map[string]string{"error": detail})
	return msg
}

// invalidFormatError builds the Error envelope malformed inbound JSON
// produces. req.ID is unknown in this case, so a fresh id is minted.
func invalidFormatError(detail string) Message {
	msg, _ := NewMessage(uuid.NewString(), MsgError, map[string]string{
		"error": "Invalid message format: " + detail,
	})
	return msg
}

func unsupportedTypeError(req Message) Message {
	return errorTo(req, "Unsupported message type")
}
