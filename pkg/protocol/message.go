// Package protocol defines the JSON frames exchanged with the chat relay.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action is the operation a frame carries.
type Action string

const (
	ActionTyping      Action = "typing"
	ActionStopTyping  Action = "stop_typing"
	ActionSendMessage Action = "send_message"
	ActionJoinRoom    Action = "join_room"
	ActionLeaveRoom   Action = "leave_room"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionTyping, ActionStopTyping, ActionSendMessage, ActionJoinRoom, ActionLeaveRoom:
		return true
	default:
		return false
	}
}

// ResponseType classifies frames sent by the relay.
type ResponseType string

const (
	ResponseMessage   ResponseType = "message"
	ResponseInfo      ResponseType = "info"
	ResponseError     ResponseType = "error"
	ResponseBroadcast ResponseType = "broadcast"
	ResponseEcho      ResponseType = "echo"
)

// Valid reports whether t is one of the known response types.
func (t ResponseType) Valid() bool {
	switch t {
	case ResponseMessage, ResponseInfo, ResponseError, ResponseBroadcast, ResponseEcho:
		return true
	default:
		return false
	}
}

var (
	ErrMissingData         = errors.New("frame has no data")
	ErrUnknownResponseType = errors.New("unknown response type")
)

// ChatData is the payload of every frame. Outbound frames are bare ChatData;
// inbound frames wrap it in a Response.
type ChatData struct {
	Message  string `json:"message,omitempty"`
	Room     string `json:"room,omitempty"`
	To       string `json:"to"`
	Action   Action `json:"action"`
	Username string `json:"username"`
}

// Encode encodes the payload as a JSON text frame.
func (d *ChatData) Encode() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return data, nil
}

// Decode decodes a JSON outbound frame into d.
func (d *ChatData) Decode(data []byte) error {
	if err := json.Unmarshal(data, d); err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	return nil
}

// Response is a frame received from the relay.
type Response struct {
	Type ResponseType `json:"type"`
	Data *ChatData    `json:"data"`
}

// Encode encodes the response as a JSON text frame.
func (r *Response) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}

// Decode decodes and validates a relay frame. On error r is left untouched.
func (r *Response) Decode(data []byte) error {
	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !decoded.Type.Valid() {
		return fmt.Errorf("failed to decode response: %w: %q", ErrUnknownResponseType, decoded.Type)
	}
	if decoded.Data == nil {
		return fmt.Errorf("failed to decode response: %w", ErrMissingData)
	}
	*r = decoded
	return nil
}
