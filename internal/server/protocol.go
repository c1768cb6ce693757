// Package server defines the wire protocol shared between the coordinator
// and its clients: JSON envelopes, command payload schemas, and the outbound
// event constructors.
package server

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// Command types accepted from clients.
const (
	cmdCreateRoom  = "create_room"
	cmdJoinRoom    = "join_room"
	cmdSendMessage = "send_message"
)

// Event types pushed to clients.
const (
	evtRoomCreated = "room_created"
	evtRoomJoined  = "room_joined"
	evtNewMessage  = "new_message"
	evtUserJoined  = "user_joined"
	evtUserLeft    = "user_left"
	evtError       = "error"
)

// Machine-readable error codes attached to error events where the client is
// expected to branch on the failure reason.
const (
	codeRoomNotFound = "ROOM_NOT_FOUND"
	codeRoomFull     = "ROOM_FULL"
	codeRateLimited  = "RATE_LIMITED"
)

// Client-facing error messages. The strings are part of the wire contract.
const (
	msgInvalidFormat = "Invalid message format"
	msgRoomNotFound  = "Room not found"
	msgRoomFull      = "Room is full"
	msgNotInRoom     = "You are not in this room"
	msgImageTooLarge = "Image size exceeds 8MB limit"
	msgRateLimited   = "Rate limit exceeded"
)

// MessageKind discriminates text messages from inline image payloads.
type MessageKind string

// Supported message kinds.
const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
)

// Message is a single chat message as stored in a room's log and as carried
// by new_message events and room_joined replays. Timestamp is Unix
// milliseconds, assigned by the server.
type Message struct {
	ID        string      `json:"id"`
	RoomCode  string      `json:"roomCode"`
	UserID    string      `json:"userId"`
	Content   string      `json:"content"`
	Type      MessageKind `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

// Envelope is the outermost frame of every command and event.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type createRoomPayload struct {
	UserID string `json:"userId" validate:"omitempty,max=128"`
}

type joinRoomPayload struct {
	Code   string `json:"code" validate:"required"`
	UserID string `json:"userId" validate:"omitempty,max=128"`
}

type sendMessagePayload struct {
	RoomCode string      `json:"roomCode" validate:"required"`
	Content  string      `json:"content" validate:"required"`
	Type     MessageKind `json:"type" validate:"required,oneof=text image"`
}

type roomCreatedPayload struct {
	Code   string `json:"code"`
	UserID string `json:"userId"`
}

type roomJoinedPayload struct {
	Code             string    `json:"code"`
	UserID           string    `json:"userId"`
	PartnerConnected bool      `json:"partnerConnected"`
	Messages         []Message `json:"messages"`
}

type presencePayload struct {
	UserID string `json:"userId"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// decodePayload unmarshals a raw command payload into dst and checks it
// against the struct's validation tags. A nil payload decodes as the zero
// value, which still has to pass validation.
func decodePayload(raw json.RawMessage, v *validator.Validate, dst any) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return err
		}
	}
	return v.Struct(dst)
}

// encodeEvent wraps payload in an Envelope of the given type and marshals
// the whole frame. The payload types are all marshalable, so errors are not
// expected in practice.
func encodeEvent(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

func errorEvent(message, code string) []byte {
	frame, err := encodeEvent(evtError, errorPayload{Message: message, Code: code})
	if err != nil {
		return nil
	}
	return frame
}

// imageTooLarge applies the decoded-size heuristic for base64 image
// payloads: content length times 3/4 approximates the byte size without
// actually decoding.
func imageTooLarge(content string, maxBytes int64) bool {
	return int64(len(content))*3/4 > maxBytes
}
