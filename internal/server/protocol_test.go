package server

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadValidation(t *testing.T) {
	v := validator.New()

	t.Run("valid join payload", func(t *testing.T) {
		var p joinRoomPayload
		err := decodePayload([]byte(`{"code":"001001","userId":"abc"}`), v, &p)
		require.NoError(t, err)
		assert.Equal(t, "001001", p.Code)
		assert.Equal(t, "abc", p.UserID)
	})

	t.Run("join without code fails", func(t *testing.T) {
		var p joinRoomPayload
		err := decodePayload([]byte(`{"userId":"abc"}`), v, &p)
		require.Error(t, err)
	})

	t.Run("nil payload validates zero value", func(t *testing.T) {
		var create createRoomPayload
		require.NoError(t, decodePayload(nil, v, &create))

		var join joinRoomPayload
		require.Error(t, decodePayload(nil, v, &join))
	})

	t.Run("malformed JSON fails", func(t *testing.T) {
		var p sendMessagePayload
		require.Error(t, decodePayload([]byte(`{"roomCode":`), v, &p))
	})

	t.Run("unknown message kind fails", func(t *testing.T) {
		var p sendMessagePayload
		err := decodePayload([]byte(`{"roomCode":"001001","content":"x","type":"video"}`), v, &p)
		require.Error(t, err)
	})

	t.Run("empty content fails", func(t *testing.T) {
		var p sendMessagePayload
		err := decodePayload([]byte(`{"roomCode":"001001","content":"","type":"text"}`), v, &p)
		require.Error(t, err)
	})
}

func TestEncodeEventFrames(t *testing.T) {
	req := require.New(t)

	frame, err := encodeEvent(evtUserJoined, presencePayload{UserID: "abc"})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(frame, &env))
	req.Equal(evtUserJoined, env.Type)

	var p presencePayload
	req.NoError(json.Unmarshal(env.Payload, &p))
	req.Equal("abc", p.UserID)
}

func TestErrorEventCarriesOptionalCode(t *testing.T) {
	req := require.New(t)

	var env Envelope
	req.NoError(json.Unmarshal(errorEvent(msgRoomFull, codeRoomFull), &env))
	req.Equal(evtError, env.Type)
	req.JSONEq(`{"message":"Room is full","code":"ROOM_FULL"}`, string(env.Payload))

	req.NoError(json.Unmarshal(errorEvent(msgNotInRoom, ""), &env))
	req.JSONEq(`{"message":"You are not in this room"}`, string(env.Payload))
}

func TestImageTooLargeHeuristic(t *testing.T) {
	assert.False(t, imageTooLarge("aaaa", 3), "4 chars decode to 3 bytes")
	assert.True(t, imageTooLarge("aaaaaaaa", 5), "8 chars decode to 6 bytes")
	assert.False(t, imageTooLarge("", 1))
}
