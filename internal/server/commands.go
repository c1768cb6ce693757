// Package server executes the commands of the pairing protocol and fans the
// resulting events out to the affected connections.
package server

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// handleCommand validates one inbound frame and dispatches it. Malformed
// envelopes and payloads that fail schema validation produce an error event
// and leave the connection state untouched. Unknown command types are
// ignored.
func (h *Hub) handleCommand(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.deliverTo(c, errorEvent(msgInvalidFormat, ""))
		return
	}

	switch env.Type {
	case cmdCreateRoom:
		h.createRoom(c, env.Payload)
	case cmdJoinRoom:
		h.joinRoom(c, env.Payload)
	case cmdSendMessage:
		h.sendMessage(c, env.Payload)
	}
}

// createRoom allocates a fresh room and admits the caller as its sole
// member. A caller-supplied session identifier is adopted when no live
// connection already holds it; otherwise the server issues one.
func (h *Hub) createRoom(c *Client, raw json.RawMessage) {
	var p createRoomPayload
	if err := decodePayload(raw, h.validate, &p); err != nil {
		h.deliverTo(c, errorEvent(msgInvalidFormat, ""))
		return
	}

	if c.sessionID == "" {
		c.sessionID = h.resolveSessionID(p.UserID)
		c.state = stateActive
	}
	h.sessions.Bind(c.sessionID, c)

	room := h.store.CreateRoom()
	h.store.AddMember(room.Code, c.sessionID)
	c.roomCode = room.Code

	h.log.Info("room created", "code", room.Code, "session_id", c.sessionID)

	frame, err := encodeEvent(evtRoomCreated, roomCreatedPayload{Code: room.Code, UserID: c.sessionID})
	if err != nil {
		h.log.Error("encoding room_created event", "error", err)
		return
	}
	h.deliverTo(c, frame)
}

// joinRoom admits a new member or rebinds a reconnecting one. The
// membership check, the admission, and the filled-room decision run as one
// critical section inside the store, so concurrent joiners racing for the
// last seat cannot both get in or both suppress the partner notification.
func (h *Hub) joinRoom(c *Client, raw json.RawMessage) {
	var p joinRoomPayload
	if err := decodePayload(raw, h.validate, &p); err != nil {
		h.deliverTo(c, errorEvent(msgInvalidFormat, ""))
		return
	}

	admitID := c.sessionID
	if admitID == "" {
		admitID = h.resolveSessionID(p.UserID)
	}

	res := h.store.Join(p.Code, p.UserID, admitID)
	switch res.Status {
	case JoinRoomNotFound:
		h.deliverTo(c, errorEvent(msgRoomNotFound, codeRoomNotFound))
		return
	case JoinRoomFull:
		h.deliverTo(c, errorEvent(msgRoomFull, codeRoomFull))
		return
	}

	// Reconnection supersedes whatever connection previously held the
	// identifier; the stale socket is dropped by the transport the next
	// time it writes.
	c.sessionID = res.SessionID
	c.state = stateActive
	c.roomCode = p.Code
	h.sessions.Bind(res.SessionID, c)

	h.log.Info("room joined",
		"code", p.Code,
		"session_id", res.SessionID,
		"reconnect", res.Status == JoinReconnected,
		"partner_connected", res.PartnerConnected)

	frame, err := encodeEvent(evtRoomJoined, roomJoinedPayload{
		Code:             p.Code,
		UserID:           res.SessionID,
		PartnerConnected: res.PartnerConnected,
		Messages:         res.Messages,
	})
	if err != nil {
		h.log.Error("encoding room_joined event", "error", err)
		return
	}
	h.deliverTo(c, frame)

	// A reconnecting member is not announced again.
	if res.Status == JoinAdmitted && res.PartnerID != "" {
		joined, err := encodeEvent(evtUserJoined, presencePayload{UserID: res.SessionID})
		if err != nil {
			h.log.Error("encoding user_joined event", "error", err)
			return
		}
		h.deliver(res.PartnerID, joined)
	}
}

// sendMessage appends a validated message to the room log and fans the
// resulting event out to every current member, sender included, each via
// its own live connection.
func (h *Hub) sendMessage(c *Client, raw json.RawMessage) {
	var p sendMessagePayload
	if err := decodePayload(raw, h.validate, &p); err != nil {
		h.deliverTo(c, errorEvent(msgInvalidFormat, ""))
		return
	}

	members, ok := h.store.MemberIDs(p.RoomCode)
	if !ok {
		h.deliverTo(c, errorEvent(msgRoomNotFound, ""))
		return
	}
	if !lo.Contains(members, c.sessionID) {
		h.deliverTo(c, errorEvent(msgNotInRoom, ""))
		return
	}
	if p.Type == KindImage && imageTooLarge(p.Content, h.cfg.MaxImageBytes) {
		h.deliverTo(c, errorEvent(msgImageTooLarge, ""))
		return
	}

	msg, recipients, ok := h.store.Append(p.RoomCode, c.sessionID, p.Content, p.Type)
	if !ok {
		h.deliverTo(c, errorEvent(msgRoomNotFound, ""))
		return
	}

	frame, err := encodeEvent(evtNewMessage, msg)
	if err != nil {
		h.log.Error("encoding new_message event", "error", err)
		return
	}
	for _, id := range recipients {
		h.deliver(id, frame)
	}
}

// disconnect runs the close-path cleanup for a connection. It is invoked
// exactly once per client, from the read loop's teardown, and is a no-op
// for connections that never became active or whose identity has since been
// claimed by a newer connection.
func (h *Hub) disconnect(c *Client) {
	if c.state != stateActive {
		c.state = stateClosed
		return
	}
	c.state = stateClosed

	if current, ok := h.sessions.ClientFor(c.sessionID); ok && current != c {
		// Superseded by a reconnect; the successor owns the membership now.
		return
	}

	if code, ok := h.store.RoomForMember(c.sessionID); ok {
		partnerID, _ := h.store.Leave(code, c.sessionID)
		if partnerID != "" {
			left, err := encodeEvent(evtUserLeft, presencePayload{UserID: c.sessionID})
			if err != nil {
				h.log.Error("encoding user_left event", "error", err)
			} else {
				h.deliver(partnerID, left)
			}
		}
		h.log.Info("member left room", "code", code, "session_id", c.sessionID)
	}

	h.sessions.Unbind(c.sessionID, c)
}

// resolveSessionID adopts a caller-supplied identifier when it is not bound
// to a live connection, otherwise issues a fresh one.
func (h *Hub) resolveSessionID(provided string) string {
	if provided != "" && !h.sessions.Bound(provided) {
		return provided
	}
	return uuid.NewString()
}
