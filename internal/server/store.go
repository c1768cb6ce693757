// Package server implements the in-memory room registry that owns room
// membership and per-room message logs.
package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// roomCodeSeed keeps generated codes above a reserved low range; the first
// allocated code is "001001".
const roomCodeSeed = 1000

// RoomInfo is a read-only snapshot of a room handed out by the store.
type RoomInfo struct {
	Code      string
	Members   []string
	CreatedAt time.Time
}

type room struct {
	code      string
	members   []string
	createdAt time.Time
	log       []Message
	lastStamp int64
}

// JoinStatus classifies the outcome of a join attempt.
type JoinStatus int

// Join outcomes.
const (
	JoinRoomNotFound JoinStatus = iota
	JoinRoomFull
	JoinAdmitted
	JoinReconnected
)

// JoinResult carries everything the command path needs after an atomic join:
// the resolved session identifier, whether both seats are now occupied, the
// peer to notify when an admission filled the room, and a replay snapshot of
// the message log.
type JoinResult struct {
	Status           JoinStatus
	SessionID        string
	PartnerConnected bool
	PartnerID        string
	Messages         []Message
}

// RoomStore is the single owner of all live rooms and their message logs.
// Every mutating operation runs under one mutex, so check-then-act sequences
// such as the member-count check in Join are atomic. All operations are
// constant-time map and small-slice work; nothing here waits on a connection.
type RoomStore struct {
	mu         sync.Mutex
	rooms      map[string]*room
	memberRoom map[string]string
	counter    uint64
}

// NewRoomStore creates an empty store with the code counter at its seed.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:      make(map[string]*room),
		memberRoom: make(map[string]string),
		counter:    roomCodeSeed,
	}
}

// CreateRoom allocates a room under a fresh code with no members. Codes come
// from a monotonic counter, so they never collide with a live room and are
// not reused within the process lifetime.
func (s *RoomStore) CreateRoom() RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	r := &room{
		code:      fmt.Sprintf("%06d", s.counter),
		createdAt: time.Now(),
	}
	s.rooms[r.code] = r
	return snapshot(r)
}

// Get returns a snapshot of the room, or false if no such room is live.
func (s *RoomStore) Get(code string) (RoomInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return RoomInfo{}, false
	}
	return snapshot(r), true
}

// AddMember admits sessionID into the room if it exists, has a free seat,
// and does not already count sessionID as a member.
func (s *RoomStore) AddMember(code, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok || len(r.members) >= 2 || lo.Contains(r.members, sessionID) {
		return false
	}
	r.members = append(r.members, sessionID)
	s.memberRoom[sessionID] = code
	return true
}

// Join classifies and applies a join attempt in one critical section.
// providedID is the identifier the client supplied (may be empty), admitID
// the identifier to admit under if this turns out to be a new member.
// Holding the lock across the membership check, the admission, and the
// filled-room decision guarantees that two callers racing for the last seat
// admit exactly one and produce exactly one partner notification.
func (s *RoomStore) Join(code, providedID, admitID string) JoinResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return JoinResult{Status: JoinRoomNotFound}
	}

	// Reconnection: an identifier that is already a member keeps its seat
	// and only gets the log replayed.
	for _, id := range []string{providedID, admitID} {
		if id != "" && lo.Contains(r.members, id) {
			return JoinResult{
				Status:           JoinReconnected,
				SessionID:        id,
				PartnerConnected: len(r.members) == 2,
				Messages:         replay(r),
			}
		}
	}

	if len(r.members) >= 2 {
		return JoinResult{Status: JoinRoomFull}
	}

	r.members = append(r.members, admitID)
	s.memberRoom[admitID] = code

	res := JoinResult{
		Status:           JoinAdmitted,
		SessionID:        admitID,
		PartnerConnected: len(r.members) == 2,
		Messages:         replay(r),
	}
	if res.PartnerConnected {
		partner, found := lo.Find(r.members, func(id string) bool { return id != admitID })
		if found {
			res.PartnerID = partner
		}
	}
	return res
}

// Leave removes the member and returns the id of a remaining peer, if any.
// A room whose membership drops to zero is destroyed synchronously together
// with its message log; its code becomes unreachable immediately.
func (s *RoomStore) Leave(code, sessionID string) (partnerID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, found := s.rooms[code]
	if !found || !lo.Contains(r.members, sessionID) {
		return "", false
	}

	r.members = lo.Without(r.members, sessionID)
	delete(s.memberRoom, sessionID)

	if len(r.members) == 0 {
		delete(s.rooms, code)
		return "", true
	}
	return r.members[0], true
}

// Append adds a message to the room's log, assigning the server id and
// timestamp under the store lock so log order and timestamps agree. It
// returns the stored message together with the membership snapshot taken in
// the same critical section, for fan-out. Appending to a missing room is a
// no-op; the command path has already reported that condition.
func (s *RoomStore) Append(code, senderID, content string, kind MessageKind) (Message, []string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return Message{}, nil, false
	}

	stamp := time.Now().UnixMilli()
	if stamp < r.lastStamp {
		stamp = r.lastStamp
	}
	r.lastStamp = stamp

	msg := Message{
		ID:        uuid.NewString(),
		RoomCode:  code,
		UserID:    senderID,
		Content:   content,
		Type:      kind,
		Timestamp: stamp,
	}
	r.log = append(r.log, msg)

	return msg, append([]string(nil), r.members...), true
}

// Messages returns the room's log in append order, or false if the room is
// not live.
func (s *RoomStore) Messages(code string) ([]Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, false
	}
	return replay(r), true
}

// MemberIDs returns the current membership of the room.
func (s *RoomStore) MemberIDs(code string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, false
	}
	return append([]string(nil), r.members...), true
}

// RoomForMember is the reverse lookup used on disconnect to find which room
// to clean up.
func (s *RoomStore) RoomForMember(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.memberRoom[sessionID]
	return code, ok
}

func snapshot(r *room) RoomInfo {
	return RoomInfo{
		Code:      r.code,
		Members:   append([]string(nil), r.members...),
		CreatedAt: r.createdAt,
	}
}

func replay(r *room) []Message {
	out := make([]Message, len(r.log))
	copy(out, r.log)
	return out
}
