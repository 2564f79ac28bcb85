// internal/hub/rounds.go
package hub

import (
	"fmt"
	"sync"
	"time"

	"github.com/erilali/reactionpad/internal/message"
)

// roundTracker follows rounds per room from the commands and results that
// pass through the relay. It mirrors the device: a miss does not end a
// round and a new command replaces the running one.
type roundTracker struct {
	mu    sync.Mutex
	rooms map[string]*roomRound
}

type roomRound struct {
	seq       int64
	active    bool
	command   string
	startedAt time.Time
}

func newRoundTracker() *roundTracker {
	return &roundTracker{rooms: make(map[string]*roomRound)}
}

// start opens a new round in room and returns its number.
func (t *roundTracker) start(room, command string, now time.Time) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.room(room)
	r.seq++
	r.active = true
	r.command = command
	r.startedAt = now
	return r.seq
}

// result records a result for room. It returns the round it belongs to,
// zero if no round was seen, and whether the round ended.
func (t *roundTracker) result(room, text string) (round int64, ended bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.room(room)
	if !r.active {
		return r.seq, false
	}
	if text == message.Miss {
		return r.seq, false
	}
	r.active = false
	return r.seq, true
}

// RoundInfo describes a round still waiting for its result.
type RoundInfo struct {
	Round     int64     `json:"round"`
	Command   string    `json:"command"`
	StartedAt time.Time `json:"started_at"`
}

func (t *roundTracker) active(room string) (RoundInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, found := t.rooms[room]
	if !found || !r.active {
		return RoundInfo{}, false
	}
	return RoundInfo{Round: r.seq, Command: r.command, StartedAt: r.startedAt}, true
}

// StartRound opens a round in room for a led_r or led_l command and returns
// its number. Commands sent to the device over HTTP pass through here too.
func (h *Hub) StartRound(room, command string) int64 {
	round := h.rounds.start(room, command, time.Now())
	h.Logger.LogEvent("info", "round_started", room, fmt.Sprintf("#%d %s", round, command))
	return round
}

// ActiveRound reports the running round in room as seen by the relay.
func (h *Hub) ActiveRound(room string) (RoundInfo, bool) {
	return h.rounds.active(room)
}

func (t *roundTracker) room(room string) *roomRound {
	r, ok := t.rooms[room]
	if !ok {
		r = &roomRound{}
		t.rooms[room] = r
	}
	return r
}
