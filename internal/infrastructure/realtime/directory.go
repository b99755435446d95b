// Package realtime keeps track of connected participants and the conversation
// room each one is looking at, and fans lifecycle events out to them.
package realtime

import (
	"errors"
	"sync"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
)

var (
	ErrNotMember     = errors.New("participant is not a member of the conversation")
	ErrNotRegistered = errors.New("participant is not registered")
	ErrHandleClosed  = errors.New("delivery handle closed")
	ErrSlowConsumer  = errors.New("delivery handle buffer full")
)

// Handle is one participant's delivery channel. Send must not block.
type Handle interface {
	Send(frame []byte) error
	Close() error
}

type Participant struct {
	userID string
	handle Handle

	// room is guarded by Directory.mu.
	room entity.ConversationKey
}

func (p *Participant) UserID() string {
	return p.userID
}

func (p *Participant) Handle() Handle {
	return p.handle
}

// Directory maps participants to their handle and rooms to their members.
// Every mutation happens under one write lock so readers never observe a
// half-applied change.
type Directory struct {
	mu           sync.RWMutex
	participants map[string]*Participant
	rooms        map[entity.ConversationKey]map[string]*Participant
}

func NewDirectory() *Directory {
	return &Directory{
		participants: make(map[string]*Participant),
		rooms:        make(map[entity.ConversationKey]map[string]*Participant),
	}
}

// Register installs h as userID's handle. A previous registration for the same
// user is removed and returned so the caller can close it.
func (d *Directory) Register(userID string, h Handle) (p, replaced *Participant) {
	p = &Participant{userID: userID, handle: h}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.participants[userID]; ok {
		d.leaveLocked(old)
		replaced = old
	}
	d.participants[userID] = p

	return p, replaced
}

// Unregister removes p. It reports false if p was already replaced or removed.
func (d *Directory) Unregister(p *Participant) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cur, ok := d.participants[p.userID]; !ok || cur != p {
		return false
	}

	d.leaveLocked(p)
	delete(d.participants, p.userID)

	return true
}

// Join moves p into the room of key, leaving any room it was in.
func (d *Directory) Join(p *Participant, key entity.ConversationKey) error {
	if !key.Has(p.userID) {
		return ErrNotMember
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cur, ok := d.participants[p.userID]; !ok || cur != p {
		return ErrNotRegistered
	}

	if p.room == key {
		return nil
	}

	d.leaveLocked(p)

	members, ok := d.rooms[key]
	if !ok {
		members = make(map[string]*Participant, 2)
		d.rooms[key] = members
	}
	members[p.userID] = p
	p.room = key

	return nil
}

func (d *Directory) Leave(p *Participant) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.leaveLocked(p)
}

func (d *Directory) leaveLocked(p *Participant) {
	if p.room.IsZero() {
		return
	}

	if members, ok := d.rooms[p.room]; ok {
		if members[p.userID] == p {
			delete(members, p.userID)
		}
		if len(members) == 0 {
			delete(d.rooms, p.room)
		}
	}
	p.room = entity.ConversationKey{}
}

// RoomMembers returns a snapshot of the participants joined to key.
func (d *Directory) RoomMembers(key entity.ConversationKey) []*Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[key]
	out := make([]*Participant, 0, len(members))
	for _, p := range members {
		out = append(out, p)
	}

	return out
}

func (d *Directory) Lookup(userID string) (*Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.participants[userID]

	return p, ok
}

// Room returns the conversation p is currently joined to.
func (d *Directory) Room(p *Participant) (entity.ConversationKey, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return p.room, !p.room.IsZero()
}

func (d *Directory) Snapshot() []*Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Participant, 0, len(d.participants))
	for _, p := range d.participants {
		out = append(out, p)
	}

	return out
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.participants)
}

// Close empties the directory and closes every handle.
func (d *Directory) Close() error {
	d.mu.Lock()
	participants := d.participants
	d.participants = make(map[string]*Participant)
	d.rooms = make(map[entity.ConversationKey]map[string]*Participant)
	d.mu.Unlock()

	var errList []error
	for _, p := range participants {
		if err := p.handle.Close(); err != nil && !errors.Is(err, ErrHandleClosed) {
			errList = append(errList, err)
		}
	}

	return errors.Join(errList...)
}
