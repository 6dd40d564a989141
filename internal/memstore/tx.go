package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"floor_service/internal/floor"
)

// tx is one unit of work against a locked Store. It satisfies every store
// interface the engines use inside Atomic.
type tx struct {
	s    *Store
	ctx  context.Context
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) alive() error {
	return t.ctx.Err()
}

func save[T any](t *tx, m map[string]T, id string, v T) {
	prev, had := m[id]
	m[id] = v
	t.undo = append(t.undo, func() {
		if had {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
}

func (t *tx) LockAdmin(ctx context.Context, id string) (*floor.Admin, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	a, ok := t.s.admins[id]
	if !ok {
		return nil, notFound(floor.KindAdmin, id)
	}
	return &a, nil
}

func (t *tx) LockUser(ctx context.Context, id string) (*floor.User, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	u, ok := t.s.users[id]
	if !ok {
		return nil, notFound(floor.KindUser, id)
	}
	return &u, nil
}

func (t *tx) LockRoom(ctx context.Context, id string) (*floor.Room, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	r, ok := t.s.rooms[id]
	if !ok {
		return nil, notFound(floor.KindRoom, id)
	}
	return &r, nil
}

func (t *tx) LockMachine(ctx context.Context, id string) (*floor.Machine, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	m, ok := t.s.machines[id]
	if !ok {
		return nil, notFound(floor.KindMachine, id)
	}
	return &m, nil
}

func (t *tx) LockGame(ctx context.Context, id string) (*floor.Game, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	g, ok := t.s.games[id]
	if !ok {
		return nil, notFound(floor.KindGame, id)
	}
	return &g, nil
}

func (t *tx) SetAdminBalance(ctx context.Context, id string, balance int64) error {
	a, ok := t.s.admins[id]
	if !ok {
		return notFound(floor.KindAdmin, id)
	}
	a.Balance = floor.Int64(balance)
	a.UpdatedAt = time.Now().UTC()
	save(t, t.s.admins, id, a)
	return nil
}

func (t *tx) SetUserBalance(ctx context.Context, id string, balance int64) error {
	u, ok := t.s.users[id]
	if !ok {
		return notFound(floor.KindUser, id)
	}
	u.Balance = floor.Int64(balance)
	u.UpdatedAt = time.Now().UTC()
	save(t, t.s.users, id, u)
	return nil
}

func (t *tx) SetMachineBalance(ctx context.Context, id string, balance int64) error {
	m, ok := t.s.machines[id]
	if !ok {
		return notFound(floor.KindMachine, id)
	}
	m.Balance = floor.Int64(balance)
	m.UpdatedAt = time.Now().UTC()
	save(t, t.s.machines, id, m)
	return nil
}

func (t *tx) CreateEntry(ctx context.Context, entry *floor.LedgerEntry) error {
	if entry.ReferenceID != nil {
		for _, e := range t.s.entries {
			if e.ReferenceID != nil && *e.ReferenceID == *entry.ReferenceID {
				return fmt.Errorf("%w: reference already recorded", floor.ErrDuplicateName)
			}
		}
	}
	entry.ID = floor.EnsureID(entry.ID)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	n := len(t.s.entries)
	t.s.entries = append(t.s.entries, *entry)
	t.undo = append(t.undo, func() { t.s.entries = t.s.entries[:n] })
	return nil
}

func (t *tx) SetStatus(ctx context.Context, kind floor.EntityKind, id, status string) error {
	now := time.Now().UTC()
	switch kind {
	case floor.KindAdmin:
		a, ok := t.s.admins[id]
		if !ok {
			return notFound(kind, id)
		}
		a.Status, a.UpdatedAt = floor.AccountStatus(status), now
		save(t, t.s.admins, id, a)
	case floor.KindUser:
		u, ok := t.s.users[id]
		if !ok {
			return notFound(kind, id)
		}
		u.Status, u.UpdatedAt = floor.AccountStatus(status), now
		save(t, t.s.users, id, u)
	case floor.KindRoom:
		r, ok := t.s.rooms[id]
		if !ok {
			return notFound(kind, id)
		}
		r.Status, r.UpdatedAt = floor.DeviceStatus(status), now
		save(t, t.s.rooms, id, r)
	case floor.KindMachine:
		m, ok := t.s.machines[id]
		if !ok {
			return notFound(kind, id)
		}
		m.Status, m.UpdatedAt = floor.DeviceStatus(status), now
		save(t, t.s.machines, id, m)
	case floor.KindGame:
		g, ok := t.s.games[id]
		if !ok {
			return notFound(kind, id)
		}
		g.Status, g.UpdatedAt = floor.GameStatus(status), now
		save(t, t.s.games, id, g)
	default:
		return fmt.Errorf("%w: no status for kind %q", floor.ErrNotFound, kind)
	}
	return nil
}

func (t *tx) SetRoomManager(ctx context.Context, roomID, userID string) error {
	room, ok := t.s.rooms[roomID]
	if !ok {
		return notFound(floor.KindRoom, roomID)
	}
	now := time.Now().UTC()
	for id, r := range t.s.rooms {
		if id != roomID && r.ManagerID != nil && *r.ManagerID == userID {
			r.ManagerID, r.UpdatedAt = nil, now
			save(t, t.s.rooms, id, r)
		}
	}
	room.ManagerID, room.UpdatedAt = floor.String(userID), now
	save(t, t.s.rooms, roomID, room)
	return nil
}

func (t *tx) SetMachineRoom(ctx context.Context, machineID, roomID, roomName string) error {
	m, ok := t.s.machines[machineID]
	if !ok {
		return notFound(floor.KindMachine, machineID)
	}
	m.RoomID, m.RoomName, m.UpdatedAt = floor.String(roomID), floor.String(roomName), time.Now().UTC()
	save(t, t.s.machines, machineID, m)
	return nil
}

func (t *tx) SetGameMachine(ctx context.Context, gameID, machineID string, roomName *string) error {
	g, ok := t.s.games[gameID]
	if !ok {
		return notFound(floor.KindGame, gameID)
	}
	g.MachineID, g.RoomName, g.UpdatedAt = floor.String(machineID), roomName, time.Now().UTC()
	save(t, t.s.games, gameID, g)
	return nil
}

func (t *tx) SetMachineWorker(ctx context.Context, machineID, userID string) error {
	machine, ok := t.s.machines[machineID]
	if !ok {
		return notFound(floor.KindMachine, machineID)
	}
	now := time.Now().UTC()
	for id, m := range t.s.machines {
		if id != machineID && m.WorkerID != nil && *m.WorkerID == userID {
			m.WorkerID, m.UpdatedAt = nil, now
			save(t, t.s.machines, id, m)
		}
	}
	machine.WorkerID, machine.UpdatedAt = floor.String(userID), now
	save(t, t.s.machines, machineID, machine)
	return nil
}

func (t *tx) MachineNoTaken(ctx context.Context, machineNo string) (bool, error) {
	return t.s.nameTaken(floor.KindMachine, machineNo), nil
}

func (t *tx) CreateMachine(ctx context.Context, m *floor.Machine) error {
	if t.s.nameTaken(floor.KindMachine, m.MachineNo) {
		return fmt.Errorf("%w: %s %q", floor.ErrDuplicateName, floor.KindMachine, m.MachineNo)
	}
	m.ID = floor.EnsureID(m.ID)
	stamp(&m.CreatedAt, &m.UpdatedAt)
	save(t, t.s.machines, m.ID, *m)
	return nil
}

// nameTaken mirrors the unique indexes. Callers hold s.mu.
func (s *Store) nameTaken(kind floor.EntityKind, name string) bool {
	switch kind {
	case floor.KindRoom:
		for _, r := range s.rooms {
			if r.RoomName == name {
				return true
			}
		}
	case floor.KindMachine:
		for _, m := range s.machines {
			if m.MachineNo == name {
				return true
			}
		}
	case floor.KindGame:
		for _, g := range s.games {
			if g.GameName == name {
				return true
			}
		}
	case floor.KindUser:
		for _, u := range s.users {
			if u.Username == name {
				return true
			}
		}
	case floor.KindAdmin:
		for _, a := range s.admins {
			if strings.EqualFold(a.Email, name) {
				return true
			}
		}
	}
	return false
}
