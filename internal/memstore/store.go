// Package memstore keeps the floor in process memory. It backs
// STORE_DRIVER=memory and the engine tests. Every Atomic call holds the
// store lock for its whole duration and undoes its writes when fn fails.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"floor_service/internal/floor"
)

type Store struct {
	mu       sync.Mutex
	admins   map[string]floor.Admin
	users    map[string]floor.User
	rooms    map[string]floor.Room
	machines map[string]floor.Machine
	games    map[string]floor.Game
	entries  []floor.LedgerEntry
}

func New() *Store {
	return &Store{
		admins:   make(map[string]floor.Admin),
		users:    make(map[string]floor.User),
		rooms:    make(map[string]floor.Room),
		machines: make(map[string]floor.Machine),
		games:    make(map[string]floor.Game),
	}
}

func (s *Store) atomic(ctx context.Context, fn func(*tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s, ctx: ctx}
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// PutAdmin inserts or replaces an admin, filling in the id and timestamps.
func (s *Store) PutAdmin(a floor.Admin) floor.Admin {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = floor.EnsureID(a.ID)
	stamp(&a.CreatedAt, &a.UpdatedAt)
	if a.Status == "" {
		a.Status = floor.AccountActive
	}
	s.admins[a.ID] = a
	return a
}

func (s *Store) PutUser(u floor.User) floor.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = floor.EnsureID(u.ID)
	stamp(&u.CreatedAt, &u.UpdatedAt)
	if u.Status == "" {
		u.Status = floor.AccountActive
	}
	if u.UserType == "" {
		u.UserType = floor.UserTypeUser
	}
	s.users[u.ID] = u
	return u
}

func (s *Store) PutRoom(r floor.Room) floor.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = floor.EnsureID(r.ID)
	stamp(&r.CreatedAt, &r.UpdatedAt)
	if r.Status == "" {
		r.Status = floor.DeviceOperable
	}
	s.rooms[r.ID] = r
	return r
}

func (s *Store) PutMachine(m floor.Machine) floor.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = floor.EnsureID(m.ID)
	stamp(&m.CreatedAt, &m.UpdatedAt)
	if m.Status == "" {
		m.Status = floor.DeviceOperable
	}
	s.machines[m.ID] = m
	return m
}

func (s *Store) PutGame(g floor.Game) floor.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = floor.EnsureID(g.ID)
	stamp(&g.CreatedAt, &g.UpdatedAt)
	if g.Status == "" {
		g.Status = floor.GameEnabled
	}
	s.games[g.ID] = g
	return g
}

func (s *Store) Admin(id string) (floor.Admin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	return a, ok
}

func (s *Store) User(id string) (floor.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Store) Room(id string) (floor.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

func (s *Store) Machine(id string) (floor.Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[id]
	return m, ok
}

func (s *Store) Game(id string) (floor.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	return g, ok
}

// Entries returns a copy of the journal in insertion order.
func (s *Store) Entries() []floor.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]floor.LedgerEntry(nil), s.entries...)
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}

func notFound(kind floor.EntityKind, id string) error {
	return fmt.Errorf("%w: %s %s", floor.ErrNotFound, kind, id)
}

func paginate[T any](items []T, skip, take int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := skip + take
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[skip:end]...)
}
