package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"floor_service/internal/catalog"
	"floor_service/internal/floor"
)

type catalogRepository struct{ s *Store }

func (s *Store) Catalog() catalog.CatalogRepository { return catalogRepository{s} }

func (r catalogRepository) Atomic(ctx context.Context, fn func(catalog.FundingStore) error) error {
	return r.s.atomic(ctx, func(t *tx) error { return fn(t) })
}

func (r catalogRepository) NameTaken(ctx context.Context, kind floor.EntityKind, name string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.nameTaken(kind, name), nil
}

func (r catalogRepository) CreateRoom(ctx context.Context, room *floor.Room) error {
	return r.create(ctx, floor.KindRoom, room.RoomName, func() {
		room.ID = floor.EnsureID(room.ID)
		stamp(&room.CreatedAt, &room.UpdatedAt)
		r.s.rooms[room.ID] = *room
	})
}

func (r catalogRepository) CreateGame(ctx context.Context, g *floor.Game) error {
	return r.create(ctx, floor.KindGame, g.GameName, func() {
		g.ID = floor.EnsureID(g.ID)
		stamp(&g.CreatedAt, &g.UpdatedAt)
		r.s.games[g.ID] = *g
	})
}

func (r catalogRepository) CreateUser(ctx context.Context, u *floor.User) error {
	return r.create(ctx, floor.KindUser, u.Username, func() {
		u.ID = floor.EnsureID(u.ID)
		stamp(&u.CreatedAt, &u.UpdatedAt)
		r.s.users[u.ID] = *u
	})
}

func (r catalogRepository) CreateAdmin(ctx context.Context, a *floor.Admin) error {
	return r.create(ctx, floor.KindAdmin, a.Email, func() {
		a.ID = floor.EnsureID(a.ID)
		stamp(&a.CreatedAt, &a.UpdatedAt)
		r.s.admins[a.ID] = *a
	})
}

func (r catalogRepository) create(ctx context.Context, kind floor.EntityKind, name string, insert func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.nameTaken(kind, name) {
		return fmt.Errorf("%w: %s %q", floor.ErrDuplicateName, kind, name)
	}
	insert()
	return nil
}

func (r catalogRepository) GetGame(ctx context.Context, id string) (*floor.Game, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.games[id]
	if !ok {
		return nil, notFound(floor.KindGame, id)
	}
	return &g, nil
}

func (r catalogRepository) UpdateGameBetLimits(ctx context.Context, id string, minBet, maxBet int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.games[id]
	if !ok {
		return notFound(floor.KindGame, id)
	}
	g.MinBet, g.MaxBet, g.UpdatedAt = minBet, maxBet, time.Now().UTC()
	r.s.games[id] = g
	return nil
}

func (r catalogRepository) DeleteGame(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.games[id]; !ok {
		return notFound(floor.KindGame, id)
	}
	delete(r.s.games, id)
	return nil
}

func (r catalogRepository) GetAdminByEmail(ctx context.Context, email string) (*floor.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: admin %s", floor.ErrNotFound, email)
}

func (r catalogRepository) ListRooms(ctx context.Context, name string, skip, take int) ([]floor.Room, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []floor.Room
	for _, room := range r.s.rooms {
		if name == "" || strings.EqualFold(room.RoomName, name) {
			out = append(out, room)
		}
	}
	slices.SortFunc(out, func(a, b floor.Room) int { return strings.Compare(b.RoomName, a.RoomName) })
	return paginate(out, skip, take), int64(len(out)), nil
}

func (r catalogRepository) ListMachines(ctx context.Context, machineNo string, skip, take int) ([]floor.Machine, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []floor.Machine
	for _, m := range r.s.machines {
		if machineNo == "" || strings.EqualFold(m.MachineNo, machineNo) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b floor.Machine) int { return strings.Compare(b.MachineNo, a.MachineNo) })
	return paginate(out, skip, take), int64(len(out)), nil
}

func (r catalogRepository) ListUsersByType(ctx context.Context, userType floor.UserType, search string, skip, take int) ([]floor.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []floor.User
	for _, u := range r.s.users {
		if u.UserType != userType {
			continue
		}
		if search != "" && !floor.ContainsFold(u.Username, search) {
			continue
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b floor.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(out, skip, take), int64(len(out)), nil
}
