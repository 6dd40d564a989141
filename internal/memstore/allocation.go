package memstore

import (
	"context"
	"slices"
	"strings"

	"floor_service/internal/allocation"
	"floor_service/internal/floor"
)

type allocationRepository struct{ s *Store }

func (s *Store) Allocation() allocation.AllocationRepository { return allocationRepository{s} }

func (r allocationRepository) Atomic(ctx context.Context, fn func(allocation.AllocationStore) error) error {
	return r.s.atomic(ctx, func(t *tx) error { return fn(t) })
}

func (r allocationRepository) RoomExists(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.rooms[id]
	return ok, nil
}

func (r allocationRepository) MachineExists(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.machines[id]
	return ok, nil
}

func (r allocationRepository) ListMachinesInRoom(ctx context.Context, roomID, search string, skip, take int) ([]floor.Machine, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []floor.Machine
	for _, m := range r.s.machines {
		if m.RoomID == nil || *m.RoomID != roomID {
			continue
		}
		if search != "" && !floor.ContainsFold(m.MachineNo, search) {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b floor.Machine) int { return strings.Compare(a.MachineNo, b.MachineNo) })
	return paginate(out, skip, take), int64(len(out)), nil
}

func (r allocationRepository) ListGamesOnMachine(ctx context.Context, machineID, search string, skip, take int) ([]floor.Game, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []floor.Game
	for _, g := range r.s.games {
		if g.MachineID == nil || *g.MachineID != machineID {
			continue
		}
		if search != "" && !floor.ContainsFold(g.GameName, search) {
			continue
		}
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b floor.Game) int { return strings.Compare(a.GameName, b.GameName) })
	return paginate(out, skip, take), int64(len(out)), nil
}
