package allocation

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"floor_service/internal/floor"
)

// Manager maintains the room, machine, game, manager and worker edges. Each
// edge is single valued; assigning again overwrites it.
type Manager struct {
	repo        AllocationRepository
	defaultTake int
	maxTake     int
}

func NewManager(repo AllocationRepository) *Manager {
	return &Manager{repo: repo}
}

// WithPageLimits overrides the pagination defaults for the list calls.
func (m *Manager) WithPageLimits(defaultTake, maxTake int) *Manager {
	m.defaultTake = defaultTake
	m.maxTake = maxTake
	return m
}

// AssignManager links a Manager user to a room. The user's role is checked
// under the same lock as the write.
func (m *Manager) AssignManager(ctx context.Context, roomID, userID string) error {
	err := m.repo.Atomic(ctx, func(s AllocationStore) error {
		if _, err := s.LockRoom(ctx, roomID); err != nil {
			return err
		}
		u, err := s.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.UserType != floor.UserTypeManager {
			return fmt.Errorf("%w: user %s is %s, not %s", floor.ErrInvalidRole, userID, u.UserType, floor.UserTypeManager)
		}
		return s.SetRoomManager(ctx, roomID, userID)
	})
	return m.done("manager assigned", log.Fields{"room_id": roomID, "user_id": userID}, err)
}

// AttachMachine moves a machine into a room and copies the room name onto it.
func (m *Manager) AttachMachine(ctx context.Context, roomID, machineID string) error {
	err := m.repo.Atomic(ctx, func(s AllocationStore) error {
		room, err := s.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if _, err := s.LockMachine(ctx, machineID); err != nil {
			return err
		}
		return s.SetMachineRoom(ctx, machineID, roomID, room.RoomName)
	})
	return m.done("machine attached", log.Fields{"room_id": roomID, "machine_id": machineID}, err)
}

// AttachGame puts a game on a machine. roomName is stored as given; when it
// is empty the machine's current room name is used.
func (m *Manager) AttachGame(ctx context.Context, machineID, gameID, roomName string) error {
	err := m.repo.Atomic(ctx, func(s AllocationStore) error {
		machine, err := s.LockMachine(ctx, machineID)
		if err != nil {
			return err
		}
		if _, err := s.LockGame(ctx, gameID); err != nil {
			return err
		}
		name := floor.String(roomName)
		if name == nil {
			name = machine.RoomName
		}
		return s.SetGameMachine(ctx, gameID, machineID, name)
	})
	return m.done("game attached", log.Fields{"machine_id": machineID, "game_id": gameID}, err)
}

// AssignWorker links a Worker user to a machine.
func (m *Manager) AssignWorker(ctx context.Context, machineID, userID string) error {
	err := m.repo.Atomic(ctx, func(s AllocationStore) error {
		if _, err := s.LockMachine(ctx, machineID); err != nil {
			return err
		}
		u, err := s.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.UserType != floor.UserTypeWorker {
			return fmt.Errorf("%w: user %s is %s, not %s", floor.ErrInvalidRole, userID, u.UserType, floor.UserTypeWorker)
		}
		return s.SetMachineWorker(ctx, machineID, userID)
	})
	return m.done("worker assigned", log.Fields{"machine_id": machineID, "user_id": userID}, err)
}

func (m *Manager) ListMachinesInRoom(ctx context.Context, roomID string, page floor.PageRequest) (*floor.Page[floor.Machine], error) {
	ok, err := m.repo.RoomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: room %s", floor.ErrNotFound, roomID)
	}

	page = page.Normalize(m.defaultTake, m.maxTake)
	machines, total, err := m.repo.ListMachinesInRoom(ctx, roomID, page.Search, page.Skip, page.Take)
	if err != nil {
		return nil, err
	}
	if machines == nil {
		machines = []floor.Machine{}
	}
	return &floor.Page[floor.Machine]{Count: total, Skip: page.Skip, Take: page.Take, Data: machines}, nil
}

func (m *Manager) ListGamesOnMachine(ctx context.Context, machineID string, page floor.PageRequest) (*floor.Page[floor.Game], error) {
	ok, err := m.repo.MachineExists(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: machine %s", floor.ErrNotFound, machineID)
	}

	page = page.Normalize(m.defaultTake, m.maxTake)
	games, total, err := m.repo.ListGamesOnMachine(ctx, machineID, page.Search, page.Skip, page.Take)
	if err != nil {
		return nil, err
	}
	if games == nil {
		games = []floor.Game{}
	}
	return &floor.Page[floor.Game]{Count: total, Skip: page.Skip, Take: page.Take, Data: games}, nil
}

func (m *Manager) done(msg string, fields log.Fields, err error) error {
	if err == nil {
		log.WithFields(fields).Info(msg)
		return nil
	}
	entry := log.WithError(err).WithFields(fields)
	if floor.CodeOf(err) == floor.CodeInternal {
		entry.Error("allocation failed")
	} else {
		entry.Warn("allocation rejected")
	}
	return err
}
