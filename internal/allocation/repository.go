package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"floor_service/internal/floor"
)

// AllocationStore writes assignment edges inside one transaction. The Set*
// calls for managers and workers also clear the user from any other room or
// machine so each edge stays one-to-one.
type AllocationStore interface {
	LockRoom(ctx context.Context, id string) (*floor.Room, error)
	LockMachine(ctx context.Context, id string) (*floor.Machine, error)
	LockGame(ctx context.Context, id string) (*floor.Game, error)
	LockUser(ctx context.Context, id string) (*floor.User, error)
	SetRoomManager(ctx context.Context, roomID, userID string) error
	SetMachineRoom(ctx context.Context, machineID, roomID, roomName string) error
	SetGameMachine(ctx context.Context, gameID, machineID string, roomName *string) error
	SetMachineWorker(ctx context.Context, machineID, userID string) error
}

type AllocationRepository interface {
	Atomic(ctx context.Context, fn func(AllocationStore) error) error
	RoomExists(ctx context.Context, id string) (bool, error)
	MachineExists(ctx context.Context, id string) (bool, error)
	ListMachinesInRoom(ctx context.Context, roomID, search string, skip, take int) ([]floor.Machine, int64, error)
	ListGamesOnMachine(ctx context.Context, machineID, search string, skip, take int) ([]floor.Game, int64, error)
}

type AllocationRepositoryImpl struct {
	db *gorm.DB
}

func NewAllocationRepositoryImpl(db *gorm.DB) AllocationRepository {
	return &AllocationRepositoryImpl{db: db}
}

func (r *AllocationRepositoryImpl) Atomic(ctx context.Context, fn func(AllocationStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		return fn(&gormAllocationStore{tx: dbtx})
	})
}

func (r *AllocationRepositoryImpl) RoomExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, &floor.Room{}, id)
}

func (r *AllocationRepositoryImpl) MachineExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, &floor.Machine{}, id)
}

func (r *AllocationRepositoryImpl) exists(ctx context.Context, model any, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return n > 0, nil
}

func (r *AllocationRepositoryImpl) ListMachinesInRoom(ctx context.Context, roomID, search string, skip, take int) ([]floor.Machine, int64, error) {
	q := r.db.WithContext(ctx).Model(&floor.Machine{}).Where("room_id = ?", roomID)
	if search != "" {
		q = q.Where("LOWER(machine_no) LIKE ?", floor.ContainsPattern(search))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count machines: %w", err)
	}
	var machines []floor.Machine
	if err := q.Order("machine_no ASC").Offset(skip).Limit(take).Find(&machines).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, total, nil
}

func (r *AllocationRepositoryImpl) ListGamesOnMachine(ctx context.Context, machineID, search string, skip, take int) ([]floor.Game, int64, error) {
	q := r.db.WithContext(ctx).Model(&floor.Game{}).Where("machine_id = ?", machineID)
	if search != "" {
		q = q.Where("LOWER(game_name) LIKE ?", floor.ContainsPattern(search))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count games: %w", err)
	}
	var games []floor.Game
	if err := q.Order("game_name ASC").Offset(skip).Limit(take).Find(&games).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list games: %w", err)
	}
	return games, total, nil
}

type gormAllocationStore struct {
	tx *gorm.DB
}

func (s *gormAllocationStore) LockRoom(ctx context.Context, id string) (*floor.Room, error) {
	var r floor.Room
	if err := s.lock(ctx, id, &r); err != nil {
		return nil, lockError(err, floor.KindRoom, id)
	}
	return &r, nil
}

func (s *gormAllocationStore) LockMachine(ctx context.Context, id string) (*floor.Machine, error) {
	var m floor.Machine
	if err := s.lock(ctx, id, &m); err != nil {
		return nil, lockError(err, floor.KindMachine, id)
	}
	return &m, nil
}

func (s *gormAllocationStore) LockGame(ctx context.Context, id string) (*floor.Game, error) {
	var g floor.Game
	if err := s.lock(ctx, id, &g); err != nil {
		return nil, lockError(err, floor.KindGame, id)
	}
	return &g, nil
}

func (s *gormAllocationStore) LockUser(ctx context.Context, id string) (*floor.User, error) {
	var u floor.User
	if err := s.lock(ctx, id, &u); err != nil {
		return nil, lockError(err, floor.KindUser, id)
	}
	return &u, nil
}

func (s *gormAllocationStore) lock(ctx context.Context, id string, dest any) error {
	return s.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(dest).Error
}

func (s *gormAllocationStore) SetRoomManager(ctx context.Context, roomID, userID string) error {
	now := time.Now()
	err := s.tx.WithContext(ctx).Model(&floor.Room{}).
		Where("manager_id = ? AND id <> ?", userID, roomID).
		Updates(map[string]interface{}{"manager_id": nil, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("failed to release manager: %w", err)
	}
	return s.update(ctx, &floor.Room{}, floor.KindRoom, roomID, map[string]interface{}{
		"manager_id": userID,
		"updated_at": now,
	})
}

func (s *gormAllocationStore) SetMachineRoom(ctx context.Context, machineID, roomID, roomName string) error {
	return s.update(ctx, &floor.Machine{}, floor.KindMachine, machineID, map[string]interface{}{
		"room_id":    roomID,
		"room_name":  roomName,
		"updated_at": time.Now(),
	})
}

func (s *gormAllocationStore) SetGameMachine(ctx context.Context, gameID, machineID string, roomName *string) error {
	return s.update(ctx, &floor.Game{}, floor.KindGame, gameID, map[string]interface{}{
		"machine_id": machineID,
		"room_name":  roomName,
		"updated_at": time.Now(),
	})
}

func (s *gormAllocationStore) SetMachineWorker(ctx context.Context, machineID, userID string) error {
	now := time.Now()
	err := s.tx.WithContext(ctx).Model(&floor.Machine{}).
		Where("worker_id = ? AND id <> ?", userID, machineID).
		Updates(map[string]interface{}{"worker_id": nil, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("failed to release worker: %w", err)
	}
	return s.update(ctx, &floor.Machine{}, floor.KindMachine, machineID, map[string]interface{}{
		"worker_id":  userID,
		"updated_at": now,
	})
}

func (s *gormAllocationStore) update(ctx context.Context, model any, kind floor.EntityKind, id string, values map[string]interface{}) error {
	result := s.tx.WithContext(ctx).Model(model).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", floor.ErrNotFound, kind, id)
	}
	return nil
}

func lockError(err error, kind floor.EntityKind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", floor.ErrNotFound, kind, id)
	}
	return fmt.Errorf("failed to lock %s: %w", kind, err)
}
