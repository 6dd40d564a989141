package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"floor_service/internal/floor"
)

// StatusStore is the view of the status columns inside one transaction.
type StatusStore interface {
	LockAdmin(ctx context.Context, id string) (*floor.Admin, error)
	LockUser(ctx context.Context, id string) (*floor.User, error)
	LockRoom(ctx context.Context, id string) (*floor.Room, error)
	LockMachine(ctx context.Context, id string) (*floor.Machine, error)
	LockGame(ctx context.Context, id string) (*floor.Game, error)
	SetStatus(ctx context.Context, kind floor.EntityKind, id, status string) error
}

type StatusRepository interface {
	Atomic(ctx context.Context, fn func(StatusStore) error) error
}

type StatusRepositoryImpl struct {
	db *gorm.DB
}

func NewStatusRepositoryImpl(db *gorm.DB) StatusRepository {
	return &StatusRepositoryImpl{db: db}
}

func (r *StatusRepositoryImpl) Atomic(ctx context.Context, fn func(StatusStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		return fn(&gormStatusStore{tx: dbtx})
	})
}

type gormStatusStore struct {
	tx *gorm.DB
}

func (s *gormStatusStore) LockAdmin(ctx context.Context, id string) (*floor.Admin, error) {
	var a floor.Admin
	if err := s.lock(ctx, id, &a); err != nil {
		return nil, lockError(err, floor.KindAdmin, id)
	}
	return &a, nil
}

func (s *gormStatusStore) LockUser(ctx context.Context, id string) (*floor.User, error) {
	var u floor.User
	if err := s.lock(ctx, id, &u); err != nil {
		return nil, lockError(err, floor.KindUser, id)
	}
	return &u, nil
}

func (s *gormStatusStore) LockRoom(ctx context.Context, id string) (*floor.Room, error) {
	var r floor.Room
	if err := s.lock(ctx, id, &r); err != nil {
		return nil, lockError(err, floor.KindRoom, id)
	}
	return &r, nil
}

func (s *gormStatusStore) LockMachine(ctx context.Context, id string) (*floor.Machine, error) {
	var m floor.Machine
	if err := s.lock(ctx, id, &m); err != nil {
		return nil, lockError(err, floor.KindMachine, id)
	}
	return &m, nil
}

func (s *gormStatusStore) LockGame(ctx context.Context, id string) (*floor.Game, error) {
	var g floor.Game
	if err := s.lock(ctx, id, &g); err != nil {
		return nil, lockError(err, floor.KindGame, id)
	}
	return &g, nil
}

func (s *gormStatusStore) lock(ctx context.Context, id string, dest any) error {
	return s.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(dest).Error
}

func (s *gormStatusStore) SetStatus(ctx context.Context, kind floor.EntityKind, id, status string) error {
	var model any
	switch kind {
	case floor.KindAdmin:
		model = &floor.Admin{}
	case floor.KindUser:
		model = &floor.User{}
	case floor.KindRoom:
		model = &floor.Room{}
	case floor.KindMachine:
		model = &floor.Machine{}
	case floor.KindGame:
		model = &floor.Game{}
	default:
		return fmt.Errorf("%w: no status for kind %q", floor.ErrNotFound, kind)
	}

	result := s.tx.WithContext(ctx).Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update %s status: %w", kind, result.Error)
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
