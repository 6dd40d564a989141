package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"floor_service/internal/floor"
	"floor_service/internal/ledger"
)

// FundingStore creates a machine and debits its opening balance from an
// admin inside one transaction.
type FundingStore interface {
	ledger.BalanceStore
	MachineNoTaken(ctx context.Context, machineNo string) (bool, error)
	CreateMachine(ctx context.Context, m *floor.Machine) error
}

type CatalogRepository interface {
	Atomic(ctx context.Context, fn func(FundingStore) error) error

	// NameTaken reports whether the unique name of kind is already used:
	// room name, machine number, game name, username or admin email.
	NameTaken(ctx context.Context, kind floor.EntityKind, name string) (bool, error)
	CreateRoom(ctx context.Context, r *floor.Room) error
	CreateGame(ctx context.Context, g *floor.Game) error
	CreateUser(ctx context.Context, u *floor.User) error
	CreateAdmin(ctx context.Context, a *floor.Admin) error

	GetGame(ctx context.Context, id string) (*floor.Game, error)
	UpdateGameBetLimits(ctx context.Context, id string, minBet, maxBet int64) error
	DeleteGame(ctx context.Context, id string) error
	GetAdminByEmail(ctx context.Context, email string) (*floor.Admin, error)

	ListRooms(ctx context.Context, name string, skip, take int) ([]floor.Room, int64, error)
	ListMachines(ctx context.Context, machineNo string, skip, take int) ([]floor.Machine, int64, error)
	ListUsersByType(ctx context.Context, userType floor.UserType, search string, skip, take int) ([]floor.User, int64, error)
}

type CatalogRepositoryImpl struct {
	db *gorm.DB
}

func NewCatalogRepositoryImpl(db *gorm.DB) CatalogRepository {
	return &CatalogRepositoryImpl{db: db}
}

func (r *CatalogRepositoryImpl) Atomic(ctx context.Context, fn func(FundingStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		return fn(&gormFundingStore{BalanceStore: ledger.NewBalanceStore(dbtx), tx: dbtx})
	})
}

var uniqueColumns = map[floor.EntityKind]struct {
	model  any
	column string
}{
	floor.KindRoom:    {&floor.Room{}, "room_name"},
	floor.KindMachine: {&floor.Machine{}, "machine_no"},
	floor.KindGame:    {&floor.Game{}, "game_name"},
	floor.KindUser:    {&floor.User{}, "username"},
	floor.KindAdmin:   {&floor.Admin{}, "email"},
}

func (r *CatalogRepositoryImpl) NameTaken(ctx context.Context, kind floor.EntityKind, name string) (bool, error) {
	return nameTaken(r.db.WithContext(ctx), kind, name)
}

func nameTaken(db *gorm.DB, kind floor.EntityKind, name string) (bool, error) {
	u, ok := uniqueColumns[kind]
	if !ok {
		return false, fmt.Errorf("no unique name for kind %q", kind)
	}
	var n int64
	if err := db.Model(u.model).Where(u.column+" = ?", name).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check %s name: %w", kind, err)
	}
	return n > 0, nil
}

func (r *CatalogRepositoryImpl) CreateRoom(ctx context.Context, room *floor.Room) error {
	return create(r.db.WithContext(ctx), room, floor.KindRoom, room.RoomName)
}

func (r *CatalogRepositoryImpl) CreateGame(ctx context.Context, g *floor.Game) error {
	return create(r.db.WithContext(ctx), g, floor.KindGame, g.GameName)
}

func (r *CatalogRepositoryImpl) CreateUser(ctx context.Context, u *floor.User) error {
	return create(r.db.WithContext(ctx), u, floor.KindUser, u.Username)
}

func (r *CatalogRepositoryImpl) CreateAdmin(ctx context.Context, a *floor.Admin) error {
	return create(r.db.WithContext(ctx), a, floor.KindAdmin, a.Email)
}

func create(db *gorm.DB, value any, kind floor.EntityKind, name string) error {
	if err := db.Create(value).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s %q", floor.ErrDuplicateName, kind, name)
		}
		return fmt.Errorf("failed to create %s: %w", kind, err)
	}
	return nil
}

func (r *CatalogRepositoryImpl) GetGame(ctx context.Context, id string) (*floor.Game, error) {
	var g floor.Game
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: game %s", floor.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &g, nil
}

func (r *CatalogRepositoryImpl) UpdateGameBetLimits(ctx context.Context, id string, minBet, maxBet int64) error {
	result := r.db.WithContext(ctx).Model(&floor.Game{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"min_bet":    minBet,
			"max_bet":    maxBet,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update game bet limits: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: game %s", floor.ErrNotFound, id)
	}
	return nil
}

func (r *CatalogRepositoryImpl) DeleteGame(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&floor.Game{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete game: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: game %s", floor.ErrNotFound, id)
	}
	return nil
}

func (r *CatalogRepositoryImpl) GetAdminByEmail(ctx context.Context, email string) (*floor.Admin, error) {
	var a floor.Admin
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: admin %s", floor.ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &a, nil
}

func (r *CatalogRepositoryImpl) ListRooms(ctx context.Context, name string, skip, take int) ([]floor.Room, int64, error) {
	q := r.db.WithContext(ctx).Model(&floor.Room{})
	if name != "" {
		q = q.Where("LOWER(room_name) = ?", strings.ToLower(name))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	var rooms []floor.Room
	if err := q.Order("room_name DESC").Offset(skip).Limit(take).Find(&rooms).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, total, nil
}

func (r *CatalogRepositoryImpl) ListMachines(ctx context.Context, machineNo string, skip, take int) ([]floor.Machine, int64, error) {
	q := r.db.WithContext(ctx).Model(&floor.Machine{})
	if machineNo != "" {
		q = q.Where("LOWER(machine_no) = ?", strings.ToLower(machineNo))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count machines: %w", err)
	}
	var machines []floor.Machine
	if err := q.Order("machine_no DESC").Offset(skip).Limit(take).Find(&machines).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, total, nil
}

func (r *CatalogRepositoryImpl) ListUsersByType(ctx context.Context, userType floor.UserType, search string, skip, take int) ([]floor.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&floor.User{}).Where("user_type = ?", userType)
	if search != "" {
		q = q.Where("LOWER(username) LIKE ?", floor.ContainsPattern(search))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	var users []floor.User
	if err := q.Order("created_at DESC").Offset(skip).Limit(take).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

type gormFundingStore struct {
	ledger.BalanceStore
	tx *gorm.DB
}

func (s *gormFundingStore) MachineNoTaken(ctx context.Context, machineNo string) (bool, error) {
	return nameTaken(s.tx.WithContext(ctx), floor.KindMachine, machineNo)
}

func (s *gormFundingStore) CreateMachine(ctx context.Context, m *floor.Machine) error {
	return create(s.tx.WithContext(ctx), m, floor.KindMachine, m.MachineNo)
}
