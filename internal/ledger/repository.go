package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"floor_service/internal/floor"
)

// BalanceStore is the view of the balance tables inside one transaction.
// Lock* reads take a row lock held until the transaction ends.
type BalanceStore interface {
	LockAdmin(ctx context.Context, id string) (*floor.Admin, error)
	LockUser(ctx context.Context, id string) (*floor.User, error)
	LockMachine(ctx context.Context, id string) (*floor.Machine, error)
	SetAdminBalance(ctx context.Context, id string, balance int64) error
	SetUserBalance(ctx context.Context, id string, balance int64) error
	SetMachineBalance(ctx context.Context, id string, balance int64) error
	CreateEntry(ctx context.Context, entry *floor.LedgerEntry) error
}

type LedgerRepository interface {
	// Atomic runs fn in one transaction. Any error from fn rolls back every
	// write fn made.
	Atomic(ctx context.Context, fn func(BalanceStore) error) error
	GetEntryByReference(ctx context.Context, referenceID string) (*floor.LedgerEntry, error)
	ListEntries(ctx context.Context, adminID string, skip, take int) ([]floor.LedgerEntry, int64, error)
	FindNegativeBalances(ctx context.Context) ([]BalanceViolation, error)
}

type LedgerRepositoryImpl struct {
	db *gorm.DB
}

func NewLedgerRepositoryImpl(db *gorm.DB) LedgerRepository {
	return &LedgerRepositoryImpl{db: db}
}

func (r *LedgerRepositoryImpl) Atomic(ctx context.Context, fn func(BalanceStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		return fn(NewBalanceStore(dbtx))
	})
}

func (r *LedgerRepositoryImpl) GetEntryByReference(ctx context.Context, referenceID string) (*floor.LedgerEntry, error) {
	var e floor.LedgerEntry
	err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &e, nil
}

func (r *LedgerRepositoryImpl) ListEntries(ctx context.Context, adminID string, skip, take int) ([]floor.LedgerEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&floor.LedgerEntry{}).Where("admin_id = ?", adminID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	var entries []floor.LedgerEntry
	if err := q.Order("created_at DESC").Offset(skip).Limit(take).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, total, nil
}

func (r *LedgerRepositoryImpl) FindNegativeBalances(ctx context.Context) ([]BalanceViolation, error) {
	var out []BalanceViolation
	tables := []struct {
		kind  floor.EntityKind
		model any
	}{
		{floor.KindAdmin, &floor.Admin{}},
		{floor.KindUser, &floor.User{}},
		{floor.KindMachine, &floor.Machine{}},
	}
	for _, t := range tables {
		var rows []struct {
			ID      string
			Balance int64
		}
		err := r.db.WithContext(ctx).Model(t.model).
			Select("id, balance").
			Where("balance < 0").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s balances: %w", t.kind, err)
		}
		for _, row := range rows {
			out = append(out, BalanceViolation{Kind: t.kind, ID: row.ID, Balance: row.Balance})
		}
	}
	return out, nil
}

type gormBalanceStore struct {
	tx *gorm.DB
}

// NewBalanceStore wraps an open transaction, for repositories that move
// balance as part of a larger write.
func NewBalanceStore(tx *gorm.DB) BalanceStore {
	return &gormBalanceStore{tx: tx}
}

func (s *gormBalanceStore) LockAdmin(ctx context.Context, id string) (*floor.Admin, error) {
	var a floor.Admin
	if err := s.lock(ctx, id, &a); err != nil {
		return nil, notFound(err, "admin", id)
	}
	return &a, nil
}

func (s *gormBalanceStore) LockUser(ctx context.Context, id string) (*floor.User, error) {
	var u floor.User
	if err := s.lock(ctx, id, &u); err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

func (s *gormBalanceStore) LockMachine(ctx context.Context, id string) (*floor.Machine, error) {
	var m floor.Machine
	if err := s.lock(ctx, id, &m); err != nil {
		return nil, notFound(err, "machine", id)
	}
	return &m, nil
}

func (s *gormBalanceStore) lock(ctx context.Context, id string, dest any) error {
	return s.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(dest).Error
}

func (s *gormBalanceStore) SetAdminBalance(ctx context.Context, id string, balance int64) error {
	return s.setBalance(ctx, &floor.Admin{}, "admin", id, balance)
}

func (s *gormBalanceStore) SetUserBalance(ctx context.Context, id string, balance int64) error {
	return s.setBalance(ctx, &floor.User{}, "user", id, balance)
}

func (s *gormBalanceStore) SetMachineBalance(ctx context.Context, id string, balance int64) error {
	return s.setBalance(ctx, &floor.Machine{}, "machine", id, balance)
}

func (s *gormBalanceStore) setBalance(ctx context.Context, model any, what, id string, balance int64) error {
	result := s.tx.WithContext(ctx).Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":    balance,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update %s balance: %w", what, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", floor.ErrNotFound, what, id)
	}
	return nil
}

func (s *gormBalanceStore) CreateEntry(ctx context.Context, entry *floor.LedgerEntry) error {
	if err := s.tx.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: reference already recorded", floor.ErrDuplicateName)
		}
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", floor.ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to lock %s: %w", what, err)
}
