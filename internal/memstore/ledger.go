package memstore

import (
	"context"
	"slices"

	"floor_service/internal/floor"
	"floor_service/internal/ledger"
)

type ledgerRepository struct{ s *Store }

// Ledger returns the ledger repository view of the store.
func (s *Store) Ledger() ledger.LedgerRepository { return ledgerRepository{s} }

func (r ledgerRepository) Atomic(ctx context.Context, fn func(ledger.BalanceStore) error) error {
	return r.s.atomic(ctx, func(t *tx) error { return fn(t) })
}

func (r ledgerRepository) GetEntryByReference(ctx context.Context, referenceID string) (*floor.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ReferenceID != nil && *e.ReferenceID == referenceID {
			return &e, nil
		}
	}
	return nil, nil
}

func (r ledgerRepository) ListEntries(ctx context.Context, adminID string, skip, take int) ([]floor.LedgerEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []floor.LedgerEntry
	for _, e := range r.s.entries {
		if e.AdminID == adminID {
			out = append(out, e)
		}
	}
	// journal is append-only, so reversing gives newest first
	slices.Reverse(out)
	return paginate(out, skip, take), int64(len(out)), nil
}

func (r ledgerRepository) FindNegativeBalances(ctx context.Context) ([]ledger.BalanceViolation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []ledger.BalanceViolation
	for id, a := range r.s.admins {
		if b := a.CurrentBalance(); b < 0 {
			out = append(out, ledger.BalanceViolation{Kind: floor.KindAdmin, ID: id, Balance: b})
		}
	}
	for id, u := range r.s.users {
		if b := u.CurrentBalance(); b < 0 {
			out = append(out, ledger.BalanceViolation{Kind: floor.KindUser, ID: id, Balance: b})
		}
	}
	for id, m := range r.s.machines {
		if b := m.CurrentBalance(); b < 0 {
			out = append(out, ledger.BalanceViolation{Kind: floor.KindMachine, ID: id, Balance: b})
		}
	}
	return out, nil
}
