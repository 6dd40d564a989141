package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"floor_service/internal/floor"
)

// Engine moves balance between an admin and a user or machine. Each call is
// one transaction; the engine never retries, callers may retry the whole call.
type Engine struct {
	repo LedgerRepository
}

func NewEngine(repo LedgerRepository) *Engine {
	return &Engine{repo: repo}
}

// TransferToTarget debits the admin and credits the target by req.Amount.
// An amount equal to the admin balance is allowed.
func (e *Engine) TransferToTarget(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d", floor.ErrInvalidAmount, req.Amount)
	}
	op := transferOperation(floor.EntryTransfer, req)
	if replay, err := e.replay(ctx, op); replay != nil || err != nil {
		return replay, err
	}

	var entry *floor.LedgerEntry
	err := e.repo.Atomic(ctx, func(s BalanceStore) error {
		// admin row is always locked first so concurrent transfers cannot deadlock
		admin, err := s.LockAdmin(ctx, req.AdminID)
		if err != nil {
			return err
		}
		targetBefore, err := lockTarget(ctx, s, req.TargetKind, req.TargetID)
		if err != nil {
			return err
		}

		adminBefore := admin.CurrentBalance()
		newAdminBalance := adminBefore - req.Amount
		if newAdminBalance < 0 {
			return fmt.Errorf("%w: admin %s has %d, needs %d", floor.ErrInsufficientFunds, req.AdminID, adminBefore, req.Amount)
		}
		if targetBefore > math.MaxInt64-req.Amount {
			return fmt.Errorf("%w: target balance would overflow", floor.ErrInvalidAmount)
		}
		targetAfter := targetBefore + req.Amount

		if err := s.SetAdminBalance(ctx, req.AdminID, newAdminBalance); err != nil {
			return err
		}
		if err := setTarget(ctx, s, req.TargetKind, req.TargetID, targetAfter); err != nil {
			return err
		}

		entry = newEntry(floor.EntryTransfer, req.AdminID, req.ReferenceID, req.Note, req.Amount, adminBefore, newAdminBalance)
		withTarget(entry, req.TargetKind, req.TargetID, targetBefore, targetAfter)
		return s.CreateEntry(ctx, entry)
	})
	if err != nil {
		return e.failed(ctx, op, req, err)
	}

	log.WithFields(log.Fields{
		"admin_id":  req.AdminID,
		"target_id": req.TargetID,
		"kind":      req.TargetKind,
		"amount":    req.Amount,
	}).Info("balance transferred to target")
	return resultFromEntry(entry, false), nil
}

// ReclaimFromTarget moves req.Amount from the target back to the admin. The
// target balance is set from the locked value, not decremented in SQL.
func (e *Engine) ReclaimFromTarget(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d", floor.ErrInvalidAmount, req.Amount)
	}
	op := transferOperation(floor.EntryReclaim, req)
	if replay, err := e.replay(ctx, op); replay != nil || err != nil {
		return replay, err
	}

	var entry *floor.LedgerEntry
	err := e.repo.Atomic(ctx, func(s BalanceStore) error {
		admin, err := s.LockAdmin(ctx, req.AdminID)
		if err != nil {
			return err
		}
		targetBefore, err := lockTarget(ctx, s, req.TargetKind, req.TargetID)
		if err != nil {
			return err
		}

		if targetBefore == 0 || targetBefore < req.Amount {
			return fmt.Errorf("%w: %s %s has %d, needs %d", floor.ErrInsufficientFunds, req.TargetKind, req.TargetID, targetBefore, req.Amount)
		}
		adminBefore := admin.CurrentBalance()
		if adminBefore > math.MaxInt64-req.Amount {
			return fmt.Errorf("%w: admin balance would overflow", floor.ErrInvalidAmount)
		}
		targetAfter := targetBefore - req.Amount
		adminAfter := adminBefore + req.Amount

		if err := setTarget(ctx, s, req.TargetKind, req.TargetID, targetAfter); err != nil {
			return err
		}
		if err := s.SetAdminBalance(ctx, req.AdminID, adminAfter); err != nil {
			return err
		}

		entry = newEntry(floor.EntryReclaim, req.AdminID, req.ReferenceID, req.Note, req.Amount, adminBefore, adminAfter)
		withTarget(entry, req.TargetKind, req.TargetID, targetBefore, targetAfter)
		return s.CreateEntry(ctx, entry)
	})
	if err != nil {
		return e.failed(ctx, op, req, err)
	}

	log.WithFields(log.Fields{
		"admin_id":  req.AdminID,
		"target_id": req.TargetID,
		"kind":      req.TargetKind,
		"amount":    req.Amount,
	}).Info("balance reclaimed from target")
	return resultFromEntry(entry, false), nil
}

// CreditAdmin tops up an admin's pool from a funding source outside the ledger.
func (e *Engine) CreditAdmin(ctx context.Context, req CreditRequest) (*TransferResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d", floor.ErrInvalidAmount, req.Amount)
	}
	op := operation{kind: floor.EntryCredit, adminID: req.AdminID, amount: req.Amount, referenceID: req.ReferenceID}
	if replay, err := e.replay(ctx, op); replay != nil || err != nil {
		return replay, err
	}

	var entry *floor.LedgerEntry
	err := e.repo.Atomic(ctx, func(s BalanceStore) error {
		admin, err := s.LockAdmin(ctx, req.AdminID)
		if err != nil {
			return err
		}
		before := admin.CurrentBalance()
		if before > math.MaxInt64-req.Amount {
			return fmt.Errorf("%w: admin balance would overflow", floor.ErrInvalidAmount)
		}
		after := before + req.Amount
		if err := s.SetAdminBalance(ctx, req.AdminID, after); err != nil {
			return err
		}
		entry = newEntry(floor.EntryCredit, req.AdminID, req.ReferenceID, req.Note, req.Amount, before, after)
		return s.CreateEntry(ctx, entry)
	})
	if err != nil {
		if res, rerr := e.replayConflict(ctx, op, err); res != nil || rerr != nil {
			return res, rerr
		}
		log.WithError(err).WithField("admin_id", req.AdminID).Warn("admin credit rejected")
		return nil, err
	}

	log.WithFields(log.Fields{"admin_id": req.AdminID, "amount": req.Amount}).Info("admin credited")
	return resultFromEntry(entry, false), nil
}

// ListEntries pages an admin's journal, newest first.
func (e *Engine) ListEntries(ctx context.Context, adminID string, page floor.PageRequest) (*floor.Page[floor.LedgerEntry], error) {
	page = page.Normalize(0, 0)
	entries, total, err := e.repo.ListEntries(ctx, adminID, page.Skip, page.Take)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []floor.LedgerEntry{}
	}
	return &floor.Page[floor.LedgerEntry]{Count: total, Skip: page.Skip, Take: page.Take, Data: entries}, nil
}

// Audit reports every balance below zero. A non-empty result means a write
// bypassed the engine.
func (e *Engine) Audit(ctx context.Context) ([]BalanceViolation, error) {
	violations, err := e.repo.FindNegativeBalances(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range violations {
		log.WithFields(log.Fields{"kind": v.Kind, "id": v.ID, "balance": v.Balance}).Error("negative balance found")
	}
	return violations, nil
}

// operation is what a reference id is bound to. A reference may only be
// replayed by the same operation that first recorded it.
type operation struct {
	kind        string
	adminID     string
	targetKind  floor.EntityKind
	targetID    string
	amount      int64
	referenceID string
}

func transferOperation(kind string, req TransferRequest) operation {
	return operation{
		kind:        kind,
		adminID:     req.AdminID,
		targetKind:  req.TargetKind,
		targetID:    req.TargetID,
		amount:      req.Amount,
		referenceID: req.ReferenceID,
	}
}

func (o operation) matches(e *floor.LedgerEntry) bool {
	var targetKind floor.EntityKind
	if e.TargetKind != nil {
		targetKind = *e.TargetKind
	}
	var targetID string
	if e.TargetID != nil {
		targetID = *e.TargetID
	}
	return e.Kind == o.kind &&
		e.AdminID == o.adminID &&
		e.Amount == o.amount &&
		targetKind == o.targetKind &&
		targetID == o.targetID
}

// replay returns the recorded result for op's reference, nil when the
// reference is unused, or ErrDuplicateName when another operation owns it.
func (e *Engine) replay(ctx context.Context, op operation) (*TransferResult, error) {
	if op.referenceID == "" {
		return nil, nil
	}
	existing, err := e.repo.GetEntryByReference(ctx, op.referenceID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if !op.matches(existing) {
		log.WithFields(log.Fields{
			"reference_id": op.referenceID,
			"kind":         op.kind,
			"admin_id":     op.adminID,
		}).Warn("reference reused by a different ledger operation")
		return nil, fmt.Errorf("%w: reference %q already used by another ledger operation", floor.ErrDuplicateName, op.referenceID)
	}
	log.WithField("reference_id", op.referenceID).Debug("ledger entry already recorded")
	return resultFromEntry(existing, true), nil
}

// replayConflict resolves a unique index hit on the reference after a
// concurrent call committed first. A nil result with a nil error means err
// stands as is.
func (e *Engine) replayConflict(ctx context.Context, op operation, err error) (*TransferResult, error) {
	if !errors.Is(err, floor.ErrDuplicateName) || op.referenceID == "" {
		return nil, nil
	}
	return e.replay(ctx, op)
}

func (e *Engine) failed(ctx context.Context, op operation, req TransferRequest, err error) (*TransferResult, error) {
	if res, rerr := e.replayConflict(ctx, op, err); res != nil || rerr != nil {
		return res, rerr
	}
	entry := log.WithError(err).WithFields(log.Fields{
		"admin_id":  req.AdminID,
		"target_id": req.TargetID,
		"kind":      req.TargetKind,
		"amount":    req.Amount,
	})
	if floor.CodeOf(err) == floor.CodeInternal {
		entry.Error(op.kind + " failed")
	} else {
		entry.Warn(op.kind + " rejected")
	}
	return nil, err
}

func lockTarget(ctx context.Context, s BalanceStore, kind floor.EntityKind, id string) (int64, error) {
	switch kind {
	case floor.KindUser:
		u, err := s.LockUser(ctx, id)
		if err != nil {
			return 0, err
		}
		return u.CurrentBalance(), nil
	case floor.KindMachine:
		m, err := s.LockMachine(ctx, id)
		if err != nil {
			return 0, err
		}
		return m.CurrentBalance(), nil
	default:
		return 0, fmt.Errorf("%w: no balance target of kind %q", floor.ErrNotFound, kind)
	}
}

func setTarget(ctx context.Context, s BalanceStore, kind floor.EntityKind, id string, balance int64) error {
	switch kind {
	case floor.KindUser:
		return s.SetUserBalance(ctx, id, balance)
	case floor.KindMachine:
		return s.SetMachineBalance(ctx, id, balance)
	default:
		return fmt.Errorf("%w: no balance target of kind %q", floor.ErrNotFound, kind)
	}
}

func newEntry(kind, adminID, referenceID, note string, amount, adminBefore, adminAfter int64) *floor.LedgerEntry {
	e := &floor.LedgerEntry{
		Kind:               kind,
		AdminID:            adminID,
		Amount:             amount,
		AdminBalanceBefore: adminBefore,
		AdminBalanceAfter:  adminAfter,
		ReferenceID:        floor.String(referenceID),
		CreatedAt:          time.Now().UTC(),
	}
	if note != "" {
		if raw, err := json.Marshal(map[string]string{"note": note}); err == nil {
			e.Metadata = datatypes.JSON(raw)
		}
	}
	return e
}

func withTarget(e *floor.LedgerEntry, kind floor.EntityKind, id string, before, after int64) {
	e.TargetKind = &kind
	e.TargetID = floor.String(id)
	e.TargetBalanceBefore = floor.Int64(before)
	e.TargetBalanceAfter = floor.Int64(after)
}
