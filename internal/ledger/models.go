package ledger

import (
	"time"

	"floor_service/internal/floor"
)

type TransferRequest struct {
	AdminID     string           `json:"admin_id"`
	TargetID    string           `json:"target_id"`
	TargetKind  floor.EntityKind `json:"target_kind"` // "User" or "Machine"
	Amount      int64            `json:"amount"`
	ReferenceID string           `json:"reference_id"` // optional, replays return the recorded result
	Note        string           `json:"note"`
}

type CreditRequest struct {
	AdminID     string `json:"admin_id"`
	Amount      int64  `json:"amount"`
	ReferenceID string `json:"reference_id"`
	Note        string `json:"note"`
}

type TransferResult struct {
	EntryID       string           `json:"entry_id"`
	Kind          string           `json:"kind"`
	AdminID       string           `json:"admin_id"`
	AdminBalance  int64            `json:"admin_balance"`
	TargetKind    floor.EntityKind `json:"target_kind,omitempty"`
	TargetID      string           `json:"target_id,omitempty"`
	TargetBalance int64            `json:"target_balance"`
	Amount        int64            `json:"amount"`
	Replayed      bool             `json:"replayed"`
	CreatedAt     time.Time        `json:"created_at"`
}

// BalanceViolation is a row found below zero by the audit.
type BalanceViolation struct {
	Kind    floor.EntityKind `json:"kind"`
	ID      string           `json:"id"`
	Balance int64            `json:"balance"`
}

func resultFromEntry(e *floor.LedgerEntry, replayed bool) *TransferResult {
	res := &TransferResult{
		EntryID:      e.ID,
		Kind:         e.Kind,
		AdminID:      e.AdminID,
		AdminBalance: e.AdminBalanceAfter,
		Amount:       e.Amount,
		Replayed:     replayed,
		CreatedAt:    e.CreatedAt,
	}
	if e.TargetKind != nil {
		res.TargetKind = *e.TargetKind
	}
	if e.TargetID != nil {
		res.TargetID = *e.TargetID
	}
	if e.TargetBalanceAfter != nil {
		res.TargetBalance = *e.TargetBalanceAfter
	}
	return res
}
