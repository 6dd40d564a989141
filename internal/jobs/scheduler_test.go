package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"floor_service/internal/floor"
	"floor_service/internal/ledger"
)

type fakeAuditor struct {
	violations []ledger.BalanceViolation
	err        error
	calls      int
}

func (f *fakeAuditor) Audit(context.Context) ([]ledger.BalanceViolation, error) {
	f.calls++
	return f.violations, f.err
}

func TestRunAudit(t *testing.T) {
	auditor := &fakeAuditor{violations: []ledger.BalanceViolation{{Kind: floor.KindUser, ID: "u1", Balance: -1}}}
	s := NewScheduler(auditor, "")

	require.Equal(t, 1, s.RunAudit(context.Background()))
	require.Equal(t, 1, auditor.calls)

	auditor.err = errors.New("db down")
	require.Equal(t, 0, s.RunAudit(context.Background()))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&fakeAuditor{}, "every now and then")
	require.Error(t, s.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeAuditor{}, "@every 1h")
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
