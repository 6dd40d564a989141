package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floor_service/internal/floor"
	"floor_service/internal/ledger"
	"floor_service/internal/memstore"
)

func setUp(t *testing.T, adminBalance int64) (*memstore.Store, *ledger.Engine, floor.Admin) {
	t.Helper()
	store := memstore.New()
	admin := store.PutAdmin(floor.Admin{Email: uuid.NewString() + "@floor.test", Balance: floor.Int64(adminBalance)})
	return store, ledger.NewEngine(store.Ledger()), admin
}

func adminBalance(t *testing.T, store *memstore.Store, id string) int64 {
	t.Helper()
	a, ok := store.Admin(id)
	require.True(t, ok)
	return a.CurrentBalance()
}

func TestTransferToUser(t *testing.T) {
	store, engine, admin := setUp(t, 1000)
	user := store.PutUser(floor.User{Username: "u1", Balance: floor.Int64(0)})

	res, err := engine.TransferToTarget(context.Background(), ledger.TransferRequest{
		AdminID:    admin.ID,
		TargetID:   user.ID,
		TargetKind: floor.KindUser,
		Amount:     300,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(700), res.AdminBalance)
	assert.Equal(t, int64(300), res.TargetBalance)
	assert.False(t, res.Replayed)

	require.Equal(t, int64(700), adminBalance(t, store, admin.ID))
	u, _ := store.User(user.ID)
	require.Equal(t, int64(300), u.CurrentBalance())
}

func TestTransferInsufficientFunds(t *testing.T) {
	store, engine, admin := setUp(t, 100)
	user := store.PutUser(floor.User{Username: "u1"})

	_, err := engine.TransferToTarget(context.Background(), ledger.TransferRequest{
		AdminID:    admin.ID,
		TargetID:   user.ID,
		TargetKind: floor.KindUser,
		Amount:     500,
	})
	require.ErrorIs(t, err, floor.ErrInsufficientFunds)
	require.Equal(t, int64(100), adminBalance(t, store, admin.ID))
	u, _ := store.User(user.ID)
	require.Equal(t, int64(0), u.CurrentBalance())
	require.Empty(t, store.Entries())
}

func TestTransferWholeBalance(t *testing.T) {
	store, engine, admin := setUp(t, 250)
	machine := store.PutMachine(floor.Machine{MachineNo: "M-1"})

	res, err := engine.TransferToTarget(context.Background(), ledger.TransferRequest{
		AdminID:    admin.ID,
		TargetID:   machine.ID,
		TargetKind: floor.KindMachine,
		Amount:     250,
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.AdminBalance)
	require.Equal(t, int64(250), res.TargetBalance)
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	store, engine, admin := setUp(t, 100)
	user := store.PutUser(floor.User{Username: "u1", Balance: floor.Int64(5)})

	for _, amount := range []int64{0, -1, -100} {
		_, err := engine.TransferToTarget(context.Background(), ledger.TransferRequest{
			AdminID:    admin.ID,
			TargetID:   user.ID,
			TargetKind: floor.KindUser,
			Amount:     amount,
		})
		require.ErrorIs(t, err, floor.ErrInvalidAmount, "amount %d", amount)

		_, err = engine.ReclaimFromTarget(context.Background(), ledger.TransferRequest{
			AdminID:    admin.ID,
			TargetID:   user.ID,
			TargetKind: floor.KindUser,
			Amount:     amount,
		})
		require.ErrorIs(t, err, floor.ErrInvalidAmount, "amount %d", amount)
	}
	require.Equal(t, int64(100), adminBalance(t, store, admin.ID))
	u, _ := store.User(user.ID)
	require.Equal(t, int64(5), u.CurrentBalance())
}

func TestTransferNotFound(t *testing.T) {
	store, engine, admin := setUp(t, 100)
	user := store.PutUser(floor.User{Username: "u1"})

	tests := []struct {
		name string
		req  ledger.TransferRequest
	}{
		{"missing admin", ledger.TransferRequest{AdminID: uuid.NewString(), TargetID: user.ID, TargetKind: floor.KindUser, Amount: 1}},
		{"missing user", ledger.TransferRequest{AdminID: admin.ID, TargetID: uuid.NewString(), TargetKind: floor.KindUser, Amount: 1}},
		{"missing machine", ledger.TransferRequest{AdminID: admin.ID, TargetID: user.ID, TargetKind: floor.KindMachine, Amount: 1}},
		{"unknown kind", ledger.TransferRequest{AdminID: admin.ID, TargetID: user.ID, TargetKind: floor.KindRoom, Amount: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.TransferToTarget(context.Background(), tt.req)
			require.ErrorIs(t, err, floor.ErrNotFound)
		})
	}
	require.Equal(t, int64(100), adminBalance(t, store, admin.ID))
}

func TestReclaimFromMachine(t *testing.T) {
	store, engine, admin := setUp(t, 50)
	machine := store.PutMachine(floor.Machine{MachineNo: "M-1", Balance: floor.Int64(200)})

	res, err := engine.ReclaimFromTarget(context.Background(), ledger.TransferRequest{
		AdminID:    admin.ID,
		TargetID:   machine.ID,
		TargetKind: floor.KindMachine,
		Amount:     200,
	})
	require.NoError(t, err)
	require.Equal(t, int64(250), res.AdminBalance)
	require.Equal(t, int64(0), res.TargetBalance)

	m, _ := store.Machine(machine.ID)
	require.Equal(t, int64(0), m.CurrentBalance())
	require.Equal(t, int64(250), adminBalance(t, store, admin.ID))
}

func TestReclaimInsufficientFunds(t *testing.T) {
	store, engine, admin := setUp(t, 50)
	empty := store.PutUser(floor.User{Username: "empty"})
	low := store.PutUser(floor.User{Username: "low", Balance: floor.Int64(10)})

	_, err := engine.ReclaimFromTarget(context.Background(), ledger.TransferRequest{
		AdminID: admin.ID, TargetID: empty.ID, TargetKind: floor.KindUser, Amount: 1,
	})
	require.ErrorIs(t, err, floor.ErrInsufficientFunds)

	_, err = engine.ReclaimFromTarget(context.Background(), ledger.TransferRequest{
		AdminID: admin.ID, TargetID: low.ID, TargetKind: floor.KindUser, Amount: 11,
	})
	require.ErrorIs(t, err, floor.ErrInsufficientFunds)

	u, _ := store.User(low.ID)
	require.Equal(t, int64(10), u.CurrentBalance())
	require.Equal(t, int64(50), adminBalance(t, store, admin.ID))
}

func TestCreditAdmin(t *testing.T) {
	store, engine, admin := setUp(t, 0)

	res, err := engine.CreditAdmin(context.Background(), ledger.CreditRequest{AdminID: admin.ID, Amount: 500})
	require.NoError(t, err)
	require.Equal(t, int64(500), res.AdminBalance)
	require.Equal(t, int64(500), adminBalance(t, store, admin.ID))

	_, err = engine.CreditAdmin(context.Background(), ledger.CreditRequest{AdminID: admin.ID, Amount: 0})
	require.ErrorIs(t, err, floor.ErrInvalidAmount)

	_, err = engine.CreditAdmin(context.Background(), ledger.CreditRequest{AdminID: uuid.NewString(), Amount: 1})
	require.ErrorIs(t, err, floor.ErrNotFound)
}

func TestNullBalanceReadsAsZero(t *testing.T) {
	store, engine, admin := setUp(t, 0)
	store.PutAdmin(floor.Admin{ID: admin.ID, Email: admin.Email})
	user := store.PutUser(floor.User{Username: "u1"})

	_, err := engine.TransferToTarget(context.Background(), ledger.TransferRequest{
		AdminID: admin.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 1,
	})
	require.ErrorIs(t, err, floor.ErrInsufficientFunds)

	_, err = engine.CreditAdmin(context.Background(), ledger.CreditRequest{AdminID: admin.ID, Amount: 7})
	require.NoError(t, err)
	a, _ := store.Admin(admin.ID)
	require.NotNil(t, a.Balance)
	require.Equal(t, int64(7), *a.Balance)
}

func TestConservation(t *testing.T) {
	store, engine, admin := setUp(t, 1000)
	user := store.PutUser(floor.User{Username: "u1", Balance: floor.Int64(40)})
	machine := store.PutMachine(floor.Machine{MachineNo: "M-1", Balance: floor.Int64(60)})

	total := func() int64 {
		u, _ := store.User(user.ID)
		m, _ := store.Machine(machine.ID)
		return adminBalance(t, store, admin.ID) + u.CurrentBalance() + m.CurrentBalance()
	}
	before := total()

	ops := []struct {
		reclaim bool
		kind    floor.EntityKind
		id      string
		amount  int64
	}{
		{false, floor.KindUser, user.ID, 300},
		{false, floor.KindMachine, machine.ID, 5000},
		{true, floor.KindMachine, machine.ID, 60},
		{true, floor.KindUser, user.ID, 1000},
		{false, floor.KindMachine, machine.ID, 640},
		{true, floor.KindUser, user.ID, 340},
	}
	for _, op := range ops {
		req := ledger.TransferRequest{AdminID: admin.ID, TargetID: op.id, TargetKind: op.kind, Amount: op.amount}
		if op.reclaim {
			_, _ = engine.ReclaimFromTarget(context.Background(), req)
		} else {
			_, _ = engine.TransferToTarget(context.Background(), req)
		}
		require.Equal(t, before, total())
	}
}

func TestConcurrentTransfers(t *testing.T) {
	store, engine, admin := setUp(t, 50)
	user := store.PutUser(floor.User{Username: "u1"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	failCount := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.TransferToTarget(context.Background(), ledger.TransferRequest{
				AdminID:     admin.ID,
				TargetID:    user.ID,
				TargetKind:  floor.KindUser,
				Amount:      10,
				ReferenceID: uuid.NewString(),
			})
			mu.Lock()
			if err != nil {
				failCount++
			} else {
				successCount++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 5, successCount, "successCount")
	require.Equal(t, 5, failCount, "failCount")
	require.Equal(t, int64(0), adminBalance(t, store, admin.ID))
	u, _ := store.User(user.ID)
	require.Equal(t, int64(50), u.CurrentBalance())
}

func TestIdempotentTransfer(t *testing.T) {
	store, engine, admin := setUp(t, 50)
	user := store.PutUser(floor.User{Username: "u1"})
	req := ledger.TransferRequest{
		AdminID:     admin.ID,
		TargetID:    user.ID,
		TargetKind:  floor.KindUser,
		Amount:      10,
		ReferenceID: uuid.NewString(),
	}

	res1, err := engine.TransferToTarget(context.Background(), req)
	require.NoError(t, err)
	res2, err := engine.TransferToTarget(context.Background(), req)
	require.NoError(t, err)
	res3, err := engine.TransferToTarget(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, res1.EntryID, res2.EntryID)
	require.Equal(t, res2.EntryID, res3.EntryID)
	require.True(t, res3.Replayed)
	require.Equal(t, int64(40), adminBalance(t, store, admin.ID))
	require.Len(t, store.Entries(), 1)
}

func TestJournalAndListEntries(t *testing.T) {
	store, engine, admin := setUp(t, 100)
	user := store.PutUser(floor.User{Username: "u1"})
	ctx := context.Background()

	_, err := engine.TransferToTarget(ctx, ledger.TransferRequest{AdminID: admin.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 30, Note: "shift start"})
	require.NoError(t, err)
	_, err = engine.ReclaimFromTarget(ctx, ledger.TransferRequest{AdminID: admin.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 10})
	require.NoError(t, err)
	_, err = engine.CreditAdmin(ctx, ledger.CreditRequest{AdminID: admin.ID, Amount: 5})
	require.NoError(t, err)

	page, err := engine.ListEntries(ctx, admin.ID, floor.PageRequest{Take: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.Count)
	require.Len(t, page.Data, 2)
	assert.Equal(t, floor.EntryCredit, page.Data[0].Kind)
	assert.Equal(t, floor.EntryReclaim, page.Data[1].Kind)

	first := store.Entries()[0]
	assert.Equal(t, floor.EntryTransfer, first.Kind)
	assert.Equal(t, int64(100), first.AdminBalanceBefore)
	assert.Equal(t, int64(70), first.AdminBalanceAfter)
	require.NotNil(t, first.TargetBalanceAfter)
	assert.Equal(t, int64(30), *first.TargetBalanceAfter)
	assert.JSONEq(t, `{"note":"shift start"}`, string(first.Metadata))

	empty, err := engine.ListEntries(ctx, uuid.NewString(), floor.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(0), empty.Count)
	require.NotNil(t, empty.Data)
	require.Equal(t, floor.DefaultTake, empty.Take)
}

func TestAudit(t *testing.T) {
	store, engine, _ := setUp(t, 10)
	bad := store.PutMachine(floor.Machine{MachineNo: "M-bad", Balance: floor.Int64(-5)})

	violations, err := engine.Audit(context.Background())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Equal(t, ledger.BalanceViolation{Kind: floor.KindMachine, ID: bad.ID, Balance: -5}, violations[0])
}

func TestReferenceBoundToFirstOperation(t *testing.T) {
	store, engine, adminA := setUp(t, 1000)
	adminB := store.PutAdmin(floor.Admin{Email: "b@floor.test", Balance: floor.Int64(1000)})
	user := store.PutUser(floor.User{Username: "u1"})
	ctx := context.Background()
	ref := uuid.NewString()

	_, err := engine.TransferToTarget(ctx, ledger.TransferRequest{
		AdminID: adminA.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 300, ReferenceID: ref,
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() (*ledger.TransferResult, error)
	}{
		{"reclaim with transfer reference", func() (*ledger.TransferResult, error) {
			return engine.ReclaimFromTarget(ctx, ledger.TransferRequest{
				AdminID: adminA.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 100, ReferenceID: ref,
			})
		}},
		{"transfer by another admin", func() (*ledger.TransferResult, error) {
			return engine.TransferToTarget(ctx, ledger.TransferRequest{
				AdminID: adminB.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 300, ReferenceID: ref,
			})
		}},
		{"transfer with another amount", func() (*ledger.TransferResult, error) {
			return engine.TransferToTarget(ctx, ledger.TransferRequest{
				AdminID: adminA.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 5, ReferenceID: ref,
			})
		}},
		{"credit with transfer reference", func() (*ledger.TransferResult, error) {
			return engine.CreditAdmin(ctx, ledger.CreditRequest{AdminID: adminA.ID, Amount: 300, ReferenceID: ref})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.call()
			require.ErrorIs(t, err, floor.ErrDuplicateName)
			require.Nil(t, res)
		})
	}

	require.Equal(t, int64(700), adminBalance(t, store, adminA.ID))
	require.Equal(t, int64(1000), adminBalance(t, store, adminB.ID))
	u, _ := store.User(user.ID)
	require.Equal(t, int64(300), u.CurrentBalance())
	require.Len(t, store.Entries(), 1)

	res, err := engine.TransferToTarget(ctx, ledger.TransferRequest{
		AdminID: adminA.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 300, ReferenceID: ref,
	})
	require.NoError(t, err)
	require.True(t, res.Replayed)
}

var errDiskGone = errors.New("disk gone")

// faultyStore fails the named write after the writes before it succeeded.
type faultyStore struct {
	ledger.BalanceStore
	failOn string
}

func (s faultyStore) SetUserBalance(ctx context.Context, id string, balance int64) error {
	if s.failOn == "user" {
		return errDiskGone
	}
	return s.BalanceStore.SetUserBalance(ctx, id, balance)
}

func (s faultyStore) SetMachineBalance(ctx context.Context, id string, balance int64) error {
	if s.failOn == "machine" {
		return errDiskGone
	}
	return s.BalanceStore.SetMachineBalance(ctx, id, balance)
}

func (s faultyStore) CreateEntry(ctx context.Context, entry *floor.LedgerEntry) error {
	if s.failOn == "entry" {
		return errDiskGone
	}
	return s.BalanceStore.CreateEntry(ctx, entry)
}

type faultyRepository struct {
	ledger.LedgerRepository
	failOn string
}

func (r faultyRepository) Atomic(ctx context.Context, fn func(ledger.BalanceStore) error) error {
	return r.LedgerRepository.Atomic(ctx, func(s ledger.BalanceStore) error {
		return fn(faultyStore{BalanceStore: s, failOn: r.failOn})
	})
}

// lookupMiss reports every reference as unused, as when the committed row is
// not yet visible to the lookup.
type lookupMiss struct {
	ledger.LedgerRepository
}

func (lookupMiss) GetEntryByReference(ctx context.Context, referenceID string) (*floor.LedgerEntry, error) {
	return nil, nil
}

func TestWriteFailureRollsBackAtomicUnit(t *testing.T) {
	tests := []struct {
		name    string
		failOn  string
		kind    floor.EntityKind
		reclaim bool
	}{
		{"transfer fails crediting user", "user", floor.KindUser, false},
		{"transfer fails crediting machine", "machine", floor.KindMachine, false},
		{"transfer fails writing journal", "entry", floor.KindUser, false},
		{"reclaim fails writing journal", "entry", floor.KindMachine, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			admin := store.PutAdmin(floor.Admin{Email: "a@floor.test", Balance: floor.Int64(1000)})
			user := store.PutUser(floor.User{Username: "u1", Balance: floor.Int64(200)})
			machine := store.PutMachine(floor.Machine{MachineNo: "M-1", Balance: floor.Int64(200)})
			engine := ledger.NewEngine(faultyRepository{LedgerRepository: store.Ledger(), failOn: tt.failOn})

			targetID := user.ID
			if tt.kind == floor.KindMachine {
				targetID = machine.ID
			}
			req := ledger.TransferRequest{AdminID: admin.ID, TargetID: targetID, TargetKind: tt.kind, Amount: 150}

			var err error
			if tt.reclaim {
				_, err = engine.ReclaimFromTarget(context.Background(), req)
			} else {
				_, err = engine.TransferToTarget(context.Background(), req)
			}
			require.ErrorIs(t, err, errDiskGone)
			require.Equal(t, floor.CodeInternal, floor.CodeOf(err))

			require.Equal(t, int64(1000), adminBalance(t, store, admin.ID))
			u, _ := store.User(user.ID)
			require.Equal(t, int64(200), u.CurrentBalance())
			m, _ := store.Machine(machine.ID)
			require.Equal(t, int64(200), m.CurrentBalance())
			require.Empty(t, store.Entries())
		})
	}
}

func TestReferenceConflictWithoutRecordedEntry(t *testing.T) {
	store, _, admin := setUp(t, 1000)
	user := store.PutUser(floor.User{Username: "u1"})
	ctx := context.Background()
	ref := uuid.NewString()

	_, err := ledger.NewEngine(store.Ledger()).CreditAdmin(ctx, ledger.CreditRequest{AdminID: admin.ID, Amount: 1, ReferenceID: ref})
	require.NoError(t, err)

	engine := ledger.NewEngine(lookupMiss{store.Ledger()})
	res, err := engine.TransferToTarget(ctx, ledger.TransferRequest{
		AdminID: admin.ID, TargetID: user.ID, TargetKind: floor.KindUser, Amount: 10, ReferenceID: ref,
	})
	require.ErrorIs(t, err, floor.ErrDuplicateName)
	require.Nil(t, res)

	res, err = engine.CreditAdmin(ctx, ledger.CreditRequest{AdminID: admin.ID, Amount: 1, ReferenceID: ref})
	require.ErrorIs(t, err, floor.ErrDuplicateName)
	require.Nil(t, res)

	require.Equal(t, int64(1001), adminBalance(t, store, admin.ID))
	require.Len(t, store.Entries(), 1)
}
