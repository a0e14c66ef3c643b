package withdrawals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/notifications/notifytest"
)

// memStore держит балансы в памяти и считает обращения.
type memStore struct {
	calls    int
	kyc      map[uuid.UUID]string
	balances map[uuid.UUID]decimal.Decimal
	items    map[uuid.UUID]*Withdrawal
}

func newMemStore() *memStore {
	return &memStore{
		kyc:      map[uuid.UUID]string{},
		balances: map[uuid.UUID]decimal.Decimal{},
		items:    map[uuid.UUID]*Withdrawal{},
	}
}

func (m *memStore) KYCStatus(_ context.Context, userID uuid.UUID) (string, error) {
	m.calls++
	status, ok := m.kyc[userID]
	if !ok {
		return "", common.ErrUserNotFound
	}
	return status, nil
}

func (m *memStore) Create(_ context.Context, w *Withdrawal) error {
	m.calls++
	if m.balances[w.UserID].LessThan(w.Amount) {
		return common.ErrInsufficientBalance
	}
	m.balances[w.UserID] = m.balances[w.UserID].Sub(w.Amount)
	w.CreatedAt = time.Now()
	cp := *w
	m.items[w.ID] = &cp
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*Withdrawal, error) {
	m.calls++
	var out []*Withdrawal
	for _, w := range m.items {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) List(context.Context, ListFilter) ([]*Withdrawal, int, error) {
	m.calls++
	return nil, 0, nil
}

func (m *memStore) Process(_ context.Context, id, operatorID uuid.UUID, d Decision, now time.Time) (*Processed, error) {
	m.calls++
	w, ok := m.items[id]
	if !ok {
		return nil, common.ErrWithdrawalNotFound
	}
	if w.Status != StatusPending {
		return nil, common.ErrWithdrawalProcessed
	}
	w.Status = StatusCompleted
	if d == DecisionReject {
		w.Status = StatusRejected
		m.balances[w.UserID] = m.balances[w.UserID].Add(w.Amount)
	}
	w.ProcessedAt = &now
	w.ProcessedBy = &operatorID
	cp := *w
	return &Processed{Withdrawal: &cp, OwnerEmail: "owner@example.com"}, nil
}

func newTestService() (*Service, *memStore, *notifytest.Recorder) {
	store := newMemStore()
	rec := &notifytest.Recorder{}
	return NewService(store, rec, decimal.NewFromInt(200)), store, rec
}

func cryptoRequest(amount int64) Request {
	return Request{
		Amount:        decimal.NewFromInt(amount),
		PaymentOption: "Bitcoin",
		WalletAddress: "bc1qexample",
	}
}

func TestCreate_BelowMinimumNeverTouchesStore(t *testing.T) {
	svc, store, rec := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), cryptoRequest(199))
	assert.ErrorIs(t, err, common.ErrBelowMinimumWithdrawal)

	_, err = svc.Create(ctx, uuid.New(), cryptoRequest(0))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, uuid.New(), cryptoRequest(-5))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	assert.Zero(t, store.calls)
	assert.Empty(t, rec.Messages)
}

func TestCreate_PaymentDetails(t *testing.T) {
	svc, store, _ := newTestService()

	err := svc.Validate(Request{Amount: decimal.NewFromInt(500), PaymentOption: PaymentBankTransfer, BankName: "ACME"})
	assert.ErrorIs(t, err, common.ErrMissingBankDetails)

	err = svc.Validate(Request{Amount: decimal.NewFromInt(500), PaymentOption: "Ethereum"})
	assert.ErrorIs(t, err, common.ErrMissingWalletAddress)

	err = svc.Validate(Request{
		Amount:            decimal.NewFromInt(500),
		PaymentOption:     PaymentBankTransfer,
		BankName:          "ACME",
		BankAccountNumber: "123456",
		BankAccountName:   "Jane Doe",
	})
	assert.NoError(t, err)
	assert.Zero(t, store.calls)
}

func TestCreate_RequiresApprovedKYC(t *testing.T) {
	svc, store, _ := newTestService()
	user := uuid.New()
	store.kyc[user] = "submitted"
	store.balances[user] = decimal.NewFromInt(1000)

	_, err := svc.Create(context.Background(), user, cryptoRequest(300))
	assert.ErrorIs(t, err, common.ErrKYCRequired)
	assert.True(t, store.balances[user].Equal(decimal.NewFromInt(1000)))
}

func TestCreate_DebitsBalance(t *testing.T) {
	svc, store, rec := newTestService()
	user := uuid.New()
	store.kyc[user] = kycApproved
	store.balances[user] = decimal.NewFromInt(500)

	w, err := svc.Create(context.Background(), user, cryptoRequest(300))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, w.Status)
	assert.Equal(t, "bc1qexample", w.WalletAddress)
	assert.True(t, store.balances[user].Equal(decimal.NewFromInt(200)))
	assert.Equal(t, []string{"Withdrawal Requested"}, rec.Titles())
	assert.Len(t, rec.Alerts, 1)

	_, err = svc.Create(context.Background(), user, cryptoRequest(300))
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
}

func TestProcess_RejectRefunds(t *testing.T) {
	svc, store, rec := newTestService()
	ctx := context.Background()
	user := uuid.New()
	store.kyc[user] = kycApproved
	store.balances[user] = decimal.NewFromInt(400)

	w, err := svc.Create(ctx, user, cryptoRequest(250))
	require.NoError(t, err)

	done, err := svc.Process(ctx, w.ID, uuid.New(), DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, done.Status)
	assert.True(t, store.balances[user].Equal(decimal.NewFromInt(400)))
	assert.Contains(t, rec.Titles(), "Withdrawal Rejected")
	require.Len(t, rec.Emails, 1)
	assert.Equal(t, "withdrawal_rejected", rec.Emails[0].Kind)

	_, err = svc.Process(ctx, w.ID, uuid.New(), DecisionApprove)
	assert.ErrorIs(t, err, common.ErrWithdrawalProcessed)
}

func TestProcess_UnknownDecision(t *testing.T) {
	svc, store, _ := newTestService()
	_, err := svc.Process(context.Background(), uuid.New(), uuid.New(), "maybe")
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
	assert.Zero(t, store.calls)
}
