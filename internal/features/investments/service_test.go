package investments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/notifications"
	"serotonyl.ru/invest-platform/internal/features/notifications/notifytest"
)

// memStore — хранилище в памяти с той же семантикой блокировок, что и Repository:
// Approve и Accrue выполняются под одним мьютексом.
type memStore struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*Investment
	balances map[uuid.UUID]decimal.Decimal
	bonuses  map[uuid.UUID]decimal.Decimal
	runs     []*AccrualRun
	failOn   map[uuid.UUID]error
}

func newMemStore() *memStore {
	return &memStore{
		items:    make(map[uuid.UUID]*Investment),
		balances: make(map[uuid.UUID]decimal.Decimal),
		bonuses:  make(map[uuid.UUID]decimal.Decimal),
		failOn:   make(map[uuid.UUID]error),
	}
}

func (m *memStore) Create(_ context.Context, inv *Investment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	cp.IDNum = 10000001
	m.items[inv.ID] = &cp
	inv.IDNum = cp.IDNum
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[id]
	if !ok {
		return nil, common.ErrInvestmentNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Investment
	for _, inv := range m.items {
		if inv.UserID == userID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]*Investment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Investment
	for _, inv := range m.items {
		if f.Status == "" || inv.Status == f.Status {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memStore) ListActiveIDs(_ context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, inv := range m.items {
		if inv.Status == StatusActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) Approve(_ context.Context, id, operatorID uuid.UUID, now time.Time, terms func(*Investment) Terms) (*Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[id]
	if !ok {
		return nil, common.ErrInvestmentNotFound
	}
	if inv.Status != StatusPending {
		return nil, common.ErrInvalidTransition
	}
	t := terms(inv)
	inv.Status = StatusActive
	inv.Roi, inv.Bonus = t.Roi, t.Bonus
	inv.DailyRate, inv.DurationDays = t.DailyRate, t.DurationDays
	inv.PlanFallback = t.Resolution.Fallback
	inv.ApprovedAt, inv.ApprovedBy = &now, &operatorID
	m.balances[inv.UserID] = m.balances[inv.UserID].Add(inv.Capital)

	cp := *inv
	return &Approval{Investment: &cp, Terms: t, OwnerEmail: "investor@example.com", OwnerName: "Investor"}, nil
}

func (m *memStore) Accrue(_ context.Context, id uuid.UUID, now time.Time, eval func(*Investment, time.Time) Outcome) (*Investment, Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[id]; err != nil {
		return nil, Outcome{}, err
	}
	inv := m.items[id]
	prev := inv.Status
	out := eval(inv, now)
	if prev != StatusActive || !out.Changed(prev) {
		cp := *inv
		return &cp, out, nil
	}
	inv.CreditedRoi, inv.CreditedBonus, inv.Status = out.CreditedRoi, out.CreditedBonus, out.Status
	m.balances[inv.UserID] = m.balances[inv.UserID].Add(out.RoiDelta)
	m.bonuses[inv.UserID] = m.bonuses[inv.UserID].Add(out.BonusDelta)
	cp := *inv
	return &cp, out, nil
}

func (m *memStore) SaveRun(_ context.Context, run *AccrualRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) ListRuns(_ context.Context, limit int) ([]*AccrualRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) < limit {
		limit = len(m.runs)
	}
	return m.runs[:limit], nil
}

func (m *memStore) Summary(_ context.Context, _ uuid.UUID) (*Summary, error) {
	return &Summary{}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *memStore, *notifytest.Recorder, *clock) {
	t.Helper()
	store := newMemStore()
	rec := &notifytest.Recorder{}
	clk := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(store, rec).WithClock(clk.now), store, rec, clk
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestService_ThreeDayPlanCompletesAtTarget(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	ctx := context.Background()
	userID, adminID := uuid.New(), uuid.New()

	inv, err := svc.Create(ctx, userID, CreateRequest{Plan: "3-Day Plan", Capital: money("100")})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, inv.Status)
	assert.Equal(t, "Bitcoin", inv.PaymentOption)

	approval, err := svc.Approve(ctx, inv.ID, adminID)
	require.NoError(t, err)
	assert.True(t, approval.Investment.Roi.Equal(money("9")))
	assert.True(t, store.balances[userID].Equal(money("100")), "capital credited on approval")

	want := []string{"3", "6", "9"}
	for day, credited := range want {
		clk.advance(24 * time.Hour)
		_, err := svc.RunAccrual(ctx, TriggerCron)
		require.NoError(t, err)

		got, err := store.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, got.CreditedRoi.Equal(money(credited)), "day %d: credited %s", day+1, got.CreditedRoi)
	}

	got, _ := store.GetByID(ctx, inv.ID)
	assert.Equal(t, StatusCompleted, got.Status)

	clk.advance(24 * time.Hour)
	run, err := svc.RunAccrual(ctx, TriggerCron)
	require.NoError(t, err)
	assert.Zero(t, run.Processed)

	got, _ = store.GetByID(ctx, inv.ID)
	assert.True(t, got.CreditedRoi.Equal(money("9.00")))
	assert.True(t, store.balances[userID].Equal(money("109")))
	assert.True(t, store.bonuses[userID].Equal(money("10")), "10% bonus spread over the term")
}

func TestService_RepeatedRunIsIdempotent(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	inv, err := svc.Create(ctx, userID, CreateRequest{Plan: "7-Day Plan", Capital: money("1000")})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, inv.ID, uuid.New())
	require.NoError(t, err)

	clk.advance(2*24*time.Hour + time.Hour)
	first, err := svc.RunAccrual(ctx, TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Updated)
	afterFirst, _ := store.GetByID(ctx, inv.ID)
	balanceAfterFirst := store.balances[userID]

	second, err := svc.RunAccrual(ctx, TriggerHTTP)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Processed)
	assert.Zero(t, second.Updated)

	afterSecond, _ := store.GetByID(ctx, inv.ID)
	assert.True(t, afterFirst.CreditedRoi.Equal(afterSecond.CreditedRoi))
	assert.True(t, afterSecond.CreditedRoi.Equal(money("60")))
	assert.True(t, balanceAfterFirst.Equal(store.balances[userID]))
	assert.Len(t, store.runs, 2)
}

func TestService_ApproveUnknownPlanFlagsFallback(t *testing.T) {
	svc, store, rec, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, uuid.New(), CreateRequest{Plan: "Mystery Plan", Capital: money("1000")})
	require.NoError(t, err)
	assert.Equal(t, 7, inv.DurationDays)

	approval, err := svc.Approve(ctx, inv.ID, uuid.New())
	require.NoError(t, err)
	assert.True(t, approval.Terms.Resolution.Fallback)
	assert.True(t, approval.Investment.PlanFallback)
	assert.True(t, approval.Investment.Roi.Equal(money("175")), "2.5% × 7 days")
	assert.True(t, approval.Terms.ReferralReward.IsZero())

	stored, _ := store.GetByID(ctx, inv.ID)
	assert.True(t, stored.PlanFallback)
	assert.NotEmpty(t, rec.Alerts)
}

func TestService_ApproveKnownPlanIsNotFallback(t *testing.T) {
	svc, _, rec, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, uuid.New(), CreateRequest{Plan: " 12-day plan ", Capital: money("2000")})
	require.NoError(t, err)
	assert.Equal(t, "12-Day Plan", inv.Plan)

	approval, err := svc.Approve(ctx, inv.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, approval.Terms.Resolution.Fallback)
	assert.True(t, approval.Terms.ReferralReward.Equal(money("200")))
	assert.Contains(t, rec.Titles(), "Investment Approved")
	require.Len(t, rec.Emails, 1)
	assert.Equal(t, "investment_approval", rec.Emails[0].Kind)

	var approvedEvent bool
	for _, e := range rec.Events {
		approvedEvent = approvedEvent || e.Type == "investment.approved"
	}
	assert.True(t, approvedEvent)
}

func TestService_ApproveTwiceIsInvalidTransition(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	inv, err := svc.Create(ctx, userID, CreateRequest{Plan: "3-Day Plan", Capital: money("500")})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, inv.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.Approve(ctx, inv.ID, uuid.New())
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
	assert.True(t, store.balances[userID].Equal(money("500")), "capital credited once")
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), CreateRequest{Plan: "", Capital: money("100")})
	assert.ErrorIs(t, err, common.ErrPlanRequired)

	_, err = svc.Create(ctx, uuid.New(), CreateRequest{Plan: "3-Day Plan", Capital: money("0")})
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, uuid.New(), CreateRequest{Plan: "3-Day Plan", Capital: money("5000")})
	assert.ErrorIs(t, err, common.ErrCapitalOutOfRange)

	inv, err := svc.Create(ctx, uuid.New(), CreateRequest{Plan: "6-Month Plan", Capital: money("1000000")})
	require.NoError(t, err)
	assert.Equal(t, 180, inv.DurationDays)
}

func TestService_RunAccrualContinuesAfterFailure(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		inv, err := svc.Create(ctx, uuid.New(), CreateRequest{Plan: "3-Day Plan", Capital: money("100")})
		require.NoError(t, err)
		_, err = svc.Approve(ctx, inv.ID, uuid.New())
		require.NoError(t, err)
		ids = append(ids, inv.ID)
	}
	store.failOn[ids[1]] = errors.New("deadlock detected")

	clk.advance(24 * time.Hour)
	run, err := svc.RunAccrual(ctx, TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Processed)
	assert.Equal(t, 2, run.Updated)
	assert.Equal(t, 1, run.Failed)
}

func TestService_ExpiresWhenTermEndsShortOfTarget(t *testing.T) {
	svc, store, rec, clk := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, uuid.New(), CreateRequest{Plan: "3-Day Plan", Capital: money("100")})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, inv.ID, uuid.New())
	require.NoError(t, err)

	// Цель подняли вручную: за срок её не набрать
	store.items[inv.ID].Roi = money("50")

	clk.advance(3 * 24 * time.Hour)
	run, err := svc.RunAccrual(ctx, TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Expired)

	got, _ := store.GetByID(ctx, inv.ID)
	assert.Equal(t, StatusExpired, got.Status)
	assert.True(t, got.CreditedRoi.Equal(money("9")))
	assert.Contains(t, rec.Titles(), "Investment Expired")
}

func TestService_RunAccrualRejectsOverlap(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	svc.runMu.Lock()
	defer svc.runMu.Unlock()

	_, err := svc.RunAccrual(context.Background(), TriggerHTTP)
	assert.ErrorIs(t, err, common.ErrAccrualInProgress)
}

func TestService_GetHidesForeignInvestments(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, uuid.New(), CreateRequest{Plan: "3-Day Plan", Capital: money("100")})
	require.NoError(t, err)

	_, err = svc.Get(ctx, uuid.New(), inv.ID)
	assert.ErrorIs(t, err, common.ErrInvestmentNotFound)
}

var _ notifications.Notifier = (*notifytest.Recorder)(nil)
