package withdrawals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres/pgtest"
	"serotonyl.ru/invest-platform/internal/features/economy"
)

var withdrawalRowColumns = []string{
	"id", "user_id", "idnum", "amount", "from_balance", "from_bonus", "status", "payment_option", "wallet_address",
	"bank_name", "bank_account_number", "bank_account_name", "bank_routing_swift",
	"processed_at", "processed_by", "created_at",
}

func withdrawalRow(id, userID uuid.UUID, status string, amount, fromBalance, fromBonus decimal.Decimal) *pgxmock.Rows {
	return pgxmock.NewRows(withdrawalRowColumns).AddRow(
		id, userID, int64(1042), amount, fromBalance, fromBonus, status, "BTC", "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
		"", "", "", "",
		nil, nil, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	)
}

func TestRepositoryCreate_SpendsBonusWhenBalanceIsShort(t *testing.T) {
	mock := pgtest.NewPool(t)
	repo := NewRepository(mock)
	userID := uuid.New()
	w := &Withdrawal{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        pgtest.Money("200"),
		Status:        StatusPending,
		PaymentOption: "BTC",
		WalletAddress: "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
	}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(pgtest.SQL(`SELECT balance, bonus FROM users WHERE id = $1 FOR UPDATE`)).WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"balance", "bonus"}).AddRow(pgtest.Money("150"), pgtest.Money("60")))
	mock.ExpectExec(pgtest.SQL(`UPDATE users SET balance = balance - $2, bonus = bonus - $3`)).
		WithArgs(userID, pgtest.Amount("150"), pgtest.Amount("50")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(pgtest.SQL(`INSERT INTO transactions`)).
		WithArgs(userID, economy.BucketBalance, pgtest.Amount("-150"), economy.TxWithdrawal, "Withdrawal via BTC", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(pgtest.SQL(`INSERT INTO transactions`)).
		WithArgs(userID, economy.BucketBonus, pgtest.Amount("-50"), economy.TxWithdrawal, "Withdrawal via BTC", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(pgtest.SQL(`INSERT INTO withdrawals`)).
		WithArgs(w.ID, userID, pgtest.Amount("200"), pgtest.Amount("150"), pgtest.Amount("50"), StatusPending, "BTC",
			w.WalletAddress, "", "", "", "").
		WillReturnRows(pgxmock.NewRows([]string{"idnum", "created_at"}).AddRow(int64(1042), created))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), w))
	assert.True(t, w.FromBalance.Equal(pgtest.Money("150")))
	assert.True(t, w.FromBonus.Equal(pgtest.Money("50")))
	assert.Equal(t, int64(1042), w.IDNum)
	assert.Equal(t, created, w.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreate_InsufficientTotalRollsBack(t *testing.T) {
	mock := pgtest.NewPool(t)
	repo := NewRepository(mock)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(pgtest.SQL(`SELECT balance, bonus FROM users WHERE id = $1 FOR UPDATE`)).WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"balance", "bonus"}).AddRow(pgtest.Money("150"), pgtest.Money("40")))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &Withdrawal{
		ID: uuid.New(), UserID: userID, Amount: pgtest.Money("200"), Status: StatusPending, PaymentOption: "BTC",
	})
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryProcess_RejectRefundsEachBucket(t *testing.T) {
	mock := pgtest.NewPool(t)
	repo := NewRepository(mock)
	id, userID, operatorID := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(pgtest.SQL(`FROM withdrawals WHERE id = $1 FOR UPDATE`)).WithArgs(id).
		WillReturnRows(withdrawalRow(id, userID, StatusPending, pgtest.Money("200"), pgtest.Money("150"), pgtest.Money("50")))
	mock.ExpectExec(pgtest.SQL(`UPDATE withdrawals SET status = $2`)).
		WithArgs(id, StatusRejected, now, operatorID, StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(pgtest.SQL(`SET balance = balance + $2, bonus = bonus + $3`)).
		WithArgs(userID, pgtest.Amount("150"), pgtest.Amount("50")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(pgtest.SQL(`INSERT INTO transactions`)).
		WithArgs(userID, economy.BucketBalance, pgtest.Amount("150"), economy.TxWithdrawalRefund, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(pgtest.SQL(`INSERT INTO transactions`)).
		WithArgs(userID, economy.BucketBonus, pgtest.Amount("50"), economy.TxWithdrawalRefund, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(pgtest.SQL(`SELECT email FROM users WHERE id = $1`)).WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow("investor@example.com"))
	mock.ExpectCommit()

	res, err := repo.Process(context.Background(), id, operatorID, DecisionReject, now)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Withdrawal.Status)
	assert.Equal(t, "investor@example.com", res.OwnerEmail)
	assert.Equal(t, &operatorID, res.Withdrawal.ProcessedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryProcess_ApproveDoesNotRefund(t *testing.T) {
	mock := pgtest.NewPool(t)
	repo := NewRepository(mock)
	id, userID, operatorID := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(pgtest.SQL(`FROM withdrawals WHERE id = $1 FOR UPDATE`)).WithArgs(id).
		WillReturnRows(withdrawalRow(id, userID, StatusPending, pgtest.Money("200"), pgtest.Money("200"), decimal.Zero))
	mock.ExpectExec(pgtest.SQL(`UPDATE withdrawals SET status = $2`)).
		WithArgs(id, StatusCompleted, now, operatorID, StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(pgtest.SQL(`SELECT email FROM users WHERE id = $1`)).WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow("investor@example.com"))
	mock.ExpectCommit()

	res, err := repo.Process(context.Background(), id, operatorID, DecisionApprove, now)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Withdrawal.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryProcess_AlreadyProcessed(t *testing.T) {
	mock := pgtest.NewPool(t)
	repo := NewRepository(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(pgtest.SQL(`FROM withdrawals WHERE id = $1 FOR UPDATE`)).WithArgs(id).
		WillReturnRows(withdrawalRow(id, uuid.New(), StatusCompleted, pgtest.Money("200"), pgtest.Money("200"), decimal.Zero))
	mock.ExpectRollback()

	_, err := repo.Process(context.Background(), id, uuid.New(), DecisionReject, time.Now())
	assert.ErrorIs(t, err, common.ErrWithdrawalProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryProcess_LostRaceOnConditionalUpdate(t *testing.T) {
	mock := pgtest.NewPool(t)
	repo := NewRepository(mock)
	id, operatorID := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(pgtest.SQL(`FROM withdrawals WHERE id = $1 FOR UPDATE`)).WithArgs(id).
		WillReturnRows(withdrawalRow(id, uuid.New(), StatusPending, pgtest.Money("200"), pgtest.Money("200"), decimal.Zero))
	mock.ExpectExec(pgtest.SQL(`UPDATE withdrawals SET status = $2`)).
		WithArgs(id, StatusRejected, now, operatorID, StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := repo.Process(context.Background(), id, operatorID, DecisionReject, now)
	assert.ErrorIs(t, err, common.ErrWithdrawalProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
