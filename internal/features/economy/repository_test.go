package economy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres/pgtest"
)

const (
	lockBalancesSQL = `SELECT balance, bonus FROM users WHERE id = $1 FOR UPDATE`
	debitSQL        = `UPDATE users SET balance = balance - $2, bonus = bonus - $3`
	creditSQL       = `SET balance = balance + $2, bonus = bonus + $3`
	historySQL      = `INSERT INTO transactions`
)

func TestDebitTakesBonusWhenBalanceIsShort(t *testing.T) {
	mock := pgtest.NewPool(t)
	userID := uuid.New()

	mock.ExpectQuery(pgtest.SQL(lockBalancesSQL)).WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"balance", "bonus"}).AddRow(pgtest.Money("150"), pgtest.Money("60")))
	mock.ExpectExec(pgtest.SQL(debitSQL)).WithArgs(userID, pgtest.Amount("150"), pgtest.Amount("50")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(pgtest.SQL(historySQL)).
		WithArgs(userID, BucketBalance, pgtest.Amount("-150"), TxWithdrawal, "Withdrawal via BTC", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(pgtest.SQL(historySQL)).
		WithArgs(userID, BucketBonus, pgtest.Amount("-50"), TxWithdrawal, "Withdrawal via BTC", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	split, err := Debit(context.Background(), mock, Movement{
		UserID:      userID,
		Balance:     pgtest.Money("200"),
		Type:        TxWithdrawal,
		Description: "Withdrawal via BTC",
		ReferenceID: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.True(t, split.Balance.Equal(pgtest.Money("150")))
	assert.True(t, split.Bonus.Equal(pgtest.Money("50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitBalanceOnlyWhenEnough(t *testing.T) {
	mock := pgtest.NewPool(t)
	userID := uuid.New()

	mock.ExpectQuery(pgtest.SQL(lockBalancesSQL)).WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"balance", "bonus"}).AddRow(pgtest.Money("500"), pgtest.Money("60")))
	mock.ExpectExec(pgtest.SQL(debitSQL)).WithArgs(userID, pgtest.Amount("200"), pgtest.Amount("0")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	// Нулевая часть по bonus в историю не пишется.
	mock.ExpectExec(pgtest.SQL(historySQL)).
		WithArgs(userID, BucketBalance, pgtest.Amount("-200"), TxWithdrawal, "w", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	split, err := Debit(context.Background(), mock, Movement{
		UserID: userID, Balance: pgtest.Money("200"), Type: TxWithdrawal, Description: "w",
	})
	require.NoError(t, err)
	assert.True(t, split.Bonus.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitInsufficientTotal(t *testing.T) {
	mock := pgtest.NewPool(t)
	userID := uuid.New()

	mock.ExpectQuery(pgtest.SQL(lockBalancesSQL)).WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"balance", "bonus"}).AddRow(pgtest.Money("150"), pgtest.Money("40")))

	_, err := Debit(context.Background(), mock, Movement{UserID: userID, Balance: pgtest.Money("200"), Type: TxWithdrawal})
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	// Ни UPDATE, ни истории.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	mock := pgtest.NewPool(t)

	_, err := Debit(context.Background(), mock, Movement{UserID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = Debit(context.Background(), mock, Movement{UserID: uuid.New(), Balance: pgtest.Money("10"), Bonus: pgtest.Money("-5")})
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditWritesRowPerBucket(t *testing.T) {
	mock := pgtest.NewPool(t)
	userID := uuid.New()

	mock.ExpectExec(pgtest.SQL(creditSQL)).WithArgs(userID, pgtest.Amount("150"), pgtest.Amount("50")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(pgtest.SQL(historySQL)).
		WithArgs(userID, BucketBalance, pgtest.Amount("150"), TxWithdrawalRefund, "refund", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(pgtest.SQL(historySQL)).
		WithArgs(userID, BucketBonus, pgtest.Amount("50"), TxWithdrawalRefund, "refund", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := Credit(context.Background(), mock, Movement{
		UserID: userID, Balance: pgtest.Money("150"), Bonus: pgtest.Money("50"), Type: TxWithdrawalRefund, Description: "refund",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditUnknownUser(t *testing.T) {
	mock := pgtest.NewPool(t)
	userID := uuid.New()

	mock.ExpectExec(pgtest.SQL(creditSQL)).WithArgs(userID, pgtest.Amount("10"), pgtest.Amount("0")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := Credit(context.Background(), mock, Movement{UserID: userID, Balance: pgtest.Money("10")})
	assert.ErrorIs(t, err, common.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
