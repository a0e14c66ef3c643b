// Package withdrawals — repository.go работает с таблицей withdrawals.
package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres"
	"serotonyl.ru/invest-platform/internal/features/economy"
)

const withdrawalColumns = `
	id, user_id, idnum, amount, from_balance, from_bonus, status, payment_option, wallet_address,
	bank_name, bank_account_number, bank_account_name, bank_routing_swift,
	processed_at, processed_by, created_at`

// Repository работает с выводами.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

func scanWithdrawal(row pgx.Row) (*Withdrawal, error) {
	var w Withdrawal
	err := row.Scan(
		&w.ID, &w.UserID, &w.IDNum, &w.Amount, &w.FromBalance, &w.FromBonus, &w.Status, &w.PaymentOption, &w.WalletAddress,
		&w.BankName, &w.BankAccountNumber, &w.BankAccountName, &w.BankRoutingSwift,
		&w.ProcessedAt, &w.ProcessedBy, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// KYCStatus — текущий статус KYC пользователя.
func (r *Repository) KYCStatus(ctx context.Context, userID uuid.UUID) (string, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT kyc_status FROM users WHERE id = $1`, userID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", common.ErrUserNotFound
		}
		return "", fmt.Errorf("ошибка чтения статуса KYC: %w", err)
	}
	return status, nil
}

// Create в одной транзакции списывает сумму с общего остатка (balance, затем bonus)
// и сохраняет заявку вместе с распределением по счетам.
// Два параллельных запроса не потратят один и тот же остаток: Debit блокирует строку users.
func (r *Repository) Create(ctx context.Context, w *Withdrawal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	split, err := economy.Debit(ctx, tx, economy.Movement{
		UserID:      w.UserID,
		Balance:     w.Amount,
		Type:        economy.TxWithdrawal,
		Description: "Withdrawal via " + w.PaymentOption,
		ReferenceID: w.ID.String(),
	})
	if err != nil {
		return err
	}
	w.FromBalance, w.FromBonus = split.Balance, split.Bonus

	err = tx.QueryRow(ctx, `
		INSERT INTO withdrawals (id, user_id, idnum, amount, from_balance, from_bonus, status, payment_option,
		                         wallet_address, bank_name, bank_account_number, bank_account_name, bank_routing_swift)
		VALUES ($1, $2, (SELECT idnum FROM users WHERE id = $2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING idnum, created_at
	`, w.ID, w.UserID, w.Amount, w.FromBalance, w.FromBonus, w.Status, w.PaymentOption, w.WalletAddress,
		w.BankName, w.BankAccountNumber, w.BankAccountName, w.BankRoutingSwift,
	).Scan(&w.IDNum, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания вывода: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации вывода: %w", err)
	}
	return nil
}

// ListByUser — выводы пользователя, новые сверху.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Withdrawal, error) {
	return r.query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// List — список для админки.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*Withdrawal, int, error) {
	var (
		cond string
		args []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		cond = " WHERE status = $1"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawals`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта выводов: %w", err)
	}

	page := common.NormalizePage(f.Page, f.Limit)
	args = append(args, page.Limit, page.Offset())
	items, err := r.query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals`+cond+
			` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Process закрывает Pending-заявку. При отклонении каждая часть суммы
// возвращается на тот счёт, с которого была списана, в той же транзакции.
func (r *Repository) Process(ctx context.Context, id, operatorID uuid.UUID, d Decision, now time.Time) (*Processed, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	w, err := scanWithdrawal(tx.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("ошибка чтения вывода: %w", err)
	}
	if w.Status != StatusPending {
		return nil, common.ErrWithdrawalProcessed
	}

	next := StatusCompleted
	if d == DecisionReject {
		next = StatusRejected
	}

	tag, err := tx.Exec(ctx, `
		UPDATE withdrawals SET status = $2, processed_at = $3, processed_by = $4
		WHERE id = $1 AND status = $5
	`, id, next, now, operatorID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления вывода: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, common.ErrWithdrawalProcessed
	}

	if next == StatusRejected {
		if err := economy.Credit(ctx, tx, economy.Movement{
			UserID:      w.UserID,
			Balance:     w.FromBalance,
			Bonus:       w.FromBonus,
			Type:        economy.TxWithdrawalRefund,
			Description: "Withdrawal rejected, amount refunded",
			ReferenceID: w.ID.String(),
		}); err != nil {
			return nil, err
		}
	}

	var email string
	if err := tx.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, w.UserID).Scan(&email); err != nil {
		return nil, fmt.Errorf("ошибка чтения email владельца: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации вывода: %w", err)
	}

	w.Status = next
	w.ProcessedAt = &now
	w.ProcessedBy = &operatorID
	return &Processed{Withdrawal: w, OwnerEmail: email}, nil
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]*Withdrawal, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки выводов: %w", err)
	}
	defer rows.Close()

	var out []*Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования вывода: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
