// Package loans — repository.go работает с таблицей loans.
package loans

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres"
	"serotonyl.ru/invest-platform/internal/features/economy"
)

const loanColumns = `id, user_id, amount, bonus, purpose, status, processed_by, processed_at, created_at`

// Repository работает с займами.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

func scanLoan(row pgx.Row) (*Loan, error) {
	var l Loan
	err := row.Scan(&l.ID, &l.UserID, &l.Amount, &l.Bonus, &l.Purpose, &l.Status,
		&l.ProcessedBy, &l.ProcessedAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create сохраняет заявку в статусе Pending.
func (r *Repository) Create(ctx context.Context, l *Loan) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO loans (id, user_id, amount, bonus, purpose, status)
		VALUES ($1, $2, $3, 0, $4, $5)
		RETURNING created_at
	`, l.ID, l.UserID, l.Amount, l.Purpose, l.Status).Scan(&l.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания займа: %w", err)
	}
	return nil
}

// ListByUser — займы пользователя, новые сверху.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Loan, error) {
	return r.query(ctx, `SELECT `+loanColumns+` FROM loans WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// List — займы для админки.
func (r *Repository) List(ctx context.Context, status string, page common.Page) ([]*Loan, int, error) {
	var (
		cond string
		args []any
	)
	if status != "" {
		args = append(args, status)
		cond = " WHERE status = $1"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM loans`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта займов: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	items, err := r.query(ctx, `SELECT `+loanColumns+` FROM loans`+cond+
		` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Process закрывает Pending-займ. При одобрении сумма и бонус начисляются
// в той же транзакции.
func (r *Repository) Process(ctx context.Context, id, operatorID uuid.UUID, approve bool, bonus func(decimal.Decimal) decimal.Decimal, now time.Time) (*Loan, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := scanLoan(tx.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrLoanNotFound
		}
		return nil, fmt.Errorf("ошибка чтения займа: %w", err)
	}
	if l.Status != StatusPending {
		return nil, common.ErrLoanProcessed
	}

	next, b := StatusRejected, decimal.Zero
	if approve {
		next, b = StatusApproved, bonus(l.Amount)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE loans SET status = $2, bonus = $3, processed_by = $4, processed_at = $5
		WHERE id = $1 AND status = $6
	`, id, next, b, operatorID, now, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления займа: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, common.ErrLoanProcessed
	}

	if approve {
		if err := economy.Credit(ctx, tx, economy.Movement{
			UserID:      l.UserID,
			Balance:     l.Amount,
			Type:        economy.TxLoan,
			Description: "Loan approved",
			ReferenceID: l.ID.String(),
		}); err != nil {
			return nil, err
		}
		if err := economy.Credit(ctx, tx, economy.Movement{
			UserID:      l.UserID,
			Bonus:       b,
			Type:        economy.TxLoanBonus,
			Description: "Loan bonus",
			ReferenceID: l.ID.String(),
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации займа: %w", err)
	}

	l.Status = next
	l.Bonus = b
	l.ProcessedBy = &operatorID
	l.ProcessedAt = &now
	return l, nil
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]*Loan, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки займов: %w", err)
	}
	defer rows.Close()

	var out []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования займа: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
