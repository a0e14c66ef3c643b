// Package economy — repository.go выполняет все операции с балансами в таблице users
// и с историей в таблице transactions.
// Функции Credit/Debit принимают Querier, чтобы работать внутри чужой транзакции:
// одобрение инвестиции, вывод, займ двигают баланс атомарно со своей записью.
package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres"
)

// Repository предоставляет методы для работы с балансами и транзакциями.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// DB отдаёт пул для запуска транзакций из сервиса.
func (r *Repository) DB() postgres.DB { return r.db }

// Credit начисляет средства (balance и/или bonus) и пишет историю.
// Вызывается внутри транзакции q.
func Credit(ctx context.Context, q postgres.Querier, m Movement) error {
	if m.Balance.IsNegative() || m.Bonus.IsNegative() {
		return common.ErrInvalidAmount
	}
	if m.Balance.IsZero() && m.Bonus.IsZero() {
		return nil
	}

	tag, err := q.Exec(ctx, `
		UPDATE users
		SET balance = balance + $2, bonus = bonus + $3, updated_at = NOW()
		WHERE id = $1
	`, m.UserID, m.Balance, m.Bonus)
	if err != nil {
		return fmt.Errorf("ошибка начисления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}

	return writeHistory(ctx, q, m)
}

// Debit списывает m.Balance + m.Bonus с общего остатка пользователя:
// сначала с balance, недостающее с bonus. Строка users блокируется до конца транзакции q.
// Возвращает фактическое распределение по счетам (суммы положительные),
// чтобы при возврате вернуть каждую часть на свой счёт.
func Debit(ctx context.Context, q postgres.Querier, m Movement) (Movement, error) {
	amount := m.Balance.Add(m.Bonus)
	if m.Balance.IsNegative() || m.Bonus.IsNegative() || !amount.IsPositive() {
		return Movement{}, common.ErrInvalidAmount
	}

	var balance, bonus decimal.Decimal
	err := q.QueryRow(ctx, `SELECT balance, bonus FROM users WHERE id = $1 FOR UPDATE`, m.UserID).Scan(&balance, &bonus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, common.ErrUserNotFound
		}
		return Movement{}, fmt.Errorf("ошибка получения баланса: %w", err)
	}

	available := balance.Add(bonus)
	if available.LessThan(amount) {
		return Movement{}, fmt.Errorf("нужно %s, есть %s: %w", amount, available, common.ErrInsufficientBalance)
	}

	split := m
	split.Balance = decimal.Min(balance, amount)
	split.Bonus = amount.Sub(split.Balance)

	if _, err := q.Exec(ctx, `
		UPDATE users SET balance = balance - $2, bonus = bonus - $3, updated_at = NOW() WHERE id = $1
	`, m.UserID, split.Balance, split.Bonus); err != nil {
		return Movement{}, fmt.Errorf("ошибка списания: %w", err)
	}

	history := split
	history.Balance, history.Bonus = split.Balance.Neg(), split.Bonus.Neg()
	if err := writeHistory(ctx, q, history); err != nil {
		return Movement{}, err
	}
	return split, nil
}

func writeHistory(ctx context.Context, q postgres.Querier, m Movement) error {
	var ref *string
	if m.ReferenceID != "" {
		ref = &m.ReferenceID
	}
	for _, row := range []struct {
		bucket Bucket
		amount decimal.Decimal
	}{
		{BucketBalance, m.Balance},
		{BucketBonus, m.Bonus},
	} {
		if row.amount.IsZero() {
			continue
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO transactions (user_id, bucket, amount, transaction_type, description, reference_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.UserID, row.bucket, row.amount, m.Type, m.Description, ref); err != nil {
			return fmt.Errorf("ошибка записи транзакции: %w", err)
		}
	}
	return nil
}

// GetBalance возвращает текущие остатки пользователя.
func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	b := Balance{UserID: userID}
	err := r.db.QueryRow(ctx, `SELECT balance, bonus FROM users WHERE id = $1`, userID).Scan(&b.Balance, &b.Bonus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return &b, nil
}

// Apply выполняет одно начисление в собственной транзакции.
func (r *Repository) Apply(ctx context.Context, m Movement) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return Credit(ctx, tx, m)
	})
}

// GetTransactions возвращает последние N движений пользователя.
func (r *Repository) GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, bucket, amount, transaction_type, description, reference_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Bucket, &t.Amount,
			&t.TransactionType, &t.Description, &t.ReferenceID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения транзакций: %w", err)
	}
	return out, nil
}
