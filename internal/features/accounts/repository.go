// Package accounts — repository.go отвечает за операции с таблицей users.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres"
	"serotonyl.ru/invest-platform/internal/features/economy"
)

// errCollision — случайно сгенерированный idnum или реферальный код уже занят.
var errCollision = errors.New("generated identifier collision")

const userColumns = `
	id, idnum, email, password_hash, name, username, phone, country,
	balance, bonus, kyc_status, referral_code, referral_code_expires_at,
	referred_by_code, referred_by_idnum, referral_level, referral_count,
	referral_bonus_total, is_admin, email_confirmed_at, created_at, updated_at`

// Repository работает с пользователями.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.IDNum, &u.Email, &u.PasswordHash, &u.Name, &u.Username, &u.Phone, &u.Country,
		&u.Balance, &u.Bonus, &u.KYCStatus, &u.ReferralCode, &u.ReferralCodeExpiresAt,
		&u.ReferredByCode, &u.ReferredByIDNum, &u.ReferralLevel, &u.ReferralCount,
		&u.ReferralBonusTotal, &u.IsAdmin, &u.EmailConfirmedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create регистрирует пользователя и начисляет бонус за регистрацию в одной транзакции.
// Занятый email — common.ErrEmailInUse; занятый idnum/код — errCollision (повторить).
func (r *Repository) Create(ctx context.Context, u *User, signupBonus decimal.Decimal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, idnum, email, password_hash, name, username, phone, country,
		                   referral_code, referral_code_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING kyc_status, created_at, updated_at
	`, u.ID, u.IDNum, u.Email, u.PasswordHash, u.Name, u.Username, u.Phone, u.Country,
		u.ReferralCode, u.ReferralCodeExpiresAt,
	).Scan(&u.KYCStatus, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "users_email_key"):
			return common.ErrEmailInUse
		case postgres.IsUniqueViolation(err, "users_idnum_key"),
			postgres.IsUniqueViolation(err, "users_referral_code_key"):
			return errCollision
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	if err := economy.Credit(ctx, tx, economy.Movement{
		UserID:      u.ID,
		Bonus:       signupBonus,
		Type:        economy.TxSignupBonus,
		Description: "Sign up bonus",
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации регистрации: %w", err)
	}
	u.Bonus = signupBonus
	return nil
}

// GetByID: если не найден — common.ErrUserNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail: email сравнивается без учёта регистра.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения пользователя: %w", err)
	}
	return u, nil
}

// List — пользователи для админки, новые сверху, и общее число.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*User, int, error) {
	search := strings.TrimSpace(f.Search)
	pattern := "%" + search + "%"
	const cond = `
		WHERE $1 = '' OR email ILIKE $2 OR name ILIKE $2 OR username ILIKE $2 OR idnum::text LIKE $2`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+cond, search, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}

	page := common.NormalizePage(f.Page, f.Limit)
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users`+cond+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		search, pattern, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения пользователей: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// ConfirmEmails проставляет email_confirmed_at. Пустой email — всем неподтверждённым.
func (r *Repository) ConfirmEmails(ctx context.Context, email string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET email_confirmed_at = NOW(), updated_at = NOW()
		WHERE email_confirmed_at IS NULL AND ($1 = '' OR LOWER(email) = LOWER($1))
	`, email)
	if err != nil {
		return 0, fmt.Errorf("ошибка подтверждения email: %w", err)
	}
	return tag.RowsAffected(), nil
}
