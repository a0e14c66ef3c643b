// Package referrals — repository.go работает с таблицами referrals и referral_rewards
// и реферальными полями users.
package referrals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres"
	"serotonyl.ru/invest-platform/internal/features/economy"
)

// ErrCodeTaken — сгенерированный код уже занят (можно повторить с другим).
var ErrCodeTaken = errors.New("referral code collision")

// Repository работает с рефералкой.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Link привязывает пользователя к владельцу кода. Одна транзакция:
// строка приглашения, поля referred_by_* у приглашённого, агрегаты у пригласившего.
func (r *Repository) Link(ctx context.Context, referredID uuid.UUID, code string, now time.Time) (*Referral, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		referrerID    uuid.UUID
		referrerIDNum int64
		referrerLevel int
		expiresAt     *time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT id, idnum, referral_level, referral_code_expires_at
		FROM users WHERE referral_code = $1
		FOR UPDATE
	`, code).Scan(&referrerID, &referrerIDNum, &referrerLevel, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrReferralCodeInvalid
		}
		return nil, fmt.Errorf("ошибка поиска кода: %w", err)
	}
	if expiresAt != nil && expiresAt.Before(now) {
		return nil, common.ErrReferralCodeInvalid
	}
	if referrerID == referredID {
		return nil, common.ErrSelfReferral
	}

	var (
		referredIDNum int64
		referredBy    *string
	)
	err = tx.QueryRow(ctx,
		`SELECT idnum, referred_by_code FROM users WHERE id = $1 FOR UPDATE`, referredID,
	).Scan(&referredIDNum, &referredBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения пользователя: %w", err)
	}
	if referredBy != nil {
		return nil, common.ErrAlreadyReferred
	}

	ref := &Referral{
		ReferrerID:    referrerID,
		ReferredID:    referredID,
		ReferredIDNum: referredIDNum,
		Code:          code,
		Level:         NextLevel(referrerLevel),
		Status:        StatusPending,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO referrals (referrer_id, referred_id, code, level, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, ref.ReferrerID, ref.ReferredID, ref.Code, ref.Level, ref.Status).Scan(&ref.ID, &ref.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "referrals_referred_id_key") {
			return nil, common.ErrAlreadyReferred
		}
		return nil, fmt.Errorf("ошибка записи приглашения: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET referred_by_code = $2, referred_by_idnum = $3, referral_level = $4, updated_at = NOW()
		WHERE id = $1
	`, referredID, code, referrerIDNum, ref.Level); err != nil {
		return nil, fmt.Errorf("ошибка обновления приглашённого: %w", err)
	}

	if err := RefreshAggregates(ctx, tx, referrerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации приглашения: %w", err)
	}
	return ref, nil
}

// RefreshAggregates пересчитывает referral_count и referral_bonus_total реферера.
// Вызывается внутри транзакции q, изменившей referrals или referral_rewards.
func RefreshAggregates(ctx context.Context, q postgres.Querier, referrerID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE users SET
			referral_count = (SELECT COUNT(*) FROM referrals WHERE referrer_id = $1),
			referral_bonus_total = (
				SELECT COALESCE(SUM(reward_amount + bonus_amount), 0)
				FROM referral_rewards WHERE referrer_id = $1 AND status = $2
			),
			updated_at = NOW()
		WHERE id = $1
	`, referrerID, StatusPaid)
	if err != nil {
		return fmt.Errorf("ошибка пересчёта реферальных агрегатов: %w", err)
	}
	return nil
}

// SetCode выдаёт пользователю новый код. Занятый код — ErrCodeTaken.
func (r *Repository) SetCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET referral_code = $2, referral_code_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`, userID, code, expiresAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "users_referral_code_key") {
			return ErrCodeTaken
		}
		return fmt.Errorf("ошибка обновления кода: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

// Stats собирает статистику пригласившего.
func (r *Repository) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	var s Stats
	var code *string
	err := r.db.QueryRow(ctx,
		`SELECT referral_code, referral_code_expires_at FROM users WHERE id = $1`, userID,
	).Scan(&code, &s.CodeExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения кода: %w", err)
	}
	if code != nil {
		s.ReferralCode = *code
	}

	err = r.db.QueryRow(ctx, `
		WITH RECURSIVE tree AS (
			SELECT referred_id, 1 AS depth FROM referrals WHERE referrer_id = $1
			UNION ALL
			SELECT r.referred_id, t.depth + 1
			FROM referrals r JOIN tree t ON r.referrer_id = t.referred_id
			WHERE t.depth < $2
		)
		SELECT COUNT(*) FILTER (WHERE depth = 1), COUNT(*) FILTER (WHERE depth > 1) FROM tree
	`, userID, MaxLevel).Scan(&s.DirectCount, &s.IndirectCount)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта приглашённых: %w", err)
	}
	s.TotalReferrals = s.DirectCount + s.IndirectCount

	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(reward_amount + bonus_amount), 0), COUNT(*) FILTER (WHERE status = $2)
		FROM referral_rewards WHERE referrer_id = $1
	`, userID, StatusPending).Scan(&s.TotalRewards, &s.PendingRewards)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта наград: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.referrer_id, r.referred_id, u.idnum, u.name, r.code, r.level, r.status, r.created_at
		FROM referrals r JOIN users u ON u.id = r.referred_id
		WHERE r.referrer_id = $1
		ORDER BY r.created_at DESC
		LIMIT 5
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения приглашений: %w", err)
	}
	defer rows.Close()

	s.Recent = []*Referral{}
	for rows.Next() {
		ref := &Referral{}
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.ReferredIDNum, &ref.ReferredName,
			&ref.Code, &ref.Level, &ref.Status, &ref.CreatedAt); err != nil {
			return nil, err
		}
		s.Recent = append(s.Recent, ref)
	}
	return &s, rows.Err()
}

const rewardColumns = `
	w.id, w.referral_id, w.referrer_id, u.idnum, w.investment_id,
	w.reward_amount, w.bonus_amount, w.status, w.paid_at, w.created_at`

func scanReward(row pgx.Row) (*Reward, error) {
	var w Reward
	err := row.Scan(&w.ID, &w.ReferralID, &w.ReferrerID, &w.ReferrerIDNum, &w.InvestmentID,
		&w.RewardAmount, &w.BonusAmount, &w.Status, &w.PaidAt, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListRewards — награды для админки (status пустой — все).
func (r *Repository) ListRewards(ctx context.Context, status string, page common.Page) ([]*Reward, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM referral_rewards WHERE ($1 = '' OR status = $1)`, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта наград: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+rewardColumns+`
		FROM referral_rewards w JOIN users u ON u.id = w.referrer_id
		WHERE ($1 = '' OR w.status = $1)
		ORDER BY w.created_at DESC
		LIMIT $2 OFFSET $3
	`, status, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения наград: %w", err)
	}
	defer rows.Close()

	var out []*Reward
	for rows.Next() {
		w, err := scanReward(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

// PayReward зачисляет pending-награду на bonus пригласившего. Одна транзакция.
func (r *Repository) PayReward(ctx context.Context, id int64, now time.Time) (*Reward, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	w, err := scanReward(tx.QueryRow(ctx, `
		SELECT `+rewardColumns+`
		FROM referral_rewards w JOIN users u ON u.id = w.referrer_id
		WHERE w.id = $1
		FOR UPDATE OF w
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrRewardNotFound
		}
		return nil, fmt.Errorf("ошибка чтения награды: %w", err)
	}
	if w.Status == StatusPaid {
		return nil, common.ErrRewardAlreadyPaid
	}

	tag, err := tx.Exec(ctx, `
		UPDATE referral_rewards SET status = $2, paid_at = $3 WHERE id = $1 AND status = $4
	`, id, StatusPaid, now, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления награды: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, common.ErrRewardAlreadyPaid
	}

	ref := ""
	if w.InvestmentID != nil {
		ref = w.InvestmentID.String()
	}
	if err := economy.Credit(ctx, tx, economy.Movement{
		UserID:      w.ReferrerID,
		Bonus:       w.Total(),
		Type:        economy.TxReferralReward,
		Description: "Referral reward",
		ReferenceID: ref,
	}); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE referrals SET status = $2 WHERE id = $1`, w.ReferralID, StatusRewarded); err != nil {
		return nil, fmt.Errorf("ошибка обновления приглашения: %w", err)
	}
	if err := RefreshAggregates(ctx, tx, w.ReferrerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации выплаты: %w", err)
	}

	w.Status, w.PaidAt = StatusPaid, &now
	return w, nil
}
