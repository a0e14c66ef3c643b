// Package investments — repository.go работает с таблицами investments и accrual_runs.
// Это единственное место, где колонки snake_case превращаются в поля Investment.
package investments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres"
	"serotonyl.ru/invest-platform/internal/features/economy"
)

const investmentColumns = `
	i.id, i.user_id, i.idnum, i.plan, i.status, i.capital, i.daily_rate,
	i.roi, i.credited_roi, i.bonus, i.credited_bonus, i.duration_days,
	i.payment_option, i.plan_fallback, i.approved_at, i.approved_by,
	i.created_at, i.updated_at`

// Repository работает с инвестициями.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

func scanInvestment(row pgx.Row, extra ...any) (*Investment, error) {
	var inv Investment
	dest := []any{
		&inv.ID, &inv.UserID, &inv.IDNum, &inv.Plan, &inv.Status, &inv.Capital, &inv.DailyRate,
		&inv.Roi, &inv.CreditedRoi, &inv.Bonus, &inv.CreditedBonus, &inv.DurationDays,
		&inv.PaymentOption, &inv.PlanFallback, &inv.ApprovedAt, &inv.ApprovedBy,
		&inv.CreatedAt, &inv.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create сохраняет новую инвестицию в статусе Pending.
func (r *Repository) Create(ctx context.Context, inv *Investment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO investments (id, user_id, idnum, plan, status, capital, duration_days, payment_option)
		VALUES ($1, $2, (SELECT idnum FROM users WHERE id = $2), $3, $4, $5, $6, $7)
		RETURNING idnum, created_at, updated_at
	`, inv.ID, inv.UserID, inv.Plan, inv.Status, inv.Capital, inv.DurationDays, inv.PaymentOption,
	).Scan(&inv.IDNum, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания инвестиции: %w", err)
	}
	return nil
}

// DeletePending удаляет ещё не одобренную инвестицию (уборка после smoke-проверки).
func (r *Repository) DeletePending(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM investments WHERE id = $1 AND status = $2`, id, StatusPending)
	if err != nil {
		return fmt.Errorf("ошибка удаления инвестиции %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInvestmentNotFound
	}
	return nil
}

// GetByID: если не найдена — common.ErrInvestmentNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Investment, error) {
	inv, err := scanInvestment(r.db.QueryRow(ctx,
		`SELECT `+investmentColumns+` FROM investments i WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("ошибка чтения инвестиции %s: %w", id, err)
	}
	return inv, nil
}

// ListByUser возвращает все инвестиции пользователя, новые сверху.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Investment, error) {
	return r.query(ctx,
		`SELECT `+investmentColumns+` FROM investments i WHERE i.user_id = $1 ORDER BY i.created_at DESC`, userID)
}

// List — список для админки с фильтром и пагинацией. Возвращает также общее число строк.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*Investment, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "i.status = $"+strconv.Itoa(len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(i.plan ILIKE $"+n+" OR i.idnum::text LIKE $"+n+")")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM investments i`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта инвестиций: %w", err)
	}

	page := common.NormalizePage(f.Page, f.Limit)
	args = append(args, page.Limit, page.Offset())
	items, err := r.query(ctx,
		`SELECT `+investmentColumns+` FROM investments i`+cond+
			` ORDER BY i.created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListActiveIDs возвращает id всех Active-инвестиций.
func (r *Repository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM investments WHERE status = $1 ORDER BY approved_at`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки активных инвестиций: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Approve переводит инвестицию Pending→Active и начисляет капитал на баланс владельца.
// Всё в одной транзакции: строка инвестиции блокируется, статус меняется
// условным UPDATE (ожидаемый предыдущий статус — Pending).
func (r *Repository) Approve(ctx context.Context, id, operatorID uuid.UUID, now time.Time, terms func(*Investment) Terms) (*Approval, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var email, name string
	inv, err := scanInvestment(tx.QueryRow(ctx, `
		SELECT `+investmentColumns+`, u.email, u.name
		FROM investments i JOIN users u ON u.id = i.user_id
		WHERE i.id = $1
		FOR UPDATE OF i
	`, id), &email, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("ошибка чтения инвестиции: %w", err)
	}
	if inv.Status != StatusPending {
		return nil, common.ErrInvalidTransition
	}

	t := terms(inv)

	tag, err := tx.Exec(ctx, `
		UPDATE investments
		SET status = $2, roi = $3, bonus = $4, daily_rate = $5, duration_days = $6,
		    credited_roi = 0, credited_bonus = 0, plan_fallback = $7,
		    approved_at = $8, approved_by = $9, updated_at = NOW()
		WHERE id = $1 AND status = $10
	`, id, StatusActive, t.Roi, t.Bonus, t.DailyRate, t.DurationDays,
		t.Resolution.Fallback, now, operatorID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("ошибка активации инвестиции: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, common.ErrInvalidTransition
	}

	if err := economy.Credit(ctx, tx, economy.Movement{
		UserID:      inv.UserID,
		Balance:     inv.Capital,
		Bonus:       decimal.Zero,
		Type:        economy.TxInvestmentCapital,
		Description: "Investment approved: " + inv.Plan,
		ReferenceID: inv.ID.String(),
	}); err != nil {
		return nil, err
	}

	approval := &Approval{Terms: t, OwnerEmail: email, OwnerName: name}

	if t.ReferralReward.IsPositive() {
		var rewardID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO referral_rewards (referral_id, referrer_id, investment_id, reward_amount, bonus_amount, status)
			SELECT r.id, r.referrer_id, $2, $3, 0, 'pending'
			FROM referrals r WHERE r.referred_id = $1
			RETURNING id
		`, inv.UserID, inv.ID, t.ReferralReward).Scan(&rewardID)
		switch {
		case err == nil:
			approval.RewardID = &rewardID
		case errors.Is(err, pgx.ErrNoRows):
			// реферера нет
		default:
			return nil, fmt.Errorf("ошибка записи реферальной награды: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации одобрения: %w", err)
	}

	inv.Status = StatusActive
	inv.Roi, inv.Bonus = t.Roi, t.Bonus
	inv.DailyRate, inv.DurationDays = t.DailyRate, t.DurationDays
	inv.CreditedRoi, inv.CreditedBonus = decimal.Zero, decimal.Zero
	inv.PlanFallback = t.Resolution.Fallback
	inv.ApprovedAt, inv.ApprovedBy = &now, &operatorID
	approval.Investment = inv
	return approval, nil
}

// Accrue пересчитывает одну инвестицию под блокировкой строки.
// eval решает, что должно быть записано; дельты начисляются на баланс владельца
// в той же транзакции. Для не-Active записи ничего не делает.
func (r *Repository) Accrue(ctx context.Context, id uuid.UUID, now time.Time, eval func(*Investment, time.Time) Outcome) (*Investment, Outcome, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := scanInvestment(tx.QueryRow(ctx,
		`SELECT `+investmentColumns+` FROM investments i WHERE i.id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, Outcome{}, common.ErrInvestmentNotFound
		}
		return nil, Outcome{}, fmt.Errorf("ошибка чтения инвестиции: %w", err)
	}

	prev := inv.Status
	out := eval(inv, now)
	if prev != StatusActive || !out.Changed(prev) {
		return inv, out, nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE investments
		SET credited_roi = $2, credited_bonus = $3, status = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, id, out.CreditedRoi, out.CreditedBonus, out.Status, StatusActive)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("ошибка обновления начисления: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, Outcome{}, common.ErrInvalidTransition
	}

	if err := economy.Credit(ctx, tx, economy.Movement{
		UserID:      inv.UserID,
		Balance:     out.RoiDelta,
		Bonus:       out.BonusDelta,
		Type:        economy.TxRoiAccrual,
		Description: "Investment earnings: " + inv.Plan,
		ReferenceID: inv.ID.String(),
	}); err != nil {
		return nil, Outcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, Outcome{}, fmt.Errorf("ошибка фиксации начисления: %w", err)
	}

	inv.CreditedRoi, inv.CreditedBonus, inv.Status = out.CreditedRoi, out.CreditedBonus, out.Status
	return inv, out, nil
}

// SaveRun записывает итог прогона начисления.
func (r *Repository) SaveRun(ctx context.Context, run *AccrualRun) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO accrual_runs (trigger, started_at, finished_at, processed, updated, completed, expired, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, run.Trigger, run.StartedAt, run.FinishedAt,
		run.Processed, run.Updated, run.Completed, run.Expired, run.Failed,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи прогона начисления: %w", err)
	}
	return nil
}

// ListRuns — последние прогоны начисления.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*AccrualRun, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, trigger, started_at, finished_at, processed, updated, completed, expired, failed
		FROM accrual_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения прогонов: %w", err)
	}
	defer rows.Close()

	var out []*AccrualRun
	for rows.Next() {
		var run AccrualRun
		if err := rows.Scan(&run.ID, &run.Trigger, &run.StartedAt, &run.FinishedAt,
			&run.Processed, &run.Updated, &run.Completed, &run.Expired, &run.Failed); err != nil {
			return nil, fmt.Errorf("ошибка сканирования прогона: %w", err)
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

// Summary — агрегаты по инвестициям пользователя.
func (r *Repository) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	var s Summary
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(capital) FILTER (WHERE status <> 'Pending'), 0),
			COALESCE(SUM(roi), 0),
			COALESCE(SUM(credited_roi), 0),
			COALESCE(SUM(bonus), 0),
			COALESCE(SUM(credited_bonus), 0),
			COUNT(*) FILTER (WHERE status = 'Active'),
			COUNT(*) FILTER (WHERE status = 'Pending')
		FROM investments WHERE user_id = $1
	`, userID).Scan(&s.TotalCapital, &s.TotalRoi, &s.TotalCreditedRoi,
		&s.TotalBonus, &s.TotalCreditedBonus, &s.ActiveCount, &s.PendingCount)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта сводки: %w", err)
	}
	return &s, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*Investment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса инвестиций: %w", err)
	}
	defer rows.Close()

	var out []*Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
