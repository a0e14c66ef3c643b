// Package admin — repository.go работает с таблицами admin_sessions и admin_login_attempts
// и удаляет пользователей со всеми связанными строками.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres"
	"serotonyl.ru/invest-platform/internal/features/referrals"
)

// Repository работает с админ-таблицами.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// CreateSession создаёт новую сессию администратора.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO admin_sessions (user_id, session_token, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, authenticated_at, last_activity
	`, s.UserID, s.Token, s.ExpiresAt).Scan(&s.ID, &s.AuthenticatedAt, &s.LastActivity)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	s.IsActive = true
	return nil
}

// TouchSession продлевает активность сессии с этим токеном.
// false — активной неистёкшей сессии нет.
func (r *Repository) TouchSession(ctx context.Context, userID uuid.UUID, token string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE admin_sessions SET last_activity = $3
		WHERE user_id = $1 AND session_token = $2 AND is_active = TRUE AND expires_at > $3
	`, userID, token, now)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки сессии: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeactivateSessions закрывает все сессии пользователя.
func (r *Repository) DeactivateSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE admin_sessions SET is_active = FALSE WHERE user_id = $1`, userID)
	return err
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID uuid.UUID, success bool) error {
	_, err := r.db.Exec(ctx, `INSERT INTO admin_login_attempts (user_id, success) VALUES ($1, $2)`, userID, success)
	return err
}

// FailedAttemptsSince — число неудачных попыток начиная с since.
func (r *Repository) FailedAttemptsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE user_id = $1 AND success = FALSE AND attempt_time >= $2
	`, userID, since).Scan(&count)
	return count, err
}

// Cleanup удаляет истёкшие и закрытые сессии и старые попытки входа.
func (r *Repository) Cleanup(ctx context.Context, now time.Time) (CleanupStats, error) {
	var stats CleanupStats
	tag, err := r.db.Exec(ctx, `DELETE FROM admin_sessions WHERE expires_at <= $1 OR is_active = FALSE`, now)
	if err != nil {
		return stats, fmt.Errorf("ошибка очистки сессий: %w", err)
	}
	stats.Sessions = tag.RowsAffected()

	tag, err = r.db.Exec(ctx, `DELETE FROM admin_login_attempts WHERE attempt_time < $1`, now.Add(-attemptRetention))
	if err != nil {
		return stats, fmt.Errorf("ошибка очистки попыток входа: %w", err)
	}
	stats.Attempts = tag.RowsAffected()
	return stats, nil
}

// orphanCheck — таблицы, где после удаления пользователя не должно остаться строк.
var orphanCheck = []string{
	"investments", "withdrawals", "notifications", "kyc", "loans", "transactions",
}

// DeleteUser удаляет пользователя в одной транзакции. Связанные строки уходят
// по ON DELETE CASCADE; перед коммитом проверяется, что ничего не осталось.
// Если пользователя кто-то пригласил, счётчики реферера пересчитываются там же:
// каскад удаляет строку referrals и её награды.
func (r *Repository) DeleteUser(ctx context.Context, userID uuid.UUID) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var referrerID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT referrer_id FROM referrals WHERE referred_id = $1`, userID).Scan(&referrerID)
	referred := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("ошибка чтения реферера: %w", err)
	}

	var email string
	err = tx.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING email`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", common.ErrUserNotFound
		}
		return "", fmt.Errorf("ошибка удаления пользователя: %w", err)
	}

	if referred {
		if err := referrals.RefreshAggregates(ctx, tx, referrerID); err != nil {
			return "", err
		}
	}

	for _, table := range orphanCheck {
		var left int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, userID).Scan(&left); err != nil {
			return "", fmt.Errorf("ошибка проверки %s: %w", table, err)
		}
		if left > 0 {
			log.WithFields(log.Fields{"user_id": userID, "table": table, "rows": left}).Error("Остались строки удалённого пользователя")
			return "", fmt.Errorf("%s: %w", table, common.ErrOrphanedRows)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("ошибка фиксации удаления: %w", err)
	}
	return email, nil
}
