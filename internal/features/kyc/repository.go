// Package kyc — repository.go работает с таблицей kyc и полем users.kyc_status.
package kyc

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
)

const kycColumns = `
	id, user_id, full_name, document_type, document_number, document_key,
	status, review_note, reviewed_by, reviewed_at, created_at`

// Repository работает с заявками KYC.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

func scanSubmission(row pgx.Row) (*Submission, error) {
	var s Submission
	err := row.Scan(
		&s.ID, &s.UserID, &s.FullName, &s.DocumentType, &s.DocumentNumber, &s.DocumentKey,
		&s.Status, &s.ReviewNote, &s.ReviewedBy, &s.ReviewedAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByUser — заявка пользователя или common.ErrKYCNotFound.
func (r *Repository) GetByUser(ctx context.Context, userID uuid.UUID) (*Submission, error) {
	return r.get(ctx, `SELECT `+kycColumns+` FROM kyc WHERE user_id = $1`, userID)
}

// GetByID — заявка по id или common.ErrKYCNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	return r.get(ctx, `SELECT `+kycColumns+` FROM kyc WHERE id = $1`, id)
}

func (r *Repository) get(ctx context.Context, sql string, arg any) (*Submission, error) {
	s, err := scanSubmission(r.db.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrKYCNotFound
		}
		return nil, fmt.Errorf("ошибка чтения KYC: %w", err)
	}
	return s, nil
}

// Upsert сохраняет заявку (повторная подача перезаписывает прежнюю)
// и ставит users.kyc_status = submitted. Одобренную заявку не трогает.
func (r *Repository) Upsert(ctx context.Context, s *Submission) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO kyc (id, user_id, full_name, document_type, document_number, document_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    document_type = EXCLUDED.document_type,
		    document_number = EXCLUDED.document_number,
		    document_key = EXCLUDED.document_key,
		    status = EXCLUDED.status,
		    review_note = '', reviewed_by = NULL, reviewed_at = NULL,
		    created_at = NOW()
		WHERE kyc.status <> $8
		RETURNING id, created_at
	`, s.ID, s.UserID, s.FullName, s.DocumentType, s.DocumentNumber, s.DocumentKey,
		StatusSubmitted, StatusApproved,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrKYCAlreadyApproved
		}
		return fmt.Errorf("ошибка сохранения KYC: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE users SET kyc_status = $2, updated_at = NOW() WHERE id = $1`, s.UserID, StatusSubmitted)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса KYC: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации KYC: %w", err)
	}
	s.Status = StatusSubmitted
	return nil
}

// List — заявки для админки, по умолчанию все.
func (r *Repository) List(ctx context.Context, status string, page common.Page) ([]*Submission, int, error) {
	var (
		cond string
		args []any
	)
	if status != "" {
		args = append(args, status)
		cond = " WHERE status = $1"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM kyc`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта KYC: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	rows, err := r.db.Query(ctx, `SELECT `+kycColumns+` FROM kyc`+cond+
		` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выборки KYC: %w", err)
	}
	defer rows.Close()

	var out []*Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования KYC: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// Review в одной транзакции меняет статус заявки и users.kyc_status.
// Проверять можно только поданную заявку.
func (r *Repository) Review(ctx context.Context, id, operatorID uuid.UUID, status, note string, now time.Time) (*Reviewed, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	s, err := scanSubmission(tx.QueryRow(ctx, `SELECT `+kycColumns+` FROM kyc WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrKYCNotFound
		}
		return nil, fmt.Errorf("ошибка чтения KYC: %w", err)
	}
	if s.Status == StatusApproved {
		return nil, common.ErrKYCAlreadyApproved
	}

	if _, err := tx.Exec(ctx, `
		UPDATE kyc SET status = $2, review_note = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1
	`, id, status, note, operatorID, now); err != nil {
		return nil, fmt.Errorf("ошибка обновления KYC: %w", err)
	}

	var email string
	err = tx.QueryRow(ctx, `
		UPDATE users SET kyc_status = $2, updated_at = NOW() WHERE id = $1 RETURNING email
	`, s.UserID, status).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса пользователя: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации KYC: %w", err)
	}

	s.Status = status
	s.ReviewNote = note
	s.ReviewedBy = &operatorID
	s.ReviewedAt = &now
	return &Reviewed{Submission: s, OwnerEmail: email}, nil
}
