// Package notifications — repository.go работает с таблицей notifications.
package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/db/postgres"
)

// Repository работает с уведомлениями.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Insert добавляет уведомление. idnum подтягивается из users.
func (r *Repository) Insert(ctx context.Context, m Message) (*Notification, error) {
	n := &Notification{
		UserID:  m.UserID,
		Title:   m.Title,
		Message: m.Body,
		Type:    m.Type,
		Status:  StatusUnseen,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, idnum, title, message, type, status)
		SELECT id, idnum, $2, $3, $4, $5 FROM users WHERE id = $1
		RETURNING id, idnum, created_at
	`, m.UserID, m.Title, m.Body, m.Type, StatusUnseen).Scan(&n.ID, &n.IDNum, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи уведомления: %w", err)
	}
	return n, nil
}

// ListByUser возвращает уведомления пользователя, новые сверху, и общее число.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page common.Page) ([]*Notification, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта уведомлений: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, idnum, title, message, type, status, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения уведомлений: %w", err)
	}
	defer rows.Close()

	var list []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.IDNum, &n.Title, &n.Message, &n.Type, &n.Status, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, n)
	}
	return list, total, rows.Err()
}

// MarkSeen помечает одно уведомление прочитанным. Чужое — как ненайденное.
func (r *Repository) MarkSeen(ctx context.Context, userID uuid.UUID, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET status = $3 WHERE id = $1 AND user_id = $2`,
		id, userID, StatusSeen)
	if err != nil {
		return fmt.Errorf("ошибка обновления уведомления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotificationNotFound
	}
	return nil
}

// MarkAllSeen помечает все уведомления прочитанными, возвращает сколько изменилось.
func (r *Repository) MarkAllSeen(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET status = $2 WHERE user_id = $1 AND status = $3`,
		userID, StatusSeen, StatusUnseen)
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления уведомлений: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UnseenCount — число непрочитанных.
func (r *Repository) UnseenCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND status = $2`,
		userID, StatusUnseen).Scan(&n)
	return n, err
}
