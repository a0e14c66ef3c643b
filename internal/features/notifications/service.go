package notifications

import (
	"context"

	"github.com/google/uuid"

	"serotonyl.ru/invest-platform/internal/common"
)

// Store — чтение и отметки уведомлений пользователем.
type Store interface {
	ListByUser(ctx context.Context, userID uuid.UUID, page common.Page) ([]*Notification, int, error)
	MarkSeen(ctx context.Context, userID uuid.UUID, id int64) error
	MarkAllSeen(ctx context.Context, userID uuid.UUID) (int64, error)
	UnseenCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service — уведомления со стороны пользователя.
type Service struct {
	store Store
}

// NewService создаёт сервис уведомлений.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List — страница уведомлений.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page common.Page) ([]*Notification, int, error) {
	return s.store.ListByUser(ctx, userID, page)
}

// MarkSeen — отметить одно.
func (s *Service) MarkSeen(ctx context.Context, userID uuid.UUID, id int64) error {
	if id <= 0 {
		return common.ErrNotificationNotFound
	}
	return s.store.MarkSeen(ctx, userID, id)
}

// MarkAllSeen — отметить все.
func (s *Service) MarkAllSeen(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.MarkAllSeen(ctx, userID)
}

// UnseenCount — счётчик для колокольчика.
func (s *Service) UnseenCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.UnseenCount(ctx, userID)
}
