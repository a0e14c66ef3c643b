// Package economy — service.go содержит бизнес-логику балансов:
// валидацию сумм, ручные начисления админом, историю.
package economy

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
)

// Store — то, что сервису нужно от хранилища.
type Store interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error)
	Apply(ctx context.Context, m Movement) error
	GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error)
}

// Service управляет балансами.
type Service struct {
	store Store
}

// NewService создаёт новый сервис экономики.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetBalance возвращает текущие остатки пользователя.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	return s.store.GetBalance(ctx, userID)
}

// History — последние 50 движений.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	return s.store.GetTransactions(ctx, userID, 50)
}

// AddFunds начисляет средства вручную (админка).
// Хотя бы одна из сумм должна быть положительной, отрицательные запрещены.
func (s *Service) AddFunds(ctx context.Context, userID uuid.UUID, balance, bonus decimal.Decimal, description string) error {
	if balance.IsNegative() || bonus.IsNegative() || (balance.IsZero() && bonus.IsZero()) {
		return common.ErrInvalidAmount
	}
	if description == "" {
		description = "Funds added by admin"
	}

	err := s.store.Apply(ctx, Movement{
		UserID:      userID,
		Balance:     common.RoundMoney(balance),
		Bonus:       common.RoundMoney(bonus),
		Type:        TxAdminCredit,
		Description: description,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"balance": balance.String(),
		"bonus":   bonus.String(),
	}).Info("Средства начислены админом")
	return nil
}
