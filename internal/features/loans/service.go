// Package loans — service.go
package loans

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/notifications"
)

// Store — хранилище займов.
type Store interface {
	Create(ctx context.Context, l *Loan) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Loan, error)
	List(ctx context.Context, status string, page common.Page) ([]*Loan, int, error)
	Process(ctx context.Context, id, operatorID uuid.UUID, approve bool, bonus func(decimal.Decimal) decimal.Decimal, now time.Time) (*Loan, error)
}

// Service управляет займами.
type Service struct {
	store    Store
	notifier notifications.Notifier
	enabled  bool
	now      func() time.Time
}

// NewService создаёт сервис. enabled — FEATURE_LOANS_ENABLED.
func NewService(store Store, notifier notifications.Notifier, enabled bool) *Service {
	return &Service{store: store, notifier: notifier, enabled: enabled, now: time.Now}
}

// Bonus — 5% от суммы займа, до центов.
func Bonus(amount decimal.Decimal) decimal.Decimal {
	return common.RoundMoney(amount.Mul(BonusRate))
}

// Request — заявка пользователя.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, req Request) (*Loan, error) {
	if !s.enabled {
		return nil, common.ErrLoansDisabled
	}
	if !req.Amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}

	l := &Loan{
		ID:      uuid.New(),
		UserID:  userID,
		Amount:  common.RoundMoney(req.Amount),
		Bonus:   decimal.Zero,
		Purpose: strings.TrimSpace(req.Purpose),
		Status:  StatusPending,
	}
	if err := s.store.Create(ctx, l); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"loan_id": l.ID, "user_id": userID, "amount": l.Amount.String()}).Info("Заявка на займ создана")
	s.notifier.Notify(ctx, notifications.Message{
		UserID: userID,
		Title:  "Loan Requested",
		Body:   fmt.Sprintf("Your loan request of %s is under review.", common.FormatUSD(l.Amount)),
		Type:   notifications.TypeLoan,
	})
	s.notifier.AlertAdmins(ctx, fmt.Sprintf("New loan request: %s (%s)", common.FormatUSD(l.Amount), l.Purpose))
	return l, nil
}

// ListMine — займы текущего пользователя.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]*Loan, error) {
	return s.store.ListByUser(ctx, userID)
}

// List — займы для админки.
func (s *Service) List(ctx context.Context, status string, page common.Page) ([]*Loan, int, error) {
	return s.store.List(ctx, status, page)
}

// Process — решение админа.
func (s *Service) Process(ctx context.Context, id, operatorID uuid.UUID, approve bool) (*Loan, error) {
	if !s.enabled {
		return nil, common.ErrLoansDisabled
	}
	l, err := s.store.Process(ctx, id, operatorID, approve, Bonus, s.now())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"loan_id": l.ID, "status": l.Status, "operator": operatorID}).Info("Займ обработан")

	msg := notifications.Message{UserID: l.UserID, Type: notifications.TypeLoan}
	if l.Status == StatusApproved {
		msg.Title = "Loan Approved"
		msg.Body = fmt.Sprintf("Your loan of %s was approved. We added %s bonus.",
			common.FormatUSD(l.Amount), common.FormatUSD(l.Bonus))
	} else {
		msg.Title = "Loan Rejected"
		msg.Body = fmt.Sprintf("Your loan request of %s was rejected.", common.FormatUSD(l.Amount))
	}
	s.notifier.Notify(ctx, msg)
	return l, nil
}
