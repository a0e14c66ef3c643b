// Package withdrawals — service.go проверяет заявку до любого обращения к хранилищу,
// затем списывает баланс и уведомляет пользователя и админов.
package withdrawals

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

const kycApproved = "approved"

// Store — хранилище выводов.
type Store interface {
	KYCStatus(ctx context.Context, userID uuid.UUID) (string, error)
	Create(ctx context.Context, w *Withdrawal) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Withdrawal, error)
	List(ctx context.Context, f ListFilter) ([]*Withdrawal, int, error)
	Process(ctx context.Context, id, operatorID uuid.UUID, d Decision, now time.Time) (*Processed, error)
}

// Service управляет выводами.
type Service struct {
	store    Store
	notifier notifications.Notifier
	minimum  decimal.Decimal
	now      func() time.Time
}

// NewService создаёт сервис. minimum — минимальная сумма вывода.
func NewService(store Store, notifier notifications.Notifier, minimum decimal.Decimal) *Service {
	return &Service{store: store, notifier: notifier, minimum: minimum, now: time.Now}
}

// Validate проверяет заявку без обращения к хранилищу.
func (s *Service) Validate(req Request) error {
	if !req.Amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	if req.Amount.LessThan(s.minimum) {
		return common.ErrBelowMinimumWithdrawal
	}
	if strings.TrimSpace(req.PaymentOption) == PaymentBankTransfer {
		if strings.TrimSpace(req.BankName) == "" ||
			strings.TrimSpace(req.BankAccountNumber) == "" ||
			strings.TrimSpace(req.BankAccountName) == "" {
			return common.ErrMissingBankDetails
		}
		return nil
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		return common.ErrMissingWalletAddress
	}
	return nil
}

// Create оформляет заявку: проверка, KYC, списание с баланса.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req Request) (*Withdrawal, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	status, err := s.store.KYCStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status != kycApproved {
		return nil, common.ErrKYCRequired
	}

	w := &Withdrawal{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        common.RoundMoney(req.Amount),
		Status:        StatusPending,
		PaymentOption: strings.TrimSpace(req.PaymentOption),
	}
	if w.PaymentOption == PaymentBankTransfer {
		w.BankName = strings.TrimSpace(req.BankName)
		w.BankAccountNumber = strings.TrimSpace(req.BankAccountNumber)
		w.BankAccountName = strings.TrimSpace(req.BankAccountName)
		w.BankRoutingSwift = strings.TrimSpace(req.BankRoutingSwift)
	} else {
		w.WalletAddress = strings.TrimSpace(req.WalletAddress)
	}

	if err := s.store.Create(ctx, w); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"withdrawal_id": w.ID,
		"user_id":       userID,
		"amount":        w.Amount.String(),
		"option":        w.PaymentOption,
	}).Info("Заявка на вывод создана")

	s.notifier.Notify(ctx, notifications.Message{
		UserID: userID,
		Title:  "Withdrawal Requested",
		Body:   fmt.Sprintf("Your withdrawal of %s via %s is being processed.", common.FormatUSD(w.Amount), w.PaymentOption),
		Type:   notifications.TypeWithdrawal,
	})
	s.notifier.AlertAdmins(ctx, fmt.Sprintf("New withdrawal: %s via %s (user %d)",
		common.FormatUSD(w.Amount), w.PaymentOption, w.IDNum))
	return w, nil
}

// ListMine — выводы текущего пользователя.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]*Withdrawal, error) {
	return s.store.ListByUser(ctx, userID)
}

// List — список для админки. Неизвестный статус — ошибка запроса.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Withdrawal, int, error) {
	switch f.Status {
	case "", StatusPending, StatusCompleted, StatusRejected:
	default:
		return nil, 0, fmt.Errorf("unknown status %q: %w", f.Status, common.ErrInvalidTransition)
	}
	return s.store.List(ctx, f)
}

// Process — решение админа по заявке.
func (s *Service) Process(ctx context.Context, id, operatorID uuid.UUID, d Decision) (*Withdrawal, error) {
	if d != DecisionApprove && d != DecisionReject {
		return nil, fmt.Errorf("unknown decision %q: %w", d, common.ErrInvalidTransition)
	}

	res, err := s.store.Process(ctx, id, operatorID, d, s.now())
	if err != nil {
		return nil, err
	}
	w := res.Withdrawal

	log.WithFields(log.Fields{
		"withdrawal_id": w.ID,
		"status":        w.Status,
		"operator":      operatorID,
	}).Info("Вывод обработан")

	msg := notifications.Message{UserID: w.UserID, Type: notifications.TypeWithdrawal}
	if w.Status == StatusCompleted {
		msg.Title = "Withdrawal Completed"
		msg.Body = fmt.Sprintf("Your withdrawal of %s has been sent.", common.FormatUSD(w.Amount))
	} else {
		msg.Title = "Withdrawal Rejected"
		msg.Body = fmt.Sprintf("Your withdrawal of %s was rejected and the amount returned to your account.", common.FormatUSD(w.Amount))
	}
	s.notifier.Notify(ctx, msg)
	if res.OwnerEmail != "" {
		s.notifier.Email(ctx, notifications.Email{
			To:      res.OwnerEmail,
			Subject: msg.Title,
			Message: msg.Body,
			Kind:    "withdrawal_" + strings.ToLower(w.Status),
		})
	}
	return w, nil
}
