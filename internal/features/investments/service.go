// Package investments — service.go содержит бизнес-логику инвестиций:
// подачу депозита, одобрение и прогон начисления.
package investments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/notifications"
	"serotonyl.ru/invest-platform/internal/features/plans"
	"serotonyl.ru/invest-platform/internal/metrics"
)

const defaultPaymentOption = "Bitcoin"

// Store — то, что сервису нужно от хранилища инвестиций.
type Store interface {
	Create(ctx context.Context, inv *Investment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Investment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Investment, error)
	List(ctx context.Context, f ListFilter) ([]*Investment, int, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	Approve(ctx context.Context, id, operatorID uuid.UUID, now time.Time, terms func(*Investment) Terms) (*Approval, error)
	Accrue(ctx context.Context, id uuid.UUID, now time.Time, eval func(*Investment, time.Time) Outcome) (*Investment, Outcome, error)
	SaveRun(ctx context.Context, run *AccrualRun) error
	ListRuns(ctx context.Context, limit int) ([]*AccrualRun, error)
	Summary(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

// Service управляет инвестициями.
type Service struct {
	store    Store
	notifier notifications.Notifier
	now      func() time.Time
	runMu    sync.Mutex // Один прогон начисления за раз в этом процессе
}

// NewService создаёт сервис инвестиций.
func NewService(store Store, notifier notifications.Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// WithClock подменяет часы (тесты, ручные прогоны).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create принимает депозит пользователя: инвестиция создаётся в статусе Pending
// и ждёт одобрения админом.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Investment, error) {
	name := strings.TrimSpace(req.Plan)
	if name == "" {
		return nil, common.ErrPlanRequired
	}
	if !req.Capital.IsPositive() {
		return nil, common.ErrInvalidAmount
	}

	duration := plans.FallbackDurationDays
	if p, ok := plans.Lookup(name); ok {
		if !p.AcceptsCapital(req.Capital) {
			return nil, fmt.Errorf("%s accepts %s: %w", p.Name, capitalRange(p), common.ErrCapitalOutOfRange)
		}
		name, duration = p.Name, p.DurationDays
	} else if res := plans.Resolve(name, 0); !res.Fallback {
		name, duration = res.Plan.Name, res.Plan.DurationDays
	} else {
		log.WithFields(log.Fields{
			"user_id": userID,
			"plan":    name,
		}).Warn("Депозит на неизвестный план, при одобрении будет дефолтная ставка")
	}

	payment := strings.TrimSpace(req.PaymentOption)
	if payment == "" {
		payment = defaultPaymentOption
	}

	inv := &Investment{
		ID:            uuid.New(),
		UserID:        userID,
		Plan:          name,
		Status:        StatusPending,
		Capital:       common.RoundMoney(req.Capital),
		DurationDays:  duration,
		PaymentOption: payment,
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       userID,
		"plan":          inv.Plan,
		"capital":       inv.Capital.String(),
	}).Info("Депозит подан")

	s.notifier.Notify(ctx, notifications.Message{
		UserID: userID,
		Title:  "Deposit Submitted",
		Body:   fmt.Sprintf("Your deposit of %s for the %s is awaiting approval.", common.FormatUSD(inv.Capital), inv.Plan),
		Type:   notifications.TypeInfo,
	})
	s.notifier.AlertAdmins(ctx, fmt.Sprintf("New deposit %s on %s from user %d (%s)",
		common.FormatUSD(inv.Capital), inv.Plan, inv.IDNum, inv.PaymentOption))
	return inv, nil
}

// Get возвращает инвестицию; чужую — как ненайденную.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Investment, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, common.ErrInvestmentNotFound
	}
	return inv, nil
}

// ListMine — инвестиции пользователя.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]*Investment, error) {
	return s.store.ListByUser(ctx, userID)
}

// Summary — сводка для дашборда.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	return s.store.Summary(ctx, userID)
}

// List — список для админки.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Investment, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown status %q: %w", f.Status, common.ErrInvalidTransition)
	}
	return s.store.List(ctx, f)
}

// TermsFor считает условия одобрения по плану инвестиции.
func TermsFor(inv *Investment) Terms {
	res := plans.Resolve(inv.Plan, inv.DurationDays)
	roi, bonus := res.Targets(inv.Capital)

	reward := decimal.Zero
	if !res.Fallback {
		reward = common.RoundMoney(inv.Capital.Mul(res.Plan.ReferralBonusRate))
	}
	return Terms{
		Resolution:     res,
		Roi:            roi,
		Bonus:          bonus,
		DailyRate:      res.EffectiveDailyRate(),
		DurationDays:   res.Plan.DurationDays,
		ReferralReward: reward,
	}
}

// Approve одобряет депозит: Pending→Active, цели ROI/бонуса по плану,
// капитал на баланс владельца. Уведомления и письмо — после коммита
// и без влияния на результат.
func (s *Service) Approve(ctx context.Context, id, operatorID uuid.UUID) (*Approval, error) {
	approval, err := s.store.Approve(ctx, id, operatorID, s.now(), TermsFor)
	if err != nil {
		return nil, err
	}
	inv, res := approval.Investment, approval.Terms.Resolution

	metrics.ApprovalsTotal.WithLabelValues(string(res.Source)).Inc()
	entry := log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       inv.UserID,
		"operator_id":   operatorID,
		"plan":          inv.Plan,
		"plan_source":   res.Source,
		"plan_fallback": res.Fallback,
		"capital":       inv.Capital.String(),
		"roi":           inv.Roi.String(),
		"bonus":         inv.Bonus.String(),
	})
	if res.Fallback {
		metrics.PlanFallbackTotal.Inc()
		entry.Warn("Инвестиция одобрена по дефолтной ставке: план не распознан")
		s.notifier.AlertAdmins(ctx, fmt.Sprintf(
			"Plan %q is not in the catalog: investment %s approved at the default %s%%/day for %d days",
			inv.Plan, inv.ID, plans.FallbackDailyRate.Mul(decimal.NewFromInt(100)).String(), inv.DurationDays))
	} else {
		entry.Info("Инвестиция одобрена")
	}

	s.notifier.Publish(ctx, notifications.Event{
		Type:   "investment.approved",
		UserID: inv.UserID,
		IDNum:  inv.IDNum,
		Data:   inv,
	})

	msg := fmt.Sprintf("Your investment of %s in the %s has been approved. Expected ROI: %s over %d days.",
		common.FormatUSD(inv.Capital), inv.Plan, common.FormatUSD(inv.Roi), inv.DurationDays)
	s.notifier.Notify(ctx, notifications.Message{
		UserID: inv.UserID,
		Title:  "Investment Approved",
		Body:   msg,
		Type:   notifications.TypeSuccess,
	})
	if approval.OwnerEmail != "" {
		s.notifier.Email(ctx, notifications.Email{
			To:      approval.OwnerEmail,
			Subject: "Investment Approved",
			Message: fmt.Sprintf("Hello %s,\n\n%s", approval.OwnerName, msg),
			Kind:    "investment_approval",
		})
	}
	return approval, nil
}

// RunAccrual проходит по всем Active-инвестициям и досчитывает начисления на текущий момент.
// Ошибка по одной инвестиции логируется и не останавливает прогон.
func (s *Service) RunAccrual(ctx context.Context, trigger Trigger) (*AccrualRun, error) {
	if !s.runMu.TryLock() {
		return nil, common.ErrAccrualInProgress
	}
	defer s.runMu.Unlock()

	run := &AccrualRun{Trigger: trigger, StartedAt: s.now()}
	ids, err := s.store.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Прогон начисления прерван")
			break
		}
		run.Processed++

		inv, out, err := s.store.Accrue(ctx, id, s.now(), Evaluate)
		if err != nil {
			run.Failed++
			log.WithError(err).WithField("investment_id", id).Error("Ошибка начисления, пропускаем")
			continue
		}
		if !out.Changed(StatusActive) {
			continue
		}

		run.Updated++
		switch out.Status {
		case StatusCompleted:
			run.Completed++
		case StatusExpired:
			run.Expired++
		}
		s.notifyEarnings(ctx, inv, out)
	}

	run.FinishedAt = s.now()
	if err := s.store.SaveRun(ctx, run); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("Не удалось сохранить итог прогона")
	}
	metrics.ObserveAccrualRun(string(trigger), run.Processed, run.Updated, run.Completed, run.Expired, run.Failed,
		run.FinishedAt.Sub(run.StartedAt))

	log.WithFields(log.Fields{
		"trigger":   trigger,
		"processed": run.Processed,
		"updated":   run.Updated,
		"completed": run.Completed,
		"expired":   run.Expired,
		"failed":    run.Failed,
	}).Info("Прогон начисления завершён")
	return run, nil
}

// Runs — последние прогоны начисления.
func (s *Service) Runs(ctx context.Context, limit int) ([]*AccrualRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListRuns(ctx, limit)
}

func (s *Service) notifyEarnings(ctx context.Context, inv *Investment, out Outcome) {
	if out.RoiDelta.IsPositive() || out.BonusDelta.IsPositive() {
		s.notifier.Notify(ctx, notifications.Message{
			UserID: inv.UserID,
			Title:  "Investment Earnings",
			Body: fmt.Sprintf("You earned %s ROI and %s bonus from your %s investment.",
				common.FormatUSD(out.RoiDelta), common.FormatUSD(out.BonusDelta), inv.Plan),
			Type: notifications.TypeEarnings,
		})
	}
	switch out.Status {
	case StatusCompleted:
		s.notifier.Notify(ctx, notifications.Message{
			UserID: inv.UserID,
			Title:  "Investment Completed",
			Body:   fmt.Sprintf("Your %s investment reached its target of %s.", inv.Plan, common.FormatUSD(inv.Roi)),
			Type:   notifications.TypeSuccess,
		})
	case StatusExpired:
		s.notifier.Notify(ctx, notifications.Message{
			UserID: inv.UserID,
			Title:  "Investment Expired",
			Body:   fmt.Sprintf("Your %s investment term has ended.", inv.Plan),
			Type:   notifications.TypeInfo,
		})
	}
}

func capitalRange(p plans.Plan) string {
	if p.Unlimited() {
		return common.FormatUSD(p.MinCapital) + " and above"
	}
	return common.FormatUSD(p.MinCapital) + " to " + common.FormatUSD(p.MaxCapital)
}
