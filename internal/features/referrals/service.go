package referrals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/notifications"
)

// Store — хранилище рефералки.
type Store interface {
	Link(ctx context.Context, referredID uuid.UUID, code string, now time.Time) (*Referral, error)
	SetCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error
	Stats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	ListRewards(ctx context.Context, status string, page common.Page) ([]*Reward, int, error)
	PayReward(ctx context.Context, id int64, now time.Time) (*Reward, error)
}

// Service — реферальная программа. При enabled=false все пользовательские
// операции отвечают ErrReferralsDisabled.
type Service struct {
	store    Store
	notifier notifications.Notifier
	enabled  bool
	now      func() time.Time
}

// NewService создаёт сервис рефералки.
func NewService(store Store, notifier notifications.Notifier, enabled bool) *Service {
	return &Service{store: store, notifier: notifier, enabled: enabled, now: time.Now}
}

// Enabled — включена ли программа.
func (s *Service) Enabled() bool { return s.enabled }

// Link привязывает пользователя по коду пригласившего.
func (s *Service) Link(ctx context.Context, referredID uuid.UUID, code string) (*Referral, error) {
	if !s.enabled {
		return nil, common.ErrReferralsDisabled
	}
	code = NormalizeCode(code)
	if len(code) != CodeLength {
		return nil, common.ErrReferralCodeInvalid
	}

	ref, err := s.store.Link(ctx, referredID, code, s.now())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"referrer_id": ref.ReferrerID,
		"referred_id": referredID,
		"level":       ref.Level,
	}).Info("Реферал привязан")

	s.notifier.Notify(ctx, notifications.Message{
		UserID: ref.ReferrerID,
		Title:  "New Referral",
		Body:   fmt.Sprintf("User %d joined with your referral code.", ref.ReferredIDNum),
		Type:   notifications.TypeReferral,
	})
	return ref, nil
}

// RefreshCode выдаёт новый код на CodeTTL.
func (s *Service) RefreshCode(ctx context.Context, userID uuid.UUID, seed string) (string, time.Time, error) {
	if !s.enabled {
		return "", time.Time{}, common.ErrReferralsDisabled
	}
	expiresAt := s.now().Add(CodeTTL)
	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		code, err := NewCode(seed)
		if err != nil {
			return "", time.Time{}, err
		}
		err = s.store.SetCode(ctx, userID, code, expiresAt)
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		if err != nil {
			return "", time.Time{}, err
		}
		return code, expiresAt, nil
	}
	return "", time.Time{}, fmt.Errorf("no free referral code after %d attempts", MaxCodeAttempts)
}

// Stats — статистика пользователя.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	if !s.enabled {
		return nil, common.ErrReferralsDisabled
	}
	return s.store.Stats(ctx, userID)
}

// ListRewards — награды для админки.
func (s *Service) ListRewards(ctx context.Context, status string, page common.Page) ([]*Reward, int, error) {
	switch status {
	case "", StatusPending, StatusPaid:
	default:
		return nil, 0, common.ErrRewardNotFound
	}
	return s.store.ListRewards(ctx, status, page)
}

// PayReward зачисляет награду пригласившему.
func (s *Service) PayReward(ctx context.Context, id int64) (*Reward, error) {
	w, err := s.store.PayReward(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"reward_id":   w.ID,
		"referrer_id": w.ReferrerID,
		"amount":      w.Total().String(),
	}).Info("Реферальная награда выплачена")

	s.notifier.Notify(ctx, notifications.Message{
		UserID: w.ReferrerID,
		Title:  "Referral Reward",
		Body:   fmt.Sprintf("You received a referral reward of %s.", common.FormatUSD(w.Total())),
		Type:   notifications.TypeReferral,
	})
	return w, nil
}
