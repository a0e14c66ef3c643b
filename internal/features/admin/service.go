// Package admin — service.go содержит вход в админку, проверку сессий
// и удаление пользователей.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/notifications"
)

// Store — то, что сервису нужно от хранилища.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	TouchSession(ctx context.Context, userID uuid.UUID, token string, now time.Time) (bool, error)
	DeactivateSessions(ctx context.Context, userID uuid.UUID) error
	LogAttempt(ctx context.Context, userID uuid.UUID, success bool) error
	FailedAttemptsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	Cleanup(ctx context.Context, now time.Time) (CleanupStats, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) (string, error)
}

// DocumentPurger удаляет файлы пользователя из объектного хранилища.
type DocumentPurger interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Service управляет админкой.
type Service struct {
	store        Store
	passwordHash string
	sessionTTL   time.Duration
	documents    DocumentPurger
	notifier     notifications.Notifier
	now          func() time.Time
}

// NewService создаёт сервис. documents может быть nil (S3 выключен).
func NewService(store Store, passwordHash string, sessionTTL time.Duration, documents DocumentPurger, notifier notifications.Notifier) *Service {
	return &Service{
		store:        store,
		passwordHash: passwordHash,
		sessionTTL:   sessionTTL,
		documents:    documents,
		notifier:     notifier,
		now:          time.Now,
	}
}

// Login проверяет пароль админки.
// 3 неудачные попытки за час блокируют вход на час.
func (s *Service) Login(ctx context.Context, userID uuid.UUID, password string) (*Session, error) {
	now := s.now()
	attempts, err := s.store.FailedAttemptsSince(ctx, userID, now.Add(-AttemptWindow))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения попыток входа: %w", err)
	}
	if attempts >= MaxFailedAttempts {
		return nil, common.ErrTooManyAdminAttempts
	}

	match := VerifyPassword(password, s.passwordHash)
	if err := s.store.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку входа в админку")
	}
	if !match {
		log.WithFields(log.Fields{"user_id": userID, "attempt": attempts + 1}).Warn("Неверный пароль админки")
		if attempts+1 >= MaxFailedAttempts {
			s.notifier.AlertAdmins(ctx, fmt.Sprintf("Admin login blocked for user %s after %d failed attempts", userID, MaxFailedAttempts))
		}
		return nil, common.ErrWrongPassword
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	log.WithField("user_id", userID).Info("Открыта админ-сессия")
	return session, nil
}

// HasActiveSession — есть ли у пользователя живая сессия с этим токеном.
// Заодно обновляет время последней активности.
func (s *Service) HasActiveSession(ctx context.Context, userID uuid.UUID, token string) bool {
	ok, err := s.store.TouchSession(ctx, userID, token, s.now())
	if err != nil {
		log.WithError(err).Error("Ошибка проверки админ-сессии")
		return false
	}
	return ok
}

// Logout закрывает все сессии админа.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.store.DeactivateSessions(ctx, userID)
}

// DeleteUser удаляет пользователя со всеми данными. Документы в S3 удаляются
// после коммита; их ошибка не откатывает удаление.
func (s *Service) DeleteUser(ctx context.Context, operatorID, userID uuid.UUID) error {
	email, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"email":    email,
		"operator": operatorID,
	}).Warn("Пользователь удалён")

	if s.documents != nil {
		n, err := s.documents.DeletePrefix(context.WithoutCancel(ctx), "kyc/"+userID.String()+"/")
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось удалить документы KYC")
		} else if n > 0 {
			log.WithFields(log.Fields{"user_id": userID, "objects": n}).Info("Документы KYC удалены")
		}
	}
	s.notifier.AlertAdmins(ctx, fmt.Sprintf("User deleted: %s", email))
	return nil
}

// Cleanup — периодическая уборка сессий и попыток входа.
func (s *Service) Cleanup(ctx context.Context) error {
	stats, err := s.store.Cleanup(ctx, s.now())
	if err != nil {
		return err
	}
	if stats.Sessions > 0 || stats.Attempts > 0 {
		log.WithFields(log.Fields{
			"sessions": stats.Sessions,
			"attempts": stats.Attempts,
		}).Info("Очистка админ-таблиц")
	}
	return nil
}
