// Package accounts — service.go содержит регистрацию, вход и админские операции над пользователями.
package accounts

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
	"golang.org/x/crypto/bcrypt"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/investments"
	"serotonyl.ru/invest-platform/internal/features/notifications"
	"serotonyl.ru/invest-platform/internal/features/referrals"
)

const maxCreateAttempts = 12

// Store — хранилище пользователей.
type Store interface {
	Create(ctx context.Context, u *User, signupBonus decimal.Decimal) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, f ListFilter) ([]*User, int, error)
	ConfirmEmails(ctx context.Context, email string) (int64, error)
}

// Limiter — лимитер неудачных входов.
type Limiter interface {
	Check(ctx context.Context, email string) error
	Failure(ctx context.Context, email string)
	Reset(ctx context.Context, email string)
}

// TokenIssuer выпускает JWT.
type TokenIssuer interface {
	GenerateToken(userID uuid.UUID, idnum int64, isAdmin bool) (string, time.Time, error)
}

// ReferralLinker привязывает нового пользователя по коду.
type ReferralLinker interface {
	Enabled() bool
	Link(ctx context.Context, referredID uuid.UUID, code string) (*referrals.Referral, error)
}

// InvestmentSummary — сводка инвестиций для дашборда.
type InvestmentSummary interface {
	Summary(ctx context.Context, userID uuid.UUID) (*investments.Summary, error)
}

// FundsAdder — ручное начисление.
type FundsAdder interface {
	AddFunds(ctx context.Context, userID uuid.UUID, balance, bonus decimal.Decimal, description string) error
}

// Service управляет пользователями.
type Service struct {
	store       Store
	limiter     Limiter
	tokens      TokenIssuer
	referrals   ReferralLinker
	investments InvestmentSummary
	funds       FundsAdder
	notifier    notifications.Notifier
	signupBonus decimal.Decimal
	bcryptCost  int
	now         func() time.Time

	// Неизвестный email проверяется против этого хэша,
	// чтобы время ответа не выдавало, есть ли такой пользователь.
	compareHash func(hash, password []byte) error
	dummyOnce   sync.Once
	dummyHash   []byte
}

// Deps — зависимости сервиса аккаунтов.
type Deps struct {
	Store       Store
	Limiter     Limiter
	Tokens      TokenIssuer
	Referrals   ReferralLinker
	Investments InvestmentSummary
	Funds       FundsAdder
	Notifier    notifications.Notifier
	SignupBonus decimal.Decimal
}

// NewService создаёт сервис аккаунтов.
func NewService(d Deps) *Service {
	return &Service{
		store:       d.Store,
		limiter:     d.Limiter,
		tokens:      d.Tokens,
		referrals:   d.Referrals,
		investments: d.Investments,
		funds:       d.Funds,
		notifier:    d.Notifier,
		signupBonus: d.SignupBonus,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
		compareHash: bcrypt.CompareHashAndPassword,
	}
}

// Signup регистрирует пользователя: бонус за регистрацию, реферальный код,
// уведомление. Неверный код приглашения не мешает регистрации.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	email := NormalizeEmail(req.Email)
	if !ValidEmail(email) {
		return nil, common.ErrInvalidEmail
	}
	if !ValidPassword(req.Password) {
		return nil, common.ErrWeakPassword
	}
	name := strings.TrimSpace(req.Name)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	var u *User
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		u, err = s.newUser(email, string(hash), name, req)
		if err != nil {
			return nil, err
		}
		err = s.store.Create(ctx, u, s.signupBonus)
		if !errors.Is(err, errCollision) {
			break
		}
		log.WithField("attempt", attempt+1).Debug("Коллизия idnum/кода, пробуем ещё раз")
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": u.ID,
		"idnum":   u.IDNum,
	}).Info("Новый пользователь зарегистрирован")

	if s.signupBonus.IsPositive() {
		s.notifier.Notify(ctx, notifications.Message{
			UserID: u.ID,
			Title:  "Sign Up Bonus",
			Body:   fmt.Sprintf("You just received %s sign up bonus", common.FormatUSD(s.signupBonus)),
			Type:   notifications.TypeSignupBonus,
		})
	}
	s.notifier.AlertAdmins(ctx, fmt.Sprintf("New signup: %s (%d)", u.Email, u.IDNum))

	session, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	if code := strings.TrimSpace(req.ReferralCode); code != "" && s.referrals != nil && s.referrals.Enabled() {
		if _, err := s.referrals.Link(ctx, u.ID, code); err != nil {
			log.WithError(err).WithField("user_id", u.ID).Warn("Код приглашения не принят")
			session.ReferralError = err.Error()
		}
	}
	return session, nil
}

func (s *Service) newUser(email, hash, name string, req SignupRequest) (*User, error) {
	idnum, err := common.NewIDNum()
	if err != nil {
		return nil, err
	}
	seed := name
	if seed == "" {
		seed = email
	}
	code, err := referrals.NewCode(seed)
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(referrals.CodeTTL)

	return &User{
		ID:                    uuid.New(),
		IDNum:                 idnum,
		Email:                 email,
		PasswordHash:          hash,
		Name:                  name,
		Username:              strings.TrimSpace(req.Username),
		Phone:                 strings.TrimSpace(req.Phone),
		Country:               strings.TrimSpace(req.Country),
		Balance:               decimal.Zero,
		Bonus:                 decimal.Zero,
		ReferralCode:          &code,
		ReferralCodeExpiresAt: &expires,
	}, nil
}

// Login проверяет пароль под лимитером попыток.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := NormalizeEmail(req.Email)
	if err := s.limiter.Check(ctx, email); err != nil {
		return nil, err
	}

	u, err := s.store.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrUserNotFound) {
		return nil, err
	}
	hash := s.missingUserHash()
	if u != nil {
		hash = []byte(u.PasswordHash)
	}
	mismatch := s.compareHash(hash, []byte(req.Password)) != nil
	if u == nil || mismatch {
		s.limiter.Failure(ctx, email)
		log.WithField("email", email).Warn("Неудачная попытка входа")
		return nil, common.ErrInvalidCredentials
	}

	s.limiter.Reset(ctx, email)
	log.WithField("user_id", u.ID).Info("Пользователь вошёл")
	return s.issue(u)
}

// missingUserHash строится один раз с той же стоимостью, что и пароли пользователей.
func (s *Service) missingUserHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.bcryptCost)
		if err != nil {
			log.WithError(err).Error("Не удалось построить хэш для неизвестных email")
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Service) issue(u *User) (*Session, error) {
	token, expires, err := s.tokens.GenerateToken(u.ID, u.IDNum, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: u}, nil
}

// Me — профиль текущего пользователя.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, userID)
}

// Dashboard — балансы и сводка по инвестициям.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.investments.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Balance:     u.Balance,
		Bonus:       u.Bonus,
		Total:       u.Balance.Add(u.Bonus),
		KYCStatus:   u.KYCStatus,
		Investments: summary,
	}, nil
}

// List — список для админки.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*User, int, error) {
	return s.store.List(ctx, f)
}

// AddFunds — ручное начисление админом с уведомлением пользователю.
func (s *Service) AddFunds(ctx context.Context, userID uuid.UUID, req FundsRequest) (*User, error) {
	if err := s.funds.AddFunds(ctx, userID, req.Balance, req.Bonus, req.Description); err != nil {
		return nil, err
	}

	var parts []string
	if req.Balance.IsPositive() {
		parts = append(parts, common.FormatUSD(req.Balance)+" to your balance")
	}
	if req.Bonus.IsPositive() {
		parts = append(parts, common.FormatUSD(req.Bonus)+" to your bonus")
	}
	s.notifier.Notify(ctx, notifications.Message{
		UserID: userID,
		Title:  "Balance Updated",
		Body:   "We added " + strings.Join(parts, " and ") + ".",
		Type:   notifications.TypeBalanceUpdate,
	})
	return s.store.GetByID(ctx, userID)
}

// ConfirmEmails подтверждает email (один или все неподтверждённые).
func (s *Service) ConfirmEmails(ctx context.Context, email string) (int64, error) {
	n, err := s.store.ConfirmEmails(ctx, NormalizeEmail(email))
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"email": email, "confirmed": n}).Info("Email подтверждены")
	return n, nil
}

// CheckUsers — один пользователь по email или первая страница всех.
func (s *Service) CheckUsers(ctx context.Context, email string) ([]*User, error) {
	if email = NormalizeEmail(email); email != "" {
		u, err := s.store.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return []*User{u}, nil
	}
	users, _, err := s.store.List(ctx, ListFilter{Page: 1, Limit: 100})
	return users, err
}
