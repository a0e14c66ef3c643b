// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях сервиса.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отдавать клиенту понятные сообщения и коды ответа.
package common

import "errors"

// Ошибки денег и балансов
var (
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance — на счёте не хватает средств
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ошибки аккаунтов
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailInUse — email уже зарегистрирован
	ErrEmailInUse = errors.New("an account already exists with this email, try logging in")
	// ErrInvalidEmail — email не похож на email
	ErrInvalidEmail = errors.New("please enter a valid email address")
	// ErrWeakPassword — пароль не проходит правила
	ErrWeakPassword = errors.New("password must be at least 8 characters and include letters, numbers, and special characters")
	// ErrInvalidCredentials — неверный email или пароль
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")
)

// Ошибки инвестиций
var (
	// ErrInvestmentNotFound — инвестиция не найдена
	ErrInvestmentNotFound = errors.New("investment not found")
	// ErrInvalidTransition — статус уже сменился (или переход не разрешён)
	ErrInvalidTransition = errors.New("investment status does not allow this transition")
	// ErrCapitalOutOfRange — сумма вне лимитов плана
	ErrCapitalOutOfRange = errors.New("capital is outside the plan limits")
	// ErrPlanRequired — план не указан
	ErrPlanRequired = errors.New("plan is required")
	// ErrAccrualInProgress — начисление уже идёт в этом процессе
	ErrAccrualInProgress = errors.New("accrual run already in progress")
)

// Ошибки выводов
var (
	// ErrBelowMinimumWithdrawal — сумма меньше минимальной ($200)
	ErrBelowMinimumWithdrawal = errors.New("minimum withdrawal amount is $200")
	// ErrKYCRequired — без пройденного KYC выводы закрыты
	ErrKYCRequired = errors.New("complete KYC verification to enable withdrawals")
	// ErrMissingBankDetails — для банковского перевода не хватает реквизитов
	ErrMissingBankDetails = errors.New("bank name, account number and account holder name are required")
	// ErrMissingWalletAddress — для криптовывода не указан кошелёк
	ErrMissingWalletAddress = errors.New("wallet address is required")
	// ErrWithdrawalNotFound — вывод не найден
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	// ErrWithdrawalProcessed — вывод уже обработан
	ErrWithdrawalProcessed = errors.New("withdrawal has already been processed")
)

// Ошибки KYC
var (
	ErrKYCNotFound        = errors.New("kyc submission not found")
	ErrKYCAlreadyApproved = errors.New("kyc is already approved")
	ErrKYCInvalidDecision = errors.New("decision must be approved or rejected")
	ErrDocumentRequired   = errors.New("document file is required")
	ErrStorageDisabled    = errors.New("document storage is not configured")
)

// Ошибки рефералки
var (
	ErrReferralsDisabled   = errors.New("referrals are disabled")
	ErrReferralCodeInvalid = errors.New("referral code is invalid or expired")
	ErrSelfReferral        = errors.New("you cannot use your own referral code")
	ErrAlreadyReferred     = errors.New("account is already linked to a referrer")
	ErrRewardNotFound      = errors.New("referral reward not found")
	ErrRewardAlreadyPaid   = errors.New("referral reward is already paid")
)

// Ошибки займов
var (
	ErrLoansDisabled = errors.New("loans are disabled")
	ErrLoanNotFound  = errors.New("loan not found")
	ErrLoanProcessed = errors.New("loan has already been processed")
)

// Ошибки уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("this action requires admin privileges")
	// ErrWrongPassword — неверный пароль админки
	ErrWrongPassword = errors.New("wrong admin password")
	// ErrTooManyAdminAttempts — 3 неудачные попытки за час
	ErrTooManyAdminAttempts = errors.New("too many attempts, wait 1 hour")
	// ErrSessionExpired — админ-сессия истекла
	ErrSessionExpired = errors.New("admin session expired, authenticate again")
	// ErrOrphanedRows — после удаления пользователя остались связанные строки
	ErrOrphanedRows = errors.New("related rows remain after user deletion")
)
