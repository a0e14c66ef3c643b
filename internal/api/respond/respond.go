// Package respond переводит ошибки сервисов в HTTP-ответы.
// Все обработчики отдают ошибки в одном формате: {"error": "..."}.
package respond

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
)

// retryAfter реализуют ошибки лимитеров.
type retryAfter interface {
	RetryAfter() time.Duration
}

var statusByError = []struct {
	err    error
	status int
}{
	{common.ErrInvalidAmount, http.StatusBadRequest},
	{common.ErrInsufficientBalance, http.StatusConflict},
	{common.ErrUserNotFound, http.StatusNotFound},
	{common.ErrEmailInUse, http.StatusConflict},
	{common.ErrInvalidEmail, http.StatusBadRequest},
	{common.ErrWeakPassword, http.StatusBadRequest},
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrTooManyAttempts, http.StatusTooManyRequests},
	{common.ErrInvestmentNotFound, http.StatusNotFound},
	{common.ErrInvalidTransition, http.StatusConflict},
	{common.ErrCapitalOutOfRange, http.StatusBadRequest},
	{common.ErrPlanRequired, http.StatusBadRequest},
	{common.ErrAccrualInProgress, http.StatusConflict},
	{common.ErrBelowMinimumWithdrawal, http.StatusBadRequest},
	{common.ErrKYCRequired, http.StatusForbidden},
	{common.ErrMissingBankDetails, http.StatusBadRequest},
	{common.ErrMissingWalletAddress, http.StatusBadRequest},
	{common.ErrWithdrawalNotFound, http.StatusNotFound},
	{common.ErrWithdrawalProcessed, http.StatusConflict},
	{common.ErrKYCNotFound, http.StatusNotFound},
	{common.ErrKYCAlreadyApproved, http.StatusConflict},
	{common.ErrKYCInvalidDecision, http.StatusBadRequest},
	{common.ErrDocumentRequired, http.StatusBadRequest},
	{common.ErrStorageDisabled, http.StatusServiceUnavailable},
	{common.ErrReferralsDisabled, http.StatusNotFound},
	{common.ErrReferralCodeInvalid, http.StatusBadRequest},
	{common.ErrSelfReferral, http.StatusBadRequest},
	{common.ErrAlreadyReferred, http.StatusConflict},
	{common.ErrRewardNotFound, http.StatusNotFound},
	{common.ErrRewardAlreadyPaid, http.StatusConflict},
	{common.ErrLoansDisabled, http.StatusNotFound},
	{common.ErrLoanNotFound, http.StatusNotFound},
	{common.ErrLoanProcessed, http.StatusConflict},
	{common.ErrNotificationNotFound, http.StatusNotFound},
	{common.ErrNotAdmin, http.StatusForbidden},
	{common.ErrWrongPassword, http.StatusUnauthorized},
	{common.ErrTooManyAdminAttempts, http.StatusTooManyRequests},
	{common.ErrSessionExpired, http.StatusUnauthorized},
}

// Status возвращает HTTP-код для ошибки. Неизвестные ошибки — 500.
func Status(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// Error пишет ответ с ошибкой. Текст внутренних ошибок наружу не отдаётся.
func Error(c *gin.Context, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}

	var ra retryAfter
	if errors.As(err, &ra) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ra.RetryAfter().Seconds()))))
	}
	log.WithError(err).WithField("path", c.Request.URL.Path).Debug("Запрос отклонён")
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// BadRequest — невалидное тело или параметры.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// PageFromQuery читает ?page=&limit=.
func PageFromQuery(c *gin.Context) common.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return common.NormalizePage(page, limit)
}

// UUIDParam парсит uuid из параметра пути. При ошибке уже ответил 400.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
