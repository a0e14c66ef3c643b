// Package ratelimit — ограничение попыток входа.
// Неудачные попытки по email лежат в Redis в sorted set (score — время в мс),
// у ключа TTL = окно, так что счётчик живёт между рестартами и между репликами.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/metrics"
)

const keyPrefix = "login:failures:"

// Policy — правила лимитера.
type Policy struct {
	MaxAttempts  int           // Сколько неудач за окно блокируют вход полностью
	FreeAttempts int           // Сколько неудач проходят без задержки
	Window       time.Duration // Окно скольжения
	BaseDelay    time.Duration // Задержка после первой "платной" неудачи, дальше ×2
}

// DefaultPolicy: 5 неудач за 30 минут, первые 3 бесплатно, дальше 1s, 2s, ...
var DefaultPolicy = Policy{
	MaxAttempts:  5,
	FreeAttempts: 3,
	Window:       30 * time.Minute,
	BaseDelay:    time.Second,
}

// ThrottledError — вход временно запрещён.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s (retry in %s)", common.ErrTooManyAttempts, e.Wait.Round(time.Second))
}

func (e *ThrottledError) Unwrap() error { return common.ErrTooManyAttempts }

// RetryAfter — сколько ждать до следующей попытки.
func (e *ThrottledError) RetryAfter() time.Duration { return e.Wait }

// LoginLimiter считает неудачные попытки входа.
type LoginLimiter struct {
	rdb    redis.Cmdable
	policy Policy
	now    func() time.Time
}

// NewLoginLimiter создаёт лимитер поверх Redis.
func NewLoginLimiter(rdb redis.Cmdable, policy Policy) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, policy: policy, now: time.Now}
}

// Delay — задержка перед следующей попыткой после failures неудач.
func (p Policy) Delay(failures int) time.Duration {
	if failures < p.FreeAttempts {
		return 0
	}
	return p.BaseDelay * time.Duration(math.Pow(2, float64(failures-p.FreeAttempts)))
}

// Check разрешает или запрещает попытку входа.
// Ошибки Redis не блокируют вход: логируем и пропускаем.
func (l *LoginLimiter) Check(ctx context.Context, email string) error {
	key := l.key(email)
	now := l.now()

	cutoff := now.Add(-l.policy.Window).UnixMilli()
	if err := l.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		log.WithError(err).Warn("Лимитер логина: Redis недоступен, пропускаем проверку")
		return nil
	}
	failures, err := l.rdb.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		log.WithError(err).Warn("Лимитер логина: Redis недоступен, пропускаем проверку")
		return nil
	}

	n := len(failures)
	if n == 0 {
		return nil
	}

	if n >= l.policy.MaxAttempts {
		oldest := time.UnixMilli(int64(failures[0].Score))
		return l.throttled(email, n, oldest.Add(l.policy.Window).Sub(now))
	}

	last := time.UnixMilli(int64(failures[n-1].Score))
	if wait := l.policy.Delay(n) - now.Sub(last); wait > 0 {
		return l.throttled(email, n, wait)
	}
	return nil
}

// Failure записывает неудачную попытку.
func (l *LoginLimiter) Failure(ctx context.Context, email string) {
	key := l.key(email)
	now := l.now()
	nonce, _ := common.RandomDigits(6)

	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, &redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: strconv.FormatInt(now.UnixNano(), 10) + ":" + nonce,
		})
		pipe.PExpire(ctx, key, l.policy.Window)
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Лимитер логина: не удалось записать неудачную попытку")
	}
}

// Reset очищает счётчик после успешного входа.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if err := l.rdb.Del(ctx, l.key(email)).Err(); err != nil {
		log.WithError(err).Warn("Лимитер логина: не удалось сбросить счётчик")
	}
}

func (l *LoginLimiter) throttled(email string, failures int, wait time.Duration) error {
	if wait < time.Second {
		wait = time.Second
	}
	metrics.LoginThrottled.Inc()
	log.WithFields(log.Fields{
		"email":    email,
		"failures": failures,
		"wait":     wait.String(),
	}).Warn("Вход временно заблокирован")
	return &ThrottledError{Wait: wait}
}

func (l *LoginLimiter) key(email string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(email))
}
