// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежедневное начисление ROI
// и ежечасная уборка админ-сессий.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/investments"
)

// AccrualRunner — прогон начисления.
type AccrualRunner interface {
	RunAccrual(ctx context.Context, trigger investments.Trigger) (*investments.AccrualRun, error)
}

// Cleaner — периодическая уборка.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron        *cron.Cron
	loc         *time.Location
	accrualSpec string
	runOnStart  bool
	accrual     AccrualRunner
	cleaner     Cleaner
	wg          sync.WaitGroup
}

// NewScheduler создаёт планировщик в часовом поясе loc.
// accrualSpec — cron-выражение начисления (ACCRUAL_CRON).
func NewScheduler(loc *time.Location, accrualSpec string, runOnStart bool, accrual AccrualRunner, cleaner Cleaner) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		loc:         loc,
		accrualSpec: accrualSpec,
		runOnStart:  runOnStart,
		accrual:     accrual,
		cleaner:     cleaner,
	}
}

// Start регистрирует задачи и запускает cron.
// При runOnStart начисление запускается сразу, не дожидаясь расписания.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.accrualSpec, func() {
		log.Info("[CRON] Ежедневное начисление ROI")
		s.runAccrual(ctx, investments.TriggerCron)
	}); err != nil {
		return fmt.Errorf("некорректное расписание начисления %q: %w", s.accrualSpec, err)
	}

	if s.cleaner != nil {
		if _, err := s.cron.AddFunc("0 * * * *", func() {
			log.Debug("[CRON] Уборка админ-сессий")
			if err := s.cleaner.Cleanup(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка уборки")
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"accrual":  s.accrualSpec,
		"timezone": s.loc.String(),
	}).Info("Планировщик задач запущен")

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Info("[CRON] Начисление при старте")
			s.runAccrual(ctx, investments.TriggerStartup)
		}()
	}
	return nil
}

func (s *Scheduler) runAccrual(ctx context.Context, trigger investments.Trigger) {
	run, err := s.accrual.RunAccrual(ctx, trigger)
	switch {
	case errors.Is(err, common.ErrAccrualInProgress):
		log.WithField("trigger", trigger).Warn("[CRON] Начисление уже идёт, пропускаем")
	case err != nil:
		log.WithError(err).WithField("trigger", trigger).Error("[CRON] Ошибка начисления")
	default:
		log.WithFields(log.Fields{
			"trigger": trigger,
			"updated": run.Updated,
			"failed":  run.Failed,
		}).Debug("[CRON] Начисление выполнено")
	}
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	log.Info("Планировщик задач остановлен")
}
