package notifications

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/metrics"
)

const sideEffectTimeout = 10 * time.Second

// Inserter пишет уведомление в БД.
type Inserter interface {
	Insert(ctx context.Context, m Message) (*Notification, error)
}

// Publisher отправляет события (Kafka).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Sender отправляет письма.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Alerter отправляет алерты админам.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Dispatcher — реализация Notifier. Любой канал, кроме БД, может быть nil.
type Dispatcher struct {
	store     Inserter
	publisher Publisher
	mailer    Sender
	alerter   Alerter
	now       func() time.Time
}

// NewDispatcher собирает диспетчер уведомлений.
func NewDispatcher(store Inserter, publisher Publisher, mailer Sender, alerter Alerter) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		mailer:    mailer,
		alerter:   alerter,
		now:       time.Now,
	}
}

// Notify сохраняет уведомление и публикует notification.created.
// Вызывается после коммита, поэтому отмена запроса не должна терять запись.
func (d *Dispatcher) Notify(ctx context.Context, m Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	n, err := d.store.Insert(ctx, m)
	if err != nil {
		metrics.SideEffectFailures.WithLabelValues("notification").Inc()
		log.WithError(err).WithFields(log.Fields{
			"user_id": m.UserID,
			"title":   m.Title,
		}).Warn("Не удалось сохранить уведомление")
		return
	}

	d.Publish(ctx, Event{
		Type:   "notification.created",
		UserID: n.UserID,
		IDNum:  n.IDNum,
		Data:   n,
	})
}

// Publish отправляет событие, если Kafka настроена.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	if d.publisher == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = d.now()
	}
	if err := d.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		metrics.SideEffectFailures.WithLabelValues("kafka").Inc()
		log.WithError(err).WithField("type", e.Type).Warn("Не удалось отправить событие")
	}
}

// Email отправляет письмо в фоне.
func (d *Dispatcher) Email(ctx context.Context, e Email) {
	if d.mailer == nil || e.To == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := d.mailer.Send(ctx, e); err != nil {
			metrics.SideEffectFailures.WithLabelValues("email").Inc()
			log.WithError(err).WithFields(log.Fields{
				"to":   e.To,
				"type": e.Kind,
			}).Warn("Письмо не отправлено")
		}
	}()
}

// AlertAdmins отправляет алерт в Telegram в фоне.
func (d *Dispatcher) AlertAdmins(ctx context.Context, text string) {
	if d.alerter == nil {
		log.WithField("alert", text).Debug("Telegram выключен, алерт только в лог")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := d.alerter.Alert(ctx, text); err != nil {
			metrics.SideEffectFailures.WithLabelValues("telegram").Inc()
			log.WithError(err).Warn("Алерт админам не отправлен")
		}
	}()
}
