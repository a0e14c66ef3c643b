// Package notifytest — записывающий Notifier для тестов сервисов.
package notifytest

import (
	"context"
	"sync"

	"serotonyl.ru/invest-platform/internal/features/notifications"
)

// Recorder запоминает всё, что ему отправили.
type Recorder struct {
	mu       sync.Mutex
	Messages []notifications.Message
	Emails   []notifications.Email
	Alerts   []string
	Events   []notifications.Event
}

var _ notifications.Notifier = (*Recorder)(nil)

func (r *Recorder) Notify(_ context.Context, m notifications.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, m)
}

func (r *Recorder) Email(_ context.Context, e notifications.Email) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Emails = append(r.Emails, e)
}

func (r *Recorder) AlertAdmins(_ context.Context, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Alerts = append(r.Alerts, text)
}

func (r *Recorder) Publish(_ context.Context, e notifications.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
}

// Titles — заголовки уведомлений по порядку.
func (r *Recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, m.Title)
	}
	return out
}
