package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Mailer отправляет письма POST-запросом на внешний эндпоинт.
type Mailer struct {
	endpoint string
	client   *http.Client
}

// NewMailer создаёт клиента почтового эндпоинта.
func NewMailer(endpoint string, timeout time.Duration) *Mailer {
	return &Mailer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Send отправляет {to, subject, message, type}. Любой не-2xx — ошибка.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email endpoint returned %d", resp.StatusCode)
	}
	return nil
}
