package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// Mailer sends transactional emails. Every send is best-effort: callers
// log failures and move on, a lost email never changes an order's outcome.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, name, orderID string, total float64) error
	SendStatusUpdate(ctx context.Context, to, name, orderID, status string) error
}

type httpMailer struct {
	baseURL    string
	httpClient *http.Client
}

func NewMailer(baseURL string) Mailer {
	return &httpMailer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (m *httpMailer) SendOrderConfirmation(ctx context.Context, to, name, orderID string, total float64) error {
	subject := fmt.Sprintf("Order %s confirmed", orderID)
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received your payment of %.2f for order %s. We'll let you know when it ships.\n",
		name, total, orderID,
	)
	return m.send(ctx, to, subject, body)
}

func (m *httpMailer) SendStatusUpdate(ctx context.Context, to, name, orderID, status string) error {
	var subject, body string

	// Shipping gets its own template: it is the one update buyers act on.
	if status == "shipped" {
		subject = fmt.Sprintf("Order %s is on its way", orderID)
		body = fmt.Sprintf("Hi %s,\n\nGood news: order %s has shipped.\n", name, orderID)
	} else {
		subject = fmt.Sprintf("Order %s update", orderID)
		body = fmt.Sprintf("Hi %s,\n\nYour order %s is now %s.\n", name, orderID, status)
	}
	return m.send(ctx, to, subject, body)
}

func (m *httpMailer) send(ctx context.Context, to, subject, body string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("to", to),
		zap.String("subject", subject),
	)

	payload, err := json.Marshal(map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/send", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Warn("mail dispatch failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("mail service rejected message", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("mail service returned %d", resp.StatusCode)
	}

	log.Info("email dispatched")
	return nil
}
