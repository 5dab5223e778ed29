package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

const sessionsPath = "/v1/checkout/sessions"

type checkoutGateway struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
}

// NewCheckoutGateway builds the hosted-checkout adapter. The webhook
// secret is the shared HMAC key the gateway signs callbacks with.
func NewCheckoutGateway(baseURL, apiKey, webhookSecret string) Gateway {
	if apiKey == "" {
		logger.L().Warn("payment gateway API key is empty")
	}
	if webhookSecret == "" {
		logger.L().Warn("payment webhook secret is empty, webhook verification will reject everything")
	}

	return &checkoutGateway{
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (g *checkoutGateway) CreateCheckoutSession(ctx context.Context, params SessionParams) (*CheckoutSession, error) {
	log := logger.FromCtx(ctx).With(
		zap.Int("line_items", len(params.LineItems)),
		zap.Int64("shipping_amount", params.ShippingAmount),
	)

	body := map[string]interface{}{
		"mode":        "payment",
		"line_items":  params.LineItems,
		"success_url": params.SuccessURL,
		"cancel_url":  params.CancelURL,
		"metadata":    params.Metadata,
	}
	if params.ShippingAmount > 0 {
		body["shipping_options"] = []map[string]interface{}{
			{"display_name": "Shipping", "amount": params.ShippingAmount},
		}
	}
	if params.CustomerEmail != "" {
		body["customer_email"] = params.CustomerEmail
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		log.Error("failed to marshal session request", zap.Error(err))
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+sessionsPath, bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Error("failed creating session request", zap.Error(err))
		return nil, err
	}

	req.SetBasicAuth(g.apiKey, "")
	req.Header.Set("Content-Type", "application/json")

	log.Info("creating checkout session")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("checkout session request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("failed to read gateway response", zap.Error(err))
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Error("gateway returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return nil, fmt.Errorf("payment gateway error: %s", string(respBody))
	}

	var session CheckoutSession
	if err := json.Unmarshal(respBody, &session); err != nil {
		log.Error("failed decoding gateway response", zap.Error(err))
		return nil, err
	}
	if session.URL == "" {
		return nil, fmt.Errorf("payment gateway returned no checkout url")
	}

	log.Info("checkout session created", zap.String("session_id", session.ID))

	return &session, nil
}

// VerifyWebhook recomputes an HMAC-SHA256 over the raw body and compares
// it in constant time against the hex signature header.
func (g *checkoutGateway) VerifyWebhook(rawBody []byte, signature string) (*Event, error) {
	if g.webhookSecret == "" || signature == "" {
		return nil, ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrBadSignature
	}

	var event Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	return &event, nil
}
