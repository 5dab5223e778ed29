package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// ReservationItem is one line of an inventory hold request.
type ReservationItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Inventory is the product service's reservation API. ReserveStock is a
// hard dependency of order creation; confirm and cancel are compensation
// calls whose failures the caller swallows.
type Inventory interface {
	ReserveStock(ctx context.Context, items []ReservationItem, token string) error
	ConfirmReservation(ctx context.Context, orderID string, items []ReservationItem, token string) error
	CancelReservation(ctx context.Context, orderID string, items []ReservationItem, token string) error
}

type inventoryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewInventoryClient(baseURL string) Inventory {
	return &inventoryClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *inventoryClient) ReserveStock(ctx context.Context, items []ReservationItem, token string) error {
	log := logger.FromCtx(ctx).With(zap.Int("item_count", len(items)))
	log.Info("reserving stock")

	err := c.do(ctx, http.MethodPost, c.baseURL+"/reserve", map[string]interface{}{"items": items}, token)
	if err != nil {
		log.Error("stock reservation failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *inventoryClient) ConfirmReservation(ctx context.Context, orderID string, items []ReservationItem, token string) error {
	url := fmt.Sprintf("%s/confirm-reservation/%s", c.baseURL, orderID)
	return c.do(ctx, http.MethodPost, url, map[string]interface{}{"items": items}, token)
}

func (c *inventoryClient) CancelReservation(ctx context.Context, orderID string, items []ReservationItem, token string) error {
	url := fmt.Sprintf("%s/reservation/%s", c.baseURL, orderID)
	return c.do(ctx, http.MethodDelete, url, map[string]interface{}{"items": items}, token)
}

func (c *inventoryClient) do(ctx context.Context, method, url string, body interface{}, token string) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{
			Service:    "inventory",
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}
	return nil
}

// readErrorMessage extracts a {"message": ...} or {"error": ...} body,
// falling back to the raw text.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(body)
	if err != nil || len(raw) == 0 {
		return "unexpected response"
	}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return string(raw)
}
