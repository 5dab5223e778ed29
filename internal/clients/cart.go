package clients

import (
	"context"
	"net/http"
	"time"
)

// Cart is the cart service's cleanup API. Clearing the cart after checkout
// is cosmetic; callers never propagate its failure.
type Cart interface {
	ClearCart(ctx context.Context, token string) error
}

type cartClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCartClient(baseURL string) Cart {
	return &cartClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *cartClient) ClearCart(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/cart/clear", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{
			Service:    "cart",
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}
	return nil
}
