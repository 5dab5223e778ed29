package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// UserDetails is the subset of the identity service's user record the saga
// needs for notification personalization.
type UserDetails struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Identity resolves user ids to contact details. A hard dependency when
// called on the synchronous path, best-effort on post-payment paths.
type Identity interface {
	GetUserDetails(ctx context.Context, userID, token string) (*UserDetails, error)
}

type identityClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewIdentityClient(baseURL string) Identity {
	return &identityClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *identityClient) GetUserDetails(ctx context.Context, userID, token string) (*UserDetails, error) {
	url := fmt.Sprintf("%s/user/%s", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{
			Service:    "identity",
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}

	var details UserDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, err
	}
	return &details, nil
}
