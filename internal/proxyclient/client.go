// Package proxyclient is the harness-side HTTP client for the Proxy
// Controller Service: user/key provisioning, balance queries, health.
package proxyclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Client talks to the Proxy Controller Service's /harness/* endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client targeting baseURL (e.g. http://127.0.0.1:4001).
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

type errorEnvelope struct {
	Error *string `json:"error"`
}

func (c *Client) get(path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := c.http.Get(u)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", path, err)
	}
	return nil
}

// CreateUser provisions a proxy user with the given total quota.
func (c *Client) CreateUser(userID, userAlias string, quota float64) error {
	return c.get("/harness/create_user", url.Values{
		"user_id":    {userID},
		"user_alias": {userAlias},
		"quota":      {fmt.Sprintf("%g", quota)},
	}, &errorEnvelope{})
}

// DeleteUser removes a proxy user. Failures here are expected to be
// logged and swallowed by the caller, not retried indefinitely.
func (c *Client) DeleteUser(userID string) error {
	return c.get("/harness/delete_user", url.Values{"user_id": {userID}}, &errorEnvelope{})
}

// CreatedKey is the result of provisioning a scoped model-proxy key.
type CreatedKey struct {
	Key  string `json:"key"`
	Hash string `json:"hash"`
}

// CreateKey provisions a single-instance-scoped key under userID.
func (c *Client) CreateKey(userID, keyAlias string, quota float64) (CreatedKey, error) {
	var out struct {
		errorEnvelope
		CreatedKey
	}
	if err := c.get("/harness/create_key", url.Values{
		"user_id":   {userID},
		"key_alias": {keyAlias},
		"quota":     {fmt.Sprintf("%g", quota)},
	}, &out); err != nil {
		return CreatedKey{}, err
	}
	return out.CreatedKey, nil
}

// DeleteKey revokes a previously created key.
func (c *Client) DeleteKey(key string) error {
	return c.get("/harness/delete_key", url.Values{"key": {key}}, &errorEnvelope{})
}

// Balance is the spend reported for a user and a key. Either field is
// nil if the upstream query for that entity failed.
type Balance struct {
	UserUsage *float64 `json:"user_usage"`
	KeyUsage  *float64 `json:"key_usage"`
}

// QueryBalance fetches spend for userID and key.
func (c *Client) QueryBalance(userID, key string) (Balance, error) {
	var out struct {
		errorEnvelope
		Balance
	}
	if err := c.get("/harness/query_balance", url.Values{
		"user_id": {userID},
		"key":     {key},
	}, &out); err != nil {
		return Balance{}, err
	}
	return out.Balance, nil
}

// Health reports the controller's compatibility markers.
type Health struct {
	Compat []string `json:"compat"`
}

// Health checks the controller's /harness/health endpoint and returns
// its reported compatibility markers.
func (c *Client) Health() (Health, error) {
	var h Health
	if err := c.get("/harness/health", nil, &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

// SupportsV1 reports whether "v1" is present in the health response,
// the compatibility check preflight requires before proceeding.
func (h Health) SupportsV1() bool {
	for _, c := range h.Compat {
		if c == "v1" {
			return true
		}
	}
	return false
}
