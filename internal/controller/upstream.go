package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// safeRoutes is the fixed allowlist granted to every instance-scoped key:
// the OpenAI chat/responses/embeddings/rerank surface, the Anthropic
// messages endpoint, and the two billing-inspection endpoints.
var safeRoutes = []string{
	"/models", "/v1/models",
	"/chat/completions", "/v1/chat/completions",
	"/responses", "/v1/responses",
	"/rerank", "/v1/rerank", "/v2/rerank",
	"/embeddings", "/v1/embeddings",
	"/v1/messages",
	"/key/info", "/user/info",
}

// upstream is a thin client for the upstream model-proxy's admin API
// (the LiteLLM-shaped user/key management surface).
type upstream struct {
	baseURL        string
	adminKey       string
	globalBudget   float64
	instanceBudget float64
	http           *http.Client
}

func newUpstream(baseURL, adminKey string, globalBudget, instanceBudget float64) *upstream {
	return &upstream{
		baseURL:        baseURL,
		adminKey:       adminKey,
		globalBudget:   globalBudget,
		instanceBudget: instanceBudget,
		http:           &http.Client{},
	}
}

func (u *upstream) post(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}
	req, err := http.NewRequest(http.MethodPost, u.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.adminKey)

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (u *upstream) get(path string, params url.Values, out any) error {
	req, err := http.NewRequest(http.MethodGet, u.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+u.adminKey)

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (u *upstream) createUser(userID, userAlias string) error {
	return u.post("/user/new", map[string]any{
		"user_id":            userID,
		"user_alias":         userAlias,
		"send_invite_email":  false,
		"user_role":          "internal_user_viewer",
		"max_budget":         u.globalBudget,
		"auto_create_key":    false,
	}, &struct{}{})
}

type createKeyResponse struct {
	Key string `json:"key"`
}

func (u *upstream) createKey(userID, keyAlias string) (string, error) {
	var out createKeyResponse
	err := u.post("/key/generate", map[string]any{
		"key_alias":              keyAlias,
		"user_id":                userID,
		"send_invite_email":      false,
		"max_budget":             u.instanceBudget,
		"max_parallel_requests":  10,
		"allowed_routes":         safeRoutes,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Key, nil
}

func (u *upstream) deleteKey(key string) error {
	return u.post("/key/delete", map[string]any{"keys": []string{key}}, &struct{}{})
}

func (u *upstream) deleteUser(userID string) error {
	return u.post("/user/delete", map[string]any{"user_ids": []string{userID}}, &struct{}{})
}

type userInfoResponse struct {
	UserInfo struct {
		Spend float64 `json:"spend"`
	} `json:"user_info"`
}

func (u *upstream) queryUser(userID string) (float64, error) {
	var out userInfoResponse
	if err := u.get("/user/info", url.Values{"user_id": {userID}}, &out); err != nil {
		return 0, err
	}
	return out.UserInfo.Spend, nil
}

type keyInfoResponse struct {
	Info struct {
		Spend float64 `json:"spend"`
	} `json:"info"`
}

func (u *upstream) queryKey(key string) (float64, error) {
	var out keyInfoResponse
	if err := u.get("/key/info", url.Values{"key": {key}}, &out); err != nil {
		return 0, err
	}
	return out.Info.Spend, nil
}
