package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client calls the external identity/group/model system over HTTP. It
// implements Identity, AccessGroups and ModelRegistry.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// APIError is a non-2xx response from the bridge.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge: %d %s", e.Status, e.Message)
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

/* ------------------------------ Identity ------------------------------ */

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/users/by-email/"+url.PathEscape(email), nil, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateUser(ctx context.Context, email, name, password, role string) (*User, error) {
	payload := map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
		"role":     role,
	}
	var u User
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/users", payload, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GenerateToken(ctx context.Context, userID string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/users/"+url.PathEscape(userID)+"/token", nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

/* ----------------------------- AccessGroups ---------------------------- */

func (c *Client) CreateGroup(ctx context.Context, name, description, owner string) (string, error) {
	payload := map[string]string{
		"name":        name,
		"description": description,
		"owner":       owner,
	}
	var g Group
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/groups", payload, &g); err != nil {
		return "", err
	}
	return g.ID, nil
}

func (c *Client) AddUserToGroup(ctx context.Context, groupID, userID string) error {
	payload := map[string]string{"user_id": userID}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/groups/"+url.PathEscape(groupID)+"/members", payload, nil)
	// Existing membership is success.
	if errorIsAlreadyExists(err) {
		return nil
	}
	return err
}

func (c *Client) GetGroupByID(ctx context.Context, groupID string) (*Group, error) {
	var g Group
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/groups/"+url.PathEscape(groupID), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/groups/"+url.PathEscape(groupID), nil, nil)
}

/* ----------------------------- ModelRegistry --------------------------- */

func (c *Client) CreateModel(ctx context.Context, m Model) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/models", m, nil)
}

func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/models/"+url.PathEscape(modelID), nil, nil)
}

/* -------------------------------- plumbing ----------------------------- */

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrAlreadyExists
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var apiErr struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		msg := apiErr.Detail
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorIsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAlreadyExists) {
		return true
	}
	// Some bridge deployments answer 400 "already a member" instead of 409.
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "already")
}
