package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
)

// Client talks to the game server REST API
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// apiError is the server's error body
type apiError struct {
	Status  int
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) CreateSession(ctx context.Context, ruleset string, names service.PlayerNames) (*service.SessionInfo, error) {
	body := map[string]string{
		"config_id": ruleset,
		"player_a":  names.PlayerA,
		"player_b":  names.PlayerB,
	}
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &info, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, &info); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &info, nil
}

func (c *Client) Move(ctx context.Context, id string, pit int) (*service.MoveResult, error) {
	var result service.MoveResult
	path := "/api/sessions/" + url.PathEscape(id) + "/move"
	if err := c.do(ctx, http.MethodPost, path, map[string]int{"pit": pit}, &result); err != nil {
		return nil, fmt.Errorf("move pit %d: %w", pit, err)
	}
	return &result, nil
}

func (c *Client) Reset(ctx context.Context, id string) (*engine.GameState, error) {
	var resp struct {
		State *engine.GameState `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/reset", nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}
