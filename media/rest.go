/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// RestCaller talks to a Home Assistant style REST API:
// POST /api/services/{domain}/{service} and GET /api/states/{entity}.
type RestCaller struct {
	base   string
	token  string
	client *http.Client
	logger zerolog.Logger
}

func NewRestCaller(baseURL, token string, logger zerolog.Logger) *RestCaller {
	return &RestCaller{
		base:  strings.TrimSuffix(baseURL, "/"),
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "rest_caller").Logger(),
	}
}

func (rc *RestCaller) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+rc.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func (rc *RestCaller) CallService(ctx context.Context, domain, service, entity string, data map[string]any) error {
	payload := map[string]any{"entity_id": entity}
	for k, v := range data {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal service call: %w", err)
	}

	url := fmt.Sprintf("%s/api/services/%s/%s", rc.base, domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	if _, err := rc.do(req); err != nil {
		return fmt.Errorf("call %s.%s on %s: %w", domain, service, entity, err)
	}

	return nil
}

func (rc *RestCaller) EntityState(ctx context.Context, entity string) (string, map[string]any, error) {
	url := fmt.Sprintf("%s/api/states/%s", rc.base, entity)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}

	body, err := rc.do(req)
	if err != nil {
		return "", nil, fmt.Errorf("state of %s: %w", entity, err)
	}

	var state struct {
		State      string         `json:"state"`
		Attributes map[string]any `json:"attributes"`
	}
	if err := json.Unmarshal(body, &state); err != nil {
		return "", nil, fmt.Errorf("decode state of %s: %w", entity, err)
	}

	return state.State, state.Attributes, nil
}
