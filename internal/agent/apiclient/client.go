package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"teamstream/internal/core/domain"
	pkgerrors "teamstream/pkg/errors"
)

// Client talks to the teamstream HTTP API on behalf of an agent.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer token used on subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login obtains a connection token, which also renews the user's channel
// grants server-side.
func (c *Client) Login(ctx context.Context, userID domain.UserID) (string, error) {
	body, _ := json.Marshal(map[string]domain.UserID{"user_id": userID})

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/login", body, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// ListStreams performs the cheap bulk listing for a team. The summaries are
// enough to render immediately; detail is fetched in the background.
func (c *Client) ListStreams(ctx context.Context, teamID domain.TeamID) ([]domain.StreamSummary, error) {
	var resp struct {
		Streams []domain.Stream `json:"streams"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/teams/"+string(teamID)+"/streams", nil, &resp); err != nil {
		return nil, pkgerrors.NewFetchError("bulk stream listing for team "+string(teamID), err)
	}

	summaries := make([]domain.StreamSummary, 0, len(resp.Streams))
	for _, s := range resp.Streams {
		summaries = append(summaries, domain.StreamSummary{
			ID:   s.ID,
			Name: s.Name,
			Type: s.Type,
		})
	}
	return summaries, nil
}

// FetchStreamDetail loads the full record for one stream.
func (c *Client) FetchStreamDetail(ctx context.Context, id domain.StreamID) (*domain.StreamSummary, error) {
	var resp struct {
		Stream domain.Stream `json:"stream"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/streams/"+string(id), nil, &resp); err != nil {
		return nil, err
	}

	return &domain.StreamSummary{
		ID:   resp.Stream.ID,
		Name: resp.Stream.Name,
		Type: resp.Stream.Type,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
