// Path: internal/gameclient/client.go
package gameclient

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

	"golang.org/x/time/rate"

	"tictactoe/internal/config"
	"tictactoe/internal/domain"
)

// Client calls the game service over HTTP. It satisfies the request broker's
// SessionCreator and the relay's GameReader when services run apart.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates and configures a new Client.
func NewClient(cfg config.ServicesConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.GameURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(
			rate.Limit(cfg.RequestsPerSecond),
			cfg.BurstLimit,
		),
	}
}

type createSessionRequest struct {
	FromPlayer string `json:"fromPlayer"`
	ToPlayer   string `json:"toPlayer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateSession asks the game service to start a session between a and b.
func (c *Client) CreateSession(ctx context.Context, a, b string) (*domain.Game, error) {
	body, err := json.Marshal(createSessionRequest{FromPlayer: a, ToPlayer: b})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	var g domain.Game
	if err := c.do(ctx, http.MethodPost, "/games", body, http.StatusCreated, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGame fetches a session by id.
func (c *Client) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	var g domain.Game
	if err := c.do(ctx, http.MethodGet, "/games/"+url.PathEscape(id), nil, http.StatusOK, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", domain.ErrDependency, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", domain.ErrDependency, err)
	}

	if resp.StatusCode != want {
		var e errorResponse
		_ = json.Unmarshal(respBody, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: game service: %s", statusKind(resp.StatusCode), e.Error)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: failed to unmarshal json response: %v", domain.ErrDependency, err)
	}
	return nil
}

func statusKind(code int) error {
	switch code {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusServiceUnavailable:
		return domain.ErrTransient
	default:
		return domain.ErrDependency
	}
}
