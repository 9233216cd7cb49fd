// Package client is the Go side of the client sync layer: typed calls to
// the HTTP API, a websocket watcher that keeps a poll view current, and
// the locally persisted soft identity.
package client

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

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

var ErrRateLimited = errors.New("rate limited")

// APIError is a non-2xx answer of the server. It unwraps to the matching
// domain error so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation":
		return domain.ErrValidation
	case "poll_not_found":
		return domain.ErrPollNotFound
	case "option_not_found":
		return domain.ErrOptionNotFound
	case "duplicate_network":
		return domain.ErrDuplicateNetwork
	case "duplicate_identity":
		return domain.ErrDuplicateIdentity
	case "rate_limited":
		return ErrRateLimited
	}
	return nil
}

type API struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) (*API, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{baseURL: u, httpClient: httpClient}, nil
}

func (a *API) BaseURL() string {
	return a.baseURL.String()
}

// WebsocketURL is the room subscription endpoint of the same server.
func (a *API) WebsocketURL() string {
	u := *a.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

func (a *API) CreatePoll(ctx context.Context, question string, options []string, creatorID string) (*domain.Poll, error) {
	body := map[string]any{"question": question, "options": options, "creator_id": creatorID}
	var poll domain.Poll
	if err := a.do(ctx, http.MethodPost, "/api/polls", body, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func (a *API) GetPoll(ctx context.Context, pollID string) (*domain.Poll, error) {
	var poll domain.Poll
	if err := a.do(ctx, http.MethodGet, "/api/polls/"+url.PathEscape(pollID), nil, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func (a *API) ListByCreator(ctx context.Context, creatorID string) ([]domain.Poll, error) {
	var polls []domain.Poll
	if err := a.do(ctx, http.MethodGet, "/api/polls/user/"+url.PathEscape(creatorID), nil, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (a *API) ListVotedBy(ctx context.Context, userID string) ([]domain.Poll, error) {
	var polls []domain.Poll
	if err := a.do(ctx, http.MethodGet, "/api/polls/voted/"+url.PathEscape(userID), nil, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// Vote returns the committed poll including the caller's vote.
func (a *API) Vote(ctx context.Context, pollID, optionID, userID string) (*domain.Poll, error) {
	body := map[string]string{"option_id": optionID, "user_id": userID}
	var poll domain.Poll
	if err := a.do(ctx, http.MethodPost, "/api/polls/"+url.PathEscape(pollID)+"/vote", body, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func (a *API) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
