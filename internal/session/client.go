package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"audiorating/internal/api"
)

var (
	// ErrBackendOffline reports that the rating service could not be reached.
	// Local data is kept whenever this is returned.
	ErrBackendOffline = errors.New("rating backend offline")
	// ErrRejected reports a submission or lookup refused by the backend.
	ErrRejected = errors.New("rating backend rejected request")
)

// RemoteError carries the backend's failure body.
type RemoteError struct {
	Status int
	Body   api.ErrorResponse
}

func (e *RemoteError) Error() string {
	if e.Body.ErrorID != "" {
		return fmt.Sprintf("backend returned %d: %s (error_id %s)", e.Status, e.Body.Detail, e.Body.ErrorID)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

func (e *RemoteError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return ErrBackendOffline
	}
	return ErrRejected
}

// Client talks to the rating backend over HTTP.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

// NewClient parses baseURL, accepting a bare host:port.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("backend url is not configured")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		http:  &http.Client{Timeout: timeout},
		token: strings.TrimSpace(token),
	}, nil
}

// Ping checks that the backend answers its root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var out api.HealthResponse
	_, err := c.do(ctx, http.MethodGet, "/api", nil, nil, &out)
	return err
}

// FetchStudy loads the study definition, registering uid with it.
func (c *Client) FetchStudy(ctx context.Context, nameShort, uid string) (api.StudyResponse, error) {
	query := url.Values{}
	if strings.TrimSpace(uid) != "" {
		query.Set("uid", uid)
	}
	var out api.StudyResponse
	_, err := c.do(ctx, http.MethodGet, "/api/studies/"+url.PathEscape(nameShort), query, nil, &out)
	return out, err
}

// ListStudies returns the backend's study summaries.
func (c *Client) ListStudies(ctx context.Context) (api.StudyListResponse, error) {
	var out api.StudyListResponse
	_, err := c.do(ctx, http.MethodGet, "/api/studies", nil, nil, &out)
	return out, err
}

// Progress returns per-song completion as seen by the backend.
func (c *Client) Progress(ctx context.Context, nameShort, uid string) (api.ProgressResponse, error) {
	query := url.Values{"uid": []string{uid}}
	var out api.ProgressResponse
	_, err := c.do(ctx, http.MethodGet, "/api/studies/"+url.PathEscape(nameShort)+"/progress", query, nil, &out)
	return out, err
}

// Submit sends one recording's ratings and returns the backend operation,
// "created" or "updated".
func (c *Client) Submit(ctx context.Context, sub api.RatingSubmission) (string, error) {
	var out api.SubmitResponse
	header, err := c.do(ctx, http.MethodPost, "/api/ratings", nil, sub, &out)
	if err != nil {
		return "", err
	}
	if op := header.Get(api.OperationHeader); op != "" {
		return op, nil
	}
	return out.Operation, nil
}

// Export streams the study's CSV export into w.
func (c *Client) Export(ctx context.Context, nameShort string, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/studies/"+url.PathEscape(nameShort)+"/export", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (http.Header, error) {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.Header, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	endpoint := c.base.JoinPath(path)
	endpoint.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return nil, fmt.Errorf("%w: %w", ErrBackendOffline, err)
		}
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		remote := &RemoteError{Status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&remote.Body)
		return nil, remote
	}
	return resp, nil
}

func isUnreachable(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) || errors.Is(err, context.DeadlineExceeded)
}
