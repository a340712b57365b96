// Package backupapi is a small client for the backup service REST API used by
// the console. Non-2xx responses come back as *apierror.APIError so callers
// can hand them straight to the notification store.
package backupapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kotaro7750/console-notifier/apierror"
)

// DefaultMaxURLLength keeps request URLs below common proxy limits.
const DefaultMaxURLLength = 1950

type URLLengthError struct {
	URL string
	Max int
}

func (e *URLLengthError) Error() string {
	return fmt.Sprintf("url length %d exceeds the maximum of %d characters", len(e.URL), e.Max)
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxURLLength int
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithMaxURLLength(n int) ClientOption {
	return func(cl *Client) {
		if n > 0 {
			cl.maxURLLength = n
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("baseURL %q is invalid: %w", baseURL, err)
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		maxURLLength: DefaultMaxURLLength,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListBackups lists backups, optionally restricted to one project.
func (c *Client) ListBackups(ctx context.Context, project string) ([]Backup, error) {
	query := url.Values{}
	if project != "" {
		query.Set("project", project)
	}

	var resp struct {
		Backups []Backup `json:"backups"`
	}
	if err := c.do(ctx, http.MethodGet, "/backups", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Backups, nil
}

// GetBackup fetches one backup together with one page of its jobs.
func (c *Client) GetBackup(ctx context.Context, backupId string, page JobPage) (*Backup, error) {
	if backupId == "" {
		return nil, fmt.Errorf("backupId is required")
	}

	page = page.Normalize()
	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page))
	query.Set("size", strconv.Itoa(page.Size))

	var backup Backup
	if err := c.do(ctx, http.MethodGet, "/backups/"+url.PathEscape(backupId), query, nil, &backup); err != nil {
		return nil, err
	}
	return &backup, nil
}

func (c *Client) CreateBackup(ctx context.Context, req CreateRequest) (*Backup, error) {
	var backup Backup
	if err := c.do(ctx, http.MethodPost, "/backups", nil, req, &backup); err != nil {
		return nil, err
	}
	return &backup, nil
}

func (c *Client) CalculateBackup(ctx context.Context, req CreateRequest) ([]Cost, error) {
	var resp struct {
		Costs []Cost `json:"costs"`
	}
	if err := c.do(ctx, http.MethodPost, "/backups/calculate", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Costs, nil
}

func (c *Client) CheckCompliance(ctx context.Context, req CreateRequest) ([]ComplianceCheck, error) {
	var resp struct {
		Checks []ComplianceCheck `json:"checks"`
	}
	if err := c.do(ctx, http.MethodPost, "/backups/compliance", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Checks, nil
}

func (c *Client) UpdateBackup(ctx context.Context, req UpdateRequest) (*Backup, error) {
	if req.BackupId == "" {
		return nil, fmt.Errorf("backup_id is required")
	}

	var backup Backup
	if err := c.do(ctx, http.MethodPatch, "/backups", nil, req, &backup); err != nil {
		return nil, err
	}
	return &backup, nil
}

func (c *Client) PauseBackup(ctx context.Context, backupId string) (*Backup, error) {
	return c.UpdateBackup(ctx, UpdateRequest{BackupId: backupId, Status: StatusPaused})
}

func (c *Client) ResumeBackup(ctx context.Context, backupId string) (*Backup, error) {
	return c.UpdateBackup(ctx, UpdateRequest{BackupId: backupId, Status: StatusNotStarted})
}

func (c *Client) DeleteBackup(ctx context.Context, backupId string) (*Backup, error) {
	return c.UpdateBackup(ctx, UpdateRequest{BackupId: backupId, Status: StatusToDelete})
}

// Restore returns the restore actions for a backup. jobId selects the job
// whose timestamp should be restored and may be empty.
func (c *Client) Restore(ctx context.Context, backupId, jobId string) (*RestoreResponse, error) {
	if backupId == "" {
		return nil, fmt.Errorf("backupId is required")
	}

	query := url.Values{}
	if jobId != "" {
		query.Set("jobIDForTimestamp", jobId)
	}

	var resp RestoreResponse
	if err := c.do(ctx, http.MethodGet, "/restore/"+url.PathEscape(backupId), query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	if len(u) > c.maxURLLength {
		return &URLLengthError{URL: u, Max: c.maxURLLength}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body failed: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierror.FromResponse(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response failed: %w", method, path, err)
	}
	return nil
}
