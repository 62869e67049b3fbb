package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://api.github.com"

// ErrNotFound is returned when the API answers 404 or a tag is not present.
var ErrNotFound = errors.New("not found")

// ErrRepoNotFound is returned when the repository itself answers 404: it does not
// exist or the token cannot read it.
var ErrRepoNotFound = errors.New("repository not found or not accessible")

// ErrNoToken marks a missing or empty token file.
var ErrNoToken = errors.New("github token not available")

// APIError is any non-2xx answer other than 404.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Body)
}

// WorkflowStatus represents the status of a GitHub Actions workflow run
type WorkflowStatus struct {
	Status     string // queued, in_progress, completed
	Conclusion string // success, failure, cancelled, skipped, empty if not completed
	HTMLURL    string
	RunID      int64
	CreatedAt  time.Time
}

// Tag is a named pointer to a commit.
type Tag struct {
	Name string
	SHA  string
}

// Commit carries the author identity and date of a commit.
type Commit struct {
	SHA        string
	AuthorName string
	AuthorDate time.Time
}

// Client is a small GitHub REST client. Repositories are addressed as "owner/name".
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at another API root (GitHub Enterprise, test servers).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the transport entirely; the token is then not injected.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client authenticated with a static token. An empty token gives
// an anonymous client with the public rate limit.
func NewClient(ctx context.Context, token string, opts ...Option) *Client {
	h := &http.Client{Timeout: 10 * time.Second}
	if token != "" {
		h = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		h.Timeout = 10 * time.Second
	}
	c := &Client{baseURL: DefaultBaseURL, http: h}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadToken reads a token file, trimming surrounding whitespace.
func ReadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoToken, path)
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoToken, path)
	}
	return token, nil
}

// FindTag walks the paged tag listing of repo until a tag called name shows up.
// ErrNotFound means the listing worked but has no such tag; a 404 on the listing
// itself gives ErrRepoNotFound.
func (c *Client) FindTag(ctx context.Context, repo, name string) (*Tag, error) {
	for page := 1; ; page++ {
		var tags []struct {
			Name   string `json:"name"`
			Commit struct {
				SHA string `json:"sha"`
			} `json:"commit"`
		}
		path := fmt.Sprintf("/repos/%s/tags?per_page=100&page=%d", repo, page)
		if err := c.do(ctx, http.MethodGet, path, nil, &tags); err != nil {
			if errors.Is(err, ErrNotFound) {
				err = ErrRepoNotFound
			}
			return nil, fmt.Errorf("failed to list tags of %s: %w", repo, err)
		}
		for _, t := range tags {
			if t.Name == name {
				return &Tag{Name: t.Name, SHA: t.Commit.SHA}, nil
			}
		}
		if len(tags) < 100 {
			return nil, fmt.Errorf("tag %s in %s: %w", name, repo, ErrNotFound)
		}
	}
}

func (c *Client) GetCommit(ctx context.Context, repo, sha string) (*Commit, error) {
	var result struct {
		SHA    string `json:"sha"`
		Commit struct {
			Author struct {
				Name string    `json:"name"`
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	path := fmt.Sprintf("/repos/%s/commits/%s", repo, url.PathEscape(sha))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch commit %s of %s: %w", sha, repo, err)
	}
	return &Commit{
		SHA:        result.SHA,
		AuthorName: result.Commit.Author.Name,
		AuthorDate: result.Commit.Author.Date,
	}, nil
}

// CheckWorkflowStatusForTag checks the status of workflow runs triggered by a specific tag
func (c *Client) CheckWorkflowStatusForTag(ctx context.Context, repo, tag string) (*WorkflowStatus, error) {
	var result struct {
		WorkflowRuns []struct {
			ID         int64     `json:"id"`
			Status     string    `json:"status"`
			Conclusion *string   `json:"conclusion"`
			HTMLURL    string    `json:"html_url"`
			HeadBranch string    `json:"head_branch"`
			CreatedAt  time.Time `json:"created_at"`
		} `json:"workflow_runs"`
	}
	path := fmt.Sprintf("/repos/%s/actions/runs?event=push&per_page=10", repo)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch workflow runs: %w", err)
	}

	// runs come newest first
	for _, run := range result.WorkflowRuns {
		if run.HeadBranch == tag {
			conclusion := ""
			if run.Conclusion != nil {
				conclusion = *run.Conclusion
			}
			return &WorkflowStatus{
				Status:     run.Status,
				Conclusion: conclusion,
				HTMLURL:    run.HTMLURL,
				RunID:      run.ID,
				CreatedAt:  run.CreatedAt,
			}, nil
		}
	}

	return nil, fmt.Errorf("no workflow runs found for tag %s: %w", tag, ErrNotFound)
}

// CreateIssueComment posts body on issue or pull request number and returns the comment URL.
func (c *Client) CreateIssueComment(ctx context.Context, repo string, number int, body string) (string, error) {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return "", err
	}
	var result struct {
		HTMLURL string `json:"html_url"`
	}
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repo, number)
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), &result); err != nil {
		return "", fmt.Errorf("failed to comment on %s#%d: %w", repo, number, err)
	}
	return result.HTMLURL, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
