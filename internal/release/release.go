package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "porthole/internal/errors"
)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.github.com"
	DefaultWebURL    = "https://github.com"
	DefaultProductID = "porthole-updater"
	DefaultTimeout   = 10 * time.Second

	acceptHeader = "application/vnd.github.v3+json"
	maxBodyBytes = 1 << 20
)

// Asset represents a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
}

// Info is the release metadata returned by a single query.
type Info struct {
	Tag         string
	Name        string
	Status      int
	Body        string
	HTMLURL     string
	PublishedAt time.Time
	Prerelease  bool
	Assets      []Asset
}

// payload mirrors the JSON served by the releases endpoint.
type payload struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
	Assets      []Asset   `json:"assets"`
}

// Client queries the latest release of a repository.
type Client struct {
	baseURL    string
	productID  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL points the client at another API host, e.g. a test server or
// an enterprise installation.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithProductID sets the identifying User-Agent sent with every request.
func WithProductID(id string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			c.productID = trimmed
		}
	}
}

// NewClient creates a release client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		productID: DefaultProductID,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchLatest issues one GET for the latest release of ownerRepo
// ("owner/repo"). It never retries and never caches.
//
// Failures are coded: transport errors as errors.CodeTransport, a non-200
// status or an undecodable body as errors.CodeProtocol, and a release without
// a tag as errors.CodeNoVersionTag.
func (c *Client) FetchLatest(ctx context.Context, ownerRepo string) (*Info, error) {
	owner, repo, err := ParseOwnerRepo(ownerRepo)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeTransport, "create request", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.productID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeTransport, "fetch latest release", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: resp.StatusCode}
	}

	var p payload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&p); err != nil {
		return nil, apperrors.New(apperrors.CodeProtocol, "decode release", err)
	}

	tag := strings.TrimSpace(p.TagName)
	if tag == "" {
		tag = strings.TrimSpace(p.Name)
	}
	if tag == "" {
		return nil, apperrors.New(apperrors.CodeNoVersionTag, "release carries no version tag", nil)
	}

	return &Info{
		Tag:         tag,
		Name:        p.Name,
		Status:      resp.StatusCode,
		Body:        p.Body,
		HTMLURL:     p.HTMLURL,
		PublishedAt: p.PublishedAt,
		Prerelease:  p.Prerelease,
		Assets:      p.Assets,
	}, nil
}

// StatusError reports a non-200 answer from the releases endpoint.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// Unwrap lets errors.CodeOf classify the failure as a protocol failure.
func (e *StatusError) Unwrap() error {
	return apperrors.New(apperrors.CodeProtocol, "", nil)
}

// ParseOwnerRepo splits "owner/repo".
func ParseOwnerRepo(ownerRepo string) (string, string, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(ownerRepo), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperrors.New(apperrors.CodeConfigurationError,
			fmt.Sprintf("invalid repository %q, want owner/repo", ownerRepo), nil)
	}
	return parts[0], parts[1], nil
}

// WebURL derives the site that serves release pages from an API base URL.
// The public API host maps to github.com; an enterprise API under /api/v3
// maps to its own host.
func WebURL(apiBase string) string {
	u, err := url.Parse(strings.TrimSpace(apiBase))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return DefaultWebURL
	}
	if strings.EqualFold(u.Host, "api.github.com") {
		return DefaultWebURL
	}
	p := strings.TrimRight(u.Path, "/")
	p = strings.TrimSuffix(p, "/api/v3")
	p = strings.TrimSuffix(p, "/api")
	return u.Scheme + "://" + u.Host + p
}

// DownloadPageURL returns the page of the latest release of ownerRepo on
// webURL. An empty webURL means DefaultWebURL.
func DownloadPageURL(webURL, ownerRepo string) string {
	owner, repo, err := ParseOwnerRepo(ownerRepo)
	if err != nil {
		return ""
	}
	base := strings.TrimRight(strings.TrimSpace(webURL), "/")
	if base == "" {
		base = DefaultWebURL
	}
	return fmt.Sprintf("%s/%s/%s/releases/latest", base, owner, repo)
}
