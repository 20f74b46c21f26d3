package sanity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
)

const (
	defaultDataset              = "production"
	defaultAPIVersion           = "2023-05-03"
	requestBodyReadLimit  int64 = 1024

	categoriesQuery = `*[_type == "category"] | order(order asc, slug.current asc) {
  _id,
  slug,
  title,
  order
}`

	productsQuery = `*[_type == "product"] | order(category asc, slug asc) {
  _id,
  slug,
  name,
  category,
  subcategory,
  price
}`
)

var errProjectIDRequired = errors.New("sanity project id is required")

// Client queries a Sanity dataset through the GROQ HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	dataset    string
	apiVersion string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the project API host, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithDataset selects the dataset to query.
func WithDataset(dataset string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(dataset); trimmed != "" {
			c.dataset = trimmed
		}
	}
}

// WithAPIVersion pins the dated API version.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimPrefix(strings.TrimSpace(version), "v"); trimmed != "" {
			c.apiVersion = trimmed
		}
	}
}

// WithToken sets a read token for private datasets.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// NewClient builds a GROQ client for the given project.
func NewClient(projectID string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(projectID)
	if trimmed == "" {
		return nil, errProjectIDRequired
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    fmt.Sprintf("https://%s.api.sanity.io", trimmed),
		dataset:    defaultDataset,
		apiVersion: defaultAPIVersion,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Categories returns category documents ordered by their explicit order field.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.query(ctx, categoriesQuery, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Products returns every product document.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.query(ctx, productsQuery, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) query(ctx context.Context, groq string, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "sanity client not configured")
	}

	params := url.Values{}
	params.Set("query", groq)
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s",
		strings.TrimRight(c.baseURL, "/"), c.apiVersion, url.PathEscape(c.dataset), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sanity query request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sanity query")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "sanity query failed")
	}

	var apiResp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sanity response")
	}
	if len(apiResp.Result) == 0 || string(apiResp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(apiResp.Result, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sanity result")
	}
	return nil
}
