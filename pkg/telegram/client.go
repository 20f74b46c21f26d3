package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.telegram.org"
	defaultRequestTimeout       = 10 * time.Second
	requestBodyReadLimit  int64 = 1024
	notModifiedMarker           = "message is not modified"
)

var errTokenRequired = errors.New("telegram bot token is required")

// APIError is a non-ok Bot API response.
type APIError struct {
	Code        int
	Description string
	// RetryAfter is set on flood control (429) replies.
	RetryAfter time.Duration
}

// RetryAfter returns the flood-control delay carried by err, if any.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// IsNotModified reports whether err is the Bot API refusing an edit with identical content.
func IsNotModified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Description), notModifiedMarker)
}

// Client talks to the Telegram Bot API over HTTPS.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	requestTimeout time.Duration
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

// WithBaseURL overrides the Bot API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithRequestTimeout bounds every non-polling call.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// NewClient builds a Bot API client for the given token.
func NewClient(token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errTokenRequired
	}

	// No client-level timeout: long polling is bounded per call through the context.
	client := &Client{
		token:          trimmed,
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{},
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// GetUpdates long-polls for updates after offset, waiting up to timeout server side.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: []string{"message", "callback_query"},
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout+c.requestTimeout)
	defer cancel()

	var updates []Update
	if err := c.call(callCtx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts a new message to a chat.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var msg Message
	if err := c.call(callCtx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text and inline keyboard of a message sent by the bot.
func (c *Client) EditMessageText(ctx context.Context, req EditMessageTextRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.call(callCtx, "editMessageText", req, nil)
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast or alert.
func (c *Client) AnswerCallbackQuery(ctx context.Context, req AnswerCallbackQueryRequest) error {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.call(callCtx, "answerCallbackQuery", req, nil)
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "telegram client not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal "+method+" request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(method), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+method+" request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+method+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	var apiResp struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
		Parameters  *struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
			return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), method+" request failed")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+method+" response")
	}
	if !apiResp.OK {
		code := apiResp.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		apiErr := &APIError{Code: code, Description: apiResp.Description}
		if apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		}
		return classify(method, apiErr)
	}
	if out == nil || len(apiResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(apiResp.Result, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+method+" result")
	}
	return nil
}

// classify maps a Bot API rejection onto a coded error. Client errors other
// than flood control will fail the same way again.
func classify(method string, apiErr *APIError) error {
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, apiErr, method+" throttled")
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, apiErr, method+" rejected").Permanent()
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, apiErr, method+" request failed")
	}
}

func (c *Client) buildURL(method string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	return fmt.Sprintf("%s/bot%s/%s", trimmed, c.token, method)
}
