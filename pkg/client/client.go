// Package client is a Go SDK for the ExpenseFlow HTTP API. It carries the
// session state machine and approval queue a UI builds on.
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
	"strconv"
	"strings"
	"sync"
	"time"
)

const apiPrefix = "/api/v1"

// Client sends authenticated requests to one ExpenseFlow server.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string

	mu          sync.RWMutex
	accessToken string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    u,
		userAgent:  "expenseflow-go/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// APIError is the error body the server returns, plus the status code.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Redirect   string `json:"redirect,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// HasCode reports whether err is an APIError with the given code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + apiPrefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends body as JSON and decodes a 2xx response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       http.StatusText(resp.StatusCode),
			Message:    strings.TrimSpace(string(raw)),
		}
	}
	envelope.Error.StatusCode = resp.StatusCode
	return envelope.Error
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*Tokens, error) {
	var tokens Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, req, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	var tokens Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/signin", nil, body, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) RequestMagicLink(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/magic-link", nil, map[string]string{"email": email}, nil)
}

func (c *Client) RedeemMagicLink(ctx context.Context, token string) (*Tokens, error) {
	var tokens Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/magic-link/verify", nil, map[string]string{"token": token}, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var tokens Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{"refresh_token": refreshToken}, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// SignOut revokes the current access token and, when given, the refresh token.
func (c *Client) SignOut(ctx context.Context, refreshToken string) error {
	var body interface{}
	if refreshToken != "" {
		body = map[string]string{"refresh_token": refreshToken}
	}
	return c.do(ctx, http.MethodPost, "/auth/signout", nil, body, nil)
}

func (c *Client) Session(ctx context.Context) (*SessionView, error) {
	var view SessionView
	if err := c.do(ctx, http.MethodGet, "/session", nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) Onboard(ctx context.Context, req OnboardRequest) (*OnboardResult, error) {
	var result OnboardResult
	if err := c.do(ctx, http.MethodPost, "/onboarding", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SubmitExpense(ctx context.Context, req SubmitExpenseRequest) (*Expense, error) {
	var exp Expense
	if err := c.do(ctx, http.MethodPost, "/expenses", nil, req, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (c *Client) MyExpenses(ctx context.Context, status string, limit, offset int) ([]Expense, error) {
	query := pageQuery(limit, offset)
	if status != "" {
		query.Set("status", status)
	}
	var page expensePage
	if err := c.do(ctx, http.MethodGet, "/expenses", query, nil, &page); err != nil {
		return nil, err
	}
	return page.Expenses, nil
}

func (c *Client) PendingApprovals(ctx context.Context, limit, offset int) ([]Expense, error) {
	var page expensePage
	if err := c.do(ctx, http.MethodGet, "/hr/approvals", pageQuery(limit, offset), nil, &page); err != nil {
		return nil, err
	}
	return page.Expenses, nil
}

func (c *Client) Approve(ctx context.Context, expenseID string) (*Expense, error) {
	var exp Expense
	if err := c.do(ctx, http.MethodPatch, "/expenses/"+url.PathEscape(expenseID)+"/approve", nil, nil, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (c *Client) Reject(ctx context.Context, expenseID, reason string) (*Expense, error) {
	var exp Expense
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPatch, "/expenses/"+url.PathEscape(expenseID)+"/reject", nil, body, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (c *Client) Members(ctx context.Context) (*MembersView, error) {
	var view MembersView
	if err := c.do(ctx, http.MethodGet, "/admin/members", nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) AssignRole(ctx context.Context, membershipID, role string) (*Member, error) {
	var m Member
	body := map[string]string{"role": role}
	if err := c.do(ctx, http.MethodPatch, "/admin/members/"+url.PathEscape(membershipID)+"/role", nil, body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func pageQuery(limit, offset int) url.Values {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	return query
}
