package salesforce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
)

const (
	DefaultLoginURL   = "https://login.salesforce.com"
	DefaultAPIVersion = "60.0"
	DefaultTimeout    = 60 * time.Second
	DefaultSessionTTL = 2 * time.Hour
)

// AuthMode selects how a Client obtains its session
type AuthMode string

const (
	AuthAccessToken       AuthMode = "access_token"
	AuthPassword          AuthMode = "password"
	AuthClientCredentials AuthMode = "client_credentials"
)

// Config holds the connection settings of a Client
type Config struct {
	LoginURL      string
	InstanceURL   string
	AccessToken   string
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	SecurityToken string
	APIVersion    string
	Timeout       time.Duration
	SessionTTL    time.Duration
}

// Mode reports the auth mode implied by the populated fields
func (c Config) Mode() (AuthMode, error) {
	switch {
	case c.AccessToken != "":
		if c.InstanceURL == "" {
			return "", errors.New("an instance URL is required with an access token")
		}
		return AuthAccessToken, nil
	case c.Username != "" || c.Password != "":
		if c.Username == "" || c.Password == "" || c.ClientID == "" || c.ClientSecret == "" {
			return "", errors.New("password login requires username, password, client ID and client secret")
		}
		return AuthPassword, nil
	case c.ClientID != "" || c.ClientSecret != "":
		if c.ClientID == "" || c.ClientSecret == "" {
			return "", errors.New("client credentials login requires client ID and client secret")
		}
		return AuthClientCredentials, nil
	default:
		return "", errors.New("no Salesforce credentials configured")
	}
}

// Client is an authenticated client for the Salesforce REST and
// Reports & Dashboards APIs. It is safe for concurrent use.
type Client struct {
	cfg        Config
	mode       AuthMode
	httpClient *resty.Client
	logger     log.Logger

	mu          sync.Mutex
	accessToken string
	instanceURL string
	tokenExpiry time.Time
}

// TokenResponse is the OAuth token endpoint response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
}

// NewClient creates a client and, unless a pre-issued access token is
// configured, logs in immediately.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	cfg.APIVersion = strings.TrimPrefix(cfg.APIVersion, "v")
	cfg.LoginURL = strings.TrimSuffix(cfg.LoginURL, "/")
	cfg.InstanceURL = strings.TrimSuffix(cfg.InstanceURL, "/")

	httpClient := resty.New()
	httpClient.SetTimeout(cfg.Timeout)
	httpClient.SetHeader("Accept", "application/json")

	client := &Client{
		cfg:         cfg,
		mode:        mode,
		httpClient:  httpClient,
		logger:      log.DefaultLogger,
		instanceURL: cfg.InstanceURL,
	}

	if mode == AuthAccessToken {
		client.accessToken = cfg.AccessToken
		return client, nil
	}

	client.mu.Lock()
	err = client.authenticate(ctx)
	client.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	return client, nil
}

// Mode returns the auth mode in use
func (c *Client) Mode() AuthMode {
	return c.mode
}

// InstanceURL returns the org base URL of the current session
func (c *Client) InstanceURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instanceURL
}

// authenticate obtains a session token. Must be called with mu held.
func (c *Client) authenticate(ctx context.Context) error {
	form := map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
	}
	switch c.mode {
	case AuthPassword:
		form["grant_type"] = "password"
		form["username"] = c.cfg.Username
		form["password"] = c.cfg.Password + c.cfg.SecurityToken
	case AuthClientCredentials:
		form["grant_type"] = "client_credentials"
	default:
		return fmt.Errorf("auth mode %s does not support login", c.mode)
	}

	var tokenResp TokenResponse
	var tokenErr struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&tokenResp).
		SetError(&tokenErr).
		Post(c.cfg.LoginURL + "/services/oauth2/token")
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return &AuthError{
			StatusCode:  resp.StatusCode(),
			Code:        tokenErr.Error,
			Description: tokenErr.Description,
		}
	}
	if tokenResp.AccessToken == "" {
		return errors.New("token response did not include an access token")
	}

	c.accessToken = tokenResp.AccessToken
	if tokenResp.InstanceURL != "" {
		c.instanceURL = strings.TrimSuffix(tokenResp.InstanceURL, "/")
	}
	if c.instanceURL == "" {
		return errors.New("token response did not include an instance URL")
	}
	c.tokenExpiry = time.Now().Add(c.cfg.SessionTTL)

	c.logger.Debug("Salesforce session established", "mode", string(c.mode), "instance_url", c.instanceURL)
	return nil
}

// session returns a valid token and instance URL, logging in again once
// the session TTL has passed.
func (c *Client) session(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != AuthAccessToken && time.Now().After(c.tokenExpiry) {
		if err := c.authenticate(ctx); err != nil {
			return "", "", err
		}
	}
	return c.accessToken, c.instanceURL, nil
}

// send issues an authenticated request against the versioned data API
func (c *Client) send(ctx context.Context, method, path string, result interface{}, configure func(*resty.Request)) error {
	token, instanceURL, err := c.session(ctx)
	if err != nil {
		return err
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(result)
	if configure != nil {
		configure(req)
	}

	url := fmt.Sprintf("%s/services/data/v%s%s", instanceURL, c.cfg.APIVersion, path)
	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() {
		if resp.StatusCode() == http.StatusUnauthorized {
			c.invalidateSession(token)
		}
		return newAPIError(resp.StatusCode(), resp.Body())
	}

	return nil
}

// invalidateSession forces a login on the next call when the rejected token
// is still the current one. Pre-issued access tokens cannot be renewed.
func (c *Client) invalidateSession(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == AuthAccessToken || c.accessToken != token {
		return
	}
	c.tokenExpiry = time.Time{}
	c.logger.Debug("Salesforce session rejected, logging in again on next call", "mode", string(c.mode))
}

// Query runs a SOQL query
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	var result QueryResult
	err := c.send(ctx, http.MethodGet, "/query", &result, func(r *resty.Request) {
		r.SetQueryParam("q", soql)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecentReports lists the reports the user viewed recently
func (c *Client) RecentReports(ctx context.Context) ([]ReportSummary, error) {
	var result []ReportSummary
	if err := c.send(ctx, http.MethodGet, "/analytics/reports", &result, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// DescribeReport fetches report metadata without running the report
func (c *Client) DescribeReport(ctx context.Context, reportID string) (*ReportDescription, error) {
	var result ReportDescription
	err := c.send(ctx, http.MethodGet, "/analytics/reports/{reportId}/describe", &result, func(r *resty.Request) {
		r.SetPathParam("reportId", reportID)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ExecuteReport runs a report synchronously. A metadata override turns the
// call into a POST carrying the override as body.
func (c *Client) ExecuteReport(ctx context.Context, reportID string, opts ExecuteOptions) (*ReportResult, error) {
	method := http.MethodGet
	if opts.Metadata != nil {
		method = http.MethodPost
	}

	var result ReportResult
	err := c.send(ctx, method, "/analytics/reports/{reportId}", &result, func(r *resty.Request) {
		r.SetPathParam("reportId", reportID)
		r.SetQueryParam("includeDetails", strconv.FormatBool(opts.Details))
		if opts.Metadata != nil {
			r.SetHeader("Content-Type", "application/json")
			r.SetBody(opts.Metadata)
		}
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ExecuteReportAsync starts an asynchronous run and returns its instance
func (c *Client) ExecuteReportAsync(ctx context.Context, reportID string, opts ExecuteOptions) (*ReportInstance, error) {
	var result ReportInstance
	err := c.send(ctx, http.MethodPost, "/analytics/reports/{reportId}/instances", &result, func(r *resty.Request) {
		r.SetPathParam("reportId", reportID)
		r.SetQueryParam("includeDetails", strconv.FormatBool(opts.Details))
		if opts.Metadata != nil {
			r.SetHeader("Content-Type", "application/json")
			r.SetBody(opts.Metadata)
		}
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ReportInstances lists the asynchronous runs of a report
func (c *Client) ReportInstances(ctx context.Context, reportID string) ([]ReportInstance, error) {
	var result []ReportInstance
	err := c.send(ctx, http.MethodGet, "/analytics/reports/{reportId}/instances", &result, func(r *resty.Request) {
		r.SetPathParam("reportId", reportID)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// InstanceResults retrieves the result of one asynchronous run
func (c *Client) InstanceResults(ctx context.Context, reportID, instanceID string) (*ReportResult, error) {
	var result ReportResult
	err := c.send(ctx, http.MethodGet, "/analytics/reports/{reportId}/instances/{instanceId}", &result, func(r *resty.Request) {
		r.SetPathParams(map[string]string{
			"reportId":   reportID,
			"instanceId": instanceID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
