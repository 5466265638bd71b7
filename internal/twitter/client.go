package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.twitter.com"

// MaxStatusLength is the provider's hard limit on status text.
const MaxStatusLength = 280

// Credential is one account's OAuth 1.0a key quad. AccountNumber is
// assigned by line order in the credential source and is stable for a run.
type Credential struct {
	AppKey        string `json:"app_key" yaml:"app_key"`
	AppSecret     string `json:"app_secret" yaml:"app_secret"`
	AccessToken   string `json:"access_token" yaml:"access_token"`
	AccessSecret  string `json:"access_secret" yaml:"access_secret"`
	AccountNumber int    `json:"-" yaml:"-"`
}

// Valid reports whether all four credential parts are present.
func (c Credential) Valid() bool {
	return strings.TrimSpace(c.AppKey) != "" &&
		strings.TrimSpace(c.AppSecret) != "" &&
		strings.TrimSpace(c.AccessToken) != "" &&
		strings.TrimSpace(c.AccessSecret) != ""
}

// PostResult is a successful publish outcome.
type PostResult struct {
	ID  string
	URL string
}

// Publisher is the publish transport seam. Implementations return a
// *ProviderError for provider-reported failures.
type Publisher interface {
	Publish(ctx context.Context, text string) (PostResult, error)
}

// Client publishes statuses for a single credential over the v1.1 API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cred       Credential
	limiter    *rate.Limiter
}

// Options tunes a Client beyond its defaults.
type Options struct {
	// BaseURL overrides the API host (tests).
	BaseURL string
	// RatePerMin caps outbound publish calls. 0 means no local limit.
	RatePerMin int
	// Timeout bounds a single HTTP call. 0 means 30s.
	Timeout time.Duration
}

// NewClient builds a publish client bound to one credential.
func NewClient(cred Credential, opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var lim *rate.Limiter
	if opts.RatePerMin > 0 {
		lim = rate.NewLimiter(rate.Limit(float64(opts.RatePerMin)/60.0), 1)
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		cred:       cred,
		limiter:    lim,
	}
}

type statusResponse struct {
	IDStr string `json:"id_str"`
	User  struct {
		ScreenName string `json:"screen_name"`
	} `json:"user"`
}

type errorResponse struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Publish posts text as a status update. Provider failures come back as
// *ProviderError; transport failures (DNS, timeouts) as plain errors.
func (c *Client) Publish(ctx context.Context, text string) (PostResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return PostResult{}, err
		}
	}

	endpoint := c.baseURL + "/1.1/statuses/update.json"
	form := url.Values{"status": {text}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return PostResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", authorizationHeader(c.cred, http.MethodPost, endpoint, form))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PostResult{}, fmt.Errorf("publish: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return PostResult{}, fmt.Errorf("publish: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PostResult{}, providerErrorFrom(resp.StatusCode, body)
	}

	var sr statusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return PostResult{}, fmt.Errorf("publish: decode response: %w", err)
	}
	if sr.IDStr == "" {
		return PostResult{}, fmt.Errorf("publish: response missing status id")
	}
	return PostResult{ID: sr.IDStr, URL: StatusURL(sr.User.ScreenName, sr.IDStr)}, nil
}

// StatusURL derives the public URL of a published status. An empty screen
// name falls back to the handle-agnostic form.
func StatusURL(screenName, id string) string {
	if screenName == "" {
		return "https://twitter.com/i/web/status/" + id
	}
	return "https://twitter.com/" + screenName + "/status/" + id
}

func providerErrorFrom(httpStatus int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && len(er.Errors) > 0 {
		return &ProviderError{Code: er.Errors[0].Code, Message: er.Errors[0].Message}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(httpStatus)
	}
	// No body code: surface the HTTP status itself (429 stays retryable).
	return &ProviderError{Code: httpStatus, Message: msg}
}
