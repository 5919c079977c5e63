package quantconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/qcdash/pkg/httputil"
	"github.com/wonny/qcdash/pkg/logger"
	"github.com/wonny/qcdash/pkg/redis"
)

const maxBodyBytes = 64 << 20

// Client is the read-only QuantConnect REST client
// ⭐ SSOT: QuantConnect API 호출은 이 클라이언트를 통해서만
type Client struct {
	http    *httputil.Client
	logger  *logger.Logger
	creds   Credentials
	baseURL string
	now     func() time.Time
	cache   *redis.Cache
}

// NewClient creates a client for baseURL (e.g. https://www.quantconnect.com/api/v2)
func NewClient(httpClient *httputil.Client, creds Credentials, baseURL string, log *logger.Logger) *Client {
	return &Client{
		http:    httpClient,
		logger:  log.WithField("component", "quantconnect"),
		creds:   creds,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// WithCache caches completed backtest results
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// WithClock replaces the clock used for request signatures (tests)
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Authenticate checks the credentials against the authenticate endpoint
func (c *Client) Authenticate(ctx context.Context) error {
	return c.get(ctx, "authenticate", nil, &envelope{})
}

// ListProjects lists every project visible to the account
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp projectsResponse
	if err := c.get(ctx, "projects/read", nil, &resp); err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(resp.Projects))
	for _, p := range resp.Projects {
		projects = append(projects, p.toProject())
	}
	return projects, nil
}

// ListBacktests lists a project's backtests in platform order
func (c *Client) ListBacktests(ctx context.Context, projectID int64) ([]Backtest, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("list backtests: project id %d: %w", projectID, ErrInvalidIdentifier)
	}

	params := url.Values{}
	params.Set("projectId", strconv.FormatInt(projectID, 10))

	var resp backtestsResponse
	if err := c.get(ctx, "backtests/read", params, &resp); err != nil {
		return nil, err
	}

	backtests := make([]Backtest, 0, len(resp.Backtests))
	for _, b := range resp.Backtests {
		backtests = append(backtests, b.toBacktest(projectID))
	}
	return backtests, nil
}

// GetBacktestResult fetches one backtest with statistics, charts and trades.
// Completed results are served from the cache when one is configured.
func (c *Client) GetBacktestResult(ctx context.Context, projectID int64, backtestID string) (*BacktestResult, error) {
	if projectID <= 0 || strings.TrimSpace(backtestID) == "" {
		return nil, fmt.Errorf("get backtest result: project %d backtest %q: %w", projectID, backtestID, ErrInvalidIdentifier)
	}

	key := redis.BacktestResultKey(projectID, backtestID)
	if c.cache != nil {
		var cached BacktestResult
		found, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Backtest cache read failed")
		} else if found {
			c.logger.WithField("key", key).Debug("Backtest result served from cache")
			return &cached, nil
		}
	}

	params := url.Values{}
	params.Set("projectId", strconv.FormatInt(projectID, 10))
	params.Set("backtestId", backtestID)

	const endpoint = "backtests/read"
	var resp backtestResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}

	raw, err := decodeBacktest(resp.Backtest)
	if err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}
	if raw == nil {
		return nil, &NotFoundError{Endpoint: endpoint, Message: "backtest " + backtestID}
	}

	result := raw.toResult(projectID)
	if result.ID == "" {
		result.ID = backtestID
	}

	if c.cache != nil && result.Completed {
		if err := c.cache.Set(ctx, key, result, redis.TTLBacktestResult); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Backtest cache write failed")
		}
	}
	return &result, nil
}

// decodeBacktest accepts the result as an object or a one-element list.
// Returns nil, nil when the platform sent nothing.
func decodeBacktest(data json.RawMessage) (*rawBacktest, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var list []rawBacktest
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, nil
		}
		return &list[0], nil
	}

	var b rawBacktest
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListLiveDeployments lists a project's live deployments, newest launch first
func (c *Client) ListLiveDeployments(ctx context.Context, projectID int64) ([]LiveDeployment, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("list live deployments: project id %d: %w", projectID, ErrInvalidIdentifier)
	}

	all, err := c.ListAllLiveDeployments(ctx)
	if err != nil {
		return nil, err
	}

	var deployments []LiveDeployment
	for _, d := range all {
		if d.ProjectID == projectID {
			deployments = append(deployments, d)
		}
	}
	return deployments, nil
}

// ListAllLiveDeployments lists every live deployment of the account, newest launch first
func (c *Client) ListAllLiveDeployments(ctx context.Context) ([]LiveDeployment, error) {
	var resp liveListResponse
	if err := c.get(ctx, "live/list", nil, &resp); err != nil {
		return nil, err
	}

	deployments := make([]LiveDeployment, 0, len(resp.Live))
	for _, l := range resp.Live {
		deployments = append(deployments, l.toDeployment())
	}

	sort.SliceStable(deployments, func(i, j int) bool {
		return deployments[i].Launched.After(deployments[j].Launched)
	})
	return deployments, nil
}

// GetLiveStatus fetches the current live results of a project.
// A project that was never deployed yields a NotFoundError.
func (c *Client) GetLiveStatus(ctx context.Context, projectID int64) (*LiveResult, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("get live status: project id %d: %w", projectID, ErrInvalidIdentifier)
	}

	params := url.Values{}
	params.Set("projectId", strconv.FormatInt(projectID, 10))

	const endpoint = "live/read"
	var resp liveReadResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}

	live := resp.rawLiveResult
	if nested := bytes.TrimSpace(resp.Live); len(nested) > 0 && !bytes.Equal(nested, []byte("null")) {
		live = rawLiveResult{}
		if err := json.Unmarshal(nested, &live); err != nil {
			return nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
		}
	}

	if live.DeployID == "" && live.Status == "" {
		return nil, &NotFoundError{Endpoint: endpoint, Message: fmt.Sprintf("no live deployment for project %d", projectID)}
	}

	result := live.toResult(projectID)
	return &result, nil
}

// get performs one signed GET and decodes the envelope into out
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out response) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("userId", c.creds.UserID)
	target := c.baseURL + "/" + endpoint + "?" + params.Encode()

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		// 재시도마다 새 타임스탬프로 서명
		signRequest(req, c.creds, c.now())
		return req, nil
	})
	if err != nil {
		var retryErr *httputil.RetryError
		if errors.As(err, &retryErr) {
			return &TransientError{
				Endpoint:   endpoint,
				Attempts:   retryErr.Attempts,
				StatusCode: retryErr.StatusCode,
				Err:        retryErr.Err,
			}
		}
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransientError{Endpoint: endpoint, Attempts: 1, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{Endpoint: endpoint, StatusCode: code, Message: errorMessage(body)}
	case code == http.StatusNotFound:
		return &NotFoundError{Endpoint: endpoint, Message: errorMessage(body)}
	case code < 200 || code >= 300:
		return &RemoteError{Endpoint: endpoint, StatusCode: code, Message: errorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	env := out.base()
	if env.Success == nil {
		return &MalformedResponseError{Endpoint: endpoint, Err: errors.New("missing success flag")}
	}
	if !*env.Success {
		return classifyFailure(endpoint, env.Errors)
	}

	c.logger.WithField("endpoint", endpoint).Debug("QuantConnect request succeeded")
	return nil
}

// errorMessage extracts the platform errors from a failed body, else a short excerpt
func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 {
		return strings.Join(env.Errors, "; ")
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}
