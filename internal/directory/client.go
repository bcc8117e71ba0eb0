// Package directory integrates with the DingTalk enterprise directory:
// OAuth login, user-info lookup, and organization-wide user listing for
// the required-attendees picker. All calls degrade gracefully; a
// directory outage never blocks event creation.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Default DingTalk API hosts.
const (
	DefaultAPIBase   = "https://oapi.dingtalk.com"
	DefaultLoginBase = "https://login.dingtalk.com"
)

const (
	rootDeptID       = 1
	userListPageSize = 100

	// tokenExpirySlack refreshes the corp token a minute before DingTalk
	// says it expires.
	tokenExpirySlack = 60 * time.Second
)

// User is one directory entry as stored in requiredAttendees.
type User struct {
	UserID string `json:"userid"`
	Name   string `json:"name"`
}

// Searcher lists all directory users. Implemented by Client and by the
// Redis cache wrapping it.
type Searcher interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Client talks to the DingTalk API with an app key/secret pair. The
// corp access token is cached in-process until shortly before expiry.
type Client struct {
	httpClient *http.Client
	apiBase    string
	loginBase  string
	appKey     string
	appSecret  string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	timeNow func() time.Time
}

// ClientConfig configures a DingTalk client. APIBase and LoginBase
// default to the public DingTalk hosts.
type ClientConfig struct {
	AppKey    string
	AppSecret string
	APIBase   string
	LoginBase string

	// HTTPClient is optional; a 10s-timeout client is used when nil.
	HTTPClient *http.Client
}

// NewClient creates a DingTalk directory client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("dingtalk app key and secret are required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.LoginBase == "" {
		cfg.LoginBase = DefaultLoginBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: cfg.HTTPClient,
		apiBase:    cfg.APIBase,
		loginBase:  cfg.LoginBase,
		appKey:     cfg.AppKey,
		appSecret:  cfg.AppSecret,
		timeNow:    time.Now,
	}, nil
}

type tokenResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// corpAccessToken returns a valid corp access token, refreshing it via
// /gettoken when the cached one is missing or near expiry.
func (c *Client) corpAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.timeNow().Before(c.tokenExpiry) {
		return c.token, nil
	}

	q := url.Values{}
	q.Set("appkey", c.appKey)
	q.Set("appsecret", c.appSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiBase+"/gettoken?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch corp access token: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.ErrCode != 0 {
		return "", fmt.Errorf("dingtalk gettoken: %s (errcode %d)", tr.ErrMsg, tr.ErrCode)
	}

	c.token = tr.AccessToken
	c.tokenExpiry = c.timeNow().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpirySlack)
	return c.token, nil
}

type deptListResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	Result  []struct {
		DeptID int64  `json:"dept_id"`
		Name   string `json:"name"`
	} `json:"result"`
}

type userListResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	Result  struct {
		HasMore    bool   `json:"has_more"`
		NextCursor int64  `json:"next_cursor"`
		List       []User `json:"list"`
	} `json:"result"`
}

// ListUsers walks the whole department tree from the root and returns
// every user exactly once, in discovery order.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	token, err := c.corpAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	queue := []int64{rootDeptID}
	seen := make(map[int64]bool)
	seenUsers := make(map[string]bool)
	var users []User

	for len(queue) > 0 {
		deptID := queue[0]
		queue = queue[1:]
		if seen[deptID] {
			continue
		}
		seen[deptID] = true

		deptUsers, err := c.listDepartmentUsers(ctx, token, deptID)
		if err != nil {
			return nil, err
		}
		for _, u := range deptUsers {
			if seenUsers[u.UserID] {
				continue
			}
			seenUsers[u.UserID] = true
			users = append(users, u)
		}

		subIDs, err := c.listSubDepartments(ctx, token, deptID)
		if err != nil {
			return nil, err
		}
		queue = append(queue, subIDs...)
	}

	return users, nil
}

func (c *Client) listSubDepartments(ctx context.Context, token string, deptID int64) ([]int64, error) {
	var resp deptListResponse
	if err := c.postTopAPI(ctx, "/topapi/v2/department/listsub", token,
		map[string]any{"dept_id": deptID}, &resp); err != nil {
		return nil, err
	}
	if resp.ErrCode != 0 {
		return nil, fmt.Errorf("dingtalk listsub: %s (errcode %d)", resp.ErrMsg, resp.ErrCode)
	}

	ids := make([]int64, 0, len(resp.Result))
	for _, d := range resp.Result {
		ids = append(ids, d.DeptID)
	}
	return ids, nil
}

func (c *Client) listDepartmentUsers(ctx context.Context, token string, deptID int64) ([]User, error) {
	var users []User
	cursor := int64(0)

	for {
		var resp userListResponse
		if err := c.postTopAPI(ctx, "/topapi/user/listsimple", token, map[string]any{
			"dept_id": deptID,
			"cursor":  cursor,
			"size":    userListPageSize,
		}, &resp); err != nil {
			return nil, err
		}
		if resp.ErrCode != 0 {
			return nil, fmt.Errorf("dingtalk listsimple: %s (errcode %d)", resp.ErrMsg, resp.ErrCode)
		}

		users = append(users, resp.Result.List...)
		if !resp.Result.HasMore {
			return users, nil
		}
		cursor = resp.Result.NextCursor
	}
}

func (c *Client) postTopAPI(ctx context.Context, path, token string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+path+"?access_token="+url.QueryEscape(token),
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
