package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// UserInfo is the profile DingTalk returns for a logged-in user.
// OpenID serves as the stable external identity key.
type UserInfo struct {
	OpenID  string
	UnionID string
	Nick    string
	Avatar  string
	Email   string
	Mobile  string
}

// AuthURL builds the DingTalk OAuth authorization URL the login
// endpoint redirects to.
func (c *Client) AuthURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", c.appKey)
	q.Set("response_type", "code")
	q.Set("scope", "openid corpid")
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	q.Set("prompt", "consent")
	return c.loginBase + "/oauth2/auth?" + q.Encode()
}

type userAccessTokenResponse struct {
	// DingTalk v1.0 answers in camelCase; older deployments in
	// snake_case. Accept both.
	AccessToken      string `json:"accessToken"`
	AccessTokenSnake string `json:"access_token"`
	ExpireIn         int    `json:"expireIn"`
}

// ExchangeCode trades an OAuth authorization code for a user access
// token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.appKey)
	form.Set("client_secret", c.appSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1.0/oauth2/userAccessToken",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var tr userAccessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token exchange response: %w", err)
	}

	token := tr.AccessToken
	if token == "" {
		token = tr.AccessTokenSnake
	}
	if token == "" {
		return "", fmt.Errorf("token exchange response missing access token")
	}
	return token, nil
}

type contactUserResponse struct {
	Nick      string `json:"nick"`
	UnionID   string `json:"unionId"`
	OpenID    string `json:"openId"`
	AvatarURL string `json:"avatarUrl"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
}

// FetchUserInfo retrieves the profile of the user who owns the access
// token.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiBase+"/v1.0/contact/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build user info request: %w", err)
	}
	req.Header.Set("x-acs-dingtalk-access-token", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var cu contactUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&cu); err != nil {
		return nil, fmt.Errorf("decode user info response: %w", err)
	}
	if cu.OpenID == "" {
		return nil, fmt.Errorf("user info response missing openId")
	}

	nick := cu.Nick
	if nick == "" {
		nick = "DingTalk User"
	}

	return &UserInfo{
		OpenID:  cu.OpenID,
		UnionID: cu.UnionID,
		Nick:    nick,
		Avatar:  cu.AvatarURL,
		Email:   cu.Email,
		Mobile:  cu.Mobile,
	}, nil
}
