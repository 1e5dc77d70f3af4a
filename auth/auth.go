package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	resty "gopkg.in/resty.v1"
)

// expiryMargin renews tokens slightly before the server would reject them.
const expiryMargin = 30 * time.Second

type tokenFunc func(ctx context.Context) (*oauth2.Token, error)

// ClientCred caches an access token and renews it lazily once it expires or
// the server rejects it.
type ClientCred struct {
	mu    sync.Mutex
	token *oauth2.Token
	fetch tokenFunc
}

func NewClientCred(conf Conf) *ClientCred {
	conf.SetDefaults()
	c := &ClientCred{}
	if conf.Style == StyleForm {
		cc := conf.toOauth2Config()
		c.fetch = cc.Token
	} else {
		c.fetch = jsonGrant(resty.New(), conf)
	}
	return c
}

// GetToken returns the cached token when still valid and requests a new one
// otherwise.
func (c *ClientCred) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.token.AccessToken, nil
	}
	if err := c.refresh(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// ForceRefresh discards the cached token and requests a new one. Callers use
// it after a 401 response.
func (c *ClientCred) ForceRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refresh(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// SetAuthHeader sets a bearer Authorization header on r.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	tok, err := c.GetToken(r.Context())
	if err != nil {
		return err
	}
	r.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// valid requires c.mu.
func (c *ClientCred) valid() bool {
	if c.token == nil || c.token.AccessToken == "" {
		return false
	}
	if c.token.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(expiryMargin).Before(c.token.Expiry)
}

// refresh requires c.mu.
func (c *ClientCred) refresh(ctx context.Context) error {
	tok, err := c.fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return nil
}

type jsonGrantRequest struct {
	GrantType    string `json:"grantType"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type jsonGrantResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// Some providers send expires_in as a string.
	ExpiresIn json.Number `json:"expires_in"`
}

func jsonGrant(client *resty.Client, conf Conf) tokenFunc {
	return func(ctx context.Context) (*oauth2.Token, error) {
		var out jsonGrantResponse
		resp, err := client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json;charset=UTF-8").
			SetBody(jsonGrantRequest{
				GrantType:    "client_credentials",
				ClientID:     conf.ClientID,
				ClientSecret: conf.ClientSecret,
			}).
			SetResult(&out).
			Post(conf.AuthURL)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("token endpoint returned %d", resp.StatusCode())
		}
		if out.AccessToken == "" {
			return nil, fmt.Errorf("token endpoint returned no access token")
		}
		tok := &oauth2.Token{AccessToken: out.AccessToken, TokenType: out.TokenType}
		if secs, err := out.ExpiresIn.Int64(); err == nil && secs > 0 {
			tok.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
		}
		return tok, nil
	}
}
