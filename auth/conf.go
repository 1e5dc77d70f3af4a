package auth

import (
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// Grant styles understood by ClientCred.
const (
	// StyleForm posts a standard form-encoded client_credentials grant.
	StyleForm = "form"
	// StyleJSON posts {"grantType","clientId","clientSecret"} as a JSON body.
	StyleJSON = "json"
)

// Conf represents the configuration needed for authentication.
type Conf struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
	// Style selects how the grant is posted. Defaults to StyleJSON.
	Style string `json:"style"`
}

// SetDefaults applies the default grant style.
func (c *Conf) SetDefaults() {
	if c.Style == "" {
		c.Style = StyleJSON
	}
}

// Validate checks that credentials and endpoint are present.
func (c Conf) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("client id and secret are required")
	}
	if c.AuthURL == "" {
		return fmt.Errorf("auth url is required")
	}
	switch c.Style {
	case "", StyleForm, StyleJSON:
		return nil
	default:
		return fmt.Errorf("unknown grant style %q", c.Style)
	}
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
	}
}
