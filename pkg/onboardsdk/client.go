package onboardsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the gatekeeper onboarding service. It performs
// the public operations and hands out issuer Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10 second request timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session performs issuer operations with a bearer token.
type Session struct {
	client *SDKClient
	token  string
}

// WithToken returns a Session authenticated with the given issuer token.
func (c *SDKClient) WithToken(token string) *Session {
	return &Session{client: c, token: token}
}
