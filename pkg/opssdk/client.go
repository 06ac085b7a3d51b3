package opssdk

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/bizops/pkg/slogx"
	"github.com/aussiebroadwan/bizops/pkg/tokenstore"
)

// DefaultTimeout bounds every request made with the default HTTP client.
const DefaultTimeout = 30 * time.Second

// SDKClient talks to the operations backend. It performs unauthenticated
// calls directly and hands out Sessions for everything else.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Policy controls retries and write serialisation for Session calls.
	Policy FetchPolicy
}

type Option func(*SDKClient)

// WithHTTPClient replaces the default client (30s timeout, logging transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *SDKClient) { c.HTTPClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *SDKClient) { c.Logger = l }
}

func WithPolicy(p FetchPolicy) Option {
	return func(c *SDKClient) { c.Policy = p }
}

// NewSDKClient creates a client for the backend rooted at baseURL.
func NewSDKClient(baseURL string, opts ...Option) *SDKClient {
	c := &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Logger:  slog.Default(),
		Policy:  DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &slogx.Transport{Logger: c.Logger},
		}
	}
	return c
}

// NewSession creates an unauthenticated session persisting to tokens. A nil
// store keeps tokens in memory only.
func (c *SDKClient) NewSession(tokens *tokenstore.Store) *Session {
	if tokens == nil {
		tokens = tokenstore.New(nil, tokenstore.WithLogger(c.Logger))
	}
	return &Session{
		client: c,
		tokens: tokens,
		state:  Unauthenticated{},
	}
}
