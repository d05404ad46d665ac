package learn

import (
	"net/http"

	"github.com/go-logr/logr"
)

// Option configures a TokenProvider or a CatalogClient.
type Option func(*options)

type options struct {
	tokenURL   string
	scope      string
	httpClient *http.Client
	logger     logr.Logger
}

func newOptions(opts []Option) options {
	o := options{logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTokenURL overrides the token endpoint derived from the tenant ID.
func WithTokenURL(u string) Option {
	return func(o *options) {
		o.tokenURL = u
	}
}

// WithScope overrides DefaultScope.
func WithScope(scope string) Option {
	return func(o *options) {
		o.scope = scope
	}
}

// WithHTTPClient sets the HTTP client used for outgoing requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
