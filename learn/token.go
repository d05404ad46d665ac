package learn

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultScope is requested when no scope option is given.
	DefaultScope = "https://graph.microsoft.com/.default"

	tokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
)

// Credentials identify the service principal that calls the catalog.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TenantID     string
}

// TokenURL returns the Microsoft identity platform token endpoint for the tenant.
func (c Credentials) TokenURL() string {
	return fmt.Sprintf(tokenURLFormat, c.TenantID)
}

// TokenProvider exchanges Credentials for a bearer token with the OAuth2
// client credentials grant. Tokens are never cached; every call performs a
// new token request.
type TokenProvider struct {
	config     clientcredentials.Config
	httpClient *http.Client
	log        logr.Logger
}

// NewTokenProvider creates a TokenProvider for creds.
func NewTokenProvider(creds Credentials, opts ...Option) *TokenProvider {
	o := newOptions(opts)

	tokenURL := o.tokenURL
	if tokenURL == "" {
		tokenURL = creds.TokenURL()
	}
	scope := o.scope
	if scope == "" {
		scope = DefaultScope
	}

	return &TokenProvider{
		config: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{scope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: o.httpClient,
		log:        o.logger.WithName("token"),
	}
}

// AccessToken requests a new access token.
//
// A token endpoint that answers with a non-2xx status is reported through the
// logger and yields ok == false with a nil error; callers treat that as an
// authentication failure. Transport failures are returned as err.
func (p *TokenProvider) AccessToken(ctx context.Context) (token string, ok bool, err error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	tok, err := p.config.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			p.log.Error(err, "Token request rejected",
				"tokenURL", p.config.TokenURL,
				"status", status,
				"body", string(retrieveErr.Body))
			return "", false, nil
		}
		return "", false, fmt.Errorf("learn: token request: %w", err)
	}

	p.log.V(1).Info("Obtained access token", "tokenType", tok.Type())
	return tok.AccessToken, true, nil
}
