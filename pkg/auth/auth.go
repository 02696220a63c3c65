// Package auth applies credentials to download requests.
package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// Authenticator defines the interface for applying authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// BasicAuth represents HTTP Basic Authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// HeaderAuth represents authentication via custom HTTP headers.
type HeaderAuth struct {
	Headers map[string]string
}

// BearerAuth represents Bearer token authentication.
type BearerAuth struct {
	Token string
}

// Chain applies several authenticators in order.
type Chain []Authenticator

// Type represents the type of authentication.
type Type string

// Authentication types.
const (
	// BasicAuthType represents HTTP Basic Authentication.
	BasicAuthType Type = "basic"
	// HeaderAuthType represents custom header-based authentication.
	HeaderAuthType Type = "header"
	// BearerAuthType represents Bearer token authentication.
	BearerAuthType Type = "bearer"
	// ChainType represents several authenticators applied together.
	ChainType Type = "chain"
)

// Apply adds Basic Authentication headers to the HTTP request.
func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// Type returns the authentication type (BasicAuthType).
func (b BasicAuth) Type() Type { return BasicAuthType }

// Apply adds custom headers to the HTTP request.
func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	return nil
}

// Type returns the authentication type (HeaderAuthType).
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// Apply adds a Bearer token to the Authorization header of the HTTP request.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Type returns the authentication type (BearerAuthType).
func (b BearerAuth) Type() Type { return BearerAuthType }

// Apply runs every authenticator; later ones win on conflicting headers.
func (c Chain) Apply(req *http.Request) error {
	for _, a := range c {
		if err := a.Apply(req); err != nil {
			return err
		}
	}
	return nil
}

// Type returns the authentication type (ChainType).
func (c Chain) Type() Type { return ChainType }

// ForURL selects the credentials for downloading u. Credentials embedded
// in the URL become basic auth. The GitHub token is only sent to GitHub
// hosts and never overrides an Authorization header set by the cask. It
// returns nil when the request needs no authentication.
func ForURL(u *url.URL, headers map[string]string, githubToken string) Authenticator {
	var chain Chain
	if u.User != nil {
		password, _ := u.User.Password()
		chain = append(chain, BasicAuth{Username: u.User.Username(), Password: password})
	}
	if githubToken != "" && isGitHub(u.Hostname()) && !hasHeader(headers, "Authorization") {
		chain = append(chain, BearerAuth{Token: githubToken})
	}
	if len(headers) > 0 {
		chain = append(chain, HeaderAuth{Headers: headers})
	}

	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	default:
		return chain
	}
}

func isGitHub(host string) bool {
	host = strings.ToLower(host)
	return host == "github.com" || strings.HasSuffix(host, ".github.com") ||
		host == "githubusercontent.com" || strings.HasSuffix(host, ".githubusercontent.com")
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
