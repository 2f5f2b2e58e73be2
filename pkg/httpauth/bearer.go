// Package httpauth builds *http.Client instances that inject a bearer
// token on every request via golang.org/x/oauth2's static-token
// transport, instead of each provider setting the Authorization header
// by hand.
package httpauth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// NewBearerClient returns an http.Client that sends "Authorization: Bearer
// <token>" on every request. If proxyURL is non-empty, outbound requests
// are routed through it; an empty proxyURL means no proxy, whatever the
// environment's proxy variables say.
func NewBearerClient(token string, proxyURL string, timeout time.Duration) (*http.Client, error) {
	base := &http.Transport{}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(parsed)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	client := oauth2.NewClient(context.Background(), ts)
	client.Transport.(*oauth2.Transport).Base = base
	client.Timeout = timeout
	return client, nil
}
