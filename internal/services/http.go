package services

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewHTTPClient builds the [http.Client] used to talk to the backend.
//
// A non-empty token is sent as "Authorization: Bearer <token>" on every request.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	var client *http.Client
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		client = oauth2.NewClient(ctx, src)
	} else {
		client = &http.Client{}
	}

	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}
