package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"driverapp/api"
)

// Gateway exposes the identity service's auth operations. Each method is
// a single stateless request/response pair; interpretation of results
// belongs to the Manager.
type Gateway struct {
	client *api.Client
}

// NewGateway creates a Gateway over the given identity-service client.
// The client's underlying http.Client must carry a cookie jar: the
// renewal credential lives in an HTTP-only cookie that the refresh and
// logout endpoints depend on.
func NewGateway(client *api.Client) *Gateway {
	return &Gateway{client: client}
}

// LoginResult bundles the token and backend user returned after a
// successful login.
type LoginResult struct {
	AccessToken string
	User        BackendUser
}

// Login exchanges driver credentials for a bearer token.
func (g *Gateway) Login(ctx context.Context, credentials Credentials) (LoginResult, error) {
	body, err := g.client.Do(ctx, http.MethodPost, "/auth/login/driver", "", nil, credentials)
	if err != nil {
		return LoginResult{}, fmt.Errorf("session: login: %w", err)
	}
	var response loginResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return LoginResult{}, fmt.Errorf("session: parse login response: %w", err)
	}
	return LoginResult{AccessToken: response.AccessToken, User: response.User}, nil
}

// Validate checks the given bearer token against the identity service and
// returns the user it belongs to.
func (g *Gateway) Validate(ctx context.Context, token string) (BackendUser, error) {
	body, err := g.client.Do(ctx, http.MethodPost, "/auth/validate", token, nil, nil)
	if err != nil {
		return BackendUser{}, fmt.Errorf("session: validate token: %w", err)
	}
	var response validateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return BackendUser{}, fmt.Errorf("session: parse validate response: %w", err)
	}
	return response.User, nil
}

// Refresh mints a new bearer token from the renewal cookie. No bearer is
// sent: the cookie jar supplies the credential.
func (g *Gateway) Refresh(ctx context.Context) (LoginResult, error) {
	body, err := g.client.Do(ctx, http.MethodPost, "/auth/refresh", "", nil, nil)
	if err != nil {
		return LoginResult{}, fmt.Errorf("session: refresh token: %w", err)
	}
	var response refreshResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return LoginResult{}, fmt.Errorf("session: parse refresh response: %w", err)
	}
	return LoginResult{AccessToken: response.AccessToken, User: response.User}, nil
}

// Logout invalidates the server-side session and clears the renewal
// cookie.
func (g *Gateway) Logout(ctx context.Context, token string) error {
	if _, err := g.client.Do(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}
