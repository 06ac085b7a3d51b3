package opssdk

import (
	"context"
	"net/http"
	"net/url"
)

// login posts credentials. A challenge comes back as *TwoFactorRequiredError.
func (c *SDKClient) login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	var out AuthResponse
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", nil, req)
	if err != nil {
		return out, err
	}
	err = decodeJSON(resp, &out)
	return out, err
}

func (c *SDKClient) verifyTwoFactor(ctx context.Context, username, code string) (AuthResponse, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("code", code)

	var out AuthResponse
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/verify-2fa", q, nil)
	if err != nil {
		return out, err
	}
	err = decodeJSON(resp, &out)
	return out, err
}

func (c *SDKClient) register(ctx context.Context, payload registrationPayload) (AuthResponse, error) {
	var out AuthResponse
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", nil, payload)
	if err != nil {
		return out, err
	}
	err = decodeJSON(resp, &out)
	return out, err
}

func (c *SDKClient) refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	var out AuthResponse
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/refresh", nil, RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return out, err
	}
	err = decodeJSON(resp, &out)
	return out, err
}

// Health calls the backend's liveness endpoint.
func (c *SDKClient) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, nil)
	if err != nil {
		return out, err
	}
	err = decodeJSON(resp, &out)
	return out, err
}
