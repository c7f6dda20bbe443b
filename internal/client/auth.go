package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/oreanmos/copepod-go/internal/constants"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// AuthClient implements copepod.AuthClient.
type AuthClient struct {
	httpClient *internalhttp.Client
}

// NewAuthClient creates a new auth client.
func NewAuthClient(httpClient *internalhttp.Client) *AuthClient {
	return &AuthClient{
		httpClient: httpClient,
	}
}

// loginResponse covers both shapes returned by the login endpoint.
type loginResponse struct {
	copepod.AuthResponse

	MFARequired bool   `json:"mfa_required"`
	MFAToken    string `json:"mfa_token"`
}

// Login implements copepod.AuthClient.Login.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*copepod.AuthResponse, error) {
	resp, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method:          http.MethodPost,
		Path:            constants.PathAuthLogin,
		Body:            map[string]string{"email": email, "password": password},
		Unauthenticated: true,
	})
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	var login loginResponse

	err = json.Unmarshal(resp.Body, &login)
	if err != nil {
		return nil, copepod.NewDecodeError(fmt.Errorf("parsing login response: %w", err))
	}

	if login.MFARequired {
		return nil, &copepod.MFARequiredError{MFAToken: login.MFAToken}
	}

	err = login.CheckTokens()
	if err != nil {
		return nil, fmt.Errorf("parsing login response: %w", err)
	}

	c.httpClient.StoreTokens(ctx, login.Token, login.RefreshToken)

	return &login.AuthResponse, nil
}

// Refresh implements copepod.AuthClient.Refresh.
func (c *AuthClient) Refresh(ctx context.Context) (*copepod.AuthResponse, error) {
	resp, err := c.httpClient.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	return resp, nil
}

// Logout implements copepod.AuthClient.Logout. A failed server call is logged and
// the stored pair is cleared regardless.
func (c *AuthClient) Logout(ctx context.Context) error {
	_, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method: http.MethodPost,
		Path:   constants.PathAuthLogout,
		Body:   map[string]string{},
	})
	if err != nil {
		c.httpClient.Logger().Warn("Logout request failed", map[string]interface{}{"error": err.Error()})
	}

	c.httpClient.ClearTokens(ctx)

	return nil
}

// VerifyMFA implements copepod.AuthClient.VerifyMFA.
func (c *AuthClient) VerifyMFA(ctx context.Context, mfaToken, code string) (*copepod.AuthResponse, error) {
	return c.completeMFA(ctx, constants.PathMFAVerify, map[string]string{
		"mfa_token": mfaToken,
		"code":      code,
	})
}

// RecoverMFA implements copepod.AuthClient.RecoverMFA.
func (c *AuthClient) RecoverMFA(ctx context.Context, mfaToken, recoveryCode string) (*copepod.AuthResponse, error) {
	return c.completeMFA(ctx, constants.PathMFARecovery, map[string]string{
		"mfa_token":     mfaToken,
		"recovery_code": recoveryCode,
	})
}

func (c *AuthClient) completeMFA(ctx context.Context, path string, body map[string]string) (*copepod.AuthResponse, error) {
	resp, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method:          http.MethodPost,
		Path:            path,
		Body:            body,
		Unauthenticated: true,
	})
	if err != nil {
		return nil, fmt.Errorf("verifying second factor: %w", err)
	}

	authResp, err := decodeResponse[copepod.AuthResponse](resp, "mfa response")
	if err != nil {
		return nil, err
	}

	err = authResp.CheckTokens()
	if err != nil {
		return nil, fmt.Errorf("parsing mfa response: %w", err)
	}

	c.httpClient.StoreTokens(ctx, authResp.Token, authResp.RefreshToken)

	return authResp, nil
}

// Me implements copepod.AuthClient.Me.
func (c *AuthClient) Me(ctx context.Context) (*copepod.User, error) {
	resp, err := c.httpClient.Get(ctx, constants.PathPlatformMe, nil)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	return decodeResponse[copepod.User](resp, "user")
}

// SetupMFA implements copepod.AuthClient.SetupMFA. The result holds the provisioning
// details, such as the secret and otpauth URI, as sent by the server.
func (c *AuthClient) SetupMFA(ctx context.Context) (map[string]interface{}, error) {
	resp, err := c.httpClient.Get(ctx, constants.PathMFASetup, nil)
	if err != nil {
		return nil, fmt.Errorf("starting mfa setup: %w", err)
	}

	setup, err := decodeResponse[map[string]interface{}](resp, "mfa setup")
	if err != nil {
		return nil, err
	}

	return *setup, nil
}

// EnableMFA implements copepod.AuthClient.EnableMFA.
func (c *AuthClient) EnableMFA(ctx context.Context, code string) error {
	_, err := c.httpClient.Post(ctx, constants.PathMFAEnable, map[string]string{"code": code})
	if err != nil {
		return fmt.Errorf("enabling mfa: %w", err)
	}

	return nil
}

// DisableMFA implements copepod.AuthClient.DisableMFA.
func (c *AuthClient) DisableMFA(ctx context.Context, code string) error {
	_, err := c.httpClient.Post(ctx, constants.PathMFADisable, map[string]string{"code": code})
	if err != nil {
		return fmt.Errorf("disabling mfa: %w", err)
	}

	return nil
}
