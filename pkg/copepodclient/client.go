// Package copepodclient provides the main entry point for creating Copepod platform clients
package copepodclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/oreanmos/copepod-go/internal/client"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// New creates a new Copepod client. When config carries Email and Password the
// client logs in before it is returned.
func New(ctx context.Context, config *copepod.Config) (copepod.Client, error) {
	if config == nil {
		return nil, copepod.ErrConfigRequired
	}

	endpoint, err := NormalizeEndpoint(config.APIEndpoint)
	if err != nil {
		return nil, err
	}

	normalized := *config
	normalized.APIEndpoint = endpoint

	// Use the internal client implementation
	c, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeEndpoint trims whitespace and trailing slashes, defaults the scheme to
// https and appends a single trailing slash so relative paths join under it.
func NormalizeEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return "", copepod.NewAuthError("base_url is required")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint + "/", nil
}

// NewWithEndpoint creates a new client with just an API endpoint (no auth).
func NewWithEndpoint(ctx context.Context, endpoint string) (copepod.Client, error) {
	return New(ctx, &copepod.Config{
		APIEndpoint: endpoint,
	})
}

// NewWithToken creates a new client with an API endpoint and a non-expiring token pair.
func NewWithToken(ctx context.Context, endpoint, token, refreshToken string) (copepod.Client, error) {
	return New(ctx, &copepod.Config{
		APIEndpoint:  endpoint,
		AccessToken:  token,
		RefreshToken: refreshToken,
	})
}

// NewWithPassword creates a new client and logs in with email and password.
// Accounts with a second factor yield *copepod.MFARequiredError; use NewWithEndpoint
// and AuthClient.Login followed by VerifyMFA for those.
func NewWithPassword(ctx context.Context, endpoint, email, password string) (copepod.Client, error) {
	return New(ctx, &copepod.Config{
		APIEndpoint: endpoint,
		Email:       email,
		Password:    password,
	})
}
