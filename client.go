package walletauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient implements Client against a running walletauth server
type HTTPClient struct {
	baseURL    string
	authPrefix string
	apiPrefix  string
	http       *http.Client
}

var _ Client = (*HTTPClient)(nil)

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// WithAdminRealm targets the administrative routes
func WithAdminRealm() Option {
	return func(h *HTTPClient) {
		h.authPrefix = "/admin/auth"
		h.apiPrefix = "/admin/api"
	}
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authPrefix: "/auth",
		apiPrefix:  "/api",
		http:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Challenge requests a login nonce
func (c *HTTPClient) Challenge(ctx context.Context, address string) (Challenge, error) {
	var out Challenge
	err := c.do(ctx, http.MethodPost, c.authPrefix+"/nonce", "", map[string]string{"walletAddress": address}, &out)
	return out, err
}

// Login requests a challenge for the signer's address, signs it and submits the signature
func (c *HTTPClient) Login(ctx context.Context, signer Signer) (Tokens, error) {
	challenge, err := c.Challenge(ctx, signer.Address())
	if err != nil {
		return Tokens{}, err
	}

	signature, err := signer.SignText(challenge.Message)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to sign challenge: %w", err)
	}

	var out Tokens
	err = c.do(ctx, http.MethodPost, c.authPrefix+"/verify", "", map[string]string{
		"walletAddress": signer.Address(),
		"signature":     signature,
	}, &out)
	return out, err
}

// Refresh rotates refreshToken. The old token must not be used again.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var out Tokens
	err := c.do(ctx, http.MethodPost, c.authPrefix+"/refresh", "", map[string]string{"refreshToken": refreshToken}, &out)
	return out, err
}

// Logout ends the session. refreshToken may be empty.
func (c *HTTPClient) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var body any
	if refreshToken != "" {
		body = map[string]string{"refreshToken": refreshToken}
	}
	return c.do(ctx, http.MethodPost, c.authPrefix+"/logout", accessToken, body, nil)
}

// Me returns the identity behind accessToken
func (c *HTTPClient) Me(ctx context.Context, accessToken string) (Identity, error) {
	var out Identity
	err := c.do(ctx, http.MethodGet, c.apiPrefix+"/me", accessToken, nil, &out)
	return out, err
}

func (c *HTTPClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Status)
	}
}
