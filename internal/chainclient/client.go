// Package chainclient is the HTTP adapter for the chain's credential
// registry API. It satisfies the sync engine's ChainClient port and maps
// transport failures onto domain error codes.
package chainclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"vericred/internal/revocation"
	dErrors "vericred/pkg/domain-errors"
	"vericred/pkg/vc"
)

const defaultTimeout = 15 * time.Second

// Config holds the registry endpoint settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the chain registry over HTTP.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a registry client for the given endpoint.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "chain base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// credentialResponse is the registry's credential envelope. Registries that
// issue JWT-VCs return the compact token; others return the decoded form.
type credentialResponse struct {
	JWT        string         `json:"jwt,omitempty"`
	Credential *vc.Credential `json:"credential,omitempty"`
}

// GetCredential fetches one credential by ID.
func (c *Client) GetCredential(ctx context.Context, vcID string) (*vc.Credential, error) {
	var body credentialResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("id", vcID).
		Get("/api/v1/credentials/{id}")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetwork, "get credential "+vcID)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}

	switch {
	case body.JWT != "":
		cred, err := vc.FromJWT(body.JWT)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "get credential "+vcID+": decode JWT")
		}
		if cred.ID == "" {
			cred.ID = vcID
		}
		return cred, nil
	case body.Credential != nil:
		return body.Credential, nil
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "get credential "+vcID+": empty registry response")
	}
}

// IsCredentialRevoked answers the registry's current revocation status.
func (c *Client) IsCredentialRevoked(ctx context.Context, vcID string) (bool, error) {
	var body struct {
		Revoked bool `json:"revoked"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("id", vcID).
		Get("/api/v1/credentials/{id}/revocation")
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeNetwork, "revocation status "+vcID)
	}
	if err := mapHTTPError(resp); err != nil {
		return false, err
	}
	return body.Revoked, nil
}

// GetRevocationList fetches the published revocation list snapshot. The
// snapshot is validated before it is handed to the caller; a registry
// serving a malformed list is indistinguishable from one serving none.
func (c *Client) GetRevocationList(ctx context.Context) (*revocation.List, error) {
	var list revocation.List
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&list).
		Get("/api/v1/revocation-list")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetwork, "get revocation list")
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	if err := list.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "registry served an invalid revocation list")
	}
	return &list, nil
}

// VerifyCredential asks the registry for a full chain-side verification.
func (c *Client) VerifyCredential(ctx context.Context, vcID string) (*vc.VerificationResult, error) {
	var result vc.VerificationResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetPathParam("id", vcID).
		Post("/api/v1/credentials/{id}/verify")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetwork, "verify credential "+vcID)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health probes the registry's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetwork, "chain health probe")
	}
	return mapHTTPError(resp)
}

func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("registry: %s", body))
	case code == http.StatusTooManyRequests:
		return dErrors.New(dErrors.CodeRateLimited, fmt.Sprintf("registry: %s", body))
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("registry: %s", body))
	case code >= http.StatusInternalServerError:
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("registry http %d: %s", code, body))
	default:
		return dErrors.New(dErrors.CodeNetwork, fmt.Sprintf("registry http %d: %s", code, body))
	}
}
