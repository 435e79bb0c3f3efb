// Package sandbox creates API user credentials on the MoMo developer sandbox.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"momo-gateway/pkg/collections"
	"momo-gateway/pkg/logger"
)

const (
	// DefaultCallbackHost lets the client fall back to collections.FallbackCallbackURL.
	DefaultCallbackHost = "mocky.io"

	StepCreateUser   = "create_user"
	StepCreateAPIKey = "create_api_key"
)

// Credentials are the username and password a collections.Client
// authorizes with.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ProvisionError struct {
	Step       string
	StatusCode int
	Body       string
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("sandbox: %s failed - http status %d: %s", e.Step, e.StatusCode, e.Body)
}

type Config struct {
	SubscriptionKey string
	CallbackHost    string // defaults to DefaultCallbackHost
	BaseURL         string // defaults to collections.SandboxBaseURL

	HTTPClient     collections.HTTPDoer
	Logger         *logger.Logger
	NewReferenceID func() uuid.UUID
}

type Provisioner struct {
	httpClient      collections.HTTPDoer
	subscriptionKey string
	callbackHost    string
	baseURL         string
	newReferenceID  func() uuid.UUID
	logger          *logger.Logger
}

func NewProvisioner(cfg Config) (*Provisioner, error) {
	if cfg.SubscriptionKey == "" {
		return nil, &collections.ConfigurationError{Err: collections.ErrMissingCredentials}
	}

	p := &Provisioner{
		httpClient:      cfg.HTTPClient,
		subscriptionKey: cfg.SubscriptionKey,
		callbackHost:    cfg.CallbackHost,
		baseURL:         cfg.BaseURL,
		newReferenceID:  cfg.NewReferenceID,
		logger:          cfg.Logger,
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if p.callbackHost == "" {
		p.callbackHost = DefaultCallbackHost
	}
	if p.baseURL == "" {
		p.baseURL = collections.SandboxBaseURL
	}
	p.baseURL = strings.TrimRight(p.baseURL, "/") + "/"
	if p.newReferenceID == nil {
		p.newReferenceID = uuid.New
	}
	if p.logger == nil {
		p.logger = logger.Discard()
	}

	return p, nil
}

// Provision registers a new API user for the callback host and creates its
// API key. The user's reference id becomes the username.
func (p *Provisioner) Provision(ctx context.Context) (*Credentials, error) {
	userID := p.newReferenceID().String()

	body, err := json.Marshal(map[string]string{"providerCallbackHost": p.callbackHost})
	if err != nil {
		return nil, err
	}

	status, respBody, err := p.post(ctx, p.baseURL+"v1_0/apiuser", userID, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, &ProvisionError{Step: StepCreateUser, StatusCode: status, Body: string(respBody)}
	}
	p.logger.WithField("user_id", userID).WithField("callback_host", p.callbackHost).Debug("sandbox api user created")

	status, respBody, err = p.post(ctx, p.baseURL+"v1_0/apiuser/"+userID+"/apikey", userID, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, &ProvisionError{Step: StepCreateAPIKey, StatusCode: status, Body: string(respBody)}
	}

	var key struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal(respBody, &key); err != nil {
		return nil, fmt.Errorf("sandbox: failed to decode api key: %w", err)
	}
	if key.APIKey == "" {
		return nil, &ProvisionError{Step: StepCreateAPIKey, StatusCode: status, Body: string(respBody)}
	}

	return &Credentials{Username: userID, Password: key.APIKey}, nil
}

func (p *Provisioner) post(ctx context.Context, url, referenceID string, body []byte) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("sandbox: failed to create request: %w", err)
	}
	req.Header.Set("X-Reference-Id", referenceID)
	req.Header.Set("Ocp-Apim-Subscription-Key", p.subscriptionKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sandbox: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("sandbox: failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
