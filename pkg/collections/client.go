// Package collections is a client for the MTN MoMo Collections API: it
// authorizes with a subscription key and API user credentials, requests
// payments from subscriber wallets, polls their status and reads the
// account balance.
//
// A Client is not safe for concurrent use. It owns a mutable bearer token
// and re-authorizes in place when the gateway reports that token as
// expired, so callers sharing one Client must serialize access.
package collections

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"momo-gateway/pkg/logger"
	"momo-gateway/pkg/msisdn"
)

// HTTPDoer is the transport the client sends requests through.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder receives one observation per gateway round trip.
type Recorder interface {
	ObserveRequest(operation string, statusCode int, duration time.Duration)
	ObserveReauthorization(operation string)
}

type Config struct {
	Username        string
	Password        string
	SubscriptionKey string
	BaseURL         string // defaults to SandboxBaseURL
	CallbackHost    string // defaults to FallbackCallbackHost
	PayerMessage    string
	PayeeNote       string
	Timeout         time.Duration

	HTTPClient     HTTPDoer
	Logger         *logger.Logger
	Recorder       Recorder
	NewReferenceID func() uuid.UUID
}

type authState int

const (
	unauthenticated authState = iota
	authenticated
	authorizing
)

type Client struct {
	httpClient      HTTPDoer
	username        string
	password        string
	subscriptionKey string

	baseURL           string
	targetEnvironment string
	callbackHost      string
	payerMessage      string
	payeeNote         string

	accessToken string
	state       authState

	newReferenceID func() uuid.UUID
	log            *logger.Logger
	recorder       Recorder
}

type response struct {
	statusCode int
	body       []byte
}

// New builds a client and performs the initial authorization. No client is
// returned unless that authorization succeeds.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" || cfg.SubscriptionKey == "" {
		return nil, &ConfigurationError{Err: ErrMissingCredentials}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithComponent("collections")

	baseURL, targetEnvironment := resolveBaseURL(cfg.BaseURL)
	if cfg.BaseURL == "" {
		log.Debugf("using fallback sandbox environment located @ %s", SandboxBaseURL)
	}

	callbackHost := cfg.CallbackHost
	if callbackHost == "" {
		log.Debugf("using fallback callback host %q", FallbackCallbackHost)
		callbackHost = FallbackCallbackHost
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	newReferenceID := cfg.NewReferenceID
	if newReferenceID == nil {
		newReferenceID = uuid.New
	}

	c := &Client{
		httpClient:        httpClient,
		username:          cfg.Username,
		password:          cfg.Password,
		subscriptionKey:   cfg.SubscriptionKey,
		baseURL:           baseURL,
		targetEnvironment: targetEnvironment,
		callbackHost:      callbackHost,
		payerMessage:      valueOr(cfg.PayerMessage, DefaultPayerMessage),
		payeeNote:         valueOr(cfg.PayeeNote, DefaultPayeeNote),
		newReferenceID:    newReferenceID,
		log:               log,
		recorder:          cfg.Recorder,
	}

	if err := c.Authorize(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func resolveBaseURL(configured string) (baseURL, targetEnvironment string) {
	if configured == "" {
		return SandboxBaseURL, Sandbox
	}

	baseURL = strings.TrimRight(configured, "/") + "/"
	if strings.HasPrefix(baseURL, ProductionBaseURL) {
		return baseURL, Production
	}
	return baseURL, Sandbox
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) TargetEnvironment() string {
	return c.targetEnvironment
}

func (c *Client) CallbackHost() string {
	return c.callbackHost
}

// Authorize fetches a fresh access token. While it runs the client will not
// re-authorize on its own. A failed attempt leaves the client unauthenticated
// and the next 401 tries again.
func (c *Client) Authorize(ctx context.Context) error {
	c.state = authorizing

	res, err := c.send(ctx, OpAuthorize, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.username, c.password)
		req.Header.Set(headerSubscriptionKey, c.subscriptionKey)
		return req, nil
	})
	if err != nil {
		c.state = unauthenticated
		return err
	}

	if res.statusCode != http.StatusOK {
		c.state = unauthenticated
		return &AuthorizationError{StatusCode: res.statusCode, Body: string(res.body)}
	}

	var token tokenResponse
	if err := json.Unmarshal(res.body, &token); err != nil {
		c.state = unauthenticated
		return &AuthorizationError{StatusCode: res.statusCode, Body: string(res.body), Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if token.AccessToken == "" {
		c.state = unauthenticated
		return &AuthorizationError{StatusCode: res.statusCode, Body: string(res.body), Err: ErrMissingAccessToken}
	}

	c.accessToken = token.AccessToken
	c.state = authenticated

	if expiry, ok := tokenExpiry(token.AccessToken); ok {
		c.log.WithField("expires_at", expiry.UTC().Format(time.RFC3339)).Debug("collections authorized")
	} else {
		c.log.Debug("collections authorized")
	}

	return nil
}

// RequestToPay asks the payer to approve a debit of amount from their wallet.
// The returned reference id identifies the request for RequestToPayStatus.
func (c *Client) RequestToPay(ctx context.Context, amount decimal.Decimal, currency Currency, payer msisdn.Msisdn, callbackURL string) (uuid.UUID, error) {
	if payer.IsZero() {
		return uuid.Nil, &ConfigurationError{Err: ErrInvalidPayer}
	}
	if _, err := currency.MarshalText(); err != nil {
		return uuid.Nil, err
	}

	cbURL, err := c.resolveCallbackURL(callbackURL)
	if err != nil {
		return uuid.Nil, err
	}

	referenceID := c.newReferenceID()
	reference := referenceID.String()

	body, err := json.Marshal(requestToPayBody{
		Amount:     amount.String(),
		Currency:   currency.String(),
		ExternalID: reference,
		Payer: Payer{
			PartyIDType: "MSISDN",
			PartyID:     payer.String(),
		},
		PayerMessage: c.payerMessage,
		PayeeNote:    c.payeeNote,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("collections: failed to marshal request to pay: %w", err)
	}

	res, err := c.withReauthorization(ctx, OpRequestToPay, func() (*response, error) {
		return c.send(ctx, OpRequestToPay, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+requestToPayPath, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			c.setGatewayHeaders(req)
			req.Header.Set(headerCallbackURL, cbURL)
			req.Header.Set(headerReferenceID, reference)
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		})
	})
	if err != nil {
		return uuid.Nil, err
	}

	if res.statusCode != http.StatusAccepted {
		return uuid.Nil, &OperationError{Operation: OpRequestToPay, StatusCode: res.statusCode, ReferenceID: reference, Body: string(res.body)}
	}

	c.log.WithReferenceID(reference).WithField("payer", payer.Mask()).Debug("request to pay accepted")
	return referenceID, nil
}

func (c *Client) resolveCallbackURL(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if strings.HasSuffix(c.callbackHost, placeholderCallbackSuffix) {
		c.log.Debugf("using fallback callback url %q", FallbackCallbackURL)
		return FallbackCallbackURL, nil
	}
	return "", &ConfigurationError{Err: ErrMissingCallbackURL}
}

// RequestToPayStatus polls the gateway for the status of an earlier request.
func (c *Client) RequestToPayStatus(ctx context.Context, referenceID uuid.UUID) (PaymentStatus, error) {
	payment, err := c.GetRequestToPay(ctx, referenceID)
	if err != nil {
		return 0, err
	}
	return payment.Status, nil
}

// GetRequestToPay returns the gateway's full record of a request to pay.
func (c *Client) GetRequestToPay(ctx context.Context, referenceID uuid.UUID) (*Payment, error) {
	reference := referenceID.String()

	res, err := c.withReauthorization(ctx, OpRequestToPayStatus, func() (*response, error) {
		return c.send(ctx, OpRequestToPayStatus, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+requestToPayPath+reference, nil)
			if err != nil {
				return nil, err
			}
			c.setGatewayHeaders(req)
			return req, nil
		})
	})
	if err != nil {
		return nil, err
	}

	if res.statusCode != http.StatusOK {
		return nil, &OperationError{Operation: OpRequestToPayStatus, StatusCode: res.statusCode, ReferenceID: reference, Body: string(res.body)}
	}

	var wire paymentResponse
	if err := json.Unmarshal(res.body, &wire); err != nil {
		return nil, fmt.Errorf("collections: failed to decode payment %s: %w", reference, err)
	}

	status, err := ParsePaymentStatus(wire.Status)
	if err != nil {
		return nil, err
	}

	return &Payment{
		Amount:                 wire.Amount,
		Currency:               wire.Currency,
		FinancialTransactionID: wire.FinancialTransactionID,
		ExternalID:             wire.ExternalID,
		Payer:                  wire.Payer,
		Status:                 status,
		Reason:                 ReasonText(wire.Reason),
	}, nil
}

// GetBalance reads the available balance of the collections account.
func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	res, err := c.withReauthorization(ctx, OpGetBalance, func() (*response, error) {
		return c.send(ctx, OpGetBalance, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+balancePath, nil)
			if err != nil {
				return nil, err
			}
			c.setGatewayHeaders(req)
			return req, nil
		})
	})
	if err != nil {
		return nil, err
	}

	if res.statusCode != http.StatusOK {
		return nil, &OperationError{Operation: OpGetBalance, StatusCode: res.statusCode, Body: string(res.body)}
	}

	var balance Balance
	if err := json.Unmarshal(res.body, &balance); err != nil {
		return nil, fmt.Errorf("collections: failed to decode balance: %w", err)
	}

	return &balance, nil
}

// withReauthorization runs call and, if the gateway rejects the bearer token
// while no authorization is in flight, authorizes once and replays call once.
// A 401 on the replay is handed back to the caller untouched.
func (c *Client) withReauthorization(ctx context.Context, operation string, call func() (*response, error)) (*response, error) {
	res, err := call()
	if err != nil {
		return nil, err
	}

	if res.statusCode != http.StatusUnauthorized || c.state == authorizing {
		return res, nil
	}

	c.log.WithField("operation", operation).Debug("currently unauthorized, attempting reauthorization")
	if c.recorder != nil {
		c.recorder.ObserveReauthorization(operation)
	}

	if err := c.Authorize(ctx); err != nil {
		return nil, err
	}

	return call()
}

func (c *Client) send(ctx context.Context, operation string, build func() (*http.Request, error)) (*response, error) {
	req, err := build()
	if err != nil {
		return nil, fmt.Errorf("collections: failed to create %s request: %w", operation, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collections: %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("collections: failed to read %s response: %w", operation, err)
	}

	elapsed := time.Since(start)
	c.log.WithContext(ctx).LogGatewayCall(operation, resp.StatusCode, elapsed)
	if c.recorder != nil {
		c.recorder.ObserveRequest(operation, resp.StatusCode, elapsed)
	}

	return &response{statusCode: resp.StatusCode, body: body}, nil
}

func (c *Client) setGatewayHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set(headerTargetEnvironment, c.targetEnvironment)
	req.Header.Set(headerSubscriptionKey, c.subscriptionKey)
}

// tokenExpiry reads the exp claim of a JWT access token without verifying
// it. Only used for diagnostics; expiry is detected from 401 responses.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
